package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// OTP delivery modes
const (
	OTPModeDelivery = "delivery"
	OTPModeDemo     = "demo"
)

// Config is the process configuration read from the environment.
type Config struct {
	// environment
	Environment string
	Port        string
	LogLevel    string

	// database
	UseLocalDB  bool
	PostgresDSN string

	// Session tokens
	JWTSecret  string
	SessionTTL time.Duration

	// OTP
	OTPMode          string
	OTPDebug         bool // echo generated codes in send-otp responses
	OTPTTL           time.Duration
	OTPMaxAttempts   int
	OTPSweepInterval time.Duration

	// Redis backs the shared OTP store and realtime fan-out when set
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// SMTP delivery for email codes
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	// CORS
	AllowedOrigins []string

	// debugging
	Debug bool
}

// LoadConfig reads .env when present, then the environment.
func LoadConfig() *Config {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	// godotenv.Load never overrides variables that are already set
	switch env {
	case "production":
		_ = godotenv.Load(".env.production")
	default:
		_ = godotenv.Load(".env.local")
	}

	config := &Config{
		Environment:      getEnvWithDefault("ENVIRONMENT", "development"),
		Port:             getEnvWithDefault("PORT", "3000"),
		LogLevel:         getEnvWithDefault("LOG_LEVEL", "info"),
		UseLocalDB:       getEnvBool("USE_LOCAL_DB", true),
		JWTSecret:        getEnvWithDefault("JWT_SECRET", defaultJWTSecret),
		SessionTTL:       getEnvDuration("SESSION_TTL", 30*24*time.Hour),
		OTPMode:          strings.ToLower(getEnvWithDefault("OTP_MODE", OTPModeDelivery)),
		OTPDebug:         getEnvBool("OTP_DEBUG", false),
		OTPTTL:           getEnvDuration("OTP_TTL", 10*time.Minute),
		OTPMaxAttempts:   getEnvInt("OTP_MAX_ATTEMPTS", 3),
		OTPSweepInterval: getEnvDuration("OTP_SWEEP_INTERVAL", 5*time.Minute),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		SMTPPort:         getEnvWithDefault("SMTP_PORT", "587"),
		Debug:            getEnvBool("DEBUG", false),
	}

	// Trim whitespace to avoid trailing spaces/newlines from env sources
	config.PostgresDSN = strings.TrimSpace(os.Getenv("POSTGRES_DSN"))
	config.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	config.RedisPassword = os.Getenv("REDIS_PASSWORD")
	config.SMTPHost = strings.TrimSpace(os.Getenv("SMTP_HOST"))
	config.SMTPUser = strings.TrimSpace(os.Getenv("SMTP_USER"))
	config.SMTPPass = os.Getenv("SMTP_PASS")
	config.SMTPFrom = strings.TrimSpace(os.Getenv("SMTP_FROM"))

	if config.PostgresDSN != "" {
		config.UseLocalDB = false
	}

	allowedOrigins := getEnvWithDefault("ALLOWED_ORIGINS", "*")
	if allowedOrigins == "*" {
		config.AllowedOrigins = []string{"*"}
	} else {
		for _, o := range strings.Split(allowedOrigins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				config.AllowedOrigins = append(config.AllowedOrigins, o)
			}
		}
	}

	config.applyEnvironment()
	return config
}

// applyEnvironment forces the settings that must never leak into production.
func (c *Config) applyEnvironment() {
	if c.IsProduction() {
		c.Debug = false
		c.OTPDebug = false
	}
}

// Cached config (initialized once per cold start)
var (
	cachedConfig *Config
	configOnce   sync.Once
)

// GetCached returns the process-wide cached Config.
// On serverless (Vercel), it initializes once per cold start and
// reuses it across warm invocations, avoiding per-request parsing.
func GetCached() *Config {
	configOnce.Do(func() {
		cachedConfig = LoadConfig()
	})
	return cachedConfig
}

// Validate rejects combinations that must not start.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
	}

	switch c.OTPMode {
	case OTPModeDelivery:
	case OTPModeDemo:
		if c.IsProduction() {
			return fmt.Errorf("OTP_MODE=demo is not allowed in production")
		}
	default:
		return fmt.Errorf("unknown OTP_MODE %q", c.OTPMode)
	}

	if c.OTPTTL <= 0 {
		return fmt.Errorf("OTP_TTL must be positive")
	}
	if c.OTPMaxAttempts <= 0 {
		return fmt.Errorf("OTP_MAX_ATTEMPTS must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}

	if c.UseLocalDB && c.IsProduction() {
		return fmt.Errorf("POSTGRES_DSN is required in production")
	}
	if !c.UseLocalDB && c.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required when USE_LOCAL_DB=false")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// ExposeOTP reports whether generated codes may be echoed to clients.
func (c *Config) ExposeOTP() bool {
	return c.OTPDebug && !c.IsProduction()
}

// env helpers

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return defaultValue
}
