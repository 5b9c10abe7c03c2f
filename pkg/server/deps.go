// Package server assembles the process dependencies and the chi router shared
// by the long-running server and the serverless entry point.
package server

import (
	"context"
	"fmt"
	"time"

	"space-notes-backend/pkg/auth"
	"space-notes-backend/pkg/config"
	"space-notes-backend/pkg/database"
	"space-notes-backend/pkg/guard"
	"space-notes-backend/pkg/otp"
	"space-notes-backend/pkg/realtime"
	"space-notes-backend/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deps is everything the router needs.
type Deps struct {
	Config   *config.Config
	DB       database.DatabaseInterface
	OTP      otp.Authenticator
	OTPStore otp.Store
	Provider *auth.Provider
	Guard    *guard.Guard
	Tokens   *utils.JWTService
	Hub      *realtime.Hub
	Events   realtime.Publisher
	Broker   *realtime.RedisBroker // nil without REDIS_ADDR
	Redis    redis.UniversalClient // nil without REDIS_ADDR
	Logger   *zap.Logger
}

// BuildDeps wires storage, OTP, tokens and realtime from cfg.
func BuildDeps(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Deps, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Deps{Config: cfg, Logger: logger}

	db, err := database.GetDatabase(database.DatabaseConfig{
		UseLocalDB:  cfg.UseLocalDB,
		PostgresDSN: cfg.PostgresDSN,
		Debug:       cfg.Debug,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	d.DB = db

	if cfg.RedisAddr != "" {
		d.Redis = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.RedisAddr},
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := d.Redis.Ping(ctx).Err(); err != nil {
			_ = d.Redis.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		d.OTPStore = otp.NewRedisStore(d.Redis)
	} else {
		d.OTPStore = otp.NewMemoryStore()
	}

	d.OTP = newAuthenticator(cfg, d.OTPStore, logger)
	d.Tokens = utils.NewJWTService(cfg.JWTSecret)
	d.Provider = auth.NewProvider(d.OTP, db, d.Tokens, cfg.SessionTTL, logger)
	d.Guard = guard.New(db)

	d.Hub = realtime.NewHub(logger)
	d.Events = d.Hub
	if d.Redis != nil {
		d.Broker = realtime.NewRedisBroker(d.Redis, d.Hub, logger)
		d.Events = d.Broker
	}
	return d, nil
}

func newAuthenticator(cfg *config.Config, store otp.Store, logger *zap.Logger) otp.Authenticator {
	if cfg.OTPMode == config.OTPModeDemo {
		logger.Warn("OTP demo mode enabled: fixed codes accepted")
		return otp.NewDemoService(cfg.ExposeOTP())
	}

	email := otp.Sender(otp.LogSender{Logger: logger, IncludeCode: cfg.ExposeOTP()})
	if cfg.SMTPHost != "" {
		email = otp.SMTPSender{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.SMTPFrom,
		}
	}
	// no SMS gateway is configured; phone codes go to the log
	sender := otp.ContactRouter{
		Email: email,
		Phone: otp.LogSender{Logger: logger, IncludeCode: cfg.ExposeOTP()},
	}
	return otp.NewService(store, sender, otp.Config{
		TTL:         cfg.OTPTTL,
		MaxAttempts: cfg.OTPMaxAttempts,
		ExposeCode:  cfg.ExposeOTP(),
	}, logger)
}

// StartBackground runs the expired-code sweep for an in-memory OTP store and
// the redis relay, both until ctx is done.
func (d *Deps) StartBackground(ctx context.Context) {
	if _, ok := d.OTPStore.(*otp.MemoryStore); ok {
		otp.StartSweeper(ctx, d.OTPStore, d.Config.OTPSweepInterval, time.Now, d.Logger)
	}
	if d.Broker != nil {
		go d.Broker.Run(ctx)
	}
}

// Close releases the redis client. The database stays cached in the pool.
func (d *Deps) Close() {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Warn("redis close failed", zap.Error(err))
		}
	}
}
