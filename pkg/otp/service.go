// Package otp issues and verifies one-time sign-in codes.
package otp

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"space-notes-backend/pkg/contact"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Caller-facing messages
const (
	MsgNoOTP           = "No OTP found. Please request a new one."
	MsgExpired         = "OTP has expired. Please request a new one."
	MsgTooManyAttempts = "Too many failed attempts. Please request a new OTP."
	MsgInvalidFormat   = "OTP must be a 6-digit code."
	MsgVerified        = "OTP verified successfully."
	MsgSent            = "Verification code sent."
	MsgDemoSent        = "Demo account detected. Use code " + DemoCode + " to sign in."
)

// SendResult is the outcome of Send. A false Success is a caller error,
// not a server fault.
type SendResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	DebugOTP string `json:"debugOTP,omitempty"`
	IsDemo   bool   `json:"isDemo"`
}

// VerifyResult is the outcome of Verify.
type VerifyResult struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message"`
	IsDemo   bool      `json:"isDemo"`
	Identity *Identity `json:"identity,omitempty"`
}

// Authenticator is implemented by the delivery-backed Service and by DemoService.
type Authenticator interface {
	Send(ctx context.Context, contact string) (*SendResult, error)
	Verify(ctx context.Context, contact, code string) (*VerifyResult, error)
}

// Config tunes a Service. Zero values fall back to the defaults.
type Config struct {
	TTL         time.Duration // default 10m
	MaxAttempts int           // default 3
	ExposeCode  bool          // return DebugOTP; never set in production
	Now         func() time.Time
}

// Service is the delivery-backed Authenticator.
type Service struct {
	store       Store
	sender      Sender
	logger      *zap.Logger
	ttl         time.Duration
	maxAttempts int
	exposeCode  bool
	now         func() time.Time
	newID       func() string
}

func NewService(store Store, sender Sender, cfg Config, logger *zap.Logger) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:       store,
		sender:      sender,
		logger:      logger,
		ttl:         cfg.TTL,
		maxAttempts: cfg.MaxAttempts,
		exposeCode:  cfg.ExposeCode,
		now:         cfg.Now,
		newID:       uuid.NewString,
	}
}

// Send issues a code for contact, replacing any code issued before.
func (s *Service) Send(ctx context.Context, raw string) (*SendResult, error) {
	c := contact.Validate(raw)
	if !c.Valid {
		return &SendResult{Success: false, Message: contact.InvalidMessage}, nil
	}

	_, isDemo := ResolveIdentity(c.Normalized)
	code := DemoCode
	if !isDemo {
		var err error
		if code, err = randomCode(); err != nil {
			return nil, err
		}
	}

	rec := &Record{Contact: c.Normalized, Code: code, ExpiresAt: s.now().Add(s.ttl)}
	if err := s.store.Set(ctx, rec); err != nil {
		return nil, err
	}

	res := &SendResult{Success: true, Message: MsgSent, IsDemo: isDemo}
	if isDemo {
		res.Message = MsgDemoSent
	} else if s.sender != nil {
		if err := s.sender.Send(ctx, c, code); err != nil {
			_ = s.store.Delete(ctx, c.Normalized)
			return nil, fmt.Errorf("deliver otp: %w", err)
		}
	}
	if s.exposeCode {
		res.DebugOTP = code
	}
	s.logger.Debug("otp issued", zap.String("contact", c.Normalized), zap.Bool("demo", isDemo))
	return res, nil
}

// Verify checks code against the live record for contact. Success consumes
// the record; mismatches count towards the attempt limit.
func (s *Service) Verify(ctx context.Context, raw, code string) (*VerifyResult, error) {
	c := contact.Validate(raw)
	if !c.Valid {
		return &VerifyResult{Success: false, Message: contact.InvalidMessage}, nil
	}

	if demo, ok := ResolveIdentity(c.Normalized); ok {
		if !ValidCode(code) {
			return &VerifyResult{Success: false, Message: MsgInvalidFormat, IsDemo: true}, nil
		}
		// leftover demo records are harmless
		if err := s.store.Delete(ctx, c.Normalized); err != nil {
			s.logger.Warn("demo otp cleanup failed", zap.String("contact", c.Normalized), zap.Error(err))
		}
		return &VerifyResult{Success: true, Message: MsgVerified, IsDemo: true, Identity: demo.Identity()}, nil
	}

	rec, err := s.store.Get(ctx, c.Normalized)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return &VerifyResult{Success: false, Message: MsgNoOTP}, nil
	}
	if rec.Expired(s.now()) {
		if err := s.store.Delete(ctx, c.Normalized); err != nil {
			return nil, err
		}
		return &VerifyResult{Success: false, Message: MsgExpired}, nil
	}
	if rec.Attempts >= s.maxAttempts {
		if err := s.store.Delete(ctx, c.Normalized); err != nil {
			return nil, err
		}
		return &VerifyResult{Success: false, Message: MsgTooManyAttempts}, nil
	}

	// count the guess before comparing so concurrent guesses cannot all
	// slip under the limit
	rec, err = s.store.IncrAttempts(ctx, c.Normalized)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return &VerifyResult{Success: false, Message: MsgNoOTP}, nil
	}
	if rec.Attempts > s.maxAttempts {
		if err := s.store.Delete(ctx, c.Normalized); err != nil {
			return nil, err
		}
		return &VerifyResult{Success: false, Message: MsgTooManyAttempts}, nil
	}

	if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) == 1 {
		if err := s.store.Delete(ctx, c.Normalized); err != nil {
			return nil, err
		}
		return &VerifyResult{Success: true, Message: MsgVerified, Identity: newIdentity(s.newID(), c)}, nil
	}
	return &VerifyResult{
		Success: false,
		Message: fmt.Sprintf("Invalid OTP. %d attempts remaining.", s.maxAttempts-rec.Attempts),
	}, nil
}

func newIdentity(id string, c contact.Result) *Identity {
	ident := &Identity{ID: id}
	if c.Kind == contact.KindEmail {
		ident.Email = c.Normalized
	} else {
		ident.Phone = c.Normalized
	}
	return ident
}
