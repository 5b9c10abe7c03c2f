// Package auth turns a verified OTP into a persisted identity and a signed
// session token.
package auth

import (
	"context"
	"errors"
	"time"

	"space-notes-backend/pkg/contact"
	"space-notes-backend/pkg/database"
	"space-notes-backend/pkg/models"
	"space-notes-backend/pkg/otp"
	"space-notes-backend/pkg/utils"

	"go.uber.org/zap"
)

const (
	DefaultSessionTTL = 30 * 24 * time.Hour
	ProfileTokenTTL   = time.Hour
)

// Identity is an authenticated caller. ID is stable for the same person
// across sign-ins once their user row exists.
type Identity struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Name      string `json:"name,omitempty"`
	Username  string `json:"username,omitempty"`
	Role      string `json:"role"`
	IsNewUser bool   `json:"isNewUser"`
}

// Claims returns the token claims for this identity.
func (i *Identity) Claims() models.TokenClaims {
	return models.TokenClaims{UserID: i.ID, Email: i.Email, Phone: i.Phone, Name: i.Name, Role: i.Role}
}

// Result is the outcome of a verification attempt. Identity is nil on
// failure and Message explains why.
type Result struct {
	Identity *Identity
	Message  string
	IsDemo   bool
}

// Session is a signed token handed back to the client.
type Session struct {
	Token     string `json:"token"`
	TokenType string `json:"tokenType"`
	ExpiresAt int64  `json:"expiresAt"`
}

type Provider struct {
	otp        otp.Authenticator
	users      database.UserStore
	tokens     *utils.JWTService
	sessionTTL time.Duration
	logger     *zap.Logger
}

func NewProvider(authenticator otp.Authenticator, users database.UserStore, tokens *utils.JWTService, sessionTTL time.Duration, logger *zap.Logger) *Provider {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{otp: authenticator, users: users, tokens: tokens, sessionTTL: sessionTTL, logger: logger}
}

// Authorize returns the identity proven by (contact, code), or nil when the
// pair is missing, malformed or does not verify.
func (p *Provider) Authorize(ctx context.Context, rawContact, code string) (*Identity, error) {
	res, err := p.Verify(ctx, rawContact, code)
	if err != nil || res.Identity == nil {
		return nil, err
	}
	return res.Identity, nil
}

// Verify is Authorize with the failure reason kept for the caller.
func (p *Provider) Verify(ctx context.Context, rawContact, code string) (*Result, error) {
	if rawContact == "" || code == "" {
		return &Result{Message: "Contact and OTP are required"}, nil
	}
	if !otp.ValidCode(code) {
		return &Result{Message: otp.MsgInvalidFormat}, nil
	}

	verified, err := p.otp.Verify(ctx, rawContact, code)
	if err != nil {
		return nil, err
	}
	if !verified.Success || verified.Identity == nil {
		return &Result{Message: verified.Message, IsDemo: verified.IsDemo}, nil
	}

	c := contact.Validate(rawContact)
	ident, err := p.resolve(ctx, c, verified.Identity)
	if err != nil {
		return nil, err
	}
	return &Result{Identity: ident, Message: verified.Message, IsDemo: verified.IsDemo}, nil
}

// resolve maps a verified contact onto its persisted user.
func (p *Provider) resolve(ctx context.Context, c contact.Result, proven *otp.Identity) (*Identity, error) {
	user, err := p.lookup(ctx, c)
	if err == nil {
		return fromUser(user), nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	if demo, ok := otp.ResolveIdentity(c.Normalized); ok {
		return p.ensureDemoUser(ctx, demo)
	}

	return &Identity{
		ID:        proven.ID,
		Email:     proven.Email,
		Phone:     proven.Phone,
		Role:      models.UserRoleUser,
		IsNewUser: true,
	}, nil
}

func (p *Provider) lookup(ctx context.Context, c contact.Result) (*models.User, error) {
	if c.Kind == contact.KindPhone {
		return p.users.GetUserByPhone(ctx, c.Normalized)
	}
	return p.users.GetUserByEmail(ctx, c.Normalized)
}

// ensureDemoUser creates the reserved account on first sign-in.
func (p *Provider) ensureDemoUser(ctx context.Context, demo otp.DemoIdentity) (*Identity, error) {
	user := &models.User{
		ID:          demo.UserID,
		Email:       demo.Contact,
		DisplayName: demo.Name,
		Username:    demo.Username,
		AvatarType:  models.AvatarInitials,
		Role:        demo.Role,
	}
	err := p.users.CreateUser(ctx, user)
	if errors.Is(err, database.ErrConflict) {
		// a concurrent sign-in created it first
		existing, getErr := p.users.GetUserByID(ctx, demo.UserID)
		if getErr == nil {
			return fromUser(existing), nil
		}
		if !errors.Is(getErr, database.ErrNotFound) {
			return nil, getErr
		}
		// someone else holds the username; the account still has to exist
		p.logger.Warn("demo username already taken", zap.String("username", demo.Username))
		user.Username = ""
		err = p.users.CreateUser(ctx, user)
	}
	if err != nil {
		return nil, err
	}
	p.logger.Info("demo user created", zap.String("user_id", user.ID), zap.String("contact", demo.Contact))
	return fromUser(user), nil
}

func fromUser(u *models.User) *Identity {
	return &Identity{
		ID:       u.ID,
		Email:    u.Email,
		Phone:    u.Phone,
		Name:     u.DisplayName,
		Username: u.Username,
		Role:     u.Role,
	}
}

// IssueSession signs a token for ident: a full access token for known
// users, a short profile-completion token for new ones.
func (p *Provider) IssueSession(ident *Identity) (*Session, error) {
	if ident.IsNewUser {
		token, exp, err := p.tokens.GenerateProfileToken(ident.Claims(), ProfileTokenTTL)
		if err != nil {
			return nil, err
		}
		return &Session{Token: token, TokenType: models.TokenTypeProfile, ExpiresAt: exp}, nil
	}
	token, exp, err := p.tokens.GenerateAccessToken(ident.Claims(), p.sessionTTL)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, TokenType: models.TokenTypeAccess, ExpiresAt: exp}, nil
}

// SessionForUser issues an access token for a persisted user.
func (p *Provider) SessionForUser(u *models.User) (*Session, error) {
	return p.IssueSession(fromUser(u))
}
