package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User roles carried in session claims
const (
	UserRoleUser  = "user"
	UserRoleAdmin = "admin"
)

// Avatar kinds accepted on profile completion
const (
	AvatarEmoji    = "emoji"
	AvatarUpload   = "upload"
	AvatarInitials = "initials"
)

// User represents a user in the system
type User struct {
	ID          string    `json:"id" db:"id"`
	Email       string    `json:"email,omitempty" db:"email"`
	Phone       string    `json:"phone,omitempty" db:"phone"`
	DisplayName string    `json:"displayName" db:"display_name"`
	Username    string    `json:"username" db:"username"`
	AvatarType  string    `json:"avatarType,omitempty" db:"avatar_type"`
	AvatarData  string    `json:"avatarData,omitempty" db:"avatar_data"`
	Role        string    `json:"role" db:"role"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// Contact returns whichever identifier the user signed in with.
func (u *User) Contact() string {
	if u.Email != "" {
		return u.Email
	}
	return u.Phone
}

// SendOTPRequest is the body of POST /auth/send-otp
type SendOTPRequest struct {
	Contact string `json:"contact" validate:"required,max=320"`
}

// VerifyOTPRequest is the body of POST /auth/verify-otp
type VerifyOTPRequest struct {
	Contact string `json:"contact" validate:"required,max=320"`
	OTP     string `json:"otp" validate:"required,len=6,numeric"`
}

// CompleteProfileRequest is the body of POST /auth/complete-profile
type CompleteProfileRequest struct {
	DisplayName string `json:"displayName" validate:"required,min=1,max=50"`
	Username    string `json:"username" validate:"required,min=3,max=30,username"`
	AvatarType  string `json:"avatarType" validate:"required,oneof=emoji upload initials"`
	AvatarData  string `json:"avatarData" validate:"max=262144"`
}

// Token types
const (
	TokenTypeAccess  = "access"
	TokenTypeProfile = "profile" // contact verified, profile not yet completed
)

// TokenClaims represents the JWT token claims
type TokenClaims struct {
	UserID string `json:"id"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role,omitempty"`
	Type   string `json:"type"`
	Exp    int64  `json:"exp"`
	Iat    int64  `json:"iat"`
}

// GetExpirationTime implements jwt.Claims interface
func (c *TokenClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Exp, 0)), nil
}

// GetIssuedAt implements jwt.Claims interface
func (c *TokenClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Iat, 0)), nil
}

// GetNotBefore implements jwt.Claims interface
func (c *TokenClaims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

// GetIssuer implements jwt.Claims interface
func (c *TokenClaims) GetIssuer() (string, error) {
	return "", nil
}

// GetSubject implements jwt.Claims interface
func (c *TokenClaims) GetSubject() (string, error) {
	return c.UserID, nil
}

// GetAudience implements jwt.Claims interface
func (c *TokenClaims) GetAudience() (jwt.ClaimStrings, error) {
	return nil, nil
}
