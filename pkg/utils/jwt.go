package utils

import (
	"errors"
	"fmt"
	"time"

	"space-notes-backend/pkg/models"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenType 令牌有效但类型不符
var ErrTokenType = errors.New("unexpected token type")

// JWTService JWT服务
type JWTService struct {
	secretKey []byte
	now       func() time.Time
}

// NewJWTService 创建JWT服务
func NewJWTService(secretKey string) *JWTService {
	return &JWTService{
		secretKey: []byte(secretKey),
		now:       time.Now,
	}
}

// GenerateAccessToken 生成访问令牌
func (j *JWTService) GenerateAccessToken(claims models.TokenClaims, ttl time.Duration) (string, int64, error) {
	claims.Type = models.TokenTypeAccess
	return j.sign(claims, ttl)
}

// GenerateProfileToken 生成仅用于完成资料的短期令牌
func (j *JWTService) GenerateProfileToken(claims models.TokenClaims, ttl time.Duration) (string, int64, error) {
	claims.Type = models.TokenTypeProfile
	return j.sign(claims, ttl)
}

func (j *JWTService) sign(claims models.TokenClaims, ttl time.Duration) (string, int64, error) {
	now := j.now()
	claims.Iat = now.Unix()
	claims.Exp = now.Add(ttl).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	tokenString, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", 0, fmt.Errorf("failed to generate %s token: %w", claims.Type, err)
	}
	return tokenString, claims.Exp, nil
}

// ValidateToken 验证令牌; with no types given any token type is accepted
func (j *JWTService) ValidateToken(tokenString string, allowed ...string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 验证签名方法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	}, jwt.WithTimeFunc(j.now))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || claims.UserID == "" {
		return nil, fmt.Errorf("invalid token claims")
	}

	if len(allowed) == 0 {
		return claims, nil
	}
	for _, t := range allowed {
		if claims.Type == t {
			return claims, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrTokenType, claims.Type)
}
