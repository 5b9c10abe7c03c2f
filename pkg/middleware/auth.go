package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"space-notes-backend/pkg/models"
	"space-notes-backend/pkg/utils"

	"go.uber.org/zap"
)

// ContextKey namespaces values this package stores on the request context.
type ContextKey string

const (
	ClaimsContextKey ContextKey = "claims"
)

// ErrUnauthenticated is returned by RequireUser when no verified token is attached.
var ErrUnauthenticated = errors.New("user not authenticated")

// AuthMiddleware requires a bearer token of one of the given types. With
// queryToken set, ?token= is accepted too, since browsers cannot put headers
// on a websocket handshake.
func AuthMiddleware(tokens *utils.JWTService, logger *zap.Logger, queryToken bool, types ...string) func(http.Handler) http.Handler {
	if len(types) == 0 {
		types = []string{models.TokenTypeAccess}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok && queryToken {
				tokenString = r.URL.Query().Get("token")
				ok = tokenString != ""
			}
			if !ok {
				utils.WriteUnauthorizedResponse(w, "Missing authorization header")
				return
			}

			claims, err := tokens.ValidateToken(tokenString, types...)
			if err != nil {
				logger.Debug("token rejected", zap.String("path", r.URL.Path), zap.Error(err))
				if errors.Is(err, utils.ErrTokenType) {
					utils.WriteUnauthorizedResponse(w, "Invalid token type")
					return
				}
				utils.WriteUnauthorizedResponse(w, "Invalid or expired token")
				return
			}

			noteUser(r.Context(), claims.UserID)
			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader || tokenString == "" {
		return "", false
	}
	return tokenString, true
}

// WithClaims attaches verified claims to ctx.
func WithClaims(ctx context.Context, claims *models.TokenClaims) context.Context {
	return context.WithValue(ctx, ClaimsContextKey, claims)
}

// GetClaimsFromContext returns the verified token claims.
func GetClaimsFromContext(ctx context.Context) (*models.TokenClaims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*models.TokenClaims)
	return claims, ok && claims != nil
}

// GetUserFromContext returns the authenticated caller.
func GetUserFromContext(ctx context.Context) (*models.User, bool) {
	claims, ok := GetClaimsFromContext(ctx)
	if !ok {
		return nil, false
	}
	return &models.User{
		ID:          claims.UserID,
		Email:       claims.Email,
		Phone:       claims.Phone,
		DisplayName: claims.Name,
		Role:        claims.Role,
	}, true
}

// RequireUser is GetUserFromContext that fails with ErrUnauthenticated.
func RequireUser(ctx context.Context) (*models.User, error) {
	user, ok := GetUserFromContext(ctx)
	if !ok || user.ID == "" {
		return nil, ErrUnauthenticated
	}
	return user, nil
}
