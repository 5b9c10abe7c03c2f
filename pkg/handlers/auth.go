package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"space-notes-backend/pkg/auth"
	"space-notes-backend/pkg/config"
	"space-notes-backend/pkg/contact"
	"space-notes-backend/pkg/database"
	"space-notes-backend/pkg/middleware"
	"space-notes-backend/pkg/models"
	"space-notes-backend/pkg/otp"
	"space-notes-backend/pkg/utils"

	"go.uber.org/zap"
)

// AuthHandler serves the sign-in flow and the caller's profile.
type AuthHandler struct {
	config   *config.Config
	db       database.DatabaseInterface
	otp      otp.Authenticator
	provider *auth.Provider
	logger   *zap.Logger
}

func NewAuthHandler(cfg *config.Config, db database.DatabaseInterface, authenticator otp.Authenticator, provider *auth.Provider, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{config: cfg, db: db, otp: authenticator, provider: provider, logger: logger}
}

// verifyResponse is returned by verify-otp. User is set for known users,
// Contact for contacts that still need a profile.
type verifyResponse struct {
	Success   bool         `json:"success"`
	Message   string       `json:"message"`
	IsNewUser bool         `json:"isNewUser"`
	IsDemo    bool         `json:"isDemo,omitempty"`
	User      *models.User `json:"user,omitempty"`
	Contact   string       `json:"contact,omitempty"`
	*auth.Session
}

type profileResponse struct {
	User *models.User `json:"user"`
	*auth.Session
}

// POST /api/auth/send-otp
func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req models.SendOTPRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.otp.Send(r.Context(), req.Contact)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if !res.Success {
		utils.WriteBadRequestResponse(w, res.Message)
		return
	}
	utils.WriteSuccessResponse(w, res)
}

// POST /api/auth/verify-otp
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyOTPRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.provider.Verify(r.Context(), req.Contact, req.OTP)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if result.Identity == nil {
		utils.WriteBadRequestResponse(w, result.Message)
		return
	}

	ident := result.Identity
	session, err := h.provider.IssueSession(ident)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	resp := verifyResponse{
		Success:   true,
		Message:   result.Message,
		IsNewUser: ident.IsNewUser,
		IsDemo:    result.IsDemo,
		Session:   session,
	}
	if ident.IsNewUser {
		resp.Contact = contact.Normalize(req.Contact)
	} else {
		user, err := h.db.GetUserByID(r.Context(), ident.ID)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		resp.User = user
	}
	h.logger.Info("contact verified",
		zap.String("user_id", ident.ID),
		zap.Bool("new_user", ident.IsNewUser),
		zap.Bool("demo", result.IsDemo))
	utils.WriteSuccessResponse(w, resp)
}

// POST /api/auth/complete-profile
// A profile token creates the user under the id minted at verification; an
// access token updates the caller's existing profile.
func (h *AuthHandler) CompleteProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, h.logger, middleware.ErrUnauthenticated)
		return
	}
	var req models.CompleteProfileRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ctx := r.Context()
	existing, err := h.db.GetUserByID(ctx, claims.UserID)
	switch {
	case err == nil:
		user, err := h.updateProfile(ctx, existing, &req)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		h.writeProfile(w, r, http.StatusOK, user)
	case errors.Is(err, database.ErrNotFound) && claims.Type == models.TokenTypeProfile:
		user, err := h.createProfile(ctx, claims, &req)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		h.logger.Info("user registered", zap.String("user_id", user.ID))
		h.writeProfile(w, r, http.StatusCreated, user)
	case errors.Is(err, database.ErrNotFound):
		writeError(w, r, h.logger, notFound("User not found"))
	default:
		writeError(w, r, h.logger, err)
	}
}

func (h *AuthHandler) createProfile(ctx context.Context, claims *models.TokenClaims, req *models.CompleteProfileRequest) (*models.User, error) {
	if usernameReserved(req.Username, claims.UserID) {
		return nil, conflict("Username is already taken")
	}
	user := &models.User{
		ID:          claims.UserID,
		Email:       claims.Email,
		Phone:       claims.Phone,
		DisplayName: req.DisplayName,
		Username:    req.Username,
		AvatarType:  req.AvatarType,
		AvatarData:  req.AvatarData,
		Role:        models.UserRoleUser,
	}
	if err := h.db.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return nil, conflict("Username is already taken")
		}
		return nil, err
	}
	return user, nil
}

func (h *AuthHandler) updateProfile(ctx context.Context, user *models.User, req *models.CompleteProfileRequest) (*models.User, error) {
	if usernameReserved(req.Username, user.ID) {
		return nil, conflict("Username is already taken")
	}
	user.DisplayName = req.DisplayName
	user.Username = req.Username
	user.AvatarType = req.AvatarType
	user.AvatarData = req.AvatarData
	if err := h.db.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return nil, conflict("Username is already taken")
		}
		return nil, err
	}
	return user, nil
}

// usernameReserved reports whether username belongs to a demo account other
// than userID.
func usernameReserved(username, userID string) bool {
	demo, ok := otp.ReservedUsername(username)
	return ok && demo.UserID != userID
}

func (h *AuthHandler) writeProfile(w http.ResponseWriter, r *http.Request, status int, user *models.User) {
	session, err := h.provider.SessionForUser(user)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	utils.WriteJSONResponse(w, status, profileResponse{User: user, Session: session})
}

// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller, err := middleware.RequireUser(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	user, err := h.db.GetUserByID(r.Context(), caller.ID)
	if err != nil {
		writeError(w, r, h.logger, orNotFound(err, "User not found"))
		return
	}
	utils.WriteSuccessResponse(w, user)
}

// GET / and /api/health
func (h *AuthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := map[string]interface{}{
		"status":      "ok",
		"service":     "space-notes-backend",
		"environment": h.config.Environment,
		"database":    h.getDatabaseType(),
		"otpMode":     h.config.OTPMode,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}
	if err := h.db.HealthCheck(ctx); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		status["status"] = "degraded"
		utils.WriteJSONResponse(w, http.StatusServiceUnavailable, status)
		return
	}
	utils.WriteSuccessResponse(w, status)
}

func (h *AuthHandler) getDatabaseType() string {
	if _, ok := h.db.(*database.MemoryDatabase); ok {
		return "memory"
	}
	return "postgres"
}
