package handlers

import (
	"errors"
	"net/http"

	"space-notes-backend/pkg/database"
	"space-notes-backend/pkg/guard"
	"space-notes-backend/pkg/middleware"
	"space-notes-backend/pkg/utils"

	"go.uber.org/zap"
)

// apiError is a failure whose status and message are safe to show.
type apiError struct {
	status  int
	message string
}

func (e *apiError) Error() string { return e.message }

func badRequest(msg string) error { return &apiError{status: http.StatusBadRequest, message: msg} }
func notFound(msg string) error   { return &apiError{status: http.StatusNotFound, message: msg} }
func conflict(msg string) error   { return &apiError{status: http.StatusConflict, message: msg} }

// writeError is the single place handler failures become responses.
// Anything unrecognised is logged and collapses to a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var ve *utils.ValidationError
	var ae *apiError
	var fe *guard.ForbiddenError

	switch {
	case errors.As(err, &ve):
		utils.WriteValidationErrorResponse(w, "Validation failed", ve.Fields)
	case errors.As(err, &ae):
		switch ae.status {
		case http.StatusBadRequest:
			utils.WriteBadRequestResponse(w, ae.message)
		case http.StatusNotFound:
			utils.WriteNotFoundResponse(w, ae.message)
		case http.StatusConflict:
			utils.WriteConflictResponse(w, ae.message)
		default:
			utils.WriteErrorResponse(w, ae.status, ae.message)
		}
	case errors.Is(err, middleware.ErrUnauthenticated):
		utils.WriteUnauthorizedResponse(w, "Authentication required")
	case errors.As(err, &fe):
		utils.WriteForbiddenResponse(w, fe.Message)
	case errors.Is(err, database.ErrNotFound):
		utils.WriteNotFoundResponse(w, "Resource not found")
	case errors.Is(err, database.ErrConflict):
		utils.WriteConflictResponse(w, "Resource already exists")
	default:
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		utils.WriteInternalServerErrorResponse(w, "Internal server error")
	}
}

// decode parses the JSON body into v and runs its validate tags.
func decode(r *http.Request, v interface{}) error {
	if err := utils.ParseJSONBody(r, v); err != nil {
		return badRequest("Invalid request body")
	}
	return utils.ValidateStruct(v)
}

// orNotFound swaps a store miss for a resource specific 404.
func orNotFound(err error, msg string) error {
	if errors.Is(err, database.ErrNotFound) {
		return notFound(msg)
	}
	return err
}
