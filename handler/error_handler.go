package handler

import (
	"errors"
	"go-auth-api/common"
	"go-auth-api/service"
	"net/http"
)

func ErrorHandlingMiddleware(next func(http.ResponseWriter, *http.Request) *common.AppError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := next(w, r); err != nil {
			err.Send(w)
		}
	}
}

// serviceError maps a service error onto the client-facing status and message.
// Unrecognised errors become a generic 500 with the cause kept for logging.
func serviceError(err error) *common.AppError {
	switch {
	case errors.Is(err, service.ErrTokenExpired):
		return common.NewAppError(http.StatusUnauthorized, "Refresh token expired", err)
	case errors.Is(err, service.ErrTokenReused):
		return common.NewAppError(http.StatusUnauthorized, "Refresh token reuse detected", err)
	case errors.Is(err, service.ErrInvalidToken):
		return common.NewAppError(http.StatusUnauthorized, "Invalid refresh token", err)
	case errors.Is(err, service.ErrInvalidCredentials):
		return common.NewAppError(http.StatusUnauthorized, "Invalid email or password", nil)
	case errors.Is(err, service.ErrInvalidGoogleToken):
		return common.NewAppError(http.StatusUnauthorized, "Invalid Google token", err)
	case errors.Is(err, service.ErrEmailTaken):
		return common.NewAppError(http.StatusConflict, "Email already registered", nil)
	case errors.Is(err, service.ErrPermissionDenied):
		return common.NewAppError(http.StatusForbidden, "You do not have permission to access this resource", nil)
	case errors.Is(err, service.ErrUserNotFound):
		return common.NewAppError(http.StatusNotFound, "User not found", nil)
	case errors.Is(err, service.ErrInvalidRole):
		return common.NewAppError(http.StatusBadRequest, "Invalid role specified", nil)
	case errors.Is(err, service.ErrInvalidDateOfBirth):
		return common.NewAppError(http.StatusBadRequest, "Invalid date of birth", nil)
	case errors.Is(err, service.ErrWeakPassword):
		return common.NewAppError(http.StatusBadRequest, "Password must be 8 to 72 bytes long and contain upper and lower case letters, a digit and a special character", nil)
	case errors.Is(err, service.ErrGoogleNotConfigured):
		return common.NewAppError(http.StatusServiceUnavailable, "Google login is not configured", nil)
	default:
		return common.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}
}

// accessTokenError is serviceError for access tokens presented to
// introspection, which have their own wording.
func accessTokenError(err error) *common.AppError {
	switch {
	case errors.Is(err, service.ErrTokenExpired):
		return common.NewAppError(http.StatusUnauthorized, "Access token expired", nil)
	case errors.Is(err, service.ErrInvalidToken):
		return common.NewAppError(http.StatusUnauthorized, "Invalid access token", nil)
	case errors.Is(err, service.ErrUserNotFound):
		return common.NewAppError(http.StatusUnauthorized, "Invalid access token", nil)
	default:
		return serviceError(err)
	}
}
