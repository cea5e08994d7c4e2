package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nourabuild/blog-account-service/internal/sdk/middleware"
	"github.com/nourabuild/blog-account-service/internal/services/sentry"
)

const (
	ErrUnmarshal             = "invalid_request_body"
	ErrMissingFields         = "missing_required_fields"
	ErrInvalidEmail          = "invalid_email"
	ErrPasswordTooShort      = "password_too_short"
	ErrPasswordTooLong       = "password_too_long"
	ErrFileTooLarge          = "file_too_large"
	ErrUserExists            = "user_already_exists"
	ErrInvalidCredentials    = "invalid_credentials"
	ErrUnauthorized          = "unauthorized"
	ErrUserNotFound          = "user_not_found"
	ErrInvalidOrExpiredToken = "invalid_or_expired_token"
	ErrUpstream              = "upstream_failure"
	ErrHashPassword          = "internal_hash_error"
	ErrCreateUser            = "internal_create_user_error"
	ErrProcessLogin          = "internal_login_error"
	ErrGenerateToken         = "internal_generate_token_error"
	ErrRetrieveUsers         = "internal_retrieve_users_error"
	ErrUpdateProfile         = "internal_update_profile_error"
	ErrResetPassword         = "internal_reset_password_error"
	ErrDeleteAccount         = "internal_delete_account_error"
	ErrInternal              = "internal_error"
)

var errorStatusMap = map[string]int{
	ErrUnmarshal:             http.StatusBadRequest,
	ErrMissingFields:         http.StatusBadRequest,
	ErrInvalidEmail:          http.StatusBadRequest,
	ErrPasswordTooShort:      http.StatusBadRequest,
	ErrPasswordTooLong:       http.StatusBadRequest,
	ErrFileTooLarge:          http.StatusBadRequest,
	ErrUserExists:            http.StatusBadRequest,
	ErrInvalidCredentials:    http.StatusBadRequest,
	ErrUnauthorized:          http.StatusUnauthorized,
	ErrUserNotFound:          http.StatusNotFound,
	ErrInvalidOrExpiredToken: http.StatusBadRequest,
	ErrUpstream:              http.StatusInternalServerError,
}

var errorMessages = map[string]string{
	ErrUnmarshal:             "Invalid request body",
	ErrMissingFields:         "All fields are required",
	ErrInvalidEmail:          "Invalid email",
	ErrPasswordTooShort:      "Password must be at least 6 characters",
	ErrPasswordTooLong:       "Password must be at most 72 bytes",
	ErrFileTooLarge:          "Profile photo must be 10 MB or smaller",
	ErrUserExists:            "Email already exists",
	ErrInvalidCredentials:    "Invalid email or password",
	ErrUnauthorized:          "Please log in to continue",
	ErrUserNotFound:          "User not found",
	ErrInvalidOrExpiredToken: "Invalid or expired token",
	ErrUpstream:              "Failed to upload profile photo",
	ErrCreateUser:            "Failed to register",
	ErrProcessLogin:          "Failed to login",
	ErrGenerateToken:         "Failed to login",
	ErrRetrieveUsers:         "Failed to fetch users",
	ErrUpdateProfile:         "Failed to update profile",
	ErrDeleteAccount:         "Failed to delete account",
}

func statusForError(code string) int {
	if status, ok := errorStatusMap[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func messageForError(code string) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return "Server error"
}

func writeError(c *gin.Context, code string, details map[string]string) {
	c.AbortWithStatusJSON(statusForError(code), ErrorResponse{
		Success: false,
		Message: messageForError(code),
		Error:   code,
		Details: details,
	})
}

// toSentry logs err and reports it with the handler and stage that failed.
func (a *App) toSentry(c *gin.Context, handler, errType string, level sentry.Level, err error) {
	reqID := middleware.GetRequestID(c)

	logFn := a.log.Error
	if level == sentry.LevelWarning {
		logFn = a.log.Warn
	}
	logFn("request failed", "handler", handler, "stage", errType, "request_id", reqID, "error", err)

	a.sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("handler", handler)
		scope.SetExtra("error_type", errType)
		scope.SetLevel(level)
		if reqID != "" {
			scope.SetTag("request_id", reqID)
		}
		a.sentry.CaptureException(err)
	})
}
