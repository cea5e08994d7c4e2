package app

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nourabuild/blog-account-service/internal/sdk/store"
	"github.com/nourabuild/blog-account-service/internal/services/sentry"
)

const (
	resetTokenLength = 32 // bytes, hex encoded to 64 characters
	resetTokenTTL    = time.Hour

	forgotPasswordMessage = "If an account with that email exists, a password reset link has been sent."
)

// HandleForgotPassword answers with the same message whether or not the
// account exists, and whether or not the email could be sent.
func (a *App) HandleForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		writeError(c, ErrUnmarshal, nil)
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		writeError(c, ErrMissingFields, map[string]string{"email": "email_required"})
		return
	}

	a.requestReset(c, email)

	c.JSON(http.StatusOK, MessageResponse{Success: true, Message: forgotPasswordMessage})
}

func (a *App) requestReset(c *gin.Context, email string) {
	ctx := c.Request.Context()

	if a.limiter != nil {
		allowed, err := a.limiter.Allow(ctx, strings.ToLower(email))
		if err != nil {
			// Fail open: a limiter outage must not lock users out of recovery.
			a.toSentry(c, "forgot_password", "rate_limit", sentry.LevelWarning, err)
		} else if !allowed {
			a.log.Warn("password reset throttled", "email", email)
			return
		}
	}

	user, err := a.db.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			a.toSentry(c, "forgot_password", "db", sentry.LevelError, err)
		}
		return
	}

	token, err := generateSecureToken(resetTokenLength)
	if err != nil {
		a.toSentry(c, "forgot_password", "token_generation", sentry.LevelError, err)
		return
	}

	expiresAt := a.now().Add(resetTokenTTL)
	if err := a.db.SetPasswordResetToken(ctx, user.ID, hashResetToken(token), expiresAt); err != nil {
		a.toSentry(c, "forgot_password", "db", sentry.LevelError, err)
		return
	}

	resetURL := a.cfg.ResetURLBase + "/" + token
	if err := a.email.SendPasswordReset(ctx, user.Email, user.FirstName, resetURL); err != nil {
		a.toSentry(c, "forgot_password", "email", sentry.LevelError, err)

		if err := a.db.ClearPasswordResetToken(ctx, user.ID); err != nil {
			a.toSentry(c, "forgot_password", "rollback", sentry.LevelError, err)
		}
	}
}

func (a *App) HandleResetPassword(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))

	var req ResetPasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		writeError(c, ErrUnmarshal, nil)
		return
	}

	if token == "" || req.Password == "" {
		writeError(c, ErrMissingFields, nil)
		return
	}

	if code := validatePassword(req.Password); code != "" {
		writeError(c, code, map[string]string{"password": code})
		return
	}

	hashedPassword, err := a.hash.HashPassword(req.Password)
	if err != nil {
		a.toSentry(c, "reset_password", "bcrypt", sentry.LevelError, err)
		writeError(c, ErrHashPassword, nil)
		return
	}

	// Match, expiry check, password write and token clear happen in one
	// conditional update, so a token cannot be spent twice.
	_, err = a.db.ConsumePasswordResetToken(c.Request.Context(), hashResetToken(token), hashedPassword, a.now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(c, ErrInvalidOrExpiredToken, nil)
			return
		}
		a.toSentry(c, "reset_password", "db", sentry.LevelError, err)
		writeError(c, ErrResetPassword, nil)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{
		Success: true,
		Message: "Password has been reset successfully. You can now login.",
	})
}

func generateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// hashResetToken is the form in which reset tokens are stored and looked up.
func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
