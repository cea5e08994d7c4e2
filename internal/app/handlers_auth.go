package app

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nourabuild/blog-account-service/internal/sdk/middleware"
	"github.com/nourabuild/blog-account-service/internal/sdk/models"
	"github.com/nourabuild/blog-account-service/internal/sdk/store"
	"github.com/nourabuild/blog-account-service/internal/services/sentry"
)

func (a *App) HandleRegister(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		writeError(c, ErrUnmarshal, nil)
		return
	}

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.TrimSpace(req.Email)

	if errCode, validationErrors := validateRegisterInput(req); errCode != "" {
		writeError(c, errCode, validationErrors)
		return
	}

	hashedPassword, err := a.hash.HashPassword(req.Password)
	if err != nil {
		a.toSentry(c, "register", "bcrypt", sentry.LevelError, err)
		writeError(c, ErrHashPassword, nil)
		return
	}

	_, err = a.db.CreateUser(c.Request.Context(), models.NewUser{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  hashedPassword,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicatedEntry) {
			writeError(c, ErrUserExists, nil)
			return
		}
		a.toSentry(c, "register", "db", sentry.LevelError, err)
		writeError(c, ErrCreateUser, nil)
		return
	}

	c.JSON(http.StatusCreated, MessageResponse{Success: true, Message: "Account Created Successfully"})
}

func (a *App) HandleLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		writeError(c, ErrUnmarshal, nil)
		return
	}

	req.Email = strings.TrimSpace(req.Email)

	if validationErrors := validateLoginInput(req); len(validationErrors) > 0 {
		writeError(c, ErrMissingFields, validationErrors)
		return
	}

	user, err := a.db.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Spend the same bcrypt work as a wrong password.
			a.hash.CheckPasswordHash(req.Password, nil)
			writeError(c, ErrInvalidCredentials, nil)
			return
		}
		a.toSentry(c, "login", "db", sentry.LevelError, err)
		writeError(c, ErrProcessLogin, nil)
		return
	}

	// Unknown email and wrong password must be indistinguishable.
	if !a.hash.CheckPasswordHash(req.Password, user.Password) {
		writeError(c, ErrInvalidCredentials, nil)
		return
	}

	token, _, err := a.jwt.GenerateSessionToken(c.Request.Context(), user.ID)
	if err != nil {
		a.toSentry(c, "login", "jwt", sentry.LevelError, err)
		writeError(c, ErrGenerateToken, nil)
		return
	}

	a.setSessionCookie(c, token)
	c.JSON(http.StatusOK, UserResponse{
		Success: true,
		Message: "Welcome back " + user.FirstName,
		User:    user,
	})
}

func (a *App) HandleLogout(c *gin.Context) {
	clearSessionCookie(c)
	c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "Logged out successfully."})
}

func (a *App) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(middleware.SessionCookie, token, int(a.jwt.TTL().Seconds()), "/", "", true, true)
}

// clearSessionCookie expires the cookie using the attributes it was set with.
func clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", true, true)
}
