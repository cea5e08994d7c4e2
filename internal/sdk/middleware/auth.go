package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nourabuild/blog-account-service/internal/sdk/jwt"
)

const (
	// SessionCookie is the cookie carrying the session token.
	SessionCookie = "token"

	// UserIDKey is the gin context key holding the authenticated user ID.
	UserIDKey = "user_id"

	bearerPrefix = "Bearer "
)

var ErrNoUserID = errors.New("no authenticated user in context")

// Authenticate verifies the session token from the cookie, or from an
// Authorization bearer header when no cookie is present, and stores the
// caller's user ID in the context.
func Authenticate(tokens *jwt.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c)
		if token == "" {
			abortUnauthorized(c, "Please log in to continue")
			return
		}

		claims, err := tokens.ParseSessionToken(c.Request.Context(), token)
		if err != nil {
			message := "Invalid session"
			if errors.Is(err, jwt.ErrExpiredToken) {
				message = "Session expired, please log in again"
			}
			abortUnauthorized(c, message)
			return
		}

		c.Set(UserIDKey, claims.Subject)
		c.Next()
	}
}

// GetUserID returns the user ID set by Authenticate.
func GetUserID(c *gin.Context) (string, error) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return "", ErrNoUserID
	}
	id, ok := v.(string)
	if !ok || id == "" {
		return "", ErrNoUserID
	}
	return id, nil
}

func sessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie
	}

	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	}
	return ""
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": message,
		"error":   "unauthorized",
	})
}
