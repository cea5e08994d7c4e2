// Package jwt provides the session token service.
//
// A session token is a signed JWT carrying the user's ID as its subject and an
// absolute expiry. The server keeps no session table: a token stays valid until
// it expires, even after the client discards its cookie on logout.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// =============================================================================
// Errors
// =============================================================================

// Package-level errors so callers can check what went wrong:
// errors.Is(err, jwt.ErrExpiredToken)
var (
	ErrInvalidToken     = errors.New("jwt: invalid token")
	ErrExpiredToken     = errors.New("jwt: token has expired")
	ErrTokenNotFound    = errors.New("jwt: token not found")
	ErrInvalidClaims    = errors.New("jwt: invalid claims")
	ErrTokenNotYetValid = errors.New("jwt: token not yet valid")
	ErrMissingSecret    = errors.New("jwt: signing secret is empty")
)

// DefaultSessionTTL is how long a session token stays valid.
const DefaultSessionTTL = 24 * time.Hour

// =============================================================================
// Token Service
// =============================================================================

// TokenService creates and validates session tokens.
// Create one instance and reuse it throughout your application.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	parser *jwt.Parser
	now    func() time.Time
}

// NewTokenService creates a new TokenService.
//
// A zero ttl falls back to DefaultSessionTTL and an empty issuer to "app".
//
// Example:
//
//	tokens := jwt.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, 0)
//	token, expiresAt, err := tokens.GenerateSessionToken(ctx, user.ID)
func NewTokenService(secret, issuer string, ttl time.Duration) *TokenService {
	if issuer == "" {
		issuer = "app"
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	parser := jwt.NewParser(
		// Only accept HS256 algorithm - prevents "algorithm confusion" attacks
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),

		// Reject tokens without an expiration time
		jwt.WithExpirationRequired(),

		// Enforce strict base64 encoding
		jwt.WithStrictDecoding(),

		jwt.WithIssuer(issuer),
	)

	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		parser: parser,
		now:    time.Now,
	}
}

// TTL returns the session lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// =============================================================================
// Public Methods
// =============================================================================

// GenerateSessionToken signs a token for userID that expires after the
// configured TTL. Call this after a user successfully logs in.
func (s *TokenService) GenerateSessionToken(ctx context.Context, userID string) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("creating session token: %w", ErrMissingSecret)
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		NotBefore: jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("creating session token: %w", err)
	}

	return token, expiresAt, nil
}

// ParseSessionToken validates a token and returns its claims.
//
// Call this in your authentication middleware to verify requests.
//
// Example:
//
//	claims, err := tokens.ParseSessionToken(ctx, cookieValue)
//	if err != nil {
//	    c.AbortWithStatus(http.StatusUnauthorized)
//	    return
//	}
//	userID := claims.Subject
func (s *TokenService) ParseSessionToken(ctx context.Context, tokenString string) (*jwt.RegisteredClaims, error) {
	if tokenString == "" {
		return nil, ErrTokenNotFound
	}

	claims := &jwt.RegisteredClaims{}

	token, err := s.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, convertError(err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidClaims)
	}

	return claims, nil
}

// GetSubjectFromToken extracts the user ID from a token.
func (s *TokenService) GetSubjectFromToken(ctx context.Context, tokenString string) (string, error) {
	claims, err := s.ParseSessionToken(ctx, tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// =============================================================================
// Private Methods
// =============================================================================

// convertError transforms jwt library errors into our custom errors.
func convertError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpiredToken, err)
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return fmt.Errorf("%w: %v", ErrTokenNotYetValid, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: token is malformed", ErrInvalidToken)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: signature is invalid", ErrInvalidToken)
	case errors.Is(err, jwt.ErrTokenInvalidClaims):
		return fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	default:
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
}
