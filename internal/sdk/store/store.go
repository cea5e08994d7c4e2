// Package store defines the credential store contract shared by the
// MongoDB and PostgreSQL backends.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/nourabuild/blog-account-service/internal/sdk/models"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicatedEntry = errors.New("duplicated entry")
)

// Service represents a service that persists user accounts.
type Service interface {
	// Health returns a map of health status information.
	// The keys and values in the map are service-specific.
	Health() map[string]string

	// Close terminates the database connection.
	Close() error

	// User operations
	CreateUser(ctx context.Context, user models.NewUser) (models.User, error)
	GetUserByID(ctx context.Context, userID string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, userID string, update models.UpdateUser) (models.User, error)

	// Password reset operations
	SetPasswordResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	ClearPasswordResetToken(ctx context.Context, userID string) error
	ConsumePasswordResetToken(ctx context.Context, tokenHash string, passwordHash []byte, now time.Time) (models.User, error)

	// DeleteUserCascade removes every post authored by the user and then the
	// user itself.
	DeleteUserCascade(ctx context.Context, userID string) error
}
