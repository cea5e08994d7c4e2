package app

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/nourabuild/blog-account-service/internal/sdk/jwt"
	"github.com/nourabuild/blog-account-service/internal/sdk/store"
	"github.com/nourabuild/blog-account-service/internal/services/hash"
	"github.com/nourabuild/blog-account-service/internal/services/sentry"
)

// Mailer delivers password reset links.
type Mailer interface {
	SendPasswordReset(ctx context.Context, toEmail, toName, resetURL string) error
}

// MediaUploader stores a profile photo and returns its public URL.
type MediaUploader interface {
	UploadProfilePhoto(ctx context.Context, userID string, reader io.Reader) (string, error)
}

// ResetLimiter throttles password reset requests per email.
type ResetLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type Config struct {
	// ResetURLBase is the frontend page that accepts a reset token as its
	// last path segment.
	ResetURLBase   string
	AllowedOrigins []string
}

type App struct {
	cfg     Config
	db      store.Service
	hash    *hash.HashService
	jwt     *jwt.TokenService
	email   Mailer
	media   MediaUploader
	limiter ResetLimiter
	sentry  *sentry.SentryService
	log     *slog.Logger
	now     func() time.Time
}

type Option func(*App)

// WithResetLimiter enables throttling of forgot-password requests.
func WithResetLimiter(l ResetLimiter) Option {
	return func(a *App) { a.limiter = l }
}

// WithClock overrides the time source used for reset token expiry.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

func NewApp(
	cfg Config,
	db store.Service,
	hash *hash.HashService,
	jwt *jwt.TokenService,
	email Mailer,
	media MediaUploader,
	sentry *sentry.SentryService,
	log *slog.Logger,
	opts ...Option,
) *App {
	a := &App{
		cfg:    cfg,
		db:     db,
		hash:   hash,
		jwt:    jwt,
		email:  email,
		media:  media,
		sentry: sentry,
		log:    log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}
