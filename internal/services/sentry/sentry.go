package sentry

import (
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
)

type (
	Scope = sentry.Scope
	Level = sentry.Level
)

const (
	LevelWarning = sentry.LevelWarning
	LevelError   = sentry.LevelError
)

// Config selects the Sentry project. An empty DSN disables reporting.
type Config struct {
	DSN         string
	Environment string
}

// SentryService provides Sentry error tracking functionality
type SentryService struct {
	initialized bool
}

// NewSentryService creates and initializes a new Sentry service
func NewSentryService(cfg Config, log *slog.Logger) *SentryService {
	if cfg.DSN == "" {
		log.Info("SENTRY_DSN not set, Sentry disabled")
		return &SentryService{initialized: false}
	}

	environment := cfg.Environment
	if environment == "" {
		environment = "development"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      environment,
		TracesSampleRate: 1.0,
		EnableTracing:    true,
	})
	if err != nil {
		log.Error("Sentry initialization failed", "error", err)
		return &SentryService{initialized: false}
	}

	log.Info("Sentry initialized successfully", "environment", environment)
	return &SentryService{initialized: true}
}

// CaptureException captures an error and sends it to Sentry
func (s *SentryService) CaptureException(err error) {
	if !s.initialized {
		return
	}
	sentry.CaptureException(err)
}

// CaptureRecovered reports a value recovered from a panic.
func (s *SentryService) CaptureRecovered(v any) {
	if !s.initialized {
		return
	}
	sentry.CurrentHub().Recover(v)
}

// Flush waits for all events to be sent to Sentry
func (s *SentryService) Flush(timeout time.Duration) bool {
	if !s.initialized {
		return true
	}
	return sentry.Flush(timeout)
}

// Close flushes and closes the Sentry client
func (s *SentryService) Close() {
	s.Flush(2 * time.Second)
}

// WithScope executes a function with a new Sentry scope
func (s *SentryService) WithScope(fn func(scope *Scope)) {
	if !s.initialized {
		return
	}
	sentry.WithScope(fn)
}
