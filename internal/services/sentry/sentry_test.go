package sentry

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestDisabledServiceIsNoop(t *testing.T) {
	s := NewSentryService(Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if s.initialized {
		t.Fatal("expected Sentry to be disabled without a DSN")
	}

	called := false
	s.WithScope(func(scope *Scope) { called = true })
	if called {
		t.Fatal("WithScope must not run when disabled")
	}

	s.CaptureException(errors.New("boom"))
	s.CaptureRecovered("panic")
	if !s.Flush(time.Millisecond) {
		t.Fatal("Flush must report success when disabled")
	}
	s.Close()
}
