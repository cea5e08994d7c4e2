package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nourabuild/blog-account-service/internal/app"
	"github.com/nourabuild/blog-account-service/internal/config"
	"github.com/nourabuild/blog-account-service/internal/sdk/jwt"
	"github.com/nourabuild/blog-account-service/internal/sdk/mongodb"
	"github.com/nourabuild/blog-account-service/internal/sdk/sqldb"
	"github.com/nourabuild/blog-account-service/internal/sdk/store"
	"github.com/nourabuild/blog-account-service/internal/services/hash"
	"github.com/nourabuild/blog-account-service/internal/services/mailtrap"
	"github.com/nourabuild/blog-account-service/internal/services/minio"
	"github.com/nourabuild/blog-account-service/internal/services/ratelimit"
	"github.com/nourabuild/blog-account-service/internal/services/sentry"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application failed: %v", err)
	}
}

func run() error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	logger.Info("GOMAXPROCS", "cpu", runtime.GOMAXPROCS(0))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// 1. Initialize Database
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbService, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer dbService.Close()

	// 2. Initialize Services
	sentryService := sentry.NewSentryService(cfg.Sentry, logger)
	defer sentryService.Close()

	hashService := hash.NewHashService(cfg.BcryptCost)
	jwtService := jwt.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, jwt.DefaultSessionTTL)
	mailtrapService := mailtrap.NewMailtrapService(cfg.Mailtrap)

	minioService, err := minio.NewMinioService(cfg.Minio)
	if err != nil {
		return err
	}
	if err := minioService.EnsureBucket(ctx); err != nil {
		// Photo uploads fail until storage is reachable; the rest of the API works.
		logger.Warn("object storage unavailable", "bucket", cfg.Minio.Bucket, "error", err)
	}

	var opts []app.Option
	if cfg.RedisURL != "" {
		limiter, err := ratelimit.NewFromURL(cfg.RedisURL, cfg.RateLimit)
		if err != nil {
			return err
		}
		defer limiter.Close()

		if err := limiter.Ping(ctx); err != nil {
			logger.Warn("reset rate limiter unavailable", "error", err)
		}
		opts = append(opts, app.WithResetLimiter(limiter))
	} else {
		logger.Info("REDIS_URL not set, password reset throttling disabled")
	}

	// 3. Initialize App
	application := app.NewApp(
		app.Config{ResetURLBase: cfg.ResetURLBase, AllowedOrigins: cfg.AllowedOrigins},
		dbService,
		hashService,
		jwtService,
		mailtrapService,
		minioService,
		sentryService,
		logger,
		opts...,
	)

	// 4. Configure Server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      application.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// 5. Graceful Shutdown Logic
	done := make(chan bool, 1)
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down gracefully, press Ctrl+C again to force")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server forced to shutdown", "error", err)
		}
		done <- true
	}()

	// 6. Start Server
	logger.Info("Starting server", "port", srv.Addr, "db_driver", cfg.DBDriver)
	err = srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	<-done
	logger.Info("Graceful shutdown complete")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Service, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		if err := sqldb.Migrate(ctx, cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		return sqldb.New(cfg.DatabaseURL, logger)
	default:
		return mongodb.New(ctx, cfg.Mongo, logger)
	}
}
