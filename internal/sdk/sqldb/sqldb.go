// Package sqldb provides the PostgreSQL credential store.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/nourabuild/blog-account-service/internal/sdk/models"
	"github.com/nourabuild/blog-account-service/internal/sdk/store"
	"github.com/pressly/goose/v3"
)

// PostgreSQL error codes
// https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

const userColumns = `
	id,
	first_name,
	last_name,
	email,
	password,
	bio,
	occupation,
	photo_url,
	instagram,
	facebook,
	linkedin,
	github,
	reset_status,
	reset_token_hash,
	reset_expires_at,
	created_at,
	updated_at`

type service struct {
	db  *sql.DB
	log *slog.Logger
}

// New opens a pgx-backed connection pool for the given DSN.
func New(dsn string, log *slog.Logger) (store.Service, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return NewWithDB(db, log), nil
}

// NewWithDB wraps an existing *sql.DB.
func NewWithDB(db *sql.DB, log *slog.Logger) store.Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{db: db, log: log}
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("opening postgres: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Health checks the health of the database connection by pinging the database.
// It returns a map with keys indicating various health statistics.
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	if err := s.db.PingContext(ctx); err != nil {
		s.log.Error("db down", "driver", "postgres", "error", err)
		stats["status"] = "down"
		stats["error"] = "database unreachable"
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"

	dbStats := s.db.Stats()
	stats["open_connections"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)
	stats["wait_count"] = strconv.FormatInt(dbStats.WaitCount, 10)
	stats["wait_duration"] = dbStats.WaitDuration.String()

	if dbStats.OpenConnections > 20 {
		stats["message"] = "The database is experiencing heavy load."
	}

	if dbStats.WaitCount > 1000 {
		stats["message"] = "The database has a high number of wait events, indicating potential bottlenecks."
	}

	return stats
}

// Close closes the database connection.
func (s *service) Close() error {
	s.log.Info("disconnected from database", "driver", "postgres")
	return s.db.Close()
}

// ---------------------------------------------
// Users
// ---------------------------------------------

// CreateUser inserts a new user into the database
func (s *service) CreateUser(ctx context.Context, nu models.NewUser) (models.User, error) {
	query := `
		INSERT INTO users (id, first_name, last_name, email, password)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING` + userColumns

	user, err := scanUser(s.db.QueryRowContext(ctx, query,
		uuid.NewString(),
		nu.FirstName,
		nu.LastName,
		nu.Email,
		nu.Password,
	))
	if err != nil {
		if isPgError(err, uniqueViolation) {
			return models.User{}, store.ErrDuplicatedEntry
		}
		return models.User{}, fmt.Errorf("creating user: %w", err)
	}

	return user, nil
}

// GetUserByID retrieves a user by their ID
func (s *service) GetUserByID(ctx context.Context, userID string) (models.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(s.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if notFound(err) {
			return models.User{}, store.ErrNotFound
		}
		return models.User{}, fmt.Errorf("selecting user: %w", err)
	}

	return user, nil
}

// GetUserByEmail retrieves a user by their email address
func (s *service) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(s.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if notFound(err) {
			return models.User{}, store.ErrNotFound
		}
		return models.User{}, fmt.Errorf("selecting user by email: %w", err)
	}

	return user, nil
}

// ListUsers retrieves all users, newest first
func (s *service) ListUsers(ctx context.Context) ([]models.User, error) {
	query := `SELECT` + userColumns + ` FROM users ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}

	return users, nil
}

// UpdateUser applies the non-nil fields of update
func (s *service) UpdateUser(ctx context.Context, userID string, update models.UpdateUser) (models.User, error) {
	query := `
		UPDATE users SET
			first_name = COALESCE($2, first_name),
			last_name  = COALESCE($3, last_name),
			bio        = COALESCE($4, bio),
			occupation = COALESCE($5, occupation),
			photo_url  = COALESCE($6, photo_url),
			instagram  = COALESCE($7, instagram),
			facebook   = COALESCE($8, facebook),
			linkedin   = COALESCE($9, linkedin),
			github     = COALESCE($10, github),
			updated_at = NOW()
		WHERE id = $1
		RETURNING` + userColumns

	user, err := scanUser(s.db.QueryRowContext(ctx, query,
		userID,
		NullString(update.FirstName),
		NullString(update.LastName),
		NullString(update.Bio),
		NullString(update.Occupation),
		NullString(update.PhotoURL),
		NullString(update.Instagram),
		NullString(update.Facebook),
		NullString(update.LinkedIn),
		NullString(update.GitHub),
	))
	if err != nil {
		if notFound(err) {
			return models.User{}, store.ErrNotFound
		}
		return models.User{}, fmt.Errorf("updating user: %w", err)
	}

	return user, nil
}

// ---------------------------------------------
// Password reset
// ---------------------------------------------

// SetPasswordResetToken moves the user into the pending reset state
func (s *service) SetPasswordResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	state := models.PendingReset(tokenHash, expiresAt)
	if err := state.Validate(); err != nil {
		return err
	}

	const query = `
		UPDATE users SET
			reset_status     = $2,
			reset_token_hash = $3,
			reset_expires_at = $4,
			updated_at       = NOW()
		WHERE id = $1
	`

	res, err := s.db.ExecContext(ctx, query, userID, string(state.Status), state.TokenHash, state.ExpiresAt)
	if err != nil {
		if notFound(err) {
			return store.ErrNotFound
		}
		return fmt.Errorf("setting reset token: %w", err)
	}

	return requireAffected(res)
}

// ClearPasswordResetToken returns the user to the normal state
func (s *service) ClearPasswordResetToken(ctx context.Context, userID string) error {
	const query = `
		UPDATE users SET
			reset_status     = 'normal',
			reset_token_hash = NULL,
			reset_expires_at = NULL,
			updated_at       = NOW()
		WHERE id = $1
	`

	res, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		if notFound(err) {
			return store.ErrNotFound
		}
		return fmt.Errorf("clearing reset token: %w", err)
	}

	return requireAffected(res)
}

// ConsumePasswordResetToken replaces the password of the user holding a live
// token and clears the token in the same statement.
func (s *service) ConsumePasswordResetToken(ctx context.Context, tokenHash string, passwordHash []byte, now time.Time) (models.User, error) {
	query := `
		UPDATE users SET
			password         = $2,
			reset_status     = 'normal',
			reset_token_hash = NULL,
			reset_expires_at = NULL,
			updated_at       = NOW()
		WHERE reset_status = 'reset_pending'
		  AND reset_token_hash = $1
		  AND reset_expires_at > $3
		RETURNING` + userColumns

	user, err := scanUser(s.db.QueryRowContext(ctx, query, tokenHash, passwordHash, now))
	if err != nil {
		if notFound(err) {
			return models.User{}, store.ErrNotFound
		}
		return models.User{}, fmt.Errorf("consuming reset token: %w", err)
	}

	return user, nil
}

// ---------------------------------------------
// Account deletion
// ---------------------------------------------

// DeleteUserCascade deletes the user's posts and the user in one transaction
func (s *service) DeleteUserCascade(ctx context.Context, userID string) error {
	return WithTx(ctx, s.db, nil, func(ctx context.Context, tx DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE author_id = $1`, userID); err != nil {
			if notFound(err) {
				return store.ErrNotFound
			}
			return fmt.Errorf("deleting posts: %w", err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
		if err != nil {
			return fmt.Errorf("deleting user: %w", err)
		}

		return requireAffected(res)
	})
}

// ---------------------------------------------
// Helpers
// ---------------------------------------------

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (models.User, error) {
	var (
		user      models.User
		status    string
		tokenHash sql.NullString
		expiresAt sql.NullTime
	)

	err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.Password,
		&user.Bio,
		&user.Occupation,
		&user.PhotoURL,
		&user.Instagram,
		&user.Facebook,
		&user.LinkedIn,
		&user.GitHub,
		&status,
		&tokenHash,
		&expiresAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return models.User{}, err
	}

	user.Reset = models.ResetState{
		Status:    models.ResetStatus(status),
		TokenHash: tokenHash.String,
	}
	if expiresAt.Valid {
		user.Reset.ExpiresAt = expiresAt.Time
	}

	return user, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// notFound treats malformed ids like missing rows.
func notFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || isPgError(err, invalidTextRepresentation)
}

// isPgError checks if the error is a PostgreSQL error with the given code
func isPgError(err error, code string) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == code
	}
	return false
}

// NullString creates a sql.NullString from a string pointer.
func NullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
