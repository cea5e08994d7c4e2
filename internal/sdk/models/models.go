// Package models defines data models for the blog account service.
package models

import (
	"errors"
	"time"
)

// User represents a blog account.
type User struct {
	ID         string     `json:"id"`
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	Email      string     `json:"email"`
	Password   []byte     `json:"-"`
	Bio        string     `json:"bio"`
	Occupation string     `json:"occupation"`
	PhotoURL   string     `json:"photoUrl"`
	Instagram  string     `json:"instagram"`
	Facebook   string     `json:"facebook"`
	LinkedIn   string     `json:"linkedin"`
	GitHub     string     `json:"github"`
	Reset      ResetState `json:"-"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// NewUser holds the fields required to register an account.
// Password must already be hashed.
type NewUser struct {
	FirstName string
	LastName  string
	Email     string
	Password  []byte
}

// UpdateUser is a partial profile update. Nil fields are left untouched.
type UpdateUser struct {
	FirstName  *string
	LastName   *string
	Bio        *string
	Occupation *string
	PhotoURL   *string
	Instagram  *string
	Facebook   *string
	LinkedIn   *string
	GitHub     *string
}

// IsEmpty reports whether the update carries no fields.
func (u UpdateUser) IsEmpty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Bio == nil &&
		u.Occupation == nil && u.PhotoURL == nil && u.Instagram == nil &&
		u.Facebook == nil && u.LinkedIn == nil && u.GitHub == nil
}

// Post is the dependent content owned by a user. Only the author reference
// matters to this service.
type Post struct {
	ID       string `json:"id"`
	AuthorID string `json:"authorId"`
}

// =============================================================================
// Password reset state
// =============================================================================

// ResetStatus tags the password reset lifecycle of a user.
type ResetStatus string

const (
	ResetNormal  ResetStatus = "normal"
	ResetPending ResetStatus = "reset_pending"
)

var ErrInconsistentResetState = errors.New("inconsistent password reset state")

// ResetState replaces the pair of optional token/expiry fields with an explicit
// variant. TokenHash and ExpiresAt are set only while Status is ResetPending.
type ResetState struct {
	Status    ResetStatus
	TokenHash string
	ExpiresAt time.Time
}

// NormalReset returns the resting state.
func NormalReset() ResetState {
	return ResetState{Status: ResetNormal}
}

// PendingReset returns a pending state for the given token digest.
func PendingReset(tokenHash string, expiresAt time.Time) ResetState {
	return ResetState{Status: ResetPending, TokenHash: tokenHash, ExpiresAt: expiresAt}
}

// Validate checks that the fields agree with the status.
func (r ResetState) Validate() error {
	switch r.Status {
	case ResetNormal, "":
		if r.TokenHash != "" || !r.ExpiresAt.IsZero() {
			return ErrInconsistentResetState
		}
	case ResetPending:
		if r.TokenHash == "" || r.ExpiresAt.IsZero() {
			return ErrInconsistentResetState
		}
	default:
		return ErrInconsistentResetState
	}
	return nil
}

// Pending reports whether a reset is outstanding and not yet expired at now.
func (r ResetState) Pending(now time.Time) bool {
	return r.Status == ResetPending && now.Before(r.ExpiresAt)
}
