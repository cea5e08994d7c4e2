package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/nourabuild/blog-account-service/internal/sdk/models"
	"github.com/nourabuild/blog-account-service/internal/sdk/store"
)

// memStore is an in-memory store.Service with the same conditional semantics
// as the database backends.
type memStore struct {
	mu    sync.Mutex
	seq   int
	users map[string]models.User
	posts map[string]models.Post

	// failures forces the named operation to return the error.
	failures map[string]error
}

var _ store.Service = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]models.User),
		posts:    make(map[string]models.Post),
		failures: make(map[string]error),
	}
}

func (s *memStore) fail(op string) error {
	return s.failures[op]
}

func (s *memStore) Health() map[string]string {
	if err := s.fail("Health"); err != nil {
		return map[string]string{"status": "down", "error": "database unreachable"}
	}
	return map[string]string{"status": "up", "message": "It's healthy"}
}

func (s *memStore) Close() error { return nil }

func (s *memStore) CreateUser(_ context.Context, nu models.NewUser) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("CreateUser"); err != nil {
		return models.User{}, err
	}
	for _, u := range s.users {
		if u.Email == nu.Email {
			return models.User{}, store.ErrDuplicatedEntry
		}
	}

	s.seq++
	now := time.Now().Add(time.Duration(s.seq) * time.Millisecond)
	u := models.User{
		ID:        fmt.Sprintf("user-%d", s.seq),
		FirstName: nu.FirstName,
		LastName:  nu.LastName,
		Email:     nu.Email,
		Password:  nu.Password,
		Reset:     models.NormalReset(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *memStore) GetUserByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("GetUserByID"); err != nil {
		return models.User{}, err
	}
	u, ok := s.users[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return u, nil
}

func (s *memStore) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("GetUserByEmail"); err != nil {
		return models.User{}, err
	}
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, store.ErrNotFound
}

func (s *memStore) ListUsers(context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("ListUsers"); err != nil {
		return nil, err
	}
	var out []models.User
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memStore) UpdateUser(_ context.Context, id string, upd models.UpdateUser) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("UpdateUser"); err != nil {
		return models.User{}, err
	}
	u, ok := s.users[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}

	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&u.FirstName, upd.FirstName)
	set(&u.LastName, upd.LastName)
	set(&u.Bio, upd.Bio)
	set(&u.Occupation, upd.Occupation)
	set(&u.PhotoURL, upd.PhotoURL)
	set(&u.Instagram, upd.Instagram)
	set(&u.Facebook, upd.Facebook)
	set(&u.LinkedIn, upd.LinkedIn)
	set(&u.GitHub, upd.GitHub)
	u.UpdatedAt = time.Now()

	s.users[id] = u
	return u, nil
}

func (s *memStore) SetPasswordResetToken(_ context.Context, id, tokenHash string, expiresAt time.Time) error {
	return s.setReset(id, models.PendingReset(tokenHash, expiresAt), "SetPasswordResetToken")
}

func (s *memStore) ClearPasswordResetToken(_ context.Context, id string) error {
	return s.setReset(id, models.NormalReset(), "ClearPasswordResetToken")
}

func (s *memStore) setReset(id string, state models.ResetState, op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail(op); err != nil {
		return err
	}
	if err := state.Validate(); err != nil {
		return err
	}
	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Reset = state
	s.users[id] = u
	return nil
}

func (s *memStore) ConsumePasswordResetToken(_ context.Context, tokenHash string, passwordHash []byte, now time.Time) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("ConsumePasswordResetToken"); err != nil {
		return models.User{}, err
	}
	for id, u := range s.users {
		if u.Reset.TokenHash == tokenHash && u.Reset.Pending(now) {
			u.Password = passwordHash
			u.Reset = models.NormalReset()
			u.UpdatedAt = now
			s.users[id] = u
			return u, nil
		}
	}
	return models.User{}, store.ErrNotFound
}

func (s *memStore) DeleteUserCascade(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("DeleteUserCascade"); err != nil {
		return err
	}
	if _, ok := s.users[id]; !ok {
		return store.ErrNotFound
	}
	for pid, p := range s.posts {
		if p.AuthorID == id {
			delete(s.posts, pid)
		}
	}
	delete(s.users, id)
	return nil
}

func (s *memStore) addPost(id, authorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[id] = models.Post{ID: id, AuthorID: authorID}
}

func (s *memStore) postsBy(authorID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.posts {
		if p.AuthorID == authorID {
			n++
		}
	}
	return n
}

func (s *memStore) user(t testing.TB, email string) models.User {
	t.Helper()
	u, err := s.GetUserByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("user %s: %v", email, err)
	}
	return u
}

type sentMail struct {
	to, name, url string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, toEmail, toName, resetURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: toEmail, name: toName, url: resetURL})
	return nil
}

func (m *fakeMailer) last() (sentMail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMail{}, false
	}
	return m.sent[len(m.sent)-1], true
}

type fakeUploader struct {
	calls int
	body  []byte
	url   string
	err   error
}

func (u *fakeUploader) UploadProfilePhoto(_ context.Context, userID string, r io.Reader) (string, error) {
	u.calls++
	if u.err != nil {
		return "", u.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	u.body = b
	if u.url != "" {
		return u.url, nil
	}
	return "https://cdn.blog.test/avatars/" + userID + "/photo.png", nil
}

type fakeLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (l *fakeLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.keys = append(l.keys, key)
	return l.allow, l.err
}

var errBoom = errors.New("boom")
