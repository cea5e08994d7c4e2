package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nourabuild/blog-account-service/internal/sdk/jwt"
	"github.com/nourabuild/blog-account-service/internal/sdk/middleware"
	"github.com/nourabuild/blog-account-service/internal/services/hash"
	"github.com/nourabuild/blog-account-service/internal/services/sentry"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const resetURLBase = "https://blog.test/reset-password"

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router *gin.Engine
	db     *memStore
	mail   *fakeMailer
	media  *fakeUploader
	tokens *jwt.TokenService
	now    time.Time
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		db:     newMemStore(),
		mail:   &fakeMailer{},
		media:  &fakeUploader{},
		tokens: jwt.NewTokenService("test-secret", "blog-test", 0),
		now:    time.Now(),
	}

	opts = append([]Option{WithClock(func() time.Time { return env.now })}, opts...)
	a := NewApp(
		Config{ResetURLBase: resetURLBase, AllowedOrigins: []string{"https://blog.test"}},
		env.db,
		hash.NewHashService(bcrypt.MinCost),
		env.tokens,
		env.mail,
		env.media,
		sentry.NewSentryService(sentry.Config{}, log),
		log,
		opts...,
	)
	env.router = a.RegisterRoutes()
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(t *testing.T, email, password string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/user/register", RegisterRequest{
		FirstName: "Ada", LastName: "Lovelace", Email: email, Password: password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (e *testEnv) login(t *testing.T, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, http.MethodPost, "/api/v1/user/login", LoginRequest{Email: email, Password: password})
}

// session returns a cookie authenticating as the given user ID.
func (e *testEnv) session(t *testing.T, userID string) *http.Cookie {
	t.Helper()
	token, _, err := e.tokens.GenerateSessionToken(context.Background(), userID)
	require.NoError(t, err)
	return &http.Cookie{Name: middleware.SessionCookie, Value: token}
}

func (e *testEnv) requestReset(t *testing.T, email string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/user/forgot-password", ForgotPasswordRequest{Email: email})
	require.Equal(t, http.StatusOK, rec.Code)

	m, ok := e.mail.last()
	require.True(t, ok, "expected a reset email")
	require.True(t, strings.HasPrefix(m.url, resetURLBase+"/"), m.url)
	return strings.TrimPrefix(m.url, resetURLBase+"/")
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			return c
		}
	}
	return nil
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}
