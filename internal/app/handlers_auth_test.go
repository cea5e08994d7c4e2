package app

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHandleRegister(t *testing.T) {
	env := newTestEnv(t)

	env.register(t, "  ada@example.com ", "secret1")

	u := env.db.user(t, "ada@example.com")
	assert.Equal(t, "Ada", u.FirstName)
	assert.NotEqual(t, []byte("secret1"), u.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword(u.Password, []byte("secret1")))
}

func TestHandleRegister_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  RegisterRequest
		want string
	}{
		{"missing first name", RegisterRequest{FirstName: "  ", LastName: "L", Email: "a@x.com", Password: "secret1"}, ErrMissingFields},
		{"missing password", RegisterRequest{FirstName: "A", LastName: "L", Email: "a@x.com"}, ErrMissingFields},
		{"bad email", RegisterRequest{FirstName: "A", LastName: "L", Email: "a@x", Password: "secret1"}, ErrInvalidEmail},
		{"short password", RegisterRequest{FirstName: "A", LastName: "L", Email: "a@x.com", Password: "12345"}, ErrPasswordTooShort},
		{"long password", RegisterRequest{FirstName: "A", LastName: "L", Email: "a@x.com", Password: strings.Repeat("p", 80)}, ErrPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			rec := env.do(t, http.MethodPost, "/api/v1/user/register", tt.req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeError(t, rec)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.want, resp.Error)

			users, _ := env.db.ListUsers(context.Background())
			assert.Empty(t, users)
		})
	}
}

func TestHandleRegister_LongestAcceptedPassword(t *testing.T) {
	env := newTestEnv(t)
	password := strings.Repeat("p", maxPasswordBytes)

	env.register(t, "a@x.com", password)

	assert.Equal(t, http.StatusOK, env.login(t, "a@x.com", password).Code)
}

func TestHandleRegister_MalformedBody(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/v1/user/register", "not an object")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrUnmarshal, decodeError(t, rec).Error)
}

func TestHandleRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a@x.com", "secret1")

	rec := env.do(t, http.MethodPost, "/api/v1/user/register", RegisterRequest{
		FirstName: "Other", LastName: "Person", Email: "a@x.com", Password: "different",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, ErrUserExists, resp.Error)
	assert.Equal(t, "Email already exists", resp.Message)
}

func TestHandleRegister_StoreFailure(t *testing.T) {
	env := newTestEnv(t)
	env.db.failures["CreateUser"] = errBoom

	rec := env.do(t, http.MethodPost, "/api/v1/user/register", RegisterRequest{
		FirstName: "A", LastName: "L", Email: "a@x.com", Password: "secret1",
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, ErrCreateUser, resp.Error)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestHandleLogin(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a@x.com", "secret1")
	u := env.db.user(t, "a@x.com")

	rec := env.login(t, "a@x.com", "secret1")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Welcome back Ada", body["message"])
	user := body["user"].(map[string]any)
	assert.Equal(t, u.ID, user["id"])
	assert.NotContains(t, user, "password")

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteNoneMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, 86400, cookie.MaxAge)

	sub, err := env.tokens.GetSubjectFromToken(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, u.ID, sub)
}

func TestHandleLogin_FailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a@x.com", "secret1")

	wrongPassword := env.login(t, "a@x.com", "nope-nope")
	unknownEmail := env.login(t, "ghost@x.com", "secret1")

	assert.Equal(t, http.StatusBadRequest, wrongPassword.Code)
	assert.Equal(t, wrongPassword.Code, unknownEmail.Code)
	assert.JSONEq(t, wrongPassword.Body.String(), unknownEmail.Body.String())
	assert.Nil(t, sessionCookie(wrongPassword))
}

func TestHandleLogin_MissingFields(t *testing.T) {
	env := newTestEnv(t)

	rec := env.login(t, "", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, ErrMissingFields, resp.Error)
	assert.Contains(t, resp.Details, "email")
	assert.Contains(t, resp.Details, "password")
}

func TestHandleLogout(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/user/logout", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Less(t, cookie.MaxAge, 0)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteNoneMode, cookie.SameSite)
}
