package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripforge/tripforge/internal/config"
	"github.com/tripforge/tripforge/internal/middleware"
	"github.com/tripforge/tripforge/internal/security"
	"github.com/tripforge/tripforge/internal/users"
)

type fakeRepo struct {
	byEmail map[string]*users.User
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byEmail: make(map[string]*users.User)}
}

func (f *fakeRepo) Create(_ context.Context, user *users.User) error {
	f.byEmail[user.Email] = user
	return nil
}

func (f *fakeRepo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	return f.byEmail[email], nil
}

func (f *fakeRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	_, ok := f.byEmail[email]
	return ok, nil
}

func newTestHandler(t *testing.T, overrides security.Overrides) (*Handler, *fakeRepo) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	sec := security.NewService(security.Deps{Redis: client, ConsoleOut: io.Discard})
	require.NoError(t, sec.Init(context.Background(), config.EnvTest, overrides))
	t.Cleanup(sec.Shutdown)

	repo := newFakeRepo()
	rec := middleware.NewRecorder(sec, io.Discard)
	return NewHandler(repo, NewTokenManager("test-secret"), sec, rec), repo
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestRegister_Success(t *testing.T) {
	h, repo := newTestHandler(t, security.Overrides{})

	w := postJSON(t, h.Register, "/api/v1/auth/register", map[string]string{
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "long-enough-pw",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"token"`)

	user := repo.byEmail["alice@example.com"]
	require.NotNil(t, user)
	assert.Equal(t, "Alice", user.Name)
	assert.Equal(t, "traveler", user.Role)
	assert.NotEqual(t, "long-enough-pw", user.PasswordHash)
}

func TestRegister_StripsMarkupFromName(t *testing.T) {
	h, repo := newTestHandler(t, security.Overrides{})

	w := postJSON(t, h.Register, "/api/v1/auth/register", map[string]string{
		"name":     "<script>alert(1)</script>Bob",
		"email":    "bob@example.com",
		"password": "long-enough-pw",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Bob", repo.byEmail["bob@example.com"].Name)
}

func TestRegister_PasswordPolicyFromSettings(t *testing.T) {
	h, _ := newTestHandler(t, security.Overrides{
		Settings: security.SettingOverrides{
			PasswordMinLength:      security.Int(12),
			RequireStrongPasswords: security.Bool(true),
		},
	})

	w := postJSON(t, h.Register, "/api/v1/auth/register", map[string]string{
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "weakpassword",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "password: must contain an uppercase letter")
	assert.Contains(t, body, "password: must contain a digit")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	h, _ := newTestHandler(t, security.Overrides{})

	first := postJSON(t, h.Register, "/api/v1/auth/register", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "long-enough-pw",
	})
	require.Equal(t, http.StatusCreated, first.Code)

	second := postJSON(t, h.Register, "/api/v1/auth/register", map[string]string{
		"name": "Other Alice", "email": "alice@example.com", "password": "long-enough-pw",
	})
	assert.Equal(t, http.StatusConflict, second.Code)
}

func TestLogin_SuccessAndWrongPassword(t *testing.T) {
	h, _ := newTestHandler(t, security.Overrides{})

	reg := postJSON(t, h.Register, "/api/v1/auth/register", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "long-enough-pw",
	})
	require.Equal(t, http.StatusCreated, reg.Code)

	ok := postJSON(t, h.Login, "/api/v1/auth/login", map[string]string{
		"email": "alice@example.com", "password": "long-enough-pw",
	})
	require.Equal(t, http.StatusOK, ok.Code)
	assert.Contains(t, ok.Body.String(), `"token"`)

	bad := postJSON(t, h.Login, "/api/v1/auth/login", map[string]string{
		"email": "alice@example.com", "password": "nope-nope-nope",
	})
	assert.Equal(t, http.StatusUnauthorized, bad.Code)
}

func TestLogin_LocksAfterRepeatedFailures(t *testing.T) {
	h, _ := newTestHandler(t, security.Overrides{
		Settings: security.SettingOverrides{
			MaxLoginAttempts: security.Int(3),
			LockoutDuration:  security.Duration(15 * time.Minute),
		},
	})

	reg := postJSON(t, h.Register, "/api/v1/auth/register", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "long-enough-pw",
	})
	require.Equal(t, http.StatusCreated, reg.Code)

	attempt := func() *httptest.ResponseRecorder {
		return postJSON(t, h.Login, "/api/v1/auth/login", map[string]string{
			"email": "alice@example.com", "password": "wrong-password",
		})
	}

	assert.Equal(t, http.StatusUnauthorized, attempt().Code)
	assert.Equal(t, http.StatusUnauthorized, attempt().Code)
	assert.Equal(t, http.StatusTooManyRequests, attempt().Code)

	// Even the correct password is refused while the lock holds.
	locked := postJSON(t, h.Login, "/api/v1/auth/login", map[string]string{
		"email": "alice@example.com", "password": "long-enough-pw",
	})
	assert.Equal(t, http.StatusTooManyRequests, locked.Code)
	assert.True(t, strings.Contains(locked.Body.String(), "locked"))
}

func TestLogin_UnknownEmailSameAsWrongPassword(t *testing.T) {
	h, _ := newTestHandler(t, security.Overrides{})

	w := postJSON(t, h.Login, "/api/v1/auth/login", map[string]string{
		"email": "ghost@example.com", "password": "whatever-pw",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid email or password")
}
