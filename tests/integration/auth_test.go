//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	env := SetupTestEnv(t)

	t.Run("register", func(t *testing.T) {
		result := RegisterUser(t, env, "Alice", "alice@example.com", strongPassword)
		data := result["data"].(map[string]any)
		assert.NotEmpty(t, data["token"])

		user := data["user"].(map[string]any)
		assert.Equal(t, "Alice", user["name"])
		assert.Equal(t, "traveler", user["role"])
	})

	t.Run("weak password rejected by production policy", func(t *testing.T) {
		resp := DoRequest(t, env, "POST", "/api/v1/auth/register",
			map[string]string{"name": "Weak", "email": "weak@example.com", "password": "alllowercase"}, "")
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		result := ParseResponse(t, resp)
		assert.NotEmpty(t, result["errors"])
	})

	t.Run("duplicate email", func(t *testing.T) {
		resp := DoRequest(t, env, "POST", "/api/v1/auth/register",
			map[string]string{"name": "Alice Again", "email": "alice@example.com", "password": strongPassword}, "")
		resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("login", func(t *testing.T) {
		token := LoginUser(t, env, "alice@example.com", strongPassword)
		assert.NotEmpty(t, token)
	})
}

func TestLoginLockout(t *testing.T) {
	env := SetupTestEnv(t)

	RegisterUser(t, env, "Locked", "locked@example.com", strongPassword)

	attempt := func(password string) int {
		resp := DoRequest(t, env, "POST", "/api/v1/auth/login",
			map[string]string{"email": "locked@example.com", "password": password}, "")
		resp.Body.Close()
		return resp.StatusCode
	}

	// Production preset locks after 3 failures.
	assert.Equal(t, http.StatusUnauthorized, attempt("Wrong!Passw0rd"))
	assert.Equal(t, http.StatusUnauthorized, attempt("Wrong!Passw0rd"))
	assert.Equal(t, http.StatusTooManyRequests, attempt("Wrong!Passw0rd"))

	// The correct password is refused while the lock holds.
	assert.Equal(t, http.StatusTooManyRequests, attempt(strongPassword))
}

func TestHealthEndpoints(t *testing.T) {
	env := SetupTestEnv(t)

	t.Run("liveness", func(t *testing.T) {
		resp := DoRequest(t, env, "GET", "/health/live", nil, "")
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("readiness", func(t *testing.T) {
		resp := DoRequest(t, env, "GET", "/health/ready", nil, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		result := ParseResponse(t, resp)
		data := result["data"].(map[string]any)
		assert.Equal(t, "healthy", data["status"])
		assert.Equal(t, "healthy", data["database"])

		report := data["security"].(map[string]any)
		checks := report["checks"].(map[string]any)
		assert.Equal(t, true, checks["auditLogging"])
		assert.Equal(t, true, checks["rbac"])
	})

	t.Run("security headers", func(t *testing.T) {
		resp := DoRequest(t, env, "GET", "/health/live", nil, "")
		resp.Body.Close()
		assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
		assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
		assert.NotEmpty(t, resp.Header.Get("Strict-Transport-Security"))
	})
}
