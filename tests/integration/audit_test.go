//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const strongPassword = "Str0ng!Passw0rd"

func TestAuditTrail(t *testing.T) {
	env := SetupTestEnv(t)

	RegisterUser(t, env, "Audit Admin", "audit-admin@example.com", strongPassword)
	PromoteToAdmin(t, env, "audit-admin@example.com")
	token := LoginUser(t, env, "audit-admin@example.com", strongPassword)

	var entryID string

	t.Run("login is recorded", func(t *testing.T) {
		resp := DoRequest(t, env, "GET", "/api/v1/audit?action=login", nil, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		result := ParseResponse(t, resp)
		entries := result["data"].([]any)
		require.NotEmpty(t, entries)

		entry := entries[0].(map[string]any)
		assert.Equal(t, "login", entry["action"])
		assert.Equal(t, "POST", entry["method"])
		assert.Equal(t, "/api/v1/auth/login", entry["endpoint"])
		assert.NotEmpty(t, entry["id"])
		assert.NotZero(t, entry["timestamp"])

		entryID = entry["id"].(string)
	})

	t.Run("get by id", func(t *testing.T) {
		resp := DoRequest(t, env, "GET", "/api/v1/audit/"+entryID, nil, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		result := ParseResponse(t, resp)
		entry := result["data"].(map[string]any)
		assert.Equal(t, entryID, entry["id"])
		assert.Equal(t, "login", entry["action"])
	})

	t.Run("get unknown id", func(t *testing.T) {
		resp := DoRequest(t, env, "GET", "/api/v1/audit/does-not-exist", nil, token)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("filter by user", func(t *testing.T) {
		resp := DoRequest(t, env, "GET", "/api/v1/audit?action=user_created", nil, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		result := ParseResponse(t, resp)
		entries := result["data"].([]any)
		require.NotEmpty(t, entries)
		for _, raw := range entries {
			assert.Equal(t, "user_created", raw.(map[string]any)["action"])
		}
	})

	t.Run("failed login is recorded", func(t *testing.T) {
		resp := DoRequest(t, env, "POST", "/api/v1/auth/login",
			map[string]string{"email": "audit-admin@example.com", "password": "Wrong!Passw0rd"}, "")
		resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		listResp := DoRequest(t, env, "GET", "/api/v1/audit?action=login_failed", nil, token)
		require.Equal(t, http.StatusOK, listResp.StatusCode)
		result := ParseResponse(t, listResp)
		assert.NotEmpty(t, result["data"].([]any))
	})

	t.Run("traveler cannot read the trail", func(t *testing.T) {
		RegisterUser(t, env, "Plain Traveler", "traveler@example.com", strongPassword)
		travelerToken := LoginUser(t, env, "traveler@example.com", strongPassword)

		resp := DoRequest(t, env, "GET", "/api/v1/audit", nil, travelerToken)
		resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("anonymous cannot read the trail", func(t *testing.T) {
		resp := DoRequest(t, env, "GET", "/api/v1/audit", nil, "")
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
