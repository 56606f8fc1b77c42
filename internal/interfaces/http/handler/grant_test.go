package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type grantPayload struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Email     string     `json:"email"`
	PlanTier  string     `json:"plan_tier"`
	Reason    string     `json:"reason"`
	GrantedBy string     `json:"granted_by"`
	GrantedAt time.Time  `json:"granted_at"`
	ExpiresAt *time.Time `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at"`
	Active    bool       `json:"active"`
}

func createGrant(t *testing.T, env *testEnv, body map[string]any) grantPayload {
	t.Helper()
	w := env.do(t, http.MethodPost, "/api/v1/admin/grants", env.token(t, env.admin), body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var payload grantPayload
	decodeData(t, w, &payload)
	return payload
}

func TestGrantHandler_Create(t *testing.T) {
	t.Run("creates a grant and records the granting admin", func(t *testing.T) {
		env := setupEnv(t)

		payload := createGrant(t, env, map[string]any{
			"user_id":   env.user.ID.String(),
			"email":     env.user.Email,
			"plan_tier": "pro",
			"reason":    "beta tester",
		})

		assert.Equal(t, env.user.ID, payload.UserID)
		assert.Equal(t, "pro", payload.PlanTier)
		assert.Equal(t, "beta tester", payload.Reason)
		assert.Equal(t, env.admin.Email, payload.GrantedBy)
		assert.True(t, payload.Active)
	})

	t.Run("granted plan governs quota evaluation", func(t *testing.T) {
		env := setupEnv(t)

		createGrant(t, env, map[string]any{
			"user_id":   env.user.ID.String(),
			"email":     env.user.Email,
			"plan_tier": "pro",
		})

		w := env.do(t, http.MethodPost, "/api/v1/quota/check", env.token(t, env.user),
			map[string]any{"resource": "content_generations"})
		require.Equal(t, http.StatusOK, w.Code)

		var payload quotaPayload
		decodeData(t, w, &payload)
		assert.Equal(t, int64(500), payload.Limit)
		assert.True(t, payload.GrantApplied)
	})

	t.Run("custom limits override the plan ceiling", func(t *testing.T) {
		env := setupEnv(t)

		createGrant(t, env, map[string]any{
			"user_id":   env.user.ID.String(),
			"email":     env.user.Email,
			"plan_tier": "starter",
			"custom_limits": map[string]any{
				"api_calls": 2500,
			},
		})

		w := env.do(t, http.MethodPost, "/api/v1/quota/check", env.token(t, env.user),
			map[string]any{"resource": "api_calls"})
		require.Equal(t, http.StatusOK, w.Code)

		var payload quotaPayload
		decodeData(t, w, &payload)
		assert.Equal(t, int64(2500), payload.Limit)
	})

	t.Run("rejects an unknown plan tier", func(t *testing.T) {
		env := setupEnv(t)

		w := env.do(t, http.MethodPost, "/api/v1/admin/grants", env.token(t, env.admin),
			map[string]any{
				"user_id":   env.user.ID.String(),
				"email":     env.user.Email,
				"plan_tier": "platinum",
			})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects a grant for an unknown user", func(t *testing.T) {
		env := setupEnv(t)

		w := env.do(t, http.MethodPost, "/api/v1/admin/grants", env.token(t, env.admin),
			map[string]any{
				"user_id":   uuid.New().String(),
				"email":     "ghost@example.com",
				"plan_tier": "pro",
			})

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("denies non-admin callers", func(t *testing.T) {
		env := setupEnv(t)

		w := env.do(t, http.MethodPost, "/api/v1/admin/grants", env.token(t, env.user),
			map[string]any{
				"user_id":   env.user.ID.String(),
				"email":     env.user.Email,
				"plan_tier": "pro",
			})

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestGrantHandler_Revoke(t *testing.T) {
	t.Run("revokes and quota falls back to the subscription plan", func(t *testing.T) {
		env := setupEnv(t)

		grant := createGrant(t, env, map[string]any{
			"user_id":   env.user.ID.String(),
			"email":     env.user.Email,
			"plan_tier": "pro",
		})

		w := env.do(t, http.MethodDelete, "/api/v1/admin/grants/"+grant.ID.String(),
			env.token(t, env.admin), nil)
		require.Equal(t, http.StatusOK, w.Code)

		var revoked grantPayload
		decodeData(t, w, &revoked)
		assert.False(t, revoked.Active)
		assert.NotNil(t, revoked.RevokedAt)

		w = env.do(t, http.MethodPost, "/api/v1/quota/check", env.token(t, env.user),
			map[string]any{"resource": "content_generations"})
		require.Equal(t, http.StatusOK, w.Code)

		var payload quotaPayload
		decodeData(t, w, &payload)
		assert.Equal(t, int64(10), payload.Limit)
		assert.False(t, payload.GrantApplied)
	})

	t.Run("revoking an unknown grant succeeds", func(t *testing.T) {
		env := setupEnv(t)

		w := env.do(t, http.MethodDelete, "/api/v1/admin/grants/"+uuid.New().String(),
			env.token(t, env.admin), nil)

		assert.Equal(t, http.StatusOK, w.Code)
		envelope := decodeEnvelope(t, w)
		assert.True(t, envelope.Success)
	})

	t.Run("revoking twice succeeds both times", func(t *testing.T) {
		env := setupEnv(t)

		grant := createGrant(t, env, map[string]any{
			"user_id":   env.user.ID.String(),
			"email":     env.user.Email,
			"plan_tier": "pro",
		})

		for i := 0; i < 2; i++ {
			w := env.do(t, http.MethodDelete, "/api/v1/admin/grants/"+grant.ID.String(),
				env.token(t, env.admin), nil)
			require.Equal(t, http.StatusOK, w.Code)

			var revoked grantPayload
			decodeData(t, w, &revoked)
			assert.False(t, revoked.Active)
			assert.NotNil(t, revoked.RevokedAt)
		}
	})
}

func TestGrantHandler_List(t *testing.T) {
	env := setupEnv(t)

	for i := 0; i < 3; i++ {
		createGrant(t, env, map[string]any{
			"user_id":   env.user.ID.String(),
			"email":     env.user.Email,
			"plan_tier": "starter",
		})
	}

	t.Run("returns a paginated list with totals", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/admin/grants?page=1&page_size=2",
			env.token(t, env.admin), nil)
		require.Equal(t, http.StatusOK, w.Code)

		envelope := decodeEnvelope(t, w)
		require.NotNil(t, envelope.Meta)
		assert.Equal(t, int64(3), envelope.Meta.Total)
		assert.Equal(t, 2, envelope.Meta.TotalPages)

		var grants []grantPayload
		require.NoError(t, json.Unmarshal(envelope.Data, &grants))
		assert.Len(t, grants, 2)
	})

	t.Run("lists grants for a single user", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/admin/users/"+env.user.ID.String()+"/grants",
			env.token(t, env.admin), nil)
		require.Equal(t, http.StatusOK, w.Code)

		var grants []grantPayload
		decodeData(t, w, &grants)
		assert.Len(t, grants, 3)
	})
}
