package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"invostock/internal/platform/config"
	"invostock/internal/platform/tenant"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{})
	defer rl.Stop()

	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("U1:api_write", 3))
	}
	assert.False(t, rl.Allow("U1:api_write", 3))
	assert.True(t, rl.Allow("U2:api_write", 3), "buckets are per key")

	now = now.Add(20 * time.Second)
	assert.True(t, rl.Allow("U1:api_write", 3), "one token refilled after 20s")
	assert.False(t, rl.Allow("U1:api_write", 3))

	assert.True(t, rl.Allow("U1:api_read", 0), "zero limit disables throttling")
}

func TestRateLimiter_Limit(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{APIReadPerMinute: 2, APIWritePerMinute: 1})
	defer rl.Stop()

	handler := rl.Limit(LimitRead)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	call := func(scope *tenant.Scope) int {
		req := httptest.NewRequest(http.MethodGet, "/api/invoices", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		if scope != nil {
			req = req.WithContext(tenant.NewContext(req.Context(), *scope))
		}
		rr := httptest.NewRecorder()
		handler(rr, req)
		return rr.Code
	}

	org := tenant.Organization(1, 5, tenant.OrgRoleMember)
	colleague := tenant.Organization(2, 5, tenant.OrgRoleAdmin)

	assert.Equal(t, http.StatusOK, call(&org))
	assert.Equal(t, http.StatusOK, call(&colleague))
	assert.Equal(t, http.StatusTooManyRequests, call(&org), "members of one organization share a bucket")

	assert.Equal(t, http.StatusOK, call(nil))
	assert.Equal(t, http.StatusOK, call(nil))
	assert.Equal(t, http.StatusTooManyRequests, call(nil))
}
