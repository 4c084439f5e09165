package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/franchise-backend/internal/auth"
	"github.com/baharkarakas/franchise-backend/internal/logger"
	"github.com/baharkarakas/franchise-backend/internal/models"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
}

func TestRecover(t *testing.T) {
	h := Recover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal_error")
}

func TestRateLimit_PerIP(t *testing.T) {
	h := RateLimit(1, 2)(ok)
	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusNoContent, hit("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, hit("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, hit("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, hit("10.0.0.2"), "other clients keep their own bucket")
}

func TestRateLimit_FractionalRateWithoutBurst(t *testing.T) {
	h := RateLimit(0.5, 0)(ok)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:5000"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code, "first request fits a burst of one")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestIPLimiter_ForgetsIdleVisitors(t *testing.T) {
	l := newIPLimiter(1, 1)
	now := time.Now()
	l.now = func() time.Time { return now }
	l.allow("a")
	require.Len(t, l.visitors, 1)

	now = now.Add(2 * limiterIdleTTL)
	l.allow("b")
	assert.Len(t, l.visitors, 1)
	assert.Contains(t, l.visitors, "b")
}

func TestAuthAndRoles(t *testing.T) {
	tm := auth.NewTokenManager("a", "r", "test", time.Minute, time.Hour)
	pair, err := tm.GeneratePair(models.Actor{UserID: "u1", Role: models.RoleTrainer, FranchiseID: "f1"})
	require.NoError(t, err)

	var got models.Actor
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = ActorFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	am := NewAuthMiddleware(tm)
	call := func(h http.Handler, header, target string) int {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, call(am.Auth(inner), "", "/"))
	assert.Equal(t, http.StatusUnauthorized, call(am.Auth(inner), "Bearer "+pair.RefreshToken, "/"))
	assert.Equal(t, http.StatusNoContent, call(am.Auth(inner), "Bearer "+pair.AccessToken, "/"))
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "f1", got.FranchiseID)
	assert.Equal(t, http.StatusNoContent, call(am.Auth(inner), "", "/?access_token="+pair.AccessToken))

	trainersOnly := am.Auth(RequireRole(models.RoleTrainer, models.RoleOwner)(inner))
	ownersOnly := am.Auth(RequireRole(models.RoleOwner)(inner))
	assert.Equal(t, http.StatusNoContent, call(trainersOnly, "Bearer "+pair.AccessToken, "/"))
	assert.Equal(t, http.StatusForbidden, call(ownersOnly, "Bearer "+pair.AccessToken, "/"))
	assert.Equal(t, http.StatusUnauthorized, call(RequireRole(models.RoleOwner)(inner), "", "/"))
}
