package router_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/gonotif/internal/pkg/clock"
	"github.com/shandysiswandi/gonotif/internal/pkg/goerror"
	"github.com/shandysiswandi/gonotif/internal/pkg/instrument"
	"github.com/shandysiswandi/gonotif/internal/pkg/jwt"
	"github.com/shandysiswandi/gonotif/internal/pkg/ratelimit"
	"github.com/shandysiswandi/gonotif/internal/pkg/router"
	"github.com/shandysiswandi/gonotif/internal/pkg/uid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*router.Router, *jwt.Symmetric) {
	t.Helper()

	verifier, err := jwt.NewHS512(jwt.Config{
		Secret:     []byte(strings.Repeat("s", 64)),
		TTLMinutes: time.Hour,
		Clock:      clock.New(),
		UUID:       uid.NewUUID(),
	})
	require.NoError(t, err)

	return router.NewRouter(router.Config{
		UUID:       uid.NewUUID(),
		JWT:        verifier,
		Instrument: instrument.NewNoop(),
	}), verifier
}

func bearer(t *testing.T, verifier *jwt.Symmetric, userID string) string {
	t.Helper()

	token, err := verifier.Generate(userID, userID+"@example.com")
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRateLimit_RejectsOverLimitUntilWindowResets(t *testing.T) {
	t.Parallel()

	fc := clock.NewFake(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	limiter := ratelimit.New(fc)
	rule := ratelimit.Rule{Name: "send", Limit: 10, Window: time.Minute}

	ro, verifier := newTestRouter(t)
	ro.POST("/api/v1/notifications/send", func(*router.Request) (any, error) {
		return map[string]string{"status": "accepted"}, nil
	}, router.RateLimit(limiter, rule))

	token := bearer(t, verifier, "user-1")
	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/send", nil)
		req.Header.Set("Authorization", token)
		rec := httptest.NewRecorder()
		ro.ServeHTTP(rec, req)
		return rec
	}

	for i := range 10 {
		rec := do()
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	fc.Advance(20 * time.Second)
	rec := do()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "40", rec.Header().Get("Retry-After"))
	assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Contains(t, rec.Body.String(), "Too many requests")

	fc.Advance(40 * time.Second)
	rec = do()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "9", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimit_CountersArePerEndpoint(t *testing.T) {
	t.Parallel()

	fc := clock.NewFake(time.Unix(0, 0))
	limiter := ratelimit.New(fc)
	rule := ratelimit.Rule{Name: "preference_write", Limit: 1, Window: time.Minute}

	ro, verifier := newTestRouter(t)
	ok := func(*router.Request) (any, error) { return map[string]string{"status": "ok"}, nil }
	ro.PUT("/api/v1/notifications/preferences/:userId", ok, router.RateLimit(limiter, rule))
	ro.POST("/api/v1/notifications/preferences/:userId/enable/:channel", ok, router.RateLimit(limiter, rule))
	ro.DELETE("/api/v1/notifications/devices", ok, router.RateLimit(limiter, rule))

	token := bearer(t, verifier, "user-1")
	do := func(method, path string) int {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Authorization", token)
		rec := httptest.NewRecorder()
		ro.ServeHTTP(rec, req)
		return rec.Code
	}

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{name: "first update", method: http.MethodPut, path: "/api/v1/notifications/preferences/user-1", want: http.StatusOK},
		{name: "second update", method: http.MethodPut, path: "/api/v1/notifications/preferences/user-1", want: http.StatusTooManyRequests},
		{name: "same route other param", method: http.MethodPut, path: "/api/v1/notifications/preferences/user-2", want: http.StatusTooManyRequests},
		{name: "enable has its own counter", method: http.MethodPost, path: "/api/v1/notifications/preferences/user-1/enable/email", want: http.StatusOK},
		{name: "unregister has its own counter", method: http.MethodDelete, path: "/api/v1/notifications/devices", want: http.StatusOK},
		{name: "enable exhausted", method: http.MethodPost, path: "/api/v1/notifications/preferences/user-1/enable/push", want: http.StatusTooManyRequests},
	}

	// Steps share one limiter, so they run in order.
	for _, tt := range tests {
		assert.Equal(t, tt.want, do(tt.method, tt.path), tt.name)
	}
}

func TestRateLimit_IdentityFallsBackToIP(t *testing.T) {
	t.Parallel()

	fc := clock.NewFake(time.Unix(0, 0))
	limiter := ratelimit.New(fc)
	rule := ratelimit.Rule{Name: "health", Limit: 1, Window: time.Minute}

	h := router.Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), router.RateLimit(limiter, rule))

	do := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, do("10.0.0.1:5000"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:5001"))
	assert.Equal(t, http.StatusNoContent, do("10.0.0.2:5000"))
}

func TestRateLimit_SkipSuccessful(t *testing.T) {
	t.Parallel()

	fc := clock.NewFake(time.Unix(0, 0))
	limiter := ratelimit.New(fc)
	rule := ratelimit.Rule{Name: "read", Limit: 2, Window: time.Minute, SkipSuccessful: true}

	ro, verifier := newTestRouter(t)
	ro.GET("/api/v1/notifications/in-app/:id", func(r *router.Request) (any, error) {
		if r.GetParam("id") == "missing" {
			return nil, goerror.NewBusiness("not found", goerror.CodeNotFound)
		}
		return map[string]string{"id": r.GetParam("id")}, nil
	}, router.RateLimit(limiter, rule))

	token := bearer(t, verifier, "reader")
	do := func(id string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/in-app/"+id, nil)
		req.Header.Set("Authorization", token)
		rec := httptest.NewRecorder()
		ro.ServeHTTP(rec, req)
		return rec.Code
	}

	for range 5 {
		require.Equal(t, http.StatusOK, do("1"))
	}

	assert.Equal(t, http.StatusNotFound, do("missing"))
	assert.Equal(t, http.StatusNotFound, do("missing"))
	assert.Equal(t, http.StatusTooManyRequests, do("1"))
}

func TestChain_Order(t *testing.T) {
	t.Parallel()

	var order []string
	mw := func(name string) router.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := router.Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mw("outer"), nil, mw("inner"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}
