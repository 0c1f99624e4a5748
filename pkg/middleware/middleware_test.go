package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/commissioning-tracker/pkg/metrics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func ok(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func TestRecover(t *testing.T) {
	h := Recover(testLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	h := NewRateLimiter(1, 2).Handler(http.HandlerFunc(ok))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "other clients have their own bucket")
}

func TestRateLimiter_IgnoresForwardedFor(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	h := rl.Handler(http.HandlerFunc(ok))

	allowed := 0
	for i := 0; i < 100; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		req.Header.Set("X-Forwarded-For", "192.0.2."+strconv.Itoa(i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			allowed++
		}
	}
	assert.Equal(t, 1, allowed)
	assert.Equal(t, 1, rl.Len())
}

func TestRateLimiter_EvictsIdleClients(t *testing.T) {
	now := time.Date(2025, time.October, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 1).WithIdleTTL(time.Minute)
	rl.now = func() time.Time { return now }

	for i := 0; i < 50; i++ {
		rl.limiter("10.0.1." + strconv.Itoa(i))
	}
	require.Equal(t, 50, rl.Len())

	now = now.Add(30 * time.Second)
	rl.limiter("10.0.1.0")
	assert.Equal(t, 50, rl.Len(), "no sweep before the TTL elapses")

	now = now.Add(45 * time.Second)
	rl.limiter("10.0.2.1")
	assert.Equal(t, 2, rl.Len(), "only the recently seen client and the new one remain")
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"http://dashboard.local"})(http.HandlerFunc(ok))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "http://dashboard.local", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.local")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsAndLogging(t *testing.T) {
	m := metrics.New()
	r := chi.NewRouter()
	r.Use(Logging(testLogger()), Metrics(m))
	r.Get("/items/{id}", ok)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	n, err := testutil.GatherAndCount(m.Gatherer(), "commissioning_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
