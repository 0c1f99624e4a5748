package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/FACorreiaa/commissioning-tracker/pkg/metrics"
	"github.com/FACorreiaa/commissioning-tracker/pkg/middleware"
)

// RouterConfig controls the middleware chain.
type RouterConfig struct {
	RateLimitPerSecond int
	RateLimitBurst     int
	CORSOrigins        []string
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable it only behind a proxy that sets those headers.
	TrustProxy bool
}

// NewRouter wires the middleware chain, the API routes, /health and, when m
// is non-nil, /metrics.
func NewRouter(h *Handler, m *metrics.Metrics, cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	if cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Recover(logger))
	if m != nil {
		r.Use(middleware.Metrics(m))
	}
	if cfg.RateLimitPerSecond > 0 {
		r.Use(middleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst).Handler)
	}
	if len(cfg.CORSOrigins) > 0 {
		r.Use(middleware.CORS(cfg.CORSOrigins))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	h.Register(r)
	return r
}
