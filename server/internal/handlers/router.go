package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/vattention/facio-superpowers/server/internal/auth"
	"github.com/vattention/facio-superpowers/server/internal/middleware"
)

// Router wires the API routes. Everything under /api is rate limited and
// authenticated; every response gets the security headers.
func Router(h *Handler, authMW *auth.Middleware, limiter *middleware.IPRateLimiter, logger logrus.FieldLogger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.Handle("GET /metrics", h.metrics.Handler())

	api := func(next http.HandlerFunc) http.Handler {
		return limiter.Limit(authMW.RequireAPIKey(next))
	}
	mux.Handle("POST /api/sync", api(h.APISync))
	mux.Handle("GET /api/sync/status", api(h.APISyncStatus))
	mux.Handle("GET /api/stats", api(h.APIStats))

	return middleware.SecurityHeaders(middleware.Logging(logger)(h.metrics.Middleware(mux)))
}
