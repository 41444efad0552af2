package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robertarktes/table-reservations/internal/idempotency"
	"github.com/robertarktes/table-reservations/internal/observability"
	"github.com/robertarktes/table-reservations/internal/rateLimit"
)

// SetupRouter wires the API. A nil rate limiter or idempotency store leaves
// that middleware out.
func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter, idemp *idempotency.Idempotency) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware)

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Group(func(r chi.Router) {
		if rl != nil {
			r.Use(RateLimitMiddleware(rl, h.cfg.RateLimitPerMinute, logger))
		}
		if idemp != nil {
			r.Use(IdempotencyMiddleware(idemp, logger))
		}

		r.Get("/tables/search", h.SearchTables)
		r.Post("/tables/reserve", h.ReserveTable)
		r.Post("/cart/preview", h.PreviewCart)
		r.Get("/cart", h.GetCart)
		r.Get("/reservations", h.ListReservations)
		r.Get("/audit", h.AuditHistory)
	})

	return r
}
