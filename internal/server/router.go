package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/koustreak/multidatasource/internal/logger"
	"github.com/koustreak/multidatasource/internal/metrics"
)

// Deps are the collaborators the router serves from. Metrics and Gatherer
// are optional; /metrics is only mounted when Gatherer is set.
type Deps struct {
	Repo     Querier
	Health   HealthChecker
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Log      *logger.Logger
}

// NewRouter builds the HTTP routes.
func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}

	h := &Handler{repo: d.Repo, health: d.Health, metrics: d.Metrics, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(log, d.Metrics))
	r.Use(middleware.Recoverer)

	r.Get("/one", h.One)
	r.Get("/two", h.Two)
	r.Get("/healthz", h.Health)

	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

// accessLog logs one line per request and records HTTP metrics. It stores
// a request-scoped logger in the context for handlers to pick up.
func accessLog(log *logger.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			reqLog := log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
			r = r.WithContext(reqLog.WithContext(r.Context()))

			defer func() {
				elapsed := time.Since(start)
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}

				route := chi.RouteContext(r.Context()).RoutePattern()
				if route == "" {
					route = "unmatched"
				}
				if m != nil {
					m.ObserveRequest(route, status, elapsed)
				}

				reqLog.HTTPEvent().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("route", route).
					Int("status", status).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", elapsed).
					Str("remote_addr", r.RemoteAddr).
					Msg("request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
