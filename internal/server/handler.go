package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/koustreak/multidatasource/internal/errs"
	"github.com/koustreak/multidatasource/internal/logger"
	"github.com/koustreak/multidatasource/internal/metrics"
)

// Querier runs the two fixed reads.
type Querier interface {
	QueryOne(ctx context.Context) ([]string, error)
	QueryTwo(ctx context.Context) ([]string, error)
}

// HealthChecker reports datasource reachability.
type HealthChecker interface {
	Names() []string
	Ping(ctx context.Context) map[string]error
}

const healthTimeout = 2 * time.Second

// Handler serves the query and health endpoints.
type Handler struct {
	repo    Querier
	health  HealthChecker
	metrics *metrics.Metrics
	log     *logger.Logger
}

// One serves GET /one.
func (h *Handler) One(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, "first", h.repo.QueryOne)
}

// Two serves GET /two.
func (h *Handler) Two(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, "second", h.repo.QueryTwo)
}

func (h *Handler) serveList(w http.ResponseWriter, r *http.Request, datasource string, query func(context.Context) ([]string, error)) {
	items, err := query(r.Context())
	if err != nil {
		status := statusFor(err)
		logger.FromContext(r.Context(), h.log).ErrorWith("query failed", err, map[string]any{
			"datasource": datasource,
			"status":     status,
		})
		writeText(w, status, http.StatusText(status))
		return
	}
	writeText(w, http.StatusOK, Render(items))
}

// Health serves GET /healthz. Pools are listed default first; the status
// is 503 when any of them cannot be reached.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	failures := h.health.Ping(ctx)

	var sb strings.Builder
	for _, name := range h.health.Names() {
		err, failed := failures[name]
		if h.metrics != nil {
			h.metrics.SetDatasourceUp(name, !failed)
		}
		if failed {
			fmt.Fprintf(&sb, "%s: %v\n", name, err)
			continue
		}
		fmt.Fprintf(&sb, "%s: ok\n", name)
	}

	status := http.StatusOK
	if len(failures) > 0 {
		status = http.StatusServiceUnavailable
	}
	writeText(w, status, sb.String())
}

// Render formats items as a bracketed, comma-separated list: "[a, b]".
// An empty list renders as "[]".
func Render(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}

func statusFor(err error) int {
	if errs.IsTimeout(err) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
