// Package metrics exposes Prometheus collectors for datasource queries and
// HTTP traffic. Collectors are registered on the Registerer passed to New,
// never on the global default registry.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/koustreak/multidatasource/internal/database"
	"github.com/koustreak/multidatasource/internal/errs"
)

const namespace = "multids"

// OutcomeSuccess labels queries that returned without error. Failed queries
// are labelled with their error kind.
const OutcomeSuccess = "success"

// Metrics holds every collector the service records to.
type Metrics struct {
	queriesTotal    *prometheus.CounterVec
	queryDuration   *prometheus.HistogramVec
	queryRows       *prometheus.HistogramVec
	datasourceUp    *prometheus.GaugeVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		queriesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Queries executed per datasource, by outcome.",
		}, []string{"datasource", "outcome"}),

		queryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Time from borrowing a connection to the last mapped row.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"datasource"}),

		queryRows: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_rows",
			Help:      "Rows returned per successful query.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"datasource"}),

		datasourceUp: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "datasource_up",
			Help:      "1 if the last health check reached the datasource.",
		}, []string{"datasource"}),

		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"route", "code"}),

		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// ObserveQuery implements database.Observer.
func (m *Metrics) ObserveQuery(datasource string, rows int, elapsed time.Duration, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = errs.KindOf(err).String()
	}

	m.queriesTotal.WithLabelValues(datasource, outcome).Inc()
	m.queryDuration.WithLabelValues(datasource).Observe(elapsed.Seconds())
	if err == nil {
		m.queryRows.WithLabelValues(datasource).Observe(float64(rows))
	}
}

// SetDatasourceUp records the result of a health check.
func (m *Metrics) SetDatasourceUp(datasource string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	m.datasourceUp.WithLabelValues(datasource).Set(v)
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route string, code int, elapsed time.Duration) {
	m.requestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

var _ database.Observer = (*Metrics)(nil)
