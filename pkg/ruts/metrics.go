package ruts

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/toyz/ruts/pkg/ruts/dbaccess"
)

// Metrics are the Prometheus collectors of the dispatcher.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	sqlCount *prometheus.HistogramVec
	gatherer prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer, gatherer prometheus.Gatherer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ruts",
			Name:      "action_requests_total",
			Help:      "Action requests by action, execute and status.",
		}, []string{"action", "execute", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ruts",
			Name:      "action_request_duration_seconds",
			Help:      "Action request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action", "execute"}),
		sqlCount: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ruts",
			Name:      "action_sql_executions",
			Help:      "SQL executions per action request.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 30, 50, 100},
		}, []string{"action", "execute"}),
		gatherer: gatherer,
	}
	for _, c := range []prometheus.Collector{m.requests, m.duration, m.sqlCount} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Observe records one finished request.
func (m *Metrics) Observe(action, execute string, status int, elapsed time.Duration, sql dbaccess.RequestedSqlCount) {
	m.requests.WithLabelValues(action, execute, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(action, execute).Observe(elapsed.Seconds())
	m.sqlCount.WithLabelValues(action, execute).Observe(float64(sql.TotalCountOfSQL()))
}

// Handler serves the gathered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
