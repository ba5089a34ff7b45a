package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors exported by the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	SaleOperations  *prometheus.CounterVec
	UnitsSold       prometheus.Counter
	UnitsRestored   prometheus.Counter
	LoginAttempts   *prometheus.CounterVec
	TokensIssued    *prometheus.CounterVec
	CatalogChanges  *prometheus.CounterVec
	DBOperationTime *prometheus.HistogramVec
}

// New registers every collector on a fresh registry under the given prefix.
func New(prefix string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		SaleOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_sale_operations_total",
				Help: "Committed sale operations",
			},
			[]string{"operation"},
		),
		UnitsSold: factory.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_units_sold_total",
			Help: "Product units taken out of stock by sales",
		}),
		UnitsRestored: factory.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_units_restored_total",
			Help: "Product units returned to stock by sale updates and deletions",
		}),
		LoginAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_login_attempts_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		TokensIssued: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_tokens_issued_total",
				Help: "Signed tokens by type",
			},
			[]string{"type"},
		),
		CatalogChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_catalog_changes_total",
				Help: "Committed product, supplier and user mutations",
			},
			[]string{"entity", "operation"},
		),
		DBOperationTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_db_operation_duration_seconds",
				Help:    "Duration of transactional operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation_type"},
		),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer is used by tests to inspect collected values.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Middleware records request count and latency by route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if m == nil {
			return
		}
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// TrackDBOperation returns a function that records the duration of a database operation
func (m *Metrics) TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		if m == nil {
			return
		}
		m.DBOperationTime.WithLabelValues(operationType).Observe(time.Since(startTime).Seconds())
	}
}

// RecordSale counts a committed sale operation together with the stock it moved.
func (m *Metrics) RecordSale(operation string, sold, restored int) {
	if m == nil {
		return
	}
	m.SaleOperations.WithLabelValues(operation).Inc()
	if sold > 0 {
		m.UnitsSold.Add(float64(sold))
	}
	if restored > 0 {
		m.UnitsRestored.Add(float64(restored))
	}
}

// RecordLogin counts a login attempt. Outcome is "success", "bad_credentials"
// or "error".
func (m *Metrics) RecordLogin(outcome string) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(outcome).Inc()
}

// RecordToken counts an issued token by type.
func (m *Metrics) RecordToken(tokenType string) {
	if m == nil {
		return
	}
	m.TokensIssued.WithLabelValues(tokenType).Inc()
}

// RecordChange counts a committed catalog mutation.
func (m *Metrics) RecordChange(entity, operation string) {
	if m == nil {
		return
	}
	m.CatalogChanges.WithLabelValues(entity, operation).Inc()
}
