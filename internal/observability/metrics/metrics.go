package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Common label names for consistent metrics
const (
	LabelStatus  = "status"
	LabelMethod  = "method"
	LabelPath    = "path"
	LabelAuth    = "auth_method"
	LabelOutcome = "outcome"
)

var (
	// RequestsTotal counts all HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identgate_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	// RequestDuration tracks the duration of HTTP requests
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "identgate_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	// AuthenticationTotal counts identity resolutions by method and outcome
	AuthenticationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identgate_authentication_total",
			Help: "Total number of identity resolution attempts",
		},
		[]string{LabelAuth, LabelOutcome},
	)
)

// Collector provides methods for recording metrics
type Collector struct{}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{}
}

// RecordRequest records metrics for an HTTP request
func (c *Collector) RecordRequest(method, path string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	RequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordAuthentication records the outcome of one identity resolution.
// method is empty when no authenticator applied.
func (c *Collector) RecordAuthentication(method, outcome string) {
	if c == nil {
		return
	}
	if method == "" {
		method = "none"
	}
	AuthenticationTotal.WithLabelValues(method, outcome).Inc()
}

// Register registers additional collectors with the default registry. A
// collector describing the same metrics as one already registered replaces it.
func (c *Collector) Register(collectors ...prometheus.Collector) error {
	for _, col := range collectors {
		err := prometheus.Register(col)

		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			prometheus.Unregister(already.ExistingCollector)
			err = prometheus.Register(col)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Handler returns an HTTP handler for exposing metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
