// Package metrics exposes Prometheus instrumentation for the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the instrumentation surface used by handlers, middleware and workers.
type Recorder interface {
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
	RecordToggle(kind string, active bool)
	RecordCascade(entity string, rows int64)
	RecordMediaDeletion(outcome string)
	RecordUpload(field string, bytes int64)
}

// Collector records metrics into a Prometheus registry.
type Collector struct {
	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	toggles        *prometheus.CounterVec
	cascades       *prometheus.CounterVec
	cascadeRows    *prometheus.CounterVec
	mediaDeletions *prometheus.CounterVec
	uploadBytes    *prometheus.CounterVec
}

// NewCollector builds a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ytbackend_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ytbackend_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		toggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ytbackend_toggles_total",
			Help: "Like and subscription toggles by kind and resulting state.",
		}, []string{"kind", "state"}),
		cascades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ytbackend_cascade_deletes_total",
			Help: "Committed cascading deletes by entity.",
		}, []string{"entity"}),
		cascadeRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ytbackend_cascade_rows_total",
			Help: "Rows removed by cascading deletes by entity.",
		}, []string{"entity"}),
		mediaDeletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ytbackend_media_deletions_total",
			Help: "Media object deletions by outcome.",
		}, []string{"outcome"}),
		uploadBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ytbackend_upload_bytes_total",
			Help: "Bytes staged from multipart uploads by form field.",
		}, []string{"field"}),
	}

	reg.MustRegister(
		c.requests,
		c.duration,
		c.toggles,
		c.cascades,
		c.cascadeRows,
		c.mediaDeletions,
		c.uploadBytes,
	)

	return c
}

// RecordHTTPRequest records one served request.
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.duration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordToggle records the state a toggle ended in.
func (c *Collector) RecordToggle(kind string, active bool) {
	state := "off"
	if active {
		state = "on"
	}
	c.toggles.WithLabelValues(kind, state).Inc()
}

// RecordCascade records a committed cascading delete.
func (c *Collector) RecordCascade(entity string, rows int64) {
	c.cascades.WithLabelValues(entity).Inc()
	c.cascadeRows.WithLabelValues(entity).Add(float64(rows))
}

// RecordMediaDeletion records the outcome of one media deletion.
func (c *Collector) RecordMediaDeletion(outcome string) {
	c.mediaDeletions.WithLabelValues(outcome).Inc()
}

// RecordUpload records bytes staged for a form field.
func (c *Collector) RecordUpload(field string, bytes int64) {
	c.uploadBytes.WithLabelValues(field).Add(float64(bytes))
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}
func (Nop) RecordToggle(string, bool)                             {}
func (Nop) RecordCascade(string, int64)                           {}
func (Nop) RecordMediaDeletion(string)                            {}
func (Nop) RecordUpload(string, int64)                            {}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Nop{}
)
