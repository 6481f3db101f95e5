// Package metrics exposes Prometheus metrics for the dashboard service:
// auth events, HTTP requests and activity lookups.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	auth "github.com/goliatone/go-auth-dashboard"
)

const namespace = "authdash"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	AuthEvents      *prometheus.CounterVec
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ActivityLookups *prometheus.CounterVec
}

var _ auth.EventSink = (*Registry)(nil)

// NewRegistry creates the collectors on a private registry, with the Go
// runtime and process collectors included.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		AuthEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_events_total",
			Help:      "Auth events by type.",
		}, []string{"type"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ActivityLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activity_lookups_total",
			Help:      "Served activities by source.",
		}, []string{"source"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.AuthEvents,
		r.RequestsTotal,
		r.RequestDuration,
		r.ActivityLookups,
	)

	return r
}

// Gatherer exposes the registry for tests and custom exporters
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Record counts an auth event. It implements auth.EventSink.
func (r *Registry) Record(_ context.Context, event auth.AuthEvent) error {
	r.AuthEvents.WithLabelValues(string(event.EventType)).Inc()
	return nil
}

// ObserveActivity counts a served activity by source
func (r *Registry) ObserveActivity(source string) {
	r.ActivityLookups.WithLabelValues(source).Inc()
}

// Handler serves the exposition format
func (r *Registry) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
}

// Middleware records request counts and latency, labelled by the matched
// route pattern so path parameters do not explode cardinality.
func (r *Registry) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		route := c.Route().Path
		if status == fiber.StatusNotFound || route == "" {
			route = "unmatched"
		}

		method := c.Method()
		r.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		r.RequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())

		return err
	}
}
