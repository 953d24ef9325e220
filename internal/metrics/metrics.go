package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so tests can build as many as they like.
// A nil *Collector is valid and records nothing.
type Collector struct {
	Registry *prometheus.Registry

	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	activeRequests prometheus.Gauge
	upstream       *prometheus.HistogramVec
	actions        *prometheus.CounterVec
}

func New() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		Registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blockyweb_http_requests_total",
			Help: "Total HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "blockyweb_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		activeRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blockyweb_http_active_requests",
			Help: "Requests currently being served.",
		}),
		upstream: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "blockyweb_upstream_request_duration_seconds",
			Help:    "Latency of calls to the blocky API by operation and outcome.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "outcome"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blockyweb_actions_total",
			Help: "Dispatched actions by name and result.",
		}, []string{"action", "rc"}),
	}
	reg.MustRegister(
		c.requests, c.duration, c.activeRequests, c.upstream, c.actions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if c == nil {
			return ctx.Next()
		}
		c.activeRequests.Inc()
		start := time.Now()

		err := ctx.Next()

		c.activeRequests.Dec()
		route := ctx.Route().Path
		code := ctx.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				code = fe.Code
			} else {
				code = fiber.StatusInternalServerError
			}
		}
		c.requests.WithLabelValues(ctx.Method(), route, strconv.Itoa(code)).Inc()
		c.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())

		return err
	}
}

// Handler serves the text exposition format.
func (c *Collector) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{}))
}

// ObserveUpstream records one blocky API call.
func (c *Collector) ObserveUpstream(op, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.upstream.WithLabelValues(op, outcome).Observe(d.Seconds())
}

// ObserveAction records one dispatched action.
func (c *Collector) ObserveAction(action string, rc bool) {
	if c == nil {
		return
	}
	c.actions.WithLabelValues(action, strconv.FormatBool(rc)).Inc()
}
