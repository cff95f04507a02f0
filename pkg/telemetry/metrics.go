// Package telemetry exposes Prometheus instruments for the HTTP
// surface and the membership lifecycle.
package telemetry

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

var Module = fx.Module("telemetry",
	fx.Provide(NewMetrics),
)

type Metrics struct {
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	logins       *prometheus.CounterVec
	invitations  *prometheus.CounterVec
	authDenied   prometheus.Counter
}

// NewMetrics registers and returns the application metrics.
func NewMetrics() *Metrics {
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "brnit_http_requests_total",
		Help: "HTTP requests by method, route, and status.",
	}, []string{"method", "route", "status"})

	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "brnit_http_request_duration_seconds",
		Help:    "HTTP request latency per method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	logins := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "brnit_logins_total",
		Help: "Login attempts by outcome.",
	}, []string{"outcome"})

	invitations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "brnit_invitations_total",
		Help: "Invitation lifecycle transitions by outcome.",
	}, []string{"outcome"})

	authDenied := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "brnit_authorization_denied_total",
		Help: "Requests refused by the permission model.",
	})

	prometheus.MustRegister(httpRequests, httpDuration, logins, invitations, authDenied)

	return &Metrics{
		httpRequests: httpRequests,
		httpDuration: httpDuration,
		logins:       logins,
		invitations:  invitations,
		authDenied:   authDenied,
	}
}

func (m *Metrics) ObserveLogin(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveInvitation(outcome string) {
	if m == nil {
		return
	}
	m.invitations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveAuthorizationDenied() {
	if m == nil {
		return
	}
	m.authDenied.Inc()
}

// GinMiddleware records request counts and latency per route template.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
