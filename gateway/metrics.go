package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the gateway's Prometheus collectors on a private registry so
// multiple gateways can coexist in one process.
type metrics struct {
	registry *prometheus.Registry

	requestsTotal *prometheus.CounterVec
	chatDuration  prometheus.Histogram
	handoffsTotal *prometheus.CounterVec
	chatErrors    prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tripmesh",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "status"}),
		chatDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tripmesh",
			Subsystem: "gateway",
			Name:      "chat_duration_seconds",
			Help:      "End-to-end chat invocation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		handoffsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tripmesh",
			Subsystem: "gateway",
			Name:      "handoffs_total",
			Help:      "Agent handoffs observed in chat invocations.",
		}, []string{"to_agent"}),
		chatErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tripmesh",
			Subsystem: "gateway",
			Name:      "chat_errors_total",
			Help:      "Chat invocations that ended in an error.",
		}),
	}

	m.registry.MustRegister(m.requestsTotal, m.chatDuration, m.handoffsTotal, m.chatErrors)
	return m
}
