package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "relay"

// Send failure reasons used as the "reason" label.
const (
	ReasonNotOpen    = "not_open"
	ReasonBufferFull = "buffer_full"
	ReasonOther      = "other"
)

// NewRegistry creates a Prometheus registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler returns an http.Handler that serves Prometheus metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Relay holds Prometheus metrics for WebSocket connections and broadcasts.
type Relay struct {
	ActiveConnections prometheus.Gauge
	ConnectionsTotal  prometheus.Counter
	MessagesReceived  prometheus.Counter
	MessagesDelivered prometheus.Counter
	SendFailures      *prometheus.CounterVec
}

// NewRelay creates and registers relay metrics on the given registry.
func NewRelay(reg prometheus.Registerer) *Relay {
	m := &Relay{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "active_connections",
			Help:      "Number of registered WebSocket connections.",
		}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "connections_total",
			Help:      "Total number of established WebSocket connections.",
		}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "messages_received_total",
			Help:      "Total number of inbound messages relayed.",
		}),
		MessagesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "messages_delivered_total",
			Help:      "Total number of outbound messages queued for delivery.",
		}),
		SendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "send_failures_total",
			Help:      "Total number of failed sends to individual connections.",
		}, []string{"reason"}),
	}

	reg.MustRegister(m.ActiveConnections, m.ConnectionsTotal, m.MessagesReceived, m.MessagesDelivered, m.SendFailures)
	return m
}
