// Package metrics exposes relay counters to prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "meshcall"

// Relay is the relay's metric set on its own registry.
type Relay struct {
	Registry *prometheus.Registry

	Connections prometheus.Gauge
	Rooms       prometheus.Gauge
	Frames      *prometheus.CounterVec
	Dropped     prometheus.Counter
	RateLimited prometheus.Counter
	Kicked      prometheus.Counter
}

func NewRelay() *Relay {
	m := &Relay{
		Registry: prometheus.NewRegistry(),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "relay", Name: "connections",
			Help: "Open signaling connections.",
		}),
		Rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "relay", Name: "rooms",
			Help: "Rooms with at least one member.",
		}),
		Frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "relay", Name: "frames_total",
			Help: "Inbound frames by message type.",
		}, []string{"type"}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "relay", Name: "dropped_total",
			Help: "Frames not delivered because of backpressure or a missing recipient.",
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "relay", Name: "rate_limited_total",
			Help: "Frames rejected by the per-participant rate limiter.",
		}),
		Kicked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "relay", Name: "kicked_total",
			Help: "Members removed by the backpressure policy.",
		}),
	}
	m.Registry.MustRegister(m.Connections, m.Rooms, m.Frames, m.Dropped, m.RateLimited, m.Kicked,
		collectors.NewGoCollector())
	return m
}

func (m *Relay) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
