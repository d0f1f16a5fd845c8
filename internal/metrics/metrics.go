// Package metrics exposes Prometheus collectors for the talker.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ttstalker"

// Registry holds every collector of this package. It is separate from the
// default registry so tests can create talkers freely.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// Cycles counts playback cycles by outcome: completed, interrupted, aborted.
	Cycles = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cycles_total",
		Help:      "Playback cycles by outcome.",
	}, []string{"outcome"})

	// DroppedEvents counts events abandoned by the emitter or the worker.
	DroppedEvents = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dropped_events_total",
		Help:      "Events dropped because they could not be resolved.",
	}, []string{"reason"})

	// VisemesEmitted counts lip-sync commands by output mode.
	VisemesEmitted = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "visemes_emitted_total",
		Help:      "Lip-sync commands published.",
	}, []string{"mode"})

	// AnimationsEmitted counts gesture and emotion commands.
	AnimationsEmitted = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "animations_emitted_total",
		Help:      "Gesture and emotion commands published.",
	}, []string{"kind"})

	// DispatchLag observes how late each event was dispatched.
	DispatchLag = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "dispatch_lag_seconds",
		Help:      "Delay between an event's scheduled offset and its dispatch.",
		Buckets:   []float64{0.0005, 0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1},
	})

	// QueueDepth tracks markers waiting for the animation worker.
	QueueDepth = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "marker_queue_depth",
		Help:      "Markers waiting for the animation worker.",
	})

	// QueuePeak is the most markers ever waiting at once.
	QueuePeak = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "marker_queue_peak",
		Help:      "Highest number of markers waiting for the animation worker.",
	})

	// BridgeClients tracks connected websocket consumers.
	BridgeClients = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "bridge_clients",
		Help:      "Connected websocket consumers.",
	})
)

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
