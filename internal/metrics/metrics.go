package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PipelineMetrics holds all Prometheus metrics for the ingest pipeline and
// the broadcast hub.
type PipelineMetrics struct {
	MessagesConsumed *prometheus.CounterVec
	ResultsPersisted *prometheus.CounterVec
	Republished      prometheus.Counter
	LiveSubscribers  prometheus.Gauge
	BroadcastDropped prometheus.Counter
}

// NewPipelineMetrics initializes and registers the Prometheus metrics.
func NewPipelineMetrics() *PipelineMetrics {
	return &PipelineMetrics{
		MessagesConsumed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mfgstream",
			Subsystem: "ingest",
			Name:      "messages_total",
			Help:      "Total consumed messages by terminal disposition.",
		}, []string{"disposition"}), // disposition: ack, reject, requeue
		ResultsPersisted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mfgstream",
			Subsystem: "ingest",
			Name:      "results_persisted_total",
			Help:      "Total evaluated results written to storage by status.",
		}, []string{"status"}),
		Republished: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "mfgstream",
			Subsystem: "ingest",
			Name:      "republished_total",
			Help:      "Total envelopes republished to the processed-results topic.",
		}),
		LiveSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "mfgstream",
			Subsystem: "realtime",
			Name:      "subscribers_gauge",
			Help:      "Number of currently connected live subscribers.",
		}),
		BroadcastDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "mfgstream",
			Subsystem: "realtime",
			Name:      "broadcast_dropped_total",
			Help:      "Total broadcast frames dropped because a subscriber was dead or slow.",
		}),
	}
}
