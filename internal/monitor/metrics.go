package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the small, focused set of operational counters/gauges this
// engine exposes, grounded on the ka9q_ubersdr pack repo's
// promauto.NewCounterVec/NewGaugeVec pattern.
type Metrics struct {
	StateTransitions *prometheus.CounterVec
	Calls            *prometheus.CounterVec
	Sounds           prometheus.Counter
	LQAHistorySize   prometheus.Gauge
}

// NewMetrics registers and returns the station's Prometheus collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		StateTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goale_state_transitions_total",
				Help: "Count of state machine transitions, labeled by destination state.",
			},
			[]string{"to"},
		),
		Calls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goale_calls_total",
				Help: "Count of completed call attempts, labeled by result.",
			},
			[]string{"result"},
		),
		Sounds: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "goale_sounds_total",
				Help: "Count of sounding cycles started.",
			},
		),
		LQAHistorySize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "goale_lqa_history_size",
				Help: "Current number of entries held in the LQA history.",
			},
		),
	}
}
