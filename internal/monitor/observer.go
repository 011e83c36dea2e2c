package monitor

import (
	"time"

	"github.com/kb9vnr/goale/internal/station"
)

// StationObserver fans a station's operational events out to both the
// Prometheus collectors and the WebSocket hub. Implements
// station.Observer.
type StationObserver struct {
	metrics   *Metrics
	hub       *Hub
	lastState string
}

// NewStationObserver builds an observer reporting to metrics and hub.
func NewStationObserver(metrics *Metrics, hub *Hub) *StationObserver {
	return &StationObserver{metrics: metrics, hub: hub, lastState: "scanning"}
}

func (o *StationObserver) OnStateTransition(to string) {
	o.metrics.StateTransitions.WithLabelValues(to).Inc()
	o.hub.BroadcastStateChange(o.lastState, to)
	o.lastState = to
}

func (o *StationObserver) OnCallResult(result string) {
	o.metrics.Calls.WithLabelValues(result).Inc()
	o.hub.BroadcastCallEvent(result, "")
}

func (o *StationObserver) OnSound() {
	o.metrics.Sounds.Inc()
}

// WatchHistorySize periodically samples the LQA store's size into the
// history-size gauge, until st.Done() is closed. Intended to run in its own
// goroutine alongside Station.Run.
func (o *StationObserver) WatchHistorySize(st *station.Station) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-st.Done():
			return
		case <-ticker.C:
			o.metrics.LQAHistorySize.Set(float64(st.LQA().Len()))
		}
	}
}

var _ station.Observer = (*StationObserver)(nil)
