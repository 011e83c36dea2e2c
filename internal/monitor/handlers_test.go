package monitor

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/kb9vnr/goale/internal/modem"
	"github.com/kb9vnr/goale/internal/radio"
	"github.com/kb9vnr/goale/internal/station"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	sharedMetricsOnce sync.Once
	sharedMetrics     *Metrics
)

// testMetrics returns a process-wide Metrics instance. Prometheus'
// default registerer panics on duplicate registration, so every test in
// this package shares one instance rather than each calling NewMetrics.
func testMetrics() *Metrics {
	sharedMetricsOnce.Do(func() { sharedMetrics = NewMetrics() })
	return sharedMetrics
}

func testStation(t *testing.T) *station.Station {
	t.Helper()
	sl := map[string]*station.Scanlist{
		"General": {
			Name:  "General",
			Order: []string{"40A"},
			Channels: map[string]station.Channel{
				"40A": {Freq: 7057000, Mode: station.USB},
			},
		},
	}
	return station.New(station.Config{
		Address:      "AL1",
		Scanlists:    sl,
		ScanlistName: "General",
	}, modem.NewNullModem(300), radio.NoopRadio{}, nil)
}

func TestHandleStatusReportsStationState(t *testing.T) {
	st := testStation(t)
	h := NewHandlers(st, NewHub())

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	h.HandleStatus(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "scanning", resp.State)
	assert.Equal(t, "40A", resp.Channel)
	assert.Equal(t, "General", resp.Scanlist)
	assert.True(t, resp.RadioOK)
}

func TestHandleCallRejectsNonPost(t *testing.T) {
	st := testStation(t)
	h := NewHandlers(st, NewHub())

	req := httptest.NewRequest(http.MethodGet, "/api/call", nil)
	rec := httptest.NewRecorder()
	h.HandleCall(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleCallRejectsEmptyAddress(t *testing.T) {
	st := testStation(t)
	h := NewHandlers(st, NewHub())

	body, _ := json.Marshal(CallRequest{Address: ""})
	req := httptest.NewRequest(http.MethodPost, "/api/call", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleCall(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCallRejectsBadJSON(t *testing.T) {
	st := testStation(t)
	h := NewHandlers(st, NewHub())

	req := httptest.NewRequest(http.MethodPost, "/api/call", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	h.HandleCall(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCallAcceptsValidRequest(t *testing.T) {
	st := testStation(t)
	go st.Run()
	defer st.Stop()
	h := NewHandlers(st, NewHub())

	body, _ := json.Marshal(CallRequest{Address: "AL2"})
	req := httptest.NewRequest(http.MethodPost, "/api/call", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleCall(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestNewServerRegistersRoutes(t *testing.T) {
	st := testStation(t)
	h := NewHandlers(st, NewHub())
	srv := NewServer(":0", h)
	assert.NotNil(t, srv)
}
