package station

import (
	"time"

	"github.com/kb9vnr/goale/internal/packet"
)

// Connected is the post-handshake link state: idle timeout resets on any
// non-ALE data frame via KeepAlive; END from the peer ends the link.
type Connected struct {
	base

	callAddress   string
	callStarted   time.Time
	callTimeoutAt time.Time
}

func (c *Connected) Name() string { return "connected" }

func (c *Connected) Enter(m *Machine, now time.Time) {
	c.callTimeoutAt = now.Add(ConnectedTimeout)
	m.Station().FireConnected(c.callAddress)
}

func (c *Connected) Leave(m *Machine, now time.Time) {}

func (c *Connected) Tick(m *Machine, now time.Time) State {
	if now.After(c.callTimeoutAt) {
		st := m.Station()
		st.FireDisconnected(c.callAddress, int(now.Sub(c.callStarted).Seconds()))
		return &Scanning{}
	}
	return nil
}

func (c *Connected) Receive(m *Machine, now time.Time, p *packet.Packet) State {
	if p.Command == packet.CmdEnd {
		st := m.Station()
		st.FireDisconnected(c.callAddress, int(now.Sub(c.callStarted).Seconds()))
		return &Scanning{}
	}
	return nil
}

// KeepAlive extends the idle timeout. Called by Machine.KeepAlive whenever
// a non-ALE (data) frame arrives while CONNECTED, so data traffic acts as
// an implicit keepalive.
func (c *Connected) KeepAlive(now time.Time) {
	c.callTimeoutAt = now.Add(ConnectedTimeout)
}
