package station

import (
	"time"

	"github.com/kb9vnr/goale/internal/packet"
)

// Connecting is the answering side of a handshake: it has heard a CALL for
// one of its addresses (or ANY) and is acking it, waiting for the caller's
// final ACK to confirm the link.
type Connecting struct {
	base

	callAddress   string
	callStarted   time.Time
	callTimeoutAt time.Time
	lastAckSent   time.Time
}

func (c *Connecting) Name() string { return "connecting" }

func (c *Connecting) Enter(m *Machine, now time.Time) {
	c.callStarted = now
	c.callTimeoutAt = now.Add(m.Station().CallTimeout())
	c.lastAckSent = time.Time{}
}

func (c *Connecting) Leave(m *Machine, now time.Time) {}

func (c *Connecting) Tick(m *Machine, now time.Time) State {
	st := m.Station()

	if now.After(c.callTimeoutAt) {
		st.FireDisconnected(c.callAddress, int(now.Sub(c.callStarted).Seconds()))
		return &Scanning{}
	}

	if now.Sub(c.lastAckSent) > ScanWindow {
		st.SendALE(packet.CmdAck, c.callAddress, nil)
		c.lastAckSent = now
	}
	return nil
}

func (c *Connecting) Receive(m *Machine, now time.Time, p *packet.Packet) State {
	st := m.Station()
	if !st.IsSelf(p.Destination) || p.Origin != c.callAddress {
		return nil
	}

	switch p.Command {
	case packet.CmdAck:
		return &Connected{callAddress: c.callAddress, callStarted: c.callStarted}
	case packet.CmdCall:
		// Peer hasn't heard our ACK yet; restart the timeout and keep
		// acking on the usual cadence.
		c.callTimeoutAt = now.Add(st.CallTimeout())
	case packet.CmdEnd:
		st.FireDisconnected(c.callAddress, int(now.Sub(c.callStarted).Seconds()))
		return &Scanning{}
	}
	return nil
}
