package station

import (
	"time"

	"github.com/kb9vnr/goale/internal/packet"
)

// Calling drives an outgoing call: it tries the best-ranked channel for the
// target address, retries on each, and gives up after exhausting every
// channel in the scanlist.
type Calling struct {
	base

	callAddress    string
	callStarted    time.Time
	callTimeoutAt  time.Time
	lastCallPacket time.Time
	attempts       []string
}

func (c *Calling) Name() string { return "calling" }

// Enter sets call_timeout_timestamp to the zero time, forcing an immediate
// first attempt on the next tick. A fresh Calling value (as constructed by
// Machine.Call, the only place a Calling is built) always starts
// with a nil attempts slice — per spec.md §9, only a user-initiated call()
// clears attempts; an internal retry (handled in Tick, not via a new
// state value) appends to the same slice.
func (c *Calling) Enter(m *Machine, now time.Time) {
	c.callStarted = now
	c.callTimeoutAt = time.Time{}
	c.lastCallPacket = time.Time{}
}

func (c *Calling) Leave(m *Machine, now time.Time) {}

func (c *Calling) Tick(m *Machine, now time.Time) State {
	st := m.Station()
	maxAttempts := st.NumChannels()

	if now.After(c.callTimeoutAt) {
		if len(c.attempts) < maxAttempts {
			best := st.LQA().BestChannel(c.callAddress, toSet(c.attempts))
			if best == "" {
				return nil
			}
			c.attempts = append(c.attempts, best)
			st.SetChannel(best)
			c.callTimeoutAt = now.Add(st.CallTimeout())
			st.SendALE(packet.CmdCall, c.callAddress, nil)
			c.lastCallPacket = now
			return nil
		}
		st.FireDisconnected(c.callAddress, int(now.Sub(c.callStarted).Seconds()))
		return &Scanning{}
	}

	if now.Sub(c.lastCallPacket) > ScanWindow {
		st.SendALE(packet.CmdCall, c.callAddress, nil)
		c.lastCallPacket = now
	}
	return nil
}

func (c *Calling) Receive(m *Machine, now time.Time, p *packet.Packet) State {
	st := m.Station()
	if !st.IsSelf(p.Destination) || p.Origin != c.callAddress {
		return nil
	}

	switch p.Command {
	case packet.CmdAck:
		// Final handshake ACK, so the answering side can leave Connecting.
		st.SendALE(packet.CmdAck, c.callAddress, nil)
		return &Connected{callAddress: c.callAddress, callStarted: c.callStarted}
	case packet.CmdCall:
		return &Connecting{callAddress: c.callAddress}
	case packet.CmdEnd:
		st.FireDisconnected(c.callAddress, int(now.Sub(c.callStarted).Seconds()))
		return &Scanning{}
	}
	return nil
}
