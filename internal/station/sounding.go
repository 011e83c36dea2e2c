package station

import (
	"fmt"
	"time"

	"github.com/kb9vnr/goale/internal/packet"
)

// Sounding broadcasts a channel-quality probe: a SOUND to ALL, repeated
// every ScanWindow until sound_timeout, tallying ACKs along the way.
type Sounding struct {
	base

	soundTimeoutAt  time.Time
	lastSoundPacket time.Time
	rxAckCount      int
}

func (s *Sounding) Name() string { return "sounding" }

func (s *Sounding) Enter(m *Machine, now time.Time) {
	st := m.Station()
	s.soundTimeoutAt = now.Add(st.SoundTimeout())
	s.rxAckCount = 0
	s.lastSoundPacket = now
	st.SendALE(packet.CmdSound, packet.AddressAll, nil)
}

func (s *Sounding) Leave(m *Machine, now time.Time) {}

func (s *Sounding) Tick(m *Machine, now time.Time) State {
	st := m.Station()

	if now.After(s.soundTimeoutAt) {
		st.Log(fmt.Sprintf("End sounding (%d responses)", s.rxAckCount))
		st.LQA().SetNextSounding(st.CurrentChannel())
		return &Scanning{}
	}

	if now.Sub(s.lastSoundPacket) > ScanWindow {
		st.SendALE(packet.CmdSound, packet.AddressAll, nil)
		s.lastSoundPacket = now
	}
	return nil
}

func (s *Sounding) Receive(m *Machine, now time.Time, p *packet.Packet) State {
	st := m.Station()

	switch p.Command {
	case packet.CmdAck:
		if st.IsSelf(p.Destination) {
			s.rxAckCount++
		}
	case packet.CmdCall:
		if st.IsSelfOrAny(p.Destination) {
			return &Connecting{callAddress: p.Origin}
		}
	}
	return nil
}
