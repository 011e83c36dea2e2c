package station

import (
	"math/rand"
	"time"

	"github.com/kb9vnr/goale/internal/packet"
)

// Scanning rotates through the scanlist, listens, answers unicast calls,
// and optionally acks a sounding. It is the initial and default-return
// state.
type Scanning struct {
	base

	lastChannelChange time.Time
	receivedSound     *packet.Packet
	soundAckDelay     time.Duration
}

func (s *Scanning) Name() string { return "scanning" }

func (s *Scanning) Enter(m *Machine, now time.Time) {
	s.receivedSound = nil
	s.soundAckDelay = 0
}

func (s *Scanning) Leave(m *Machine, now time.Time) {}

func (s *Scanning) Tick(m *Machine, now time.Time) State {
	st := m.Station()

	if modem := st.Modem(); modem != nil && modem.CarrierSense() {
		s.lastCarrierSense = now
	}

	if s.receivedSound != nil {
		if st.LQA().ShouldAckSound(s.receivedSound.Channel, s.receivedSound.Origin, st.SoundTimeout()) {
			soundAge := now.Sub(packet.TimeFromUnixSeconds(s.receivedSound.Timestamp))
			if now.Sub(s.lastCarrierSense) > 10*time.Millisecond && soundAge >= s.soundAckDelay {
				st.SendALE(packet.CmdAck, s.receivedSound.Origin, nil)
				s.receivedSound = nil
			}
		} else {
			s.receivedSound = nil
		}
	}

	if now.Sub(s.lastChannelChange) > ScanWindow && now.Sub(s.lastActivity) > ScanWindow {
		if st.LQA().ChannelStale(st.CurrentChannel()) {
			return &Sounding{}
		}

		modemIdle := true
		if modem := st.Modem(); modem != nil {
			modemIdle = modem.TxBufferLen() == 0
		}
		if s.receivedSound == nil && modemIdle {
			if next := st.NextChannelName(); next != "" {
				st.SetChannel(next)
			}
			s.lastChannelChange = now
			s.lastCarrierSense = time.Time{}
		}
	}

	return nil
}

func (s *Scanning) Receive(m *Machine, now time.Time, p *packet.Packet) State {
	st := m.Station()

	switch p.Command {
	case packet.CmdSound:
		if s.receivedSound == nil {
			s.lastActivity = now
			s.receivedSound = p
			s.soundAckDelay = randomDuration(250*time.Millisecond, time.Second)
		}
	case packet.CmdCall:
		if st.IsSelfOrAny(p.Destination) {
			s.lastActivity = now
			st.FireIncomingCall(p.Origin)
			return &Connecting{callAddress: p.Origin}
		}
	}
	return nil
}

// randomDuration returns a uniformly distributed duration in [lo, hi).
func randomDuration(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int63n(int64(hi-lo)))
}
