// Package station implements the ALE station engine: the five-state
// scanning/calling/connecting/connected/sounding state machine, the
// scheduler that drives it, and the Station type that owns configuration,
// the LQA store, and the modem/radio collaborators.
package station

import (
	"time"

	"github.com/kb9vnr/goale/internal/packet"
)

// ScanWindow is the minimum channel dwell time and the CALL/ACK/SOUND
// retransmit cadence.
const ScanWindow = 3 * time.Second

// ConnectedTimeout is the idle timeout in the CONNECTED state.
const ConnectedTimeout = 300 * time.Second

// callTimeoutFor and soundTimeoutFor both adopt SCAN_WINDOW·(N+1), per
// spec.md §9's resolution of the source's inconsistent N vs N+1 usage.
func callTimeoutFor(numChannels int) time.Duration {
	return ScanWindow * time.Duration(numChannels+1)
}

func soundTimeoutFor(numChannels int) time.Duration {
	return ScanWindow * time.Duration(numChannels+1)
}

// State is the capability set every station state implements: enter, leave,
// tick, and receive. There is no shared base class and no back-pointer to
// the machine stored on the state — each operation receives the machine as
// a parameter, and a state requests a transition by returning the next
// state value (nil means stay). The machine performs the actual swap after
// the handler returns, so a transition never happens mid-handler.
type State interface {
	Name() string
	Enter(m *Machine, now time.Time)
	Leave(m *Machine, now time.Time)
	Tick(m *Machine, now time.Time) State
	Receive(m *Machine, now time.Time, p *packet.Packet) State

	// Base and SetBase carry last_carrier_sense_timestamp and
	// last_activity_timestamp across a transition, per spec.md §4.3's
	// "states carry forward" rule. Every concrete state embeds base and
	// gets these for free.
	Base() (lastCarrierSense, lastActivity time.Time)
	SetBase(lastCarrierSense, lastActivity time.Time)
}

type base struct {
	lastCarrierSense time.Time
	lastActivity     time.Time
}

func (b *base) Base() (time.Time, time.Time) { return b.lastCarrierSense, b.lastActivity }

func (b *base) SetBase(carrier, activity time.Time) {
	b.lastCarrierSense = carrier
	b.lastActivity = activity
}

// toSet builds a membership set from a slice, for use as the exclude
// argument to LQA.BestChannel.
func toSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[it] = true
	}
	return set
}
