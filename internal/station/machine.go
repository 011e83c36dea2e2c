package station

import (
	"time"

	"github.com/kb9vnr/goale/internal/packet"
)

// keepAliver is implemented by states that react to non-ALE traffic while
// active (currently only Connected). Checked with a type assertion rather
// than added to the State interface, since it applies to exactly one
// state.
type keepAliver interface {
	KeepAlive(now time.Time)
}

// Machine is the ALE state machine: one active State, advanced by Tick and
// Receive, with transitions applied strictly between handler invocations.
type Machine struct {
	station   *Station
	current   State
	lastState State
}

func newMachine(st *Station) *Machine {
	return &Machine{station: st, current: &Scanning{}}
}

// Station returns the owning station, passed to states as their context
// parameter rather than stored on the state itself.
func (m *Machine) Station() *Station { return m.station }

// Current returns the active state.
func (m *Machine) Current() State { return m.current }

// CurrentName returns the active state's name, e.g. "scanning".
func (m *Machine) CurrentName() string { return m.current.Name() }

func (m *Machine) start(now time.Time) {
	m.current.Enter(m, now)
}

// Tick drives time-based behavior in the active state.
func (m *Machine) Tick(now time.Time) {
	next := m.current.Tick(m, now)
	m.transition(next, now)
}

// Receive dispatches a decoded packet to the active state.
func (m *Machine) Receive(now time.Time, p *packet.Packet) {
	next := m.current.Receive(m, now, p)
	m.transition(next, now)
}

// KeepAlive notifies the active state of a non-ALE data frame, implicitly
// extending the CONNECTED idle timeout.
func (m *Machine) KeepAlive(now time.Time) {
	if ka, ok := m.current.(keepAliver); ok {
		ka.KeepAlive(now)
	}
}

// Call forces an immediate transition into Calling with a fresh attempt
// list, per spec.md §9: "a fresh call() clears attempts; an internal retry
// appends."
func (m *Machine) Call(now time.Time, address string) {
	m.transition(&Calling{callAddress: address}, now)
}

func (m *Machine) transition(next State, now time.Time) {
	if next == nil {
		return
	}
	carrier, activity := m.current.Base()
	m.current.Leave(m, now)
	m.lastState = m.current
	m.current = next
	m.current.SetBase(carrier, activity)
	m.current.Enter(m, now)
	m.station.notifyTransition(m.current.Name())
}
