package station

import (
	"testing"
	"time"

	"github.com/kb9vnr/goale/internal/modem"
	"github.com/kb9vnr/goale/internal/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRadio struct{}

func (stubRadio) SetVFOA(int) error        { return nil }
func (stubRadio) SetSideband(Sideband) error { return nil }

func testScanlists() map[string]*Scanlist {
	return map[string]*Scanlist{
		"General": {
			Name:  "General",
			Order: []string{"40A", "40B"},
			Channels: map[string]Channel{
				"40A": {Freq: 7057000, Mode: USB},
				"40B": {Freq: 7157000, Mode: USB},
			},
		},
	}
}

func newTestStation(t *testing.T, address string) (*Station, *modem.NullModem) {
	t.Helper()
	m := modem.NewNullModem(300)
	st := New(Config{
		Address:      address,
		Scanlists:    testScanlists(),
		ScanlistName: "General",
	}, m, stubRadio{}, nil)
	return st, m
}

func TestNewStationStartsInScanning(t *testing.T) {
	st, _ := newTestStation(t, "AL1")
	assert.Equal(t, "scanning", st.CurrentState())
	assert.Equal(t, "40A", st.CurrentChannel())
}

func TestIsSelfAndIsSelfOrAny(t *testing.T) {
	st, _ := newTestStation(t, "AL1")
	assert.True(t, st.IsSelf("AL1"))
	assert.False(t, st.IsSelf("AL2"))
	assert.False(t, st.IsSelf(packet.AddressAny))
	assert.True(t, st.IsSelfOrAny(packet.AddressAny))
	assert.True(t, st.IsSelfOrAny("AL1"))
}

func TestCallTransitionsToConnectedOnAck(t *testing.T) {
	st, m := newTestStation(t, "AL1")
	now := time.Now()

	st.machine.Call(now, "AL2")
	require.Equal(t, "calling", st.CurrentState())

	st.machine.Tick(now)
	require.NotEmpty(t, m.Sent())

	// Peer's CALL races with ours (neither has heard the other's ACK yet).
	peerCall := &packet.Packet{Origin: "AL2", Destination: "AL1", Command: packet.CmdCall}
	st.machine.Receive(now, peerCall)
	require.Equal(t, "connecting", st.CurrentState())

	peerAck := &packet.Packet{Origin: "AL2", Destination: "AL1", Command: packet.CmdAck}
	st.machine.Receive(now, peerAck)
	assert.Equal(t, "connected", st.CurrentState())
}

func TestCallingGivesUpAfterExhaustingChannels(t *testing.T) {
	st, _ := newTestStation(t, "AL1")
	now := time.Now()
	var disconnected bool
	st.SetCallbacks(Callbacks{OnDisconnected: func(peer string, _ int) { disconnected = true }})

	st.machine.Call(now, "AL2")
	for i := 0; i < st.NumChannels()+1; i++ {
		now = now.Add(st.CallTimeout() + time.Millisecond)
		st.machine.Tick(now)
	}

	assert.Equal(t, "scanning", st.CurrentState())
	assert.True(t, disconnected)
}

func TestIncomingCallTransitionsToConnecting(t *testing.T) {
	st, _ := newTestStation(t, "AL1")
	now := time.Now()
	var incoming string
	st.SetCallbacks(Callbacks{OnIncomingCall: func(origin string) { incoming = origin }})

	call := &packet.Packet{Origin: "AL3", Destination: "AL1", Command: packet.CmdCall}
	st.machine.Receive(now, call)

	assert.Equal(t, "connecting", st.CurrentState())
	assert.Equal(t, "AL3", incoming)
}

func TestConnectedTimesOutAfterConnectedTimeout(t *testing.T) {
	st, _ := newTestStation(t, "AL1")
	now := time.Now()
	st.machine.Call(now, "AL2")
	st.machine.Receive(now, &packet.Packet{Origin: "AL2", Destination: "AL1", Command: packet.CmdAck})
	require.Equal(t, "connected", st.CurrentState())

	st.machine.Tick(now.Add(ConnectedTimeout + time.Second))
	assert.Equal(t, "scanning", st.CurrentState())
}

func TestConnectedKeepAliveExtendsTimeout(t *testing.T) {
	st, _ := newTestStation(t, "AL1")
	now := time.Now()
	st.machine.Call(now, "AL2")
	st.machine.Receive(now, &packet.Packet{Origin: "AL2", Destination: "AL1", Command: packet.CmdAck})
	require.Equal(t, "connected", st.CurrentState())

	later := now.Add(ConnectedTimeout - time.Second)
	st.machine.KeepAlive(later)
	st.machine.Tick(later.Add(2 * time.Second))
	assert.Equal(t, "connected", st.CurrentState())
}

func TestSendALENoOpWhenRadioDown(t *testing.T) {
	st, m := newTestStation(t, "AL1")
	st.radioFailure(assertError{})
	st.SendALE(packet.CmdCall, "AL2", nil)
	assert.Empty(t, m.Sent())
	assert.False(t, st.RadioOK())
}

type assertError struct{}

func (assertError) Error() string { return "simulated radio failure" }

func TestAddAndRemoveAddress(t *testing.T) {
	st, _ := newTestStation(t, "AL1")
	st.AddAddress("AL1-G")
	assert.True(t, st.IsSelf("AL1-G"))
	st.RemoveAddress("AL1-G")
	assert.False(t, st.IsSelf("AL1-G"))
}

func TestWhitelistFiltering(t *testing.T) {
	st, _ := newTestStation(t, "AL1")
	st.AddWhitelist("AL2")
	st.SetWhitelistEnabled(true)

	var incoming string
	st.SetCallbacks(Callbacks{OnIncomingCall: func(origin string) { incoming = origin }})

	blocked := (&packet.Packet{Origin: "AL9", Destination: "AL1", Command: packet.CmdCall}).Pack()
	st.receive(blocked, 2.0)
	assert.Empty(t, incoming)

	allowed := (&packet.Packet{Origin: "AL2", Destination: "AL1", Command: packet.CmdCall}).Pack()
	st.receive(allowed, 2.0)
	assert.Equal(t, "AL2", incoming)
}

func TestSoundingSendsOnEnterAndTimesOutToScanning(t *testing.T) {
	st, m := newTestStation(t, "AL1")
	now := time.Now()

	st.machine.transition(&Sounding{}, now)
	require.Equal(t, "sounding", st.CurrentState())
	require.NotEmpty(t, m.Sent())

	st.machine.Tick(now.Add(st.SoundTimeout() + time.Second))
	assert.Equal(t, "scanning", st.CurrentState())
}

func TestSoundingTracksAcksAndAnswersIncomingCall(t *testing.T) {
	st, _ := newTestStation(t, "AL1")
	now := time.Now()
	st.machine.transition(&Sounding{}, now)

	ack := &packet.Packet{Origin: "AL2", Destination: "AL1", Command: packet.CmdAck}
	st.machine.Receive(now, ack)
	s, ok := st.machine.Current().(*Sounding)
	require.True(t, ok)
	assert.Equal(t, 1, s.rxAckCount)

	call := &packet.Packet{Origin: "AL3", Destination: packet.AddressAny, Command: packet.CmdCall}
	st.machine.Receive(now, call)
	assert.Equal(t, "connecting", st.CurrentState())
}

func TestScanningAdvancesChannelAfterScanWindow(t *testing.T) {
	st, _ := newTestStation(t, "AL1")
	now := time.Now()
	require.Equal(t, "40A", st.CurrentChannel())

	// InitChannel seeds a far-future next-sound deadline, so nothing goes
	// stale here; the tick should just rotate to the next channel.
	st.machine.Tick(now.Add(2 * ScanWindow))
	assert.Equal(t, "40B", st.CurrentChannel())
	assert.Equal(t, "scanning", st.CurrentState())
}

