package modem

import "sync"

// NullModem is a Modem collaborator with no physical layer at all: Send
// records what would have been transmitted, CarrierSense never fires, and
// nothing is ever received unless a test calls Deliver directly. It is the
// collaborator used by every state-machine/station test in this
// repository, matching spec.md §5's "unit tests may omit I/O" guidance.
type NullModem struct {
	mu       sync.Mutex
	sent     []NullModemSend
	baudrate int
	callback func(raw []byte, confidence float64)
}

// NullModemSend records one call to Send, for assertions in tests.
type NullModemSend struct {
	Channel string
	Raw     []byte
}

// NewNullModem constructs a NullModem with the given reported baudrate.
func NewNullModem(baudrate int) *NullModem {
	return &NullModem{baudrate: baudrate}
}

func (m *NullModem) Send(channel string, raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(raw))
	copy(cp, raw)
	m.sent = append(m.sent, NullModemSend{Channel: channel, Raw: cp})
}

func (m *NullModem) SetRxCallback(f func(raw []byte, confidence float64)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callback = f
}

func (m *NullModem) CarrierSense() bool { return false }

// TxBufferLen is always 0: NullModem has no transmit queue, sends land
// instantly in the history returned by Sent.
func (m *NullModem) TxBufferLen() int { return 0 }

// PruneChannel is a no-op for NullModem: there is no real queue to prune,
// only the send log used by tests.
func (m *NullModem) PruneChannel(current string) int { return 0 }

func (m *NullModem) Baudrate() int { return m.baudrate }

func (m *NullModem) Stop() {}

// Sent returns a copy of every frame passed to Send so far.
func (m *NullModem) Sent() []NullModemSend {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]NullModemSend, len(m.sent))
	copy(out, m.sent)
	return out
}

// Deliver simulates an incoming frame, invoking the installed rx callback
// exactly as AudioModem would.
func (m *NullModem) Deliver(raw []byte, confidence float64) {
	m.mu.Lock()
	cb := m.callback
	m.mu.Unlock()
	if cb != nil {
		cb(raw, confidence)
	}
}
