package modem

import (
	"sync"
	"time"

	"github.com/kb9vnr/goale/internal/audio"
	"github.com/kb9vnr/goale/internal/fec"
)

// txEntry is a single enqueued transmission, tagged with the channel that
// was active when it was built — the station's scheduler prunes entries
// whose tag no longer matches the current channel (spec.md §4.5d).
type txEntry struct {
	channel string
	raw     []byte
}

// AudioModem is the reference Modem collaborator: an OFDM-over-audio
// physical layer with Reed-Solomon FEC, satisfying the station's Modem
// contract (Send/SetRxCallback/CarrierSense/TxBufferLen/PruneChannel/
// Baudrate/Stop).
type AudioModem struct {
	io         *audio.AudioIO
	mod        Modulation
	rs         *fec.RSEncoder
	baudrate   int
	carrierTTL time.Duration

	mu          sync.Mutex
	txQueue     []txEntry
	lastCarrier time.Time

	rxCallback func(raw []byte, confidence float64)

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewAudioModem constructs an AudioModem over an already-opened duplex
// AudioIO, using QPSK (robust, low-baudrate default matching HF
// throughput) and the default RS(64,48) shard split sized for ALE's
// small control packets.
func NewAudioModem(io *audio.AudioIO) (*AudioModem, error) {
	rs, err := fec.NewRSEncoder()
	if err != nil {
		return nil, err
	}
	bitsPerSym := BitsPerOFDMSymbol(ModQPSK)
	symbolRate := float64(audio.SampleRate) / float64(SymbolLen)
	baudrate := int(symbolRate * float64(bitsPerSym))

	m := &AudioModem{
		io:         io,
		mod:        ModQPSK,
		rs:         rs,
		baudrate:   baudrate,
		carrierTTL: 200 * time.Millisecond,
		stop:       make(chan struct{}),
	}
	return m, nil
}

// Start starts the underlying audio streams and launches the background
// sender and receiver goroutines.
func (m *AudioModem) Start() error {
	if err := m.io.StartOutput(); err != nil {
		return err
	}
	if err := m.io.StartInput(); err != nil {
		return err
	}
	m.wg.Add(2)
	go m.senderLoop()
	go m.receiverLoop()
	return nil
}

// Send enqueues raw bytes for transmission on channel. Non-blocking: it
// only appends to the in-memory queue, per spec.md §6.
func (m *AudioModem) Send(channel string, raw []byte) {
	m.mu.Lock()
	m.txQueue = append(m.txQueue, txEntry{channel: channel, raw: raw})
	m.mu.Unlock()
}

// SetRxCallback installs the function invoked once per decoded frame.
func (m *AudioModem) SetRxCallback(f func(raw []byte, confidence float64)) {
	m.mu.Lock()
	m.rxCallback = f
	m.mu.Unlock()
}

// CarrierSense reports whether energy has been detected recently.
func (m *AudioModem) CarrierSense() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Since(m.lastCarrier) < m.carrierTTL
}

// TxBufferLen reports the number of pending transmit entries.
func (m *AudioModem) TxBufferLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txQueue)
}

// PruneChannel removes queued entries tagged for a channel other than
// current, returning the number removed.
func (m *AudioModem) PruneChannel(current string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.txQueue[:0]
	removed := 0
	for _, e := range m.txQueue {
		if e.channel == current {
			kept = append(kept, e)
		} else {
			removed++
		}
	}
	m.txQueue = kept
	return removed
}

// Baudrate returns the modem's effective bits-per-second throughput.
func (m *AudioModem) Baudrate() int { return m.baudrate }

// Stop halts the background goroutines, waits for them to exit, and
// stops the underlying audio streams (the caller still owns closing them).
func (m *AudioModem) Stop() {
	select {
	case <-m.stop:
		return
	default:
		close(m.stop)
	}
	m.wg.Wait()
	_ = m.io.StopOutput()
	_ = m.io.StopInput()
}

func (m *AudioModem) senderLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sendOne()
		}
	}
}

func (m *AudioModem) sendOne() {
	m.mu.Lock()
	if len(m.txQueue) == 0 {
		m.mu.Unlock()
		return
	}
	entry := m.txQueue[0]
	m.txQueue = m.txQueue[1:]
	m.mu.Unlock()

	encoded, err := m.rs.Encode(fec.AppendCRC32(entry.raw))
	if err != nil {
		return
	}
	frame := GenerateFrame(encoded, m.mod)
	_ = m.io.WriteSamples(SamplesToFloat32(frame))
}

func (m *AudioModem) receiverLoop() {
	defer m.wg.Done()

	const windowSamples = SymbolLen * 64
	window := make([]float64, 0, windowSamples*2)

	for {
		select {
		case <-m.stop:
			return
		default:
		}

		chunk, err := m.io.Read()
		if err != nil {
			return
		}
		clean := ApplyDCRemoval(Float32ToSamples(chunk))
		window = append(window, clean...)
		if len(window) > windowSamples*2 {
			window = window[len(window)-windowSamples*2:]
		}

		detector := NewPreambleDetector()
		idx, metrics := detector.DetectWithMetrics(window)
		if idx < 0 {
			continue
		}

		m.mu.Lock()
		m.lastCarrier = time.Now()
		m.mu.Unlock()

		expectedBits := (m.rs.DataShards() + m.rs.ParityShards()) * 8
		decoded, err := ReceiveFrame(window[idx:], m.mod, expectedBits)
		if err != nil {
			continue
		}

		rsDecoded, err := m.rs.Decode(decoded)
		if err != nil {
			continue
		}
		payload, ok := fec.VerifyCRC32(rsDecoded)
		if !ok {
			continue
		}

		confidence := confidenceFromMetrics(metrics, idx)
		m.deliver(payload, confidence)
		window = window[:0]
	}
}

func (m *AudioModem) deliver(raw []byte, confidence float64) {
	m.mu.Lock()
	cb := m.rxCallback
	m.mu.Unlock()
	if cb != nil {
		cb(raw, confidence)
	}
}

// confidenceFromMetrics derives a positive confidence score from the
// Schmidl-Cox correlation peak: the higher above the detection threshold,
// the stronger the confidence.
func confidenceFromMetrics(metrics []float64, idx int) float64 {
	if idx < 0 || idx >= len(metrics) {
		return 1.0
	}
	peak := metrics[idx]
	if peak <= 0 {
		return 1.0
	}
	confidence := peak / DetectionThreshold
	if confidence > 10 {
		confidence = 10
	}
	return confidence
}
