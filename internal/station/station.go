package station

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/kb9vnr/goale/internal/lqa"
	"github.com/kb9vnr/goale/internal/packet"
)

// Modem is the contract the station requires from its physical-layer
// collaborator. AudioModem (internal/modem) and NullModem satisfy it.
type Modem interface {
	Send(channel string, raw []byte)
	SetRxCallback(func(raw []byte, confidence float64))
	CarrierSense() bool
	TxBufferLen() int
	PruneChannel(current string) int
	Baudrate() int
	Stop()
}

// Sideband selects the radio's demodulation sideband.
type Sideband int

const (
	USB Sideband = iota
	LSB
)

// Radio is the contract the station requires from its radio-control
// collaborator.
type Radio interface {
	SetVFOA(freqHz int) error
	SetSideband(sb Sideband) error
}

// Logger receives human-readable station log lines. alelog.Queue satisfies
// this; tests may supply a no-op or recording stub.
type Logger interface {
	Log(line string)
}

// Observer receives operational events for metrics/dashboard reporting. It
// is distinct from Callbacks: callbacks are the protocol-level hooks an
// application wires its own behavior to, while Observer is a secondary,
// best-effort fan-out for counters and live status (see internal/monitor).
type Observer interface {
	OnStateTransition(to string)
	OnCallResult(result string)
	OnSound()
}

// Callbacks are the four user-facing event hooks.
type Callbacks struct {
	OnReceive      func(raw []byte)
	OnIncomingCall func(origin string)
	OnConnected    func(peer string)
	OnDisconnected func(peer string, durationSeconds int)
}

// Channel is a single scanlist entry.
type Channel struct {
	Freq int
	Mode Sideband
}

// Scanlist is a named, ordered rotation of channels.
type Scanlist struct {
	Name     string
	Order    []string
	Channels map[string]Channel
}

// Config seeds a new Station's configuration.
type Config struct {
	Address        string
	GroupAddresses []string
	Whitelist      []string
	Blacklist      []string
	Scanlists      map[string]*Scanlist
	ScanlistName   string
}

// Station owns the scanlist, channels, self-addresses, filter lists, the
// state machine, the LQA store, and the modem/radio collaborators. It runs
// the background scheduler (see Run) that drives everything.
type Station struct {
	mu sync.RWMutex

	addresses      []string // addresses[0] is primary
	groupAddresses []string
	whitelist      map[string]bool
	whitelistOn    bool
	blacklist      map[string]bool
	blacklistOn    bool

	scanlists    map[string]*Scanlist
	scanlistName string
	channelIdx   int

	modem    Modem
	radio    Radio
	lqaStore *lqa.Store
	machine  *Machine
	logger   Logger

	callbacks Callbacks
	observer  Observer

	online   bool // flipped false only by Stop; gates the scheduler loop
	radioOK  bool // flipped false by a radio I/O failure; gates sends

	rxCh  chan rxEvent
	cmdCh chan func(now time.Time)
	done  chan struct{}
}

type rxEvent struct {
	raw        []byte
	confidence float64
}

// New constructs a Station. The returned station is idle until Run is
// called; LQA history should be loaded via LQA().LoadHistory before Run if
// persistence is wanted.
func New(cfg Config, modem Modem, radio Radio, logger Logger) *Station {
	st := &Station{
		addresses:      append([]string{cfg.Address}, cfg.GroupAddresses...),
		groupAddresses: cfg.GroupAddresses,
		whitelist:      toSet(cfg.Whitelist),
		blacklist:      toSet(cfg.Blacklist),
		scanlists:      cfg.Scanlists,
		scanlistName:   cfg.ScanlistName,
		modem:          modem,
		radio:          radio,
		logger:         logger,
		radioOK:        true,
		rxCh:           make(chan rxEvent, 64),
		cmdCh:          make(chan func(now time.Time)),
		done:           make(chan struct{}),
	}
	st.whitelistOn = len(st.whitelist) > 0
	st.blacklistOn = len(st.blacklist) > 0
	if st.whitelist == nil {
		st.whitelist = make(map[string]bool)
	}
	if st.blacklist == nil {
		st.blacklist = make(map[string]bool)
	}
	st.lqaStore = lqa.New(st)
	st.machine = newMachine(st)

	for _, ch := range st.ScanlistChannels() {
		st.lqaStore.InitChannel(ch)
	}

	if modem != nil {
		modem.SetRxCallback(func(raw []byte, confidence float64) {
			select {
			case st.rxCh <- rxEvent{raw: raw, confidence: confidence}:
			default:
				// Backpressure: drop rather than block the modem's
				// receive goroutine.
			}
		})
	}

	return st
}

// SetCallbacks installs the four user-facing event hooks.
func (st *Station) SetCallbacks(cb Callbacks) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.callbacks = cb
}

// SetObserver installs the metrics/dashboard observer. Optional.
func (st *Station) SetObserver(o Observer) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.observer = o
}

func (st *Station) notifyTransition(to string) {
	st.mu.RLock()
	o := st.observer
	st.mu.RUnlock()
	if o == nil {
		return
	}
	o.OnStateTransition(to)
	if to == "sounding" {
		o.OnSound()
	}
}

func (st *Station) notifyCallResult(result string) {
	st.mu.RLock()
	o := st.observer
	st.mu.RUnlock()
	if o != nil {
		o.OnCallResult(result)
	}
}

// LQA returns the station's LQA store.
func (st *Station) LQA() *lqa.Store { return st.lqaStore }

// Modem returns the station's modem collaborator, or nil in text mode.
func (st *Station) Modem() Modem { return st.modem }

// Online reports whether the scheduler loop is still running.
func (st *Station) Online() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.online
}

// CurrentState returns the active state's name.
func (st *Station) CurrentState() string { return st.machine.CurrentName() }

// Done returns a channel closed once Stop has been called, for goroutines
// that need to wind down alongside the station's scheduler loop.
func (st *Station) Done() <-chan struct{} { return st.done }

// ScanlistChannels returns the current scanlist's channel names in
// rotation order. Satisfies lqa.ChannelSource.
func (st *Station) ScanlistChannels() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	sl := st.scanlists[st.scanlistName]
	if sl == nil {
		return nil
	}
	out := make([]string, len(sl.Order))
	copy(out, sl.Order)
	return out
}

// ScanlistName returns the name of the current scanlist.
func (st *Station) ScanlistName() string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.scanlistName
}

// NumChannels returns the channel count of the current scanlist.
func (st *Station) NumChannels() int {
	return len(st.ScanlistChannels())
}

// CurrentChannel returns the name of the channel currently tuned.
func (st *Station) CurrentChannel() string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	order := st.scanlists[st.scanlistName]
	if order == nil || len(order.Order) == 0 {
		return ""
	}
	return order.Order[st.channelIdx%len(order.Order)]
}

// NextChannelName returns the next channel in rotation without tuning it.
func (st *Station) NextChannelName() string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	sl := st.scanlists[st.scanlistName]
	if sl == nil || len(sl.Order) == 0 {
		return ""
	}
	return sl.Order[(st.channelIdx+1)%len(sl.Order)]
}

// CallTimeout derives call_timeout = SCAN_WINDOW·(N+1) from the current
// scanlist's channel count.
func (st *Station) CallTimeout() time.Duration { return callTimeoutFor(st.NumChannels()) }

// SoundTimeout derives sound_timeout = SCAN_WINDOW·(N+1).
func (st *Station) SoundTimeout() time.Duration { return soundTimeoutFor(st.NumChannels()) }

// SetChannel tunes the radio to the named channel and records it as
// current. A radio I/O failure takes the station offline for sends (see
// radioOK) and logs the condition, but does not stop the scheduler.
func (st *Station) SetChannel(name string) error {
	st.mu.Lock()
	sl := st.scanlists[st.scanlistName]
	if sl == nil {
		st.mu.Unlock()
		return fmt.Errorf("station: no current scanlist")
	}
	idx := -1
	for i, n := range sl.Order {
		if n == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		st.mu.Unlock()
		return fmt.Errorf("station: unknown channel %q", name)
	}
	ch := sl.Channels[name]
	radio := st.radio
	st.mu.Unlock()

	if radio != nil {
		if err := radio.SetVFOA(ch.Freq); err != nil {
			st.radioFailure(err)
			return err
		}
		if err := radio.SetSideband(ch.Mode); err != nil {
			st.radioFailure(err)
			return err
		}
	}

	st.mu.Lock()
	st.channelIdx = idx
	st.mu.Unlock()
	st.lqaStore.InitChannel(name)
	return nil
}

func (st *Station) radioFailure(err error) {
	st.mu.Lock()
	st.radioOK = false
	st.mu.Unlock()
	st.Log(fmt.Sprintf("radio I/O failure: %v", err))
}

// RadioOK reports whether the radio is still believed healthy.
func (st *Station) RadioOK() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.radioOK
}

// GetChannelFreqList returns the sorted frequencies of the current
// scanlist's channels, per original_source's get_channel_freq_list.
func (st *Station) GetChannelFreqList() []int {
	st.mu.RLock()
	sl := st.scanlists[st.scanlistName]
	st.mu.RUnlock()
	if sl == nil {
		return nil
	}
	out := make([]int, 0, len(sl.Order))
	for _, name := range sl.Order {
		out = append(out, sl.Channels[name].Freq)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// Addresses returns the station's self-addresses, primary first.
func (st *Station) Addresses() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]string, len(st.addresses))
	copy(out, st.addresses)
	return out
}

// IsSelf reports whether dest is exactly one of the station's
// self-addresses (ANY does not match).
func (st *Station) IsSelf(dest string) bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	for _, a := range st.addresses {
		if a == dest {
			return true
		}
	}
	return false
}

// IsSelfOrAny reports whether dest is a self-address or the reserved ANY
// address.
func (st *Station) IsSelfOrAny(dest string) bool {
	if dest == packet.AddressAny {
		return true
	}
	return st.IsSelf(dest)
}

// AddAddress appends a self-address.
func (st *Station) AddAddress(addr string) {
	st.mu.Lock()
	st.addresses = append(st.addresses, addr)
	st.mu.Unlock()
	st.Log(fmt.Sprintf("added address %s", addr))
}

// RemoveAddress removes a self-address, leaving the primary untouched if
// it isn't the one removed.
func (st *Station) RemoveAddress(addr string) {
	st.mu.Lock()
	for i, a := range st.addresses {
		if a == addr {
			st.addresses = append(st.addresses[:i], st.addresses[i+1:]...)
			break
		}
	}
	st.mu.Unlock()
	st.Log(fmt.Sprintf("removed address %s", addr))
}

// SetWhitelistEnabled toggles the whitelist filter.
func (st *Station) SetWhitelistEnabled(on bool) {
	st.mu.Lock()
	st.whitelistOn = on
	st.mu.Unlock()
	st.Log(fmt.Sprintf("whitelist enabled=%v", on))
}

// AddWhitelist adds an address to the whitelist.
func (st *Station) AddWhitelist(addr string) {
	st.mu.Lock()
	st.whitelist[addr] = true
	st.mu.Unlock()
	st.Log(fmt.Sprintf("whitelisted %s", addr))
}

// RemoveWhitelist removes an address from the whitelist.
func (st *Station) RemoveWhitelist(addr string) {
	st.mu.Lock()
	delete(st.whitelist, addr)
	st.mu.Unlock()
	st.Log(fmt.Sprintf("unwhitelisted %s", addr))
}

// SetBlacklistEnabled toggles the blacklist filter.
func (st *Station) SetBlacklistEnabled(on bool) {
	st.mu.Lock()
	st.blacklistOn = on
	st.mu.Unlock()
	st.Log(fmt.Sprintf("blacklist enabled=%v", on))
}

// AddBlacklist adds an address to the blacklist.
func (st *Station) AddBlacklist(addr string) {
	st.mu.Lock()
	st.blacklist[addr] = true
	st.mu.Unlock()
	st.Log(fmt.Sprintf("blacklisted %s", addr))
}

// RemoveBlacklist removes an address from the blacklist.
func (st *Station) RemoveBlacklist(addr string) {
	st.mu.Lock()
	delete(st.blacklist, addr)
	st.mu.Unlock()
	st.Log(fmt.Sprintf("unblacklisted %s", addr))
}

// SetScanlist switches the current scanlist by name and resets to its
// first channel.
func (st *Station) SetScanlist(name string) error {
	st.mu.Lock()
	if _, ok := st.scanlists[name]; !ok {
		st.mu.Unlock()
		return fmt.Errorf("station: unknown scanlist %q", name)
	}
	st.scanlistName = name
	st.channelIdx = 0
	st.mu.Unlock()
	for _, ch := range st.ScanlistChannels() {
		st.lqaStore.InitChannel(ch)
	}
	return nil
}

// Log appends a line to the log store, if one is attached.
func (st *Station) Log(msg string) {
	if st.logger != nil {
		st.logger.Log(msg)
	}
}

// SendALE builds an outgoing ALE packet, applies the minimum-airtime
// padding rule to CALL/SOUND, and hands the packed bytes to the modem. A
// no-op if the radio has failed or there is no modem attached.
func (st *Station) SendALE(command, dest string, data []byte) {
	if !st.RadioOK() || st.modem == nil {
		return
	}
	p := &packet.Packet{
		Origin:      st.Addresses()[0],
		Destination: dest,
		Command:     command,
		Data:        data,
	}
	if command == packet.CmdCall || command == packet.CmdSound {
		baud := st.modem.Baudrate()
		minLen := baud / 8 // ⌊baudrate/8 · SCAN_WINDOW/3⌋, and SCAN_WINDOW/3 == 1s
		p.PadForMinimumAirtime(minLen)
	}
	st.modem.Send(st.CurrentChannel(), p.Pack())
}

// Send transmits an arbitrary (non-ALE) data frame, optionally treating it
// as a keepalive for the local CONNECTED timeout. Marshaled onto the
// scheduler goroutine so it is never interleaved with in-flight packet
// handling (spec.md §5 ordering guarantee b).
func (st *Station) Send(data []byte, keepAlive bool) {
	st.enqueue(func(now time.Time) {
		if !st.RadioOK() || st.modem == nil {
			return
		}
		st.modem.Send(st.CurrentChannel(), data)
		if keepAlive {
			st.machine.KeepAlive(now)
		}
	})
}

// Call issues a user-initiated call, marshaled onto the scheduler goroutine
// so it is never interleaved with in-flight packet handling.
func (st *Station) Call(address string) {
	st.enqueue(func(now time.Time) {
		st.machine.Call(now, address)
	})
}

// Stop flips the online flag and closes Done; the scheduler loop exits on
// its next iteration. Stop does not save LQA history or flush the log
// queue; cmd/alestation does both itself after calling Stop.
func (st *Station) Stop() {
	st.mu.Lock()
	if !st.online {
		st.mu.Unlock()
		return
	}
	st.online = false
	st.mu.Unlock()
	close(st.done)
}

func (st *Station) enqueue(fn func(now time.Time)) {
	select {
	case st.cmdCh <- fn:
	case <-st.done:
	}
}

func (st *Station) receive(raw []byte, confidence float64) {
	now := time.Now()

	if !bytes.HasPrefix(raw, packet.Preamble) {
		if st.machine.CurrentName() == "connected" {
			st.machine.KeepAlive(now)
			st.mu.RLock()
			cb := st.callbacks.OnReceive
			st.mu.RUnlock()
			if cb != nil {
				cb(raw)
			}
		}
		return
	}

	p, err := packet.Unpack(raw)
	if err != nil {
		return
	}
	p.Timestamp = packet.UnixSeconds(now)
	p.Channel = st.CurrentChannel()
	p.Confidence = confidence
	st.lqaStore.Store(p)

	st.mu.RLock()
	wlOn, wl := st.whitelistOn, st.whitelist
	blOn, bl := st.blacklistOn, st.blacklist
	st.mu.RUnlock()
	if wlOn && !wl[p.Origin] {
		return
	}
	if blOn && bl[p.Origin] {
		return
	}

	st.machine.Receive(now, p)
}

// FireIncomingCall invokes the on_incoming_call callback, if set.
func (st *Station) FireIncomingCall(origin string) {
	st.mu.RLock()
	cb := st.callbacks.OnIncomingCall
	st.mu.RUnlock()
	if cb != nil {
		cb(origin)
	}
}

// FireConnected invokes the on_connected callback, if set.
func (st *Station) FireConnected(peer string) {
	st.mu.RLock()
	cb := st.callbacks.OnConnected
	st.mu.RUnlock()
	if cb != nil {
		cb(peer)
	}
	st.notifyCallResult("connected")
}

// FireDisconnected invokes the on_disconnected callback, if set.
func (st *Station) FireDisconnected(peer string, durationSeconds int) {
	st.mu.RLock()
	cb := st.callbacks.OnDisconnected
	st.mu.RUnlock()
	if cb != nil {
		cb(peer, durationSeconds)
	}
	st.notifyCallResult("disconnected")
}

// Run starts the station: seeds the initial state, then drives the
// scheduler loop until Stop is called. Run blocks; callers typically start
// it in its own goroutine.
func (st *Station) Run() {
	st.mu.Lock()
	st.online = true
	st.mu.Unlock()

	st.machine.start(time.Now())

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	logTicker := time.NewTicker(time.Second)
	defer logTicker.Stop()

	for {
		select {
		case <-st.done:
			return
		case ev := <-st.rxCh:
			st.receive(ev.raw, ev.confidence)
		case cmd := <-st.cmdCh:
			cmd(time.Now())
		case <-logTicker.C:
			if flusher, ok := st.logger.(interface{ Flush() error }); ok {
				_ = flusher.Flush()
			}
		case <-ticker.C:
			st.machine.Tick(time.Now())
			if st.modem != nil {
				st.modem.PruneChannel(st.CurrentChannel())
			}
		}
	}
}
