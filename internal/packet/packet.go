// Package packet implements the on-air ALE frame format: a fixed preamble,
// a two-byte command, colon-separated origin/destination addresses, and a
// trailing data field. Framing (where one frame ends and the next begins)
// is provided by the modem, not by this codec.
package packet

import (
	"bytes"
	"fmt"
	"time"
)

// Preamble and separator are fixed, bit-exact wire constants.
var (
	Preamble  = []byte("ALE")
	Separator = []byte(":")
)

// Command tokens.
const (
	CmdSound = "CS"
	CmdAck   = "CA"
	CmdCall  = "CC"
	CmdEnd   = "CE"
)

// Special addresses.
const (
	AddressAny = "ANY"
	AddressAll = "ALL"
)

const commandLen = 2

// Packet is the on-air ALE frame. Origin, Destination, Command, and Data
// are immutable once Pack has been called on a packet built for
// transmission; Timestamp, Confidence, and Channel are set exactly once,
// by the receive path, on a packet built by Unpack.
type Packet struct {
	Origin      string
	Destination string
	Command     string
	Data        []byte

	Timestamp  float64 // wall-clock seconds, set on receive
	Confidence float64 // modem-supplied, set on receive
	Channel    string  // set on receive
}

// Pack serializes the packet to its on-air byte form:
//
//	PREAMBLE || command(2) || origin || ':' || destination || ':' || data
func (p *Packet) Pack() []byte {
	var buf bytes.Buffer
	buf.Write(Preamble)
	buf.WriteString(p.Command)
	buf.WriteString(p.Origin)
	buf.Write(Separator)
	buf.WriteString(p.Destination)
	buf.Write(Separator)
	buf.Write(p.Data)
	return buf.Bytes()
}

// Unpack parses raw on-air bytes into a Packet. It returns an error if the
// preamble does not match or either separator is missing; per spec, a
// failed parse must result in the packet being silently dropped by the
// caller — this function only reports the failure, it never panics or
// logs.
func Unpack(raw []byte) (*Packet, error) {
	if len(raw) < len(Preamble)+commandLen {
		return nil, fmt.Errorf("packet: too short (%d bytes)", len(raw))
	}
	if !bytes.HasPrefix(raw, Preamble) {
		return nil, fmt.Errorf("packet: bad preamble")
	}
	rest := raw[len(Preamble):]
	if len(rest) < commandLen {
		return nil, fmt.Errorf("packet: missing command")
	}
	command := string(rest[:commandLen])
	rest = rest[commandLen:]

	addrSep := bytes.Index(rest, Separator)
	if addrSep < 0 {
		return nil, fmt.Errorf("packet: missing address separator")
	}
	origin := rest[:addrSep]
	rest = rest[addrSep+len(Separator):]

	dataSep := bytes.Index(rest, Separator)
	if dataSep < 0 {
		return nil, fmt.Errorf("packet: missing data separator")
	}
	destination := rest[:dataSep]
	data := rest[dataSep+len(Separator):]

	out := make([]byte, len(data))
	copy(out, data)

	return &Packet{
		Command:     command,
		Origin:      string(origin),
		Destination: string(destination),
		Data:        out,
	}, nil
}

// ModemFramingOverhead is the number of bytes the modem adds around each
// packet for its own delimiting, counted against the minimum-transmit-time
// padding rule below.
const ModemFramingOverhead = 6

// PadForMinimumAirtime pads data (in place, by appending '#' bytes) so that
// the total on-air length of a CALL or SOUND packet — including
// ModemFramingOverhead — is at least minLen bytes. minLen is computed by
// the caller from baudrate and SCAN_WINDOW per spec.md §4.1; this function
// only performs the padding arithmetic and mutation.
func (p *Packet) PadForMinimumAirtime(minLen int) {
	packetLen := len(p.Pack()) + ModemFramingOverhead
	if packetLen >= minLen {
		return
	}
	pad := bytes.Repeat([]byte{'#'}, minLen-packetLen)
	p.Data = append(p.Data, pad...)
}

// IsCommand reports whether s is one of the four recognized command
// tokens.
func IsCommand(s string) bool {
	switch s {
	case CmdSound, CmdAck, CmdCall, CmdEnd:
		return true
	default:
		return false
	}
}

// UnixSeconds converts a time.Time to the wall-clock-seconds float used by
// the Timestamp field, matching the reference implementation's use of a
// plain epoch float rather than a structured timestamp.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// TimeFromUnixSeconds is the inverse of UnixSeconds.
func TimeFromUnixSeconds(s float64) time.Time {
	sec := int64(s)
	nsec := int64((s - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}
