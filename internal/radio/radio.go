// Package radio implements the station's Radio collaborators: a no-op
// text-mode radio for running the engine without hardware, and a minimal
// serial-port stub. Driving an actual transceiver's control protocol is an
// explicit non-goal (spec.md §1); SerialRadio exists only to give
// cmd/alestation a concrete, flag-selectable shape for the day that
// protocol gets written.
package radio

import (
	"fmt"

	"github.com/kb9vnr/goale/internal/station"
)

// NoopRadio always succeeds. Used in text mode (original_source ale.py's
// text_mode constructor argument) so the full state machine can run
// without any radio hardware attached.
type NoopRadio struct{}

func (NoopRadio) SetVFOA(freqHz int) error            { return nil }
func (NoopRadio) SetSideband(sb station.Sideband) error { return nil }

// SerialRadio validates its construction arguments but does not implement
// the wire protocol for any real transceiver.
type SerialRadio struct {
	Port     string
	BaudRate int
}

// NewSerialRadio validates arguments for a future serial radio backend.
func NewSerialRadio(port string, baudRate int) (*SerialRadio, error) {
	if port == "" {
		return nil, fmt.Errorf("radio: serial port must not be empty")
	}
	if baudRate <= 0 {
		return nil, fmt.Errorf("radio: baud rate must be positive")
	}
	return &SerialRadio{Port: port, BaudRate: baudRate}, nil
}

func (r *SerialRadio) SetVFOA(freqHz int) error {
	return fmt.Errorf("radio: serial VFO control not implemented")
}

func (r *SerialRadio) SetSideband(sb station.Sideband) error {
	return fmt.Errorf("radio: serial sideband control not implemented")
}
