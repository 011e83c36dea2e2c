package radio

import (
	"testing"

	"github.com/kb9vnr/goale/internal/station"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopRadioAlwaysSucceeds(t *testing.T) {
	var r NoopRadio
	assert.NoError(t, r.SetVFOA(7057000))
	assert.NoError(t, r.SetSideband(station.USB))
}

func TestNewSerialRadioValidatesPort(t *testing.T) {
	_, err := NewSerialRadio("", 9600)
	assert.Error(t, err)
}

func TestNewSerialRadioValidatesBaudRate(t *testing.T) {
	_, err := NewSerialRadio("/dev/ttyUSB0", 0)
	assert.Error(t, err)
}

func TestNewSerialRadioSucceedsWithValidArgs(t *testing.T) {
	r, err := NewSerialRadio("/dev/ttyUSB0", 9600)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", r.Port)
	assert.Equal(t, 9600, r.BaudRate)
}

func TestSerialRadioControlNotImplemented(t *testing.T) {
	r, err := NewSerialRadio("/dev/ttyUSB0", 9600)
	require.NoError(t, err)
	assert.Error(t, r.SetVFOA(7057000))
	assert.Error(t, r.SetSideband(station.LSB))
}
