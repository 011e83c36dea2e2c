// Package config loads and saves the station's on-disk state: the
// ~/.ale/config and ~/.ale/scanlists JSON files specified bit-exactly by
// spec.md §6. The wire schema is mandated, so this package talks
// encoding/json directly rather than through a generic config-loading
// library (see DESIGN.md).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/kb9vnr/goale/internal/station"
)

// File holds the contents of ~/.ale/config.
type File struct {
	Address        string       `json:"address"`
	GroupAddresses []string     `json:"group_addresses,omitempty"`
	Whitelist      []string     `json:"whitelist,omitempty"`
	Blacklist      []string     `json:"blacklist,omitempty"`
	Scanlist       string       `json:"scanlist,omitempty"`
	Radio          RadioConfig  `json:"radio"`
	Modem          ModemConfig  `json:"modem"`
}

// RadioConfig is the "radio" sub-object of the config file.
type RadioConfig struct {
	SerialPort string `json:"serial_port,omitempty"`
}

// ModemConfig is the "modem" sub-object of the config file.
type ModemConfig struct {
	AlsaDevice string  `json:"alsa_device,omitempty"`
	Baudrate   int     `json:"baudrate,omitempty"`
	SyncByte   string  `json:"sync_byte,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// channelFile mirrors a single scanlist entry on disk.
type channelFile struct {
	Freq int    `json:"freq"`
	Mode string `json:"mode"`
}

const (
	defaultScanlist   = "General"
	defaultAlsaDevice = "QDX"
	defaultBaudrate   = 300
	defaultSyncByte   = "0x23"
	defaultConfidence = 1.5
)

// defaultScanlists mirrors original_source's ale/scanlist.py default
// table, the starting point written to disk when no scanlists file exists
// yet.
func defaultScanlists() map[string]map[string]channelFile {
	return map[string]map[string]channelFile{
		"General": {
			"40A": {Freq: 7057000, Mode: "USB"},
			"40B": {Freq: 7157000, Mode: "USB"},
			"20A": {Freq: 14057000, Mode: "USB"},
			"20B": {Freq: 14157000, Mode: "USB"},
			"10A": {Freq: 28557000, Mode: "USB"},
			"10B": {Freq: 29257000, Mode: "USB"},
		},
		"NVIS": {
			"80A": {Freq: 3557000, Mode: "USB"},
			"80B": {Freq: 3657000, Mode: "USB"},
			"40A": {Freq: 7057000, Mode: "USB"},
			"40B": {Freq: 7157000, Mode: "USB"},
		},
		"HF Packet": {
			"80A": {Freq: 3598000, Mode: "LSB"},
			"40A": {Freq: 7086500, Mode: "USB"},
			"20A": {Freq: 14105000, Mode: "LSB"},
		},
	}
}

// ConfigPath and ScanlistsPath return the on-disk paths for a given
// config directory (typically ~/.ale).
func ConfigPath(dir string) string    { return filepath.Join(dir, "config") }
func ScanlistsPath(dir string) string { return filepath.Join(dir, "scanlists") }
func LQAHistoryPath(dir string) string { return filepath.Join(dir, "lqa_history") }
func LogPath(dir string) string       { return filepath.Join(dir, "log") }

// LoadFile reads and validates ~/.ale/config. addressOverride, when
// non-empty, takes precedence over the config file's address (the CLI's
// -address flag); otherwise address is mandatory and non-empty in the file.
// Every other key takes the documented default when absent.
func LoadFile(dir, addressOverride string) (*File, error) {
	raw, err := os.ReadFile(ConfigPath(dir))
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", ConfigPath(dir), err)
	}
	if addressOverride != "" {
		f.Address = addressOverride
	}
	if f.Address == "" {
		return nil, fmt.Errorf("config: address is mandatory and must be non-empty")
	}
	if f.Scanlist == "" {
		f.Scanlist = defaultScanlist
	}
	if f.Modem.AlsaDevice == "" {
		f.Modem.AlsaDevice = defaultAlsaDevice
	}
	if f.Modem.Baudrate == 0 {
		f.Modem.Baudrate = defaultBaudrate
	}
	if f.Modem.SyncByte == "" {
		f.Modem.SyncByte = defaultSyncByte
	}
	if f.Modem.Confidence == 0 {
		f.Modem.Confidence = defaultConfidence
	}
	return &f, nil
}

// SaveFile writes f to ~/.ale/config.
func SaveFile(dir string, f *File) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(ConfigPath(dir), raw, 0o600)
}

// LoadScanlists reads ~/.ale/scanlists, writing and returning the default
// table if the file does not yet exist, per spec.md §6.
//
// A channel's rotation order within a scanlist is its channel name sorted
// lexically: JSON object key order is not preserved by encoding/json, and
// the spec's testable properties (full-rotation coverage within
// N·SCAN_WINDOW) do not depend on any particular ordering, only a
// deterministic one.
func LoadScanlists(dir string) (map[string]*station.Scanlist, error) {
	raw, err := os.ReadFile(ScanlistsPath(dir))
	if os.IsNotExist(err) {
		defaults := defaultScanlists()
		if werr := saveScanlistFiles(dir, defaults); werr != nil {
			return nil, werr
		}
		return toScanlists(defaults), nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanlists: %w", err)
	}

	var raw2 map[string]map[string]channelFile
	if err := json.Unmarshal(raw, &raw2); err != nil {
		return nil, fmt.Errorf("scanlists: parse %s: %w", ScanlistsPath(dir), err)
	}
	return toScanlists(raw2), nil
}

func saveScanlistFiles(dir string, table map[string]map[string]channelFile) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(ScanlistsPath(dir), raw, 0o600)
}

func toScanlists(table map[string]map[string]channelFile) map[string]*station.Scanlist {
	out := make(map[string]*station.Scanlist, len(table))
	for name, channels := range table {
		sl := &station.Scanlist{
			Name:     name,
			Channels: make(map[string]station.Channel, len(channels)),
		}
		for chName, ch := range channels {
			sl.Order = append(sl.Order, chName)
			sl.Channels[chName] = station.Channel{Freq: ch.Freq, Mode: parseSideband(ch.Mode)}
		}
		sort.Strings(sl.Order)
		out[name] = sl
	}
	return out
}

func parseSideband(mode string) station.Sideband {
	if mode == "LSB" {
		return station.LSB
	}
	return station.USB
}
