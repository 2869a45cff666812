package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/ardnew/lcd2usb/pkg"
)

func TestLoadCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Host.Transport != TransportFIFO || cfg.Host.Timeout != DefaultTimeout {
		t.Errorf("Load() host = %+v, want defaults", cfg.Host)
	}

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if fi.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", fi.Mode().Perm())
	}

	again, err := Load(path)
	if err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	if again.Host.Clock != cfg.Host.Clock || again.Device.Pins != cfg.Device.Pins {
		t.Errorf("reloaded config differs: %+v vs %+v", again, cfg)
	}
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
device:
  simulate: false
  controllers: 7
  max_polls: 500
host:
  transport: carrier-pigeon
  timeout: 250ms
  clock:
    layout: "15:04"
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name      string
		got, want any
	}{
		{"simulate", cfg.Device.Simulate, false},
		{"controllers", cfg.Device.Controllers, 1},
		{"max_polls", cfg.Device.MaxPolls, 500},
		{"pins", cfg.Device.Pins, DefaultPins()},
		{"transport", cfg.Host.Transport, TransportFIFO},
		{"timeout", cfg.Host.Timeout, 250 * time.Millisecond},
		{"host bus_dir", cfg.Host.BusDir, DefaultBusDir},
		{"schedule", cfg.Host.Clock.Schedule, DefaultClockSpec},
		{"layout", cfg.Host.Clock.Layout, "15:04"},
		{"log level", cfg.Log.Level, "debug"},
		{"log format", cfg.Log.Format, DefaultLogFormat},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("device: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() accepted malformed YAML")
	}
	if _, err := Load(""); err == nil {
		t.Error("Load(\"\") succeeded")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Host.Transport = TransportUSBFS
	cfg.Device.EEPROM = "/var/lib/lcd2usb/eeprom"
	cfg.Device.Pins.E1 = ""
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Host.Transport != TransportUSBFS || got.Device.EEPROM != cfg.Device.EEPROM {
		t.Errorf("Load() = %+v", got)
	}
	if got.Device.Pins.E1 != "" {
		t.Errorf("E1 = %q, want unconnected", got.Device.Pins.E1)
	}

	// No temp files are left behind.
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want 1", len(entries))
	}
	if err := Save(path, nil); err == nil {
		t.Error("Save(nil) succeeded")
	}
}

func TestFrequency(t *testing.T) {
	d := DeviceConfig{PWMFrequency: "20kHz"}
	f, err := d.Frequency()
	if err != nil || f != 20*physic.KiloHertz {
		t.Errorf("Frequency() = %v, %v, want 20kHz", f, err)
	}

	d.PWMFrequency = "fast"
	if _, err := d.Frequency(); !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Errorf("Frequency() error = %v, want %v", err, pkg.ErrInvalidParameter)
	}
}
