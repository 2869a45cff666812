// Package config loads and saves the YAML configuration shared by the
// lcd2usbd daemon and the lcd2usb tool.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/ardnew/lcd2usb/pkg"
)

// Transport names accepted in host.transport.
const (
	TransportFIFO  = "fifo"
	TransportUSBFS = "usbfs"
)

// Defaults.
const (
	DefaultBusDir       = "/tmp/lcd2usb-bus"
	DefaultPWMFrequency = "20kHz"
	DefaultClockSpec    = "@every 1s"
	DefaultClockLayout  = "Mon Jan _2\n15:04:05"
	DefaultLogLevel     = "warn"
	DefaultLogFormat    = "text"
	DefaultTimeout      = time.Second
	DefaultConnect      = 2 * time.Second
)

// Config is the top-level configuration.
type Config struct {
	Device DeviceConfig `yaml:"device"`
	Host   HostConfig   `yaml:"host"`
	Log    LogConfig    `yaml:"log"`
}

// DeviceConfig configures the lcd2usbd daemon.
type DeviceConfig struct {
	// BusDir is the named-pipe bus directory shared with the host tool.
	BusDir string `yaml:"bus_dir"`

	// EEPROM is the file standing in for the analog settings memory.
	EEPROM string `yaml:"eeprom"`

	// Simulate replaces the GPIO bus with simulated controllers.
	Simulate bool `yaml:"simulate"`

	// Controllers is the number of simulated controllers (0-2).
	Controllers int `yaml:"controllers"`

	// MaxPolls bounds busy-flag polling; 0 waits forever.
	MaxPolls int `yaml:"max_polls"`

	// Dump prints the simulated display on exit.
	Dump bool `yaml:"dump"`

	Pins         Pins   `yaml:"pins"`
	PWMFrequency string `yaml:"pwm_frequency"`
}

// Pins names GPIO lines by their periph registry names. Empty optional
// pins (e1, s1, s2, contrast, brightness) are left unconnected.
type Pins struct {
	RS         string `yaml:"rs"`
	RW         string `yaml:"rw"`
	E0         string `yaml:"e0"`
	E1         string `yaml:"e1"`
	D4         string `yaml:"d4"`
	D5         string `yaml:"d5"`
	D6         string `yaml:"d6"`
	D7         string `yaml:"d7"`
	S1         string `yaml:"s1"`
	S2         string `yaml:"s2"`
	Contrast   string `yaml:"contrast"`
	Brightness string `yaml:"brightness"`
}

// HostConfig configures the lcd2usb tool.
type HostConfig struct {
	// Transport is "fifo" for the simulated daemon or "usbfs" for hardware.
	Transport string        `yaml:"transport"`
	BusDir    string        `yaml:"bus_dir"`
	Timeout   time.Duration `yaml:"timeout"`
	Connect   time.Duration `yaml:"connect_timeout"` // wait for the device to appear
	Clock     ClockConfig   `yaml:"clock"`
}

// ClockConfig configures the clock verb.
type ClockConfig struct {
	// Schedule is a cron expression (seconds optional) or descriptor.
	Schedule string `yaml:"schedule"`
	// Layout is a time.Format layout; a newline splits the two rows.
	Layout string `yaml:"layout"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultPins wires a Raspberry Pi header.
func DefaultPins() Pins {
	return Pins{
		RS: "GPIO25", RW: "GPIO24", E0: "GPIO23", E1: "GPIO22",
		D4: "GPIO5", D5: "GPIO6", D6: "GPIO13", D7: "GPIO19",
		S1: "GPIO20", S2: "GPIO21",
		Contrast: "GPIO12", Brightness: "GPIO18",
	}
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			BusDir:       DefaultBusDir,
			EEPROM:       defaultEEPROM(),
			Simulate:     true,
			Controllers:  1,
			Pins:         DefaultPins(),
			PWMFrequency: DefaultPWMFrequency,
		},
		Host: HostConfig{
			Transport: TransportFIFO,
			BusDir:    DefaultBusDir,
			Timeout:   DefaultTimeout,
			Connect:   DefaultConnect,
			Clock: ClockConfig{
				Schedule: DefaultClockSpec,
				Layout:   DefaultClockLayout,
			},
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

func defaultEEPROM() string {
	return filepath.Join(os.TempDir(), "lcd2usb-eeprom.bin")
}

// DefaultPath returns the per-user configuration file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "lcd2usb", "config.yaml")
}

// Normalize fills in missing values and replaces out-of-range ones with
// defaults, so partially written files still work.
func (c *Config) Normalize() {
	d := &c.Device
	if d.BusDir == "" {
		d.BusDir = DefaultBusDir
	}
	if d.EEPROM == "" {
		d.EEPROM = defaultEEPROM()
	}
	if d.Controllers < 0 || d.Controllers > 2 {
		d.Controllers = 1
	}
	if d.MaxPolls < 0 {
		d.MaxPolls = 0
	}
	if d.Pins == (Pins{}) {
		d.Pins = DefaultPins()
	}
	if d.PWMFrequency == "" {
		d.PWMFrequency = DefaultPWMFrequency
	}

	h := &c.Host
	switch h.Transport {
	case TransportFIFO, TransportUSBFS:
	default:
		h.Transport = TransportFIFO
	}
	if h.BusDir == "" {
		h.BusDir = d.BusDir
	}
	if h.Timeout <= 0 {
		h.Timeout = DefaultTimeout
	}
	if h.Connect <= 0 {
		h.Connect = DefaultConnect
	}
	if h.Clock.Schedule == "" {
		h.Clock.Schedule = DefaultClockSpec
	}
	if h.Clock.Layout == "" {
		h.Clock.Layout = DefaultClockLayout
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

// Frequency parses the PWM frequency, e.g. "20kHz".
func (d DeviceConfig) Frequency() (physic.Frequency, error) {
	var f physic.Frequency
	if err := f.Set(d.PWMFrequency); err != nil {
		return 0, fmt.Errorf("%w: pwm_frequency %q: %w", pkg.ErrInvalidParameter, d.PWMFrequency, err)
	}
	return f, nil
}

// Load reads the configuration at path. A missing file is created with
// defaults (0600) and the defaults returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			pkg.LogInfo(pkg.ComponentConfig, "wrote default config", "path", path)
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()
	pkg.LogDebug(pkg.ComponentConfig, "config loaded", "path", path)
	return &cfg, nil
}

// Save writes cfg to path atomically through a temp file and rename. The
// parent directory is created 0700 and the file ends up 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".lcd2usb-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is shorthand for Save(path, c).
func (c *Config) Save(path string) error {
	return Save(path, c)
}
