// Package analog manages the contrast and brightness outputs and their
// persisted values.
//
// Values live in a byte-addressed non-volatile [Memory] next to a marker
// byte. A marker other than [Marker] means the memory was never written by
// this firmware; [Manager.Init] then resets both channels to full scale.
// [Manager.Set] writes the memory only when the value changes but always
// drives the [Output].
package analog

import (
	"fmt"

	"github.com/ardnew/lcd2usb/pkg"
)

// Channel selects an analog output.
type Channel uint8

// Analog channels.
const (
	Contrast   Channel = 0
	Brightness Channel = 1

	NumChannels = 2
)

// String returns the channel name.
func (c Channel) String() string {
	switch c {
	case Contrast:
		return "contrast"
	case Brightness:
		return "brightness"
	default:
		return fmt.Sprintf("channel%d", uint8(c))
	}
}

// Persisted layout.
const (
	AddrMarker     uint16 = 0
	AddrContrast   uint16 = 1
	AddrBrightness uint16 = 2

	// Marker identifies memory holding application-written values.
	Marker = 0x42

	// Default is the value of both channels on first use.
	Default = 0xFF
)

// addr returns the persisted address of ch.
func (c Channel) addr() uint16 {
	return AddrContrast + uint16(c)
}

// Memory is byte-addressed storage that survives power loss.
type Memory interface {
	Load(addr uint16) (byte, error)
	Store(addr uint16, v byte) error
}

// Output drives the physical level of a channel.
type Output interface {
	Apply(ch Channel, v byte) error
}

// Manager keeps the outputs in step with the persisted values.
type Manager struct {
	mem   Memory
	out   Output
	value [NumChannels]byte
}

// New creates a manager. Call Init before Set.
func New(mem Memory, out Output) *Manager {
	return &Manager{mem: mem, out: out}
}

// Init validates the persisted values, writing the marker and defaults when
// the marker is missing, and applies both channels to the output.
func (m *Manager) Init() error {
	marker, err := m.mem.Load(AddrMarker)
	if err != nil {
		return fmt.Errorf("load marker: %w", err)
	}
	if marker != Marker {
		pkg.LogInfo(pkg.ComponentAnalog, "initializing persisted values",
			"marker", marker)
		if err := m.mem.Store(AddrMarker, Marker); err != nil {
			return fmt.Errorf("store marker: %w", err)
		}
		for ch := range Channel(NumChannels) {
			if err := m.mem.Store(ch.addr(), Default); err != nil {
				return fmt.Errorf("store %s: %w", ch, err)
			}
		}
	}

	for ch := range Channel(NumChannels) {
		v, err := m.mem.Load(ch.addr())
		if err != nil {
			return fmt.Errorf("load %s: %w", ch, err)
		}
		if err := m.apply(ch, v); err != nil {
			return err
		}
	}
	return nil
}

// Set stores v for ch if it differs from the persisted value, then applies
// it to the output.
func (m *Manager) Set(ch Channel, v byte) error {
	if ch >= NumChannels {
		return fmt.Errorf("%w: %d", pkg.ErrInvalidChannel, ch)
	}
	stored, err := m.mem.Load(ch.addr())
	if err != nil {
		return fmt.Errorf("load %s: %w", ch, err)
	}
	if stored != v {
		if err := m.mem.Store(ch.addr(), v); err != nil {
			return fmt.Errorf("store %s: %w", ch, err)
		}
	}
	return m.apply(ch, v)
}

// Value returns the level last applied to ch.
func (m *Manager) Value(ch Channel) byte {
	if ch >= NumChannels {
		return 0
	}
	return m.value[ch]
}

func (m *Manager) apply(ch Channel, v byte) error {
	m.value[ch] = v
	if err := m.out.Apply(ch, v); err != nil {
		return fmt.Errorf("apply %s: %w", ch, err)
	}
	pkg.LogDebug(pkg.ComponentAnalog, "output applied", "channel", ch.String(), "value", v)
	return nil
}
