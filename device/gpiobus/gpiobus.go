// Package gpiobus wires the LCD2USB peripherals to GPIO lines through
// periph.io: the shared HD44780 bus, the two push buttons and the PWM
// outputs for contrast and brightness.
package gpiobus

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/ardnew/lcd2usb/device/hd44780"
	"github.com/ardnew/lcd2usb/pkg"
)

// Pins carries the GPIO lines of the HD44780 bus. E1 may be nil when only
// one controller is wired.
type Pins struct {
	RS, RW gpio.PinIO
	E0, E1 gpio.PinIO
	D      [4]gpio.PinIO // D4..D7
}

// Bus implements hd44780.Bus on periph GPIO pins.
type Bus struct {
	pins Pins
}

var _ hd44780.Bus = (*Bus)(nil)

// NewBus validates pins and drives every control line low. The first
// missing line in bus order is reported.
func NewBus(pins Pins) (*Bus, error) {
	required := []struct {
		name string
		pin  gpio.PinIO
	}{
		{"rs", pins.RS}, {"rw", pins.RW}, {"e0", pins.E0},
		{"d4", pins.D[0]}, {"d5", pins.D[1]}, {"d6", pins.D[2]}, {"d7", pins.D[3]},
	}
	for _, r := range required {
		if r.pin == nil {
			return nil, fmt.Errorf("%w: %s", pkg.ErrNoPin, r.name)
		}
	}
	b := &Bus{pins: pins}
	for _, p := range []gpio.PinIO{pins.RS, pins.RW, pins.E0, pins.E1} {
		if p == nil {
			continue
		}
		if err := p.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	return b, nil
}

func level(high bool) gpio.Level {
	if high {
		return gpio.High
	}
	return gpio.Low
}

// SetRS implements hd44780.Bus.
func (b *Bus) SetRS(data bool) error {
	return b.pins.RS.Out(level(data))
}

// SetRW implements hd44780.Bus.
func (b *Bus) SetRW(read bool) error {
	return b.pins.RW.Out(level(read))
}

// Output implements hd44780.Bus.
func (b *Bus) Output(v byte) error {
	for i, p := range b.pins.D {
		if err := p.Out(level(v&(0x10<<i) != 0)); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// Input implements hd44780.Bus.
func (b *Bus) Input() error {
	for _, p := range b.pins.D {
		if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// Sample implements hd44780.Bus.
func (b *Bus) Sample() (byte, error) {
	var v byte
	for i, p := range b.pins.D {
		if p.Read() == gpio.High {
			v |= 0x10 << i
		}
	}
	return v, nil
}

// Enable implements hd44780.Bus.
func (b *Bus) Enable(mask hd44780.Mask, high bool) error {
	if mask&hd44780.Ctrl0 != 0 {
		if err := b.pins.E0.Out(level(high)); err != nil {
			return err
		}
	}
	if mask&hd44780.Ctrl1 != 0 && b.pins.E1 != nil {
		if err := b.pins.E1.Out(level(high)); err != nil {
			return err
		}
	}
	return nil
}

// PinNames names every line by its periph registry name (for example
// "GPIO17"). Empty names leave the line unconnected where that is allowed.
type PinNames struct {
	RS, RW, E0, E1       string
	D4, D5, D6, D7       string
	S1, S2               string
	Contrast, Brightness string
}

// Board is the set of peripherals opened from PinNames.
type Board struct {
	Bus     *Bus
	Buttons *Buttons
	PWM     *PWM
}

// Open initializes the periph host drivers and looks up every named pin.
func Open(names PinNames, freq physic.Frequency) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	var missing error
	pin := func(name string, required bool) gpio.PinIO {
		if name == "" {
			if required && missing == nil {
				missing = fmt.Errorf("%w: unnamed required pin", pkg.ErrNoPin)
			}
			return nil
		}
		p := gpioreg.ByName(name)
		if p == nil && missing == nil {
			missing = fmt.Errorf("%w: %s", pkg.ErrNoPin, name)
		}
		return p
	}

	pins := Pins{
		RS: pin(names.RS, true),
		RW: pin(names.RW, true),
		E0: pin(names.E0, true),
		E1: pin(names.E1, false),
		D:  [4]gpio.PinIO{pin(names.D4, true), pin(names.D5, true), pin(names.D6, true), pin(names.D7, true)},
	}
	s1, s2 := pin(names.S1, false), pin(names.S2, false)
	contrast, brightness := pin(names.Contrast, false), pin(names.Brightness, false)
	if missing != nil {
		return nil, missing
	}

	bus, err := NewBus(pins)
	if err != nil {
		return nil, err
	}
	buttons, err := NewButtons(s1, s2)
	if err != nil {
		return nil, err
	}
	pkg.LogInfo(pkg.ComponentBus, "gpio bus opened",
		"rs", names.RS, "rw", names.RW, "e0", names.E0, "e1", names.E1)
	return &Board{
		Bus:     bus,
		Buttons: buttons,
		PWM:     NewPWM(contrast, brightness, freq),
	}, nil
}
