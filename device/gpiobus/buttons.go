package gpiobus

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// Key bits reported by Buttons.Keys.
const (
	KeyS1 = 1 << 0
	KeyS2 = 1 << 1
)

// Buttons reads the two push buttons. They short their line to ground, so
// a pressed button reads low against the pull-up. A nil pin never reads as
// pressed.
type Buttons struct {
	s [2]gpio.PinIO
}

// NewButtons configures s1 and s2 as inputs with pull-ups.
func NewButtons(s1, s2 gpio.PinIO) (*Buttons, error) {
	b := &Buttons{s: [2]gpio.PinIO{s1, s2}}
	for _, p := range b.s {
		if p == nil {
			continue
		}
		if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	return b, nil
}

// Keys returns the bitmap of pressed buttons.
func (b *Buttons) Keys() (byte, error) {
	var keys byte
	for i, p := range b.s {
		if p != nil && p.Read() == gpio.Low {
			keys |= 1 << i
		}
	}
	return keys, nil
}
