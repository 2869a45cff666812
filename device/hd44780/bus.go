package hd44780

import "math/bits"

// Mask selects a set of controllers by their enable lines.
type Mask uint8

// Controller masks.
const (
	Ctrl0 Mask = 1 << 0
	Ctrl1 Mask = 1 << 1
	Both       = Ctrl0 | Ctrl1

	// MaxControllers is the number of enable lines on the bus.
	MaxControllers = 2
)

// Single reports whether m selects exactly one controller.
func (m Mask) Single() bool {
	return m&Both != 0 && bits.OnesCount8(uint8(m&Both)) == 1
}

// Each calls fn for every controller selected by m, lowest first, and stops
// at the first error.
func (m Mask) Each(fn func(ctrl Mask) error) error {
	for i := range MaxControllers {
		ctrl := Mask(1) << i
		if m&ctrl == 0 {
			continue
		}
		if err := fn(ctrl); err != nil {
			return err
		}
	}
	return nil
}

// Bus owns the physical lines shared by the controllers.
//
// Data values use bits 4–7 for D4–D7; bits 0–3 are ignored on output and
// zero on input. Implementations need not be safe for concurrent use: the
// driver calls them from a single goroutine.
type Bus interface {
	// SetRS selects data (true) or instruction (false) addressing.
	SetRS(data bool) error

	// SetRW selects read (true) or write (false) mode.
	SetRW(read bool) error

	// Output switches D4–D7 to outputs and drives the high nibble of v.
	Output(v byte) error

	// Input switches D4–D7 to inputs with pull-ups enabled.
	Input() error

	// Sample reads D4–D7 into the high nibble of the result.
	Sample() (byte, error)

	// Enable drives the enable line of every controller in mask.
	Enable(mask Mask, high bool) error
}
