package sim

import (
	"time"

	"github.com/ardnew/lcd2usb/device/hd44780"
)

// ExecTime is how long a controller stays busy after an instruction.
const ExecTime = 37 * time.Microsecond

// Bus is a simulated shared bus with up to two controllers attached.
type Bus struct {
	ctrl  [hd44780.MaxControllers]*Controller
	rs    bool
	rw    bool
	input bool
	out   byte
	e     hd44780.Mask
	drive [hd44780.MaxControllers]byte
}

var _ hd44780.Bus = (*Bus)(nil)

// NewBus attaches ctrl0 and ctrl1 to a bus. A nil controller leaves its
// enable line unconnected.
func NewBus(ctrl0, ctrl1 *Controller) *Bus {
	return &Bus{ctrl: [hd44780.MaxControllers]*Controller{ctrl0, ctrl1}, out: 0xF0}
}

// Sleep is a delay function for hd44780.Options. Delays of at least
// ExecTime let every attached controller finish its pending instruction;
// the call itself does not block.
func (b *Bus) Sleep(d time.Duration) {
	if d < ExecTime {
		return
	}
	for _, c := range b.ctrl {
		if c != nil {
			c.busyLeft = 0
		}
	}
}

// Controller returns the controller behind enable line i, or nil.
func (b *Bus) Controller(i int) *Controller {
	if i < 0 || i >= len(b.ctrl) {
		return nil
	}
	return b.ctrl[i]
}

// Installed returns the mask of attached controllers.
func (b *Bus) Installed() hd44780.Mask {
	var m hd44780.Mask
	for i, c := range b.ctrl {
		if c != nil {
			m |= hd44780.Mask(1) << i
		}
	}
	return m
}

// SetRS implements hd44780.Bus.
func (b *Bus) SetRS(data bool) error {
	b.rs = data
	return nil
}

// SetRW implements hd44780.Bus.
func (b *Bus) SetRW(read bool) error {
	b.rw = read
	return nil
}

// Output implements hd44780.Bus.
func (b *Bus) Output(v byte) error {
	b.input = false
	b.out = v & 0xF0
	return nil
}

// Input implements hd44780.Bus.
func (b *Bus) Input() error {
	b.input = true
	return nil
}

// Sample implements hd44780.Bus. Lines driven by more than one
// controller read as the wired AND of their levels.
func (b *Bus) Sample() (byte, error) {
	if !b.input {
		return b.out, nil
	}
	v := byte(0xF0)
	for i, c := range b.ctrl {
		if c != nil && b.rw && b.e&(hd44780.Mask(1)<<i) != 0 {
			v &= b.drive[i]
		}
	}
	return v, nil
}

// Enable implements hd44780.Bus.
func (b *Bus) Enable(mask hd44780.Mask, high bool) error {
	for i, c := range b.ctrl {
		line := hd44780.Mask(1) << i
		if mask&line == 0 {
			continue
		}
		wasHigh := b.e&line != 0
		if high {
			b.e |= line
		} else {
			b.e &^= line
		}
		if c == nil || wasHigh == high {
			continue
		}
		switch {
		case high && b.rw:
			b.drive[i] = c.drive(b.rs)
		case !high && !b.rw:
			c.latch(b.rs, b.out)
		}
	}
	return nil
}
