package hd44780

import (
	"fmt"
	"time"

	"github.com/ardnew/lcd2usb/pkg"
)

// Options configures a Driver.
type Options struct {
	// MaxPolls bounds the status reads WaitReady performs per controller.
	// Zero polls until the controller is ready, however long that takes.
	MaxPolls int

	// Delay blocks for at least d. Defaults to time.Sleep.
	Delay func(d time.Duration)
}

// Driver implements the HD44780 4-bit protocol on top of a Bus.
type Driver struct {
	bus      Bus
	maxPolls int
	delay    func(time.Duration)
}

// New creates a driver that owns bus.
func New(bus Bus, opts Options) *Driver {
	d := &Driver{
		bus:      bus,
		maxPolls: opts.MaxPolls,
		delay:    opts.Delay,
	}
	if d.delay == nil {
		d.delay = time.Sleep
	}
	return d
}

// Bus returns the underlying bus.
func (d *Driver) Bus() Bus {
	return d.bus
}

// pulse raises and lowers the enable line of every controller in mask.
func (d *Driver) pulse(mask Mask) error {
	if err := d.bus.Enable(mask, true); err != nil {
		return err
	}
	d.delay(EnableDelay)
	return d.bus.Enable(mask, false)
}

// WriteToSet writes b to every controller in mask. The high nibble is
// latched first, then the low nibble, after which the data lines are left
// idle high.
func (d *Driver) WriteToSet(mask Mask, b byte, isData bool) error {
	if err := d.bus.SetRS(isData); err != nil {
		return err
	}
	if err := d.bus.SetRW(false); err != nil {
		return err
	}
	if err := d.bus.Output(b & 0xF0); err != nil {
		return err
	}
	if err := d.pulse(mask); err != nil {
		return err
	}
	if err := d.bus.Output(b << 4); err != nil {
		return err
	}
	if err := d.pulse(mask); err != nil {
		return err
	}
	return d.bus.Output(0xF0)
}

// ReadOne reads one byte from a single controller: the status register
// (busy flag and address counter) when isData is false, otherwise the
// data at the address counter.
func (d *Driver) ReadOne(ctrl Mask, isData bool) (byte, error) {
	if !ctrl.Single() {
		return 0, fmt.Errorf("%w: read mask 0x%X", pkg.ErrInvalidParameter, uint8(ctrl))
	}
	if err := d.bus.SetRS(isData); err != nil {
		return 0, err
	}
	if err := d.bus.SetRW(true); err != nil {
		return 0, err
	}
	if err := d.bus.Input(); err != nil {
		return 0, err
	}

	high, err := d.sample(ctrl)
	if err != nil {
		return 0, err
	}
	d.delay(EnableDelay)
	low, err := d.sample(ctrl)
	if err != nil {
		return 0, err
	}

	// The low nibble arrives on the same D4–D7 lines as the high one.
	return high&0xF0 | low>>4, nil
}

// sample samples the data lines while the enable line of ctrl is high.
func (d *Driver) sample(ctrl Mask) (byte, error) {
	if err := d.bus.Enable(ctrl, true); err != nil {
		return 0, err
	}
	d.delay(EnableDelay)
	v, err := d.bus.Sample()
	if eerr := d.bus.Enable(ctrl, false); err == nil {
		err = eerr
	}
	return v, err
}

// Busy reads the busy flag of a single controller.
func (d *Driver) Busy(ctrl Mask) (bool, error) {
	status, err := d.ReadOne(ctrl, false)
	if err != nil {
		return false, err
	}
	return status&BusyFlag != 0, nil
}

// WaitReady polls every controller in mask individually until none
// reports busy. When MaxPolls is positive and a controller is still busy
// after that many polls, it returns pkg.ErrHardwareTimeout.
func (d *Driver) WaitReady(mask Mask) error {
	for polls := 1; ; polls++ {
		busy := false
		err := mask.Each(func(ctrl Mask) error {
			b, err := d.Busy(ctrl)
			busy = busy || b
			return err
		})
		if err != nil {
			return err
		}
		if !busy {
			return nil
		}
		if d.maxPolls > 0 && polls >= d.maxPolls {
			pkg.LogWarn(pkg.ComponentBus, "controller stuck busy",
				"mask", uint8(mask), "polls", polls)
			return fmt.Errorf("%w: mask 0x%X busy after %d polls",
				pkg.ErrHardwareTimeout, uint8(mask), polls)
		}
	}
}

// Command waits until every controller in mask is ready, then writes an
// instruction byte.
func (d *Driver) Command(mask Mask, cmd byte) error {
	if err := d.WaitReady(mask); err != nil {
		return err
	}
	return d.WriteToSet(mask, cmd, false)
}

// Data waits until every controller in mask is ready, then writes a data
// byte.
func (d *Driver) Data(mask Mask, b byte) error {
	if err := d.WaitReady(mask); err != nil {
		return err
	}
	return d.WriteToSet(mask, b, true)
}

// Clear clears the display and homes the cursor.
func (d *Driver) Clear(mask Mask) error {
	return d.Command(mask, InstrClear)
}

// Puts writes s as data bytes without line wrapping.
func (d *Driver) Puts(mask Mask, s string) error {
	for i := 0; i < len(s); i++ {
		if err := d.Data(mask, s[i]); err != nil {
			return err
		}
	}
	return nil
}

// checkReady reads the busy flag of every controller in mask once.
func (d *Driver) checkReady(mask Mask) error {
	return mask.Each(func(ctrl Mask) error {
		busy, err := d.Busy(ctrl)
		if err != nil {
			return err
		}
		if busy {
			return fmt.Errorf("%w: controller mask 0x%X busy", pkg.ErrNoController, uint8(ctrl))
		}
		return nil
	})
}

// Init runs the power-on recovery sequence on the controllers in mask and
// leaves them in 4-bit two-line mode with the display cleared and on.
// It returns pkg.ErrNoController when a controller is absent or does not
// leave the busy state.
func (d *Driver) Init(mask Mask) error {
	d.delay(PowerOnDelay)

	// The controller may be in 8-bit mode or halfway through a 4-bit
	// transfer, and its busy flag cannot be read until the sequence ends.
	if err := d.bus.SetRS(false); err != nil {
		return err
	}
	if err := d.bus.SetRW(false); err != nil {
		return err
	}
	if err := d.bus.Output(CmdFunction8Bit1); err != nil {
		return err
	}
	if err := d.pulse(mask); err != nil {
		return err
	}
	d.delay(FirstFunction)
	if err := d.pulse(mask); err != nil {
		return err
	}
	d.delay(ShortDelay)
	if err := d.pulse(mask); err != nil {
		return err
	}
	d.delay(ShortDelay)

	if err := d.bus.Output(CmdFunction4Bit1); err != nil {
		return err
	}
	if err := d.pulse(mask); err != nil {
		return err
	}
	d.delay(ShortDelay)

	if err := d.checkReady(mask); err != nil {
		return err
	}
	if err := d.Command(mask, CmdFunctionDefault); err != nil {
		return err
	}
	d.delay(ShortDelay)
	if err := d.checkReady(mask); err != nil {
		return err
	}

	for _, cmd := range [...]byte{CmdDisplayOff, InstrClear, CmdEntryInc, CmdDisplayOn} {
		if err := d.Command(mask, cmd); err != nil {
			return err
		}
	}
	pkg.LogDebug(pkg.ComponentBus, "controller initialized", "mask", uint8(mask))
	return nil
}
