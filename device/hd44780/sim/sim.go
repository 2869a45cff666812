// Package sim simulates HD44780 controllers wired to a shared 4-bit bus.
//
// A [Bus] implements [hd44780.Bus] at the level of individual line changes:
// writes latch on the falling edge of an enable line, reads are driven while
// it is high, and undriven data lines read high through their pull-ups. A
// missing controller therefore reads as permanently busy, exactly as on the
// real board.
//
// Controllers power up in 8-bit mode and only accept byte-wide transfers
// after the 4-bit function set, so the driver's initialization sequence is
// exercised end to end.
package sim

import (
	"strings"

	"github.com/ardnew/lcd2usb/device/hd44780"
)

// ddramSize is the DDRAM address space of one controller.
const ddramSize = 0x80

// Controller is one simulated HD44780.
type Controller struct {
	// BusyPolls is the number of status reads reporting busy after each
	// executed instruction or data write.
	BusyPolls int

	// Stuck makes every status read report busy.
	Stuck bool

	fourBit   bool
	pending   byte
	half      bool // high nibble of a 4-bit write latched
	readHalf  bool // high nibble of a 4-bit read driven
	readByte  byte
	busyLeft  int
	ac        byte
	increment bool
	display   byte
	function  byte
	ddram     [ddramSize]byte

	instructions []byte
	data         []byte
}

// NewController returns a powered-up controller in 8-bit mode.
func NewController() *Controller {
	c := &Controller{increment: true}
	c.fill()
	return c
}

func (c *Controller) fill() {
	for i := range c.ddram {
		c.ddram[i] = ' '
	}
}

// FourBit reports whether the controller has been switched to 4-bit mode.
func (c *Controller) FourBit() bool { return c.fourBit }

// Instructions returns every instruction byte the controller executed.
func (c *Controller) Instructions() []byte { return c.instructions }

// Data returns every data byte written to the controller.
func (c *Controller) Data() []byte { return c.data }

// AddressCounter returns the DDRAM address counter.
func (c *Controller) AddressCounter() byte { return c.ac }

// DisplayControl returns the last display control instruction.
func (c *Controller) DisplayControl() byte { return c.display }

// Function returns the last function set instruction.
func (c *Controller) Function() byte { return c.function }

// Row returns width characters of display line row (0-3).
func (c *Controller) Row(row, width int) string {
	starts := [...]int{
		hd44780.Line1Start, hd44780.Line2Start,
		hd44780.Line3Start, hd44780.Line4Start,
	}
	if row < 0 || row >= len(starts) {
		return ""
	}
	var sb strings.Builder
	for i := range width {
		sb.WriteByte(c.ddram[(starts[row]+i)%ddramSize])
	}
	return sb.String()
}

// Reset forgets everything the controller executed and returns it to the
// power-on state. Failure injection fields are kept.
func (c *Controller) Reset() {
	*c = Controller{BusyPolls: c.BusyPolls, Stuck: c.Stuck, increment: true}
	c.fill()
}

func (c *Controller) busy() bool {
	return c.Stuck || c.busyLeft > 0
}

// latch accepts the nibble on D4–D7 at the falling edge of E.
func (c *Controller) latch(rs bool, nibble byte) {
	if !c.fourBit {
		// D0–D3 are not wired; they read as zero in 8-bit mode.
		c.execute(rs, nibble&0xF0)
		return
	}
	if !c.half {
		c.pending = nibble & 0xF0
		c.half = true
		return
	}
	c.half = false
	c.execute(rs, c.pending|nibble>>4)
}

// drive returns the nibble presented on D4–D7 at the rising edge of E.
func (c *Controller) drive(rs bool) byte {
	if !c.fourBit || !c.readHalf {
		c.readByte = c.readRegister(rs)
		if c.fourBit {
			c.readHalf = true
		}
		return c.readByte & 0xF0
	}
	c.readHalf = false
	return c.readByte << 4
}

func (c *Controller) readRegister(rs bool) byte {
	if rs {
		v := c.ddram[c.ac]
		c.advance()
		return v
	}
	status := c.ac & hd44780.AddressCounterMask
	if c.busy() {
		status |= hd44780.BusyFlag
		if c.busyLeft > 0 {
			c.busyLeft--
		}
	}
	return status
}

func (c *Controller) advance() {
	if c.increment {
		c.ac = (c.ac + 1) % ddramSize
	} else {
		c.ac = (c.ac + ddramSize - 1) % ddramSize
	}
}

func (c *Controller) execute(rs bool, b byte) {
	c.busyLeft = c.BusyPolls
	if rs {
		c.data = append(c.data, b)
		c.ddram[c.ac] = b
		c.advance()
		return
	}
	c.instructions = append(c.instructions, b)
	switch {
	case b&hd44780.InstrSetDDRAMAddr != 0:
		c.ac = b & hd44780.AddressCounterMask
	case b&hd44780.InstrSetCGRAMAddr != 0:
		// Custom characters are not rendered.
	case b&hd44780.InstrFunction != 0:
		c.function = b
		c.fourBit = b&hd44780.Function8Bit == 0
		c.half = false
		c.readHalf = false
	case b&hd44780.InstrShift != 0:
	case b&hd44780.InstrDisplay != 0:
		c.display = b
	case b&hd44780.InstrEntryMode != 0:
		c.increment = b&hd44780.EntryIncrement != 0
	case b&hd44780.InstrHome != 0:
		c.ac = 0
	case b&hd44780.InstrClear != 0:
		c.fill()
		c.ac = 0
		c.increment = true
	}
}
