package hd44780

import "time"

// Instruction set.
const (
	InstrClear         = 0x01 // clear display, cursor home
	InstrHome          = 0x02 // cursor home
	InstrEntryMode     = 0x04 // entry mode set
	InstrDisplay       = 0x08 // display on/off control
	InstrShift         = 0x10 // cursor/display shift
	InstrFunction      = 0x20 // function set
	InstrSetCGRAMAddr  = 0x40 // set CGRAM address
	InstrSetDDRAMAddr  = 0x80 // set DDRAM address
	EntryIncrement     = 0x02 // entry mode: increment address counter
	EntryShift         = 0x01 // entry mode: shift display
	DisplayOn          = 0x04 // display control: display on
	DisplayCursor      = 0x02 // display control: cursor on
	DisplayBlink       = 0x01 // display control: blink on
	Function8Bit       = 0x10 // function set: 8-bit interface
	FunctionTwoLines   = 0x08 // function set: two display lines
	FunctionFont5x10   = 0x04 // function set: 5x10 dots
	BusyFlag           = 0x80 // status read: busy
	AddressCounterMask = 0x7F // status read: address counter
)

// Composite instructions issued by Init.
const (
	CmdEntryInc        = InstrEntryMode | EntryIncrement                 // 0x06
	CmdDisplayOff      = InstrDisplay                                    // 0x08
	CmdDisplayOn       = InstrDisplay | DisplayOn                        // 0x0C
	CmdFunction4Bit1   = InstrFunction                                   // 0x20
	CmdFunction4Bit2   = InstrFunction | FunctionTwoLines                // 0x28
	CmdFunction8Bit1   = InstrFunction | Function8Bit                    // 0x30
	CmdFunction8Bit2   = InstrFunction | Function8Bit | FunctionTwoLines // 0x38
	CmdFunctionDefault = CmdFunction4Bit2
)

// DDRAM line start addresses.
const (
	Line1Start = 0x00
	Line2Start = 0x40
	Line3Start = 0x14
	Line4Start = 0x54
)

// Cold-start timing.
const (
	PowerOnDelay  = 16 * time.Millisecond
	FirstFunction = 4992 * time.Microsecond
	ShortDelay    = 64 * time.Microsecond
	EnableDelay   = 1 * time.Microsecond
)
