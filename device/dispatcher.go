package device

import (
	"fmt"

	"github.com/ardnew/lcd2usb/device/analog"
	"github.com/ardnew/lcd2usb/device/hd44780"
	"github.com/ardnew/lcd2usb/pkg"
	"github.com/ardnew/lcd2usb/protocol"
)

// Keys reports the state of the input buttons, bit 0 for S1 and bit 1 for
// S2, set while pressed.
type Keys interface {
	Keys() (byte, error)
}

// noKeys is used when the board has no buttons.
type noKeys struct{}

func (noKeys) Keys() (byte, error) { return 0, nil }

// Dispatcher executes decoded LCD2USB requests against the bus driver and
// the analog outputs.
//
// Malformed input never fails: unknown classes and reserved subtargets are
// accepted and do nothing. Errors come only from the hardware.
type Dispatcher struct {
	driver      *hd44780.Driver
	analog      *analog.Manager
	keys        Keys
	controllers hd44780.Mask

	reply [protocol.ReplySize]byte
}

// NewDispatcher creates a dispatcher. keys may be nil when the board has no
// buttons. The controller bitmap starts empty; Boot fills it.
func NewDispatcher(driver *hd44780.Driver, am *analog.Manager, keys Keys) *Dispatcher {
	if keys == nil {
		keys = noKeys{}
	}
	return &Dispatcher{driver: driver, analog: am, keys: keys}
}

// Controllers returns the bitmap of controllers detected at boot.
func (d *Dispatcher) Controllers() hd44780.Mask {
	return d.controllers
}

// Handle executes r. The returned reply references an internal buffer that
// is overwritten by the next call; it is nil when r produces no reply.
func (d *Dispatcher) Handle(r protocol.Request) ([]byte, error) {
	pkg.LogDebug(pkg.ComponentDispatch, "request", "request", r.String())

	switch r.Class {
	case protocol.ClassEcho:
		d.reply[0], d.reply[1] = r.Payload[0], r.Payload[1]
		return d.reply[:], nil

	case protocol.ClassCmd, protocol.ClassData:
		return nil, d.write(r)

	case protocol.ClassSet:
		return nil, d.set(r)

	case protocol.ClassGet:
		return d.get(r)

	default:
		pkg.LogDebug(pkg.ComponentDispatch, "ignoring request class",
			"class", r.Class.String())
		return nil, nil
	}
}

func (d *Dispatcher) write(r protocol.Request) error {
	mask := hd44780.Mask(r.Target) & d.controllers
	if mask == 0 {
		return nil
	}
	isData := r.Class == protocol.ClassData
	for _, b := range r.Bytes() {
		var err error
		if isData {
			err = d.driver.Data(mask, b)
		} else {
			err = d.driver.Command(mask, b)
		}
		if err != nil {
			return fmt.Errorf("%s 0x%02X: %w", r.Class, b, err)
		}
	}
	return nil
}

func (d *Dispatcher) set(r protocol.Request) error {
	switch r.Target {
	case protocol.SetContrast:
		return d.analog.Set(analog.Contrast, r.Payload[0])
	case protocol.SetBrightness:
		return d.analog.Set(analog.Brightness, r.Payload[0])
	default:
		return nil
	}
}

func (d *Dispatcher) get(r protocol.Request) ([]byte, error) {
	switch r.Target {
	case protocol.GetVersion:
		d.reply[0], d.reply[1] = protocol.VersionMajor, protocol.VersionMinor
	case protocol.GetKeys:
		keys, err := d.keys.Keys()
		if err != nil {
			return nil, fmt.Errorf("read keys: %w", err)
		}
		d.reply[0], d.reply[1] = keys, 0
	case protocol.GetControllers:
		d.reply[0], d.reply[1] = byte(d.controllers), 0
	default:
		return nil, nil
	}
	return d.reply[:], nil
}
