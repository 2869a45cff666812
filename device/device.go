package device

import (
	"fmt"
	"sync"

	"github.com/ardnew/lcd2usb/pkg"
)

// State represents the USB device state (USB 2.0 section 9.1).
type State uint8

// Device states reachable by a control-only device.
const (
	StateDefault    State = iota // Reset, default address
	StateAddress                 // Unique address assigned
	StateConfigured              // Configuration selected
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDefault:
		return "Default"
	case StateAddress:
		return "Address"
	case StateConfigured:
		return "Configured"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// Device tracks the enumeration state of the LCD2USB function.
type Device struct {
	Descriptors *Descriptors

	mutex         sync.RWMutex
	state         State
	address       uint8
	configuration uint8
}

// NewDevice creates a device in the default state.
func NewDevice(desc *Descriptors) *Device {
	return &Device{Descriptors: desc}
}

// State returns the current device state.
func (d *Device) State() State {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.state
}

// Address returns the assigned bus address.
func (d *Device) Address() uint8 {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.address
}

// Configuration returns the active configuration value, 0 if unconfigured.
func (d *Device) Configuration() uint8 {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.configuration
}

// IsConfigured reports whether the host selected a configuration.
func (d *Device) IsConfigured() bool {
	return d.State() == StateConfigured
}

// Reset returns the device to the default state after a bus reset.
func (d *Device) Reset() {
	d.mutex.Lock()
	d.address = 0
	d.configuration = 0
	d.mutex.Unlock()
	d.setState(StateDefault)
}

// SetAddress handles SET_ADDRESS. Address 0 returns to the default state.
func (d *Device) SetAddress(address uint8) error {
	d.mutex.Lock()
	if d.state == StateConfigured {
		d.mutex.Unlock()
		return pkg.ErrInvalidState
	}
	d.address = address
	d.mutex.Unlock()

	if address == 0 {
		d.setState(StateDefault)
	} else {
		d.setState(StateAddress)
	}
	return nil
}

// SetConfiguration handles SET_CONFIGURATION. Value 0 deconfigures.
func (d *Device) SetConfiguration(value uint8) error {
	d.mutex.Lock()
	if d.state == StateDefault {
		d.mutex.Unlock()
		return pkg.ErrInvalidState
	}
	if value != 0 && value != d.Descriptors.Configuration.ConfigurationValue {
		d.mutex.Unlock()
		return pkg.ErrInvalidRequest
	}
	d.configuration = value
	d.mutex.Unlock()

	if value == 0 {
		d.setState(StateAddress)
	} else {
		d.setState(StateConfigured)
	}
	return nil
}

func (d *Device) setState(s State) {
	d.mutex.Lock()
	old := d.state
	d.state = s
	d.mutex.Unlock()

	if old != s {
		pkg.LogDebug(pkg.ComponentDevice, "state change",
			"from", old.String(),
			"to", s.String())
	}
}
