package hal

import (
	"context"
	"fmt"

	"github.com/ardnew/lcd2usb/protocol"
)

// Speed represents the USB connection speed.
type Speed uint8

// USB speed constants (USB 2.0 Specification).
const (
	SpeedUnknown Speed = iota // Not connected or unknown
	SpeedLow                  // Low Speed (1.5 Mbit/s)
	SpeedFull                 // Full Speed (12 Mbit/s)
	SpeedHigh                 // High Speed (480 Mbit/s)
)

// String returns a human-readable speed name.
func (s Speed) String() string {
	switch s {
	case SpeedLow:
		return "Low Speed"
	case SpeedFull:
		return "Full Speed"
	case SpeedHigh:
		return "High Speed"
	default:
		return "Unknown"
	}
}

// DeviceInfo identifies the device a HAL is attached to.
type DeviceInfo struct {
	Bus     int    // Bus number, 0 when not applicable
	Address int    // Device address, 0 when not applicable
	Path    string // Node the HAL opened (usbfs node or FIFO directory)
	Speed   Speed
}

// String names the device the way lsusb does when it sits on a real bus,
// and by its path otherwise.
func (i DeviceInfo) String() string {
	if i.Bus == 0 && i.Address == 0 {
		return i.Path
	}
	return fmt.Sprintf("bus %03d device %03d", i.Bus, i.Address)
}

// HostHAL is the contract between the LCD2USB host client and a USB host
// controller. The LCD2USB protocol uses control transfers on the default
// pipe only, so the interface carries lifecycle, control transfers and
// connection events.
//
// All methods should be safe for concurrent use.
type HostHAL interface {
	// Init prepares the controller. The context can cancel initialization.
	Init(ctx context.Context) error

	// Start begins watching for the device.
	Start() error

	// Stop stops watching and closes the device.
	Stop() error

	// Close releases all resources associated with the HAL.
	Close() error

	// ControlTransfer performs a control transfer on the default pipe.
	// For OUT transfers data holds the data stage, for IN transfers it is
	// filled with the reply. It returns the number of data-stage bytes.
	ControlTransfer(ctx context.Context, setup *protocol.SetupPacket, data []byte) (int, error)

	// WaitForConnection blocks until a device is attached or ctx is done.
	WaitForConnection(ctx context.Context) (DeviceInfo, error)

	// WaitForDisconnection blocks until the device detaches or ctx is done.
	WaitForDisconnection(ctx context.Context) error
}
