package hal

import (
	"context"

	"github.com/ardnew/lcd2usb/protocol"
)

// Speed represents the USB connection speed.
type Speed uint8

// USB speed constants (USB 2.0 Specification).
const (
	SpeedUnknown Speed = iota // Not connected or unknown
	SpeedLow                  // Low Speed (1.5 Mbit/s)
	SpeedFull                 // Full Speed (12 Mbit/s)
)

// String returns a human-readable speed name.
func (s Speed) String() string {
	switch s {
	case SpeedLow:
		return "Low Speed"
	case SpeedFull:
		return "Full Speed"
	default:
		return "Unknown"
	}
}

// DeviceHAL is the contract between the device stack and the USB
// controller. LCD2USB uses the default control pipe only, so the interface
// carries EP0 operations and connection state and nothing else.
type DeviceHAL interface {
	// Init prepares the controller. The context can cancel initialization.
	Init(ctx context.Context) error

	// Start attaches to the bus. After Start returns the device is visible
	// to the host.
	Start() error

	// Stop detaches from the bus and releases the controller.
	Stop() error

	// SetAddress latches the address assigned by the host.
	SetAddress(address uint8) error

	// ReadSetup blocks until a SETUP packet arrives on EP0 or ctx is done.
	// It returns pkg.ErrReset when the host resets the port.
	ReadSetup(ctx context.Context, out *protocol.SetupPacket) error

	// WriteEP0 sends the data stage of a control IN transfer.
	WriteEP0(ctx context.Context, data []byte) error

	// ReadEP0 receives the data stage of a control OUT transfer.
	ReadEP0(ctx context.Context, buf []byte) (int, error)

	// StallEP0 answers the current control transfer with STALL.
	StallEP0() error

	// AckEP0 completes the status stage of a control OUT transfer.
	AckEP0() error

	// IsConnected reports whether a host is attached.
	IsConnected() bool

	// GetSpeed returns the bus speed.
	GetSpeed() Speed

	// WaitConnect blocks until a host is attached or ctx is done.
	WaitConnect(ctx context.Context) error

	// WaitDisconnect blocks until the host detaches or ctx is done.
	WaitDisconnect(ctx context.Context) error
}
