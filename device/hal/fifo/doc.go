// Package fifo implements a named-pipe HAL for the LCD2USB device stack.
//
// It lets the simulated device daemon and the host tool talk without USB
// hardware. Each device instance creates a unique subdirectory under a
// shared bus directory:
//
//	/tmp/lcd2usb-bus/                # Bus directory (shared with host)
//	└── device-{id}/                 # Device subdirectory
//	    ├── connection               # Connection signaling (device → host)
//	    ├── host_to_device           # SETUP, reset and address messages
//	    └── device_to_host           # DATA, ACK and STALL responses
//
// Messages are framed as [type, len_lo, len_hi, payload...]. A SETUP
// payload is [address, setup(8), OUT data...].
//
// # Connection Signaling
//
// The device writes one byte to the connection pipe:
//   - 0x01: Device connected and ready
//   - 0x00: Device disconnecting
//
// # Usage
//
//	h := fifo.New("/tmp/lcd2usb-bus")
//	stack := device.NewStack(device.NewDescriptors(), dispatcher, h)
//	if err := stack.Start(ctx); err != nil {
//	    return err
//	}
//	defer stack.Stop()
//
// The host side opens the same bus directory with
// [github.com/ardnew/lcd2usb/host/hal/fifo].
package fifo
