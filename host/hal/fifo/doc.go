// Package fifo provides a named-pipe [hal.HostHAL] that talks to the
// simulated LCD2USB device daemon.
//
// The host polls a bus directory every 50ms for device-* subdirectories
// created by [github.com/ardnew/lcd2usb/device/hal/fifo]:
//
//	/tmp/lcd2usb-bus/
//	└── device-a1b2c3d4.../
//	    ├── connection               # 0x01 connected, 0x00 disconnecting
//	    ├── host_to_device           # SETUP, reset and address messages
//	    └── device_to_host           # DATA, ACK, NAK and STALL replies
//
// # Protocol
//
// Each message is framed as
//
//	[1 byte: message type][2 bytes: length, little endian][N bytes: payload]
//
// A SETUP payload is [address, setup(8), OUT data...]. The device answers
// every SETUP with exactly one DATA (IN transfers), ACK (OUT transfers) or
// STALL message. Replies are bounded by protocol.TransferTimeout or the
// context deadline, whichever comes first; late replies are discarded
// before the next transfer.
//
// # Usage
//
//	h := fifo.New("/tmp/lcd2usb-bus")
//	dev, err := host.Open(ctx, h)
//	if err != nil {
//	    return err
//	}
//	defer dev.Close()
package fifo
