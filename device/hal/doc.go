// Package hal defines the hardware abstraction between the LCD2USB device
// stack and a USB controller.
//
// The device is a control-only function: every LCD2USB operation is a
// vendor request on the default pipe, so [DeviceHAL] exposes SETUP
// reception, the EP0 data and status stages, and connection state.
//
// # Implementing a HAL
//
//  1. Create a type that implements all [DeviceHAL] methods
//  2. Deliver SETUP packets through ReadSetup, returning pkg.ErrReset on a
//     bus reset
//  3. Send IN data with WriteEP0 and finish OUT transfers with AckEP0
//  4. Track the connection state for WaitConnect and WaitDisconnect
//
// HAL implementations should reuse caller buffers; the stack calls them from
// a single control-loop goroutine.
//
// A named-pipe HAL used by the simulated device daemon is available in
// [github.com/ardnew/lcd2usb/device/hal/fifo].
package hal
