// Package hal defines the hardware abstraction between the LCD2USB host
// client and a USB host controller.
//
// LCD2USB is a control-only device, so [HostHAL] needs no more than
// lifecycle methods, control transfers on the default pipe and connection
// events. The host package layers the vendor protocol on top of
// [HostHAL.ControlTransfer].
//
// # Implementations
//
//   - [github.com/ardnew/lcd2usb/host/hal/linux] opens the device through
//     usbfs and issues USBDEVFS_CONTROL
//   - [github.com/ardnew/lcd2usb/host/hal/fifo] pairs with the simulated
//     device daemon over named pipes
//
// HAL implementations should reuse the caller's buffers and map device
// answers onto the pkg transport errors: pkg.ErrStall, pkg.ErrTimeout,
// pkg.ErrNoDevice and pkg.ErrProtocol.
package hal
