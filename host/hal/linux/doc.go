// Package linux provides a USB host HAL for Linux using usbfs.
//
// Devices are discovered by polling sysfs (/sys/bus/usb/devices) for the
// configured vendor and product IDs and opened through their usbfs node
// (/dev/bus/usb/BBB/DDD). Control transfers use the synchronous
// USBDEVFS_CONTROL ioctl; no cgo or libusb is involved.
//
// # Requirements
//
// The user needs read/write access to the device node, either as root or
// through a udev rule such as:
//
//	SUBSYSTEM=="usb", ATTR{idVendor}=="0403", ATTR{idProduct}=="c630", MODE="0666"
//
// # Usage
//
//	h := linux.New(protocol.VendorID, protocol.ProductID)
//	lcd, err := host.Open(ctx, h)
//
// [List] enumerates every attached device for diagnostics.
package linux
