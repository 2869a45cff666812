package linux

import "time"

// System paths.
const (
	// SysfsUSBPath is the base path for USB devices in sysfs.
	SysfsUSBPath = "/sys/bus/usb/devices"

	// DevfsUSBPath is the base path for USB device nodes.
	DevfsUSBPath = "/dev/bus/usb"
)

// pollInterval is how often sysfs is rescanned for attach and detach.
const pollInterval = 250 * time.Millisecond

// maxControlTransfer bounds the data stage of a single control transfer.
const maxControlTransfer = 4096
