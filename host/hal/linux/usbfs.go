//go:build linux

package linux

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ardnew/lcd2usb/pkg"
)

// ctrlTransfer matches the kernel's struct usbdevfs_ctrltransfer.
type ctrlTransfer struct {
	requestType uint8   // bmRequestType
	request     uint8   // bRequest
	value       uint16  // wValue
	index       uint16  // wIndex
	length      uint16  // wLength
	timeout     uint32  // Timeout in milliseconds
	data        uintptr // Data buffer pointer
}

// openDevice opens a usbfs node for control transfers.
func openDevice(path string) (int, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, fmt.Errorf("open %s: %w", path, mapErrno(err))
	}
	return fd, nil
}

// controlTransfer issues USBDEVFS_CONTROL and returns the number of
// data-stage bytes the kernel reports.
func controlTransfer(fd int, ctrl *ctrlTransfer, data []byte) (int, error) {
	if len(data) > 0 {
		ctrl.data = uintptr(unsafe.Pointer(&data[0]))
	}
	r, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), ioctlUsbdevfsControl,
		uintptr(unsafe.Pointer(ctrl)))
	if errno != 0 {
		return 0, mapErrno(errno)
	}
	return int(r), nil
}

// mapErrno translates usbfs errno values into package errors. The errno
// stays in the chain for callers that need it.
func mapErrno(err error) error {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return err
	}
	switch errno {
	case unix.EPIPE:
		return fmt.Errorf("%w: %w", pkg.ErrStall, errno)
	case unix.ETIMEDOUT:
		return fmt.Errorf("%w: %w", pkg.ErrTimeout, errno)
	case unix.ENODEV, unix.ENOENT, unix.ESHUTDOWN:
		return fmt.Errorf("%w: %w", pkg.ErrNoDevice, errno)
	case unix.EPROTO, unix.EILSEQ, unix.EOVERFLOW:
		return fmt.Errorf("%w: %w", pkg.ErrProtocol, errno)
	case unix.EINTR, unix.ECONNRESET:
		return fmt.Errorf("%w: %w", pkg.ErrCancelled, errno)
	default:
		return errno
	}
}
