//go:build linux && (386 || amd64 || arm || arm64 || riscv64 || loong64 || s390x)

package linux

import "unsafe"

// ioctl number layout used by the generic Linux ABI:
//
//	bits 0-7:   command number (nr)
//	bits 8-15:  ioctl type (type)
//	bits 16-29: argument size (size)
//	bits 30-31: direction (dir)
const (
	iocWrite = 1
	iocRead  = 2

	iocNRShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30
)

func ioc(dir, typ, nr, size uintptr) uintptr {
	return dir<<iocDirShift | typ<<iocTypeShift | nr<<iocNRShift | size<<iocSizeShift
}

func iowr(typ, nr, size uintptr) uintptr {
	return ioc(iocRead|iocWrite, typ, nr, size)
}

// usbdevfs ioctl type character and command numbers.
const (
	usbdevfsType = 'U'
	ioctlControl = 0
)

// ioctlUsbdevfsControl is USBDEVFS_CONTROL. The argument size follows the
// pointer width, 16 bytes on 32-bit targets and 24 on 64-bit ones.
var ioctlUsbdevfsControl = iowr(usbdevfsType, ioctlControl, unsafe.Sizeof(ctrlTransfer{}))
