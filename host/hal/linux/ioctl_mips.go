//go:build linux && (mips || mipsle || mips64 || mips64le || ppc64 || ppc64le)

package linux

import "unsafe"

// MIPS and POWER use a 13-bit size field and a 3-bit direction field.
const (
	iocRead  = 2
	iocWrite = 4

	iocNRShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 29
)

func ioc(dir, typ, nr, size uintptr) uintptr {
	return dir<<iocDirShift | typ<<iocTypeShift | nr<<iocNRShift | size<<iocSizeShift
}

func iowr(typ, nr, size uintptr) uintptr {
	return ioc(iocRead|iocWrite, typ, nr, size)
}

const (
	usbdevfsType = 'U'
	ioctlControl = 0
)

var ioctlUsbdevfsControl = iowr(usbdevfsType, ioctlControl, unsafe.Sizeof(ctrlTransfer{}))
