//go:build linux

package linux

import "unsafe"

// ioctl number encoding shared by the generic Linux architectures
// (amd64, 386, arm, arm64, riscv64):
//
//	bits 0-7:   command number (nr)
//	bits 8-15:  ioctl type (type)
//	bits 16-29: argument size (size)
//	bits 30-31: direction (dir)

const (
	iocNone  = 0
	iocWrite = 1
	iocRead  = 2
)

const (
	iocNRBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNRShift   = 0
	iocTypeShift = iocNRShift + iocNRBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits
)

// ioc constructs an ioctl number from direction, type, number, and size.
func ioc(dir, typ, nr, size uintptr) uintptr {
	return (dir << iocDirShift) | (typ << iocTypeShift) | (nr << iocNRShift) | (size << iocSizeShift)
}

// ior constructs a read ioctl number.
func ior(typ, nr, size uintptr) uintptr {
	return ioc(iocRead, typ, nr, size)
}

// iowr constructs a read/write ioctl number.
func iowr(typ, nr, size uintptr) uintptr {
	return ioc(iocRead|iocWrite, typ, nr, size)
}

// usbdevfs ioctl type character.
const usbdevfsType = 'U'

// usbdevfs ioctl command numbers.
const (
	ioctlControl          = 0
	ioctlBulk             = 2
	ioctlClaimInterface   = 15
	ioctlReleaseInterface = 16
	ioctlIoctl            = 18
)

// Usbdevfs ioctl numbers, sized from the kernel argument structures.
var (
	ioctlUsbdevfsControl          = iowr(usbdevfsType, ioctlControl, unsafe.Sizeof(ctrlTransfer{}))
	ioctlUsbdevfsBulk             = iowr(usbdevfsType, ioctlBulk, unsafe.Sizeof(bulkTransfer{}))
	ioctlUsbdevfsClaimInterface   = ior(usbdevfsType, ioctlClaimInterface, unsafe.Sizeof(uint32(0)))
	ioctlUsbdevfsReleaseInterface = ior(usbdevfsType, ioctlReleaseInterface, unsafe.Sizeof(uint32(0)))
	ioctlUsbdevfsIoctl            = iowr(usbdevfsType, ioctlIoctl, unsafe.Sizeof(usbIoctl{}))
)

// USBDEVFS_DISCONNECT as issued through USBDEVFS_IOCTL.
var ioctlUsbdevfsDisconnect = ioc(iocNone, usbdevfsType, 22, 0)
