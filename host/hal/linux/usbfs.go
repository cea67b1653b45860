//go:build linux

package linux

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// ctrlTransfer matches the kernel's struct usbdevfs_ctrltransfer.
type ctrlTransfer struct {
	requestType uint8
	request     uint8
	value       uint16
	index       uint16
	length      uint16
	timeout     uint32 // milliseconds
	data        unsafe.Pointer
}

// bulkTransfer matches the kernel's struct usbdevfs_bulktransfer.
type bulkTransfer struct {
	endpoint uint32
	length   uint32
	timeout  uint32 // milliseconds
	data     unsafe.Pointer
}

// usbIoctl matches the kernel's struct usbdevfs_ioctl.
type usbIoctl struct {
	ifno      int32
	ioctlCode int32
	data      unsafe.Pointer
}

// openDevice opens a usbfs node for read/write access.
func openDevice(path string) (int, error) {
	return unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
}

// closeDevice closes a device file descriptor.
func closeDevice(fd int) error {
	return unix.Close(fd)
}

// ioctlPtr performs an ioctl with a pointer argument and returns the
// result value.
func ioctlPtr(fd int, req uintptr, arg unsafe.Pointer) (int, error) {
	r, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return int(r), errno
	}
	return int(r), nil
}

// doControlTransfer performs a synchronous control transfer.
func doControlTransfer(fd int, reqType, req uint8, value, index uint16, data []byte, timeout uint32) (int, error) {
	ctrl := ctrlTransfer{
		requestType: reqType,
		request:     req,
		value:       value,
		index:       index,
		length:      uint16(len(data)),
		timeout:     timeout,
	}
	if len(data) > 0 {
		ctrl.data = unsafe.Pointer(&data[0])
	}
	return ioctlPtr(fd, ioctlUsbdevfsControl, unsafe.Pointer(&ctrl))
}

// doBulkTransfer performs a synchronous bulk transfer.
func doBulkTransfer(fd int, endpoint uint8, data []byte, timeout uint32) (int, error) {
	bulk := bulkTransfer{
		endpoint: uint32(endpoint),
		length:   uint32(len(data)),
		timeout:  timeout,
	}
	if len(data) > 0 {
		bulk.data = unsafe.Pointer(&data[0])
	}
	return ioctlPtr(fd, ioctlUsbdevfsBulk, unsafe.Pointer(&bulk))
}

// claimInterface claims exclusive access to an interface.
func claimInterface(fd int, iface uint8) error {
	n := uint32(iface)
	_, err := ioctlPtr(fd, ioctlUsbdevfsClaimInterface, unsafe.Pointer(&n))
	return err
}

// releaseInterface releases a previously claimed interface.
func releaseInterface(fd int, iface uint8) error {
	n := uint32(iface)
	_, err := ioctlPtr(fd, ioctlUsbdevfsReleaseInterface, unsafe.Pointer(&n))
	return err
}

// disconnectDriver detaches any kernel driver bound to an interface.
// ENODATA means no driver was bound.
func disconnectDriver(fd int, iface uint8) error {
	cmd := usbIoctl{ifno: int32(iface), ioctlCode: int32(ioctlUsbdevfsDisconnect)}
	_, err := ioctlPtr(fd, ioctlUsbdevfsIoctl, unsafe.Pointer(&cmd))
	if err == unix.ENODATA {
		return nil
	}
	return err
}
