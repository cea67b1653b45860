// Package linux opens bridge devices on Linux through usbfs.
//
// Devices are discovered by scanning sysfs (/sys/bus/usb/devices) for a
// vendor and product ID, and opened through their usbfs node under
// /dev/bus/usb. Transfers are synchronous USBDEVFS_CONTROL and
// USBDEVFS_BULK ioctls issued through golang.org/x/sys/unix; no cgo is
// required.
//
// # Requirements
//
// The user must have read/write access to the device node. This
// typically requires either:
//   - Running as root
//   - A udev rule granting access to the bridge's VID:PID
//
// On other platforms Open and List return pkg.ErrNotSupported.
package linux
