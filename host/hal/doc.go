// Package hal defines the host-side view of a USB device.
//
// A [Device] is an already-opened device that supports control transfers
// on EP0 and bulk transfers on its data endpoints. The host control client
// in [github.com/picowifi/picowifi/host] depends only on this interface.
//
// Implementations:
//
//   - [github.com/picowifi/picowifi/host/hal/linux] opens devices through
//     usbfs and discovers them through sysfs
//   - [github.com/picowifi/picowifi/device/hal/loopback] connects directly
//     to an in-process bridge for simulation and tests
package hal
