package linux

import "time"

// SysfsUSBPath is the base path for USB devices in sysfs.
const SysfsUSBPath = "/sys/bus/usb/devices"

// DevfsUSBPath is the base path for USB device nodes.
const DevfsUSBPath = "/dev/bus/usb"

// DevfsPathMaxLen is the maximum length of a devfs path.
const DevfsPathMaxLen = 64

// DefaultTransferTimeout applies to transfers whose context has no deadline.
const DefaultTransferTimeout = 5 * time.Second

// MaxBulkTransferSize is the largest single bulk transfer usbfs accepts
// without raising the usbfs memory limit.
const MaxBulkTransferSize = 16 << 10

// BridgeInterface is the vendor interface claimed on open.
const BridgeInterface = 0
