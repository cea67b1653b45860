//go:build linux

package linux

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/picowifi/picowifi/host/hal"
)

// sysfsRoot is the directory scanned for devices. Tests point it at a
// temporary tree.
var sysfsRoot = SysfsUSBPath

// devfsRoot is the directory holding usbfs device nodes.
var devfsRoot = DevfsUSBPath

// scanDevices returns every device under sysfsRoot matching vid:pid.
// A zero pid matches any product from vid.
func scanDevices(vid, pid uint16) ([]hal.DeviceInfo, error) {
	entries, err := os.ReadDir(sysfsRoot)
	if err != nil {
		return nil, err
	}

	var devices []hal.DeviceInfo
	for _, entry := range entries {
		name := entry.Name()

		// Root hubs are usbN and interfaces are N-M:C.I; only
		// device entries like 1-1 or 1-1.2 remain.
		if strings.HasPrefix(name, "usb") || strings.Contains(name, ":") {
			continue
		}

		info, err := parseDevice(filepath.Join(sysfsRoot, name))
		if err != nil {
			continue
		}
		if info.VendorID != vid || (pid != 0 && info.ProductID != pid) {
			continue
		}
		devices = append(devices, info)
	}

	return devices, nil
}

// parseDevice reads the identity of a single sysfs device directory.
func parseDevice(path string) (hal.DeviceInfo, error) {
	var info hal.DeviceInfo

	bus, err := readSysfsUint8(filepath.Join(path, "busnum"))
	if err != nil {
		return info, err
	}
	addr, err := readSysfsUint8(filepath.Join(path, "devnum"))
	if err != nil {
		return info, err
	}
	vid, err := readSysfsHexUint16(filepath.Join(path, "idVendor"))
	if err != nil {
		return info, err
	}
	pid, err := readSysfsHexUint16(filepath.Join(path, "idProduct"))
	if err != nil {
		return info, err
	}

	info.Bus = bus
	info.Address = addr
	info.VendorID = vid
	info.ProductID = pid
	info.Path = formatDevfsPath(bus, addr)

	// String descriptors are optional.
	info.Manufacturer, _ = readSysfsString(filepath.Join(path, "manufacturer"))
	info.Product, _ = readSysfsString(filepath.Join(path, "product"))
	info.Serial, _ = readSysfsString(filepath.Join(path, "serial"))

	return info, nil
}

// readSysfsString reads a string from a sysfs attribute file.
func readSysfsString(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// readSysfsUint8 reads an unsigned decimal uint8 from a sysfs attribute file.
func readSysfsUint8(path string) (uint8, error) {
	s, err := readSysfsString(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, err
	}
	return uint8(v), nil
}

// readSysfsHexUint16 reads a hexadecimal uint16 from a sysfs attribute file.
func readSysfsHexUint16(path string) (uint16, error) {
	s, err := readSysfsString(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

// formatDevfsPath constructs a usbfs node path from bus and device numbers.
func formatDevfsPath(bus, addr uint8) string {
	// devfsRoot/BBB/DDD with zero-padded numbers
	buf := make([]byte, 0, DevfsPathMaxLen)
	buf = append(buf, devfsRoot...)
	buf = append(buf, '/')
	buf = appendPadded(buf, bus, 3)
	buf = append(buf, '/')
	buf = appendPadded(buf, addr, 3)
	return string(buf)
}

// appendPadded appends val zero-padded to width digits.
func appendPadded(buf []byte, val uint8, width int) []byte {
	s := strconv.FormatUint(uint64(val), 10)
	for i := len(s); i < width; i++ {
		buf = append(buf, '0')
	}
	return append(buf, s...)
}
