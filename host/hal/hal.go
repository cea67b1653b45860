package hal

import (
	"context"
	"encoding/binary"
	"fmt"
)

// SetupPacket represents a USB SETUP packet in the HAL layer.
type SetupPacket struct {
	RequestType uint8  // Request characteristics
	Request     uint8  // Specific request
	Value       uint16 // Request-specific value
	Index       uint16 // Request-specific index
	Length      uint16 // Number of bytes to transfer
}

// SetupPacketSize is the size of a USB SETUP packet in bytes.
const SetupPacketSize = 8

// ParseSetupPacket decodes the first SetupPacketSize bytes of data into out.
// It reports false when data is short.
func ParseSetupPacket(data []byte, out *SetupPacket) bool {
	if len(data) < SetupPacketSize {
		return false
	}
	*out = SetupPacket{
		RequestType: data[0],
		Request:     data[1],
		Value:       binary.LittleEndian.Uint16(data[2:]),
		Index:       binary.LittleEndian.Uint16(data[4:]),
		Length:      binary.LittleEndian.Uint16(data[6:]),
	}
	return true
}

// MarshalTo encodes s into buf and returns SetupPacketSize, or 0 if buf
// cannot hold it.
func (s *SetupPacket) MarshalTo(buf []byte) int {
	if len(buf) < SetupPacketSize {
		return 0
	}
	buf[0], buf[1] = s.RequestType, s.Request
	binary.LittleEndian.PutUint16(buf[2:], s.Value)
	binary.LittleEndian.PutUint16(buf[4:], s.Index)
	binary.LittleEndian.PutUint16(buf[6:], s.Length)
	return SetupPacketSize
}

// IsIn returns true if the transfer has a device-to-host data stage.
func (s *SetupPacket) IsIn() bool {
	return s.RequestType&0x80 != 0
}

// DeviceInfo identifies an attached device.
type DeviceInfo struct {
	Bus          uint8
	Address      uint8
	VendorID     uint16
	ProductID    uint16
	Manufacturer string
	Product      string
	Serial       string
	Path         string // Platform node, e.g. /dev/bus/usb/001/004
}

// String returns a one-line description of the device.
func (d DeviceInfo) String() string {
	s := fmt.Sprintf("%03d:%03d %04x:%04x", d.Bus, d.Address, d.VendorID, d.ProductID)
	if d.Product != "" {
		s += " " + d.Product
	}
	if d.Serial != "" {
		s += " [" + d.Serial + "]"
	}
	return s
}

// Device is an opened USB device as seen from the host.
//
// All methods are safe for concurrent use.
type Device interface {
	// Info returns the identity of the device.
	Info() DeviceInfo

	// ControlTransfer performs a control transfer on EP0.
	// For OUT transfers, data contains the data to send.
	// For IN transfers, data is filled with received data.
	// Returns the number of bytes transferred in the data phase.
	// A stalled request returns an error wrapping pkg.ErrStall.
	ControlTransfer(ctx context.Context, setup *SetupPacket, data []byte) (int, error)

	// BulkTransfer performs a bulk transfer to/from an endpoint.
	// For IN endpoints, data is filled with received data.
	// For OUT endpoints, data contains the data to send.
	// Returns the number of bytes transferred.
	BulkTransfer(ctx context.Context, endpoint uint8, data []byte) (int, error)

	// Close releases the device.
	Close() error
}
