package device

import (
	"encoding/binary"
	"fmt"

	"github.com/picowifi/picowifi/control"
	"github.com/picowifi/picowifi/device/hal"
	"github.com/picowifi/picowifi/pkg"
)

// bmRequestType fields the bridge inspects.
const (
	requestDirIn      = 0x80
	requestTypeMask   = 0x60
	requestTypeVendor = 0x40
)

// SetupPacket is an 8-byte SETUP packet as handed up by the HAL.
type SetupPacket struct {
	RequestType uint8  // bmRequestType
	Request     uint8  // bRequest: RequestMicrosoft or RequestWiFi
	Value       uint16 // wValue: Connect carries the auth mode here
	Index       uint16 // wIndex: WiFi command or MS OS 2.0 index
	Length      uint16 // wLength
}

// SetupPacketSize is the size of a SETUP packet in bytes.
const SetupPacketSize = 8

// ParseSetupPacket decodes 8 little-endian bytes into out.
func ParseSetupPacket(data []byte, out *SetupPacket) error {
	if len(data) < SetupPacketSize {
		return fmt.Errorf("%d bytes: %w", len(data), pkg.ErrSetupPacketTooShort)
	}
	out.RequestType = data[0]
	out.Request = data[1]
	out.Value = binary.LittleEndian.Uint16(data[2:4])
	out.Index = binary.LittleEndian.Uint16(data[4:6])
	out.Length = binary.LittleEndian.Uint16(data[6:8])
	return nil
}

// MarshalTo encodes s into buf and returns SetupPacketSize, or 0 if buf
// is too small.
func (s *SetupPacket) MarshalTo(buf []byte) int {
	if len(buf) < SetupPacketSize {
		return 0
	}
	buf[0] = s.RequestType
	buf[1] = s.Request
	binary.LittleEndian.PutUint16(buf[2:4], s.Value)
	binary.LittleEndian.PutUint16(buf[4:6], s.Index)
	binary.LittleEndian.PutUint16(buf[6:8], s.Length)
	return SetupPacketSize
}

func (s *SetupPacket) fromHAL(h *hal.SetupPacket) {
	*s = SetupPacket{
		RequestType: h.RequestType,
		Request:     h.Request,
		Value:       h.Value,
		Index:       h.Index,
		Length:      h.Length,
	}
}

// IsDeviceToHost reports whether the data stage is IN.
func (s *SetupPacket) IsDeviceToHost() bool {
	return s.RequestType&requestDirIn != 0
}

// IsHostToDevice reports whether the data stage, if any, is OUT.
func (s *SetupPacket) IsHostToDevice() bool {
	return !s.IsDeviceToHost()
}

// IsVendor reports whether s is a vendor request. Everything else belongs
// to the controller's own stack.
func (s *SetupPacket) IsVendor() bool {
	return s.RequestType&requestTypeMask == requestTypeVendor
}

// Command returns the WiFi command carried in wIndex. It is meaningful
// only when Request is control.RequestWiFi.
func (s *SetupPacket) Command() control.Command {
	return control.Command(s.Index)
}

// Name describes the request in protocol terms.
func (s *SetupPacket) Name() string {
	if !s.IsVendor() {
		return fmt.Sprintf("non-vendor 0x%02X/0x%02X", s.RequestType, s.Request)
	}
	switch s.Request {
	case control.RequestWiFi:
		return "wifi " + s.Command().String()
	case control.RequestMicrosoft:
		if s.Index == control.MSOS20DescriptorIndex {
			return "msos20 descriptor"
		}
		return fmt.Sprintf("msos20 index %d", s.Index)
	default:
		return fmt.Sprintf("vendor 0x%02X", s.Request)
	}
}

// String returns a one-line description for logs.
func (s *SetupPacket) String() string {
	dir := "OUT"
	if s.IsDeviceToHost() {
		dir = "IN"
	}
	return fmt.Sprintf("%s %s value=0x%04X len=%d", dir, s.Name(), s.Value, s.Length)
}

// VendorSetup initializes out as a vendor request to the device.
func VendorSetup(out *SetupPacket, in bool, request uint8, value, index, length uint16) {
	out.RequestType = control.RequestTypeVendorOut
	if in {
		out.RequestType = control.RequestTypeVendorIn
	}
	out.Request = request
	out.Value = value
	out.Index = index
	out.Length = length
}
