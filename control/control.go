// Package control defines the vendor control-transfer protocol spoken
// between the host tools and the bridge device.
//
// Two vendor requests are defined. [RequestMicrosoft] returns the
// Microsoft OS 2.0 descriptor set when wIndex is [MSOS20DescriptorIndex].
// [RequestWiFi] carries a [Command] in wIndex; the Connect command
// additionally carries the encoded authentication mode in wValue.
//
// Commands are not versioned. A device that does not recognize a command
// stalls the transfer.
package control

import (
	"encoding/binary"
	"fmt"

	"github.com/picowifi/picowifi/pkg"
	"github.com/picowifi/picowifi/wifi"
)

// Default USB identifiers of the bridge.
const (
	DefaultVendorID  uint16 = 0x20A0
	DefaultProductID uint16 = 0x42EC
)

// Vendor bRequest codes.
const (
	RequestMicrosoft uint8 = 1
	RequestWiFi      uint8 = 2
)

// MSOS20DescriptorIndex is the wIndex selecting the MS OS 2.0 descriptor set.
const MSOS20DescriptorIndex uint16 = 7

// bmRequestType values used by the protocol (vendor, device recipient).
const (
	RequestTypeVendorOut uint8 = 0x40
	RequestTypeVendorIn  uint8 = 0xC0
)

// MaxCredentialLen is the capacity of the SSID and passphrase buffers.
const MaxCredentialLen = 64

// Command selects a WiFi operation; carried in wIndex.
type Command uint16

// WiFi commands.
const (
	CmdSetSSID        Command = 0x0000
	CmdSetPassphrase  Command = 0x0001
	CmdConnect        Command = 0x0002
	CmdStatus         Command = 0x0003
	CmdFirmwareUpdate Command = 0x0100
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case CmdSetSSID:
		return "SetSSID"
	case CmdSetPassphrase:
		return "SetPassphrase"
	case CmdConnect:
		return "Connect"
	case CmdStatus:
		return "Status"
	case CmdFirmwareUpdate:
		return "FirmwareUpdate"
	default:
		return fmt.Sprintf("Command(0x%04X)", uint16(c))
	}
}

// IsIn reports whether the command has a device-to-host data stage.
func (c Command) IsIn() bool {
	return c == CmdStatus
}

// StatusSize is the encoded size of a Status.
const StatusSize = 16

// Status is the snapshot returned by the Status command.
type Status struct {
	LinkUp bool
	Link   wifi.LinkStatus
	RSSI   int32
	Rate   int32
}

// MarshalTo encodes s as four little-endian int32 values.
// Returns the number of bytes written (StatusSize), or 0 if buf is too small.
func (s *Status) MarshalTo(buf []byte) int {
	if len(buf) < StatusSize {
		return 0
	}
	var up uint32
	if s.LinkUp {
		up = 1
	}
	binary.LittleEndian.PutUint32(buf[0:4], up)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(s.Link))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(s.RSSI))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(s.Rate))
	return StatusSize
}

// ParseStatus decodes a Status from data into out.
func ParseStatus(data []byte, out *Status) error {
	if len(data) < StatusSize {
		return fmt.Errorf("status of %d bytes: %w", len(data), pkg.ErrBufferTooSmall)
	}
	out.LinkUp = binary.LittleEndian.Uint32(data[0:4]) != 0
	out.Link = wifi.LinkStatus(int32(binary.LittleEndian.Uint32(data[4:8])))
	out.RSSI = int32(binary.LittleEndian.Uint32(data[8:12]))
	out.Rate = int32(binary.LittleEndian.Uint32(data[12:16]))
	return nil
}
