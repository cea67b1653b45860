package device

import (
	"encoding/binary"
	"fmt"

	"github.com/picowifi/picowifi/pkg"
)

// USB descriptor types used by the bridge (USB 3.2 Spec Table 9-6).
const (
	DescriptorTypeBOS              = 0x0F
	DescriptorTypeDeviceCapability = 0x10
)

// DeviceCapabilityPlatform is the bDevCapabilityType of a platform capability.
const DeviceCapabilityPlatform = 0x05

// MS OS 2.0 descriptor types (Microsoft OS 2.0 Descriptors Specification, Table 9).
const (
	MSOS20SetHeaderDescriptor       = 0x00
	MSOS20SubsetHeaderConfiguration = 0x01
	MSOS20SubsetHeaderFunction      = 0x02
	MSOS20FeatureCompatibleID       = 0x03
	MSOS20FeatureRegProperty        = 0x04
)

// MSOS20WindowsVersion is the minimum Windows version (8.1) for the set.
const MSOS20WindowsVersion uint32 = 0x06030000

// Registry property data types.
const (
	RegSZ      = 1
	RegMultiSZ = 7
)

// MSOS20PlatformUUID is the platform capability UUID {D8DD60DF-4589-4CC7-9CD2-659D9E648A9F}
// in wire byte order.
var MSOS20PlatformUUID = [16]byte{
	0xDF, 0x60, 0xDD, 0xD8, 0x89, 0x45, 0xC7, 0x4C,
	0x9C, 0xD2, 0x65, 0x9D, 0x9E, 0x64, 0x8A, 0x9F,
}

// DefaultInterfaceGUID is the device interface GUID registered for WinUSB.
const DefaultInterfaceGUID = "{88BAE032-5A81-49F0-BC3D-A4FF138216D6}"

// Fixed sizes of MS OS 2.0 descriptor components.
const (
	msos20SetHeaderSize    = 10
	msos20SubsetHeaderSize = 8
	msos20CompatIDSize     = 20
	msos20RegHeaderSize    = 10 // wLength, type, data type, name length, data length
	bosHeaderSize          = 5
	platformCapSize        = 28
)

// BOSSize is the size of the BOS descriptor produced by BOSDescriptorTo.
const BOSSize = bosHeaderSize + platformCapSize

const interfaceGUIDsName = "DeviceInterfaceGUIDs"

// MSOS20 describes a WinUSB binding for one vendor interface.
type MSOS20 struct {
	InterfaceNumber uint8
	InterfaceGUID   string
}

func (m *MSOS20) guid() string {
	if m.InterfaceGUID == "" {
		return DefaultInterfaceGUID
	}
	return m.InterfaceGUID
}

func (m *MSOS20) regPropertySize() int {
	nameLen := (len(interfaceGUIDsName) + 1) * 2
	dataLen := (len(m.guid()) + 2) * 2
	return msos20RegHeaderSize + nameLen + dataLen
}

// TotalLength returns the encoded size of the descriptor set.
func (m *MSOS20) TotalLength() int {
	return msos20SetHeaderSize + 2*msos20SubsetHeaderSize + msos20CompatIDSize + m.regPropertySize()
}

// MarshalTo writes the descriptor set: a set header, a configuration
// subset, a function subset for InterfaceNumber, the WINUSB compatible ID
// and a DeviceInterfaceGUIDs registry property.
// Returns the number of bytes written, or 0 if buf is too small.
func (m *MSOS20) MarshalTo(buf []byte) int {
	total := m.TotalLength()
	if len(buf) < total {
		return 0
	}
	le := binary.LittleEndian

	// Set header
	le.PutUint16(buf[0:2], msos20SetHeaderSize)
	le.PutUint16(buf[2:4], MSOS20SetHeaderDescriptor)
	le.PutUint32(buf[4:8], MSOS20WindowsVersion)
	le.PutUint16(buf[8:10], uint16(total))
	off := msos20SetHeaderSize

	// Configuration subset
	le.PutUint16(buf[off:], msos20SubsetHeaderSize)
	le.PutUint16(buf[off+2:], MSOS20SubsetHeaderConfiguration)
	buf[off+4] = 0
	buf[off+5] = 0
	le.PutUint16(buf[off+6:], uint16(total-msos20SetHeaderSize))
	off += msos20SubsetHeaderSize

	// Function subset
	le.PutUint16(buf[off:], msos20SubsetHeaderSize)
	le.PutUint16(buf[off+2:], MSOS20SubsetHeaderFunction)
	buf[off+4] = m.InterfaceNumber
	buf[off+5] = 0
	le.PutUint16(buf[off+6:], uint16(total-msos20SetHeaderSize-msos20SubsetHeaderSize))
	off += msos20SubsetHeaderSize

	// Compatible ID
	le.PutUint16(buf[off:], msos20CompatIDSize)
	le.PutUint16(buf[off+2:], MSOS20FeatureCompatibleID)
	clear(buf[off+4 : off+msos20CompatIDSize])
	copy(buf[off+4:off+12], "WINUSB")
	off += msos20CompatIDSize

	// Registry property
	nameLen := (len(interfaceGUIDsName) + 1) * 2
	dataLen := (len(m.guid()) + 2) * 2
	le.PutUint16(buf[off:], uint16(m.regPropertySize()))
	le.PutUint16(buf[off+2:], MSOS20FeatureRegProperty)
	le.PutUint16(buf[off+4:], RegMultiSZ)
	le.PutUint16(buf[off+6:], uint16(nameLen))
	off += 8
	off += utf16z(buf[off:], interfaceGUIDsName, 1)
	le.PutUint16(buf[off:], uint16(dataLen))
	off += 2
	off += utf16z(buf[off:], m.guid(), 2)

	return off
}

// utf16z writes s as UTF-16LE followed by nul terminating zero characters.
func utf16z(buf []byte, s string, nul int) int {
	n := 0
	for _, r := range s {
		binary.LittleEndian.PutUint16(buf[n:], uint16(r))
		n += 2
	}
	for i := 0; i < nul; i++ {
		binary.LittleEndian.PutUint16(buf[n:], 0)
		n += 2
	}
	return n
}

// BOSDescriptorTo writes a BOS descriptor carrying the MS OS 2.0 platform
// capability that points Windows at vendor request vendorCode.
// Returns the number of bytes written (BOSSize), or 0 if buf is too small.
func BOSDescriptorTo(buf []byte, vendorCode uint8, setLength uint16) int {
	if len(buf) < BOSSize {
		return 0
	}
	buf[0] = bosHeaderSize
	buf[1] = DescriptorTypeBOS
	binary.LittleEndian.PutUint16(buf[2:4], BOSSize)
	buf[4] = 1

	p := buf[bosHeaderSize:]
	p[0] = platformCapSize
	p[1] = DescriptorTypeDeviceCapability
	p[2] = DeviceCapabilityPlatform
	p[3] = 0
	copy(p[4:20], MSOS20PlatformUUID[:])
	binary.LittleEndian.PutUint32(p[20:24], MSOS20WindowsVersion)
	binary.LittleEndian.PutUint16(p[24:26], setLength)
	p[26] = vendorCode
	p[27] = 0
	return BOSSize
}

// ParseMSOS20SetLength returns wTotalLength from a descriptor set header.
func ParseMSOS20SetLength(data []byte) (uint16, error) {
	if len(data) < msos20SetHeaderSize {
		return 0, pkg.ErrDescriptorTooShort
	}
	if t := binary.LittleEndian.Uint16(data[2:4]); t != MSOS20SetHeaderDescriptor {
		return 0, fmt.Errorf("descriptor type 0x%04X: %w", t, pkg.ErrInvalidRequest)
	}
	return binary.LittleEndian.Uint16(data[8:10]), nil
}
