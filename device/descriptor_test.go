package device

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/picowifi/picowifi/pkg"
)

func TestMSOS20_MarshalTo(t *testing.T) {
	m := &MSOS20{InterfaceNumber: 0}
	if got := m.TotalLength(); got != 0xB2 {
		t.Fatalf("TotalLength() = 0x%X, want 0xB2", got)
	}

	buf := make([]byte, 256)
	n := m.MarshalTo(buf)
	if n != 0xB2 {
		t.Fatalf("MarshalTo() = %d, want %d", n, 0xB2)
	}

	le := binary.LittleEndian
	checks := []struct {
		name string
		off  int
		want uint16
	}{
		{"set wLength", 0, 10},
		{"set type", 2, MSOS20SetHeaderDescriptor},
		{"set total", 8, 0xB2},
		{"config wLength", 10, 8},
		{"config type", 12, MSOS20SubsetHeaderConfiguration},
		{"config total", 16, 0xA8},
		{"function wLength", 18, 8},
		{"function type", 20, MSOS20SubsetHeaderFunction},
		{"function total", 24, 0xA0},
		{"compat wLength", 26, 20},
		{"compat type", 28, MSOS20FeatureCompatibleID},
		{"reg wLength", 46, 132},
		{"reg type", 48, MSOS20FeatureRegProperty},
		{"reg data type", 50, RegMultiSZ},
		{"reg name length", 52, 42},
		{"reg data length", 96, 80},
	}
	for _, c := range checks {
		if got := le.Uint16(buf[c.off:]); got != c.want {
			t.Errorf("%s = 0x%04X, want 0x%04X", c.name, got, c.want)
		}
	}
	if v := le.Uint32(buf[4:8]); v != MSOS20WindowsVersion {
		t.Errorf("windows version = 0x%08X", v)
	}
	if !bytes.Equal(buf[30:38], []byte("WINUSB\x00\x00")) {
		t.Errorf("compatible ID = %q", buf[30:38])
	}
	if buf[54] != 'D' || buf[55] != 0 {
		t.Errorf("property name starts with % X", buf[54:58])
	}
	if buf[98] != '{' || buf[n-1] != 0 || buf[n-2] != 0 || buf[n-3] != 0 || buf[n-4] != 0 {
		t.Errorf("property data framing wrong: % X ... % X", buf[98:100], buf[n-4:n])
	}

	if got := m.MarshalTo(buf[:n-1]); got != 0 {
		t.Errorf("MarshalTo(short) = %d, want 0", got)
	}
}

func TestMSOS20_InterfaceNumber(t *testing.T) {
	m := &MSOS20{InterfaceNumber: 2, InterfaceGUID: DefaultInterfaceGUID}
	buf := make([]byte, m.TotalLength())
	m.MarshalTo(buf)
	if buf[22] != 2 {
		t.Errorf("bFirstInterface = %d, want 2", buf[22])
	}
}

func TestParseMSOS20SetLength(t *testing.T) {
	m := &MSOS20{}
	buf := make([]byte, m.TotalLength())
	m.MarshalTo(buf)

	got, err := ParseMSOS20SetLength(buf)
	if err != nil {
		t.Fatalf("ParseMSOS20SetLength() error = %v", err)
	}
	if int(got) != len(buf) {
		t.Errorf("ParseMSOS20SetLength() = %d, want %d", got, len(buf))
	}

	if _, err := ParseMSOS20SetLength(buf[:4]); !errors.Is(err, pkg.ErrDescriptorTooShort) {
		t.Errorf("short error = %v, want ErrDescriptorTooShort", err)
	}
	buf[2] = 0x03
	if _, err := ParseMSOS20SetLength(buf); !errors.Is(err, pkg.ErrInvalidRequest) {
		t.Errorf("wrong type error = %v, want ErrInvalidRequest", err)
	}
}

func TestBOSDescriptorTo(t *testing.T) {
	var buf [BOSSize]byte
	n := BOSDescriptorTo(buf[:], 1, 0xB2)
	if n != 33 {
		t.Fatalf("BOSDescriptorTo() = %d, want 33", n)
	}
	if buf[1] != DescriptorTypeBOS || buf[4] != 1 {
		t.Errorf("header = % X", buf[:5])
	}
	if binary.LittleEndian.Uint16(buf[2:4]) != 33 {
		t.Errorf("wTotalLength = %d", binary.LittleEndian.Uint16(buf[2:4]))
	}
	if !bytes.Equal(buf[9:25], MSOS20PlatformUUID[:]) {
		t.Errorf("uuid = % X", buf[9:25])
	}
	if binary.LittleEndian.Uint16(buf[29:31]) != 0xB2 || buf[31] != 1 {
		t.Errorf("set length/vendor code = % X", buf[29:33])
	}
	if BOSDescriptorTo(buf[:10], 1, 0xB2) != 0 {
		t.Error("BOSDescriptorTo(short) should return 0")
	}
}
