package hal

import (
	"strings"
	"testing"
)

// =============================================================================
// SetupPacket Tests
// =============================================================================

func TestParseSetupPacket(t *testing.T) {
	data := []byte{
		0xC0,       // RequestType (Device-to-Host, Vendor, Device)
		0x02,       // Request (WiFi)
		0x00, 0x00, // Value
		0x03, 0x00, // Index (Status)
		0x10, 0x00, // Length (16)
	}

	var pkt SetupPacket
	if !ParseSetupPacket(data, &pkt) {
		t.Fatal("ParseSetupPacket returned false")
	}
	want := SetupPacket{RequestType: 0xC0, Request: 0x02, Index: 3, Length: 16}
	if pkt != want {
		t.Errorf("ParseSetupPacket() = %+v, want %+v", pkt, want)
	}
	if !pkt.IsIn() {
		t.Error("IsIn() = false for 0xC0")
	}

	if ParseSetupPacket(data[:7], &pkt) {
		t.Error("ParseSetupPacket accepted 7 bytes")
	}
}

func TestSetupPacket_MarshalTo(t *testing.T) {
	tests := []struct {
		name string
		pkt  SetupPacket
	}{
		{"connect", SetupPacket{RequestType: 0x40, Request: 0x02, Value: 0x0404, Index: 0x0002}},
		{"firmware update", SetupPacket{RequestType: 0x40, Request: 0x02, Index: 0x0100}},
		{"msos20", SetupPacket{RequestType: 0xC0, Request: 0x01, Index: 0x0007, Length: 0xB2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf [SetupPacketSize]byte
			if n := tt.pkt.MarshalTo(buf[:]); n != SetupPacketSize {
				t.Fatalf("MarshalTo() = %d", n)
			}
			var got SetupPacket
			ParseSetupPacket(buf[:], &got)
			if got != tt.pkt {
				t.Errorf("round trip = %+v, want %+v", got, tt.pkt)
			}
		})
	}

	var small [4]byte
	pkt := SetupPacket{}
	if n := pkt.MarshalTo(small[:]); n != 0 {
		t.Errorf("MarshalTo(short) = %d, want 0", n)
	}
}

func TestDeviceInfo_String(t *testing.T) {
	info := DeviceInfo{Bus: 1, Address: 4, VendorID: 0x20A0, ProductID: 0x42EC, Product: "PicoWifi", Serial: "28cdc1000001"}
	s := info.String()
	for _, want := range []string{"001:004", "20a0:42ec", "PicoWifi", "[28cdc1000001]"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}
