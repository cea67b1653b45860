package wifi

import (
	"fmt"
	"strings"
)

// AuthMode is the driver-native authentication selector.
type AuthMode uint32

// Known authentication modes.
const (
	AuthOpen         AuthMode = 0x00000000
	AuthWPATKIP      AuthMode = 0x00200002
	AuthWPA2AES      AuthMode = 0x00400004
	AuthWPA2MixedPSK AuthMode = 0x00400006

	// DefaultAuthMode is used when a stored credential carries no mode.
	DefaultAuthMode = AuthWPA2AES
)

const (
	authLowMask   = 0x000F
	authHighMask  = 0xFFF0
	authHighShift = 12
)

// AuthFromControlValue reassembles the native mode from the 16-bit control
// transfer value: the low nibble is kept in place and the upper 12 bits
// are shifted up by 12.
func AuthFromControlValue(v uint16) AuthMode {
	return AuthMode(uint32(v&authLowMask) | uint32(v&authHighMask)<<authHighShift)
}

// ControlValue encodes a as a 16-bit control transfer value.
func (a AuthMode) ControlValue() uint16 {
	return uint16(uint32(a)&authLowMask) | uint16((uint32(a)>>authHighShift)&authHighMask)
}

// String returns a short name for known modes and hex otherwise.
func (a AuthMode) String() string {
	switch a {
	case AuthOpen:
		return "open"
	case AuthWPATKIP:
		return "wpa"
	case AuthWPA2AES:
		return "wpa2"
	case AuthWPA2MixedPSK:
		return "wpa2-mixed"
	default:
		return fmt.Sprintf("0x%08x", uint32(a))
	}
}

// ParseAuthMode accepts a mode name or a hexadecimal native value.
func ParseAuthMode(s string) (AuthMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "open", "none":
		return AuthOpen, nil
	case "wpa", "wpa-tkip":
		return AuthWPATKIP, nil
	case "", "wpa2", "wpa2-aes":
		return AuthWPA2AES, nil
	case "mixed", "wpa2-mixed":
		return AuthWPA2MixedPSK, nil
	}
	var v uint32
	if _, err := fmt.Sscanf(strings.TrimPrefix(strings.ToLower(s), "0x"), "%x", &v); err != nil {
		return 0, fmt.Errorf("unknown auth mode %q", s)
	}
	return AuthMode(v), nil
}
