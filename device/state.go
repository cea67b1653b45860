package device

import "fmt"

// State is the device's view of its bus connection.
type State uint8

// Bus states, derived from the HAL's notifications.
const (
	StateDetached   State = iota // Stack not started
	StateAttached                // On the bus, not yet configured by the host
	StateConfigured              // Mounted; the vendor pipe is usable
	StateSuspended               // Mounted, bus suspended
)

// String returns a human-readable state description.
func (s State) String() string {
	switch s {
	case StateDetached:
		return "detached"
	case StateAttached:
		return "attached"
	case StateConfigured:
		return "configured"
	case StateSuspended:
		return "suspended"
	default:
		return fmt.Sprintf("unknown state (%d)", uint8(s))
	}
}
