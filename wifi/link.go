package wifi

import "fmt"

// LinkStatus is the driver's station link state.
type LinkStatus int32

// Link status values reported by PollStatus.
const (
	LinkBadAuth LinkStatus = -3
	LinkNoNet   LinkStatus = -2
	LinkFail    LinkStatus = -1
	LinkDown    LinkStatus = 0
	LinkJoin    LinkStatus = 1
	LinkNoIP    LinkStatus = 2
	LinkUp      LinkStatus = 3
)

// String returns a human-readable link status.
func (s LinkStatus) String() string {
	switch s {
	case LinkBadAuth:
		return "bad auth"
	case LinkNoNet:
		return "no network"
	case LinkFail:
		return "failed"
	case LinkDown:
		return "down"
	case LinkJoin:
		return "joining"
	case LinkNoIP:
		return "joined"
	case LinkUp:
		return "up"
	default:
		return fmt.Sprintf("unknown (%d)", int32(s))
	}
}
