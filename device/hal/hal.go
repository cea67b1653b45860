package hal

import (
	"context"
	"encoding/binary"
	"fmt"
)

// EventType identifies a bus notification.
type EventType uint8

// Bus notifications.
const (
	EventNone EventType = iota
	EventMount
	EventUnmount
	EventSuspend
	EventResume
)

// String returns a human-readable event name.
func (e EventType) String() string {
	switch e {
	case EventMount:
		return "Mount"
	case EventUnmount:
		return "Unmount"
	case EventSuspend:
		return "Suspend"
	case EventResume:
		return "Resume"
	case EventNone:
		return "None"
	default:
		return fmt.Sprintf("Event(%d)", uint8(e))
	}
}

// Event is one bus notification.
type Event struct {
	Type EventType

	// RemoteWakeup is set on EventSuspend when the host permits remote wakeup.
	RemoteWakeup bool
}

// SetupPacket is the raw 8-byte SETUP stage of a control transfer on EP0.
type SetupPacket struct {
	RequestType uint8
	Request     uint8
	Value       uint16
	Index       uint16
	Length      uint16 // data stage length
}

// SetupPacketSize is the encoded size of a SetupPacket.
const SetupPacketSize = 8

// ParseSetupPacket decodes data into out, reporting false when data is short.
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

// MarshalTo encodes s into buf. It returns 0 if buf is too small.
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

// DeviceHAL defines the Hardware Abstraction Layer interface for the
// bridge's USB device side.
//
// Lifecycle methods are called from the goroutine that owns the device.
// Every other method is called only from that same goroutine except Wake,
// which may be selected on from anywhere.
type DeviceHAL interface {
	// Initialization and Lifecycle

	// Init initializes the USB controller hardware.
	// The context can be used to cancel initialization.
	Init(ctx context.Context) error

	// SetSerial sets the serial number string reported during enumeration.
	// Must be called before Start.
	SetSerial(serial string) error

	// Start attaches to the bus. After Start returns, the device should
	// be visible to the host.
	Start() error

	// Stop detaches from the bus and disables the USB controller.
	Stop() error

	// Wake returns a channel that receives whenever an event, a SETUP
	// packet, received data or freed transmit space may be pending.
	Wake() <-chan struct{}

	// Bus Notifications

	// PollEvent removes the oldest pending bus notification into out.
	// Returns false if none is pending.
	PollEvent(out *Event) bool

	// Control Endpoint (EP0) Operations

	// PollSetup removes the oldest pending vendor SETUP packet into out.
	// Returns false if none is pending.
	PollSetup(out *SetupPacket) bool

	// ReadEP0 reads the data stage of the current OUT control transfer.
	// Returns the number of bytes read into buf.
	ReadEP0(buf []byte) (int, error)

	// WriteEP0 sends the data stage of the current IN control transfer
	// and completes it.
	WriteEP0(data []byte) error

	// AckEP0 completes the current control transfer with a zero-length
	// status stage.
	AckEP0() error

	// StallEP0 stalls the current control transfer.
	StallEP0() error

	// Vendor Pipe Operations

	// Available returns the number of received bytes ready to Read.
	Available() int

	// Read copies up to len(buf) received bytes into buf.
	Read(buf []byte) (int, error)

	// WriteAvailable returns the free space in the transmit FIFO.
	WriteAvailable() int

	// Write copies data into the transmit FIFO. Returns the number of
	// bytes accepted, which is less than len(data) only if the FIFO
	// filled.
	Write(data []byte) (int, error)

	// Flush hands buffered transmit data to the controller.
	Flush() error
}
