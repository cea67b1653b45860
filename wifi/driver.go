package wifi

import (
	"context"
	"net"
)

// Handler receives asynchronous notifications from a Driver.
//
// OnFrameReceived may be invoked from the driver's delivery context. The
// buffer is only valid for the duration of the call, and the handler must
// not block.
type Handler interface {
	OnLinkUp()
	OnLinkDown()
	OnFrameReceived(data []byte)
}

// Sample is one periodic status reading.
type Sample struct {
	Link LinkStatus
	RSSI int32
	Rate int32
}

// Driver is the core-facing surface of a station-mode radio driver.
type Driver interface {
	// Init brings up the radio and registers h for notifications.
	Init(ctx context.Context, h Handler) error

	// HardwareAddr returns the station MAC address. Valid after Init.
	HardwareAddr() net.HardwareAddr

	// ConnectAsync starts joining a network and returns immediately.
	// Completion is reported through Handler.OnLinkUp.
	ConnectAsync(ssid, passphrase string, auth AuthMode) error

	// Send transmits one Ethernet frame on the station interface.
	Send(data []byte) error

	// PollStatus samples link status, RSSI and transmit rate.
	PollStatus() (Sample, error)

	// Close shuts the radio down.
	Close() error
}

// LinkIndicator is implemented by drivers with a link LED.
type LinkIndicator interface {
	SetLinkIndicator(on bool)
}

// PowerMode selects the radio power-save policy.
type PowerMode int

// Power modes.
const (
	PowerModeDefault PowerMode = iota
	PowerModePerformance
	PowerModeAggressive
)

// String returns the power mode name.
func (p PowerMode) String() string {
	switch p {
	case PowerModePerformance:
		return "performance"
	case PowerModeAggressive:
		return "aggressive"
	default:
		return "default"
	}
}

// PowerManager is implemented by drivers that support power-save tuning.
type PowerManager interface {
	SetPowerMode(mode PowerMode) error
}
