package pkg

import "errors"

// Relay and framing errors.
var (
	// ErrQueueFull indicates a relay queue had no free slot; the frame was dropped.
	ErrQueueFull = errors.New("relay queue full")

	// ErrMalformedFrame indicates a wire header with a bad magic or an oversize length.
	ErrMalformedFrame = errors.New("malformed frame header")

	// ErrOversizedFrame indicates a frame larger than the MTU.
	ErrOversizedFrame = errors.New("frame exceeds MTU")

	// ErrLinkDown indicates the wireless link was down when a frame was due for egress.
	ErrLinkDown = errors.New("wireless link down")
)

// Connection and control errors.
var (
	// ErrUnknownCommand indicates an unsupported vendor control command.
	ErrUnknownCommand = errors.New("unknown control command")

	// ErrNoCredentials indicates no valid credential record was found.
	ErrNoCredentials = errors.New("no stored credentials")

	// ErrCredentialTooLong indicates an SSID or passphrase longer than 64 bytes.
	ErrCredentialTooLong = errors.New("credential too long")

	// ErrFirmwareUpdate indicates the device left normal operation for update mode.
	ErrFirmwareUpdate = errors.New("reset into firmware update mode")
)

// USB protocol errors.
var (
	// ErrStall indicates an endpoint stall condition.
	ErrStall = errors.New("endpoint stalled")

	// ErrTimeout indicates a transfer timeout.
	ErrTimeout = errors.New("transfer timeout")

	// ErrNoDevice indicates the device is not present.
	ErrNoDevice = errors.New("device not present")

	// ErrInvalidRequest indicates an invalid or unsupported request.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrBufferTooSmall indicates the provided buffer is too small.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrNotSupported indicates an unsupported operation or feature.
	ErrNotSupported = errors.New("not supported")

	// ErrDescriptorTooShort indicates the descriptor data is too short.
	ErrDescriptorTooShort = errors.New("descriptor too short")

	// ErrSetupPacketTooShort indicates the setup packet data is too short.
	ErrSetupPacketTooShort = errors.New("setup packet too short")

	// ErrAlreadyRunning indicates the stack is already running.
	ErrAlreadyRunning = errors.New("already running")

	// ErrNotRunning indicates the stack is not running.
	ErrNotRunning = errors.New("not running")
)
