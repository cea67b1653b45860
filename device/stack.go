package device

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/picowifi/picowifi/device/hal"
	"github.com/picowifi/picowifi/pkg"
)

// MaxControlDataSize is the maximum data size for control transfers.
const MaxControlDataSize = 512

// MaxVendorRequests is the number of vendor bRequest codes a Stack can route.
const MaxVendorRequests = 8

// VendorHandler handles one vendor bRequest code.
//
// data holds the OUT data stage, if any. For IN requests the returned
// slice is sent to the host, truncated to wLength. A non-nil error stalls
// the transfer.
type VendorHandler interface {
	HandleVendor(setup *SetupPacket, data []byte) ([]byte, error)
}

// VendorHandlerFunc adapts a function to VendorHandler.
type VendorHandlerFunc func(setup *SetupPacket, data []byte) ([]byte, error)

// HandleVendor calls f.
func (f VendorHandlerFunc) HandleVendor(setup *SetupPacket, data []byte) ([]byte, error) {
	return f(setup, data)
}

// CompletionHandler is implemented by vendor handlers that must act after
// the status stage has been sent, such as a reset into the bootloader.
// An error returned here is fatal to the Stack's owner.
type CompletionHandler interface {
	ControlComplete(setup *SetupPacket) error
}

type vendorEntry struct {
	request uint8
	handler VendorHandler
}

// Stack dispatches bus notifications and vendor control transfers from a
// DeviceHAL. It is poll-driven: the owning goroutine calls Task whenever
// the HAL's Wake channel fires.
type Stack struct {
	hal hal.DeviceHAL

	// State
	running bool
	mutex   sync.RWMutex

	mounted   atomic.Bool
	suspended atomic.Bool

	vendors    [MaxVendorRequests]vendorEntry
	numVendors int

	// Reusable buffers for zero-allocation polling
	setupBuf   hal.SetupPacket
	eventBuf   hal.Event
	ep0ReadBuf [MaxControlDataSize]byte

	// Event callbacks
	onMount   func()
	onUnmount func()

	setups atomic.Uint64
	stalls atomic.Uint64
}

// NewStack creates a new device stack.
func NewStack(h hal.DeviceHAL) *Stack {
	return &Stack{hal: h}
}

// RegisterVendor routes vendor requests with the given bRequest to h.
// Must be called before Start.
func (s *Stack) RegisterVendor(request uint8, h VendorHandler) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.running {
		return pkg.ErrAlreadyRunning
	}
	for i := 0; i < s.numVendors; i++ {
		if s.vendors[i].request == request {
			s.vendors[i].handler = h
			return nil
		}
	}
	if s.numVendors >= MaxVendorRequests {
		return pkg.ErrNotSupported
	}
	s.vendors[s.numVendors] = vendorEntry{request: request, handler: h}
	s.numVendors++
	return nil
}

// SetSerial sets the serial number string. Must be called before Start.
func (s *Stack) SetSerial(serial string) error {
	s.mutex.RLock()
	running := s.running
	s.mutex.RUnlock()
	if running {
		return pkg.ErrAlreadyRunning
	}
	return s.hal.SetSerial(serial)
}

// Start initializes the HAL and attaches to the bus.
func (s *Stack) Start(ctx context.Context) error {
	s.mutex.Lock()
	if s.running {
		s.mutex.Unlock()
		return pkg.ErrAlreadyRunning
	}
	s.mutex.Unlock()

	if err := s.hal.Init(ctx); err != nil {
		return err
	}

	if err := s.hal.Start(); err != nil {
		return err
	}

	s.mutex.Lock()
	s.running = true
	s.mutex.Unlock()

	pkg.LogDebug(pkg.ComponentUSB, "device stack started")
	return nil
}

// Stop detaches from the bus.
func (s *Stack) Stop() error {
	s.mutex.Lock()
	if !s.running {
		s.mutex.Unlock()
		return nil
	}
	s.running = false
	s.mutex.Unlock()

	s.mounted.Store(false)
	if err := s.hal.Stop(); err != nil {
		return err
	}

	pkg.LogDebug(pkg.ComponentUSB, "device stack stopped")
	return nil
}

// IsRunning returns true if the stack is running.
func (s *Stack) IsRunning() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.running
}

// Mounted reports whether the host has configured the device.
func (s *Stack) Mounted() bool {
	return s.mounted.Load()
}

// Suspended reports whether the bus is suspended.
func (s *Stack) Suspended() bool {
	return s.suspended.Load()
}

// State returns the current bus state.
func (s *Stack) State() State {
	switch {
	case !s.IsRunning():
		return StateDetached
	case !s.mounted.Load():
		return StateAttached
	case s.suspended.Load():
		return StateSuspended
	default:
		return StateConfigured
	}
}

// Wake returns the HAL's activity channel.
func (s *Stack) Wake() <-chan struct{} {
	return s.hal.Wake()
}

// SetOnMount sets the mount callback.
func (s *Stack) SetOnMount(cb func()) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.onMount = cb
}

// SetOnUnmount sets the unmount callback.
func (s *Stack) SetOnUnmount(cb func()) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.onUnmount = cb
}

// Stats returns the number of SETUP packets handled and stalled.
func (s *Stack) Stats() (setups, stalls uint64) {
	return s.setups.Load(), s.stalls.Load()
}

// Task processes every pending bus notification and vendor SETUP packet.
// It never blocks. A non-nil error comes from a CompletionHandler and
// means the device must stop.
func (s *Stack) Task() error {
	for s.hal.PollEvent(&s.eventBuf) {
		s.handleEvent(&s.eventBuf)
	}

	for s.hal.PollSetup(&s.setupBuf) {
		var setup SetupPacket
		setup.fromHAL(&s.setupBuf)
		s.setups.Add(1)

		handler, err := s.handleSetup(&setup)
		if err != nil {
			pkg.LogWarn(pkg.ComponentUSB, "error handling setup",
				"error", err,
				"request", setup.String())
			s.stalls.Add(1)
			s.hal.StallEP0()
			continue
		}
		if c, ok := handler.(CompletionHandler); ok {
			if err := c.ControlComplete(&setup); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Stack) handleEvent(ev *hal.Event) {
	pkg.LogDebug(pkg.ComponentUSB, "bus event", "event", ev.Type.String())

	s.mutex.RLock()
	onMount, onUnmount := s.onMount, s.onUnmount
	s.mutex.RUnlock()

	switch ev.Type {
	case hal.EventMount:
		s.mounted.Store(true)
		s.suspended.Store(false)
		if onMount != nil {
			onMount()
		}
	case hal.EventUnmount:
		s.mounted.Store(false)
		s.suspended.Store(false)
		if onUnmount != nil {
			onUnmount()
		}
	case hal.EventSuspend:
		s.suspended.Store(true)
	case hal.EventResume:
		s.suspended.Store(false)
	}
}

func (s *Stack) lookup(request uint8) VendorHandler {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	for i := 0; i < s.numVendors; i++ {
		if s.vendors[i].request == request {
			return s.vendors[i].handler
		}
	}
	return nil
}

// handleSetup processes a single SETUP transaction and returns the
// handler that accepted it.
func (s *Stack) handleSetup(setup *SetupPacket) (VendorHandler, error) {
	pkg.LogDebug(pkg.ComponentUSB, "setup received",
		"request", setup.String())

	if !setup.IsVendor() {
		return nil, pkg.ErrInvalidRequest
	}
	handler := s.lookup(setup.Request)
	if handler == nil {
		return nil, pkg.ErrInvalidRequest
	}

	var data []byte
	if setup.IsHostToDevice() && setup.Length > 0 {
		maxLen := int(setup.Length)
		if maxLen > MaxControlDataSize {
			maxLen = MaxControlDataSize
		}
		n, err := s.hal.ReadEP0(s.ep0ReadBuf[:maxLen])
		if err != nil {
			return nil, err
		}
		data = s.ep0ReadBuf[:n]
	}

	resp, err := handler.HandleVendor(setup, data)
	if err != nil {
		return nil, err
	}
	return handler, s.completeSetup(setup, resp)
}

// completeSetup completes the control transfer.
func (s *Stack) completeSetup(setup *SetupPacket, data []byte) error {
	if setup.IsDeviceToHost() {
		if len(data) > int(setup.Length) {
			data = data[:setup.Length]
		}
		return s.hal.WriteEP0(data)
	}
	return s.hal.AckEP0()
}
