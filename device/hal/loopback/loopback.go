// Package loopback provides an in-memory [hal.DeviceHAL] wired to a
// host-side handle in the same process.
//
// The device side behaves like a vendor USB stack with bounded FIFOs on
// its bulk pipe: Write accepts only what fits, and the host sees written
// bytes after Flush. The host side, returned by [HAL.Host], implements
// [github.com/picowifi/picowifi/host/hal.Device] so the host control
// client can drive a simulated bridge without hardware.
package loopback

import (
	"context"
	"fmt"
	"sync"

	"github.com/picowifi/picowifi/device/hal"
	hosthal "github.com/picowifi/picowifi/host/hal"
	"github.com/picowifi/picowifi/pkg"
)

// Default FIFO capacities. The transmit FIFO must hold at least one
// encoded MTU frame or the bridge can never drain a full-size frame.
const (
	DefaultRxSize = 4096
	DefaultTxSize = 4096
)

// Endpoint addresses of the vendor pipe.
const (
	EndpointOut uint8 = 0x01
	EndpointIn  uint8 = 0x81
)

// Config sizes the FIFOs and identifies the simulated device.
type Config struct {
	RxSize    int
	TxSize    int
	VendorID  uint16
	ProductID uint16
	Product   string
}

type controlResult struct {
	data []byte
	err  error
}

type pendingControl struct {
	setup hal.SetupPacket
	data  []byte
	done  chan controlResult
}

// HAL is the device side of the loopback.
type HAL struct {
	cfg Config

	mutex    sync.Mutex
	initDone bool
	started  bool
	attached bool
	serial   string

	events  []hal.Event
	setups  []*pendingControl
	current *pendingControl

	rx      []byte
	tx      []byte
	flushed int

	// wake signals the device side; changed is closed and replaced to
	// broadcast state changes to waiting host calls.
	wake    chan struct{}
	changed chan struct{}
}

// New creates a loopback HAL.
func New(cfg Config) *HAL {
	if cfg.RxSize <= 0 {
		cfg.RxSize = DefaultRxSize
	}
	if cfg.TxSize <= 0 {
		cfg.TxSize = DefaultTxSize
	}
	return &HAL{
		cfg:     cfg,
		rx:      make([]byte, 0, cfg.RxSize),
		tx:      make([]byte, 0, cfg.TxSize),
		wake:    make(chan struct{}, 1),
		changed: make(chan struct{}),
	}
}

// Init prepares the HAL.
func (h *HAL) Init(ctx context.Context) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.initDone {
		return pkg.ErrAlreadyRunning
	}
	h.initDone = true
	return ctx.Err()
}

// SetSerial sets the serial number reported to the host.
func (h *HAL) SetSerial(serial string) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.started {
		return pkg.ErrAlreadyRunning
	}
	h.serial = serial
	return nil
}

// Start makes the device visible to the host handle.
func (h *HAL) Start() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if !h.initDone {
		return pkg.ErrNotRunning
	}
	h.started = true
	h.broadcastLocked()
	return nil
}

// Stop detaches the device and fails any control transfer in flight.
func (h *HAL) Stop() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.started = false
	h.attached = false
	h.failPendingLocked(pkg.ErrNoDevice)
	h.rx = h.rx[:0]
	h.tx = h.tx[:0]
	h.flushed = 0
	h.broadcastLocked()
	return nil
}

// Wake implements hal.DeviceHAL.
func (h *HAL) Wake() <-chan struct{} {
	return h.wake
}

// PollEvent implements hal.DeviceHAL.
func (h *HAL) PollEvent(out *hal.Event) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if len(h.events) == 0 {
		return false
	}
	*out = h.events[0]
	h.events = h.events[1:]
	return true
}

// PollSetup implements hal.DeviceHAL.
func (h *HAL) PollSetup(out *hal.SetupPacket) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.current != nil || len(h.setups) == 0 {
		return false
	}
	h.current = h.setups[0]
	h.setups = h.setups[1:]
	*out = h.current.setup
	return true
}

// ReadEP0 implements hal.DeviceHAL.
func (h *HAL) ReadEP0(buf []byte) (int, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.current == nil {
		return 0, pkg.ErrInvalidRequest
	}
	return copy(buf, h.current.data), nil
}

// WriteEP0 implements hal.DeviceHAL.
func (h *HAL) WriteEP0(data []byte) error {
	return h.complete(controlResult{data: append([]byte(nil), data...)})
}

// AckEP0 implements hal.DeviceHAL.
func (h *HAL) AckEP0() error {
	return h.complete(controlResult{})
}

// StallEP0 implements hal.DeviceHAL.
func (h *HAL) StallEP0() error {
	return h.complete(controlResult{err: pkg.ErrStall})
}

func (h *HAL) complete(r controlResult) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.current == nil {
		return pkg.ErrInvalidRequest
	}
	h.current.done <- r
	h.current = nil
	if len(h.setups) > 0 {
		h.signalLocked()
	}
	return nil
}

// Available implements hal.DeviceHAL.
func (h *HAL) Available() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.rx)
}

// Read implements hal.DeviceHAL.
func (h *HAL) Read(buf []byte) (int, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	n := copy(buf, h.rx)
	if n > 0 {
		h.rx = h.rx[:copy(h.rx, h.rx[n:])]
		h.broadcastLocked()
	}
	return n, nil
}

// WriteAvailable implements hal.DeviceHAL.
func (h *HAL) WriteAvailable() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.cfg.TxSize - len(h.tx)
}

// Write implements hal.DeviceHAL.
func (h *HAL) Write(data []byte) (int, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if !h.attached {
		return 0, pkg.ErrNoDevice
	}
	n := min(len(data), h.cfg.TxSize-len(h.tx))
	h.tx = append(h.tx, data[:n]...)
	return n, nil
}

// Flush implements hal.DeviceHAL.
func (h *HAL) Flush() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.flushed != len(h.tx) {
		h.flushed = len(h.tx)
		h.broadcastLocked()
	}
	return nil
}

// Host returns the host-side handle.
func (h *HAL) Host() *Host {
	return &Host{hal: h}
}

// signalLocked wakes the device side without blocking.
func (h *HAL) signalLocked() {
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// broadcastLocked wakes every host call waiting for a state change.
func (h *HAL) broadcastLocked() {
	close(h.changed)
	h.changed = make(chan struct{})
}

func (h *HAL) failPendingLocked(err error) {
	if h.current != nil {
		h.current.done <- controlResult{err: err}
		h.current = nil
	}
	for _, p := range h.setups {
		p.done <- controlResult{err: err}
	}
	h.setups = nil
}

// Host is the host side of the loopback. It implements hosthal.Device.
type Host struct {
	hal *HAL
}

// Attach plugs the device in: the device side receives a mount event.
func (o *Host) Attach() error {
	h := o.hal
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if !h.started {
		return pkg.ErrNoDevice
	}
	if h.attached {
		return nil
	}
	h.attached = true
	h.events = append(h.events, hal.Event{Type: hal.EventMount})
	h.signalLocked()
	return nil
}

// Detach unplugs the device. Pending transfers fail and FIFOs are emptied.
func (o *Host) Detach() {
	h := o.hal
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if !h.attached {
		return
	}
	h.attached = false
	h.failPendingLocked(pkg.ErrNoDevice)
	h.rx = h.rx[:0]
	h.tx = h.tx[:0]
	h.flushed = 0
	h.events = append(h.events, hal.Event{Type: hal.EventUnmount})
	h.signalLocked()
	h.broadcastLocked()
}

// Suspend signals a bus suspend to the device.
func (o *Host) Suspend() {
	o.event(hal.Event{Type: hal.EventSuspend})
}

// Resume signals a bus resume to the device.
func (o *Host) Resume() {
	o.event(hal.Event{Type: hal.EventResume})
}

func (o *Host) event(ev hal.Event) {
	h := o.hal
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if !h.attached {
		return
	}
	h.events = append(h.events, ev)
	h.signalLocked()
}

// Info implements hosthal.Device.
func (o *Host) Info() hosthal.DeviceInfo {
	h := o.hal
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return hosthal.DeviceInfo{
		Bus:       1,
		Address:   1,
		VendorID:  h.cfg.VendorID,
		ProductID: h.cfg.ProductID,
		Product:   h.cfg.Product,
		Serial:    h.serial,
		Path:      "loopback",
	}
}

// ControlTransfer implements hosthal.Device.
func (o *Host) ControlTransfer(ctx context.Context, setup *hosthal.SetupPacket, data []byte) (int, error) {
	h := o.hal
	p := &pendingControl{
		setup: hal.SetupPacket{
			RequestType: setup.RequestType,
			Request:     setup.Request,
			Value:       setup.Value,
			Index:       setup.Index,
			Length:      setup.Length,
		},
		done: make(chan controlResult, 1),
	}
	if !setup.IsIn() {
		p.data = append([]byte(nil), data[:min(len(data), int(setup.Length))]...)
	}

	h.mutex.Lock()
	if !h.attached {
		h.mutex.Unlock()
		return 0, pkg.ErrNoDevice
	}
	h.setups = append(h.setups, p)
	h.signalLocked()
	h.mutex.Unlock()

	select {
	case <-ctx.Done():
		o.cancel(p)
		return 0, ctx.Err()
	case r := <-p.done:
		if r.err != nil {
			return 0, fmt.Errorf("control 0x%02X/0x%04X: %w", setup.Request, setup.Index, r.err)
		}
		if setup.IsIn() {
			return copy(data, r.data), nil
		}
		return len(p.data), nil
	}
}

// cancel withdraws a control transfer the device has not picked up yet.
func (o *Host) cancel(p *pendingControl) {
	h := o.hal
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for i, q := range h.setups {
		if q == p {
			h.setups = append(h.setups[:i], h.setups[i+1:]...)
			return
		}
	}
}

// BulkTransfer implements hosthal.Device. OUT transfers wait until every
// byte fits in the device's receive FIFO; IN transfers wait until flushed
// data is available and return what fits in data.
func (o *Host) BulkTransfer(ctx context.Context, endpoint uint8, data []byte) (int, error) {
	switch endpoint {
	case EndpointOut:
		return o.bulkOut(ctx, data)
	case EndpointIn:
		return o.bulkIn(ctx, data)
	default:
		return 0, fmt.Errorf("endpoint 0x%02X: %w", endpoint, pkg.ErrInvalidRequest)
	}
}

func (o *Host) bulkOut(ctx context.Context, data []byte) (int, error) {
	h := o.hal
	sent := 0
	for {
		h.mutex.Lock()
		if !h.attached {
			h.mutex.Unlock()
			return sent, pkg.ErrNoDevice
		}
		n := min(len(data)-sent, h.cfg.RxSize-len(h.rx))
		if n > 0 {
			h.rx = append(h.rx, data[sent:sent+n]...)
			sent += n
			h.signalLocked()
		}
		if sent == len(data) {
			h.mutex.Unlock()
			return sent, nil
		}
		changed := h.changed
		h.mutex.Unlock()

		select {
		case <-ctx.Done():
			return sent, ctx.Err()
		case <-changed:
		}
	}
}

func (o *Host) bulkIn(ctx context.Context, data []byte) (int, error) {
	h := o.hal
	for {
		h.mutex.Lock()
		if !h.attached {
			h.mutex.Unlock()
			return 0, pkg.ErrNoDevice
		}
		if h.flushed > 0 {
			n := copy(data, h.tx[:h.flushed])
			h.tx = h.tx[:copy(h.tx, h.tx[n:])]
			h.flushed -= n
			h.signalLocked()
			h.mutex.Unlock()
			return n, nil
		}
		changed := h.changed
		h.mutex.Unlock()

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-changed:
		}
	}
}

// Close detaches the device.
func (o *Host) Close() error {
	o.Detach()
	return nil
}

var (
	_ hal.DeviceHAL  = (*HAL)(nil)
	_ hosthal.Device = (*Host)(nil)
)
