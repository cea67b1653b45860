package bridge

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"github.com/picowifi/picowifi/conn"
	"github.com/picowifi/picowifi/control"
	"github.com/picowifi/picowifi/cred"
	"github.com/picowifi/picowifi/device"
	"github.com/picowifi/picowifi/device/class/ethbridge"
	"github.com/picowifi/picowifi/device/hal"
	"github.com/picowifi/picowifi/frame"
	"github.com/picowifi/picowifi/pkg"
	"github.com/picowifi/picowifi/relay"
	"github.com/picowifi/picowifi/wifi"
)

// DefaultPollInterval bounds how long the USB goroutine sleeps when the
// HAL raises no wake signal.
const DefaultPollInterval = 50 * time.Millisecond

// Config configures a Bridge. Zero fields take defaults.
type Config struct {
	QueueDepth   int
	PollInterval time.Duration

	Conn conn.Config

	// Credentials, when set, seed the connection manager and trigger an
	// immediate connect attempt.
	Credentials *cred.Record

	// InterfaceNumber and InterfaceGUID populate the MS OS 2.0 descriptor set.
	InterfaceNumber uint8
	InterfaceGUID   string
}

// Stats is a snapshot of the bridge's counters.
type Stats struct {
	USB    ethbridge.Stats
	ToWiFi relay.Stats
	ToUSB  relay.Stats

	IngressOversize uint64 // radio frames above the MTU
	EgressSent      uint64 // frames handed to the radio
	EgressLinkDown  uint64 // host frames discarded while the link was down
	EgressErrors    uint64 // radio send failures

	Setups uint64
	Stalls uint64
}

// Bridge relays Ethernet frames between a USB vendor pipe and a radio.
type Bridge struct {
	cfg    Config
	driver wifi.Driver
	stack  *device.Stack
	conn   *conn.Manager
	fn     *ethbridge.Function

	toWiFi *relay.Queue
	toUSB  *relay.Queue

	gate *gate

	// ingress is owned by the radio's delivery context.
	ingress frame.Frame
	egress  frame.Frame

	running         atomic.Bool
	ingressOversize atomic.Uint64
	egressSent      atomic.Uint64
	egressLinkDown  atomic.Uint64
	egressErrors    atomic.Uint64
}

// New wires a bridge between the radio d and the USB device HAL h.
func New(d wifi.Driver, h hal.DeviceHAL, cfg Config) (*Bridge, error) {
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = relay.DefaultDepth
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	b := &Bridge{
		cfg:    cfg,
		driver: d,
		stack:  device.NewStack(h),
		conn:   conn.NewManager(d, cfg.Conn),
		toWiFi: relay.NewQueue(cfg.QueueDepth),
		toUSB:  relay.NewQueue(cfg.QueueDepth),
		gate:   newGate(),
	}
	b.fn = ethbridge.NewFunction(h, b.toWiFi, b.toUSB)
	b.fn.Bind(b.stack)

	msos := device.NewMSOS20Handler(&device.MSOS20{
		InterfaceNumber: cfg.InterfaceNumber,
		InterfaceGUID:   cfg.InterfaceGUID,
	})
	if err := b.stack.RegisterVendor(control.RequestMicrosoft, msos); err != nil {
		return nil, fmt.Errorf("register ms os 2.0 handler: %w", err)
	}
	if err := b.stack.RegisterVendor(control.RequestWiFi, b.conn); err != nil {
		return nil, fmt.Errorf("register wifi handler: %w", err)
	}

	if cfg.Credentials != nil {
		b.conn.Bootstrap(*cfg.Credentials)
	}
	return b, nil
}

// Conn returns the connection manager.
func (b *Bridge) Conn() *conn.Manager {
	return b.conn
}

// Stack returns the USB device stack.
func (b *Bridge) Stack() *device.Stack {
	return b.stack
}

// Stats returns the bridge's counters.
func (b *Bridge) Stats() Stats {
	setups, stalls := b.stack.Stats()
	return Stats{
		USB:             b.fn.Stats(),
		ToWiFi:          b.toWiFi.Stats(),
		ToUSB:           b.toUSB.Stats(),
		IngressOversize: b.ingressOversize.Load(),
		EgressSent:      b.egressSent.Load(),
		EgressLinkDown:  b.egressLinkDown.Load(),
		EgressErrors:    b.egressErrors.Load(),
		Setups:          setups,
		Stalls:          stalls,
	}
}

// SerialFromMAC formats a hardware address as the USB serial number:
// twelve lower-case hex digits.
func SerialFromMAC(mac []byte) string {
	return hex.EncodeToString(mac)
}

// Run brings up the radio and runs both goroutines until ctx is done or
// one of them fails. A firmware update request ends Run with an error
// wrapping pkg.ErrFirmwareUpdate. Run may only be called once per Bridge.
func (b *Bridge) Run(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return pkg.ErrAlreadyRunning
	}
	defer b.running.Store(false)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 2)
	go func() { errc <- b.runUSB(runCtx) }()
	go func() { errc <- b.runWireless(runCtx) }()

	err := <-errc
	cancel()
	err = multierr.Append(err, <-errc)

	// Cancellation of the sibling goroutine is not a failure.
	var result error
	for _, e := range multierr.Errors(err) {
		if !errors.Is(e, context.Canceled) {
			result = multierr.Append(result, e)
		}
	}
	if result == nil {
		return ctx.Err()
	}
	return result
}

// Close shuts the radio down and detaches from the bus.
func (b *Bridge) Close() error {
	return multierr.Combine(
		b.stack.Stop(),
		b.driver.Close(),
	)
}

func (b *Bridge) runWireless(ctx context.Context) error {
	if err := b.driver.Init(ctx, b); err != nil {
		return fmt.Errorf("radio init: %w", err)
	}
	if pm, ok := b.driver.(wifi.PowerManager); ok {
		if err := pm.SetPowerMode(wifi.PowerModePerformance); err != nil {
			pkg.LogWarn(pkg.ComponentWiFi, "power mode not set", "error", err)
		}
	}

	serial := SerialFromMAC(b.driver.HardwareAddr())
	pkg.LogInfo(pkg.ComponentBridge, "radio ready", "serial", serial)
	b.gate.open(serial)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		b.drainEgress()
		b.conn.Tick()

		timer.Reset(b.conn.UntilNext())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.toWiFi.Ready():
		case <-b.conn.Wake():
		case <-timer.C:
		}
	}
}

// drainEgress hands every queued host frame to the radio. Frames are
// discarded while the link is down.
func (b *Bridge) drainEgress() {
	for b.toWiFi.TryDequeue(&b.egress) {
		if !b.conn.LinkUp() {
			b.egressLinkDown.Add(1)
			continue
		}
		if err := b.driver.Send(b.egress.Bytes()); err != nil {
			b.egressErrors.Add(1)
			pkg.LogDebug(pkg.ComponentBridge, "send failed",
				"len", b.egress.Len(),
				"error", err)
			continue
		}
		b.egressSent.Add(1)
	}
}

func (b *Bridge) runUSB(ctx context.Context) error {
	serial, err := b.gate.wait(ctx)
	if err != nil {
		return err
	}
	if err := b.stack.SetSerial(serial); err != nil {
		return fmt.Errorf("set serial: %w", err)
	}
	if err := b.stack.Start(ctx); err != nil {
		return fmt.Errorf("usb start: %w", err)
	}
	defer b.stack.Stop()
	pkg.LogInfo(pkg.ComponentUSB, "usb started", "serial", serial)

	ticker := time.NewTicker(b.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := b.stack.Task(); err != nil {
			return err
		}
		if _, err := b.fn.Receive(); err != nil {
			pkg.LogDebug(pkg.ComponentUSB, "receive failed", "error", err)
		}
		if _, err := b.fn.Drain(); err != nil {
			pkg.LogDebug(pkg.ComponentUSB, "drain failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.stack.Wake():
		case <-b.toUSB.Ready():
		case <-ticker.C:
		}
	}
}

// OnLinkUp implements wifi.Handler.
func (b *Bridge) OnLinkUp() {
	b.conn.OnLinkUp()
}

// OnLinkDown implements wifi.Handler.
func (b *Bridge) OnLinkDown() {
	b.conn.OnLinkDown()
}

// OnFrameReceived implements wifi.Handler. Frames above the MTU or
// arriving while the WiFi-to-USB queue is full are dropped.
func (b *Bridge) OnFrameReceived(data []byte) {
	if err := b.ingress.Set(data); err != nil {
		b.ingressOversize.Add(1)
		pkg.LogDebug(pkg.ComponentRelay, "oversized ingress dropped", "len", len(data))
		return
	}
	if !b.toUSB.TryEnqueue(&b.ingress) {
		pkg.LogDebug(pkg.ComponentRelay, "wifi ingress dropped", "len", len(data))
	}
}

var _ wifi.Handler = (*Bridge)(nil)
