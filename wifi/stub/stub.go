// Package stub provides a simulated station-mode radio for host builds and
// tests.
//
// The simulated access point accepts a join when the requested SSID,
// passphrase and authentication mode match its configuration. Joins
// complete asynchronously after a configurable delay, the way a real radio
// reports association from its own context. Frames passed to Send are
// recorded and optionally echoed back as received frames.
package stub

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/picowifi/picowifi/pkg"
	"github.com/picowifi/picowifi/wifi"
)

// DefaultHardwareAddr is used when Config.HardwareAddr is empty.
var DefaultHardwareAddr = net.HardwareAddr{0x28, 0xCD, 0xC1, 0x00, 0x00, 0x01}

// Config describes the simulated access point and radio.
type Config struct {
	HardwareAddr net.HardwareAddr
	SSID         string
	Passphrase   string
	Auth         wifi.AuthMode
	RSSI         int32
	Rate         int32
	JoinDelay    time.Duration
	Echo         bool
}

// Driver implements wifi.Driver against a simulated access point.
type Driver struct {
	cfg Config

	mu       sync.Mutex
	handler  wifi.Handler
	link     wifi.LinkStatus
	join     *time.Timer
	connects int
	sent     ringBuffer
	led      bool
	power    wifi.PowerMode
	closed   bool

	// deliverMu serializes OnFrameReceived so the handler sees one producer.
	deliverMu sync.Mutex
}

// New returns a simulated driver.
func New(cfg Config) *Driver {
	if len(cfg.HardwareAddr) == 0 {
		cfg.HardwareAddr = DefaultHardwareAddr
	}
	return &Driver{cfg: cfg}
}

// Init registers h for notifications.
func (d *Driver) Init(ctx context.Context, h wifi.Handler) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.handler != nil {
		return pkg.ErrAlreadyRunning
	}
	d.handler = h
	d.closed = false
	pkg.LogDebug(pkg.ComponentWiFi, "stub radio initialized",
		"mac", d.cfg.HardwareAddr.String())
	return nil
}

// HardwareAddr returns the configured MAC address.
func (d *Driver) HardwareAddr() net.HardwareAddr {
	return d.cfg.HardwareAddr
}

// ConnectAsync schedules a join attempt. A pending attempt is superseded.
func (d *Driver) ConnectAsync(ssid, passphrase string, auth wifi.AuthMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.handler == nil || d.closed {
		return pkg.ErrNotRunning
	}
	if d.join != nil {
		d.join.Stop()
	}
	d.connects++
	if d.link != wifi.LinkUp {
		d.link = wifi.LinkJoin
	}
	d.join = time.AfterFunc(d.cfg.JoinDelay, func() {
		d.complete(ssid, passphrase, auth)
	})
	return nil
}

func (d *Driver) complete(ssid, passphrase string, auth wifi.AuthMode) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	wasUp := d.link == wifi.LinkUp
	switch {
	case ssid != d.cfg.SSID:
		d.link = wifi.LinkNoNet
	case d.cfg.Auth != wifi.AuthOpen && (auth != d.cfg.Auth || passphrase != d.cfg.Passphrase):
		d.link = wifi.LinkBadAuth
	default:
		d.link = wifi.LinkUp
	}
	up := d.link == wifi.LinkUp
	h := d.handler
	d.mu.Unlock()

	pkg.LogDebug(pkg.ComponentWiFi, "stub join complete",
		"ssid", ssid,
		"up", up)

	switch {
	case up && !wasUp:
		h.OnLinkUp()
	case !up && wasUp:
		h.OnLinkDown()
	}
}

// Send records data and echoes it back when configured.
func (d *Driver) Send(data []byte) error {
	d.mu.Lock()
	if d.link != wifi.LinkUp {
		d.mu.Unlock()
		return pkg.ErrLinkDown
	}
	d.sent.push(data)
	echo := d.cfg.Echo
	d.mu.Unlock()

	if echo {
		d.deliver(data)
	}
	return nil
}

// PollStatus returns the simulated link state. RSSI and rate are reported
// only while associated.
func (d *Driver) PollStatus() (wifi.Sample, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.handler == nil {
		return wifi.Sample{}, pkg.ErrNotRunning
	}
	s := wifi.Sample{Link: d.link}
	if d.link == wifi.LinkUp {
		s.RSSI = d.cfg.RSSI
		s.Rate = d.cfg.Rate
	}
	return s, nil
}

// Close cancels any pending join and detaches the handler.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.join != nil {
		d.join.Stop()
	}
	d.closed = true
	d.handler = nil
	d.link = wifi.LinkDown
	return nil
}

// SetLinkIndicator records the LED state.
func (d *Driver) SetLinkIndicator(on bool) {
	d.mu.Lock()
	d.led = on
	d.mu.Unlock()
}

// LinkIndicator returns the last LED state.
func (d *Driver) LinkIndicator() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.led
}

// SetPowerMode records the power-save policy.
func (d *Driver) SetPowerMode(mode wifi.PowerMode) error {
	d.mu.Lock()
	d.power = mode
	d.mu.Unlock()
	return nil
}

// PowerMode returns the last power-save policy set.
func (d *Driver) PowerMode() wifi.PowerMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.power
}

// Inject delivers data as if it arrived over the air.
func (d *Driver) Inject(data []byte) {
	d.deliver(data)
}

// DropLink simulates loss of association.
func (d *Driver) DropLink() {
	d.mu.Lock()
	wasUp := d.link == wifi.LinkUp
	d.link = wifi.LinkDown
	h := d.handler
	d.mu.Unlock()
	if wasUp && h != nil {
		h.OnLinkDown()
	}
}

// Connects returns the number of ConnectAsync calls.
func (d *Driver) Connects() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connects
}

// Sent returns copies of the most recently sent frames, oldest first.
func (d *Driver) Sent() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sent.snapshot()
}

func (d *Driver) deliver(data []byte) {
	d.mu.Lock()
	h := d.handler
	d.mu.Unlock()
	if h == nil {
		return
	}
	d.deliverMu.Lock()
	defer d.deliverMu.Unlock()
	h.OnFrameReceived(data)
}

const ringCapacity = 64

// ringBuffer keeps the last ringCapacity frames, overwriting the oldest.
type ringBuffer struct {
	data       [ringCapacity][]byte
	head, tail int
	count      int
}

func (rb *ringBuffer) push(p []byte) {
	if rb.count == ringCapacity {
		rb.data[rb.tail] = nil
		rb.head = (rb.head + 1) % ringCapacity
		rb.count--
	}
	rb.data[rb.tail] = append([]byte(nil), p...)
	rb.tail = (rb.tail + 1) % ringCapacity
	rb.count++
}

func (rb *ringBuffer) snapshot() [][]byte {
	out := make([][]byte, rb.count)
	i := rb.head
	for c := 0; c < rb.count; c++ {
		out[c] = append([]byte(nil), rb.data[i]...)
		i = (i + 1) % ringCapacity
	}
	return out
}

var (
	_ wifi.Driver        = (*Driver)(nil)
	_ wifi.LinkIndicator = (*Driver)(nil)
	_ wifi.PowerManager  = (*Driver)(nil)
)
