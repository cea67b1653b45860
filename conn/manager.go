package conn

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/picowifi/picowifi/control"
	"github.com/picowifi/picowifi/cred"
	"github.com/picowifi/picowifi/device"
	"github.com/picowifi/picowifi/pkg"
	"github.com/picowifi/picowifi/wifi"
)

// Default scheduling intervals.
const (
	DefaultRetryInterval  = 10 * time.Second
	DefaultStatusInterval = 500 * time.Millisecond
	DefaultConnectDelay   = 10 * time.Millisecond
)

// never is a deadline that does not pass.
const never = math.MaxInt64

// State is the connection state.
type State int32

// Connection states.
const (
	Disconnected State = iota
	Connecting
	Connected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Platform performs device-level actions requested over USB.
type Platform interface {
	// ResetToBootloader reboots into firmware update mode. On hardware
	// it does not return.
	ResetToBootloader() error
}

// Config tunes a Manager. Zero fields take defaults.
type Config struct {
	RetryInterval  time.Duration
	StatusInterval time.Duration
	ConnectDelay   time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// Platform receives the firmware update command. If nil, the
	// command only makes ControlComplete return pkg.ErrFirmwareUpdate.
	Platform Platform
}

// Manager is the connection state machine.
//
// Tick, OnLinkUp and OnLinkDown are called from the wireless goroutine
// (or the driver's delivery context); HandleVendor and ControlComplete
// from the USB goroutine. Shared fields are guarded so both may run
// concurrently.
type Manager struct {
	driver wifi.Driver
	cfg    Config
	epoch  time.Time

	// credentials
	mutex      sync.Mutex
	ssid       string
	passphrase string
	auth       wifi.AuthMode

	linkUp     atomic.Bool
	connecting atomic.Bool

	// deadlines in nanoseconds since epoch
	retryAt  atomic.Int64
	statusAt atomic.Int64

	sampleMutex sync.RWMutex
	sample      wifi.Sample

	attempts atomic.Uint64
	wake     chan struct{}

	statusBuf [control.StatusSize]byte
}

// NewManager creates a manager driving d. No connect attempt is
// scheduled until credentials arrive through Bootstrap or a Connect
// command. The first Tick samples status.
func NewManager(d wifi.Driver, cfg Config) *Manager {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = DefaultStatusInterval
	}
	if cfg.ConnectDelay <= 0 {
		cfg.ConnectDelay = DefaultConnectDelay
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	m := &Manager{
		driver: d,
		cfg:    cfg,
		epoch:  cfg.Now(),
		auth:   wifi.AuthOpen,
		wake:   make(chan struct{}, 1),
	}
	m.retryAt.Store(never)
	return m
}

func (m *Manager) now() int64 {
	return int64(m.cfg.Now().Sub(m.epoch))
}

// Bootstrap adopts a stored credential record and schedules a connect.
func (m *Manager) Bootstrap(rec cred.Record) {
	m.mutex.Lock()
	m.ssid = rec.SSID
	m.passphrase = rec.Passphrase
	m.auth = rec.Auth
	m.mutex.Unlock()

	pkg.LogInfo(pkg.ComponentConn, "credentials loaded",
		"ssid", rec.SSID,
		"auth", rec.Auth.String())
	m.scheduleSoon()
}

// SetSSID replaces the network name. Input stops at the first NUL and is
// truncated to control.MaxCredentialLen bytes.
func (m *Manager) SetSSID(b []byte) {
	s := credential("ssid", b)
	m.mutex.Lock()
	m.ssid = s
	m.mutex.Unlock()
}

// SetPassphrase replaces the passphrase, with the same limits as SetSSID.
func (m *Manager) SetPassphrase(b []byte) {
	s := credential("passphrase", b)
	m.mutex.Lock()
	m.passphrase = s
	m.mutex.Unlock()
}

func credential(field string, b []byte) string {
	s := cred.CString(b)
	if len(s) > control.MaxCredentialLen {
		pkg.LogWarn(pkg.ComponentConn, "credential truncated",
			"field", field,
			"len", len(s))
		s = s[:control.MaxCredentialLen]
	}
	return s
}

// Connect sets the authentication mode and schedules an attempt.
func (m *Manager) Connect(auth wifi.AuthMode) {
	m.mutex.Lock()
	m.auth = auth
	m.mutex.Unlock()
	m.scheduleSoon()
}

func (m *Manager) scheduleSoon() {
	m.retryAt.Store(m.now() + int64(m.cfg.ConnectDelay))
	m.signal()
}

func (m *Manager) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Wake returns a channel that receives when a deadline moves earlier or
// the link state changes.
func (m *Manager) Wake() <-chan struct{} {
	return m.wake
}

// SSID returns the configured network name.
func (m *Manager) SSID() string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.ssid
}

// AuthMode returns the configured authentication mode.
func (m *Manager) AuthMode() wifi.AuthMode {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.auth
}

// LinkUp reports whether the station is associated.
func (m *Manager) LinkUp() bool {
	return m.linkUp.Load()
}

// State returns the connection state.
func (m *Manager) State() State {
	switch {
	case m.linkUp.Load():
		return Connected
	case m.connecting.Load():
		return Connecting
	default:
		return Disconnected
	}
}

// Attempts returns the number of connect requests issued to the driver.
func (m *Manager) Attempts() uint64 {
	return m.attempts.Load()
}

// Tick runs whatever is due: a connect attempt if the link is down and
// the retry deadline has passed, and a status sample every status
// interval.
func (m *Manager) Tick() {
	t := m.now()

	if !m.linkUp.Load() {
		if at := m.retryAt.Load(); t >= at {
			// A Connect command racing this tick fails the swap; the next
			// tick sees its deadline.
			if m.retryAt.CompareAndSwap(at, t+int64(m.cfg.RetryInterval)) {
				m.attempt()
			}
		}
	}

	if t >= m.statusAt.Load() {
		m.statusAt.Store(t + int64(m.cfg.StatusInterval))
		m.pollStatus()
	}
}

func (m *Manager) attempt() {
	m.mutex.Lock()
	ssid, pass, auth := m.ssid, m.passphrase, m.auth
	m.mutex.Unlock()

	if ssid == "" {
		pkg.LogWarn(pkg.ComponentConn, "connect skipped, no ssid")
		return
	}
	m.attempts.Add(1)
	m.connecting.Store(true)
	pkg.LogInfo(pkg.ComponentConn, "connecting",
		"ssid", ssid,
		"auth", auth.String())
	if err := m.driver.ConnectAsync(ssid, pass, auth); err != nil {
		m.connecting.Store(false)
		pkg.LogWarn(pkg.ComponentConn, "connect request failed", "error", err)
	}
}

func (m *Manager) pollStatus() {
	s, err := m.driver.PollStatus()
	if err != nil {
		pkg.LogDebug(pkg.ComponentConn, "status poll failed", "error", err)
		return
	}
	m.sampleMutex.Lock()
	m.sample = s
	m.sampleMutex.Unlock()

	// A failed join ends the attempt without a link transition.
	if s.Link < wifi.LinkDown && m.connecting.CompareAndSwap(true, false) {
		pkg.LogInfo(pkg.ComponentConn, "join failed", "link", s.Link.String())
	}
}

// UntilNext returns the time until the next deadline Tick acts on.
func (m *Manager) UntilNext() time.Duration {
	next := m.statusAt.Load()
	if !m.linkUp.Load() {
		next = min(next, m.retryAt.Load())
	}
	d := next - m.now()
	if d < 0 {
		return 0
	}
	return time.Duration(d)
}

// OnLinkUp records an association.
func (m *Manager) OnLinkUp() {
	m.linkUp.Store(true)
	m.connecting.Store(false)
	m.indicate(true)
	pkg.LogInfo(pkg.ComponentConn, "link up", "ssid", m.SSID())
	m.signal()
}

// OnLinkDown records a lost association. Retries resume at the next
// retry deadline.
func (m *Manager) OnLinkDown() {
	m.linkUp.Store(false)
	m.connecting.Store(false)
	m.indicate(false)
	pkg.LogInfo(pkg.ComponentConn, "link down")
	m.signal()
}

func (m *Manager) indicate(on bool) {
	if li, ok := m.driver.(wifi.LinkIndicator); ok {
		li.SetLinkIndicator(on)
	}
}

// Status returns the snapshot served by the Status command.
func (m *Manager) Status() control.Status {
	m.sampleMutex.RLock()
	s := m.sample
	m.sampleMutex.RUnlock()
	return control.Status{
		LinkUp: m.linkUp.Load(),
		Link:   s.Link,
		RSSI:   s.RSSI,
		Rate:   s.Rate,
	}
}

// HandleVendor implements device.VendorHandler for the WiFi request.
func (m *Manager) HandleVendor(setup *device.SetupPacket, data []byte) ([]byte, error) {
	cmd := control.Command(setup.Index)
	pkg.LogDebug(pkg.ComponentConn, "control command",
		"command", cmd.String(),
		"len", len(data))

	switch cmd {
	case control.CmdSetSSID:
		m.SetSSID(data)
		return nil, nil
	case control.CmdSetPassphrase:
		m.SetPassphrase(data)
		return nil, nil
	case control.CmdConnect:
		m.Connect(wifi.AuthFromControlValue(setup.Value))
		return nil, nil
	case control.CmdStatus:
		st := m.Status()
		n := st.MarshalTo(m.statusBuf[:])
		return m.statusBuf[:n], nil
	case control.CmdFirmwareUpdate:
		// Acknowledged first; ControlComplete performs the reset.
		return nil, nil
	default:
		return nil, fmt.Errorf("%s: %w", cmd, pkg.ErrUnknownCommand)
	}
}

// ControlComplete implements device.CompletionHandler. After the
// firmware update command has been acknowledged it resets the device and
// returns an error wrapping pkg.ErrFirmwareUpdate if the reset returns.
func (m *Manager) ControlComplete(setup *device.SetupPacket) error {
	if control.Command(setup.Index) != control.CmdFirmwareUpdate {
		return nil
	}
	pkg.LogWarn(pkg.ComponentConn, "entering firmware update mode")
	if m.cfg.Platform != nil {
		if err := m.cfg.Platform.ResetToBootloader(); err != nil {
			return fmt.Errorf("reset to bootloader: %w", err)
		}
	}
	return pkg.ErrFirmwareUpdate
}

var (
	_ device.VendorHandler     = (*Manager)(nil)
	_ device.CompletionHandler = (*Manager)(nil)
)
