// Package config loads the simulated bridge's TOML configuration.
//
// Keys present in the file overlay [Default]; absent keys keep their
// defaults. Durations are Go duration strings such as "500ms".
//
//	queue_depth = 16
//	credentials = "wificred.uf2"
//
//	[timing]
//	retry = "10s"
//	status = "500ms"
//
//	[radio]
//	mac = "28:cd:c1:00:00:01"
//	ssid = "HomeAP"
//	passphrase = "secret"
//	auth = "wpa2"
//
//	[log]
//	level = "info"
//	format = "json"
package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/picowifi/picowifi/bridge"
	"github.com/picowifi/picowifi/conn"
	"github.com/picowifi/picowifi/control"
	"github.com/picowifi/picowifi/cred"
	"github.com/picowifi/picowifi/pkg"
	"github.com/picowifi/picowifi/relay"
	"github.com/picowifi/picowifi/wifi"
	"github.com/picowifi/picowifi/wifi/stub"
)

// Config is the resolved bridge configuration.
type Config struct {
	QueueDepth     int
	CredentialPath string

	VendorID  uint16
	ProductID uint16

	PollInterval   time.Duration
	RetryInterval  time.Duration
	StatusInterval time.Duration
	ConnectDelay   time.Duration

	LogLevel  string
	LogFormat string

	Radio Radio
}

// Radio describes the simulated access point and station.
type Radio struct {
	MAC        string
	SSID       string
	Passphrase string
	Auth       string
	RSSI       int32
	Rate       int32
	JoinDelay  time.Duration
	Echo       bool
}

// config.toml key mapping.
type fileConfig struct {
	QueueDepth  int    `toml:"queue_depth"`
	Credentials string `toml:"credentials"`
	VendorID    int    `toml:"vendor_id"`
	ProductID   int    `toml:"product_id"`

	Timing struct {
		Poll    string `toml:"poll"`
		Retry   string `toml:"retry"`
		Status  string `toml:"status"`
		Connect string `toml:"connect"`
	} `toml:"timing"`

	Radio struct {
		MAC        string `toml:"mac"`
		SSID       string `toml:"ssid"`
		Passphrase string `toml:"passphrase"`
		Auth       string `toml:"auth"`
		RSSI       int32  `toml:"rssi"`
		Rate       int32  `toml:"rate"`
		JoinDelay  string `toml:"join_delay"`
		Echo       bool   `toml:"echo"`
	} `toml:"radio"`

	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		QueueDepth:     relay.DefaultDepth,
		VendorID:       control.DefaultVendorID,
		ProductID:      control.DefaultProductID,
		PollInterval:   bridge.DefaultPollInterval,
		RetryInterval:  conn.DefaultRetryInterval,
		StatusInterval: conn.DefaultStatusInterval,
		ConnectDelay:   conn.DefaultConnectDelay,
		LogLevel:       "warn",
		LogFormat:      "text",
		Radio: Radio{
			MAC:       stub.DefaultHardwareAddr.String(),
			Auth:      wifi.DefaultAuthMode.String(),
			RSSI:      -50,
			Rate:      72,
			JoinDelay: 200 * time.Millisecond,
			Echo:      true,
		},
	}
}

// Load reads path and overlays its keys on Default.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		pkg.LogWarn(pkg.ComponentBridge, "unknown config keys",
			"path", path,
			"keys", fmt.Sprint(undecoded))
	}

	if meta.IsDefined("queue_depth") {
		cfg.QueueDepth = raw.QueueDepth
	}
	if meta.IsDefined("credentials") {
		cfg.CredentialPath = strings.TrimSpace(raw.Credentials)
	}
	if meta.IsDefined("vendor_id") {
		cfg.VendorID = uint16(raw.VendorID)
	}
	if meta.IsDefined("product_id") {
		cfg.ProductID = uint16(raw.ProductID)
	}

	durations := []struct {
		key []string
		raw string
		dst *time.Duration
	}{
		{[]string{"timing", "poll"}, raw.Timing.Poll, &cfg.PollInterval},
		{[]string{"timing", "retry"}, raw.Timing.Retry, &cfg.RetryInterval},
		{[]string{"timing", "status"}, raw.Timing.Status, &cfg.StatusInterval},
		{[]string{"timing", "connect"}, raw.Timing.Connect, &cfg.ConnectDelay},
		{[]string{"radio", "join_delay"}, raw.Radio.JoinDelay, &cfg.Radio.JoinDelay},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key...) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return Config{}, fmt.Errorf("load config: %s: %w", strings.Join(d.key, "."), err)
		}
		*d.dst = v
	}

	if meta.IsDefined("radio", "mac") {
		cfg.Radio.MAC = strings.TrimSpace(raw.Radio.MAC)
	}
	if meta.IsDefined("radio", "ssid") {
		cfg.Radio.SSID = raw.Radio.SSID
	}
	if meta.IsDefined("radio", "passphrase") {
		cfg.Radio.Passphrase = raw.Radio.Passphrase
	}
	if meta.IsDefined("radio", "auth") {
		cfg.Radio.Auth = strings.TrimSpace(raw.Radio.Auth)
	}
	if meta.IsDefined("radio", "rssi") {
		cfg.Radio.RSSI = raw.Radio.RSSI
	}
	if meta.IsDefined("radio", "rate") {
		cfg.Radio.Rate = raw.Radio.Rate
	}
	if meta.IsDefined("radio", "echo") {
		cfg.Radio.Echo = raw.Radio.Echo
	}
	if meta.IsDefined("log", "level") {
		cfg.LogLevel = strings.TrimSpace(raw.Log.Level)
	}
	if meta.IsDefined("log", "format") {
		cfg.LogFormat = strings.TrimSpace(raw.Log.Format)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// Encode writes c to w as TOML in the layout Load reads.
func (c *Config) Encode(w io.Writer) error {
	var raw fileConfig
	raw.QueueDepth = c.QueueDepth
	raw.Credentials = c.CredentialPath
	raw.VendorID = int(c.VendorID)
	raw.ProductID = int(c.ProductID)
	raw.Timing.Poll = c.PollInterval.String()
	raw.Timing.Retry = c.RetryInterval.String()
	raw.Timing.Status = c.StatusInterval.String()
	raw.Timing.Connect = c.ConnectDelay.String()
	raw.Radio.MAC = c.Radio.MAC
	raw.Radio.SSID = c.Radio.SSID
	raw.Radio.Passphrase = c.Radio.Passphrase
	raw.Radio.Auth = c.Radio.Auth
	raw.Radio.RSSI = c.Radio.RSSI
	raw.Radio.Rate = c.Radio.Rate
	raw.Radio.JoinDelay = c.Radio.JoinDelay.String()
	raw.Radio.Echo = c.Radio.Echo
	raw.Log.Level = c.LogLevel
	raw.Log.Format = c.LogFormat
	return toml.NewEncoder(w).Encode(raw)
}

// Validate checks ranges and parses the radio fields.
func (c *Config) Validate() error {
	if c.QueueDepth < 1 || c.QueueDepth > 1024 {
		return fmt.Errorf("queue_depth %d out of range [1, 1024]", c.QueueDepth)
	}
	for name, d := range map[string]time.Duration{
		"timing.poll":    c.PollInterval,
		"timing.retry":   c.RetryInterval,
		"timing.status":  c.StatusInterval,
		"timing.connect": c.ConnectDelay,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.Radio.JoinDelay < 0 {
		return fmt.Errorf("radio.join_delay must not be negative")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q: want text or json", c.LogFormat)
	}
	if _, err := c.StubConfig(); err != nil {
		return err
	}
	return nil
}

// StubConfig returns the simulated radio configuration.
func (c *Config) StubConfig() (stub.Config, error) {
	mac, err := net.ParseMAC(c.Radio.MAC)
	if err != nil {
		return stub.Config{}, fmt.Errorf("radio.mac: %w", err)
	}
	auth, err := wifi.ParseAuthMode(c.Radio.Auth)
	if err != nil {
		return stub.Config{}, fmt.Errorf("radio.auth: %w", err)
	}
	rec := cred.Record{SSID: c.Radio.SSID, Passphrase: c.Radio.Passphrase}
	if err := rec.Validate(); err != nil {
		return stub.Config{}, fmt.Errorf("radio: %w", err)
	}
	return stub.Config{
		HardwareAddr: mac,
		SSID:         c.Radio.SSID,
		Passphrase:   c.Radio.Passphrase,
		Auth:         auth,
		RSSI:         c.Radio.RSSI,
		Rate:         c.Radio.Rate,
		JoinDelay:    c.Radio.JoinDelay,
		Echo:         c.Radio.Echo,
	}, nil
}

// BridgeConfig returns the bridge configuration, loading the credential
// image if one is configured. A missing record in the image is not an
// error: the bridge then waits for credentials over USB.
func (c *Config) BridgeConfig() (bridge.Config, error) {
	cfg := bridge.Config{
		QueueDepth:   c.QueueDepth,
		PollInterval: c.PollInterval,
		Conn: conn.Config{
			RetryInterval:  c.RetryInterval,
			StatusInterval: c.StatusInterval,
			ConnectDelay:   c.ConnectDelay,
		},
	}
	if c.CredentialPath == "" {
		return cfg, nil
	}
	rec, err := cred.LoadFile(c.CredentialPath)
	switch {
	case err == nil:
		cfg.Credentials = &rec
	case errors.Is(err, pkg.ErrNoCredentials):
		pkg.LogInfo(pkg.ComponentCred, "no credential record", "path", c.CredentialPath)
	default:
		return bridge.Config{}, err
	}
	return cfg, nil
}
