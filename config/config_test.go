package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/picowifi/picowifi/cred"
	"github.com/picowifi/picowifi/wifi"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "picowifi.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if cfg.RetryInterval != 10*time.Second || cfg.StatusInterval != 500*time.Millisecond {
		t.Errorf("default intervals = %v, %v", cfg.RetryInterval, cfg.StatusInterval)
	}
	if cfg.QueueDepth != 16 {
		t.Errorf("QueueDepth = %d, want 16", cfg.QueueDepth)
	}
}

func TestLoadOverlay(t *testing.T) {
	path := writeConfig(t, `
queue_depth = 32
vendor_id = 0x1209

[timing]
retry = "2s"
status = "250ms"

[radio]
mac = "02:00:00:aa:bb:cc"
ssid = "HomeAP"
passphrase = "secret"
auth = "wpa2-mixed"
rssi = -70
echo = false

[log]
level = "debug"
format = "json"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := Default()

	if cfg.QueueDepth != 32 {
		t.Errorf("QueueDepth = %d, want 32", cfg.QueueDepth)
	}
	if cfg.VendorID != 0x1209 || cfg.ProductID != def.ProductID {
		t.Errorf("ids = %04x:%04x", cfg.VendorID, cfg.ProductID)
	}
	if cfg.RetryInterval != 2*time.Second || cfg.StatusInterval != 250*time.Millisecond {
		t.Errorf("intervals = %v, %v", cfg.RetryInterval, cfg.StatusInterval)
	}
	if cfg.ConnectDelay != def.ConnectDelay || cfg.PollInterval != def.PollInterval {
		t.Error("undefined timing keys lost their defaults")
	}
	if cfg.Radio.Rate != def.Radio.Rate {
		t.Errorf("Radio.Rate = %d, want default %d", cfg.Radio.Rate, def.Radio.Rate)
	}
	if cfg.Radio.Echo {
		t.Error("Radio.Echo = true, want false")
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "json" {
		t.Errorf("log = %q %q", cfg.LogLevel, cfg.LogFormat)
	}

	sc, err := cfg.StubConfig()
	if err != nil {
		t.Fatalf("StubConfig() error = %v", err)
	}
	if sc.HardwareAddr.String() != "02:00:00:aa:bb:cc" || sc.Auth != wifi.AuthWPA2MixedPSK || sc.RSSI != -70 {
		t.Errorf("StubConfig() = %+v", sc)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad toml", `queue_depth = `, "load config"},
		{"bad duration", "[timing]\nretry = \"soon\"", "timing.retry"},
		{"zero depth", "queue_depth = 0", "queue_depth"},
		{"negative status", "[timing]\nstatus = \"-1s\"", "timing.status"},
		{"bad mac", "[radio]\nmac = \"nope\"", "radio.mac"},
		{"bad auth", "[radio]\nauth = \"wep\"", "radio.auth"},
		{"bad format", "[log]\nformat = \"xml\"", "log.format"},
		{"long ssid", "[radio]\nssid = \"" + strings.Repeat("s", 65) + "\"", "radio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Load() error = nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want ErrNotExist", err)
	}
}

func TestBridgeConfigCredentials(t *testing.T) {
	dir := t.TempDir()
	rec := cred.Record{SSID: "HomeAP", Passphrase: "secret", Auth: wifi.AuthWPA2AES}
	img, err := cred.EncodeUF2(&rec)
	if err != nil {
		t.Fatalf("EncodeUF2() error = %v", err)
	}
	uf2 := filepath.Join(dir, "wificred.uf2")
	if err := os.WriteFile(uf2, img, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	cfg.CredentialPath = uf2
	bc, err := cfg.BridgeConfig()
	if err != nil {
		t.Fatalf("BridgeConfig() error = %v", err)
	}
	if bc.Credentials == nil || *bc.Credentials != rec {
		t.Errorf("Credentials = %+v, want %+v", bc.Credentials, rec)
	}
	if bc.Conn.RetryInterval != cfg.RetryInterval || bc.QueueDepth != cfg.QueueDepth {
		t.Errorf("BridgeConfig() = %+v", bc)
	}

	// An erased flash dump has no record and is not an error.
	blank := filepath.Join(dir, "blank.bin")
	if err := os.WriteFile(blank, make([]byte, cred.RecordSize), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.CredentialPath = blank
	bc, err = cfg.BridgeConfig()
	if err != nil || bc.Credentials != nil {
		t.Errorf("BridgeConfig() blank = %+v, %v", bc.Credentials, err)
	}

	cfg.CredentialPath = filepath.Join(dir, "absent.uf2")
	if _, err := cfg.BridgeConfig(); err == nil {
		t.Error("BridgeConfig() with missing image: error = nil")
	}
}

func TestEncodeReload(t *testing.T) {
	cfg := Default()
	cfg.QueueDepth = 64
	cfg.RetryInterval = 3 * time.Second
	cfg.Radio.SSID = "HomeAP"
	cfg.Radio.Passphrase = "secret"
	cfg.Radio.Echo = false
	cfg.LogFormat = "json"

	var buf bytes.Buffer
	if err := cfg.Encode(&buf); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	for _, want := range []string{"queue_depth = 64", `retry = "3s"`, "[radio]", `ssid = "HomeAP"`} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("Encode() output missing %q:\n%s", want, buf.String())
		}
	}

	got, err := Load(writeConfig(t, buf.String()))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != cfg {
		t.Errorf("Load(Encode(cfg)) = %+v, want %+v", got, cfg)
	}
}
