package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/picowifi/picowifi/bridge"
	"github.com/picowifi/picowifi/conn"
	"github.com/picowifi/picowifi/control"
	"github.com/picowifi/picowifi/cred"
	"github.com/picowifi/picowifi/device/hal/loopback"
	hosthal "github.com/picowifi/picowifi/host/hal"
	"github.com/picowifi/picowifi/pkg"
	"github.com/picowifi/picowifi/wifi"
	"github.com/picowifi/picowifi/wifi/stub"
)

// keepOpen stops commands from detaching the loopback between runs.
type keepOpen struct {
	hosthal.Device
}

func (keepOpen) Close() error { return nil }

type fixture struct {
	bridge *bridge.Bridge
	done   chan error
}

func startBridge(t *testing.T) *fixture {
	t.Helper()
	lb := loopback.New(loopback.Config{
		VendorID:  control.DefaultVendorID,
		ProductID: control.DefaultProductID,
		Product:   "test bridge",
	})
	radio := stub.New(stub.Config{
		SSID:       "HomeAP",
		Passphrase: "secret",
		Auth:       wifi.AuthWPA2AES,
		RSSI:       -52,
		Rate:       144,
		JoinDelay:  10 * time.Millisecond,
	})
	b, err := bridge.New(radio, lb, bridge.Config{
		Conn: conn.Config{StatusInterval: 20 * time.Millisecond},
	})
	if err != nil {
		t.Fatalf("bridge.New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	f := &fixture{bridge: b, done: make(chan error, 1)}
	go func() { f.done <- b.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-f.done
		b.Close()
	})

	h := lb.Host()
	waitFor(t, "mount", func() bool { return h.Attach() == nil && b.Stack().Mounted() })

	old := openDevice
	openDevice = func(*ctlConfig) (hosthal.Device, error) { return keepOpen{h}, nil }
	t.Cleanup(func() { openDevice = old })
	return f
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// execute runs picowifictl with args against a missing config file.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile, outputFormat, serialFlag, timeoutFlag, verbose = "", "", "", 0, false
	authFlag = wifi.DefaultAuthMode.String()

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	missing := filepath.Join(t.TempDir(), "ctl.yaml")
	rootCmd.SetArgs(append([]string{"--config", missing}, args...))
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestJoinThenStatus(t *testing.T) {
	f := startBridge(t)

	got, err := execute(t, "join", "HomeAP", "secret")
	if err != nil {
		t.Fatalf("join error = %v", err)
	}
	if !strings.Contains(got, `Joining "HomeAP" (wpa2)`) {
		t.Errorf("join output = %q", got)
	}
	waitFor(t, "status sample", func() bool {
		st := f.bridge.Conn().Status()
		return st.LinkUp && st.Link == wifi.LinkUp
	})

	got, err = execute(t, "status", "-o", "json")
	if err != nil {
		t.Fatalf("status error = %v", err)
	}
	var v statusView
	if err := json.Unmarshal([]byte(got), &v); err != nil {
		t.Fatalf("status output %q: %v", got, err)
	}
	if !v.LinkUp || v.Link != "up" || v.RSSI != -52 || v.Rate != 144 {
		t.Errorf("status = %+v", v)
	}
}

func TestStepwiseJoin(t *testing.T) {
	f := startBridge(t)

	for _, args := range [][]string{
		{"ssid", "HomeAP"},
		{"passwd", "secret"},
		{"connect", "--auth", "wpa2"},
	} {
		if _, err := execute(t, args...); err != nil {
			t.Fatalf("%v error = %v", args, err)
		}
	}
	waitFor(t, "link", f.bridge.Conn().LinkUp)
	if got := f.bridge.Conn().SSID(); got != "HomeAP" {
		t.Errorf("SSID() = %q", got)
	}
}

func TestStatusFormats(t *testing.T) {
	startBridge(t)

	tests := []struct {
		format string
		want   []string
	}{
		{"table", []string{"FIELD", "link up", "false", "down"}},
		{"yaml", []string{"link_up: false", "link: down"}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := execute(t, "status", "-o", tt.format)
			if err != nil {
				t.Fatalf("status error = %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("output missing %q:\n%s", w, got)
				}
			}
		})
	}
}

func TestCommandErrors(t *testing.T) {
	startBridge(t)

	long := strings.Repeat("x", 64)
	tests := []struct {
		name string
		args []string
		want error
	}{
		{"ssid too long", []string{"ssid", long}, pkg.ErrCredentialTooLong},
		{"passphrase too long", []string{"passwd", long}, pkg.ErrCredentialTooLong},
		{"bad auth", []string{"connect", "--auth", "wep-please"}, nil},
		{"missing args", []string{"join", "HomeAP"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReboot(t *testing.T) {
	f := startBridge(t)

	got, err := execute(t, "reboot")
	if err != nil {
		t.Fatalf("reboot error = %v", err)
	}
	if !strings.Contains(got, "firmware update mode") {
		t.Errorf("reboot output = %q", got)
	}
	select {
	case err := <-f.done:
		if !errors.Is(err, pkg.ErrFirmwareUpdate) {
			t.Errorf("Run() = %v, want ErrFirmwareUpdate", err)
		}
		f.done <- err
	case <-time.After(2 * time.Second):
		t.Fatal("bridge kept running after reboot")
	}
}

func TestCredImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wificred.uf2")
	got, err := execute(t, "cred", "HomeAP", "secret", "--auth", "wpa2-mixed", "-f", path)
	if err != nil {
		t.Fatalf("cred error = %v", err)
	}
	if !strings.Contains(got, "Wrote "+path) {
		t.Errorf("cred output = %q", got)
	}

	img, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var rec cred.Record
	if err := cred.DecodeUF2(img, &rec); err != nil {
		t.Fatalf("DecodeUF2() error = %v", err)
	}
	want := cred.Record{SSID: "HomeAP", Passphrase: "secret", Auth: wifi.AuthWPA2MixedPSK}
	if rec != want {
		t.Errorf("record = %+v, want %+v", rec, want)
	}
}

func TestList(t *testing.T) {
	old := listDevices
	t.Cleanup(func() { listDevices = old })

	listDevices = func(vid, pid uint16) ([]hosthal.DeviceInfo, error) {
		if vid != control.DefaultVendorID || pid != control.DefaultProductID {
			t.Errorf("List(%04x, %04x)", vid, pid)
		}
		return []hosthal.DeviceInfo{{
			Bus: 1, Address: 4, VendorID: vid, ProductID: pid,
			Product: "USB WiFi Bridge", Serial: "28cdc1000001", Path: "/dev/bus/usb/001/004",
		}}, nil
	}
	got, err := execute(t, "list")
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	for _, want := range []string{"SERIAL", "20a0:42ec", "28cdc1000001", "/dev/bus/usb/001/004"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	listDevices = func(uint16, uint16) ([]hosthal.DeviceInfo, error) { return nil, nil }
	if got, _ := execute(t, "list"); !strings.Contains(got, "No devices found") {
		t.Errorf("empty list output = %q", got)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		return path
	}

	cfg, err := loadConfig(write("ok.yaml", "vendor_id: 0x1209\nproduct_id: 0x0001\ntimeout: 3s\noutput_format: json\n"))
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.VendorID != 0x1209 || cfg.ProductID != 0x0001 || cfg.Timeout != 3*time.Second || cfg.OutputFormat != "json" {
		t.Errorf("cfg = %+v", cfg)
	}

	cfg, err = loadConfig(filepath.Join(dir, "absent.yaml"))
	if err != nil || cfg.VendorID != control.DefaultVendorID {
		t.Errorf("missing file: %+v, %v", cfg, err)
	}

	if _, err := loadConfig(write("zero.yaml", "timeout: 0s\n")); err == nil {
		t.Error("zero timeout accepted")
	}
	if _, err := loadConfig(write("bad.yaml", "vendor_id: [\n")); err == nil {
		t.Error("malformed YAML accepted")
	}
}
