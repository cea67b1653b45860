package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/picowifi/picowifi/config"
	"github.com/picowifi/picowifi/cred"
	"github.com/picowifi/picowifi/wifi"
)

func simConfig() config.Config {
	c := config.Default()
	c.Radio.SSID = "HomeAP"
	c.Radio.Passphrase = "secret"
	c.Radio.JoinDelay = 20 * time.Millisecond
	c.StatusInterval = 20 * time.Millisecond
	return c
}

func TestSimulateJoinAndExchange(t *testing.T) {
	var out bytes.Buffer
	opts := runOptions{Join: true, Frames: 3, Size: 128, Timeout: 2 * time.Second}

	if err := simulate(context.Background(), simConfig(), opts, &out); err != nil {
		t.Fatalf("simulate() error = %v\n%s", err, out.String())
	}

	for _, want := range []string{
		"attached",
		`joining "HomeAP" (wpa2)`,
		"link up",
		"exchanged 3 frames of 128 bytes",
		"bridge statistics",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestSimulateWithoutCredentials(t *testing.T) {
	var out bytes.Buffer
	opts := runOptions{Frames: 2, Size: 64, Timeout: 200 * time.Millisecond}

	if err := simulate(context.Background(), simConfig(), opts, &out); err != nil {
		t.Fatalf("simulate() error = %v", err)
	}
	if !strings.Contains(out.String(), "link down: frames not sent") {
		t.Errorf("output = %q, want link down notice", out.String())
	}
}

func TestSimulateCredentialImage(t *testing.T) {
	rec := cred.Record{SSID: "HomeAP", Passphrase: "secret", Auth: wifi.AuthWPA2AES}
	img, err := cred.EncodeUF2(&rec)
	if err != nil {
		t.Fatalf("EncodeUF2() error = %v", err)
	}
	path := filepath.Join(t.TempDir(), "wificred.uf2")
	if err := os.WriteFile(path, img, 0o644); err != nil {
		t.Fatal(err)
	}

	c := simConfig()
	c.CredentialPath = path
	c.Radio.Echo = false

	var out bytes.Buffer
	opts := runOptions{Frames: 2, Size: 60, Timeout: 2 * time.Second}
	if err := simulate(context.Background(), c, opts, &out); err != nil {
		t.Fatalf("simulate() error = %v", err)
	}
	if !strings.Contains(out.String(), "sent 2 frames of 60 bytes") {
		t.Errorf("output = %q", out.String())
	}
}

func TestSimulateBadRadio(t *testing.T) {
	c := simConfig()
	c.Radio.MAC = "not-a-mac"
	if err := simulate(context.Background(), c, runOptions{Timeout: time.Second}, &bytes.Buffer{}); err == nil {
		t.Error("simulate() accepted an invalid MAC")
	}
}

func TestConfigCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "queue_depth = 16") {
		t.Errorf("config output = %q", out.String())
	}
}
