package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/picowifi/picowifi/bridge"
	"github.com/picowifi/picowifi/config"
	"github.com/picowifi/picowifi/device/hal/loopback"
	"github.com/picowifi/picowifi/host"
	"github.com/picowifi/picowifi/pkg"
	"github.com/picowifi/picowifi/wifi"
	"github.com/picowifi/picowifi/wifi/stub"
)

// runOptions controls what the in-process host does with the bridge.
type runOptions struct {
	Join     bool          // provision the radio's SSID and passphrase
	Frames   int           // test frames to send
	Size     int           // payload size of each test frame
	Duration time.Duration // keep running after the exchange; zero exits
	Timeout  time.Duration // per-step host timeout
}

var runOpts = runOptions{
	Frames:  4,
	Size:    64,
	Timeout: 2 * time.Second,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulated bridge",
	Long: `Run the bridge against the simulated radio and an in-memory USB bus.

The in-process host attaches, optionally joins the network configured in
[radio], sends test frames (echoed by the simulated radio when radio.echo
is set), and prints the bridge counters on exit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return simulate(ctx, cfg, runOpts, cmd.OutOrStdout())
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as TOML",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cfg.Encode(cmd.OutOrStdout())
	},
}

func init() {
	runCmd.Flags().BoolVar(&runOpts.Join, "join", false, "provision credentials from [radio] and join")
	runCmd.Flags().IntVar(&runOpts.Frames, "frames", runOpts.Frames, "number of test frames to exchange")
	runCmd.Flags().IntVar(&runOpts.Size, "size", runOpts.Size, "payload size of each test frame")
	runCmd.Flags().DurationVar(&runOpts.Duration, "duration", 0, "keep the bridge running after the exchange")
	runCmd.Flags().DurationVar(&runOpts.Timeout, "timeout", runOpts.Timeout, "host timeout per step")
	rootCmd.AddCommand(runCmd, configCmd)
}

// simulate runs one bridge session and reports to out.
func simulate(ctx context.Context, c config.Config, opts runOptions, out io.Writer) error {
	radioCfg, err := c.StubConfig()
	if err != nil {
		return err
	}
	bridgeCfg, err := c.BridgeConfig()
	if err != nil {
		return err
	}

	lb := loopback.New(loopback.Config{
		VendorID:  c.VendorID,
		ProductID: c.ProductID,
		Product:   "picowifi (simulated)",
	})
	radio := stub.New(radioCfg)
	b, err := bridge.New(radio, lb, bridgeCfg)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var runErr error
	stopped := make(chan struct{})
	go func() {
		runErr = b.Run(runCtx)
		close(stopped)
	}()

	sessionErr := session(runCtx, b, lb.Host(), c, opts, out, stopped)

	cancel()
	<-stopped
	closeErr := b.Close()
	printStats(out, b.Stats())

	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	if errors.Is(runErr, pkg.ErrFirmwareUpdate) {
		fmt.Fprintln(out, "bridge reset into firmware update mode")
		runErr = nil
	}
	return multierr.Combine(sessionErr, runErr, closeErr)
}

// session drives the host side until the exchange and the hold period
// are over, or the bridge stops.
func session(ctx context.Context, b *bridge.Bridge, h *loopback.Host, c config.Config, opts runOptions, out io.Writer, stopped <-chan struct{}) error {
	if err := waitUntil(ctx, opts.Timeout, func() bool {
		return h.Attach() == nil && b.Stack().Mounted()
	}); err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	client := host.NewClient(h, opts.Timeout)
	fmt.Fprintf(out, "attached %s (%s)\n", client.Info(), b.Stack().State())

	if opts.Join {
		auth, err := wifi.ParseAuthMode(c.Radio.Auth)
		if err != nil {
			return err
		}
		if err := client.Join(ctx, c.Radio.SSID, c.Radio.Passphrase, auth); err != nil {
			return err
		}
		fmt.Fprintf(out, "joining %q (%s)\n", c.Radio.SSID, auth)
	}

	if opts.Frames > 0 {
		if err := exchange(ctx, client, c.Radio.Echo, opts, out); err != nil {
			return err
		}
	}

	if opts.Duration > 0 {
		select {
		case <-time.After(opts.Duration):
		case <-ctx.Done():
		case <-stopped:
		}
	}
	return nil
}

// exchange waits for the link and relays test frames through the bridge.
func exchange(ctx context.Context, client *host.Client, echo bool, opts runOptions, out io.Writer) error {
	linkUp := func() bool {
		st, err := client.Status(ctx)
		return err == nil && st.LinkUp
	}
	if err := waitUntil(ctx, opts.Timeout, linkUp); err != nil {
		fmt.Fprintln(out, "link down: frames not sent")
		return nil
	}

	st, err := client.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "link up: rssi %d dBm, rate %d\n", st.RSSI, st.Rate)

	for i := 0; i < opts.Frames; i++ {
		payload := testPayload(i, opts.Size)
		if err := client.SendFrame(ctx, payload); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if !echo {
			continue
		}
		rctx, cancel := context.WithTimeout(ctx, opts.Timeout)
		got, err := client.ReceiveFrame(rctx)
		cancel()
		if err != nil {
			return fmt.Errorf("frame %d echo: %w", i, err)
		}
		if !bytes.Equal(got, payload) {
			return fmt.Errorf("frame %d echo: payload mismatch", i)
		}
	}
	if echo {
		fmt.Fprintf(out, "exchanged %d frames of %d bytes\n", opts.Frames, opts.Size)
	} else {
		fmt.Fprintf(out, "sent %d frames of %d bytes\n", opts.Frames, opts.Size)
	}
	return nil
}

// testPayload fills an Ethernet-like payload tagged with its sequence.
func testPayload(seq, size int) []byte {
	p := make([]byte, size)
	for i := range p {
		p[i] = byte(seq + i)
	}
	return p
}

// waitUntil polls cond until it holds, ctx ends, or timeout elapses.
func waitUntil(ctx context.Context, timeout time.Duration, cond func() bool) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for !cond() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

var (
	statsTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statsLabel = lipgloss.NewStyle().Width(18)
)

func printStats(out io.Writer, s bridge.Stats) {
	rows := []struct {
		label string
		value uint64
	}{
		{"usb frames", s.USB.Frames},
		{"usb written", s.USB.Written},
		{"usb malformed", s.USB.Malformed},
		{"usb deferred", s.USB.Deferred},
		{"to wifi queued", s.ToWiFi.Enqueued},
		{"to wifi dropped", s.ToWiFi.Dropped},
		{"to usb queued", s.ToUSB.Enqueued},
		{"to usb dropped", s.ToUSB.Dropped},
		{"ingress oversize", s.IngressOversize},
		{"egress sent", s.EgressSent},
		{"egress link down", s.EgressLinkDown},
		{"egress errors", s.EgressErrors},
		{"control setups", s.Setups},
		{"control stalls", s.Stalls},
	}
	fmt.Fprintln(out, statsTitle.Render("bridge statistics"))
	for _, r := range rows {
		fmt.Fprintf(out, "%s%d\n", statsLabel.Render(r.label), r.value)
	}
}
