// Command picowifictl configures and monitors a USB WiFi bridge.
//
// Configuration is read from ~/.picowifi/ctl.yaml:
//
//	vendor_id: 0x20a0
//	product_id: 0x42ec
//	serial: 28CDC1000001
//	timeout: 2s
//	output_format: table
//
// Usage:
//
//	picowifictl join <ssid> <passphrase> [--auth wpa2]
//	picowifictl status [-o table|json|yaml]
//	picowifictl watch
//	picowifictl cred <ssid> <passphrase> -f wificred.uf2
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	hosthal "github.com/picowifi/picowifi/host/hal"
	"github.com/picowifi/picowifi/host/hal/linux"
	"github.com/picowifi/picowifi/pkg"
)

var (
	// Global flags
	cfgFile      string
	outputFormat string
	serialFlag   string
	timeoutFlag  time.Duration
	verbose      bool

	// Shared state set during PersistentPreRun
	cfg *ctlConfig
	out formatter
)

// openDevice opens the configured bridge. Tests replace it.
var openDevice = func(c *ctlConfig) (hosthal.Device, error) {
	d, err := linux.Open(c.VendorID, c.ProductID, c.Serial)
	if err != nil {
		return nil, err
	}
	return d, nil
}

var rootCmd = &cobra.Command{
	Use:   "picowifictl",
	Short: "Configure and monitor a USB WiFi bridge",
	Long: `picowifictl talks to a USB WiFi bridge over its vendor control
interface. It provisions network credentials, triggers connection
attempts, reports link status, and builds credential images that can be
flashed in bootloader mode.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = defaultConfigPath()
		}
		var err error
		cfg, err = loadConfig(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if outputFormat != "" {
			cfg.OutputFormat = outputFormat
		}
		if serialFlag != "" {
			cfg.Serial = serialFlag
		}
		if timeoutFlag > 0 {
			cfg.Timeout = timeoutFlag
		}
		out = newFormatter(cfg.OutputFormat)

		if verbose {
			pkg.SetLogLevel(zerolog.DebugLevel)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.picowifi/ctl.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "output format: table, json, yaml (default \"table\")")
	rootCmd.PersistentFlags().StringVar(&serialFlag, "serial", "", "select the bridge with this serial number")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 0, "per-request timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log USB traffic to stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
