// Command picowifi runs a simulated USB WiFi bridge.
//
// The bridge is wired to an in-memory USB bus and a simulated radio. An
// in-process host attaches to the bus, optionally provisions credentials
// and joins the simulated network, exchanges test frames through the
// relay, and prints the bridge's counters.
//
// Usage:
//
//	picowifi run [--config picowifi.toml] [--join] [--frames 8] [--duration 5s]
//	picowifi config [--config picowifi.toml]
//	picowifi cred --ssid HomeAP --passphrase secret -o wificred.uf2
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/picowifi/picowifi/config"
	"github.com/picowifi/picowifi/pkg"
)

var (
	cfgFile  string
	logLevel string
	cfg      config.Config
)

var rootCmd = &cobra.Command{
	Use:   "picowifi",
	Short: "Simulated USB to WiFi Ethernet bridge",
	Long: `picowifi runs the bridge firmware logic against a simulated radio and
an in-memory USB bus. It is useful for exercising the control protocol,
the frame relay, and credential images without hardware.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
		} else {
			cfg = config.Default()
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		setupLogging(cfg)
		return nil
	},
}

func setupLogging(c config.Config) {
	pkg.SetLogLevel(pkg.ParseLogLevel(c.LogLevel, zerolog.WarnLevel))
	if strings.EqualFold(c.LogFormat, "json") {
		pkg.SetLogFormat(pkg.LogFormatJSON)
	} else {
		pkg.SetLogFormat(pkg.LogFormatText)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "TOML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
