package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/picowifi/picowifi/control"
	"github.com/picowifi/picowifi/cred"
	"github.com/picowifi/picowifi/host"
	hosthal "github.com/picowifi/picowifi/host/hal"
	"github.com/picowifi/picowifi/host/hal/linux"
	"github.com/picowifi/picowifi/host/tui"
	"github.com/picowifi/picowifi/pkg"
	"github.com/picowifi/picowifi/wifi"
)

var authFlag string

// withClient opens the bridge and runs fn with a client bound to it.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *host.Client) error) error {
	dev, err := openDevice(cfg)
	if err != nil {
		return err
	}
	c := host.NewClient(dev, cfg.Timeout)
	defer c.Close()
	return fn(cmd.Context(), c)
}

func parseAuth() (wifi.AuthMode, error) {
	auth, err := wifi.ParseAuthMode(authFlag)
	if err != nil {
		return 0, fmt.Errorf("--auth: %w", err)
	}
	return auth, nil
}

var ssidCmd = &cobra.Command{
	Use:   "ssid <name>",
	Short: "Store the network name on the bridge",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *host.Client) error {
			return c.SetSSID(ctx, args[0])
		})
	},
}

var passwdCmd = &cobra.Command{
	Use:   "passwd <passphrase>",
	Short: "Store the network passphrase on the bridge",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *host.Client) error {
			return c.SetPassphrase(ctx, args[0])
		})
	},
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect with the stored credentials",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, err := parseAuth()
		if err != nil {
			return err
		}
		return withClient(cmd, func(ctx context.Context, c *host.Client) error {
			return c.Connect(ctx, auth)
		})
	},
}

var joinCmd = &cobra.Command{
	Use:   "join <ssid> <passphrase>",
	Short: "Store credentials and connect",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, err := parseAuth()
		if err != nil {
			return err
		}
		return withClient(cmd, func(ctx context.Context, c *host.Client) error {
			if err := c.Join(ctx, args[0], args[1], auth); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Joining %q (%s).\n", args[0], auth)
			return nil
		})
	},
}

// statusView is the rendered form of a Status snapshot.
type statusView struct {
	Device string `json:"device" yaml:"device"`
	LinkUp bool   `json:"link_up" yaml:"link_up"`
	Link   string `json:"link" yaml:"link"`
	RSSI   int32  `json:"rssi" yaml:"rssi"`
	Rate   int32  `json:"rate" yaml:"rate"`
}

func (v statusView) Header() []string { return []string{"FIELD", "VALUE"} }

func (v statusView) Rows() [][]string {
	return [][]string{
		{"device", v.Device},
		{"link up", strconv.FormatBool(v.LinkUp)},
		{"link", v.Link},
		{"rssi", fmt.Sprintf("%d dBm", v.RSSI)},
		{"rate", strconv.Itoa(int(v.Rate))},
	}
}

func newStatusView(info hosthal.DeviceInfo, st control.Status) statusView {
	return statusView{
		Device: info.String(),
		LinkUp: st.LinkUp,
		Link:   st.Link.String(),
		RSSI:   st.RSSI,
		Rate:   st.Rate,
	}
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the wireless link status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *host.Client) error {
			st, err := c.Status(ctx)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out.Format(newStatusView(c.Info(), st)))
			return nil
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Launch the interactive status dashboard",
	Long: `Launch a terminal dashboard that polls the bridge status.

Key bindings:
  r           Force an immediate refresh
  j           Send Connect with --auth
  q / Ctrl+C  Quit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, err := parseAuth()
		if err != nil {
			return err
		}
		interval, err := cmd.Flags().GetDuration("interval")
		if err != nil {
			return err
		}
		return withClient(cmd, func(ctx context.Context, c *host.Client) error {
			m := tui.New(c, tui.Options{
				Device:   c.Info().String(),
				Auth:     auth,
				Interval: interval,
				Timeout:  cfg.Timeout,
			})
			_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		})
	},
}

var rebootCmd = &cobra.Command{
	Use:   "reboot",
	Short: "Reset the bridge into its firmware update bootloader",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *host.Client) error {
			err := c.FirmwareUpdate(ctx)
			// The device may drop off the bus before the status stage.
			if err != nil && !errors.Is(err, pkg.ErrNoDevice) {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Bridge reset into firmware update mode.")
			return nil
		})
	},
}

var credCmd = &cobra.Command{
	Use:   "cred <ssid> <passphrase>",
	Short: "Write a UF2 credential image",
	Long: `Write a one-block UF2 image holding the network credentials. Copy
it to the bridge's bootloader drive to store the credentials in flash;
the bridge then connects on every power-up.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, err := parseAuth()
		if err != nil {
			return err
		}
		path, err := cmd.Flags().GetString("file")
		if err != nil {
			return err
		}
		rec := cred.Record{SSID: args[0], Passphrase: args[1], Auth: auth}
		img, err := cred.EncodeUF2(&rec)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, img, 0o600); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes).\n", path, len(img))
		return nil
	},
}

// deviceList is the rendered form of the attached bridges.
type deviceList []hosthal.DeviceInfo

func (l deviceList) Header() []string {
	return []string{"BUS", "ADDR", "ID", "PRODUCT", "SERIAL", "PATH"}
}

func (l deviceList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, d := range l {
		rows = append(rows, []string{
			fmt.Sprintf("%03d", d.Bus),
			fmt.Sprintf("%03d", d.Address),
			fmt.Sprintf("%04x:%04x", d.VendorID, d.ProductID),
			d.Product,
			d.Serial,
			d.Path,
		})
	}
	return rows
}

// listDevices enumerates attached bridges. Tests replace it.
var listDevices = linux.List

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List attached bridges",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		devices, err := listDevices(cfg.VendorID, cfg.ProductID)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out.Format(deviceList(devices)))
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{connectCmd, joinCmd, watchCmd, credCmd} {
		c.Flags().StringVar(&authFlag, "auth", wifi.DefaultAuthMode.String(), "auth mode: open, wpa, wpa2, wpa2-mixed or hex")
	}
	watchCmd.Flags().Duration("interval", tui.RefreshInterval, "status polling interval")
	credCmd.Flags().StringP("file", "f", "wificred.uf2", "output image path")

	rootCmd.AddCommand(ssidCmd, passwdCmd, connectCmd, joinCmd, statusCmd, watchCmd, rebootCmd, credCmd, listCmd)
}
