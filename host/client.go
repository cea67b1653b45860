package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/picowifi/picowifi/control"
	"github.com/picowifi/picowifi/frame"
	"github.com/picowifi/picowifi/host/hal"
	"github.com/picowifi/picowifi/pkg"
	"github.com/picowifi/picowifi/wifi"
)

// DefaultTimeout bounds each control transfer when the caller's context
// has no deadline.
const DefaultTimeout = time.Second

// Bulk endpoint addresses of the vendor pipe.
const (
	EndpointOut uint8 = 0x01
	EndpointIn  uint8 = 0x81
)

// MaxCredentialLen is the longest SSID or passphrase the device stores.
const MaxCredentialLen = control.MaxCredentialLen

// Client issues vendor commands to a bridge.
type Client struct {
	dev     hal.Device
	timeout time.Duration

	// Bulk IN reassembly; guarded by rxMutex.
	rxMutex sync.Mutex
	rxBuf   []byte
	rxChunk [frame.MaxEncodedSize]byte
}

// NewClient wraps dev. A timeout of zero selects DefaultTimeout.
func NewClient(dev hal.Device, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{dev: dev, timeout: timeout}
}

// Info returns the identity of the underlying device.
func (c *Client) Info() hal.DeviceInfo {
	return c.dev.Info()
}

// Close releases the device.
func (c *Client) Close() error {
	return c.dev.Close()
}

func (c *Client) control(ctx context.Context, in bool, request uint8, value, index uint16, data []byte) (int, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	setup := hal.SetupPacket{
		RequestType: control.RequestTypeVendorOut,
		Request:     request,
		Value:       value,
		Index:       index,
		Length:      uint16(len(data)),
	}
	if in {
		setup.RequestType = control.RequestTypeVendorIn
	}
	n, err := c.dev.ControlTransfer(ctx, &setup, data)
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", pkg.ErrTimeout, err)
	}
	return n, err
}

func (c *Client) command(ctx context.Context, cmd control.Command, value uint16, data []byte) error {
	pkg.LogDebug(pkg.ComponentHost, "control command",
		"command", cmd.String(),
		"len", len(data))
	if _, err := c.control(ctx, false, control.RequestWiFi, value, uint16(cmd), data); err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}
	return nil
}

func checkCredential(field, s string) error {
	if len(s) > MaxCredentialLen {
		return fmt.Errorf("%s of %d bytes exceeds %d: %w", field, len(s), MaxCredentialLen, pkg.ErrCredentialTooLong)
	}
	return nil
}

// SetSSID stores the network name on the device.
func (c *Client) SetSSID(ctx context.Context, ssid string) error {
	if err := checkCredential("ssid", ssid); err != nil {
		return err
	}
	return c.command(ctx, control.CmdSetSSID, 0, []byte(ssid))
}

// SetPassphrase stores the passphrase on the device.
func (c *Client) SetPassphrase(ctx context.Context, passphrase string) error {
	if err := checkCredential("passphrase", passphrase); err != nil {
		return err
	}
	return c.command(ctx, control.CmdSetPassphrase, 0, []byte(passphrase))
}

// Connect asks the device to join with the stored credentials. The
// request returns before the join completes.
func (c *Client) Connect(ctx context.Context, auth wifi.AuthMode) error {
	return c.command(ctx, control.CmdConnect, auth.ControlValue(), nil)
}

// Join sets both credentials and requests a connect.
func (c *Client) Join(ctx context.Context, ssid, passphrase string, auth wifi.AuthMode) error {
	if err := c.SetSSID(ctx, ssid); err != nil {
		return err
	}
	if err := c.SetPassphrase(ctx, passphrase); err != nil {
		return err
	}
	return c.Connect(ctx, auth)
}

// Status reads the device's link snapshot.
func (c *Client) Status(ctx context.Context) (control.Status, error) {
	var buf [control.StatusSize]byte
	n, err := c.control(ctx, true, control.RequestWiFi, 0, uint16(control.CmdStatus), buf[:])
	if err != nil {
		return control.Status{}, fmt.Errorf("%s: %w", control.CmdStatus, err)
	}
	var st control.Status
	if err := control.ParseStatus(buf[:n], &st); err != nil {
		return control.Status{}, err
	}
	return st, nil
}

// FirmwareUpdate resets the device into its bootloader. The device
// disappears from the bus afterwards.
func (c *Client) FirmwareUpdate(ctx context.Context) error {
	return c.command(ctx, control.CmdFirmwareUpdate, 0, nil)
}

// MSOS20 reads the Microsoft OS 2.0 descriptor set of length n.
func (c *Client) MSOS20(ctx context.Context, n int) ([]byte, error) {
	buf := make([]byte, n)
	got, err := c.control(ctx, true, control.RequestMicrosoft, 0, control.MSOS20DescriptorIndex, buf)
	if err != nil {
		return nil, fmt.Errorf("ms os 2.0 descriptor: %w", err)
	}
	return buf[:got], nil
}

// SendFrame writes one framed Ethernet payload to the bulk OUT endpoint.
func (c *Client) SendFrame(ctx context.Context, payload []byte) error {
	f, err := frame.New(payload)
	if err != nil {
		return err
	}
	buf := frame.Append(make([]byte, 0, f.EncodedLen()), &f)
	if _, err := c.dev.BulkTransfer(ctx, EndpointOut, buf); err != nil {
		return fmt.Errorf("bulk out: %w", err)
	}
	return nil
}

// ReceiveFrame reads bulk IN data until one whole frame is available and
// returns its payload. A malformed header returns an error wrapping
// pkg.ErrMalformedFrame and discards the buffered bytes.
func (c *Client) ReceiveFrame(ctx context.Context) ([]byte, error) {
	c.rxMutex.Lock()
	defer c.rxMutex.Unlock()

	for {
		if len(c.rxBuf) >= frame.HeaderSize {
			var h frame.Header
			if err := frame.ParseHeader(c.rxBuf, &h); err != nil {
				c.rxBuf = c.rxBuf[:0]
				return nil, err
			}
			total := frame.HeaderSize + int(h.Length)
			if len(c.rxBuf) >= total {
				payload := append([]byte(nil), c.rxBuf[frame.HeaderSize:total]...)
				c.rxBuf = c.rxBuf[:copy(c.rxBuf, c.rxBuf[total:])]
				return payload, nil
			}
		}
		n, err := c.dev.BulkTransfer(ctx, EndpointIn, c.rxChunk[:])
		if err != nil {
			return nil, fmt.Errorf("bulk in: %w", err)
		}
		c.rxBuf = append(c.rxBuf, c.rxChunk[:n]...)
	}
}
