//go:build linux

package linux

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/picowifi/picowifi/host/hal"
	"github.com/picowifi/picowifi/pkg"
)

// Device is a bridge opened through usbfs. It implements hal.Device.
type Device struct {
	mu     sync.Mutex
	fd     int
	info   hal.DeviceInfo
	closed bool
}

var _ hal.Device = (*Device)(nil)

// List returns the attached devices matching vid:pid.
// A zero pid matches any product from vid.
func List(vid, pid uint16) ([]hal.DeviceInfo, error) {
	devices, err := scanDevices(vid, pid)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", sysfsRoot, err)
	}
	return devices, nil
}

// Open opens the first device matching vid:pid, and serial if non-empty.
// The bridge interface is detached from any kernel driver and claimed.
func Open(vid, pid uint16, serial string) (*Device, error) {
	devices, err := List(vid, pid)
	if err != nil {
		return nil, err
	}

	for _, info := range devices {
		if serial != "" && info.Serial != serial {
			continue
		}
		return openInfo(info)
	}

	if serial != "" {
		return nil, fmt.Errorf("%04x:%04x serial %s: %w", vid, pid, serial, pkg.ErrNoDevice)
	}
	return nil, fmt.Errorf("%04x:%04x: %w", vid, pid, pkg.ErrNoDevice)
}

func openInfo(info hal.DeviceInfo) (*Device, error) {
	fd, err := openDevice(info.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", info.Path, mapErrno(err))
	}

	if err := disconnectDriver(fd, BridgeInterface); err != nil {
		pkg.LogDebug(pkg.ComponentHost, "disconnect kernel driver",
			"path", info.Path, "error", err)
	}
	if err := claimInterface(fd, BridgeInterface); err != nil {
		_ = closeDevice(fd)
		return nil, fmt.Errorf("claim interface %d on %s: %w", BridgeInterface, info.Path, mapErrno(err))
	}

	pkg.LogInfo(pkg.ComponentHost, "device opened", "device", info.String())

	return &Device{fd: fd, info: info}, nil
}

// Info returns the identity read from sysfs when the device was opened.
func (d *Device) Info() hal.DeviceInfo {
	return d.info
}

// ControlTransfer performs a synchronous control transfer on EP0.
func (d *Device) ControlTransfer(ctx context.Context, setup *hal.SetupPacket, data []byte) (int, error) {
	fd, err := d.handle()
	if err != nil {
		return 0, err
	}
	timeout, err := timeoutMillis(ctx)
	if err != nil {
		return 0, err
	}
	if int(setup.Length) < len(data) {
		data = data[:setup.Length]
	}

	n, err := doControlTransfer(fd, setup.RequestType, setup.Request, setup.Value, setup.Index, data, timeout)
	if err != nil {
		return 0, fmt.Errorf("control %02x/%02x: %w", setup.RequestType, setup.Request, mapErrno(err))
	}
	return n, nil
}

// BulkTransfer performs a synchronous bulk transfer. Transfers longer
// than MaxBulkTransferSize are split.
func (d *Device) BulkTransfer(ctx context.Context, endpoint uint8, data []byte) (int, error) {
	fd, err := d.handle()
	if err != nil {
		return 0, err
	}

	total := 0
	for {
		timeout, err := timeoutMillis(ctx)
		if err != nil {
			return total, err
		}
		chunk := data[total:]
		if len(chunk) > MaxBulkTransferSize {
			chunk = chunk[:MaxBulkTransferSize]
		}
		n, err := doBulkTransfer(fd, endpoint, chunk, timeout)
		if err != nil {
			return total, fmt.Errorf("bulk %02x: %w", endpoint, mapErrno(err))
		}
		total += n
		// A short packet ends an IN transfer.
		if n < len(chunk) || total >= len(data) {
			return total, nil
		}
	}
}

// Close releases the interface and closes the device node.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	if err := releaseInterface(d.fd, BridgeInterface); err != nil && !errors.Is(err, unix.ENODEV) {
		pkg.LogDebug(pkg.ComponentHost, "release interface", "error", err)
	}
	if err := closeDevice(d.fd); err != nil {
		return fmt.Errorf("close %s: %w", d.info.Path, err)
	}
	pkg.LogInfo(pkg.ComponentHost, "device closed", "device", d.info.String())
	return nil
}

func (d *Device) handle() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return -1, pkg.ErrNoDevice
	}
	return d.fd, nil
}

// timeoutMillis converts the context deadline into a usbfs timeout.
func timeoutMillis(ctx context.Context) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	d := DefaultTransferTimeout
	if deadline, ok := ctx.Deadline(); ok {
		d = time.Until(deadline)
		if d <= 0 {
			return 0, fmt.Errorf("%w: %w", pkg.ErrTimeout, context.DeadlineExceeded)
		}
	}
	ms := d.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return uint32(ms), nil
}

// mapErrno translates usbfs errno values into package errors.
func mapErrno(err error) error {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return err
	}
	switch errno {
	case unix.EPIPE:
		return fmt.Errorf("%w: %w", pkg.ErrStall, errno)
	case unix.ETIMEDOUT:
		return fmt.Errorf("%w: %w", pkg.ErrTimeout, errno)
	case unix.ENODEV, unix.ENOENT, unix.ESHUTDOWN:
		return fmt.Errorf("%w: %w", pkg.ErrNoDevice, errno)
	case unix.EOVERFLOW:
		return fmt.Errorf("%w: %w", pkg.ErrBufferTooSmall, errno)
	default:
		return err
	}
}
