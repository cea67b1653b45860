//go:build !linux

package linux

import (
	"context"

	"github.com/picowifi/picowifi/host/hal"
	"github.com/picowifi/picowifi/pkg"
)

// Device is unavailable on this platform.
type Device struct{}

var _ hal.Device = (*Device)(nil)

// List returns pkg.ErrNotSupported.
func List(vid, pid uint16) ([]hal.DeviceInfo, error) {
	return nil, pkg.ErrNotSupported
}

// Open returns pkg.ErrNotSupported.
func Open(vid, pid uint16, serial string) (*Device, error) {
	return nil, pkg.ErrNotSupported
}

func (d *Device) Info() hal.DeviceInfo { return hal.DeviceInfo{} }

func (d *Device) ControlTransfer(context.Context, *hal.SetupPacket, []byte) (int, error) {
	return 0, pkg.ErrNotSupported
}

func (d *Device) BulkTransfer(context.Context, uint8, []byte) (int, error) {
	return 0, pkg.ErrNotSupported
}

func (d *Device) Close() error { return nil }
