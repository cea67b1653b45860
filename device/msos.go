package device

import (
	"fmt"

	"github.com/picowifi/picowifi/control"
	"github.com/picowifi/picowifi/pkg"
)

// MSOS20Handler serves the Microsoft OS 2.0 descriptor set on its vendor
// request. Any wIndex other than the descriptor-set index stalls.
type MSOS20Handler struct {
	set []byte
}

// NewMSOS20Handler encodes m once and returns a handler serving it.
func NewMSOS20Handler(m *MSOS20) *MSOS20Handler {
	set := make([]byte, m.TotalLength())
	m.MarshalTo(set)
	return &MSOS20Handler{set: set}
}

// Len returns the size of the descriptor set, for the BOS capability.
func (h *MSOS20Handler) Len() int {
	return len(h.set)
}

// HandleVendor implements VendorHandler.
func (h *MSOS20Handler) HandleVendor(setup *SetupPacket, data []byte) ([]byte, error) {
	if !setup.IsDeviceToHost() || setup.Index != control.MSOS20DescriptorIndex {
		return nil, fmt.Errorf("msos20 wIndex 0x%04X: %w", setup.Index, pkg.ErrInvalidRequest)
	}
	return h.set, nil
}
