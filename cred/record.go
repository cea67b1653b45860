package cred

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/picowifi/picowifi/control"
	"github.com/picowifi/picowifi/pkg"
	"github.com/picowifi/picowifi/wifi"
)

// Magic marks a valid credential record.
const Magic uint32 = 0x55AAAA55

// RecordSize is the encoded size of a Record.
const RecordSize = 4 + control.MaxCredentialLen*2 + 4

// Flash placement of the record.
const (
	FlashSize   = 2 << 20
	SectorSize  = 64 << 10
	FlashOffset = FlashSize - SectorSize
	XIPBase     = 0x10000000
	XIPAddress  = XIPBase + FlashOffset
)

// Record is a decoded credential record.
type Record struct {
	SSID       string
	Passphrase string
	Auth       wifi.AuthMode
}

// Validate checks that both strings fit their fixed-size fields.
func (r *Record) Validate() error {
	if len(r.SSID) > control.MaxCredentialLen {
		return fmt.Errorf("ssid of %d bytes: %w", len(r.SSID), pkg.ErrCredentialTooLong)
	}
	if len(r.Passphrase) > control.MaxCredentialLen {
		return fmt.Errorf("passphrase of %d bytes: %w", len(r.Passphrase), pkg.ErrCredentialTooLong)
	}
	return nil
}

// MarshalTo encodes r into buf.
// Returns the number of bytes written (RecordSize), or 0 if buf is too
// small or a field does not fit.
func (r *Record) MarshalTo(buf []byte) int {
	if len(buf) < RecordSize || r.Validate() != nil {
		return 0
	}
	clear(buf[:RecordSize])
	binary.LittleEndian.PutUint32(buf[0:4], Magic)
	copy(buf[4:4+control.MaxCredentialLen], r.SSID)
	copy(buf[4+control.MaxCredentialLen:4+2*control.MaxCredentialLen], r.Passphrase)
	binary.LittleEndian.PutUint32(buf[RecordSize-4:RecordSize], uint32(r.Auth))
	return RecordSize
}

// ParseRecord decodes a record from data into out.
// Returns an error wrapping [pkg.ErrNoCredentials] if the magic is absent.
func ParseRecord(data []byte, out *Record) error {
	if len(data) < RecordSize {
		return fmt.Errorf("record of %d bytes: %w", len(data), pkg.ErrBufferTooSmall)
	}
	if m := binary.LittleEndian.Uint32(data[0:4]); m != Magic {
		return fmt.Errorf("magic 0x%08X: %w", m, pkg.ErrNoCredentials)
	}
	out.SSID = CString(data[4 : 4+control.MaxCredentialLen])
	out.Passphrase = CString(data[4+control.MaxCredentialLen : 4+2*control.MaxCredentialLen])
	out.Auth = wifi.AuthMode(binary.LittleEndian.Uint32(data[RecordSize-4 : RecordSize]))
	return nil
}

// Load reads a record at off from a flash image.
func Load(r io.ReaderAt, off int64) (Record, error) {
	var buf [RecordSize]byte
	if _, err := r.ReadAt(buf[:], off); err != nil {
		return Record{}, fmt.Errorf("read record at 0x%X: %w", off, err)
	}
	var rec Record
	if err := ParseRecord(buf[:], &rec); err != nil {
		return Record{}, err
	}
	pkg.LogDebug(pkg.ComponentCred, "credential record loaded",
		"ssid", rec.SSID,
		"auth", rec.Auth.String())
	return rec, nil
}

// CString returns the bytes of b up to the first NUL.
func CString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
