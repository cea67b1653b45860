// Package frame defines the Ethernet frame value carried by the relay and
// the length-prefixed header that delimits frames on the USB vendor
// endpoint.
//
// Wire layout (little-endian):
//
//	+------------+------------+-----------------+
//	| Magic      | Length     | Payload         |
//	+------------+------------+-----------------+
//	| 4 bytes    | 4 bytes    | 0-1600 bytes    |
//	+------------+------------+-----------------+
package frame

import (
	"encoding/binary"
	"fmt"

	"github.com/picowifi/picowifi/pkg"
)

// MTU is the largest payload a Frame can carry.
const MTU = 1600

// Magic is the sentinel that starts every framed packet, in both directions.
const Magic uint32 = 0xAA55AA55

// HeaderSize is the encoded size of a Header: magic plus a 32-bit length.
const HeaderSize = 8

// MaxEncodedSize is the largest encoded frame (header plus MTU payload).
const MaxEncodedSize = HeaderSize + MTU

// Frame is one Ethernet frame. Only the first Len() bytes of the payload
// buffer are meaningful. Frames are copied by value; a queue slot never
// aliases the producer's buffer.
type Frame struct {
	length  int
	payload [MTU]byte
}

// New returns a Frame holding a copy of data.
func New(data []byte) (Frame, error) {
	var f Frame
	if err := f.Set(data); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// Set replaces the frame contents with a copy of data.
// Returns an error wrapping [pkg.ErrOversizedFrame] if data exceeds MTU;
// the frame is left unchanged in that case.
func (f *Frame) Set(data []byte) error {
	if len(data) > MTU {
		return fmt.Errorf("frame of %d bytes: %w", len(data), pkg.ErrOversizedFrame)
	}
	f.length = copy(f.payload[:], data)
	return nil
}

// Len returns the number of valid payload bytes.
func (f *Frame) Len() int {
	return f.length
}

// Bytes returns the valid payload. The slice aliases the frame's buffer.
func (f *Frame) Bytes() []byte {
	return f.payload[:f.length]
}

// Reset empties the frame.
func (f *Frame) Reset() {
	f.length = 0
}

// EncodedLen returns the size of the frame once serialized with its header.
func (f *Frame) EncodedLen() int {
	return HeaderSize + f.length
}

// MarshalTo writes the header and payload to buf.
// Returns the number of bytes written, or 0 if buf is too small.
func (f *Frame) MarshalTo(buf []byte) int {
	n := f.EncodedLen()
	if len(buf) < n {
		return 0
	}
	h := Header{Magic: Magic, Length: uint32(f.length)}
	h.MarshalTo(buf)
	copy(buf[HeaderSize:n], f.payload[:f.length])
	return n
}

// Resize sets the frame length to n and returns the payload window for
// in-place filling. The previous contents within the window are retained.
func (f *Frame) Resize(n int) ([]byte, error) {
	if n < 0 || n > MTU {
		return nil, fmt.Errorf("frame of %d bytes: %w", n, pkg.ErrOversizedFrame)
	}
	f.length = n
	return f.payload[:n], nil
}

// Header is the fixed wire header preceding every payload.
type Header struct {
	Magic  uint32
	Length uint32
}

// MarshalTo writes the header to buf.
// Returns the number of bytes written (HeaderSize), or 0 if buf is too small.
func (h *Header) MarshalTo(buf []byte) int {
	if len(buf) < HeaderSize {
		return 0
	}
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Length)
	return HeaderSize
}

// Validate reports whether the header may start a frame.
func (h *Header) Validate() error {
	if h.Magic != Magic {
		return fmt.Errorf("magic 0x%08X: %w", h.Magic, pkg.ErrMalformedFrame)
	}
	if h.Length > MTU {
		return fmt.Errorf("length %d > %d: %w", h.Length, MTU, pkg.ErrMalformedFrame)
	}
	return nil
}

// ParseHeader decodes and validates a header from the first HeaderSize
// bytes of data. out is filled even when validation fails.
func ParseHeader(data []byte, out *Header) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("header of %d bytes: %w", len(data), pkg.ErrBufferTooSmall)
	}
	out.Magic = binary.LittleEndian.Uint32(data[0:4])
	out.Length = binary.LittleEndian.Uint32(data[4:8])
	return out.Validate()
}

// Append serializes f and appends it to dst.
func Append(dst []byte, f *Frame) []byte {
	var hdr [HeaderSize]byte
	h := Header{Magic: Magic, Length: uint32(f.length)}
	h.MarshalTo(hdr[:])
	dst = append(dst, hdr[:]...)
	return append(dst, f.Bytes()...)
}
