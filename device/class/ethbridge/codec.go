package ethbridge

import (
	"sync/atomic"

	"github.com/picowifi/picowifi/frame"
	"github.com/picowifi/picowifi/pkg"
	"github.com/picowifi/picowifi/relay"
)

// Stream is the receive side of the vendor pipe.
type Stream interface {
	Available() int
	Read(buf []byte) (int, error)
}

// Sink is the transmit side of the vendor pipe.
type Sink interface {
	WriteAvailable() int
	Write(data []byte) (int, error)
	Flush() error
}

// State is the reassembler's position in the byte stream.
type State uint8

// Reassembler states.
const (
	AwaitingHeader State = iota
	ReceivingPayload
)

// String returns the state name.
func (s State) String() string {
	if s == ReceivingPayload {
		return "ReceivingPayload"
	}
	return "AwaitingHeader"
}

// CodecStats counts reassembler outcomes.
type CodecStats struct {
	Frames    uint64 // frames completed
	Malformed uint64 // headers discarded
	Dropped   uint64 // completed frames the queue refused
}

// Reassembler rebuilds frames from the host byte stream and enqueues
// them. It is owned by a single goroutine.
type Reassembler struct {
	queue *relay.Queue

	state    State
	header   frame.Header
	received int
	current  frame.Frame
	hdrBuf   [frame.HeaderSize]byte

	frames    atomic.Uint64
	malformed atomic.Uint64
	dropped   atomic.Uint64
}

// NewReassembler creates a reassembler feeding q.
func NewReassembler(q *relay.Queue) *Reassembler {
	return &Reassembler{queue: q}
}

// State returns the current state.
func (r *Reassembler) State() State {
	return r.state
}

// Reset discards any partially received frame.
func (r *Reassembler) Reset() {
	r.state = AwaitingHeader
	r.received = 0
	r.current.Reset()
}

// Stats returns the outcome counters.
func (r *Reassembler) Stats() CodecStats {
	return CodecStats{
		Frames:    r.frames.Load(),
		Malformed: r.malformed.Load(),
		Dropped:   r.dropped.Load(),
	}
}

// Poll consumes whatever s has available. A header is read only once all
// of its bytes are available. A header with a bad magic or a length above
// the MTU is discarded and the next read is assumed to be header-aligned,
// as is a header read that comes back short. Returns the number of frames completed.
func (r *Reassembler) Poll(s Stream) (int, error) {
	completed := 0
	for {
		switch r.state {
		case AwaitingHeader:
			if s.Available() < frame.HeaderSize {
				return completed, nil
			}
			n, err := s.Read(r.hdrBuf[:])
			if err != nil {
				return completed, err
			}
			if n < frame.HeaderSize {
				r.malformed.Add(1)
				pkg.LogDebug(pkg.ComponentCodec, "short header read", "len", n)
				return completed, nil
			}
			if err := frame.ParseHeader(r.hdrBuf[:], &r.header); err != nil {
				r.malformed.Add(1)
				pkg.LogDebug(pkg.ComponentCodec, "discarding header", "error", err)
				continue
			}
			if _, err := r.current.Resize(int(r.header.Length)); err != nil {
				r.malformed.Add(1)
				continue
			}
			r.received = 0
			r.state = ReceivingPayload

		case ReceivingPayload:
			want := int(r.header.Length) - r.received
			if want > 0 {
				if s.Available() == 0 {
					return completed, nil
				}
				n, err := s.Read(r.current.Bytes()[r.received:])
				if err != nil {
					return completed, err
				}
				if n == 0 {
					return completed, nil
				}
				r.received += n
				if r.received < int(r.header.Length) {
					continue
				}
			}
			r.finish()
			completed++
		}
	}
}

// finish hands the completed frame to the queue and returns to
// AwaitingHeader whether or not the queue accepted it.
func (r *Reassembler) finish() {
	r.frames.Add(1)
	if !r.queue.TryEnqueue(&r.current) {
		r.dropped.Add(1)
		pkg.LogDebug(pkg.ComponentCodec, "usb ingress dropped", "len", r.current.Len())
	}
	r.Reset()
}

// Serializer writes frames to the host.
type Serializer struct {
	buf [frame.MaxEncodedSize]byte
}

// TryWrite writes f to s if s has room for the header and the whole
// payload, and flushes. Returns false, with nothing written, when the
// space is insufficient.
func (z *Serializer) TryWrite(s Sink, f *frame.Frame) (bool, error) {
	n := f.EncodedLen()
	if s.WriteAvailable() < n {
		return false, nil
	}
	f.MarshalTo(z.buf[:n])
	if _, err := s.Write(z.buf[:n]); err != nil {
		return false, err
	}
	return true, s.Flush()
}
