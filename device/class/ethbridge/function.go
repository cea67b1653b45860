package ethbridge

import (
	"sync/atomic"

	"github.com/picowifi/picowifi/device"
	"github.com/picowifi/picowifi/frame"
	"github.com/picowifi/picowifi/pkg"
	"github.com/picowifi/picowifi/relay"
)

// Pipe is the vendor bulk pipe seen by the function.
type Pipe interface {
	Stream
	Sink
}

// Stats is a snapshot of the function's counters.
type Stats struct {
	CodecStats
	Written  uint64 // frames written to the host
	Deferred uint64 // drain passes stopped for lack of space
}

// Function relays frames between the vendor pipe and the two relay
// queues. Receive and Drain are called from the goroutine that owns the
// device stack.
type Function struct {
	pipe   Pipe
	toWiFi *relay.Queue
	toUSB  *relay.Queue

	reassembler *Reassembler
	serializer  Serializer
	pending     frame.Frame

	mounted  atomic.Bool
	written  atomic.Uint64
	deferred atomic.Uint64
}

// NewFunction creates a function reading frames from pipe into toWiFi and
// writing frames from toUSB back to pipe.
func NewFunction(pipe Pipe, toWiFi, toUSB *relay.Queue) *Function {
	return &Function{
		pipe:        pipe,
		toWiFi:      toWiFi,
		toUSB:       toUSB,
		reassembler: NewReassembler(toWiFi),
	}
}

// Bind installs the function's mount and unmount callbacks on s.
func (f *Function) Bind(s *device.Stack) {
	s.SetOnMount(f.OnMount)
	s.SetOnUnmount(f.OnUnmount)
}

// OnMount marks the host as present.
func (f *Function) OnMount() {
	pkg.LogInfo(pkg.ComponentUSB, "host mounted")
	f.mounted.Store(true)
}

// OnUnmount marks the host as gone and drops any partial frame.
func (f *Function) OnUnmount() {
	pkg.LogInfo(pkg.ComponentUSB, "host unmounted")
	f.mounted.Store(false)
	f.reassembler.Reset()
}

// Mounted reports whether the host has configured the device.
func (f *Function) Mounted() bool {
	return f.mounted.Load()
}

// Receive feeds available host bytes through the reassembler.
func (f *Function) Receive() (int, error) {
	return f.reassembler.Poll(f.pipe)
}

// Drain writes queued frames to the host while it is mounted and the pipe
// has room. A frame that does not fit stays queued for the next call.
// Returns the number of frames written.
func (f *Function) Drain() (int, error) {
	if !f.mounted.Load() {
		return 0, nil
	}
	n := 0
	for f.toUSB.Peek(&f.pending) {
		ok, err := f.serializer.TryWrite(f.pipe, &f.pending)
		if err != nil {
			return n, err
		}
		if !ok {
			f.deferred.Add(1)
			break
		}
		f.toUSB.Remove()
		f.written.Add(1)
		n++
	}
	return n, nil
}

// Stats returns the function's counters.
func (f *Function) Stats() Stats {
	return Stats{
		CodecStats: f.reassembler.Stats(),
		Written:    f.written.Load(),
		Deferred:   f.deferred.Load(),
	}
}
