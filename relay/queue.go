// Package relay provides the bounded single-producer/single-consumer queue
// that moves frames between the wireless and USB execution contexts.
//
// A Queue holds a fixed number of frame slots by value. The producer never
// blocks: TryEnqueue copies the frame into a free slot or reports false and
// leaves the queue unchanged. The consumer either polls (Peek/Remove,
// TryDequeue) or waits (Dequeue) for the next frame.
//
// Exactly one goroutine may produce and exactly one may consume; no
// additional locking is required under that discipline.
package relay

import (
	"context"
	"sync/atomic"

	"github.com/picowifi/picowifi/frame"
)

// DefaultDepth is the slot count used when none is configured.
const DefaultDepth = 16

// Queue is a fixed-depth FIFO of frames.
type Queue struct {
	slots []frame.Frame

	// head is advanced only by the consumer, tail only by the producer.
	head atomic.Uint64
	tail atomic.Uint64

	// notify carries at most one pending wakeup for the consumer.
	notify chan struct{}

	enqueued atomic.Uint64
	dropped  atomic.Uint64
}

// NewQueue creates a queue with depth slots. A non-positive depth selects
// DefaultDepth.
func NewQueue(depth int) *Queue {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Queue{
		slots:  make([]frame.Frame, depth),
		notify: make(chan struct{}, 1),
	}
}

// Cap returns the number of slots.
func (q *Queue) Cap() int {
	return len(q.slots)
}

// Len returns the current occupancy.
func (q *Queue) Len() int {
	head := q.head.Load()
	return int(q.tail.Load() - head)
}

// TryEnqueue copies f into the next free slot.
// Returns false, leaving the queue unchanged, if every slot is occupied.
// Must only be called by the producer.
func (q *Queue) TryEnqueue(f *frame.Frame) bool {
	tail := q.tail.Load()
	if tail-q.head.Load() >= uint64(len(q.slots)) {
		q.dropped.Add(1)
		return false
	}
	q.slots[tail%uint64(len(q.slots))] = *f
	q.tail.Store(tail + 1)
	q.enqueued.Add(1)

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

// Peek copies the oldest frame into out without removing it.
// Returns false if the queue is empty. Must only be called by the consumer.
func (q *Queue) Peek(out *frame.Frame) bool {
	head := q.head.Load()
	if head == q.tail.Load() {
		return false
	}
	*out = q.slots[head%uint64(len(q.slots))]
	return true
}

// Remove discards the oldest frame, typically after a successful Peek.
// Returns false if the queue is empty. Must only be called by the consumer.
func (q *Queue) Remove() bool {
	head := q.head.Load()
	if head == q.tail.Load() {
		return false
	}
	q.head.Store(head + 1)
	return true
}

// TryDequeue moves the oldest frame into out.
// Returns false if the queue is empty. Must only be called by the consumer.
func (q *Queue) TryDequeue(out *frame.Frame) bool {
	if !q.Peek(out) {
		return false
	}
	return q.Remove()
}

// Dequeue moves the oldest frame into out, waiting until one is available
// or ctx is done. Must only be called by the consumer.
func (q *Queue) Dequeue(ctx context.Context, out *frame.Frame) error {
	for {
		if q.TryDequeue(out) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.notify:
		}
	}
}

// Ready returns a channel that receives after an enqueue. The consumer may
// select on it alongside other events, then drain with TryDequeue.
func (q *Queue) Ready() <-chan struct{} {
	return q.notify
}

// Stats reports cumulative enqueue and drop counts.
type Stats struct {
	Enqueued uint64
	Dropped  uint64
}

// Stats returns a snapshot of the cumulative counters.
func (q *Queue) Stats() Stats {
	return Stats{
		Enqueued: q.enqueued.Load(),
		Dropped:  q.dropped.Load(),
	}
}
