package bridge

import (
	"context"
	"sync"
)

// gate is a one-shot handoff of the USB serial number from the wireless
// goroutine to the USB goroutine.
type gate struct {
	once   sync.Once
	done   chan struct{}
	serial string
}

func newGate() *gate {
	return &gate{done: make(chan struct{})}
}

// open publishes serial. Later calls are ignored.
func (g *gate) open(serial string) {
	g.once.Do(func() {
		g.serial = serial
		close(g.done)
	})
}

// wait blocks until the gate opens or ctx is done.
func (g *gate) wait(ctx context.Context) (string, error) {
	select {
	case <-g.done:
		return g.serial, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
