package loopback

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/picowifi/picowifi/device/hal"
	hosthal "github.com/picowifi/picowifi/host/hal"
	"github.com/picowifi/picowifi/pkg"
)

func startedHAL(t *testing.T, cfg Config) (*HAL, *Host) {
	t.Helper()
	h := New(cfg)
	if err := h.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := h.SetSerial("28CDC1000001"); err != nil {
		t.Fatalf("SetSerial() error = %v", err)
	}
	if err := h.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	host := h.Host()
	if err := host.Attach(); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	return h, host
}

// serveOne waits for a SETUP packet and answers it with respond.
func serveOne(t *testing.T, h *HAL, respond func(hal.SetupPacket)) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		var setup hal.SetupPacket
		if h.PollSetup(&setup) {
			respond(setup)
			return
		}
		select {
		case <-h.Wake():
		case <-deadline:
			t.Error("no SETUP packet arrived")
			return
		}
	}
}

func TestAttachQueuesMount(t *testing.T) {
	h, host := startedHAL(t, Config{})

	var ev hal.Event
	if !h.PollEvent(&ev) || ev.Type != hal.EventMount {
		t.Fatalf("PollEvent() = %v, want Mount", ev.Type)
	}

	host.Suspend()
	host.Resume()
	host.Detach()
	want := []hal.EventType{hal.EventSuspend, hal.EventResume, hal.EventUnmount}
	for _, w := range want {
		if !h.PollEvent(&ev) || ev.Type != w {
			t.Errorf("PollEvent() = %v, want %v", ev.Type, w)
		}
	}
	if h.PollEvent(&ev) {
		t.Error("PollEvent() returned extra event")
	}
}

func TestAttachBeforeStart(t *testing.T) {
	h := New(Config{})
	if err := h.Host().Attach(); !errors.Is(err, pkg.ErrNoDevice) {
		t.Errorf("Attach() error = %v, want ErrNoDevice", err)
	}
}

func TestSetSerialAfterStart(t *testing.T) {
	h, host := startedHAL(t, Config{VendorID: 0x20A0, ProductID: 0x42EC})
	if err := h.SetSerial("other"); !errors.Is(err, pkg.ErrAlreadyRunning) {
		t.Errorf("SetSerial() error = %v, want ErrAlreadyRunning", err)
	}
	info := host.Info()
	if info.Serial != "28CDC1000001" {
		t.Errorf("Info().Serial = %q", info.Serial)
	}
	if info.VendorID != 0x20A0 || info.ProductID != 0x42EC {
		t.Errorf("Info() ids = %04x:%04x", info.VendorID, info.ProductID)
	}
}

func TestControlTransferIn(t *testing.T) {
	h, host := startedHAL(t, Config{})

	go serveOne(t, h, func(s hal.SetupPacket) {
		if s.Request != 2 || s.Index != 3 || s.Length != 16 {
			t.Errorf("setup = %+v", s)
		}
		_ = h.WriteEP0([]byte{1, 2, 3, 4})
	})

	buf := make([]byte, 16)
	setup := &hosthal.SetupPacket{RequestType: 0xC0, Request: 2, Index: 3, Length: 16}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	n, err := host.ControlTransfer(ctx, setup, buf)
	if err != nil {
		t.Fatalf("ControlTransfer() error = %v", err)
	}
	if !bytes.Equal(buf[:n], []byte{1, 2, 3, 4}) {
		t.Errorf("ControlTransfer() data = %v", buf[:n])
	}
}

func TestControlTransferOut(t *testing.T) {
	h, host := startedHAL(t, Config{})

	got := make(chan []byte, 1)
	go serveOne(t, h, func(s hal.SetupPacket) {
		buf := make([]byte, 64)
		n, _ := h.ReadEP0(buf)
		got <- buf[:n]
		_ = h.AckEP0()
	})

	setup := &hosthal.SetupPacket{RequestType: 0x40, Request: 2, Index: 0, Length: 6}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	n, err := host.ControlTransfer(ctx, setup, []byte("HomeAP"))
	if err != nil {
		t.Fatalf("ControlTransfer() error = %v", err)
	}
	if n != 6 {
		t.Errorf("ControlTransfer() = %d, want 6", n)
	}
	if data := <-got; string(data) != "HomeAP" {
		t.Errorf("device read %q", data)
	}
}

func TestControlTransferStall(t *testing.T) {
	h, host := startedHAL(t, Config{})

	go serveOne(t, h, func(hal.SetupPacket) { _ = h.StallEP0() })

	setup := &hosthal.SetupPacket{RequestType: 0x40, Request: 2, Index: 9}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := host.ControlTransfer(ctx, setup, nil)
	if !errors.Is(err, pkg.ErrStall) {
		t.Errorf("ControlTransfer() error = %v, want ErrStall", err)
	}
}

func TestControlTransferCancelled(t *testing.T) {
	_, host := startedHAL(t, Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	setup := &hosthal.SetupPacket{RequestType: 0x40, Request: 2}
	_, err := host.ControlTransfer(ctx, setup, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("ControlTransfer() error = %v, want DeadlineExceeded", err)
	}
}

func TestStopFailsPendingTransfer(t *testing.T) {
	h, host := startedHAL(t, Config{})

	errCh := make(chan error, 1)
	go func() {
		setup := &hosthal.SetupPacket{RequestType: 0x40, Request: 2}
		_, err := host.ControlTransfer(context.Background(), setup, nil)
		errCh <- err
	}()

	// Wait for the transfer to be queued.
	<-h.Wake()
	var ev hal.Event
	for h.PollEvent(&ev) {
	}
	time.Sleep(10 * time.Millisecond)
	if err := h.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	select {
	case err := <-errCh:
		if !errors.Is(err, pkg.ErrNoDevice) {
			t.Errorf("ControlTransfer() error = %v, want ErrNoDevice", err)
		}
	case <-time.After(time.Second):
		t.Fatal("transfer not failed by Stop")
	}
}

func TestBulkOutRespectsCapacity(t *testing.T) {
	h, host := startedHAL(t, Config{RxSize: 8})

	payload := []byte("0123456789abcdef")
	done := make(chan error, 1)
	go func() {
		_, err := host.BulkTransfer(context.Background(), EndpointOut, payload)
		done <- err
	}()

	var got []byte
	buf := make([]byte, 5)
	deadline := time.After(time.Second)
	for len(got) < len(payload) {
		if n := h.Available(); n > 8 {
			t.Fatalf("Available() = %d exceeds capacity", n)
		}
		n, _ := h.Read(buf)
		got = append(got, buf[:n]...)
		if n == 0 {
			select {
			case <-h.Wake():
			case <-deadline:
				t.Fatalf("read %d of %d bytes", len(got), len(payload))
			}
		}
	}
	if err := <-done; err != nil {
		t.Fatalf("BulkTransfer() error = %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("device read %q, want %q", got, payload)
	}
}

func TestBulkInWaitsForFlush(t *testing.T) {
	h, host := startedHAL(t, Config{TxSize: 8})

	if n := h.WriteAvailable(); n != 8 {
		t.Fatalf("WriteAvailable() = %d, want 8", n)
	}
	n, err := h.Write([]byte("0123456789"))
	if err != nil || n != 8 {
		t.Fatalf("Write() = %d, %v, want 8", n, err)
	}
	if h.WriteAvailable() != 0 {
		t.Errorf("WriteAvailable() = %d, want 0", h.WriteAvailable())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	buf := make([]byte, 16)
	if _, err := host.BulkTransfer(ctx, EndpointIn, buf); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("BulkTransfer() before Flush error = %v", err)
	}
	cancel()

	if err := h.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	n, err = host.BulkTransfer(context.Background(), EndpointIn, buf)
	if err != nil {
		t.Fatalf("BulkTransfer() error = %v", err)
	}
	if string(buf[:n]) != "01234567" {
		t.Errorf("BulkTransfer() = %q", buf[:n])
	}
	if h.WriteAvailable() != 8 {
		t.Errorf("WriteAvailable() after drain = %d, want 8", h.WriteAvailable())
	}
}

func TestBulkInvalidEndpoint(t *testing.T) {
	_, host := startedHAL(t, Config{})
	_, err := host.BulkTransfer(context.Background(), 0x02, []byte{1})
	if !errors.Is(err, pkg.ErrInvalidRequest) {
		t.Errorf("BulkTransfer() error = %v, want ErrInvalidRequest", err)
	}
}

func TestWriteWhileDetached(t *testing.T) {
	h := New(Config{})
	if _, err := h.Write([]byte{1}); !errors.Is(err, pkg.ErrNoDevice) {
		t.Errorf("Write() error = %v, want ErrNoDevice", err)
	}
}
