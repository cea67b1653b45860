package frame

import (
	"bytes"
	"errors"
	"testing"

	"github.com/picowifi/picowifi/pkg"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr error
	}{
		{"empty", 0, nil},
		{"small", 60, nil},
		{"mtu", MTU, nil},
		{"oversized", MTU + 1, pkg.ErrOversizedFrame},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := bytes.Repeat([]byte{0x5A}, tt.size)
			f, err := New(data)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("New() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if f.Len() != tt.size {
				t.Errorf("Len() = %d, want %d", f.Len(), tt.size)
			}
			if !bytes.Equal(f.Bytes(), data) {
				t.Error("Bytes() does not match input")
			}
		})
	}
}

func TestFrameCopySemantics(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	f, err := New(data)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	data[0] = 0xFF
	if f.Bytes()[0] != 1 {
		t.Error("frame aliases caller buffer")
	}

	g := f
	g.Bytes()[1] = 0xEE
	if f.Bytes()[1] != 2 {
		t.Error("frame copy aliases original")
	}
}

func TestSetOversizedLeavesFrame(t *testing.T) {
	f, _ := New([]byte{9, 9})
	if err := f.Set(make([]byte, MTU+10)); err == nil {
		t.Fatal("Set() accepted oversized data")
	}
	if f.Len() != 2 {
		t.Errorf("Len() = %d after rejected Set, want 2", f.Len())
	}
}

func TestResize(t *testing.T) {
	var f Frame
	buf, err := f.Resize(10)
	if err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	if len(buf) != 10 || f.Len() != 10 {
		t.Errorf("Resize(10) len = %d/%d", len(buf), f.Len())
	}
	if _, err := f.Resize(MTU + 1); !errors.Is(err, pkg.ErrOversizedFrame) {
		t.Errorf("Resize(MTU+1) error = %v", err)
	}
	if _, err := f.Resize(-1); err == nil {
		t.Error("Resize(-1) succeeded")
	}
}

func TestMarshalTo(t *testing.T) {
	f, _ := New([]byte{0xDE, 0xAD})
	buf := make([]byte, 16)
	n := f.MarshalTo(buf)
	want := []byte{0x55, 0xAA, 0x55, 0xAA, 0x02, 0x00, 0x00, 0x00, 0xDE, 0xAD}
	if n != len(want) {
		t.Fatalf("MarshalTo() = %d, want %d", n, len(want))
	}
	if !bytes.Equal(buf[:n], want) {
		t.Errorf("MarshalTo() = % X, want % X", buf[:n], want)
	}

	if n := f.MarshalTo(make([]byte, 9)); n != 0 {
		t.Errorf("MarshalTo(short) = %d, want 0", n)
	}
	if got := Append(nil, &f); !bytes.Equal(got, want) {
		t.Errorf("Append() = % X, want % X", got, want)
	}
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    Header
		wantErr error
	}{
		{
			name: "valid",
			data: []byte{0x55, 0xAA, 0x55, 0xAA, 0x40, 0x06, 0x00, 0x00},
			want: Header{Magic: Magic, Length: MTU},
		},
		{
			name: "zero length",
			data: []byte{0x55, 0xAA, 0x55, 0xAA, 0x00, 0x00, 0x00, 0x00},
			want: Header{Magic: Magic, Length: 0},
		},
		{
			name:    "bad magic",
			data:    []byte{0xEF, 0xBE, 0xAD, 0xDE, 0x10, 0x00, 0x00, 0x00},
			want:    Header{Magic: 0xDEADBEEF, Length: 16},
			wantErr: pkg.ErrMalformedFrame,
		},
		{
			name:    "oversize",
			data:    []byte{0x55, 0xAA, 0x55, 0xAA, 0x41, 0x06, 0x00, 0x00},
			want:    Header{Magic: Magic, Length: MTU + 1},
			wantErr: pkg.ErrMalformedFrame,
		},
		{
			name:    "short",
			data:    []byte{0x55, 0xAA},
			wantErr: pkg.ErrBufferTooSmall,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Header
			err := ParseHeader(tt.data, &got)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseHeader() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("ParseHeader() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseHeader() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
