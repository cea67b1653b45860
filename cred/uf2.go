package cred

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/picowifi/picowifi/pkg"
)

// UF2 block layout constants.
const (
	UF2BlockSize   = 512
	UF2PayloadSize = 256
	UF2DataSize    = 476

	UF2MagicStart0 uint32 = 0x0A324655 // "UF2\n"
	UF2MagicStart1 uint32 = 0x9E5D5157
	UF2MagicEnd    uint32 = 0x0AB16F30

	UF2FlagFamilyID uint32 = 0x00002000

	// RP2040FamilyID identifies images for the RP2040 bootloader.
	RP2040FamilyID uint32 = 0xE48BFF56
)

const uf2HeaderSize = 32

// EncodeUF2 builds the single-block UF2 image that writes r to XIPAddress.
func EncodeUF2(r *Record) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, UF2BlockSize)
	binary.LittleEndian.PutUint32(buf[0:4], UF2MagicStart0)
	binary.LittleEndian.PutUint32(buf[4:8], UF2MagicStart1)
	binary.LittleEndian.PutUint32(buf[8:12], UF2FlagFamilyID)
	binary.LittleEndian.PutUint32(buf[12:16], XIPAddress)
	binary.LittleEndian.PutUint32(buf[16:20], UF2PayloadSize)
	binary.LittleEndian.PutUint32(buf[20:24], 0)
	binary.LittleEndian.PutUint32(buf[24:28], 1)
	binary.LittleEndian.PutUint32(buf[28:32], RP2040FamilyID)
	r.MarshalTo(buf[uf2HeaderSize:])
	binary.LittleEndian.PutUint32(buf[UF2BlockSize-4:], UF2MagicEnd)
	return buf, nil
}

// DecodeUF2 extracts the record from a single-block UF2 image.
func DecodeUF2(data []byte, out *Record) error {
	if len(data) < UF2BlockSize {
		return fmt.Errorf("uf2 image of %d bytes: %w", len(data), pkg.ErrBufferTooSmall)
	}
	if binary.LittleEndian.Uint32(data[0:4]) != UF2MagicStart0 ||
		binary.LittleEndian.Uint32(data[4:8]) != UF2MagicStart1 ||
		binary.LittleEndian.Uint32(data[UF2BlockSize-4:UF2BlockSize]) != UF2MagicEnd {
		return fmt.Errorf("uf2 block magic: %w", pkg.ErrNoCredentials)
	}
	if addr := binary.LittleEndian.Uint32(data[12:16]); addr != XIPAddress {
		return fmt.Errorf("uf2 target 0x%08X, want 0x%08X: %w", addr, uint32(XIPAddress), pkg.ErrNoCredentials)
	}
	if n := binary.LittleEndian.Uint32(data[16:20]); n < RecordSize {
		return fmt.Errorf("uf2 payload of %d bytes: %w", n, pkg.ErrBufferTooSmall)
	}
	return ParseRecord(data[uf2HeaderSize:uf2HeaderSize+UF2DataSize], out)
}

// IsUF2 reports whether data starts with a UF2 block header.
func IsUF2(data []byte) bool {
	return len(data) >= 8 &&
		binary.LittleEndian.Uint32(data[0:4]) == UF2MagicStart0 &&
		binary.LittleEndian.Uint32(data[4:8]) == UF2MagicStart1
}

// LoadFile reads a record from a UF2 image or a raw flash dump.
// A raw dump shorter than the full flash is read from offset zero.
func LoadFile(path string) (Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return Record{}, err
	}
	defer f.Close()

	var head [UF2BlockSize]byte
	n, err := io.ReadFull(f, head[:])
	if err != nil && err != io.ErrUnexpectedEOF {
		return Record{}, fmt.Errorf("read %s: %w", path, err)
	}
	if IsUF2(head[:n]) {
		var rec Record
		if err := DecodeUF2(head[:n], &rec); err != nil {
			return Record{}, fmt.Errorf("%s: %w", path, err)
		}
		return rec, nil
	}

	info, err := f.Stat()
	if err != nil {
		return Record{}, err
	}
	var off int64
	if info.Size() >= FlashOffset+RecordSize {
		off = FlashOffset
	}
	return Load(f, off)
}
