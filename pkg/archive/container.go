// Package archive handles the compressed framings a texture payload or a
// whole package file may arrive in: the ZSTD container used to ship
// package files, and the zlib chunk format of compressed bulk mips.
package archive

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/DataDog/zstd"
)

// ContainerMagic identifies a ZSTD container header.
var ContainerMagic = [4]byte{0x5a, 0x53, 0x54, 0x44} // "ZSTD"

const (
	// ContainerHeaderSize is the fixed binary size of a container header.
	ContainerHeaderSize = 24 // 4 + 4 + 8 + 8 bytes

	containerHeaderLength = 16

	// DefaultCompressionLevel is the zstd level used by Wrap.
	DefaultCompressionLevel = zstd.BestSpeed
)

// ErrCorruptContainer is returned for malformed container headers or
// payloads.
var ErrCorruptContainer = errors.New("corrupt container")

// ContainerHeader is the header in front of a zstd-compressed file.
type ContainerHeader struct {
	Magic            [4]byte
	HeaderLength     uint32
	Length           uint64 // uncompressed size
	CompressedLength uint64 // compressed size
}

// EncodeTo writes the header to buf, which must hold ContainerHeaderSize bytes.
func (h *ContainerHeader) EncodeTo(buf []byte) {
	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], h.HeaderLength)
	binary.LittleEndian.PutUint64(buf[8:16], h.Length)
	binary.LittleEndian.PutUint64(buf[16:24], h.CompressedLength)
}

// DecodeFrom reads the header from buf without validating it.
func (h *ContainerHeader) DecodeFrom(buf []byte) {
	copy(h.Magic[:], buf[0:4])
	h.HeaderLength = binary.LittleEndian.Uint32(buf[4:8])
	h.Length = binary.LittleEndian.Uint64(buf[8:16])
	h.CompressedLength = binary.LittleEndian.Uint64(buf[16:24])
}

// Validate checks the header against the number of payload bytes that
// follow it.
func (h *ContainerHeader) Validate(payload int) error {
	if h.Magic != ContainerMagic {
		return fmt.Errorf("magic %x: %w", h.Magic, ErrCorruptContainer)
	}
	if h.HeaderLength != containerHeaderLength {
		return fmt.Errorf("header length %d: %w", h.HeaderLength, ErrCorruptContainer)
	}
	if h.Length == 0 || h.CompressedLength == 0 {
		return fmt.Errorf("zero length: %w", ErrCorruptContainer)
	}
	if h.CompressedLength > uint64(payload) {
		return fmt.Errorf("compressed length %d exceeds %d payload bytes: %w", h.CompressedLength, payload, ErrCorruptContainer)
	}
	return nil
}

// IsContainer reports whether data starts with a container header.
func IsContainer(data []byte) bool {
	return len(data) >= ContainerHeaderSize && [4]byte(data[0:4]) == ContainerMagic
}

// Unwrap decompresses a container into the original bytes.
func Unwrap(data []byte) ([]byte, error) {
	if len(data) < ContainerHeaderSize {
		return nil, fmt.Errorf("header needs %d bytes, got %d: %w", ContainerHeaderSize, len(data), ErrCorruptContainer)
	}
	var h ContainerHeader
	h.DecodeFrom(data)
	if err := h.Validate(len(data) - ContainerHeaderSize); err != nil {
		return nil, err
	}

	payload := data[ContainerHeaderSize : ContainerHeaderSize+int(h.CompressedLength)]
	out, err := zstd.Decompress(nil, payload)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	if uint64(len(out)) != h.Length {
		return nil, fmt.Errorf("decompressed %d bytes, header says %d: %w", len(out), h.Length, ErrCorruptContainer)
	}
	return out, nil
}

type wrapOptions struct {
	level int
}

// WrapOption configures Wrap.
type WrapOption func(*wrapOptions)

// WithCompressionLevel sets the zstd compression level.
func WithCompressionLevel(level int) WrapOption {
	return func(o *wrapOptions) {
		o.level = level
	}
}

// Wrap compresses data into a container.
func Wrap(data []byte, opts ...WrapOption) ([]byte, error) {
	o := wrapOptions{level: DefaultCompressionLevel}
	for _, opt := range opts {
		opt(&o)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty input: %w", ErrCorruptContainer)
	}

	compressed, err := zstd.CompressLevel(nil, data, o.level)
	if err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}

	h := ContainerHeader{
		Magic:            ContainerMagic,
		HeaderLength:     containerHeaderLength,
		Length:           uint64(len(data)),
		CompressedLength: uint64(len(compressed)),
	}
	out := make([]byte, ContainerHeaderSize+len(compressed))
	h.EncodeTo(out)
	copy(out[ContainerHeaderSize:], compressed)
	return out, nil
}
