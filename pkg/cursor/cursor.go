// Package cursor provides a bounds-checked little-endian reader over a byte
// buffer. Every read is validated against the remaining length and fails
// without moving the position; sub-slice reads return views into the
// backing buffer, never copies.
package cursor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"golang.org/x/text/encoding/unicode"
)

var (
	// ErrTruncatedBuffer is returned when a read needs more bytes than remain.
	ErrTruncatedBuffer = errors.New("truncated buffer")
	// ErrOffsetOutOfRange is returned when a seek target lies outside [0, len].
	ErrOffsetOutOfRange = errors.New("offset out of range")
)

// Cursor reads from a byte buffer at a mutable position.
type Cursor struct {
	buf []byte
	pos int
}

// New returns a cursor positioned at the start of buf.
func New(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Pos returns the current read position.
func (c *Cursor) Pos() int { return c.pos }

// Len returns the length of the backing buffer.
func (c *Cursor) Len() int { return len(c.buf) }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.buf) - c.pos }

// SeekTo moves to an absolute offset.
func (c *Cursor) SeekTo(off int64) error {
	if off < 0 || off > int64(len(c.buf)) {
		return fmt.Errorf("seek %d (len %d): %w", off, len(c.buf), ErrOffsetOutOfRange)
	}
	c.pos = int(off)
	return nil
}

// SeekU64 is SeekTo for unsigned on-disk offsets.
func (c *Cursor) SeekU64(off uint64) error {
	if off > math.MaxInt64 {
		return fmt.Errorf("seek %d (len %d): %w", off, len(c.buf), ErrOffsetOutOfRange)
	}
	return c.SeekTo(int64(off))
}

// take returns the next n bytes and advances past them.
func (c *Cursor) take(n int) ([]byte, error) {
	if n < 0 || n > len(c.buf)-c.pos {
		return nil, fmt.Errorf("read %d bytes at %d (len %d): %w", n, c.pos, len(c.buf), ErrTruncatedBuffer)
	}
	b := c.buf[c.pos : c.pos+n : c.pos+n]
	c.pos += n
	return b, nil
}

// Bytes returns a view of the next n bytes.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	return c.take(n)
}

// BytesU64 is Bytes for an unsigned on-disk length.
func (c *Cursor) BytesU64(n uint64) ([]byte, error) {
	if n > uint64(c.Remaining()) {
		return nil, fmt.Errorf("read %d bytes at %d (len %d): %w", n, c.pos, len(c.buf), ErrTruncatedBuffer)
	}
	return c.take(int(n))
}

// Skip advances past n bytes.
func (c *Cursor) Skip(n int) error {
	_, err := c.take(n)
	return err
}

// SkipU64 is Skip for an unsigned on-disk length.
func (c *Cursor) SkipU64(n uint64) error {
	_, err := c.BytesU64(n)
	return err
}

// Sub returns a cursor over the view buf[off:off+n], positioned at its start.
func (c *Cursor) Sub(off, n uint64) (*Cursor, error) {
	if off > uint64(len(c.buf)) || n > uint64(len(c.buf))-off {
		return nil, fmt.Errorf("range [%d, +%d) (len %d): %w", off, n, len(c.buf), ErrOffsetOutOfRange)
	}
	return New(c.buf[off : off+n : off+n]), nil
}

// U8 reads one byte.
func (c *Cursor) U8() (uint8, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// U16 reads a little-endian uint16.
func (c *Cursor) U16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// U32 reads a little-endian uint32.
func (c *Cursor) U32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// U64 reads a little-endian uint64.
func (c *Cursor) U64() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// I8 reads a signed byte.
func (c *Cursor) I8() (int8, error) {
	v, err := c.U8()
	return int8(v), err
}

// I16 reads a little-endian int16.
func (c *Cursor) I16() (int16, error) {
	v, err := c.U16()
	return int16(v), err
}

// I32 reads a little-endian int32.
func (c *Cursor) I32() (int32, error) {
	v, err := c.U32()
	return int32(v), err
}

// I64 reads a little-endian int64.
func (c *Cursor) I64() (int64, error) {
	v, err := c.U64()
	return int64(v), err
}

// PeekU32 reads a uint32 without advancing.
func (c *Cursor) PeekU32() (uint32, error) {
	if c.Remaining() < 4 {
		return 0, fmt.Errorf("peek 4 bytes at %d (len %d): %w", c.pos, len(c.buf), ErrTruncatedBuffer)
	}
	return binary.LittleEndian.Uint32(c.buf[c.pos:]), nil
}

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// FString reads a length-prefixed string. A positive length counts
// single-byte characters including the trailing NUL; a negative length
// counts UTF-16LE code units, also including the NUL.
func (c *Cursor) FString() (s string, err error) {
	start := c.pos
	defer func() {
		if err != nil {
			c.pos = start
		}
	}()

	n, err := c.I32()
	if err != nil {
		return "", err
	}

	switch {
	case n == 0:
		return "", nil
	case n > 0:
		b, err := c.take(int(n))
		if err != nil {
			return "", err
		}
		return string(trimNUL(b)), nil
	default:
		// -MinInt32 overflows; no buffer can hold it anyway.
		if n == math.MinInt32 || int64(-n)*2 > int64(c.Remaining()) {
			return "", fmt.Errorf("utf-16 string of %d units at %d: %w", -int64(n), start, ErrTruncatedBuffer)
		}
		b, err := c.take(int(-n) * 2)
		if err != nil {
			return "", err
		}
		if len(b) >= 2 && b[len(b)-2] == 0 && b[len(b)-1] == 0 {
			b = b[:len(b)-2]
		}
		out, err := utf16le.NewDecoder().Bytes(b)
		if err != nil {
			return "", fmt.Errorf("decode utf-16 string at %d: %w", start, err)
		}
		return string(out), nil
	}
}

func trimNUL(b []byte) []byte {
	if len(b) > 0 && b[len(b)-1] == 0 {
		return b[:len(b)-1]
	}
	return b
}
