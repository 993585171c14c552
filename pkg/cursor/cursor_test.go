package cursor

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestIntegers(t *testing.T) {
	buf := []byte{
		0x7f,
		0x34, 0x12,
		0x78, 0x56, 0x34, 0x12,
		0xef, 0xcd, 0xab, 0x90, 0x78, 0x56, 0x34, 0x12,
		0xff, 0xff, 0xff, 0xff,
	}
	c := New(buf)

	u8, _ := c.U8()
	u16, _ := c.U16()
	u32, _ := c.U32()
	u64, _ := c.U64()
	i32, err := c.I32()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if u8 != 0x7f || u16 != 0x1234 || u32 != 0x12345678 || u64 != 0x1234567890abcdef || i32 != -1 {
		t.Errorf("got %x %x %x %x %d", u8, u16, u32, u64, i32)
	}
	if c.Remaining() != 0 {
		t.Errorf("Remaining: got %d, want 0", c.Remaining())
	}
}

func TestTruncatedReadDoesNotAdvance(t *testing.T) {
	c := New([]byte{1, 2, 3})
	if _, err := c.U32(); !errors.Is(err, ErrTruncatedBuffer) {
		t.Fatalf("expected ErrTruncatedBuffer, got %v", err)
	}
	if c.Pos() != 0 {
		t.Errorf("Pos: got %d, want 0", c.Pos())
	}
	if _, err := c.Bytes(-1); !errors.Is(err, ErrTruncatedBuffer) {
		t.Errorf("negative length: got %v", err)
	}
	if _, err := c.BytesU64(1 << 40); !errors.Is(err, ErrTruncatedBuffer) {
		t.Errorf("huge length: got %v", err)
	}
}

func TestSeek(t *testing.T) {
	c := New(make([]byte, 8))

	t.Run("End", func(t *testing.T) {
		if err := c.SeekTo(8); err != nil {
			t.Fatalf("seek to len: %v", err)
		}
		if _, err := c.U8(); !errors.Is(err, ErrTruncatedBuffer) {
			t.Errorf("read at end: got %v", err)
		}
	})

	t.Run("OutOfRange", func(t *testing.T) {
		for _, off := range []int64{-1, 9, 1 << 40} {
			if err := c.SeekTo(off); !errors.Is(err, ErrOffsetOutOfRange) {
				t.Errorf("seek %d: got %v", off, err)
			}
		}
		if err := c.SeekU64(^uint64(0)); !errors.Is(err, ErrOffsetOutOfRange) {
			t.Errorf("seek max uint64: got %v", err)
		}
	})
}

func TestBytesIsView(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	c := New(buf)
	_ = c.Skip(1)
	b, err := c.Bytes(2)
	if err != nil {
		t.Fatalf("bytes: %v", err)
	}
	b[0] = 9
	if buf[1] != 9 {
		t.Error("Bytes returned a copy, want a view")
	}
	if cap(b) != 2 {
		t.Errorf("cap: got %d, want 2", cap(b))
	}
}

func TestSub(t *testing.T) {
	c := New([]byte{0, 1, 2, 3, 4, 5})
	sub, err := c.Sub(2, 3)
	if err != nil {
		t.Fatalf("sub: %v", err)
	}
	if sub.Len() != 3 {
		t.Errorf("Len: got %d, want 3", sub.Len())
	}
	v, _ := sub.U8()
	if v != 2 {
		t.Errorf("first byte: got %d, want 2", v)
	}
	if _, err := c.Sub(4, 3); !errors.Is(err, ErrOffsetOutOfRange) {
		t.Errorf("overlong sub: got %v", err)
	}
	if _, err := c.Sub(^uint64(0), 2); !errors.Is(err, ErrOffsetOutOfRange) {
		t.Errorf("overflowing sub: got %v", err)
	}
}

func TestFString(t *testing.T) {
	ansi := func(s string) []byte {
		b := binary.LittleEndian.AppendUint32(nil, uint32(len(s)+1))
		return append(append(b, s...), 0)
	}
	wide := func(units ...uint16) []byte {
		b := binary.LittleEndian.AppendUint32(nil, uint32(-int32(len(units)+1)))
		for _, u := range units {
			b = binary.LittleEndian.AppendUint16(b, u)
		}
		return append(b, 0, 0)
	}

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"Empty", []byte{0, 0, 0, 0}, ""},
		{"Ansi", ansi("Texture2D"), "Texture2D"},
		{"Wide", wide('T', 0x00e9, 'x'), "Téx"},
		{"WideSurrogate", wide(0xd83d, 0xde00), "\U0001F600"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.data)
			got, err := c.FString()
			if err != nil {
				t.Fatalf("FString: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if c.Remaining() != 0 {
				t.Errorf("Remaining: got %d, want 0", c.Remaining())
			}
		})
	}

	t.Run("Truncated", func(t *testing.T) {
		cases := [][]byte{
			{1, 2},
			{10, 0, 0, 0, 'a'},
			{0xfe, 0xff, 0xff, 0xff, 'a', 0},
			{0, 0, 0, 0x80},
		}
		for i, data := range cases {
			c := New(data)
			if _, err := c.FString(); !errors.Is(err, ErrTruncatedBuffer) {
				t.Errorf("case %d: got %v", i, err)
			}
			if c.Pos() != 0 {
				t.Errorf("case %d: Pos got %d, want 0", i, c.Pos())
			}
		}
	})

	t.Run("FailureKeepsPosition", func(t *testing.T) {
		data := append(ansi("ok"), 0xfd, 0xff, 0xff, 0xff, 'a', 0)
		c := New(data)
		if _, err := c.FString(); err != nil {
			t.Fatalf("first string: %v", err)
		}
		pos := c.Pos()
		if _, err := c.FString(); !errors.Is(err, ErrTruncatedBuffer) {
			t.Fatalf("second string: got %v", err)
		}
		if c.Pos() != pos {
			t.Errorf("Pos: got %d, want %d", c.Pos(), pos)
		}
	})
}
