package pixel

import (
	"errors"
	"image/color"
	"testing"
)

// gradientIndices is a 3-bit index stream selecting ramp entry i%8 for
// texel i.
var gradientIndices = []byte{0x88, 0xc6, 0xfa, 0x88, 0xc6, 0xfa}

func channel(a0, a1 uint8, indices []byte) []byte {
	b := []byte{a0, a1}
	if indices == nil {
		indices = make([]byte, 6)
	}
	return append(b, indices...)
}

func solid(c color.NRGBA) Block {
	var b Block
	for i := range b {
		b[i] = c
	}
	return b
}

func checkBlock(t *testing.T, got *Block, want Block) {
	t.Helper()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("texel %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBC1Block(t *testing.T) {
	t.Run("Solid", func(t *testing.T) {
		var out Block
		DecodeBC1Block([]byte{0x00, 0xf8, 0x00, 0xf8, 0, 0, 0, 0}, &out)
		checkBlock(t, &out, solid(color.NRGBA{255, 0, 0, 255}))
	})

	t.Run("Gradient", func(t *testing.T) {
		// white→black, each row indexes 0,2,3,1
		var out Block
		DecodeBC1Block([]byte{0xff, 0xff, 0x00, 0x00, 0x78, 0x78, 0x78, 0x78}, &out)
		row := []uint8{255, 170, 85, 0}
		var want Block
		for i := range want {
			v := row[i%4]
			want[i] = color.NRGBA{v, v, v, 255}
		}
		checkBlock(t, &out, want)
	})

	t.Run("PunchThrough", func(t *testing.T) {
		// c0 <= c1: index 2 is the midpoint, index 3 transparent black
		var out Block
		DecodeBC1Block([]byte{0x00, 0x00, 0xff, 0xff, 0xfe, 0xff, 0xff, 0xff}, &out)
		if out[0] != (color.NRGBA{127, 127, 127, 255}) {
			t.Errorf("texel 0: got %v", out[0])
		}
		if out[1] != (color.NRGBA{}) {
			t.Errorf("texel 1: got %v, want transparent", out[1])
		}
	})
}

func TestBC2Block(t *testing.T) {
	t.Run("Solid", func(t *testing.T) {
		src := []byte{
			0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
			0xe0, 0x07, 0xe0, 0x07, 0, 0, 0, 0,
		}
		var out Block
		DecodeBC2Block(src, &out)
		checkBlock(t, &out, solid(color.NRGBA{0, 255, 0, 255}))
	})

	t.Run("AlphaGradient", func(t *testing.T) {
		src := []byte{
			0x10, 0x32, 0x54, 0x76, 0x98, 0xba, 0xdc, 0xfe,
			0xe0, 0x07, 0xe0, 0x07, 0, 0, 0, 0,
		}
		var out Block
		DecodeBC2Block(src, &out)
		var want Block
		for i := range want {
			want[i] = color.NRGBA{0, 255, 0, uint8(i * 17)}
		}
		checkBlock(t, &out, want)
	})
}

func TestBC3Block(t *testing.T) {
	blue := []byte{0x1f, 0x00, 0x1f, 0x00, 0, 0, 0, 0}

	t.Run("Solid", func(t *testing.T) {
		var out Block
		DecodeBC3Block(append(channel(200, 200, nil), blue...), &out)
		checkBlock(t, &out, solid(color.NRGBA{0, 0, 255, 200}))
	})

	t.Run("AlphaGradient", func(t *testing.T) {
		var out Block
		DecodeBC3Block(append(channel(255, 0, gradientIndices), blue...), &out)
		ramp := []uint8{255, 0, 218, 182, 145, 109, 72, 36}
		var want Block
		for i := range want {
			want[i] = color.NRGBA{0, 0, 255, ramp[i%8]}
		}
		checkBlock(t, &out, want)
	})
}

func TestBC4Block(t *testing.T) {
	t.Run("Solid", func(t *testing.T) {
		var out Block
		DecodeBC4Block(channel(128, 128, nil), &out)
		checkBlock(t, &out, solid(color.NRGBA{128, 128, 128, 255}))
	})

	t.Run("SixValueRamp", func(t *testing.T) {
		var out Block
		DecodeBC4Block(channel(0, 255, gradientIndices), &out)
		ramp := []uint8{0, 255, 51, 102, 153, 204, 0, 255}
		var want Block
		for i := range want {
			v := ramp[i%8]
			want[i] = color.NRGBA{v, v, v, 255}
		}
		checkBlock(t, &out, want)
	})
}

func TestBC5Block(t *testing.T) {
	t.Run("Solid", func(t *testing.T) {
		var out Block
		DecodeBC5Block(append(channel(255, 255, nil), channel(255, 255, nil)...), &out)
		checkBlock(t, &out, solid(color.NRGBA{255, 255, 128, 255}))
	})

	t.Run("Flat", func(t *testing.T) {
		var out Block
		DecodeBC5Block(append(channel(128, 128, nil), channel(128, 128, nil)...), &out)
		checkBlock(t, &out, solid(color.NRGBA{128, 128, 255, 255}))
	})

	t.Run("RedGradient", func(t *testing.T) {
		// green 0 puts every normal on the rim, so blue stays 128
		var out Block
		DecodeBC5Block(append(channel(255, 0, gradientIndices), channel(0, 0, nil)...), &out)
		ramp := []uint8{255, 0, 218, 182, 145, 109, 72, 36}
		var want Block
		for i := range want {
			want[i] = color.NRGBA{ramp[i%8], 0, 128, 255}
		}
		checkBlock(t, &out, want)
	})
}

func TestDecodeRaw(t *testing.T) {
	t.Run("BGRA", func(t *testing.T) {
		img, err := Decode([]byte{1, 2, 3, 4, 5, 6, 7, 8}, 2, 1, FormatB8G8R8A8)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		want := []byte{3, 2, 1, 4, 7, 6, 5, 8}
		for i := range want {
			if img.Pix[i] != want[i] {
				t.Fatalf("Pix: got %v, want %v", img.Pix, want)
			}
		}
	})

	t.Run("G8", func(t *testing.T) {
		img, err := Decode([]byte{10, 20}, 1, 2, FormatG8)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got := img.NRGBAAt(0, 1); got != (color.NRGBA{20, 20, 20, 255}) {
			t.Errorf("got %v", got)
		}
	})

	t.Run("A8", func(t *testing.T) {
		img, err := Decode([]byte{99}, 1, 1, FormatA8)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got := img.NRGBAAt(0, 0); got != (color.NRGBA{255, 255, 255, 99}) {
			t.Errorf("got %v", got)
		}
	})
}

func TestDecodeFloat(t *testing.T) {
	t.Run("R11G11B10", func(t *testing.T) {
		// red 1.0, green 0, blue 0.5
		packed := uint32(15<<6) | uint32(14<<5)<<22
		data := []byte{byte(packed), byte(packed >> 8), byte(packed >> 16), byte(packed >> 24)}
		img, err := Decode(data, 1, 1, FormatFloatR11G11B10)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got := img.NRGBAAt(0, 0); got != (color.NRGBA{255, 0, 128, 255}) {
			t.Errorf("got %v", got)
		}
	})

	t.Run("RGBA16F", func(t *testing.T) {
		// 0.25, -1, 2 (clamped), 1
		data := []byte{0x00, 0x34, 0x00, 0xbc, 0x00, 0x40, 0x00, 0x3c}
		img, err := Decode(data, 1, 1, FormatFloatRGBA)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got := img.NRGBAAt(0, 0); got != (color.NRGBA{64, 0, 255, 255}) {
			t.Errorf("got %v", got)
		}
	})

	t.Run("Saturate", func(t *testing.T) {
		if v := smallFloat(31<<6, 6); unorm8(v) != 255 {
			t.Errorf("infinity: got %d", unorm8(v))
		}
		if v := smallFloat(1, 6); unorm8(v) != 0 {
			t.Errorf("denormal: got %d", unorm8(v))
		}
	})
}

func TestDecodePartialBlocks(t *testing.T) {
	// 5x6 needs 2x2 blocks; the last block is solid blue
	red := []byte{0x00, 0xf8, 0x00, 0xf8, 0, 0, 0, 0}
	blue := []byte{0x1f, 0x00, 0x1f, 0x00, 0, 0, 0, 0}
	var data []byte
	data = append(data, red...)
	data = append(data, red...)
	data = append(data, red...)
	data = append(data, blue...)

	img, err := Decode(data, 5, 6, FormatDXT1)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Rect.Dx() != 5 || img.Rect.Dy() != 6 {
		t.Fatalf("bounds: got %v", img.Rect)
	}
	if got := img.NRGBAAt(4, 5); got != (color.NRGBA{0, 0, 255, 255}) {
		t.Errorf("(4,5): got %v, want blue", got)
	}
	if got := img.NRGBAAt(3, 5); got != (color.NRGBA{255, 0, 0, 255}) {
		t.Errorf("(3,5): got %v, want red", got)
	}
}

func TestDecodeSizeMismatch(t *testing.T) {
	tests := []struct {
		format Format
		w, h   int
	}{
		{FormatDXT1, 4, 4},
		{FormatDXT5, 7, 9},
		{FormatBC4, 1, 1},
		{FormatBC5, 8, 4},
		{FormatB8G8R8A8, 3, 3},
		{FormatG8, 2, 5},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			n := ExpectedSize(tt.format, tt.w, tt.h)
			if _, err := Decode(make([]byte, n-1), tt.w, tt.h, tt.format); !errors.Is(err, ErrSizeMismatch) {
				t.Errorf("short: got %v, want ErrSizeMismatch", err)
			}
			if _, err := Decode(make([]byte, n+1), tt.w, tt.h, tt.format); !errors.Is(err, ErrSizeMismatch) {
				t.Errorf("long: got %v, want ErrSizeMismatch", err)
			}
			if _, err := Decode(make([]byte, n), tt.w, tt.h, tt.format); err != nil {
				t.Errorf("exact: %v", err)
			}
		})
	}

	if _, err := Decode(nil, 0, 4, FormatDXT1); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("zero width: got %v", err)
	}
}

func TestDecodeUnsupported(t *testing.T) {
	for _, f := range []Format{FormatBC6H, FormatBC7, FormatASTC4x4} {
		if f.Supported() {
			t.Errorf("%s: Supported() = true", f)
		}
		_, err := Decode(make([]byte, ExpectedSize(f, 4, 4)), 4, 4, f)
		if !errors.Is(err, ErrUnsupportedPixelFormat) {
			t.Errorf("%s: got %v, want ErrUnsupportedPixelFormat", f, err)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name string
		want Format
	}{
		{"PF_DXT1", FormatDXT1},
		{"EPixelFormat::PF_DXT5", FormatDXT5},
		{"PF_B8G8R8A8", FormatB8G8R8A8},
		{"PF_BC7", FormatBC7},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.name)
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.name, got, tt.want)
		}
	}

	if _, err := ParseFormat("PF_Bogus"); !errors.Is(err, ErrUnknownPixelFormat) {
		t.Errorf("PF_Bogus: got %v", err)
	}
}

func TestExpectedSize(t *testing.T) {
	tests := []struct {
		format   Format
		w, h     int
		expected int
	}{
		{FormatDXT1, 512, 512, 128 * 128 * 8},
		{FormatDXT5, 512, 512, 128 * 128 * 16},
		{FormatDXT5, 513, 513, 129 * 129 * 16},
		{FormatBC4, 1, 1, 8},
		{FormatB8G8R8A8, 3, 5, 60},
		{FormatUnknown, 4, 4, 0},
	}
	for _, tt := range tests {
		if got := ExpectedSize(tt.format, tt.w, tt.h); got != tt.expected {
			t.Errorf("%dx%d %s: got %d, want %d", tt.w, tt.h, tt.format, got, tt.expected)
		}
	}
}

func BenchmarkDecodeDXT5(b *testing.B) {
	data := make([]byte, ExpectedSize(FormatDXT5, 1024, 1024))
	for i := range data {
		data[i] = byte(i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Decode(data, 1024, 1024, FormatDXT5); err != nil {
			b.Fatal(err)
		}
	}
}
