package extract

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"strings"
	"testing"

	"github.com/EchoTools/uetex/internal/testpkg"
	"github.com/EchoTools/uetex/pkg/imageenc"
	"github.com/EchoTools/uetex/pkg/texture"
)

var (
	orange     = color.NRGBA{255, 128, 0, 255}
	orangeBGRA = [4]byte{0, 128, 255, 255}
	// DXT1 block: both endpoints pure blue, all indices 0
	blueBlock = []byte{0x1f, 0x00, 0x1f, 0x00, 0, 0, 0, 0}
)

func solidTexture(w, h uint32, filler bool) testpkg.Files {
	return testpkg.BuildTexture(testpkg.Texture{
		Width: w, Height: h, Filler: filler,
		Mips: []testpkg.Mip{{Width: w, Height: h, Data: testpkg.Fill(int(w), int(h), orangeBGRA)}},
	})
}

func checkSolid(t *testing.T, img image.Image, w, h int, want color.NRGBA) {
	t.Helper()
	b := img.Bounds()
	if b.Dx() != w || b.Dy() != h {
		t.Fatalf("bounds: got %v, want %dx%d", b, w, h)
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA); c != want {
				t.Fatalf("(%d,%d): got %v, want %v", x, y, c, want)
			}
		}
	}
}

func TestExtractSolid(t *testing.T) {
	files := solidTexture(7, 5, false)
	out, err := Extract(files.Meta, files.Export, files.Bulk)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("png decode: %v", err)
	}
	checkSolid(t, img, 7, 5, orange)
}

func TestExtractBlockCompressed(t *testing.T) {
	files := testpkg.BuildTexture(testpkg.Texture{
		Width: 10, Height: 6, Format: "PF_DXT1",
		Mips: []testpkg.Mip{{Width: 10, Height: 6, Data: testpkg.FillBlocks(10, 6, blueBlock), External: true}},
	})
	img, err := Decode(files.Meta, files.Export, files.Bulk)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	checkSolid(t, img, 10, 6, color.NRGBA{0, 0, 255, 255})
}

func TestUnknownPropertiesDoNotChangeOutput(t *testing.T) {
	plain := solidTexture(4, 4, false)
	padded := solidTexture(4, 4, true)

	a, err := Extract(plain.Meta, plain.Export, nil)
	if err != nil {
		t.Fatalf("plain: %v", err)
	}
	b, err := Extract(padded.Meta, padded.Export, nil)
	if err != nil {
		t.Fatalf("padded: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("unknown properties changed the encoded image")
	}
}

func TestMipFallback(t *testing.T) {
	files := testpkg.BuildTexture(testpkg.Texture{
		Width: 8, Height: 8,
		Mips: []testpkg.Mip{
			{Width: 8, Height: 8, Data: testpkg.Fill(8, 8, [4]byte{255, 0, 0, 255}), External: true},
			{Width: 4, Height: 4, Data: testpkg.Fill(4, 4, orangeBGRA)},
		},
	})

	img, err := Decode(files.Meta, files.Export, nil)
	if err != nil {
		t.Fatalf("without bulk: %v", err)
	}
	checkSolid(t, img, 4, 4, orange)

	img, err = Decode(files.Meta, files.Export, files.Bulk)
	if err != nil {
		t.Fatalf("with bulk: %v", err)
	}
	checkSolid(t, img, 8, 8, color.NRGBA{0, 0, 255, 255})

	img, err = Decode(files.Meta, files.Export, files.Bulk, WithMip(texture.Index(1)))
	if err != nil {
		t.Fatalf("index 1: %v", err)
	}
	checkSolid(t, img, 4, 4, orange)

	t.Run("NoneResident", func(t *testing.T) {
		files := testpkg.BuildTexture(testpkg.Texture{
			Width: 8, Height: 8,
			Mips:  []testpkg.Mip{{Width: 8, Height: 8, Data: testpkg.Fill(8, 8, orangeBGRA), External: true}},
		})
		_, err := Extract(files.Meta, files.Export, nil)
		if !errors.Is(err, ErrNoResidentMip) {
			t.Errorf("got %v, want ErrNoResidentMip", err)
		}
	})
}

func TestSizeMismatch(t *testing.T) {
	data := testpkg.FillBlocks(8, 8, blueBlock)
	files := testpkg.BuildTexture(testpkg.Texture{
		Width: 8, Height: 8, Format: "PF_DXT1",
		Mips: []testpkg.Mip{{Width: 8, Height: 8, Data: data[:len(data)-1]}},
	})
	_, err := Extract(files.Meta, files.Export, nil)
	if !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("got %v, want ErrSizeMismatch", err)
	}
	if Classify(err) != Format {
		t.Errorf("category: got %s", Classify(err))
	}
}

func TestCompressedBulkMip(t *testing.T) {
	files := testpkg.BuildTexture(testpkg.Texture{
		Width: 64, Height: 64,
		Mips: []testpkg.Mip{{Width: 64, Height: 64, Data: testpkg.Fill(64, 64, orangeBGRA), External: true, Compressed: true}},
	})
	img, err := Decode(files.Meta, files.Export, files.Bulk)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	checkSolid(t, img, 64, 64, orange)
}

func TestOutputOptions(t *testing.T) {
	files := solidTexture(64, 32, false)

	out, err := Extract(files.Meta, files.Export, nil, WithOutputFormat(imageenc.FormatWebP))
	if err != nil {
		t.Fatalf("webp: %v", err)
	}
	if string(out[0:4]) != "RIFF" || string(out[8:12]) != "WEBP" {
		t.Errorf("webp signature: % x", out[:12])
	}

	img, err := Decode(files.Meta, files.Export, nil, WithMaxDimension(16))
	if err != nil {
		t.Fatalf("scaled: %v", err)
	}
	if img.Rect.Dx() != 16 || img.Rect.Dy() != 8 {
		t.Errorf("scaled bounds: got %v", img.Rect)
	}
}

func TestTextureClasses(t *testing.T) {
	files := testpkg.BuildTexture(testpkg.Texture{
		Class: "TextureRenderTarget2D", Width: 1, Height: 1,
		Mips: []testpkg.Mip{{Width: 1, Height: 1, Data: orangeBGRA[:]}},
	})
	if _, err := Extract(files.Meta, files.Export, nil); !errors.Is(err, ErrTextureNotFound) {
		t.Errorf("default classes: got %v, want ErrTextureNotFound", err)
	}
	if _, err := Extract(files.Meta, files.Export, nil, WithTextureClasses("TextureRenderTarget2D")); err != nil {
		t.Errorf("custom classes: %v", err)
	}
}

func TestInspect(t *testing.T) {
	files := testpkg.BuildTexture(testpkg.Texture{
		Name: "T_Info", Width: 8, Height: 8, Format: "PF_BC7", Filler: true,
		Mips: []testpkg.Mip{
			{Width: 8, Height: 8, Data: make([]byte, 64), External: true},
			{Width: 4, Height: 4, Data: make([]byte, 16)},
		},
	})
	info, err := Inspect(files.Meta, files.Export, nil)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if info.Export != "T_Info" || info.Class != "Texture2D" {
		t.Errorf("identity: got %q %q", info.Export, info.Class)
	}
	if info.Supported {
		t.Error("BC7 reported as supported")
	}
	if len(info.Mips) != 2 || info.Selected != 1 {
		t.Errorf("mips: got %d, selected %d", len(info.Mips), info.Selected)
	}
	if len(info.Skipped) == 0 {
		t.Error("no skipped properties reported")
	}
	if len(info.ChainMismatches) != 0 {
		t.Errorf("chain: got mismatches %v", info.ChainMismatches)
	}

	_, err = Extract(files.Meta, files.Export, files.Bulk)
	if !errors.Is(err, ErrUnsupportedPixelFormat) {
		t.Errorf("extract BC7: got %v, want ErrUnsupportedPixelFormat", err)
	}
	if !Benign(err) {
		t.Error("unsupported format not benign")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Category
	}{
		{nil, Unknown},
		{errors.New("disk on fire"), Unknown},
		{fmt.Errorf("read: %w", ErrTruncatedBuffer), Structural},
		{ErrBadMagic, Structural},
		{fmt.Errorf("x: %w", ErrTextureNotFound), Resolution},
		{ErrNoResidentMip, Resolution},
		{ErrUnknownPixelFormat, Format},
		{ErrCorruptChunk, Format},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("%v: got %s, want %s", tt.err, got, tt.want)
		}
	}

	files := solidTexture(2, 2, false)
	bad := bytes.Clone(files.Meta)
	bad[0] = 0
	_, err := Extract(bad, files.Export, nil)
	if Classify(err) != Structural || Benign(err) {
		t.Errorf("bad magic: got %s", Classify(err))
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	files := solidTexture(2, 2, false)
	if _, err := Extract(files.Meta, files.Export, nil, WithLogger(logger)); err != nil {
		t.Fatalf("extract: %v", err)
	}
	for _, msg := range []string{"read metadata", "read texture", "selected mip", "encoded"} {
		if !strings.Contains(buf.String(), msg) {
			t.Errorf("log missing %q", msg)
		}
	}
}

func TestTruncatedInputsNeverPanic(t *testing.T) {
	files := testpkg.BuildTexture(testpkg.Texture{
		Width: 4, Height: 4, Filler: true,
		Mips: []testpkg.Mip{
			{Width: 4, Height: 4, Data: testpkg.Fill(4, 4, orangeBGRA), External: true},
			{Width: 2, Height: 2, Data: testpkg.Fill(2, 2, orangeBGRA)},
		},
	})
	for n := 0; n < len(files.Meta); n++ {
		if _, err := Extract(files.Meta[:n], files.Export, files.Bulk); Classify(err) != Structural {
			t.Fatalf("metadata prefix %d: got %v", n, err)
		}
	}
	// A bulk buffer too short for mip 0 falls back to the inline mip 1.
	for n := 0; n < len(files.Bulk); n++ {
		img, err := Decode(files.Meta, files.Export, files.Bulk[:n])
		if err != nil {
			t.Fatalf("bulk prefix %d: %v", n, err)
		}
		if b := img.Bounds(); b.Dx() != 2 || b.Dy() != 2 {
			t.Fatalf("bulk prefix %d: got %v, want 2x2", n, b)
		}
	}
	if _, err := Extract(files.Meta, files.Export, files.Bulk[:len(files.Bulk)-1], WithMip(texture.Index(0))); !errors.Is(err, ErrOffsetOutOfRange) {
		t.Errorf("index 0 with short bulk: got %v, want ErrOffsetOutOfRange", err)
	}
}

func TestDump(t *testing.T) {
	files := solidTexture(4, 4, false)
	d, err := Dump(files.Meta)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	if len(d.Exports) != 1 || d.Exports[0].Class != "Texture2D" {
		t.Errorf("exports: got %+v", d.Exports)
	}

	if _, err := Dump(files.Meta[:20]); Classify(err) != Structural {
		t.Errorf("truncated: got %v", err)
	}
}
