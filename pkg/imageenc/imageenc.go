// Package imageenc writes decoded textures as lossless image files.
package imageenc

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Format is an output container.
type Format int

const (
	FormatPNG Format = iota
	FormatWebP
	FormatTGA
	FormatBMP
	FormatTIFF
)

var formatNames = map[Format]string{
	FormatPNG:  "png",
	FormatWebP: "webp",
	FormatTGA:  "tga",
	FormatBMP:  "bmp",
	FormatTIFF: "tiff",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	if f == FormatTIFF {
		return ".tif"
	}
	return "." + f.String()
}

// ParseFormat accepts a format name or extension, case-insensitively.
func ParseFormat(name string) (Format, error) {
	name = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), ".")
	switch name {
	case "", "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	case "tga":
		return FormatTGA, nil
	case "bmp":
		return FormatBMP, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	}
	return 0, fmt.Errorf("unknown image format %q", name)
}

type options struct {
	format      Format
	maxDim      int
	compression png.CompressionLevel
}

// Option configures Encode.
type Option func(*options)

// WithFormat selects the output container. The default is PNG.
func WithFormat(f Format) Option {
	return func(o *options) {
		o.format = f
	}
}

// WithMaxDimension scales the image down, keeping its aspect ratio, when
// either side exceeds n. Zero disables scaling.
func WithMaxDimension(n int) Option {
	return func(o *options) {
		o.maxDim = n
	}
}

// WithPNGCompression sets the PNG compression level.
func WithPNGCompression(level png.CompressionLevel) Option {
	return func(o *options) {
		o.compression = level
	}
}

// Encode writes img to w.
func Encode(w io.Writer, img image.Image, opts ...Option) error {
	o := options{format: FormatPNG, compression: png.DefaultCompression}
	for _, opt := range opts {
		opt(&o)
	}

	if o.maxDim > 0 {
		img = Fit(ToNRGBA(img), o.maxDim)
	}

	var err error
	switch o.format {
	case FormatPNG:
		enc := png.Encoder{CompressionLevel: o.compression}
		err = enc.Encode(w, img)
	case FormatWebP:
		err = nativewebp.Encode(w, img, nil)
	case FormatTGA:
		err = tga.Encode(w, img)
	case FormatBMP:
		err = bmp.Encode(w, img)
	case FormatTIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		return fmt.Errorf("unknown image format %s", o.format)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", o.format, err)
	}
	return nil
}

// EncodeBytes returns the encoded image.
func EncodeBytes(img image.Image, opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
