// Package pixel decodes texture mip payloads into RGBA8 images.
//
// Supported formats:
//   - BC1 (DXT1): RGB + 1-bit alpha, 8 bytes/block
//   - BC2 (DXT3): RGB + explicit 4-bit alpha, 16 bytes/block
//   - BC3 (DXT5): RGB + interpolated alpha, 16 bytes/block
//   - BC4: one channel, 8 bytes/block
//   - BC5: two channels (normal maps), 16 bytes/block
//   - B8G8R8A8, R8G8B8A8, G8, A8: uncompressed
//   - FloatRGBA (half floats), FloatR11G11B10: clamped to [0, 1]
//
// BC6H, BC7 and ASTC are named so that packages using them parse, but
// decoding them fails with ErrUnsupportedPixelFormat.
package pixel

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownPixelFormat is returned when a format name has no mapping.
	ErrUnknownPixelFormat = errors.New("unknown pixel format")
	// ErrUnsupportedPixelFormat is returned when a named format has no decoder.
	ErrUnsupportedPixelFormat = errors.New("unsupported pixel format")
	// ErrSizeMismatch is returned when a payload length disagrees with its
	// declared dimensions.
	ErrSizeMismatch = errors.New("size mismatch")
)

// Format is a pixel format tag.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatB8G8R8A8
	FormatR8G8B8A8
	FormatG8
	FormatA8
	FormatDXT1
	FormatDXT3
	FormatDXT5
	FormatBC4
	FormatBC5
	FormatBC6H
	FormatBC7
	FormatASTC4x4
	FormatFloatRGBA
	FormatFloatR11G11B10
)

type formatInfo struct {
	name          string
	blockW        int
	blockH        int
	bytesPerBlock int
	decoder       decodeFunc
}

var formats = map[Format]formatInfo{
	FormatB8G8R8A8:  {"PF_B8G8R8A8", 1, 1, 4, decodeBGRA},
	FormatR8G8B8A8:  {"PF_R8G8B8A8", 1, 1, 4, decodeRGBA},
	FormatG8:        {"PF_G8", 1, 1, 1, decodeG8},
	FormatA8:        {"PF_A8", 1, 1, 1, decodeA8},
	FormatDXT1:      {"PF_DXT1", 4, 4, 8, decodeBlocks(DecodeBC1Block)},
	FormatDXT3:      {"PF_DXT3", 4, 4, 16, decodeBlocks(DecodeBC2Block)},
	FormatDXT5:      {"PF_DXT5", 4, 4, 16, decodeBlocks(DecodeBC3Block)},
	FormatBC4:       {"PF_BC4", 4, 4, 8, decodeBlocks(DecodeBC4Block)},
	FormatBC5:       {"PF_BC5", 4, 4, 16, decodeBlocks(DecodeBC5Block)},
	FormatBC6H:      {"PF_BC6H", 4, 4, 16, nil},
	FormatBC7:       {"PF_BC7", 4, 4, 16, nil},
	FormatASTC4x4:   {"PF_ASTC_4x4", 4, 4, 16, nil},
	FormatFloatRGBA: {"PF_FloatRGBA", 1, 1, 8, decodeFloatRGBA},

	FormatFloatR11G11B10: {"PF_FloatR11G11B10", 1, 1, 4, decodeR11G11B10},
}

var formatsByName = func() map[string]Format {
	m := make(map[string]Format, len(formats))
	for f, info := range formats {
		m[info.name] = f
	}
	return m
}()

// ParseFormat maps an engine format name such as "PF_DXT5" or
// "EPixelFormat::PF_DXT5" to its tag.
func ParseFormat(name string) (Format, error) {
	name = strings.TrimPrefix(name, "EPixelFormat::")
	if f, ok := formatsByName[name]; ok {
		return f, nil
	}
	return FormatUnknown, fmt.Errorf("%q: %w", name, ErrUnknownPixelFormat)
}

// String returns the engine name of the format.
func (f Format) String() string {
	if info, ok := formats[f]; ok {
		return info.name
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(f))
}

// Supported reports whether Decode handles the format.
func (f Format) Supported() bool {
	return formats[f].decoder != nil
}

// Compressed reports whether the format is block compressed.
func (f Format) Compressed() bool {
	info, ok := formats[f]
	return ok && info.blockW > 1
}

// ExpectedSize returns the byte count of a w×h mip in format f, rounding
// dimensions up to whole blocks. It returns 0 for unknown formats.
func ExpectedSize(f Format, width, height int) int {
	info, ok := formats[f]
	if !ok {
		return 0
	}
	blocksWide := (width + info.blockW - 1) / info.blockW
	blocksHigh := (height + info.blockH - 1) / info.blockH
	return blocksWide * blocksHigh * info.bytesPerBlock
}
