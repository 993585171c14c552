package extract

import (
	"errors"

	"github.com/EchoTools/uetex/pkg/archive"
	"github.com/EchoTools/uetex/pkg/cursor"
	"github.com/EchoTools/uetex/pkg/pixel"
	"github.com/EchoTools/uetex/pkg/texture"
	"github.com/EchoTools/uetex/pkg/uasset"
)

// Errors returned by Extract, re-exported from the packages that
// produce them. Match with errors.Is.
var (
	ErrTruncatedBuffer    = cursor.ErrTruncatedBuffer
	ErrOffsetOutOfRange   = cursor.ErrOffsetOutOfRange
	ErrBadMagic           = uasset.ErrBadMagic
	ErrUnsupportedVersion = uasset.ErrUnsupportedVersion
	ErrNameHashMismatch   = uasset.ErrNameHashMismatch
	ErrCorruptContainer   = archive.ErrCorruptContainer

	ErrTextureNotFound   = uasset.ErrTextureNotFound
	ErrMissingDimensions = texture.ErrMissingDimensions
	ErrNoMipLevels       = texture.ErrNoMipLevels
	ErrNoResidentMip     = texture.ErrNoResidentMip

	ErrUnknownPixelFormat     = pixel.ErrUnknownPixelFormat
	ErrUnsupportedPixelFormat = pixel.ErrUnsupportedPixelFormat
	ErrSizeMismatch           = pixel.ErrSizeMismatch
	ErrCorruptChunk           = archive.ErrCorruptChunk
)

// Category groups errors by what a caller can do about them.
type Category int

const (
	// Unknown errors come from outside the pipeline (nil is also Unknown).
	Unknown Category = iota
	// Structural errors mean the input is malformed or incompatible.
	Structural
	// Resolution errors mean the package is well formed but holds no
	// usable texture.
	Resolution
	// Format errors mean the pixel data cannot be decoded.
	Format
)

func (c Category) String() string {
	switch c {
	case Structural:
		return "structural"
	case Resolution:
		return "resolution"
	case Format:
		return "format"
	default:
		return "unknown"
	}
}

var categories = []struct {
	err      error
	category Category
}{
	{ErrTruncatedBuffer, Structural},
	{ErrOffsetOutOfRange, Structural},
	{ErrBadMagic, Structural},
	{ErrUnsupportedVersion, Structural},
	{ErrNameHashMismatch, Structural},
	{ErrCorruptContainer, Structural},
	{ErrTextureNotFound, Resolution},
	{ErrMissingDimensions, Resolution},
	{ErrNoMipLevels, Resolution},
	{ErrNoResidentMip, Resolution},
	{ErrUnknownPixelFormat, Format},
	{ErrUnsupportedPixelFormat, Format},
	{ErrSizeMismatch, Format},
	{ErrCorruptChunk, Format},
}

// Classify returns the category of err.
func Classify(err error) Category {
	if err == nil {
		return Unknown
	}
	for _, c := range categories {
		if errors.Is(err, c.err) {
			return c.category
		}
	}
	return Unknown
}

// Benign reports whether err is expected when scanning arbitrary
// packages: no texture present, or a texture in a format this package
// cannot decode.
func Benign(err error) bool {
	return Classify(err) == Resolution || errors.Is(err, ErrUnsupportedPixelFormat)
}
