// Package texture reads a texture export from the export-data buffer: its
// tagged property list (dimensions, pixel format) and its mip array, and
// resolves each mip's bytes from either the export data or the separate
// bulk-data buffer.
package texture

import (
	"errors"
	"fmt"

	"github.com/EchoTools/uetex/pkg/cursor"
	"github.com/EchoTools/uetex/pkg/pixel"
	"github.com/EchoTools/uetex/pkg/uasset"
)

var (
	ErrMissingDimensions = errors.New("missing dimensions")
	ErrNoMipLevels       = errors.New("no mip levels")
	ErrNoResidentMip     = errors.New("no resident mip")
)

// Properties are the texture properties this package understands.
type Properties struct {
	Width      uint32
	Height     uint32
	Format     pixel.Format
	FormatName string
	MipCount   uint32
}

// Texture is a parsed texture export.
type Texture struct {
	Name       string
	Class      string
	Properties Properties
	Mips       []Mip
	// Skipped lists the names of tags passed over by declared size.
	Skipped []string
}

// Read locates the texture export in pkg and parses it from exportData.
func Read(pkg *uasset.Package, exportData []byte, classes ...string) (*Texture, error) {
	_, exp, err := pkg.FindTexture(classes...)
	if err != nil {
		return nil, err
	}
	return ReadExport(pkg, exp, exportData)
}

// ReadExport parses exp, which must be a texture export of pkg.
func ReadExport(pkg *uasset.Package, exp *uasset.Export, exportData []byte) (*Texture, error) {
	class, err := pkg.ClassName(exp)
	if err != nil {
		return nil, err
	}
	tex := &Texture{
		Name:  pkg.Name(exp.ObjectName),
		Class: class,
	}

	c, err := cursor.New(exportData).Sub(exp.SerialOffset, exp.SerialSize)
	if err != nil {
		return nil, fmt.Errorf("export %q: %w", tex.Name, err)
	}

	r := &propertyReader{pkg: pkg, c: c}
	if err := r.readAll(tex); err != nil {
		return nil, fmt.Errorf("texture %q: %w", tex.Name, err)
	}

	if r.width == 0 || r.height == 0 {
		return nil, fmt.Errorf("texture %q: SizeX=%d SizeY=%d: %w", tex.Name, r.width, r.height, ErrMissingDimensions)
	}
	if r.formatName == "" {
		return nil, fmt.Errorf("texture %q: no format property: %w", tex.Name, pixel.ErrUnknownPixelFormat)
	}
	format, err := pixel.ParseFormat(r.formatName)
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", tex.Name, err)
	}
	if r.mips == nil {
		return nil, fmt.Errorf("texture %q: no Mips property: %w", tex.Name, ErrNoMipLevels)
	}

	mips, err := readMips(r.mips, exp.SerialOffset+uint64(r.mipsPos))
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", tex.Name, err)
	}

	tex.Properties = Properties{
		Width:      r.width,
		Height:     r.height,
		Format:     format,
		FormatName: r.formatName,
		MipCount:   uint32(len(mips)),
	}
	tex.Mips = mips
	return tex, nil
}
