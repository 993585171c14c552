package testpkg

import (
	"encoding/binary"
)

// Texture describes a one-texture package. Zero fields take defaults.
type Texture struct {
	Name   string // "T_Test"
	Class  string // "Texture2D"
	Width  uint32
	Height uint32
	Format string // "PF_B8G8R8A8"
	Mips   []Mip
	// Filler adds a non-texture export and unknown properties around the
	// recognized ones.
	Filler bool
}

// BuildTexture builds t into a split package.
func BuildTexture(t Texture) Files {
	if t.Name == "" {
		t.Name = "T_Test"
	}
	if t.Class == "" {
		t.Class = "Texture2D"
	}
	if t.Format == "" {
		t.Format = "PF_B8G8R8A8"
	}

	b := New()
	if t.Filler {
		mat := b.ClassImport("Material")
		body := b.Props().Str("Description", "not a texture").End()
		b.Export(mat, "M_Filler", body)
		b.Pad(13)
		b.Depends(1, 2)
		b.Depends()
	}

	class := b.ClassImport(t.Class)
	p := b.Props()
	if t.Filler {
		p.Bool("SRGB", true).
			Struct("ImportedSize", "IntPoint", make([]byte, 8)).
			Map("AssetUserData", "NameProperty", "ObjectProperty", make([]byte, 12)).
			TagWithGUID("LODGroup", "ByteProperty", binary.LittleEndian.AppendUint32(nil, b.Name("TEXTUREGROUP_World")), "TextureGroup")
	}
	p.Int("SizeX", int32(t.Width)).
		Int("SizeY", int32(t.Height)).
		Byte("Format", "EPixelFormat", t.Format)
	if t.Filler {
		p.Str("Comment", "Ünïcode filler")
	}
	p.Mips(t.Mips...)
	b.Export(class, t.Name, p.End())
	return b.Build()
}

// Fill returns w*h pixels of the 4-byte value px.
func Fill(w, h int, px [4]byte) []byte {
	out := make([]byte, 0, w*h*4)
	for i := 0; i < w*h; i++ {
		out = append(out, px[:]...)
	}
	return out
}

// FillBlocks repeats an encoded block for every 4x4 tile of a w×h image.
func FillBlocks(w, h int, block []byte) []byte {
	n := ((w + 3) / 4) * ((h + 3) / 4)
	out := make([]byte, 0, n*len(block))
	for i := 0; i < n; i++ {
		out = append(out, block...)
	}
	return out
}
