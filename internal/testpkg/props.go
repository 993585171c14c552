package testpkg

import (
	"encoding/binary"

	"github.com/EchoTools/uetex/pkg/archive"
)

// Bulk data flags written into mip records.
const (
	FlagCompressedZLIB uint32 = 0x0002
	FlagUnused         uint32 = 0x0020
	FlagSeparateFile   uint32 = 0x0100
)

// Props writes a tagged property list. Every method returns p so calls
// chain; End appends the terminator and returns the bytes.
type Props struct {
	b   *Builder
	buf []byte
}

// Props starts a property list whose names are interned in b.
func (b *Builder) Props() *Props {
	return &Props{b: b}
}

func (p *Props) u32(v uint32) { p.buf = binary.LittleEndian.AppendUint32(p.buf, v) }

// Tag writes a tag with a raw payload. args are the type-specific name
// arguments (struct, inner, enum, or key and value type names).
func (p *Props) Tag(name, typ string, payload []byte, args ...string) *Props {
	p.u32(p.b.Name(name))
	p.u32(p.b.Name(typ))
	p.buf = binary.LittleEndian.AppendUint64(p.buf, uint64(len(payload)))
	for _, a := range args {
		p.u32(p.b.Name(a))
	}
	p.buf = append(p.buf, 0) // no GUID
	p.buf = append(p.buf, payload...)
	return p
}

// TagWithGUID is Tag with a property GUID in the header.
func (p *Props) TagWithGUID(name, typ string, payload []byte, args ...string) *Props {
	p.u32(p.b.Name(name))
	p.u32(p.b.Name(typ))
	p.buf = binary.LittleEndian.AppendUint64(p.buf, uint64(len(payload)))
	for _, a := range args {
		p.u32(p.b.Name(a))
	}
	p.buf = append(p.buf, 1)
	p.buf = append(p.buf, make([]byte, 16)...)
	p.buf = append(p.buf, payload...)
	return p
}

func (p *Props) Int(name string, v int32) *Props {
	return p.Tag(name, "IntProperty", binary.LittleEndian.AppendUint32(nil, uint32(v)))
}

func (p *Props) UInt32(name string, v uint32) *Props {
	return p.Tag(name, "UInt32Property", binary.LittleEndian.AppendUint32(nil, v))
}

func (p *Props) Bool(name string, v bool) *Props {
	p.u32(p.b.Name(name))
	p.u32(p.b.Name("BoolProperty"))
	p.buf = binary.LittleEndian.AppendUint64(p.buf, 0)
	if v {
		p.buf = append(p.buf, 1)
	} else {
		p.buf = append(p.buf, 0)
	}
	p.buf = append(p.buf, 0)
	return p
}

// Byte writes an enum-valued ByteProperty.
func (p *Props) Byte(name, enum, value string) *Props {
	return p.Tag(name, "ByteProperty", binary.LittleEndian.AppendUint32(nil, p.b.Name(value)), enum)
}

func (p *Props) Enum(name, enum, value string) *Props {
	return p.Tag(name, "EnumProperty", binary.LittleEndian.AppendUint32(nil, p.b.Name(value)), enum)
}

func (p *Props) Str(name, value string) *Props {
	return p.Tag(name, "StrProperty", AppendFString(nil, value))
}

// Struct writes a StructProperty with an opaque payload.
func (p *Props) Struct(name, structName string, payload []byte) *Props {
	return p.Tag(name, "StructProperty", payload, structName)
}

// Map writes a MapProperty with an opaque payload.
func (p *Props) Map(name, key, value string, payload []byte) *Props {
	return p.Tag(name, "MapProperty", payload, key, value)
}

// Mip is one mip level to write.
type Mip struct {
	Width, Height uint32
	Data          []byte // decoded bytes
	External      bool   // store in the bulk buffer
	Unused        bool   // no payload
	Compressed    bool   // store Data as a zlib chunk
	// BulkOffset overrides the offset recorded for an external mip.
	BulkOffset *uint64
}

// Mips writes the Mips array. External payloads are appended to the
// builder's bulk buffer.
func (p *Props) Mips(mips ...Mip) *Props {
	payload := binary.LittleEndian.AppendUint32(nil, uint32(len(mips)))
	for _, m := range mips {
		payload = p.b.appendMip(payload, m)
	}
	return p.Tag("Mips", "ArrayProperty", payload, "StructProperty")
}

func (b *Builder) appendMip(dst []byte, m Mip) []byte {
	var flags uint32
	stored := m.Data
	if m.Compressed {
		flags |= FlagCompressedZLIB
		chunk, err := archive.WriteChunk(m.Data, 0)
		if err != nil {
			panic(err)
		}
		stored = chunk
	}

	switch {
	case m.Unused:
		dst = binary.LittleEndian.AppendUint32(dst, flags|FlagUnused)
		dst = binary.LittleEndian.AppendUint32(dst, 0)
		dst = binary.LittleEndian.AppendUint32(dst, 0)
	case m.External:
		off := b.AppendBulk(stored)
		if m.BulkOffset != nil {
			off = *m.BulkOffset
		}
		dst = binary.LittleEndian.AppendUint32(dst, flags|FlagSeparateFile)
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(m.Data)))
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(stored)))
		dst = binary.LittleEndian.AppendUint64(dst, off)
	default:
		dst = binary.LittleEndian.AppendUint32(dst, flags)
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(m.Data)))
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(stored)))
		dst = append(dst, stored...)
	}
	dst = binary.LittleEndian.AppendUint32(dst, m.Width)
	return binary.LittleEndian.AppendUint32(dst, m.Height)
}

// End appends the None terminator and returns the encoded list.
func (p *Props) End() []byte {
	p.u32(p.b.Name("None"))
	return p.buf
}
