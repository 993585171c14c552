package texture

import (
	"fmt"

	"github.com/EchoTools/uetex/pkg/cursor"
	"github.com/EchoTools/uetex/pkg/pixel"
	"github.com/EchoTools/uetex/pkg/uasset"
)

// Property type names with a type-specific tag header.
const (
	TypeStruct = "StructProperty"
	TypeArray  = "ArrayProperty"
	TypeSet    = "SetProperty"
	TypeMap    = "MapProperty"
	TypeByte   = "ByteProperty"
	TypeEnum   = "EnumProperty"
	TypeBool   = "BoolProperty"
	TypeInt    = "IntProperty"
	TypeUInt32 = "UInt32Property"
	TypeName   = "NameProperty"
	TypeStr    = "StrProperty"
)

// NoneName terminates a property list.
const NoneName = "None"

const propertyGUIDSize = 16

// Tag is one property tag header.
type Tag struct {
	Name     string
	Type     string
	Size     uint64
	TypeArgs []uasset.NameRef // struct, inner, enum, or key/value type names
	Bool     bool
	HasGUID  bool
}

type propertyReader struct {
	pkg *uasset.Package
	c   *cursor.Cursor

	width, height uint32
	formatName    string
	mips          []byte
	mipsPos       int
}

// ReadTag reads one tag header. It returns a tag named NoneName at the end
// of the list, in which case nothing past the name was read.
func ReadTag(pkg *uasset.Package, c *cursor.Cursor) (*Tag, error) {
	name, err := readName(pkg, c)
	if err != nil {
		return nil, err
	}
	tag := &Tag{Name: name}
	if name == NoneName {
		return tag, nil
	}

	if tag.Type, err = readName(pkg, c); err != nil {
		return nil, err
	}
	if tag.Size, err = c.U64(); err != nil {
		return nil, err
	}

	args := 0
	switch tag.Type {
	case TypeStruct, TypeArray, TypeSet, TypeByte, TypeEnum:
		args = 1
	case TypeMap:
		args = 2
	case TypeBool:
		v, err := c.U8()
		if err != nil {
			return nil, err
		}
		tag.Bool = v != 0
	}
	for i := 0; i < args; i++ {
		ref, err := c.U32()
		if err != nil {
			return nil, err
		}
		if _, err := pkg.LookupName(uasset.NameRef(ref)); err != nil {
			return nil, err
		}
		tag.TypeArgs = append(tag.TypeArgs, uasset.NameRef(ref))
	}

	hasGUID, err := c.U8()
	if err != nil {
		return nil, err
	}
	if hasGUID != 0 {
		tag.HasGUID = true
		if err := c.Skip(propertyGUIDSize); err != nil {
			return nil, err
		}
	}
	return tag, nil
}

func readName(pkg *uasset.Package, c *cursor.Cursor) (string, error) {
	ref, err := c.U32()
	if err != nil {
		return "", err
	}
	return pkg.LookupName(uasset.NameRef(ref))
}

// readAll consumes tags up to and including the None terminator.
func (r *propertyReader) readAll(tex *Texture) error {
	for {
		tag, err := ReadTag(r.pkg, r.c)
		if err != nil {
			return fmt.Errorf("read tag at %d: %w", r.c.Pos(), err)
		}
		if tag.Name == NoneName {
			return nil
		}

		pos := r.c.Pos()
		payload, err := r.c.BytesU64(tag.Size)
		if err != nil {
			return fmt.Errorf("property %s: %w", tag.Name, err)
		}

		switch tag.Name {
		case "SizeX":
			r.width, err = r.dimension(tag, payload)
		case "SizeY":
			r.height, err = r.dimension(tag, payload)
		case "Format", "PixelFormat":
			r.formatName, err = r.format(tag, payload)
		case "Mips":
			if tag.Type != TypeArray {
				return fmt.Errorf("property Mips has type %s, want %s: %w", tag.Type, TypeArray, ErrNoMipLevels)
			}
			r.mips, r.mipsPos = payload, pos
		default:
			tex.Skipped = append(tex.Skipped, tag.Name)
		}
		if err != nil {
			return fmt.Errorf("property %s: %w", tag.Name, err)
		}
	}
}

func (r *propertyReader) dimension(tag *Tag, payload []byte) (uint32, error) {
	switch tag.Type {
	case TypeInt, TypeUInt32:
	default:
		return 0, fmt.Errorf("type %s: %w", tag.Type, ErrMissingDimensions)
	}
	v, err := cursor.New(payload).I32()
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("value %d: %w", v, ErrMissingDimensions)
	}
	return uint32(v), nil
}

func (r *propertyReader) format(tag *Tag, payload []byte) (string, error) {
	c := cursor.New(payload)
	switch tag.Type {
	case TypeByte, TypeEnum, TypeName:
		if len(payload) == 1 {
			return "", fmt.Errorf("numeric byte value %d: %w", payload[0], pixel.ErrUnknownPixelFormat)
		}
		return readName(r.pkg, c)
	case TypeStr:
		return c.FString()
	default:
		return "", fmt.Errorf("type %s: %w", tag.Type, pixel.ErrUnknownPixelFormat)
	}
}
