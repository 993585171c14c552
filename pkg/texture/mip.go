package texture

import (
	"fmt"
	"strings"

	"github.com/EchoTools/uetex/pkg/archive"
	"github.com/EchoTools/uetex/pkg/cursor"
)

// BulkFlags are the per-mip bulk data flags.
type BulkFlags uint32

const (
	BulkPayloadAtEndOfFile      BulkFlags = 0x0001
	BulkSerializeCompressedZLIB BulkFlags = 0x0002
	BulkUnused                  BulkFlags = 0x0020
	BulkForceInlinePayload      BulkFlags = 0x0040
	BulkPayloadInSeparateFile   BulkFlags = 0x0100
)

// String lists the set flags.
func (f BulkFlags) String() string {
	var parts []string
	for _, fl := range []struct {
		bit  BulkFlags
		name string
	}{
		{BulkPayloadAtEndOfFile, "EndOfFile"},
		{BulkSerializeCompressedZLIB, "ZLIB"},
		{BulkUnused, "Unused"},
		{BulkForceInlinePayload, "ForceInline"},
		{BulkPayloadInSeparateFile, "SeparateFile"},
	} {
		if f&fl.bit != 0 {
			parts = append(parts, fl.name)
		}
	}
	if len(parts) == 0 {
		return "Inline"
	}
	return strings.Join(parts, "|")
}

// StorageKind says which buffer holds a mip's bytes.
type StorageKind uint8

const (
	StorageNone     StorageKind = iota // no payload (unused mip)
	StorageInline                      // export-data buffer
	StorageExternal                    // bulk-data buffer
)

func (k StorageKind) String() string {
	switch k {
	case StorageInline:
		return "Inline"
	case StorageExternal:
		return "External"
	default:
		return "None"
	}
}

// Storage locates a mip payload. Offset is absolute within the buffer
// selected by Kind.
type Storage struct {
	Kind   StorageKind
	Offset uint64
	Size   uint64
}

// Mip describes one mip level.
type Mip struct {
	Width          uint32
	Height         uint32
	Flags          BulkFlags
	ElementCount   uint32 // decoded byte count
	CompressedSize uint32 // stored byte count
	Storage        Storage
}

// Compressed reports whether the stored bytes are a zlib chunk.
func (m *Mip) Compressed() bool {
	return m.Flags&BulkSerializeCompressedZLIB != 0
}

// readMips parses the Mips array payload. base is the absolute offset of
// payload within the export-data buffer.
func readMips(payload []byte, base uint64) ([]Mip, error) {
	c := cursor.New(payload)
	count, err := c.U32()
	if err != nil {
		return nil, fmt.Errorf("mip count: %w", err)
	}
	if count == 0 {
		return nil, ErrNoMipLevels
	}
	// flags + two sizes + width + height is the smallest record.
	const minRecord = 20
	if uint64(count)*minRecord > uint64(c.Remaining()) {
		return nil, fmt.Errorf("%d mips in %d bytes: %w", count, c.Remaining(), cursor.ErrTruncatedBuffer)
	}

	mips := make([]Mip, count)
	for i := range mips {
		if err := readMip(c, base, &mips[i]); err != nil {
			return nil, fmt.Errorf("mip %d: %w", i, err)
		}
	}
	return mips, nil
}

func readMip(c *cursor.Cursor, base uint64, m *Mip) error {
	flags, err := c.U32()
	if err != nil {
		return err
	}
	m.Flags = BulkFlags(flags)
	if m.ElementCount, err = c.U32(); err != nil {
		return err
	}
	if m.CompressedSize, err = c.U32(); err != nil {
		return err
	}

	switch {
	case m.Flags&BulkPayloadInSeparateFile != 0:
		off, err := c.U64()
		if err != nil {
			return err
		}
		m.Storage = Storage{Kind: StorageExternal, Offset: off, Size: uint64(m.CompressedSize)}
	case m.Flags&BulkUnused != 0:
		m.Storage = Storage{Kind: StorageNone}
	default:
		pos := c.Pos()
		if err := c.SkipU64(uint64(m.CompressedSize)); err != nil {
			return fmt.Errorf("inline payload: %w", err)
		}
		m.Storage = Storage{Kind: StorageInline, Offset: base + uint64(pos), Size: uint64(m.CompressedSize)}
	}

	if m.Width, err = c.U32(); err != nil {
		return err
	}
	if m.Height, err = c.U32(); err != nil {
		return err
	}
	return nil
}

// MipChain returns the dimensions of an n-level chain starting at w×h,
// halving each side (minimum 1) per level.
func MipChain(w, h uint32, n int) [][2]uint32 {
	chain := make([][2]uint32, 0, n)
	for i := 0; i < n; i++ {
		chain = append(chain, [2]uint32{w, h})
		w = max(1, w/2)
		h = max(1, h/2)
	}
	return chain
}

// ChainMismatches returns the indices of mips whose dimensions differ
// from MipChain started at mip 0. Readers accept such chains; this is for
// reporting.
func (t *Texture) ChainMismatches() []int {
	if len(t.Mips) == 0 {
		return nil
	}
	chain := MipChain(t.Mips[0].Width, t.Mips[0].Height, len(t.Mips))
	var bad []int
	for i, m := range t.Mips {
		if m.Width != chain[i][0] || m.Height != chain[i][1] {
			bad = append(bad, i)
		}
	}
	return bad
}

// Selector picks a mip level. Largest selects the first resident mip.
type Selector int

// Largest selects the largest resident mip.
const Largest Selector = -1

// Index selects mip i exactly.
func Index(i int) Selector { return Selector(i) }

func (s Selector) String() string {
	if s < 0 {
		return "largest"
	}
	return fmt.Sprintf("%d", int(s))
}

// locate checks that m's bytes lie within the supplied buffers. An empty
// bulk buffer counts as not supplied, so external mips are then not
// resident; a range the buffer does not cover fails with
// ErrOffsetOutOfRange.
func locate(m *Mip, exportData, bulk []byte) error {
	switch m.Storage.Kind {
	case StorageInline:
		if _, err := cursor.New(exportData).Sub(m.Storage.Offset, m.Storage.Size); err != nil {
			return fmt.Errorf("inline mip: %w", err)
		}
		return nil
	case StorageExternal:
		if len(bulk) == 0 {
			return fmt.Errorf("no bulk data: %w", ErrNoResidentMip)
		}
		if _, err := cursor.New(bulk).Sub(m.Storage.Offset, m.Storage.Size); err != nil {
			return fmt.Errorf("bulk mip: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("mip is %s: %w", m.Storage.Kind, ErrNoResidentMip)
	}
}

// Select returns the index of the mip chosen by sel. Largest takes the
// first mip whose bytes the buffers hold, passing over any they cannot
// serve; Index(i) reports why mip i cannot be used. A nil or empty bulk
// means no bulk-data buffer was supplied.
func (t *Texture) Select(exportData, bulk []byte, sel Selector) (int, error) {
	if len(t.Mips) == 0 {
		return -1, ErrNoMipLevels
	}

	if sel >= 0 {
		i := int(sel)
		if i >= len(t.Mips) {
			return -1, fmt.Errorf("mip %d of %d: %w", i, len(t.Mips), ErrNoResidentMip)
		}
		if err := locate(&t.Mips[i], exportData, bulk); err != nil {
			return -1, fmt.Errorf("mip %d: %w", i, err)
		}
		return i, nil
	}

	for i := range t.Mips {
		if locate(&t.Mips[i], exportData, bulk) == nil {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%d mips, %d bytes of bulk data: %w", len(t.Mips), len(bulk), ErrNoResidentMip)
}

// Payload returns the decoded-ready bytes of mip i: a view into
// exportData or bulk, or a fresh buffer when the mip is zlib compressed.
func (t *Texture) Payload(i int, exportData, bulk []byte) ([]byte, error) {
	m := &t.Mips[i]
	var src []byte
	switch m.Storage.Kind {
	case StorageInline:
		src = exportData
	case StorageExternal:
		src = bulk
	default:
		return nil, fmt.Errorf("mip %d: %w", i, ErrNoResidentMip)
	}

	sub, err := cursor.New(src).Sub(m.Storage.Offset, m.Storage.Size)
	if err != nil {
		return nil, fmt.Errorf("mip %d: %w", i, err)
	}
	stored, err := sub.Bytes(sub.Len())
	if err != nil {
		return nil, fmt.Errorf("mip %d: %w", i, err)
	}

	if !m.Compressed() {
		return stored, nil
	}
	data, err := archive.ReadChunk(stored)
	if err != nil {
		return nil, fmt.Errorf("mip %d: %w", i, err)
	}
	if len(data) != int(m.ElementCount) {
		return nil, fmt.Errorf("mip %d: chunk holds %d bytes, header says %d: %w", i, len(data), m.ElementCount, archive.ErrCorruptChunk)
	}
	return data, nil
}
