// Package uasset reads the metadata half of a split asset package: the
// header, name table, import table, export table and dependency table.
//
// Sections are located by absolute offsets stored in the header rather
// than read back to back, so a miscounted section cannot shift the next.
package uasset

import (
	"errors"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/EchoTools/uetex/pkg/cursor"
)

// Magic is the package file tag at offset 0.
const Magic uint32 = 0x9E2A83C1

// Supported version range.
const (
	MinVersion int32 = 1
	MaxVersion int32 = 2
)

// Fixed record sizes.
const (
	HeaderSize       = 56
	ImportRecordSize = 16
	ExportRecordSize = 52
	exportGUIDSize   = 16
)

var (
	ErrBadMagic           = errors.New("bad magic")
	ErrUnsupportedVersion = errors.New("unsupported version")
	ErrTextureNotFound    = errors.New("texture not found")
	ErrNameHashMismatch   = errors.New("name hash mismatch")
)

// Section locates one table in the metadata buffer.
type Section struct {
	Count  uint32
	Offset uint64
}

// Header is the fixed package header.
type Header struct {
	Magic   uint32
	Version int32
	Names   Section
	Imports Section
	Exports Section
	Depends Section
}

// NameRef is an index into the name table.
type NameRef uint32

// NameEntry is one deduplicated string of the name table.
type NameEntry struct {
	Index uint32
	Text  string
	Hash  uint32
}

// Import describes an object defined in another package.
type Import struct {
	ClassName   NameRef
	PackageName NameRef
	ObjectName  NameRef
	OuterIndex  int32
}

// Export describes an object serialized in the export-data buffer.
type Export struct {
	ClassIndex   int32 // <0: import -i-1, >0: export i-1, 0: UClass
	SerialOffset uint64
	SerialSize   uint64
	ObjectName   NameRef
	SuperIndex   int32
	OuterIndex   int32
	ObjectFlags  uint32
}

// Package holds the tables of one metadata buffer. It is built per call
// and never shared.
type Package struct {
	Header  Header
	Names   []NameEntry
	Imports []Import
	Exports []Export
}

// Options control optional validation while reading.
type Options struct {
	// VerifyNameHashes checks version 2 name hashes against NameHash.
	VerifyNameHashes bool
}

// NameHash is the hash stored next to version 2 name records:
// FNV-1a over the lower-cased text.
func NameHash(text string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(text)))
	return h.Sum32()
}

// ReadPackage parses the metadata buffer.
func ReadPackage(data []byte, opts Options) (*Package, error) {
	c := cursor.New(data)
	pkg := &Package{}

	if err := pkg.readHeader(c); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if err := pkg.readNames(c, opts); err != nil {
		return nil, fmt.Errorf("read names: %w", err)
	}
	if err := pkg.readImports(c); err != nil {
		return nil, fmt.Errorf("read imports: %w", err)
	}
	if err := pkg.readExports(c); err != nil {
		return nil, fmt.Errorf("read exports: %w", err)
	}
	if err := skipDepends(c, pkg.Header.Depends); err != nil {
		return nil, fmt.Errorf("read depends: %w", err)
	}

	return pkg, nil
}

func (p *Package) readHeader(c *cursor.Cursor) error {
	h := &p.Header
	var err error
	if h.Magic, err = c.U32(); err != nil {
		return err
	}
	if h.Magic != Magic {
		return fmt.Errorf("expected %08x, got %08x: %w", Magic, h.Magic, ErrBadMagic)
	}
	if h.Version, err = c.I32(); err != nil {
		return err
	}
	if h.Version < MinVersion || h.Version > MaxVersion {
		return fmt.Errorf("version %d not in [%d, %d]: %w", h.Version, MinVersion, MaxVersion, ErrUnsupportedVersion)
	}
	for _, s := range []*Section{&h.Names, &h.Imports, &h.Exports, &h.Depends} {
		if s.Count, err = c.U32(); err != nil {
			return err
		}
		if s.Offset, err = c.U64(); err != nil {
			return err
		}
	}
	return nil
}

// seekSection positions c at s and checks that count records of
// recordSize bytes could fit, so a corrupt count cannot drive a huge
// allocation.
func seekSection(c *cursor.Cursor, s Section, recordSize int) error {
	if s.Count == 0 {
		return nil
	}
	if err := c.SeekU64(s.Offset); err != nil {
		return err
	}
	if uint64(s.Count)*uint64(recordSize) > uint64(c.Remaining()) {
		return fmt.Errorf("%d records of %d bytes at %d: %w", s.Count, recordSize, s.Offset, cursor.ErrTruncatedBuffer)
	}
	return nil
}

func (p *Package) readNames(c *cursor.Cursor, opts Options) error {
	s := p.Header.Names
	// Smallest name record: empty string length + hash.
	if err := seekSection(c, s, 8); err != nil {
		return err
	}
	p.Names = make([]NameEntry, 0, s.Count)
	for i := uint32(0); i < s.Count; i++ {
		text, err := c.FString()
		if err != nil {
			return fmt.Errorf("name %d: %w", i, err)
		}
		hash, err := c.U32()
		if err != nil {
			return fmt.Errorf("name %d: %w", i, err)
		}
		if opts.VerifyNameHashes && p.Header.Version >= 2 && hash != NameHash(text) {
			return fmt.Errorf("name %d %q: %w", i, text, ErrNameHashMismatch)
		}
		p.Names = append(p.Names, NameEntry{Index: i, Text: text, Hash: hash})
	}
	return nil
}

func (p *Package) readImports(c *cursor.Cursor) error {
	s := p.Header.Imports
	if err := seekSection(c, s, ImportRecordSize); err != nil {
		return err
	}
	p.Imports = make([]Import, s.Count)
	for i := range p.Imports {
		imp := &p.Imports[i]
		for _, ref := range []*NameRef{&imp.ClassName, &imp.PackageName, &imp.ObjectName} {
			v, err := p.readNameRef(c)
			if err != nil {
				return fmt.Errorf("import %d: %w", i, err)
			}
			*ref = v
		}
		outer, err := c.I32()
		if err != nil {
			return fmt.Errorf("import %d: %w", i, err)
		}
		imp.OuterIndex = outer
	}
	return nil
}

func (p *Package) readExports(c *cursor.Cursor) error {
	s := p.Header.Exports
	if err := seekSection(c, s, ExportRecordSize); err != nil {
		return err
	}
	p.Exports = make([]Export, s.Count)
	for i := range p.Exports {
		if err := p.readExport(c, &p.Exports[i]); err != nil {
			return fmt.Errorf("export %d: %w", i, err)
		}
	}
	return nil
}

func (p *Package) readExport(c *cursor.Cursor, e *Export) error {
	var err error
	if e.ClassIndex, err = c.I32(); err != nil {
		return err
	}
	if e.SerialOffset, err = c.U64(); err != nil {
		return err
	}
	if e.SerialSize, err = c.U64(); err != nil {
		return err
	}
	if e.ObjectName, err = p.readNameRef(c); err != nil {
		return err
	}
	if e.SuperIndex, err = c.I32(); err != nil {
		return err
	}
	if e.OuterIndex, err = c.I32(); err != nil {
		return err
	}
	if e.ObjectFlags, err = c.U32(); err != nil {
		return err
	}
	return c.Skip(exportGUIDSize)
}

// skipDepends walks the dependency table for bounds only.
func skipDepends(c *cursor.Cursor, s Section) error {
	if err := seekSection(c, s, 4); err != nil {
		return err
	}
	for i := uint32(0); i < s.Count; i++ {
		n, err := c.I32()
		if err != nil {
			return fmt.Errorf("depends %d: %w", i, err)
		}
		if n < 0 {
			return fmt.Errorf("depends %d: negative count %d: %w", i, n, cursor.ErrOffsetOutOfRange)
		}
		if err := c.SkipU64(uint64(n) * 4); err != nil {
			return fmt.Errorf("depends %d: %w", i, err)
		}
	}
	return nil
}

func (p *Package) readNameRef(c *cursor.Cursor) (NameRef, error) {
	v, err := c.U32()
	if err != nil {
		return 0, err
	}
	if int64(v) >= int64(len(p.Names)) {
		return 0, fmt.Errorf("name index %d (table size %d): %w", v, len(p.Names), cursor.ErrOffsetOutOfRange)
	}
	return NameRef(v), nil
}

// Name returns the text of ref, or "" when ref is outside the table.
func (p *Package) Name(ref NameRef) string {
	if int64(ref) >= int64(len(p.Names)) {
		return ""
	}
	return p.Names[ref].Text
}

// LookupName resolves ref, failing when it is outside the table.
func (p *Package) LookupName(ref NameRef) (string, error) {
	if int64(ref) >= int64(len(p.Names)) {
		return "", fmt.Errorf("name index %d (table size %d): %w", ref, len(p.Names), cursor.ErrOffsetOutOfRange)
	}
	return p.Names[ref].Text, nil
}
