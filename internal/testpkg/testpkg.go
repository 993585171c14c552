// Package testpkg builds synthetic split packages (metadata, export data,
// bulk data) for tests. It writes the formats directly and imports none of
// the readers, so their own tests can use it.
package testpkg

import (
	"encoding/binary"
	"hash/fnv"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

const (
	magic      uint32 = 0x9E2A83C1
	headerSize        = 56
)

// Files is one split package.
type Files struct {
	Meta   []byte // .uasset
	Export []byte // .uexp
	Bulk   []byte // .ubulk; nil when nothing was stored externally
}

type importRecord struct {
	class, pkg, object uint32
	outer              int32
}

type exportRecord struct {
	class  int32
	name   uint32
	super  int32
	outer  int32
	flags  uint32
	offset uint64
	size   uint64
}

// Builder accumulates the tables and buffers of one package. Names are
// interned on first use, in order.
type Builder struct {
	Version int32
	// BadHashes writes zero for every name hash.
	BadHashes bool

	names   []string
	index   map[string]uint32
	imports []importRecord
	exports []exportRecord
	depends [][]int32
	uexp    []byte
	bulk    []byte
}

// New returns a version 2 builder.
func New() *Builder {
	return &Builder{Version: 2, index: make(map[string]uint32)}
}

// Name interns s and returns its name-table index.
func (b *Builder) Name(s string) uint32 {
	if i, ok := b.index[s]; ok {
		return i
	}
	i := uint32(len(b.names))
	b.names = append(b.names, s)
	b.index[s] = i
	return i
}

// Import adds an import and returns the class index that refers to it.
func (b *Builder) Import(class, pkg, object string) int32 {
	b.imports = append(b.imports, importRecord{
		class:  b.Name(class),
		pkg:    b.Name(pkg),
		object: b.Name(object),
	})
	return -int32(len(b.imports))
}

// ClassImport adds the usual "/Script/Engine" class import for class.
func (b *Builder) ClassImport(class string) int32 {
	return b.Import("Class", "/Script/Engine", class)
}

// Export appends body to the export data and adds an export covering
// it. It returns the 1-based index other exports use to refer to it.
func (b *Builder) Export(class int32, name string, body []byte) int32 {
	b.exports = append(b.exports, exportRecord{
		class:  class,
		name:   b.Name(name),
		offset: uint64(len(b.uexp)),
		size:   uint64(len(body)),
	})
	b.uexp = append(b.uexp, body...)
	return int32(len(b.exports))
}

// Outer sets the outer of an import (negative index) or export
// (positive index).
func (b *Builder) Outer(index, outer int32) {
	switch {
	case index < 0:
		b.imports[-index-1].outer = outer
	case index > 0:
		b.exports[index-1].outer = outer
	}
}

// Pad appends n filler bytes to the export data, between exports.
func (b *Builder) Pad(n int) {
	b.uexp = append(b.uexp, make([]byte, n)...)
}

// Depends adds one dependency record.
func (b *Builder) Depends(indices ...int32) {
	b.depends = append(b.depends, indices)
}

// AppendBulk stores data in the bulk buffer and returns its offset.
func (b *Builder) AppendBulk(data []byte) uint64 {
	off := uint64(len(b.bulk))
	if b.bulk == nil {
		b.bulk = []byte{}
	}
	b.bulk = append(b.bulk, data...)
	return off
}

// Build lays out the metadata buffer: header, names, imports, exports,
// depends, in that order.
func (b *Builder) Build() Files {
	var names []byte
	for _, s := range b.names {
		names = AppendFString(names, s)
		var hash uint32
		if !b.BadHashes {
			hash = NameHash(s)
		}
		names = binary.LittleEndian.AppendUint32(names, hash)
	}

	var imports []byte
	for _, imp := range b.imports {
		imports = binary.LittleEndian.AppendUint32(imports, imp.class)
		imports = binary.LittleEndian.AppendUint32(imports, imp.pkg)
		imports = binary.LittleEndian.AppendUint32(imports, imp.object)
		imports = binary.LittleEndian.AppendUint32(imports, uint32(imp.outer))
	}

	var exports []byte
	for _, e := range b.exports {
		exports = binary.LittleEndian.AppendUint32(exports, uint32(e.class))
		exports = binary.LittleEndian.AppendUint64(exports, e.offset)
		exports = binary.LittleEndian.AppendUint64(exports, e.size)
		exports = binary.LittleEndian.AppendUint32(exports, e.name)
		exports = binary.LittleEndian.AppendUint32(exports, uint32(e.super))
		exports = binary.LittleEndian.AppendUint32(exports, uint32(e.outer))
		exports = binary.LittleEndian.AppendUint32(exports, e.flags)
		exports = append(exports, make([]byte, 16)...)
	}

	var depends []byte
	for _, d := range b.depends {
		depends = binary.LittleEndian.AppendUint32(depends, uint32(len(d)))
		for _, v := range d {
			depends = binary.LittleEndian.AppendUint32(depends, uint32(v))
		}
	}

	sections := []struct {
		count uint32
		data  []byte
	}{
		{uint32(len(b.names)), names},
		{uint32(len(b.imports)), imports},
		{uint32(len(b.exports)), exports},
		{uint32(len(b.depends)), depends},
	}

	meta := make([]byte, 0, headerSize+len(names)+len(imports)+len(exports)+len(depends))
	meta = binary.LittleEndian.AppendUint32(meta, magic)
	meta = binary.LittleEndian.AppendUint32(meta, uint32(b.Version))
	off := uint64(headerSize)
	for _, s := range sections {
		meta = binary.LittleEndian.AppendUint32(meta, s.count)
		meta = binary.LittleEndian.AppendUint64(meta, off)
		off += uint64(len(s.data))
	}
	for _, s := range sections {
		meta = append(meta, s.data...)
	}

	return Files{Meta: meta, Export: b.uexp, Bulk: b.bulk}
}

// NameHash matches the reader's version 2 name hash. Keep it in step with
// uasset.NameHash.
func NameHash(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(s)))
	return h.Sum32()
}

// AppendFString appends s as a length-prefixed string: single-byte when
// s is ASCII, UTF-16LE otherwise.
func AppendFString(dst []byte, s string) []byte {
	if s == "" {
		return binary.LittleEndian.AppendUint32(dst, 0)
	}
	if isASCII(s) {
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(s)+1))
		dst = append(dst, s...)
		return append(dst, 0)
	}
	wide, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(s))
	if err != nil {
		panic(err)
	}
	n := int32(len(wide)/2 + 1)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(-n))
	dst = append(dst, wide...)
	return append(dst, 0, 0)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
