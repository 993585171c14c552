package uasset

import (
	"fmt"

	"github.com/EchoTools/uetex/pkg/cursor"
)

// Dump is the table set of a package with every name reference resolved,
// ready for JSON output.
type Dump struct {
	Version int32        `json:"version"`
	Names   []string     `json:"names"`
	Imports []ImportDump `json:"imports"`
	Exports []ExportDump `json:"exports"`
}

// ImportDump is one resolved import.
type ImportDump struct {
	ClassPackage string `json:"class_package"`
	ClassName    string `json:"class_name"`
	ObjectName   string `json:"object_name"`
	Outer        string `json:"outer,omitempty"`
}

// ExportDump is one resolved export.
type ExportDump struct {
	ObjectName   string `json:"object_name"`
	Class        string `json:"class"`
	Super        string `json:"super,omitempty"`
	Outer        string `json:"outer,omitempty"`
	SerialOffset uint64 `json:"serial_offset"`
	SerialSize   uint64 `json:"serial_size"`
	ObjectFlags  uint32 `json:"object_flags"`
}

// ObjectName returns the object name of a package index: negative values
// name imports, positive values exports, and zero names nothing.
func (p *Package) ObjectName(index int32) (string, error) {
	switch {
	case index < 0:
		i := -int64(index) - 1
		if i >= int64(len(p.Imports)) {
			return "", fmt.Errorf("import %d (table size %d): %w", i, len(p.Imports), cursor.ErrOffsetOutOfRange)
		}
		return p.LookupName(p.Imports[i].ObjectName)
	case index > 0:
		i := int64(index) - 1
		if i >= int64(len(p.Exports)) {
			return "", fmt.Errorf("export %d (table size %d): %w", i, len(p.Exports), cursor.ErrOffsetOutOfRange)
		}
		return p.LookupName(p.Exports[i].ObjectName)
	default:
		return "", nil
	}
}

// Dump resolves the name, import and export tables.
func (p *Package) Dump() (*Dump, error) {
	d := &Dump{
		Version: p.Header.Version,
		Names:   make([]string, len(p.Names)),
		Imports: make([]ImportDump, len(p.Imports)),
		Exports: make([]ExportDump, len(p.Exports)),
	}
	for i, n := range p.Names {
		d.Names[i] = n.Text
	}

	for i, imp := range p.Imports {
		outer, err := p.ObjectName(imp.OuterIndex)
		if err != nil {
			return nil, fmt.Errorf("import %d outer: %w", i, err)
		}
		d.Imports[i] = ImportDump{
			ClassPackage: p.Name(imp.PackageName),
			ClassName:    p.Name(imp.ClassName),
			ObjectName:   p.Name(imp.ObjectName),
			Outer:        outer,
		}
	}

	for i := range p.Exports {
		e := &p.Exports[i]
		class, err := p.ClassName(e)
		if err != nil {
			return nil, fmt.Errorf("export %d: %w", i, err)
		}
		super, err := p.ObjectName(e.SuperIndex)
		if err != nil {
			return nil, fmt.Errorf("export %d super: %w", i, err)
		}
		outer, err := p.ObjectName(e.OuterIndex)
		if err != nil {
			return nil, fmt.Errorf("export %d outer: %w", i, err)
		}
		d.Exports[i] = ExportDump{
			ObjectName:   p.Name(e.ObjectName),
			Class:        class,
			Super:        super,
			Outer:        outer,
			SerialOffset: e.SerialOffset,
			SerialSize:   e.SerialSize,
			ObjectFlags:  e.ObjectFlags,
		}
	}
	return d, nil
}
