package uasset

import (
	"fmt"

	"github.com/EchoTools/uetex/pkg/cursor"
)

// TextureClasses are the class names recognized as 2D textures.
var TextureClasses = []string{
	"Texture2D",
	"LightMapTexture2D",
	"ShadowMapTexture2D",
	"VirtualTexture2D",
}

// ClassName resolves the class of e through the import or export table.
// A zero class index is the UClass itself.
func (p *Package) ClassName(e *Export) (string, error) {
	if e.ClassIndex == 0 {
		return "Class", nil
	}
	name, err := p.ObjectName(e.ClassIndex)
	if err != nil {
		return "", fmt.Errorf("class %w", err)
	}
	return name, nil
}

// FindTexture returns the index and entry of the first export whose class
// is one of classes, or TextureClasses when none are given.
func (p *Package) FindTexture(classes ...string) (int, *Export, error) {
	if len(classes) == 0 {
		classes = TextureClasses
	}
	want := make(map[string]struct{}, len(classes))
	for _, name := range classes {
		want[name] = struct{}{}
	}

	for i := range p.Exports {
		e := &p.Exports[i]
		class, err := p.ClassName(e)
		if err != nil {
			return -1, nil, fmt.Errorf("export %d: %w", i, err)
		}
		if _, ok := want[class]; ok {
			return i, e, nil
		}
	}
	return -1, nil, fmt.Errorf("%d exports scanned: %w", len(p.Exports), ErrTextureNotFound)
}

// ExportData returns the view of exportData covered by e.
func (p *Package) ExportData(e *Export, exportData []byte) ([]byte, error) {
	sub, err := cursor.New(exportData).Sub(e.SerialOffset, e.SerialSize)
	if err != nil {
		return nil, fmt.Errorf("export %q: %w", p.Name(e.ObjectName), err)
	}
	return sub.Bytes(sub.Len())
}
