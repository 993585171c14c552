// Package source loads the files of a split package from disk,
// unwrapping zstd containers and LZ4 frames.
package source

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pierrec/lz4/v4"

	"github.com/EchoTools/uetex/pkg/archive"
)

// Encoding is the outer wrapping of a file.
type Encoding int

const (
	Raw Encoding = iota
	Zstd
	LZ4
)

func (e Encoding) String() string {
	switch e {
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return "raw"
	}
}

// lz4FrameMagic starts every LZ4 frame.
const lz4FrameMagic uint32 = 0x184D2204

// Package file extensions.
const (
	ExtMeta   = ".uasset"
	ExtExport = ".uexp"
	ExtBulk   = ".ubulk"
)

// wrapperExts are tried, in order, after each package extension.
var wrapperExts = []string{"", ".zst", ".lz4"}

// Sniff reports the encoding of data from its leading bytes.
func Sniff(data []byte) Encoding {
	switch {
	case archive.IsContainer(data):
		return Zstd
	case len(data) >= 4 && binary.LittleEndian.Uint32(data) == lz4FrameMagic:
		return LZ4
	default:
		return Raw
	}
}

// Unwrap returns the decoded contents of data.
func Unwrap(data []byte) ([]byte, error) {
	switch Sniff(data) {
	case Zstd:
		return archive.Unwrap(data)
	case LZ4:
		out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		return out, nil
	default:
		return data, nil
	}
}

// Wrap encodes data with e.
func Wrap(data []byte, e Encoding) ([]byte, error) {
	switch e {
	case Zstd:
		return archive.Wrap(data)
	case LZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return data, nil
	}
}

// ReadFile reads and unwraps one file.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	out, err := Unwrap(data)
	if err != nil {
		return nil, fmt.Errorf("unwrap %s: %w", path, err)
	}
	return out, nil
}

// Package holds the three buffers of a split package.
type Package struct {
	Name string // base name without extension
	Meta []byte
	Exp  []byte
	Bulk []byte // nil when no bulk file exists
}

// Paths are the files found for one package.
type Paths struct {
	Meta   string
	Export string
	Bulk   string // empty when absent
}

// Siblings finds the export-data and bulk-data files next to a metadata
// file. Each may carry a .zst or .lz4 suffix.
func Siblings(metaPath string) (Paths, error) {
	base := PackageName(metaPath)
	p := Paths{Meta: metaPath}
	p.Export = find(base + ExtExport)
	if p.Export == "" {
		return p, fmt.Errorf("no %s next to %s", ExtExport, metaPath)
	}
	p.Bulk = find(base + ExtBulk)
	return p, nil
}

func find(path string) string {
	for _, ext := range wrapperExts {
		if _, err := os.Stat(path + ext); err == nil {
			return path + ext
		}
	}
	return ""
}

// PackageName strips the metadata extension and any wrapper suffix from
// path.
func PackageName(path string) string {
	for _, ext := range []string{".zst", ".lz4", ExtMeta} {
		if strings.HasSuffix(strings.ToLower(path), ext) {
			path = path[:len(path)-len(ext)]
		}
	}
	return path
}

// Load reads a split package given its metadata file.
func Load(metaPath string) (*Package, error) {
	paths, err := Siblings(metaPath)
	if err != nil {
		return nil, err
	}

	pkg := &Package{Name: filepath.Base(PackageName(metaPath))}
	if pkg.Meta, err = ReadFile(paths.Meta); err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	if pkg.Exp, err = ReadFile(paths.Export); err != nil {
		return nil, fmt.Errorf("read export data: %w", err)
	}
	if paths.Bulk != "" {
		if pkg.Bulk, err = ReadFile(paths.Bulk); err != nil {
			return nil, fmt.Errorf("read bulk data: %w", err)
		}
	}
	return pkg, nil
}

// IsMeta reports whether path names a (possibly wrapped) metadata file.
func IsMeta(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range wrapperExts {
		if strings.HasSuffix(lower, ExtMeta+ext) {
			return true
		}
	}
	return false
}

// Scan returns the metadata files under dir, sorted. It fails with
// ErrNoPackages when there are none.
func Scan(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsMeta(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("scan %s: %w", dir, ErrNoPackages)
	}
	sort.Strings(files)
	return files, nil
}

// ErrNoPackages is returned when a scan finds nothing to extract.
var ErrNoPackages = errors.New("no packages found")
