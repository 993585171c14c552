// Package extract runs the whole pipeline: it takes the metadata,
// export-data and optional bulk-data buffers of a split package and
// returns the texture as an encoded image.
//
// Every call builds its own tables and shares nothing, so concurrent
// calls are safe as long as callers do not modify the buffers.
package extract

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/EchoTools/uetex/pkg/imageenc"
	"github.com/EchoTools/uetex/pkg/pixel"
	"github.com/EchoTools/uetex/pkg/texture"
	"github.com/EchoTools/uetex/pkg/uasset"
)

type options struct {
	mip          texture.Selector
	format       imageenc.Format
	maxDim       int
	classes      []string
	verifyHashes bool
	logger       *slog.Logger
}

func defaults() options {
	return options{
		mip:    texture.Largest,
		format: imageenc.FormatPNG,
		logger: slog.New(slog.DiscardHandler),
	}
}

// Option configures a call.
type Option func(*options)

// WithMip selects the mip level. The default is texture.Largest.
func WithMip(sel texture.Selector) Option {
	return func(o *options) {
		o.mip = sel
	}
}

// WithOutputFormat selects the image container. The default is PNG.
func WithOutputFormat(f imageenc.Format) Option {
	return func(o *options) {
		o.format = f
	}
}

// WithMaxDimension scales the output down to fit n×n.
func WithMaxDimension(n int) Option {
	return func(o *options) {
		o.maxDim = n
	}
}

// WithTextureClasses replaces the class names recognized as textures.
func WithTextureClasses(classes ...string) Option {
	return func(o *options) {
		o.classes = classes
	}
}

// WithNameHashCheck validates version 2 name hashes.
func WithNameHashCheck() Option {
	return func(o *options) {
		o.verifyHashes = true
	}
}

// WithLogger sets the logger for debug traces.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Info describes a texture without decoding it.
type Info struct {
	Export     string
	Class      string
	Properties texture.Properties
	Mips       []texture.Mip
	Skipped    []string
	// Selected is the mip Extract would decode with the same buffers and
	// options, or -1 when none resolves.
	Selected int
	// Supported reports whether the pixel format can be decoded.
	Supported bool
	// ChainMismatches lists mips whose dimensions break the halving chain
	// that starts at mip 0.
	ChainMismatches []int
}

// session holds the tables of one call.
type session struct {
	opts options
	pkg  *uasset.Package
	tex  *texture.Texture
}

func open(meta, exp []byte, opts []Option) (*session, error) {
	s := &session{opts: defaults()}
	for _, opt := range opts {
		opt(&s.opts)
	}

	pkg, err := uasset.ReadPackage(meta, uasset.Options{VerifyNameHashes: s.opts.verifyHashes})
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	s.pkg = pkg
	s.opts.logger.Debug("read metadata",
		"version", pkg.Header.Version,
		"names", len(pkg.Names),
		"imports", len(pkg.Imports),
		"exports", len(pkg.Exports))

	tex, err := texture.Read(pkg, exp, s.opts.classes...)
	if err != nil {
		return nil, fmt.Errorf("read texture: %w", err)
	}
	s.tex = tex
	s.opts.logger.Debug("read texture",
		"export", tex.Name,
		"class", tex.Class,
		"width", tex.Properties.Width,
		"height", tex.Properties.Height,
		"format", tex.Properties.FormatName,
		"mips", len(tex.Mips),
		"skipped", len(tex.Skipped))
	if bad := tex.ChainMismatches(); len(bad) > 0 {
		s.opts.logger.Debug("mip chain does not halve", "mips", bad)
	}
	return s, nil
}

func (s *session) decode(exp, bulk []byte) (*image.NRGBA, error) {
	i, err := s.tex.Select(exp, bulk, s.opts.mip)
	if err != nil {
		return nil, fmt.Errorf("select mip %s: %w", s.opts.mip, err)
	}
	m := &s.tex.Mips[i]
	s.opts.logger.Debug("selected mip",
		"index", i,
		"width", m.Width,
		"height", m.Height,
		"storage", m.Storage.Kind.String(),
		"flags", m.Flags.String())

	data, err := s.tex.Payload(i, exp, bulk)
	if err != nil {
		return nil, fmt.Errorf("read mip: %w", err)
	}
	img, err := pixel.Decode(data, int(m.Width), int(m.Height), s.tex.Properties.Format)
	if err != nil {
		return nil, fmt.Errorf("decode mip %d: %w", i, err)
	}
	return img, nil
}

// Extract returns the texture encoded as an image. bulk may be nil when
// no bulk-data buffer exists, which limits selection to inline mips.
func Extract(meta, exp, bulk []byte, opts ...Option) ([]byte, error) {
	s, err := open(meta, exp, opts)
	if err != nil {
		return nil, err
	}
	img, err := s.decode(exp, bulk)
	if err != nil {
		return nil, err
	}
	out, err := imageenc.EncodeBytes(img,
		imageenc.WithFormat(s.opts.format),
		imageenc.WithMaxDimension(s.opts.maxDim))
	if err != nil {
		return nil, err
	}
	s.opts.logger.Debug("encoded", "format", s.opts.format.String(), "bytes", len(out))
	return out, nil
}

// Decode is Extract without the encoding step.
func Decode(meta, exp, bulk []byte, opts ...Option) (*image.NRGBA, error) {
	s, err := open(meta, exp, opts)
	if err != nil {
		return nil, err
	}
	img, err := s.decode(exp, bulk)
	if err != nil {
		return nil, err
	}
	return imageenc.Fit(img, s.opts.maxDim), nil
}

// Inspect reads the texture's properties and mip table.
func Inspect(meta, exp, bulk []byte, opts ...Option) (*Info, error) {
	s, err := open(meta, exp, opts)
	if err != nil {
		return nil, err
	}
	info := &Info{
		Export:     s.tex.Name,
		Class:      s.tex.Class,
		Properties: s.tex.Properties,
		Mips:       s.tex.Mips,
		Skipped:    s.tex.Skipped,
		Selected:   -1,
		Supported:  s.tex.Properties.Format.Supported(),

		ChainMismatches: s.tex.ChainMismatches(),
	}
	if i, err := s.tex.Select(exp, bulk, s.opts.mip); err == nil {
		info.Selected = i
	}
	return info, nil
}

// Dump reads only the metadata buffer and returns its resolved name,
// import and export tables.
func Dump(meta []byte, opts ...Option) (*uasset.Dump, error) {
	o := defaults()
	for _, opt := range opts {
		opt(&o)
	}
	pkg, err := uasset.ReadPackage(meta, uasset.Options{VerifyNameHashes: o.verifyHashes})
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	d, err := pkg.Dump()
	if err != nil {
		return nil, fmt.Errorf("dump tables: %w", err)
	}
	o.logger.Debug("dumped tables", "names", len(d.Names), "imports", len(d.Imports), "exports", len(d.Exports))
	return d, nil
}
