// uetex - texture extractor for cooked engine packages
//
// Reads a package's metadata (.uasset), export data (.uexp) and optional
// bulk data (.ubulk), decodes the largest resident mip of its texture
// export and writes it as an image. Each input file may be raw or wrapped
// in a zstd container or an lz4 frame (.zst/.lz4 suffix).
//
// Usage:
//
//	uetex decode [flags] T_Rock.uasset [out.png]   # one package → image
//	uetex info [flags] T_Rock.uasset               # show properties and mips
//	uetex dump [flags] T_Rock.uasset               # name/import/export tables as JSON
//	uetex batch [flags] input_dir [output_dir]     # every package in a tree
//	uetex pack [-lz4] file...                      # wrap files for storage
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/EchoTools/uetex/internal/batch"
	"github.com/EchoTools/uetex/internal/config"
	"github.com/EchoTools/uetex/internal/source"
	"github.com/EchoTools/uetex/pkg/extract"
	"github.com/EchoTools/uetex/pkg/pixel"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command, args := os.Args[1], os.Args[2:]

	var err error
	switch command {
	case "decode":
		err = runDecode(args)
	case "info":
		err = runInfo(args)
	case "dump":
		err = runDump(args)
	case "batch":
		err = runBatch(args)
	case "pack":
		err = runPack(args)
	case "help", "-h", "-help", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("uetex - texture extractor for cooked engine packages")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  uetex decode [flags] <package.uasset> [output]  # Package → image")
	fmt.Println("  uetex info [flags] <package.uasset>             # Show texture info")
	fmt.Println("  uetex dump [flags] <package.uasset>             # Tables as JSON")
	fmt.Println("  uetex batch [flags] <dir> [out]                 # Extract a directory")
	fmt.Println("  uetex pack [-lz4] <file>...                     # Wrap files (zstd/lz4)")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -config path     JSON config file")
	fmt.Println("  -format name     png, webp, tga, bmp or tiff (default png)")
	fmt.Println("  -mip n           decode mip n instead of the largest resident one")
	fmt.Println("  -max-size n      downscale so neither side exceeds n")
	fmt.Println("  -classes list    comma-separated texture class names")
	fmt.Println("  -verify-hashes   check name table hashes")
	fmt.Println("  -workers n       batch worker count (default: CPU count)")
	fmt.Println("  -index           batch: write index.json to the output directory")
	fmt.Println("  -verbose         debug logging on stderr")
	fmt.Println()
	fmt.Println("Decodable formats:")
	fmt.Println("  DXT1/BC1, DXT3/BC2, DXT5/BC3, BC4, BC5")
	fmt.Println("  B8G8R8A8, R8G8B8A8, G8, A8, FloatRGBA, FloatR11G11B10")
}

// cliFlags are the flags shared by decode, info, dump and batch.
type cliFlags struct {
	configPath   string
	classes      string
	verifyHashes bool
	writeIndex   bool
	config.Flags
}

func newFlagSet(name string) (*flag.FlagSet, *cliFlags) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	f := &cliFlags{}
	fs.StringVar(&f.configPath, "config", "", "JSON config file")
	fs.StringVar(&f.Format, "format", "", "Output image format")
	fs.IntVar(&f.Mip, "mip", -1, "Mip index to decode (default: largest resident)")
	fs.IntVar(&f.MaxSize, "max-size", 0, "Maximum output side length (0 = no limit)")
	fs.StringVar(&f.OutputDir, "output", "", "Output directory")
	fs.StringVar(&f.classes, "classes", "", "Comma-separated texture class names")
	fs.BoolVar(&f.verifyHashes, "verify-hashes", false, "Verify name table hashes")
	fs.IntVar(&f.Workers, "workers", 0, "Batch worker count")
	fs.BoolVar(&f.writeIndex, "index", false, "Write index.json after a batch run")
	fs.BoolVar(&f.Verbose, "verbose", false, "Debug logging")
	return fs, f
}

// resolve merges the config file, if any, with the flags.
func (f *cliFlags) resolve() (config.Config, error) {
	var cfg config.Config
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return cfg, err
		}
	}
	if err := cfg.Resolve(f.Flags); err != nil {
		return cfg, err
	}
	if f.classes != "" {
		cfg.TextureClasses = splitList(f.classes)
	}
	if f.verifyHashes {
		cfg.VerifyHashes = true
	}
	if f.writeIndex {
		cfg.WriteIndex = true
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func extractOptions(cfg config.Config) []extract.Option {
	opts := []extract.Option{
		extract.WithMip(cfg.Selector()),
		extract.WithOutputFormat(cfg.OutputFormat()),
		extract.WithMaxDimension(cfg.MaxSize),
	}
	if len(cfg.TextureClasses) > 0 {
		opts = append(opts, extract.WithTextureClasses(cfg.TextureClasses...))
	}
	if cfg.VerifyHashes {
		opts = append(opts, extract.WithNameHashCheck())
	}
	if cfg.Verbose {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		opts = append(opts, extract.WithLogger(logger))
	}
	return opts
}

func runDecode(args []string) error {
	fs, f := newFlagSet("decode")
	fs.Parse(args)
	if fs.NArg() < 1 || fs.NArg() > 2 {
		return fmt.Errorf("usage: uetex decode [flags] <package.uasset> [output]")
	}
	cfg, err := f.resolve()
	if err != nil {
		return err
	}

	input := fs.Arg(0)
	pkg, err := source.Load(input)
	if err != nil {
		return err
	}

	data, err := extract.Extract(pkg.Meta, pkg.Exp, pkg.Bulk, extractOptions(cfg)...)
	if err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}

	output := fs.Arg(1)
	if output == "" {
		output = filepath.Join(cfg.OutputDir, pkg.Name+cfg.OutputFormat().Extension())
	}
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	fmt.Printf("Decoded %s → %s (%d bytes)\n", input, output, len(data))
	return nil
}

func runInfo(args []string) error {
	fs, f := newFlagSet("info")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: uetex info [flags] <package.uasset>")
	}
	cfg, err := f.resolve()
	if err != nil {
		return err
	}

	input := fs.Arg(0)
	paths, err := source.Siblings(input)
	if err != nil {
		return err
	}
	pkg, err := source.Load(input)
	if err != nil {
		return err
	}

	info, err := extract.Inspect(pkg.Meta, pkg.Exp, pkg.Bulk, extractOptions(cfg)...)
	if err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}

	props := info.Properties
	fmt.Printf("File:       %s\n", paths.Meta)
	fmt.Printf("Export:     %s\n", paths.Export)
	if paths.Bulk != "" {
		fmt.Printf("Bulk:       %s\n", paths.Bulk)
	} else {
		fmt.Printf("Bulk:       (none)\n")
	}
	fmt.Printf("Texture:    %s (%s)\n", info.Export, info.Class)
	fmt.Printf("Dimensions: %dx%d\n", props.Width, props.Height)
	fmt.Printf("Format:     %s", props.FormatName)
	if !info.Supported {
		fmt.Printf(" (not decodable)")
	}
	fmt.Println()
	if props.Format.Compressed() {
		fmt.Printf("Expected:   %d bytes for mip 0\n", pixel.ExpectedSize(props.Format, int(props.Width), int(props.Height)))
	}
	if len(info.Skipped) > 0 {
		fmt.Printf("Skipped:    %s\n", strings.Join(info.Skipped, ", "))
	}

	fmt.Printf("Mips:       %d\n", len(info.Mips))
	for i, m := range info.Mips {
		marker := " "
		if i == info.Selected {
			marker = "*"
		}
		fmt.Printf("  %s%2d  %5dx%-5d  %-8s  %10d bytes  %s\n",
			marker, i, m.Width, m.Height, m.Storage.Kind, m.Storage.Size, m.Flags)
	}
	if info.Selected < 0 {
		fmt.Println("No resident mip for the current selection")
	}
	if len(info.ChainMismatches) > 0 {
		fmt.Printf("Warning: mips %v do not halve from mip 0\n", info.ChainMismatches)
	}
	return nil
}

func runDump(args []string) error {
	fs, f := newFlagSet("dump")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: uetex dump [flags] <package.uasset>")
	}
	cfg, err := f.resolve()
	if err != nil {
		return err
	}

	input := fs.Arg(0)
	meta, err := source.ReadFile(input)
	if err != nil {
		return err
	}
	d, err := extract.Dump(meta, extractOptions(cfg)...)
	if err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runBatch(args []string) error {
	fs, f := newFlagSet("batch")
	fs.Parse(args)
	if fs.NArg() < 1 || fs.NArg() > 2 {
		return fmt.Errorf("usage: uetex batch [flags] <input_dir> [output_dir]")
	}
	if fs.NArg() == 2 {
		f.OutputDir = fs.Arg(1)
	}
	cfg, err := f.resolve()
	if err != nil {
		return err
	}
	inputDir := fs.Arg(0)
	outputDir := cfg.OutputDir
	if outputDir == "" {
		outputDir = "."
	}

	files, err := source.Scan(inputDir)
	if errors.Is(err, source.ErrNoPackages) {
		fmt.Printf("No packages found in %s\n", inputDir)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Extracting %d packages with %d workers...\n", len(files), cfg.Workers)
	start := time.Now()

	results := batch.Run(batch.Config{
		InputDir:  inputDir,
		OutputDir: outputDir,
		Format:    cfg.OutputFormat(),
		Options:   extractOptions(cfg),
		Workers:   cfg.Workers,
		Progress:  os.Stdout,
	}, files)

	for _, r := range results {
		if r.Status == batch.Failed {
			fmt.Fprintf(os.Stderr, "  FAIL %s: %s\n", r.Input, r.Error)
		} else if r.Status == batch.Skipped && cfg.Verbose {
			fmt.Printf("  skip %s: %s\n", r.Input, r.Error)
		}
	}

	s := batch.Summarize(results)
	fmt.Printf("\nExtracted: %d, Skipped: %d, Failed: %d (%.1fs)\n",
		s.Extracted, s.Skipped, s.Failed, time.Since(start).Seconds())

	if cfg.WriteIndex {
		path := filepath.Join(outputDir, "index.json")
		if err := batch.WriteIndex(path, results); err != nil {
			return fmt.Errorf("write index: %w", err)
		}
		fmt.Printf("Index written to %s\n", path)
	}
	if s.Failed > 0 {
		return fmt.Errorf("%d packages failed", s.Failed)
	}
	return nil
}

func runPack(args []string) error {
	fs := flag.NewFlagSet("pack", flag.ExitOnError)
	useLZ4 := fs.Bool("lz4", false, "Use an lz4 frame instead of a zstd container")
	keep := fs.Bool("keep", true, "Keep the original files")
	fs.Parse(args)
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: uetex pack [-lz4] <file>...")
	}

	enc, ext := source.Zstd, ".zst"
	if *useLZ4 {
		enc, ext = source.LZ4, ".lz4"
	}

	for _, path := range fs.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if source.Sniff(data) != source.Raw {
			fmt.Printf("  skip %s: already %s\n", path, source.Sniff(data))
			continue
		}
		wrapped, err := source.Wrap(data, enc)
		if err != nil {
			return fmt.Errorf("wrap %s: %w", path, err)
		}
		if err := os.WriteFile(path+ext, wrapped, 0644); err != nil {
			return fmt.Errorf("write %s: %w", path+ext, err)
		}
		if !*keep {
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("remove %s: %w", path, err)
			}
		}
		fmt.Printf("Packed %s → %s (%d → %d bytes)\n", path, path+ext, len(data), len(wrapped))
	}
	return nil
}
