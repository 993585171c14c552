// Package config loads uetex settings from a JSON file and merges
// command-line flags over them.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"github.com/EchoTools/uetex/pkg/imageenc"
	"github.com/EchoTools/uetex/pkg/texture"
)

// Config holds extraction settings shared by every uetex subcommand.
type Config struct {
	// Output
	Format     string `json:"format"`
	MaxSize    int    `json:"max_size"`
	OutputDir  string `json:"output_dir"`
	WriteIndex bool   `json:"write_index"`

	// Selection
	Mip            *int     `json:"mip,omitempty"`
	TextureClasses []string `json:"texture_classes,omitempty"`
	VerifyHashes   bool     `json:"verify_hashes"`

	// Batch
	Workers int  `json:"workers"`
	Verbose bool `json:"verbose"`
}

// Load reads a JSON config file. Fields not set in the file keep their
// zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
// Negative Mip and empty strings mean "not given".
type Flags struct {
	Format    string
	MaxSize   int
	OutputDir string
	Mip       int
	Workers   int
	Verbose   bool
}

// Resolve applies flags over the file values and fills defaults.
func (c *Config) Resolve(flags Flags) error {
	if flags.Format != "" {
		c.Format = flags.Format
	}
	if flags.MaxSize > 0 {
		c.MaxSize = flags.MaxSize
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Mip >= 0 {
		mip := flags.Mip
		c.Mip = &mip
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.Verbose {
		c.Verbose = true
	}

	if c.Format == "" {
		c.Format = "png"
	}
	if _, err := imageenc.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Mip != nil && *c.Mip < 0 {
		return fmt.Errorf("config: negative mip %d", *c.Mip)
	}
	if c.MaxSize < 0 {
		c.MaxSize = 0
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	return nil
}

// OutputFormat returns the parsed output format. Call after Resolve.
func (c *Config) OutputFormat() imageenc.Format {
	f, _ := imageenc.ParseFormat(c.Format)
	return f
}

// Selector returns the configured mip selector.
func (c *Config) Selector() texture.Selector {
	if c.Mip == nil {
		return texture.Largest
	}
	return texture.Index(*c.Mip)
}
