// Package batch extracts many packages concurrently and records one
// result per input.
package batch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/EchoTools/uetex/internal/source"
	"github.com/EchoTools/uetex/pkg/extract"
	"github.com/EchoTools/uetex/pkg/imageenc"
)

// Config holds the shared settings of a batch run.
type Config struct {
	InputDir  string
	OutputDir string
	Format    imageenc.Format
	Options   []extract.Option
	Workers   int
	// Progress receives periodic progress lines; nil disables them.
	Progress io.Writer
	Interval time.Duration
}

// Status is the outcome of one package.
type Status int

const (
	Extracted Status = iota
	Skipped          // no texture, or a format that cannot be decoded
	Failed
)

func (s Status) String() string {
	switch s {
	case Extracted:
		return "extracted"
	case Skipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Result holds the outcome of processing one package.
type Result struct {
	Input    string           `json:"input"`
	Output   string           `json:"output,omitempty"`
	Status   Status           `json:"-"`
	State    string           `json:"status"`
	Category extract.Category `json:"-"`
	Error    string           `json:"error,omitempty"`
	Bytes    int              `json:"bytes,omitempty"`
}

// Summary counts results by status.
type Summary struct {
	Extracted, Skipped, Failed int
}

// Summarize counts results.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch r.Status {
		case Extracted:
			s.Extracted++
		case Skipped:
			s.Skipped++
		default:
			s.Failed++
		}
	}
	return s
}

// Run extracts every file using a worker pool. Results are in the order
// of files.
func Run(cfg Config, files []string) []Result {
	total := len(files)
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()
	workers := max(1, cfg.Workers)

	// Progress reporter
	done := make(chan struct{})
	if cfg.Progress != nil {
		interval := cfg.Interval
		if interval <= 0 {
			interval = 2 * time.Second
		}
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					p := processed.Load()
					if p > 0 {
						rate := float64(p) / time.Since(start).Seconds()
						fmt.Fprintf(cfg.Progress, "  [%d/%d] %.1f packages/sec\n", p, total, rate)
					}
				}
			}
		}()
	}

	// Worker pool
	jobs := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = processFile(cfg, files[idx])
				processed.Add(1)
			}
		}()
	}

	for i := range files {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	close(done)

	return results
}

// OutputPath maps an input metadata file to its image path, mirroring
// the input directory layout.
func OutputPath(cfg Config, input string) string {
	rel, err := filepath.Rel(cfg.InputDir, input)
	if err != nil {
		rel = filepath.Base(input)
	}
	dir, name := filepath.Split(rel)
	return filepath.Join(cfg.OutputDir, dir, source.PackageName(name)+cfg.Format.Extension())
}

func processFile(cfg Config, input string) Result {
	res := Result{Input: input}
	fail := func(err error) Result {
		res.Category = extract.Classify(err)
		res.Status = Failed
		if extract.Benign(err) {
			res.Status = Skipped
		}
		res.State = res.Status.String()
		res.Error = err.Error()
		return res
	}

	pkg, err := source.Load(input)
	if err != nil {
		return fail(err)
	}

	opts := append([]extract.Option{extract.WithOutputFormat(cfg.Format)}, cfg.Options...)
	data, err := extract.Extract(pkg.Meta, pkg.Exp, pkg.Bulk, opts...)
	if err != nil {
		return fail(err)
	}

	out := OutputPath(cfg, input)
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return fail(err)
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return fail(err)
	}

	res.Output = out
	res.Bytes = len(data)
	res.Status = Extracted
	res.State = res.Status.String()
	return res
}
