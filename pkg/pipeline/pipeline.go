// Package pipeline provides the core compile pipeline: synthesize →
// lower → place and route → encode, run once per submodule bottom-up and
// once for the top module.
//
// The Runner centralizes caching and logging so the CLI and the compile
// server behave identically.
package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/liquidhelium/verilog-target-turing-complete/pkg/cache"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/layout"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/yosys"
)

// Options configures one compile job.
type Options struct {
	// Top is the module compiled into the primary schematic.
	Top string
	// Source is the full Verilog source text.
	Source string
	// Compact enables compact packing and teleport wires.
	Compact bool
	// NoFlatten disables the synthesizer's flattening pass. Submodules
	// are preserved through attribute injection regardless.
	NoFlatten bool
	// Refresh bypasses the synthesis cache.
	Refresh bool

	// ClockSpeed is written into every save header.
	ClockSpeed uint32
	// WireColor is written on every wire record.
	WireColor uint8

	// Logger receives structured progress. Nil discards.
	Logger *log.Logger
}

// validate applies defaults and rejects unusable option sets.
func (o *Options) validate() error {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if o.Top == "" {
		return errTopRequired
	}
	if o.Source == "" {
		return errSourceRequired
	}
	return nil
}

// ModuleResult is one compiled schematic.
type ModuleResult struct {
	// Name is the module name.
	Name string
	// Data is the finished container, ready to write as circuit.data.
	Data []byte
	// CustomID is the module's 63-bit identifier (zero for the top).
	CustomID uint64
	// Components and Wires count the payload records.
	Components int
	Wires      int
}

// Stats aggregates timing over all per-module compiles.
type Stats struct {
	SynthTime  time.Duration
	LowerTime  time.Duration
	LayoutTime time.Duration
	EncodeTime time.Duration
	SynthHits  int
	SynthRuns  int
}

// Result is the output of one compile job: the top schematic plus one
// schematic per submodule, in bottom-up compile order.
type Result struct {
	Top          ModuleResult
	Dependencies []ModuleResult
	Stats        Stats
}

// Synthesizer is the external synthesis collaborator. yosys.Runner is
// the production implementation; tests substitute canned designs.
type Synthesizer interface {
	Synthesize(ctx context.Context, source string, opts yosys.Options) (*yosys.Design, error)
}

// Runner executes compile jobs with shared collaborators.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Synth  Synthesizer
	Oracle layout.Oracle
	Logger *log.Logger
}

// NewRunner wires a runner with defaults for any nil collaborator: a
// null cache, the default keyer, a PATH-resolved synthesizer, and the
// built-in layout engine.
func NewRunner(c cache.Cache, keyer cache.Keyer, synth Synthesizer, oracle layout.Oracle, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if synth == nil {
		synth = &yosys.Runner{}
	}
	if oracle == nil {
		oracle = defaultOracle()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Synth:  synth,
		Oracle: oracle,
		Logger: logger,
	}
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
