package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/liquidhelium/verilog-target-turing-complete/pkg/cache"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/config"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/hierarchy"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/pipeline"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/yosys"
)

// compileOpts holds the command-line flags for the compile command.
type compileOpts struct {
	top       string // top module name
	compact   bool   // compact packing + teleport wires
	noFlatten bool   // keep hierarchy in the synthesizer
	refresh   bool   // bypass the synthesis cache
	printIDs  bool   // log submodule identifiers
	noCache   bool   // disable caching entirely
	config    string // config file path
}

// newCompileCmd creates the compile command.
func newCompileCmd() *cobra.Command {
	var opts compileOpts

	cmd := &cobra.Command{
		Use:   "compile [flags] <input.v> <output-directory>",
		Short: "Compile a Verilog source into circuit.data files",
		Long: `Compile a Verilog source into the sandbox save format.

The top module becomes <output-directory>/circuit.data. Each submodule
compiles to dependencies/<module>/circuit.data and is referenced from the
top schematic as a custom component.

Examples:
  vttc compile --top alu alu.v out/
  vttc compile --compact --top cpu cpu.v out/`,
		Args: cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			return runCompile(c.Context(), &opts, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&opts.top, "top", "", "top module name (interactive selection when omitted)")
	cmd.Flags().BoolVar(&opts.compact, "compact", false, "compact packing and teleport wires")
	cmd.Flags().BoolVar(&opts.noFlatten, "no-flatten", false, "disable the synthesizer's flattening pass")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass the synthesis cache")
	cmd.Flags().BoolVar(&opts.printIDs, "print-ids", false, "log each submodule's 63-bit identifier")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the synthesis cache")
	cmd.Flags().StringVar(&opts.config, "config", "", "config file (default vttc.toml)")

	return cmd
}

func runCompile(ctx context.Context, opts *compileOpts, input, outDir string) error {
	logger := loggerFromContext(ctx)

	cfg, err := config.Load(opts.config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Compact {
		opts.compact = true
	}

	source, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}

	top, err := resolveTop(opts.top, string(source))
	if err != nil {
		return err
	}
	if top == "" {
		return fmt.Errorf("no top module selected")
	}

	c, err := buildCache(ctx, &cfg, opts.noCache)
	if err != nil {
		logger.Warnf("Synthesis cache disabled: %v", err)
		c = cache.NewNullCache()
	}
	runner := pipeline.NewRunner(c, nil, &yosys.Runner{Bin: cfg.Yosys}, nil, logger)
	defer runner.Close()

	prog := newProgress(logger)
	spin := newSpinnerWithContext(ctx, fmt.Sprintf("compiling %s", top))
	spin.Start()
	res, err := runner.Execute(ctx, pipeline.Options{
		Top:        top,
		Source:     string(source),
		Compact:    opts.compact,
		NoFlatten:  opts.noFlatten,
		Refresh:    opts.refresh,
		ClockSpeed: cfg.ClockSpeed,
		WireColor:  cfg.WireColor,
		Logger:     logger,
	})
	spin.Stop()
	if err != nil {
		return err
	}

	if opts.printIDs {
		for _, dep := range res.Dependencies {
			logger.Infof("module %s id %d", dep.Name, dep.CustomID)
		}
	}

	if err := writeOutputs(res, outDir); err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Compiled %d modules", 1+len(res.Dependencies)))
	fmt.Print(renderSummary(res))
	return nil
}

// resolveTop picks the top module: the flag when set, the only module
// when the source declares one, otherwise interactive selection.
func resolveTop(flag, source string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	d, err := hierarchy.Scan(source)
	if err != nil {
		return "", err
	}
	if len(d.Order) == 1 {
		return d.Order[0], nil
	}
	return selectModule(d.Order)
}

// writeOutputs writes circuit.data for the top and every dependency.
func writeOutputs(res *pipeline.Result, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(outDir, "circuit.data"), res.Top.Data, 0o644); err != nil {
		return err
	}
	for _, dep := range res.Dependencies {
		dir := filepath.Join(outDir, "dependencies", dep.Name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, "circuit.data"), dep.Data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// buildCache constructs the configured cache backend.
func buildCache(ctx context.Context, cfg *config.Config, disabled bool) (cache.Cache, error) {
	if disabled {
		return cache.NewNullCache(), nil
	}
	switch cfg.Cache.Backend {
	case "", "file":
		return cache.NewFileCache(cfg.CacheDir())
	case "redis":
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.Redis,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
	case "none":
		return cache.NewNullCache(), nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
}
