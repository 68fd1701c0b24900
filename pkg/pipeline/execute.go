package pipeline

import (
	"context"
	"time"

	"github.com/liquidhelium/verilog-target-turing-complete/pkg/cache"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/errors"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/hierarchy"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/layeng"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/layout"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/library"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/lower"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/route"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/save"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/yosys"
)

var (
	errTopRequired    = errors.New(errors.ErrCodeInvalidModule, "top module name is required")
	errSourceRequired = errors.New(errors.ErrCodeInvalidModule, "source is required")
)

// defaultOracle adapts the built-in layered engine to the bridge's
// Oracle interface.
func defaultOracle() layout.Oracle { return layeng.New() }

// Execute runs the full compile: hierarchy discovery, then the pipeline
// once per submodule bottom-up and once for the top.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger

	design, err := hierarchy.Scan(opts.Source)
	if err != nil {
		return nil, err
	}
	order, err := design.TopoOrder(opts.Top)
	if err != nil {
		return nil, err
	}
	subs, err := design.Submodules(opts.Top)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]uint64, len(subs))
	for _, name := range subs {
		ids[name] = design.Modules[name].AssignID()
	}
	logger.Debug("hierarchy resolved", "modules", len(order), "submodules", len(subs))

	result := &Result{}
	metas := make(map[string]*library.CustomMeta, len(subs))

	for _, name := range order {
		mr, meta, err := r.compileModule(ctx, design, name, ids, metas, &opts, &result.Stats)
		if err != nil {
			code := errors.GetCode(err)
			if code == "" {
				code = errors.ErrCodeInternal
			}
			return nil, errors.Wrap(code, err, "compile module %s", name)
		}
		if name == opts.Top {
			result.Top = *mr
		} else {
			metas[name] = meta
			result.Dependencies = append(result.Dependencies, *mr)
		}
		logger.Info("compiled module",
			"module", name,
			"components", mr.Components,
			"wires", mr.Wires,
			"bytes", len(mr.Data))
	}
	return result, nil
}

// compileModule runs the four pipeline stages for one module.
func (r *Runner) compileModule(
	ctx context.Context,
	design *hierarchy.Design,
	name string,
	ids map[string]uint64,
	metas map[string]*library.CustomMeta,
	opts *Options,
	stats *Stats,
) (*ModuleResult, *library.CustomMeta, error) {
	// Every other module is declared blackbox so its instances survive
	// synthesis as cells.
	var others []string
	for _, other := range design.Order {
		if other != name {
			others = append(others, other)
		}
	}
	source := hierarchy.InjectBlackbox(design, others)

	synthStart := time.Now()
	mod, err := r.synthesize(ctx, source, name, opts, stats)
	if err != nil {
		return nil, nil, err
	}
	stats.SynthTime += time.Since(synthStart)

	lowerStart := time.Now()
	nl, err := lower.Lower(mod, lower.Options{
		CustomIDs:  ids,
		CustomMeta: metas,
		Logger:     opts.Logger,
	})
	if err != nil {
		return nil, nil, err
	}
	stats.LowerTime += time.Since(lowerStart)

	layoutStart := time.Now()
	l, err := layout.Build(ctx, nl, r.Oracle, layout.Options{
		Compact: opts.Compact,
		Logger:  opts.Logger,
	})
	if err != nil {
		return nil, nil, err
	}
	stats.LayoutTime += time.Since(layoutStart)

	encodeStart := time.Now()
	wires, err := route.Wires(nl, l, route.Options{Color: opts.WireColor})
	if err != nil {
		return nil, nil, err
	}
	comps, err := save.BuildComponents(nl, l)
	if err != nil {
		return nil, nil, err
	}

	payload := &save.Payload{
		Header: save.Header{
			GateCount:    uint64(len(comps)),
			ClockSpeed:   opts.ClockSpeed,
			Dependencies: save.DependencyIDs(comps),
			Description:  name,
		},
		Components: comps,
		Wires:      wires,
	}
	data, err := save.EncodeContainer(payload)
	if err != nil {
		return nil, nil, err
	}
	stats.EncodeTime += time.Since(encodeStart)

	mr := &ModuleResult{
		Name:       name,
		Data:       data,
		CustomID:   ids[name],
		Components: len(comps),
		Wires:      len(wires),
	}
	meta := hierarchy.ExtractMeta(ids[name], nl, l)
	return mr, meta, nil
}

// synthesize runs the external synthesizer with caching.
func (r *Runner) synthesize(ctx context.Context, source, top string, opts *Options, stats *Stats) (*yosys.Module, error) {
	keyOpts := cache.SynthKeyOpts{
		Top:     top,
		Flatten: !opts.NoFlatten,
	}
	if yr, ok := r.Synth.(*yosys.Runner); ok {
		keyOpts.Tool = yr.Bin
	}
	key := r.Keyer.SynthKey(cache.Hash([]byte(source)), keyOpts)

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			if design, err := yosys.Decode(data); err == nil {
				if mod, err := design.Module(top); err == nil {
					stats.SynthHits++
					return mod, nil
				}
			}
			// Corrupt entry: drop and fall through to resynthesis.
			_ = r.Cache.Delete(ctx, key)
		}
	}

	design, err := r.Synth.Synthesize(ctx, source, yosys.Options{
		Top:     top,
		Flatten: !opts.NoFlatten,
	})
	if err != nil {
		return nil, err
	}
	stats.SynthRuns++

	if data, err := yosys.Encode(design); err == nil {
		_ = r.Cache.Set(ctx, key, data, cache.TTLSynth)
	}
	return design.Module(top)
}
