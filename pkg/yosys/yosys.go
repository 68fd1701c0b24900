// Package yosys drives the external synthesizer. The compiler consumes
// only the write_json dump of a synthesized module: ports with bit lists
// and cells with parameters and connections.
//
// The synthesizer is a hard collaborator: a failure here aborts the whole
// compile. The runner never times the process out itself; hosts enforce
// deadlines through the context.
package yosys

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/liquidhelium/verilog-target-turing-complete/pkg/errors"
)

// DefaultBin is the synthesizer binary resolved from PATH when the
// configuration does not name one.
const DefaultBin = "yosys"

// Options configures one synthesis run.
type Options struct {
	// Top is the module to elaborate.
	Top string
	// Flatten controls whether the hierarchy is collapsed. The hierarchy
	// driver leaves it on for parents too; submodule instances survive
	// because their declarations are marked blackbox.
	Flatten bool
}

// Runner invokes the synthesizer binary.
type Runner struct {
	// Bin is the synthesizer executable. Empty means DefaultBin.
	Bin string
}

// script assembles the synthesis command list for one run.
func script(srcPath, jsonPath string, opts Options) string {
	cmds := []string{
		fmt.Sprintf("read_verilog -sv %s", srcPath),
		fmt.Sprintf("hierarchy -top %s", opts.Top),
		"proc",
	}
	if opts.Flatten {
		cmds = append(cmds, "flatten")
	}
	cmds = append(cmds,
		"opt",
		fmt.Sprintf("write_json %s", jsonPath),
	)
	return strings.Join(cmds, "; ")
}

// Synthesize runs the synthesizer over the given Verilog source text and
// returns the decoded design. The source is written to a scratch
// directory that is removed on both success and failure.
func (r *Runner) Synthesize(ctx context.Context, source string, opts Options) (*Design, error) {
	if opts.Top == "" {
		return nil, errors.New(errors.ErrCodeInvalidModule, "top module name is required")
	}
	bin := r.Bin
	if bin == "" {
		bin = DefaultBin
	}

	scratch, err := os.MkdirTemp("", "vttc-"+uuid.NewString()[:8]+"-")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSynthFailed, err, "create scratch dir")
	}
	defer os.RemoveAll(scratch)

	srcPath := filepath.Join(scratch, "design.v")
	jsonPath := filepath.Join(scratch, "design.json")
	if err := os.WriteFile(srcPath, []byte(source), 0o644); err != nil {
		return nil, errors.Wrap(errors.ErrCodeSynthFailed, err, "write source")
	}

	cmd := exec.CommandContext(ctx, bin, "-q", "-p", script(srcPath, jsonPath, opts))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, errors.Wrap(errors.ErrCodeSynthFailed, err, "synthesizer failed for top %s: %s", opts.Top, msg)
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSynthFailed, err, "read synthesis output")
	}
	return Decode(data)
}

// Decode parses a write_json dump.
func Decode(data []byte) (*Design, error) {
	var d Design
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, errors.Wrap(errors.ErrCodeSynthFailed, err, "decode synthesis JSON")
	}
	if d.Modules == nil {
		return nil, errors.New(errors.ErrCodeSynthFailed, "synthesis JSON has no modules")
	}
	return &d, nil
}

// Encode serializes a design back to JSON. The synthesis cache stores
// designs in this form.
func Encode(d *Design) ([]byte, error) {
	return json.Marshal(d)
}
