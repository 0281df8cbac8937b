package work

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"golang.org/x/sync/errgroup"

	"github.com/mosaic-data/mosaic/internal/domain"
	"github.com/mosaic-data/mosaic/internal/ports"
)

var _ ports.WorkerPool = (*SubprocessPool)(nil)

// SubprocessPool runs each unit in its own OS process by re-executing the
// engine binary in exec-unit mode. Units may hold non-thread-safe native
// resources or crash outright; the process boundary keeps either from
// corrupting the engine or its sibling units. A worker that dies, exits
// nonzero, or emits garbage becomes a Failure for that unit, never a crash
// of the engine.
//
// The child rebuilds the catalog from the same configuration file, which
// is why interface definitions must be declarative.
type SubprocessPool struct {
	// binary is the executable to re-exec, normally os.Executable().
	binary string

	// configPath is the configuration file handed to each child.
	configPath string

	logger *slog.Logger
}

// NewSubprocessPool creates a pool re-executing the current binary with
// the given configuration file.
func NewSubprocessPool(configPath string, logger *slog.Logger) (*SubprocessPool, error) {
	if configPath == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	binary, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve own executable: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SubprocessPool{binary: binary, configPath: configPath, logger: logger}, nil
}

// Run executes every unit in its own subprocess, at most workers at a
// time, and returns results indexed like units. Cancelling ctx stops
// admission of new subprocesses; ones already spawned run to completion
// (the pool is deliberately not wired to kill them, matching the engine's
// no-cancellation contract for in-flight work).
func (p *SubprocessPool) Run(
	ctx context.Context, units []ports.DataInterface, workers int,
) []domain.ExecutionResult {
	results := make([]domain.ExecutionResult, len(units))

	var g errgroup.Group
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, unit := range units {
		i, unit := i, unit
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = domain.Failure(unit.Name(), fmt.Errorf("not started: %w", err))
				return nil
			}
			results[i] = p.runChild(unit.Name())
			return nil
		})
	}
	g.Wait()

	return results
}

// runChild spawns one worker subprocess and decodes its result. The
// child's stderr passes through so its log events reach the operator.
func (p *SubprocessPool) runChild(name string) domain.ExecutionResult {
	cmd := exec.Command(p.binary, "exec-unit", "-config", p.configPath, "-name", name)
	cmd.Stderr = os.Stderr

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	p.logger.Debug("spawning worker", "interface", name, "binary", p.binary)
	if err := cmd.Run(); err != nil {
		return domain.Failure(name, fmt.Errorf("worker process: %w", err))
	}

	res, err := DecodeResult(&stdout)
	if err != nil {
		return domain.Failure(name, err)
	}
	if res.Interface != name {
		return domain.Failure(name, fmt.Errorf(
			"worker answered for %q, want %q", res.Interface, name))
	}
	return res
}
