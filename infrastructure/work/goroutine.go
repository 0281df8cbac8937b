// Package work provides the worker pools the engine dispatches data
// interfaces onto. SubprocessPool gives each unit its own OS process so a
// crashing unit cannot take the engine down; GoroutinePool runs in-process
// and trades that isolation away for lower overhead.
package work

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/mosaic-data/mosaic/internal/domain"
	"github.com/mosaic-data/mosaic/internal/ports"
)

var _ ports.WorkerPool = (*GoroutinePool)(nil)

// GoroutinePool runs units on a bounded set of goroutines. A panicking
// unit is recovered and converted into a Failure, but a unit that crashes
// the process outright (cgo faults, os.Exit) takes the whole engine with
// it; use SubprocessPool when units are not trusted that far.
type GoroutinePool struct {
	logger *slog.Logger
}

// NewGoroutinePool creates an in-process pool.
func NewGoroutinePool(logger *slog.Logger) *GoroutinePool {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &GoroutinePool{logger: logger}
}

// Run executes every unit with at most workers running concurrently and
// returns results indexed like units. Run waits for all started units; a
// cancelled context only stops admission, turning not-yet-started units
// into failures wrapping the context error.
func (p *GoroutinePool) Run(
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
			// Admission check: once the context is cancelled no further
			// unit starts, but units already past this point run to
			// completion.
			if err := ctx.Err(); err != nil {
				results[i] = domain.Failure(unit.Name(), fmt.Errorf("not started: %w", err))
				return nil
			}
			results[i] = p.execute(ctx, unit)
			return nil
		})
	}
	g.Wait()

	return results
}

// execute runs one unit, defending against implementations that panic past
// their contract.
func (p *GoroutinePool) execute(
	ctx context.Context, unit ports.DataInterface,
) (res domain.ExecutionResult) {
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("unit panicked past its contract",
				"interface", unit.Name(), "panic", rec)
			res = domain.Failure(unit.Name(), fmt.Errorf("unit panicked: %v", rec))
		}
	}()
	return unit.Execute(ctx)
}
