package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mosaic-data/mosaic/internal/domain"
	"github.com/mosaic-data/mosaic/internal/ports"
)

// Engine fulfills validated queries: it resolves interface names against
// the registry, dispatches the units onto a worker pool, collects their
// results in query order, and hands the tables to the reconciler.
//
// Failure policy: any unit failure aborts the whole call; no partial or
// degraded result is ever returned. The abort is deliberately deferred
// until every dispatched unit has completed, because in-flight units may
// have side effects (resource cleanup, remote sessions) that should not be
// abandoned. The engine does not retry failed units.
type Engine struct {
	registry   *Registry
	pool       ports.WorkerPool
	reconciler *domain.Reconciler
	logger     *slog.Logger
	metrics    ports.MetricsCollector
	tracer     trace.Tracer

	// maxWorkers caps pool parallelism. Zero means one worker per
	// available core.
	maxWorkers int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger the engine and its reconciler emit decision
// events to.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics sets the collector receiving engine measurements.
func WithMetrics(m ports.MetricsCollector) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithMaxWorkers caps the worker pool size. The effective count is always
// clamped to [1, number of available cores].
func WithMaxWorkers(n int) Option {
	return func(e *Engine) { e.maxWorkers = n }
}

// NewEngine creates an Engine over the given registry and worker pool.
func NewEngine(registry *Registry, pool ports.WorkerPool, opts ...Option) (*Engine, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry must not be nil")
	}
	if pool == nil {
		return nil, fmt.Errorf("worker pool must not be nil")
	}

	e := &Engine{
		registry: registry,
		pool:     pool,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:  ports.NopMetrics{},
		tracer:   otel.Tracer("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.reconciler = domain.NewReconciler(e.logger)
	return e, nil
}

// Fulfill runs the query end to end and returns the reconciled table.
//
// The call validates the query, resolves its interfaces preserving query
// order, dispatches all of them, waits for full completion, then scans the
// results in query order and propagates the first failure found. With no
// failures, a single table is returned unchanged and multiple tables are
// reconciled. Completion timing never influences which failure is reported
// or how tables are folded; only query order does.
func (e *Engine) Fulfill(ctx context.Context, query domain.Query) (*domain.Table, error) {
	runID := uuid.NewString()
	logger := e.logger.With("run_id", runID)
	start := time.Now()

	ctx, span := e.tracer.Start(ctx, "Engine.Fulfill",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("query.type", query.Type),
			attribute.Int("query.interfaces", len(query.Interfaces)),
		),
	)
	defer span.End()

	if err := ValidateQuery(logger, e.registry, query); err != nil {
		span.RecordError(err)
		e.metrics.ObserveFulfillment(time.Since(start), len(query.Interfaces), "invalid_query")
		return nil, err
	}

	units := make([]ports.DataInterface, len(query.Interfaces))
	for i, name := range query.Interfaces {
		u, _ := e.registry.Lookup(name)
		units[i] = u
	}

	workers := e.effectiveWorkers()
	e.metrics.SetPoolSize(workers)
	span.SetAttributes(attribute.Int("pool.workers", workers))
	logger.Info("dispatching interfaces to worker pool",
		"units", len(units), "workers", workers)

	results := e.pool.Run(ctx, units, workers)
	if len(results) != len(units) {
		// A pool that loses or duplicates results has broken its contract.
		err := fmt.Errorf("worker pool returned %d results for %d units", len(results), len(units))
		span.RecordError(err)
		e.metrics.ObserveFulfillment(time.Since(start), len(units), "unit_failure")
		return nil, err
	}

	// All units have completed. Scan in query order; the first failure is
	// the terminal error, the rest are logged for diagnostics.
	var firstFailure *domain.UnitFailureError
	for i, res := range results {
		if !res.Failed() {
			e.metrics.IncUnitResult(units[i].Name(), "ok")
			continue
		}
		e.metrics.IncUnitResult(units[i].Name(), "failed")
		err := res.Err
		if err == nil {
			err = fmt.Errorf("interface returned neither table nor error")
		}
		logger.Error("interface failed", "interface", units[i].Name(), "error", err)
		if firstFailure == nil {
			firstFailure = &domain.UnitFailureError{Interface: units[i].Name(), Err: err}
		}
	}
	if firstFailure != nil {
		span.RecordError(firstFailure)
		e.metrics.ObserveFulfillment(time.Since(start), len(units), "unit_failure")
		return nil, firstFailure
	}

	tables := make([]*domain.Table, len(results))
	for i, res := range results {
		tables[i] = res.Table
	}

	if len(tables) == 1 {
		logger.Info("single interface, no reconciliation needed")
		e.metrics.ObserveFulfillment(time.Since(start), len(units), "ok")
		return tables[0], nil
	}

	logger.Info("all interfaces completed, reconciling", "tables", len(tables))
	merged, err := e.reconciler.Reconcile(ctx, tables)
	if err != nil {
		span.RecordError(err)
		e.metrics.ObserveFulfillment(time.Since(start), len(units), "reconcile_error")
		return nil, err
	}

	logger.Info("query fulfilled",
		"rows", merged.NumRows(), "columns", merged.NumColumns(),
		"elapsed", time.Since(start))
	e.metrics.ObserveFulfillment(time.Since(start), len(units), "ok")
	return merged, nil
}

// effectiveWorkers clamps the configured worker cap to [1, NumCPU].
func (e *Engine) effectiveWorkers() int {
	cores := runtime.NumCPU()
	workers := e.maxWorkers
	if workers <= 0 {
		workers = cores
	}
	if workers > cores {
		workers = cores
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}
