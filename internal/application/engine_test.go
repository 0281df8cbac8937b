package application

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaic-data/mosaic/internal/domain"
	"github.com/mosaic-data/mosaic/internal/ports"
)

// serialPool executes every unit in the calling goroutine. When reversed
// is set it runs the units back to front, which lets tests prove that
// completion order never influences the reported failure.
type serialPool struct {
	reversed bool
}

func (p *serialPool) Run(ctx context.Context, units []ports.DataInterface, workers int) []domain.ExecutionResult {
	results := make([]domain.ExecutionResult, len(units))
	order := make([]int, 0, len(units))
	for i := range units {
		order = append(order, i)
	}
	if p.reversed {
		for l, r := 0, len(order)-1; l < r; l, r = l+1, r-1 {
			order[l], order[r] = order[r], order[l]
		}
	}
	for _, i := range order {
		results[i] = units[i].Execute(ctx)
	}
	return results
}

// lossyPool drops the last result, violating the pool contract.
type lossyPool struct{}

func (lossyPool) Run(ctx context.Context, units []ports.DataInterface, workers int) []domain.ExecutionResult {
	results := make([]domain.ExecutionResult, 0, len(units))
	for _, u := range units[:len(units)-1] {
		results = append(results, u.Execute(ctx))
	}
	return results
}

// recordingMetrics captures collector calls for assertions.
type recordingMetrics struct {
	mu       sync.Mutex
	statuses []string
	units    map[string]string
	poolSize int
}

var _ ports.MetricsCollector = (*recordingMetrics)(nil)

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{units: map[string]string{}}
}

func (m *recordingMetrics) ObserveFulfillment(_ time.Duration, _ int, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, status)
}

func (m *recordingMetrics) IncUnitResult(iface, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.units[iface] = status
}

func (m *recordingMetrics) SetPoolSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.poolSize = n
}

func newTestEngine(t *testing.T, units []*fakeUnit, opts ...Option) *Engine {
	t.Helper()
	reg, err := NewRegistry(nil, asInterfaces(units)...)
	require.NoError(t, err)
	engine, err := NewEngine(reg, &serialPool{}, opts...)
	require.NoError(t, err)
	return engine
}

func genesQuery(names ...string) domain.Query {
	return domain.Query{
		Type:       "genes",
		Interfaces: names,
		ProducedBy: domain.Version,
	}
}

func TestNewEngine_RequiresRegistryAndPool(t *testing.T) {
	reg, err := NewRegistry(nil, asInterfaces([]*fakeUnit{{name: "x", typ: "t"}})...)
	require.NoError(t, err)

	_, err = NewEngine(nil, &serialPool{})
	assert.Error(t, err)

	_, err = NewEngine(reg, nil)
	assert.Error(t, err)
}

func TestEngine_SingleInterfaceSkipsReconciliation(t *testing.T) {
	table := keyed("k", []domain.Value{1.0}, "a", []domain.Value{"a1"})
	engine := newTestEngine(t, []*fakeUnit{
		{name: "x", typ: "genes", table: table},
	})

	got, err := engine.Fulfill(context.Background(), genesQuery("x"))
	require.NoError(t, err)
	assert.Same(t, table, got, "a lone table must pass through untouched")
}

func TestEngine_FulfillMergesTables(t *testing.T) {
	engine := newTestEngine(t, []*fakeUnit{
		{name: "x", typ: "genes",
			table: keyed("k", []domain.Value{1.0, 2.0}, "a", []domain.Value{"a1", "a2"})},
		{name: "y", typ: "genes",
			table: keyed("k", []domain.Value{1.0, 2.0}, "b", []domain.Value{"b1", "b2"})},
	})

	got, err := engine.Fulfill(context.Background(), genesQuery("x", "y"))
	require.NoError(t, err)

	assert.Equal(t, []string{"k", "a", "b"}, got.ColumnNames())
	require.Equal(t, 2, got.NumRows())
	assert.Equal(t, []domain.Value{1.0, "a1", "b1"}, got.Row(0))
	assert.Equal(t, []domain.Value{2.0, "a2", "b2"}, got.Row(1))
}

func TestEngine_InvalidQueryRunsNothing(t *testing.T) {
	unit := &fakeUnit{name: "x", typ: "genes",
		table: keyed("k", []domain.Value{1.0}, "a", []domain.Value{"a1"})}
	engine := newTestEngine(t, []*fakeUnit{unit})

	_, err := engine.Fulfill(context.Background(), domain.Query{
		Type:       "genes",
		Interfaces: []string{"missing"},
	})

	var invalid *domain.InvalidQueryError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, int64(0), unit.completed.Load())
}

func TestEngine_FailureAbortsAfterAllComplete(t *testing.T) {
	x := &fakeUnit{name: "x", typ: "genes",
		table: keyed("k", []domain.Value{1.0}, "a", []domain.Value{"a1"})}
	y := &fakeUnit{name: "y", typ: "genes",
		table: keyed("k", []domain.Value{1.0}, "b", []domain.Value{"b1"})}
	z := &fakeUnit{name: "z", typ: "genes", err: errors.New("upstream is down")}
	engine := newTestEngine(t, []*fakeUnit{x, y, z})

	_, err := engine.Fulfill(context.Background(), genesQuery("x", "y", "z"))
	require.Error(t, err)

	var failure *domain.UnitFailureError
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "z", failure.Interface)
	assert.Contains(t, failure.Error(), "upstream is down")

	// The siblings of the failing unit still ran to completion.
	assert.Equal(t, int64(1), x.completed.Load())
	assert.Equal(t, int64(1), y.completed.Load())
}

func TestEngine_FirstFailureFollowsQueryOrder(t *testing.T) {
	// Two failing units with a pool that completes them back to front: the
	// reported failure must still be the first one in the query.
	units := []*fakeUnit{
		{name: "x", typ: "genes", err: errors.New("x broke")},
		{name: "y", typ: "genes", err: errors.New("y broke")},
	}
	reg, err := NewRegistry(nil, asInterfaces(units)...)
	require.NoError(t, err)
	engine, err := NewEngine(reg, &serialPool{reversed: true})
	require.NoError(t, err)

	_, err = engine.Fulfill(context.Background(), genesQuery("x", "y"))
	require.Error(t, err)

	var failure *domain.UnitFailureError
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "x", failure.Interface)
}

func TestEngine_ReconcileErrorPropagates(t *testing.T) {
	// Disjoint columns leave nothing to pivot on.
	engine := newTestEngine(t, []*fakeUnit{
		{name: "x", typ: "genes",
			table: keyed("a", []domain.Value{1.0}, "b", []domain.Value{2.0})},
		{name: "y", typ: "genes",
			table: keyed("c", []domain.Value{3.0}, "d", []domain.Value{4.0})},
	})

	_, err := engine.Fulfill(context.Background(), genesQuery("x", "y"))

	var noPivot *domain.NoPivotColumnError
	require.ErrorAs(t, err, &noPivot)
}

func TestEngine_PoolContractBreachFails(t *testing.T) {
	units := []*fakeUnit{
		{name: "x", typ: "genes",
			table: keyed("k", []domain.Value{1.0}, "a", []domain.Value{"a1"})},
		{name: "y", typ: "genes",
			table: keyed("k", []domain.Value{1.0}, "b", []domain.Value{"b1"})},
	}
	reg, err := NewRegistry(nil, asInterfaces(units)...)
	require.NoError(t, err)
	engine, err := NewEngine(reg, lossyPool{})
	require.NoError(t, err)

	_, err = engine.Fulfill(context.Background(), genesQuery("x", "y"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker pool returned")
}

func TestEngine_ReportsMetrics(t *testing.T) {
	metrics := newRecordingMetrics()
	x := &fakeUnit{name: "x", typ: "genes",
		table: keyed("k", []domain.Value{1.0}, "a", []domain.Value{"a1"})}
	y := &fakeUnit{name: "y", typ: "genes", err: errors.New("boom")}
	engine := newTestEngine(t, []*fakeUnit{x, y}, WithMetrics(metrics), WithMaxWorkers(1))

	_, err := engine.Fulfill(context.Background(), genesQuery("x", "y"))
	require.Error(t, err)

	assert.Equal(t, []string{"unit_failure"}, metrics.statuses)
	assert.Equal(t, map[string]string{"x": "ok", "y": "failed"}, metrics.units)
	assert.Equal(t, 1, metrics.poolSize)
}

func TestEngine_WorkerClamp(t *testing.T) {
	cores := runtime.NumCPU()
	tests := []struct {
		name string
		cap  int
		want int
	}{
		{name: "zero means one per core", cap: 0, want: cores},
		{name: "explicit cap holds", cap: 1, want: 1},
		{name: "cap above cores clamps", cap: cores + 100, want: cores},
		{name: "negative means one per core", cap: -5, want: cores},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(t, []*fakeUnit{{name: "x", typ: "genes"}},
				WithMaxWorkers(tt.cap))
			assert.Equal(t, tt.want, engine.effectiveWorkers())
		})
	}
}
