package application

import (
	"context"
	"sync/atomic"

	"github.com/mosaic-data/mosaic/internal/domain"
	"github.com/mosaic-data/mosaic/internal/ports"
)

// fakeUnit is a scriptable data interface for engine and registry tests.
type fakeUnit struct {
	name    string
	typ     string
	columns map[string]string

	table *domain.Table
	err   error
	panic bool

	// completed counts finished Execute calls, letting tests verify that
	// siblings of a failing unit still ran to completion.
	completed atomic.Int64
}

func (f *fakeUnit) Name() string                    { return f.name }
func (f *fakeUnit) Type() string                    { return f.typ }
func (f *fakeUnit) DeclaredColumns() map[string]string { return f.columns }

func (f *fakeUnit) Execute(ctx context.Context) domain.ExecutionResult {
	if f.panic {
		panic("fake unit exploded")
	}
	defer f.completed.Add(1)
	if f.err != nil {
		return domain.Failure(f.name, f.err)
	}
	return domain.Success(f.name, f.table)
}

func asInterfaces(units []*fakeUnit) []ports.DataInterface {
	out := make([]ports.DataInterface, len(units))
	for i, u := range units {
		out[i] = u
	}
	return out
}

func keyed(key string, keys []domain.Value, col string, values []domain.Value) *domain.Table {
	return domain.MustTable([]domain.Column{
		{Name: key, Values: keys},
		{Name: col, Values: values},
	})
}
