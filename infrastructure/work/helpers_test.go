package work

import (
	"context"
	"sync/atomic"

	"github.com/mosaic-data/mosaic/internal/domain"
)

// stubUnit is a scriptable data interface for pool tests.
type stubUnit struct {
	name  string
	table *domain.Table
	err   error
	panic bool

	// block, when non-nil, holds Execute until closed.
	block chan struct{}

	started atomic.Int64
}

func (s *stubUnit) Name() string                       { return s.name }
func (s *stubUnit) Type() string                       { return "test" }
func (s *stubUnit) DeclaredColumns() map[string]string { return nil }

func (s *stubUnit) Execute(ctx context.Context) domain.ExecutionResult {
	s.started.Add(1)
	if s.block != nil {
		<-s.block
	}
	if s.panic {
		panic("stub unit exploded")
	}
	if s.err != nil {
		return domain.Failure(s.name, s.err)
	}
	return domain.Success(s.name, s.table)
}

func oneCellTable(col string, v domain.Value) *domain.Table {
	return domain.MustTable([]domain.Column{{Name: col, Values: []domain.Value{v}}})
}
