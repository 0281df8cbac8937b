// Package catalog assembles concrete data interfaces from downloaders and
// processors, and builds them declaratively from configuration so worker
// subprocesses can reconstruct the same catalog.
package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/mosaic-data/mosaic/internal/domain"
	"github.com/mosaic-data/mosaic/internal/ports"
)

var _ ports.DataInterface = (*DataInterface)(nil)

// DataInterface bundles a downloader and a processor into one retrieval+
// transform unit. Execute captures every error, including panics from
// misbehaving downloader or processor code, into a Failure-tagged result;
// nothing escapes to the worker boundary.
type DataInterface struct {
	name      string
	typ       string
	columns   map[string]string
	download  ports.Downloader
	transform ports.Processor
	logger    *slog.Logger
}

// New creates a DataInterface. Name and type must be non-empty; columns may
// be nil when the interface declares no column contract.
func New(
	name, typ string,
	columns map[string]string,
	download ports.Downloader,
	transform ports.Processor,
	logger *slog.Logger,
) (*DataInterface, error) {
	if name == "" {
		return nil, fmt.Errorf("interface name cannot be empty")
	}
	if typ == "" {
		return nil, fmt.Errorf("interface type cannot be empty")
	}
	if download == nil {
		return nil, fmt.Errorf("interface %q: downloader cannot be nil", name)
	}
	if transform == nil {
		return nil, fmt.Errorf("interface %q: processor cannot be nil", name)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &DataInterface{
		name:      name,
		typ:       typ,
		columns:   columns,
		download:  download,
		transform: transform,
		logger:    logger,
	}, nil
}

// Name returns the interface's unique identifier.
func (d *DataInterface) Name() string { return d.name }

// Type returns the interface's data category.
func (d *DataInterface) Type() string { return d.typ }

// DeclaredColumns returns the promised column contract, or nil.
func (d *DataInterface) DeclaredColumns() map[string]string { return d.columns }

// Execute runs the downloader and then the processor on the downloaded
// payload. The produced table is soft-checked against the declared column
// contract; a broken promise is logged, never enforced.
func (d *DataInterface) Execute(ctx context.Context) (res domain.ExecutionResult) {
	defer func() {
		if rec := recover(); rec != nil {
			res = domain.Failure(d.name, fmt.Errorf("interface panicked: %v", rec))
		}
	}()

	raw, err := d.download.Retrieve(ctx)
	if err != nil {
		return domain.Failure(d.name, fmt.Errorf("download: %w", err))
	}

	table, err := d.transform.Process(d.name, raw)
	if err != nil {
		return domain.Failure(d.name, fmt.Errorf("process: %w", err))
	}

	if d.columns != nil && !columnsMatch(table, d.columns) {
		d.logger.Warn("produced columns differ from the declared ones, ignoring",
			"interface", d.name,
			"declared", len(d.columns), "produced", table.NumColumns())
	}

	return domain.Success(d.name, table)
}

// columnsMatch reports whether the table's columns and the declared
// contract name exactly the same set.
func columnsMatch(t *domain.Table, declared map[string]string) bool {
	names := t.ColumnNames()
	if len(names) != len(declared) {
		return false
	}
	for _, name := range names {
		if _, ok := declared[name]; !ok {
			return false
		}
	}
	return true
}
