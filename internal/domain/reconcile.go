package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Reconciler combines independently produced tables into a single result.
// It autodetects the one column shared by every table (the pivot), then
// folds the tables left to right, joining on the pivot where the join is
// one-to-one and falling back to appending rows where it is not.
//
// Interfaces are independently authored and may produce wide (new-columns)
// or tall (new-rows) extensions relative to each other; which one can only
// be decided by inspecting the actual pivot values, hence the
// try-join/fallback-append design.
//
// Reconciler is stateless and safe for concurrent use.
type Reconciler struct {
	logger *slog.Logger
	tracer trace.Tracer
}

// NewReconciler creates a Reconciler emitting decision events to the given
// logger. A nil logger discards them.
func NewReconciler(logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Reconciler{
		logger: logger,
		tracer: otel.Tracer("reconciler"),
	}
}

// Reconcile folds the tables, in the order given, into one table keyed on
// the autodetected pivot column. Input order is significant: candidate
// pivots are evaluated in discovery order and the fold runs left to right,
// so callers must pass tables in query order for reproducible output.
//
// Errors: *NoPivotColumnError when the tables share no usable column,
// *AmbiguousPivotColumnError when they share more than one, and
// *JoinCardinalityError when a pair of tables can be combined neither by a
// one-to-one join nor by a duplicate-free append.
func (r *Reconciler) Reconcile(ctx context.Context, tables []*Table) (*Table, error) {
	_, span := r.tracer.Start(ctx, "Reconciler.Reconcile",
		trace.WithAttributes(attribute.Int("tables", len(tables))),
	)
	defer span.End()

	if len(tables) == 0 {
		return nil, fmt.Errorf("no tables to reconcile")
	}
	if len(tables) == 1 {
		return tables[0], nil
	}

	pivot, err := r.detectPivot(tables)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("pivot", pivot))
	r.logger.Info("pivot column detected", "pivot", pivot)

	merged := tables[0]
	for _, next := range tables[1:] {
		merged, err = r.combine(merged, next, pivot)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	span.SetAttributes(
		attribute.Int("result.rows", merged.NumRows()),
		attribute.Int("result.columns", merged.NumColumns()),
	)
	return merged, nil
}

// detectPivot walks the tables in order tracking every column name seen.
// A name seen in more than one table becomes a candidate, recorded once in
// discovery order. Candidates not present in every table are logged and
// skipped; of the rest, exactly one must remain.
func (r *Reconciler) detectPivot(tables []*Table) (string, error) {
	seen := make(map[string]bool)
	flagged := make(map[string]bool)
	var all []string
	var candidates []string

	for _, t := range tables {
		for _, name := range t.ColumnNames() {
			if seen[name] {
				if !flagged[name] {
					flagged[name] = true
					candidates = append(candidates, name)
				}
				continue
			}
			seen[name] = true
			all = append(all, name)
		}
	}

	if len(candidates) == 0 {
		r.logger.Error("no pivot column found", "columns", all)
		return "", &NoPivotColumnError{Columns: all}
	}

	pivot := ""
	for _, candidate := range candidates {
		if !inAllTables(candidate, tables) {
			// A column repeated in some tables but absent from others is
			// not a valid key; reconciling on it would lose data.
			r.logger.Warn("duplicated column is not shared by all tables, skipping",
				"column", candidate)
			continue
		}
		if pivot == "" {
			pivot = candidate
			continue
		}
		r.logger.Error("found two pivot columns",
			"first", pivot, "second", candidate)
		return "", &AmbiguousPivotColumnError{First: pivot, Second: candidate}
	}

	if pivot == "" {
		// Every candidate was skipped; the tables still share no usable key.
		r.logger.Error("all pivot candidates were skipped", "candidates", candidates)
		return "", &NoPivotColumnError{Columns: all}
	}

	return pivot, nil
}

func inAllTables(name string, tables []*Table) bool {
	for _, t := range tables {
		if !t.HasColumn(name) {
			return false
		}
	}
	return true
}

// combine merges two tables on the pivot. It first attempts a validated
// one-to-one outer join; if either side holds duplicate pivot values the
// join is invalid, and the pair is treated as row-disjoint extensions of
// the same schema and appended instead.
func (r *Reconciler) combine(left, right *Table, pivot string) (*Table, error) {
	leftKeys, _ := left.Column(pivot)
	rightKeys, _ := right.Column(pivot)

	if !hasDuplicates(leftKeys) && !hasDuplicates(rightKeys) {
		return outerJoin(left, right, pivot)
	}

	r.logger.Info("one-to-one join invalid, appending rows instead", "pivot", pivot)
	return appendRows(left, right, pivot)
}

// outerJoin pairs every left row with the matching right row by equal pivot
// value. Rows with no match on either side are kept, with missing cells
// filled as nil. Both sides are known to hold unique pivot values.
func outerJoin(left, right *Table, pivot string) (*Table, error) {
	names := left.ColumnNames()
	rightOnly := make([]string, 0, right.NumColumns())
	for _, name := range right.ColumnNames() {
		if !left.HasColumn(name) {
			rightOnly = append(rightOnly, name)
			names = append(names, name)
		}
	}

	rightKeys, _ := right.Column(pivot)
	rightByKey := make(map[Value]int, len(rightKeys))
	for i, key := range rightKeys {
		rightByKey[key] = i
	}

	out := make(map[string][]Value, len(names))
	addCell := func(name string, v Value) { out[name] = append(out[name], v) }

	leftKeys, _ := left.Column(pivot)
	matched := make(map[int]bool, len(rightKeys))
	for i := range leftKeys {
		for _, name := range left.ColumnNames() {
			cell, _ := left.Cell(name, i)
			addCell(name, cell)
		}
		j, ok := rightByKey[leftKeys[i]]
		if ok {
			matched[j] = true
		}
		for _, name := range rightOnly {
			if ok {
				cell, _ := right.Cell(name, j)
				addCell(name, cell)
			} else {
				addCell(name, nil)
			}
		}
	}

	// Right rows with no left match keep their own cells and get nil for
	// columns only the left side has.
	for j := range rightKeys {
		if matched[j] {
			continue
		}
		for _, name := range left.ColumnNames() {
			if right.HasColumn(name) {
				cell, _ := right.Cell(name, j)
				addCell(name, cell)
			} else {
				addCell(name, nil)
			}
		}
		for _, name := range rightOnly {
			cell, _ := right.Cell(name, j)
			addCell(name, cell)
		}
	}

	columns := make([]Column, len(names))
	for i, name := range names {
		columns[i] = Column{Name: name, Values: out[name]}
	}
	return NewTable(columns)
}

// appendRows stacks the two tables' rows: columns are unioned in first-seen
// order, missing cells are filled as nil, and the result must not contain a
// duplicate full row. A duplicate means the pair was neither a valid join
// nor a valid extension, which is a JoinCardinalityError.
func appendRows(left, right *Table, pivot string) (*Table, error) {
	names := left.ColumnNames()
	for _, name := range right.ColumnNames() {
		if !left.HasColumn(name) {
			names = append(names, name)
		}
	}

	out := make(map[string][]Value, len(names))
	for _, src := range []*Table{left, right} {
		for i := 0; i < src.NumRows(); i++ {
			for _, name := range names {
				if src.HasColumn(name) {
					cell, _ := src.Cell(name, i)
					out[name] = append(out[name], cell)
				} else {
					out[name] = append(out[name], nil)
				}
			}
		}
	}

	columns := make([]Column, len(names))
	for i, name := range names {
		columns[i] = Column{Name: name, Values: out[name]}
	}
	stacked, err := NewTable(columns)
	if err != nil {
		return nil, err
	}

	unique := make(map[string]bool, stacked.NumRows())
	for i := 0; i < stacked.NumRows(); i++ {
		key, err := rowKey(stacked.Row(i))
		if err != nil {
			return nil, err
		}
		if unique[key] {
			return nil, &JoinCardinalityError{
				Pivot:  pivot,
				Detail: "append fallback produced duplicate rows",
			}
		}
		unique[key] = true
	}

	return stacked, nil
}

// hasDuplicates reports whether any value repeats. Cells are JSON scalars,
// so they can be used as map keys directly.
func hasDuplicates(values []Value) bool {
	seen := make(map[Value]bool, len(values))
	for _, v := range values {
		if seen[v] {
			return true
		}
		seen[v] = true
	}
	return false
}

// rowKey renders a full row into a deterministic comparison key.
func rowKey(row []Value) (string, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return "", fmt.Errorf("encode row for uniqueness check: %w", err)
	}
	return string(data), nil
}
