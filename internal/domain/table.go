// Package domain contains the core value types of the fulfillment engine:
// tables, queries, execution results, and the reconciliation algorithm that
// folds independently produced tables into one.
package domain

import (
	"encoding/json"
	"fmt"
)

// Value is a single table cell. Cells are restricted to the JSON scalar
// types: string, float64, bool, or nil for an absent cell. All of these are
// comparable, which the reconciler relies on when matching pivot values.
type Value = any

// Column is a named, ordered sequence of cells.
type Column struct {
	Name   string
	Values []Value
}

// Table is a rectangular dataset: an ordered sequence of named columns,
// each holding the same number of cells. Tables are immutable after
// construction; every transforming operation returns a new Table.
type Table struct {
	columns []Column
	index   map[string]int
}

// NewTable builds a Table from the given columns, preserving their order.
// It returns an error if column names repeat or if the columns are not all
// the same length.
func NewTable(columns []Column) (*Table, error) {
	index := make(map[string]int, len(columns))
	rows := -1
	for i, col := range columns {
		if col.Name == "" {
			return nil, fmt.Errorf("column %d has an empty name", i)
		}
		if _, dup := index[col.Name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", col.Name)
		}
		index[col.Name] = i
		if rows == -1 {
			rows = len(col.Values)
			continue
		}
		if len(col.Values) != rows {
			return nil, fmt.Errorf(
				"column %q has %d values, want %d", col.Name, len(col.Values), rows)
		}
	}

	copied := make([]Column, len(columns))
	for i, col := range columns {
		values := make([]Value, len(col.Values))
		copy(values, col.Values)
		copied[i] = Column{Name: col.Name, Values: values}
	}

	return &Table{columns: copied, index: index}, nil
}

// MustTable is a test and fixture helper that panics if NewTable fails.
func MustTable(columns []Column) *Table {
	t, err := NewTable(columns)
	if err != nil {
		panic(err)
	}
	return t
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int { return len(t.columns) }

// NumRows returns the number of rows. An empty table has zero rows.
func (t *Table) NumRows() int {
	if len(t.columns) == 0 {
		return 0
	}
	return len(t.columns[0].Values)
}

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = col.Name
	}
	return names
}

// HasColumn reports whether a column with the given name exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the cells of the named column in row order.
// The second return value is false if the column does not exist.
func (t *Table) Column(name string) ([]Value, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	values := make([]Value, len(t.columns[i].Values))
	copy(values, t.columns[i].Values)
	return values, true
}

// Cell returns the value at the given row in the named column.
func (t *Table) Cell(name string, row int) (Value, bool) {
	i, ok := t.index[name]
	if !ok || row < 0 || row >= len(t.columns[i].Values) {
		return nil, false
	}
	return t.columns[i].Values[row], true
}

// Row returns the cells of one row in column order.
func (t *Table) Row(row int) []Value {
	cells := make([]Value, len(t.columns))
	for i, col := range t.columns {
		cells[i] = col.Values[row]
	}
	return cells
}

// Columns returns a deep copy of the table's columns in order.
func (t *Table) Columns() []Column {
	copied := make([]Column, len(t.columns))
	for i, col := range t.columns {
		values := make([]Value, len(col.Values))
		copy(values, col.Values)
		copied[i] = Column{Name: col.Name, Values: values}
	}
	return copied
}

// wireColumn is the JSON representation of a single column. A plain object
// would lose column order, so the wire format is an ordered array.
type wireColumn struct {
	Name   string  `json:"name"`
	Values []Value `json:"values"`
}

// MarshalJSON encodes the table as an ordered array of columns so that the
// wire format round-trips column order exactly.
func (t *Table) MarshalJSON() ([]byte, error) {
	cols := make([]wireColumn, len(t.columns))
	for i, col := range t.columns {
		cols[i] = wireColumn{Name: col.Name, Values: col.Values}
	}
	return json.Marshal(cols)
}

// UnmarshalJSON decodes the ordered-column wire format produced by
// MarshalJSON, revalidating the rectangle invariant.
func (t *Table) UnmarshalJSON(data []byte) error {
	var cols []wireColumn
	if err := json.Unmarshal(data, &cols); err != nil {
		return fmt.Errorf("decode table: %w", err)
	}
	columns := make([]Column, len(cols))
	for i, col := range cols {
		values := col.Values
		if values == nil {
			values = []Value{}
		}
		columns[i] = Column{Name: col.Name, Values: values}
	}
	decoded, err := NewTable(columns)
	if err != nil {
		return fmt.Errorf("decode table: %w", err)
	}
	*t = *decoded
	return nil
}
