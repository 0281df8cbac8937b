// Package tabulate turns raw downloaded payloads into domain tables.
package tabulate

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/mosaic-data/mosaic/internal/domain"
	"github.com/mosaic-data/mosaic/internal/ports"
)

var _ ports.Processor = (*CSV)(nil)

// CSV parses delimiter-separated payloads into tables. The first record is
// the header row; every following record is one row of cells.
//
// Cell typing is inferred per cell: empty cells become nil, numeric cells
// become float64, "true"/"false" become bool, everything else stays a
// string.
type CSV struct {
	delimiter   rune
	foldHeaders bool
}

// NewCSV creates a processor for the given delimiter. When foldHeaders is
// set, header names are trimmed and Unicode case-folded so independently
// authored sources agree on shared column names.
func NewCSV(delimiter rune, foldHeaders bool) *CSV {
	return &CSV{delimiter: delimiter, foldHeaders: foldHeaders}
}

// Process parses the payload into a table.
func (c *CSV) Process(name string, raw []byte) (*domain.Table, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.Comma = c.delimiter
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: parse csv: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: payload has no header row", name)
	}

	headers := records[0]
	for i, h := range headers {
		headers[i] = NormalizeHeader(h, c.foldHeaders)
	}

	columns := make([]domain.Column, len(headers))
	for i, h := range headers {
		values := make([]domain.Value, 0, len(records)-1)
		for _, record := range records[1:] {
			if i >= len(record) {
				return nil, fmt.Errorf("%s: row has %d cells, want %d", name, len(record), len(headers))
			}
			values = append(values, inferCell(record[i]))
		}
		columns[i] = domain.Column{Name: h, Values: values}
	}

	table, err := domain.NewTable(columns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return table, nil
}

// NormalizeHeader trims a header name and, when fold is set, applies
// Unicode case folding so that "GeneID" and "geneid" collide on purpose.
func NormalizeHeader(h string, fold bool) string {
	h = strings.TrimSpace(h)
	if fold {
		h = cases.Fold().String(h)
	}
	return h
}

// inferCell maps a raw cell to its typed value.
func inferCell(s string) domain.Value {
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
