package tabulate

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mosaic-data/mosaic/internal/domain"
	"github.com/mosaic-data/mosaic/internal/ports"
)

var _ ports.Processor = (*JSON)(nil)

// JSON parses an array of flat records into a table. Column order follows
// first appearance across the records, which keeps reconciliation
// deterministic; a plain map decode would randomize it. Records may omit
// keys; the missing cells become nil.
type JSON struct {
	foldHeaders bool
}

// NewJSON creates a JSON records processor.
func NewJSON(foldHeaders bool) *JSON {
	return &JSON{foldHeaders: foldHeaders}
}

// Process parses the payload into a table.
func (j *JSON) Process(name string, raw []byte) (*domain.Table, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	if err := expectDelim(dec, '['); err != nil {
		return nil, fmt.Errorf("%s: expected a JSON array of records: %w", name, err)
	}

	var order []string
	cells := make(map[string][]domain.Value)
	rows := 0

	for dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return nil, fmt.Errorf("%s: record %d is not an object: %w", name, rows, err)
		}

		inRow := make(map[string]bool)
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("%s: record %d: %w", name, rows, err)
			}
			key := NormalizeHeader(keyTok.(string), j.foldHeaders)

			var value any
			if err := dec.Decode(&value); err != nil {
				return nil, fmt.Errorf("%s: record %d, key %q: %w", name, rows, key, err)
			}
			switch value.(type) {
			case nil, string, float64, bool:
			default:
				return nil, fmt.Errorf("%s: record %d, key %q: nested values are not supported", name, rows, key)
			}

			if _, seen := cells[key]; !seen {
				order = append(order, key)
				// Backfill the rows that predate this column.
				cells[key] = make([]domain.Value, rows)
			}
			cells[key] = append(cells[key], value)
			inRow[key] = true
		}
		if _, err := dec.Token(); err != nil { // closing '}'
			return nil, fmt.Errorf("%s: record %d: %w", name, rows, err)
		}

		for _, key := range order {
			if !inRow[key] {
				cells[key] = append(cells[key], nil)
			}
		}
		rows++
	}
	if _, err := dec.Token(); err != nil { // closing ']'
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	columns := make([]domain.Column, len(order))
	for i, key := range order {
		columns[i] = domain.Column{Name: key, Values: cells[key]}
	}
	table, err := domain.NewTable(columns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return table, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != want {
		return fmt.Errorf("got %v, want %v", tok, want)
	}
	return nil
}
