// Package sink writes reconciled tables out for downstream consumers.
// The engine's own obligation ends at returning a table in memory; this is
// the collaborator that persists it.
package sink

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/mosaic-data/mosaic/internal/domain"
)

// WriteCSV renders the table as CSV: one header row of column names, then
// one record per row. Nil cells render as empty fields.
func WriteCSV(w io.Writer, t *domain.Table) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(t.ColumnNames()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, t.NumColumns())
	for i := 0; i < t.NumRows(); i++ {
		for j, cell := range t.Row(i) {
			record[j] = formatCell(cell)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// formatCell renders one cell. Floats use the shortest representation that
// round-trips, so integers written as 3 do not come back as 3.000000.
func formatCell(v domain.Value) string {
	switch cell := v.(type) {
	case nil:
		return ""
	case string:
		return cell
	case float64:
		return strconv.FormatFloat(cell, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(cell)
	default:
		return fmt.Sprint(cell)
	}
}
