package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// Section labels. Each section of the CSV starts with a comment line so the
// batch loader (and humans) can split the file without counting columns.
const (
	headerSectionLabel = "# INVOICE HEADERS"
	lineSectionLabel   = "# INVOICE LINES"
)

// WriteCSV renders bulk-interface data as the two-section CSV the ERP's
// batch loader ingests. encoding/csv handles quoting, so values containing
// a comma come out wrapped in quotes.
func WriteCSV(w io.Writer, data *BulkData) error {
	if err := writeSection(w, headerSectionLabel, data.HeaderColumns, data.HeaderRows); err != nil {
		return err
	}
	return writeSection(w, lineSectionLabel, data.LineColumns, data.LineRows)
}

func writeSection(w io.Writer, label string, columns []string, rows [][]string) error {
	if _, err := fmt.Fprintln(w, label); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write column header: %w", err)
	}
	for _, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("row has %d values, section %q has %d columns", len(row), label, len(columns))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
