// Package dataset loads the chest X-ray dataset that inference runs over:
// header-keyed CSV tables joined into samples, and the images they point at.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// Row represents a single CSV row with column name to value mapping.
type Row map[string]string

// LoadCSV reads a CSV file and returns rows as maps of column to value.
// The first row is treated as headers (column names). Quoted fields may span
// lines, which the free-text report tables rely on.
func LoadCSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: parse %s: %w", path, err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("csv: %s is empty (no header row)", path)
	}

	headers := records[0]
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}
	rows := make([]Row, 0, len(records)-1)

	for _, record := range records[1:] {
		row := make(Row, len(headers))
		for j, h := range headers {
			row[h] = record[j]
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// RequireColumns fails when the first row of rows lacks any of columns.
// Tables with no data rows pass.
func RequireColumns(path string, rows []Row, columns ...string) error {
	if len(rows) == 0 {
		return nil
	}
	var missing []string
	for _, c := range columns {
		if _, ok := rows[0][c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("csv: %s is missing columns: %s", path, strings.Join(missing, ", "))
	}
	return nil
}

// GroupBy indexes rows by the value of column, keeping file order within
// each group.
func GroupBy(rows []Row, column string) map[string][]Row {
	out := make(map[string][]Row)
	for _, r := range rows {
		k := r[column]
		out[k] = append(out[k], r)
	}
	return out
}
