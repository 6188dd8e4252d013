package dataprocessing

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Table is an in-memory sales table. Every column is string typed so the
// cleaner, not the frame, decides how values are interpreted.
type Table struct {
	columns []string
	frame   dataframe.DataFrame
	rows    int
}

// NewTable builds a table from a header and data rows of equal width.
func NewTable(header []string, rows [][]string) (*Table, error) {
	columns := make([]string, len(header))
	copy(columns, header)
	if len(rows) == 0 {
		return &Table{columns: columns}, nil
	}

	records := make([][]string, 0, len(rows)+1)
	records = append(records, columns)
	records = append(records, rows...)

	frame := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if frame.Err != nil {
		return nil, fmt.Errorf("build data frame: %w", frame.Err)
	}
	return &Table{columns: columns, frame: frame, rows: frame.Nrow()}, nil
}

// Columns returns the column names in file order.
func (t *Table) Columns() []string {
	cols := make([]string, len(t.columns))
	copy(cols, t.columns)
	return cols
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return t.rows
}

// HasColumn reports whether name is one of the table's columns.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.columns {
		if c == name {
			return true
		}
	}
	return false
}

// Column returns a copy of the named column's values, or nil if the column
// does not exist.
func (t *Table) Column(name string) []string {
	if !t.HasColumn(name) {
		return nil
	}
	if t.rows == 0 {
		return []string{}
	}
	return t.frame.Col(name).Records()
}

// Records returns the header followed by every row.
func (t *Table) Records() [][]string {
	records := make([][]string, 0, t.rows+1)
	records = append(records, t.Columns())

	cols := make([][]string, len(t.columns))
	for i, name := range t.columns {
		cols[i] = t.Column(name)
	}
	for r := 0; r < t.rows; r++ {
		row := make([]string, len(cols))
		for c := range cols {
			row[c] = cols[c][r]
		}
		records = append(records, row)
	}
	return records
}

// Frame exposes the underlying gota frame. It is the zero frame when the
// table has no rows.
func (t *Table) Frame() dataframe.DataFrame {
	return t.frame
}

// rebuild replaces the given columns and keeps only the rows in keep, in
// order. Columns absent from replace are carried over unchanged.
func (t *Table) rebuild(replace map[string][]string, keep []int) (*Table, error) {
	if len(keep) == 0 {
		return &Table{columns: t.Columns()}, nil
	}

	frame := t.frame
	for _, name := range t.columns {
		values, ok := replace[name]
		if !ok {
			continue
		}
		frame = frame.Mutate(series.New(values, series.String, name))
		if frame.Err != nil {
			return nil, fmt.Errorf("replace column %s: %w", name, frame.Err)
		}
	}

	if len(keep) < t.rows {
		frame = frame.Subset(keep)
		if frame.Err != nil {
			return nil, fmt.Errorf("subset rows: %w", frame.Err)
		}
	}
	return &Table{columns: t.Columns(), frame: frame, rows: frame.Nrow()}, nil
}
