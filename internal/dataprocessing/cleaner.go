package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"salesreport/internal/config"
	"salesreport/internal/errors"
)

// Drop reasons reported in CleanStats.
const (
	DropMissingRequired = "missing_required"
	DropInvalidDate     = "invalid_date"
	DropInvalidNumber   = "invalid_numeric"
)

// Fill kinds reported in CleanStats.
const (
	FillNumeric     = "numeric"
	FillCategorical = "categorical"
)

const (
	policyZero  = "zero"
	policyDrop  = "drop"
	policySkip  = "skip"
	policyError = "error"
)

const dateTimeLayout = "2006-01-02 15:04:05"

// dateLayouts are tried in order when parsing the date column.
var dateLayouts = []string{
	config.DateLayout,
	dateTimeLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"01/02/2006",
	"2006/01/02",
	"02-Jan-2006",
}

// missingMarkers are compared case-insensitively after trimming.
var missingMarkers = map[string]bool{
	"":      true,
	"na":    true,
	"n/a":   true,
	"nan":   true,
	"null":  true,
	"<nil>": true,
}

// IsMissing reports whether a raw cell value denotes a missing value.
func IsMissing(value string) bool {
	return missingMarkers[strings.ToLower(strings.TrimSpace(value))]
}

// CleanStats summarizes what cleaning did to a table.
type CleanStats struct {
	InputRows  int
	OutputRows int
	Dropped    map[string]int
	Filled     map[string]int
}

// DroppedTotal returns the number of rows removed for any reason.
func (s CleanStats) DroppedTotal() int {
	total := 0
	for _, n := range s.Dropped {
		total += n
	}
	return total
}

// Cleaner normalizes raw sales rows and drops the ones that cannot be used.
type Cleaner struct {
	logger *slog.Logger
	cfg    config.CleaningConfig
}

// NewCleaner creates a cleaner with the given rules.
func NewCleaner(logger *slog.Logger, cfg config.CleaningConfig) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CategoricalFill == "" {
		cfg.CategoricalFill = config.DefaultCategoricalFill
	}
	if cfg.NumericPolicy == "" {
		cfg.NumericPolicy = policyZero
	}
	return &Cleaner{logger: logger, cfg: cfg}
}

// Clean returns a new table with trimmed cells, normalized dates and
// numbers, and filled categorical blanks. Row order is preserved.
func (c *Cleaner) Clean(ctx context.Context, in *Table) (*Table, CleanStats, error) {
	stats := CleanStats{
		InputRows: in.Len(),
		Dropped:   map[string]int{},
		Filled:    map[string]int{},
	}

	c.logger.InfoContext(ctx, "Starting data cleaning", slog.Int("rows", in.Len()))

	if in.Len() == 0 {
		c.logger.WarnContext(ctx, "No data to clean")
		return in, stats, nil
	}

	for _, col := range c.cfg.RequiredColumns {
		if !in.HasColumn(col) {
			return nil, stats, errors.NewTransformError(
				fmt.Sprintf("required column %q not found", col), nil).WithContext("column", col)
		}
	}

	header := in.Columns()
	cols := make(map[string][]string, len(header))
	for _, name := range header {
		values := in.Column(name)
		for i := range values {
			values[i] = strings.TrimSpace(values[i])
		}
		cols[name] = values
	}

	dateCol := c.dateColumn(ctx, in)
	numeric := c.presentColumns(ctx, in, c.cfg.NumericColumns, "Numeric")
	categorical := c.presentColumns(ctx, in, c.cfg.CategoricalColumns, "Categorical")

	keep := make([]int, 0, in.Len())
	for row := 0; row < in.Len(); row++ {
		if reason := c.rejects(cols, row, dateCol, numeric); reason != "" {
			stats.Dropped[reason]++
			c.logger.DebugContext(ctx, "Dropping row",
				slog.Int("row", row+1),
				slog.String("reason", reason))
			continue
		}
		keep = append(keep, row)

		if dateCol != "" {
			cols[dateCol][row] = normalizeDate(cols[dateCol][row])
		}
		for _, name := range numeric {
			value, ok := ParseNumber(cols[name][row])
			if !ok {
				value = decimal.Zero
				stats.Filled[FillNumeric]++
			}
			cols[name][row] = value.String()
		}
		for _, name := range categorical {
			if IsMissing(cols[name][row]) {
				cols[name][row] = c.cfg.CategoricalFill
				stats.Filled[FillCategorical]++
			}
		}
	}

	out, err := in.rebuild(cols, keep)
	if err != nil {
		return nil, stats, errors.NewTransformError("failed to build cleaned table", err)
	}
	stats.OutputRows = out.Len()

	c.logger.InfoContext(ctx, "Data cleaning complete",
		slog.Int("input_rows", stats.InputRows),
		slog.Int("output_rows", stats.OutputRows),
		slog.Int("dropped", stats.DroppedTotal()),
		slog.Any("dropped_by_reason", stats.Dropped),
		slog.Any("filled", stats.Filled))
	return out, stats, nil
}

// rejects returns the reason a row must be dropped, or "" to keep it.
func (c *Cleaner) rejects(cols map[string][]string, row int, dateCol string, numeric []string) string {
	for _, name := range c.cfg.RequiredColumns {
		if IsMissing(cols[name][row]) {
			return DropMissingRequired
		}
	}
	if dateCol != "" {
		if _, ok := ParseDate(cols[dateCol][row]); !ok {
			return DropInvalidDate
		}
	}
	if c.cfg.NumericPolicy == policyDrop {
		for _, name := range numeric {
			if _, ok := ParseNumber(cols[name][row]); !ok {
				return DropInvalidNumber
			}
		}
	}
	return ""
}

func (c *Cleaner) dateColumn(ctx context.Context, t *Table) string {
	if c.cfg.DateColumn == "" {
		return ""
	}
	if !t.HasColumn(c.cfg.DateColumn) {
		c.logger.WarnContext(ctx, "Date column not found, skipping date conversion",
			slog.String("column", c.cfg.DateColumn))
		return ""
	}
	return c.cfg.DateColumn
}

func (c *Cleaner) presentColumns(ctx context.Context, t *Table, names []string, kind string) []string {
	present := make([]string, 0, len(names))
	for _, name := range names {
		if !t.HasColumn(name) {
			c.logger.WarnContext(ctx, kind+" column not found, skipping",
				slog.String("column", name))
			continue
		}
		present = append(present, name)
	}
	return present
}

// ParseDate parses a date cell with the supported layouts.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if IsMissing(value) {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// normalizeDate rewrites a parsable date as YYYY-MM-DD, keeping the time of
// day when there is one.
func normalizeDate(value string) string {
	t, ok := ParseDate(value)
	if !ok {
		return value
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format(config.DateLayout)
	}
	return t.Format(dateTimeLayout)
}

// currencySymbols may prefix a numeric cell.
const currencySymbols = "$€£¥"

// ParseNumber parses a numeric cell, tolerating thousands separators and a
// leading currency symbol.
func ParseNumber(value string) (decimal.Decimal, bool) {
	value = strings.TrimSpace(value)
	if IsMissing(value) {
		return decimal.Zero, false
	}

	sign := ""
	switch {
	case strings.HasPrefix(value, "-"):
		sign, value = "-", value[1:]
	case strings.HasPrefix(value, "+"):
		value = value[1:]
	}
	for _, sym := range currencySymbols {
		if strings.HasPrefix(value, string(sym)) {
			value = strings.TrimPrefix(value, string(sym))
			break
		}
	}
	value = strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	if value == "" {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(sign + value)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
