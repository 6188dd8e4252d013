package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"salesreport/internal/config"
	"salesreport/internal/errors"
)

// divisionScale is the number of decimal places kept for means and ratios.
const divisionScale = 4

// Summary report column headers.
const (
	MetricColumn = "Metric"
	ValueColumn  = "Value"
)

// Row is one line of a report: a key and one value per value column.
type Row struct {
	Key    string
	Values []decimal.Decimal
}

// Report is an aggregated table destined for one worksheet.
type Report struct {
	Name    string
	Columns []string
	Rows    []Row
}

// Aggregator turns a cleaned table into reports.
type Aggregator struct {
	logger     *slog.Logger
	policy     string
	missingKey string
}

// NewAggregator creates an aggregator. MeasurePolicy decides how missing
// or non-numeric measures are treated; CategoricalFill labels rows whose
// group key is missing.
func NewAggregator(logger *slog.Logger, cfg config.CleaningConfig) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Aggregator{
		logger:     logger,
		policy:     strings.ToLower(cfg.MeasurePolicy),
		missingKey: cfg.CategoricalFill,
	}
	if a.policy == "" {
		a.policy = policyZero
	}
	if a.missingKey == "" {
		a.missingKey = config.DefaultCategoricalFill
	}
	return a
}

// Build computes every report in order. An empty table yields no reports.
// Optional reports whose columns are missing are skipped with a warning;
// for the others a missing column is an error.
func (a *Aggregator) Build(ctx context.Context, t *Table, specs []config.ReportSpec) ([]Report, error) {
	a.logger.InfoContext(ctx, "Aggregating sales data", slog.Int("reports", len(specs)))

	if t.Len() == 0 {
		a.logger.WarnContext(ctx, "No data to aggregate")
		return nil, nil
	}

	reports := make([]Report, 0, len(specs))
	for _, spec := range specs {
		if missing := missingColumns(t, spec); len(missing) > 0 {
			if spec.Optional {
				a.logger.WarnContext(ctx, "Columns not found, skipping report",
					slog.String("report", spec.Name),
					slog.Any("columns", missing))
				continue
			}
			return nil, errors.NewTransformError(
				fmt.Sprintf("report %q: column %q not found", spec.Name, missing[0]), nil).
				WithContext("report", spec.Name)
		}

		var (
			report Report
			err    error
		)
		if spec.Kind == config.KindSummary {
			report, err = a.summary(t, spec)
		} else {
			report, err = a.group(t, spec)
		}
		if err != nil {
			return nil, errors.NewTransformError(fmt.Sprintf("report %q failed", spec.Name), err).
				WithContext("report", spec.Name)
		}

		a.logger.InfoContext(ctx, "Generated report",
			slog.String("report", report.Name),
			slog.Int("rows", len(report.Rows)))
		reports = append(reports, report)
	}
	return reports, nil
}

// missingColumns lists the columns a report reads that the table lacks.
func missingColumns(t *Table, spec config.ReportSpec) []string {
	var needed []string
	if spec.Kind == config.KindSummary {
		for _, m := range spec.Metrics {
			if !m.IsRatio() && m.Column != "" {
				needed = append(needed, m.Column)
			}
		}
	} else {
		needed = append(needed, spec.GroupBy)
		if spec.Measure != "" {
			needed = append(needed, spec.Measure)
		}
	}

	var missing []string
	for _, col := range needed {
		if !t.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	return missing
}

func (a *Aggregator) group(t *Table, spec config.ReportSpec) (Report, error) {
	keys := t.Column(spec.GroupBy)
	var measures []string
	if spec.Measure != "" {
		measures = t.Column(spec.Measure)
	}

	var (
		order  []string
		groups = map[string]*reducer{}
	)
	for i, key := range keys {
		key = strings.TrimSpace(key)
		if IsMissing(key) {
			key = a.missingKey
		}
		g, ok := groups[key]
		if !ok {
			g = &reducer{}
			groups[key] = g
			order = append(order, key)
		}
		raw := ""
		if measures != nil {
			raw = measures[i]
		}
		if err := a.add(g, spec.Aggregation, raw, i); err != nil {
			return Report{}, err
		}
	}

	rows := make([]Row, 0, len(order))
	for _, key := range order {
		value, err := groups[key].result(spec.Aggregation)
		if err != nil {
			return Report{}, fmt.Errorf("group %q: %w", key, err)
		}
		rows = append(rows, Row{Key: key, Values: []decimal.Decimal{value}})
	}

	sortRows(rows, spec.Sort)
	if spec.Limit > 0 && len(rows) > spec.Limit {
		rows = rows[:spec.Limit]
	}

	return Report{
		Name:    spec.Name,
		Columns: []string{spec.GroupBy, spec.Label},
		Rows:    rows,
	}, nil
}

func (a *Aggregator) summary(t *Table, spec config.ReportSpec) (Report, error) {
	values := make(map[string]decimal.Decimal, len(spec.Metrics))
	rows := make([]Row, 0, len(spec.Metrics))

	for _, m := range spec.Metrics {
		var value decimal.Decimal
		if m.IsRatio() {
			value = ratio(values[m.Numerator], values[m.Denominator])
		} else {
			var column []string
			if m.Column != "" {
				column = t.Column(m.Column)
			} else {
				column = make([]string, t.Len())
			}
			r := &reducer{}
			for i, raw := range column {
				if err := a.add(r, m.Aggregation, raw, i); err != nil {
					return Report{}, fmt.Errorf("metric %q: %w", m.Label, err)
				}
			}
			var err error
			if value, err = r.result(m.Aggregation); err != nil {
				return Report{}, fmt.Errorf("metric %q: %w", m.Label, err)
			}
		}
		values[m.Label] = value
		rows = append(rows, Row{Key: m.Label, Values: []decimal.Decimal{value}})
	}

	return Report{
		Name:    spec.Name,
		Columns: []string{MetricColumn, ValueColumn},
		Rows:    rows,
	}, nil
}

// add feeds one raw measure cell into r according to the measure policy.
func (a *Aggregator) add(r *reducer, agg config.Aggregation, raw string, row int) error {
	r.rows++
	switch agg {
	case config.AggCount:
		return nil
	case config.AggNUnique:
		if !IsMissing(raw) {
			r.distinct(strings.TrimSpace(raw))
		}
		return nil
	}

	value, ok := ParseNumber(raw)
	if !ok {
		switch a.policy {
		case policySkip:
			return nil
		case policyError:
			return fmt.Errorf("row %d: measure value %q is not numeric", row+1, raw)
		default:
			value = decimal.Zero
		}
	}
	r.values = append(r.values, value)
	return nil
}

func ratio(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.DivRound(den, divisionScale)
}

// reducer accumulates one group's inputs.
type reducer struct {
	rows   int
	values []decimal.Decimal
	seen   map[string]struct{}
}

func (r *reducer) distinct(v string) {
	if r.seen == nil {
		r.seen = map[string]struct{}{}
	}
	r.seen[v] = struct{}{}
}

func (r *reducer) result(agg config.Aggregation) (decimal.Decimal, error) {
	switch agg {
	case config.AggCount:
		return decimal.NewFromInt(int64(r.rows)), nil
	case config.AggNUnique:
		return decimal.NewFromInt(int64(len(r.seen))), nil
	}

	if len(r.values) == 0 {
		return decimal.Zero, nil
	}

	switch agg {
	case config.AggSum, "":
		return decimal.Sum(decimal.Zero, r.values...), nil
	case config.AggMean:
		return decimal.Avg(r.values[0], r.values[1:]...).Round(divisionScale), nil
	case config.AggMin:
		return decimal.Min(r.values[0], r.values[1:]...), nil
	case config.AggMax:
		return decimal.Max(r.values[0], r.values[1:]...), nil
	case config.AggMedian:
		data := make(stats.Float64Data, len(r.values))
		for i, v := range r.values {
			data[i] = v.InexactFloat64()
		}
		m, err := stats.Median(data)
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromFloat(m).Round(divisionScale), nil
	}
	return decimal.Zero, fmt.Errorf("unsupported aggregation %q", agg)
}

// sortRows orders rows by key, or by the first value with ties broken by
// key. Keys compare numerically when every key is a number.
func sortRows(rows []Row, order config.SortOrder) {
	numeric := true
	nums := make(map[string]decimal.Decimal, len(rows))
	for _, r := range rows {
		d, ok := ParseNumber(r.Key)
		if !ok {
			numeric = false
			break
		}
		nums[r.Key] = d
	}
	keyLess := func(a, b string) bool {
		if numeric {
			return nums[a].LessThan(nums[b])
		}
		return a < b
	}

	sort.SliceStable(rows, func(i, j int) bool { return keyLess(rows[i].Key, rows[j].Key) })

	switch order {
	case config.SortValueDesc:
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Values[0].GreaterThan(rows[j].Values[0]) })
	case config.SortValueAsc:
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Values[0].LessThan(rows[j].Values[0]) })
	}
}
