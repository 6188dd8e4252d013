package config

import (
	"fmt"
	"strings"
)

// Aggregation names a reduction applied to a measure column.
type Aggregation string

const (
	AggSum     Aggregation = "sum"
	AggCount   Aggregation = "count"
	AggMean    Aggregation = "mean"
	AggMedian  Aggregation = "median"
	AggMin     Aggregation = "min"
	AggMax     Aggregation = "max"
	AggNUnique Aggregation = "nunique"
)

// NeedsMeasure reports whether the aggregation reads a measure column.
func (a Aggregation) NeedsMeasure() bool {
	return a != AggCount
}

// ReportKind selects how a report is computed.
type ReportKind string

const (
	// KindGroup groups rows by a key column and reduces one measure per group.
	KindGroup ReportKind = "group"
	// KindSummary reduces the whole table into a list of named metrics.
	KindSummary ReportKind = "summary"
)

// SortOrder controls the row order of a group report.
type SortOrder string

const (
	SortKey       SortOrder = "key"
	SortValueDesc SortOrder = "value_desc"
	SortValueAsc  SortOrder = "value_asc"
)

// ReportSpec describes one sheet of the output workbook
type ReportSpec struct {
	Name        string       `yaml:"name" validate:"required,max=31"`
	Kind        ReportKind   `yaml:"kind" validate:"omitempty,oneof=group summary"`
	GroupBy     string       `yaml:"group_by"`
	Measure     string       `yaml:"measure"`
	Aggregation Aggregation  `yaml:"aggregation" validate:"omitempty,oneof=sum count mean median min max nunique"`
	Label       string       `yaml:"label"`
	Sort        SortOrder    `yaml:"sort" validate:"omitempty,oneof=key value_desc value_asc"`
	Limit       int          `yaml:"limit" validate:"gte=0"`
	Metrics     []MetricSpec `yaml:"metrics" validate:"dive"`
	// Optional reports are skipped with a warning when their columns are absent.
	Optional bool `yaml:"optional"`
}

// MetricSpec is one row of a summary report. It is either an aggregation of
// Column or the ratio Numerator/Denominator of two earlier metrics.
type MetricSpec struct {
	Label       string      `yaml:"label" validate:"required"`
	Column      string      `yaml:"column"`
	Aggregation Aggregation `yaml:"aggregation" validate:"omitempty,oneof=sum count mean median min max nunique"`
	Numerator   string      `yaml:"numerator"`
	Denominator string      `yaml:"denominator"`
}

// IsRatio reports whether the metric is derived from two other metrics.
func (m MetricSpec) IsRatio() bool {
	return m.Numerator != "" || m.Denominator != ""
}

// AdHocReport is a single group report defined entirely through environment
// variables. When GroupBy is set it replaces the configured report list.
type AdHocReport struct {
	Name        string `envconfig:"REPORT_NAME"`
	GroupBy     string `envconfig:"REPORT_GROUP_BY"`
	Measure     string `envconfig:"REPORT_MEASURE"`
	Aggregation string `envconfig:"REPORT_AGGREGATION"`
	Label       string `envconfig:"REPORT_LABEL"`
	Sort        string `envconfig:"REPORT_SORT"`
	Limit       int    `envconfig:"REPORT_LIMIT"`
}

// Enabled reports whether an ad-hoc report was requested.
func (a AdHocReport) Enabled() bool {
	return strings.TrimSpace(a.GroupBy) != ""
}

// Spec converts the ad-hoc definition into a strict report.
func (a AdHocReport) Spec() ReportSpec {
	name := a.Name
	if name == "" {
		name = truncateName("Sales by " + a.GroupBy)
	}
	return ReportSpec{
		Name:        name,
		Kind:        KindGroup,
		GroupBy:     a.GroupBy,
		Measure:     a.Measure,
		Aggregation: Aggregation(strings.ToLower(a.Aggregation)),
		Label:       a.Label,
		Sort:        SortOrder(strings.ToLower(a.Sort)),
		Limit:       a.Limit,
	}
}

// truncateName cuts a derived report name to the worksheet name limit.
func truncateName(name string) string {
	if r := []rune(name); len(r) > maxSheetName {
		return string(r[:maxSheetName])
	}
	return name
}

// DefaultReports returns the standard daily sales report set.
func DefaultReports() []ReportSpec {
	return []ReportSpec{
		{
			Name: "Summary",
			Kind: KindSummary,
			Metrics: []MetricSpec{
				{Label: "Total Revenue", Column: "TotalPrice", Aggregation: AggSum},
				{Label: "Total Quantity Sold", Column: "Quantity", Aggregation: AggSum},
				{Label: "Number of Transactions", Column: "TransactionID", Aggregation: AggNUnique},
				{Label: "Average Transaction Value", Numerator: "Total Revenue", Denominator: "Number of Transactions"},
			},
		},
		{
			Name:        "Sales by Category",
			GroupBy:     "Category",
			Measure:     "TotalPrice",
			Aggregation: AggSum,
			Label:       "Total Revenue",
			Sort:        SortValueDesc,
			Optional:    true,
		},
		{
			Name:        "Sales by Region",
			GroupBy:     "Region",
			Measure:     "TotalPrice",
			Aggregation: AggSum,
			Label:       "Total Revenue",
			Sort:        SortValueDesc,
			Optional:    true,
		},
		{
			Name:        "Top 5 Products",
			GroupBy:     "ProductName",
			Measure:     "TotalPrice",
			Aggregation: AggSum,
			Label:       "Total Revenue",
			Sort:        SortValueDesc,
			Limit:       5,
			Optional:    true,
		},
	}
}

// normalize fills omitted fields with their defaults.
func (r *ReportSpec) normalize() {
	if r.Kind == "" {
		r.Kind = KindGroup
	}
	if r.Kind == KindSummary {
		for i := range r.Metrics {
			if !r.Metrics[i].IsRatio() && r.Metrics[i].Aggregation == "" {
				r.Metrics[i].Aggregation = AggSum
			}
		}
		return
	}
	if r.Aggregation == "" {
		r.Aggregation = AggSum
	}
	if r.Sort == "" {
		r.Sort = SortKey
	}
	if r.Label == "" {
		r.Label = DefaultLabel(r.Measure, r.Aggregation)
	}
}

// DefaultLabel builds the value column header for an unlabelled reduction.
func DefaultLabel(measure string, agg Aggregation) string {
	if !agg.NeedsMeasure() || measure == "" {
		return "Count"
	}
	return fmt.Sprintf("%s (%s)", measure, agg)
}

// maxSheetName is Excel's worksheet name limit.
const maxSheetName = 31

// invalidSheetChars are rejected by Excel in worksheet names.
const invalidSheetChars = `:\/?*[]`

// check performs the semantic validation the struct tags cannot express.
func (r ReportSpec) check() error {
	if strings.ContainsAny(r.Name, invalidSheetChars) {
		return fmt.Errorf("report %q: name must not contain any of %s", r.Name, invalidSheetChars)
	}

	switch r.Kind {
	case KindGroup:
		if r.GroupBy == "" {
			return fmt.Errorf("report %q: group_by is required", r.Name)
		}
		if r.Aggregation.NeedsMeasure() && r.Measure == "" {
			return fmt.Errorf("report %q: measure is required for %s", r.Name, r.Aggregation)
		}
	case KindSummary:
		if len(r.Metrics) == 0 {
			return fmt.Errorf("report %q: summary needs at least one metric", r.Name)
		}
		seen := make(map[string]bool, len(r.Metrics))
		for _, m := range r.Metrics {
			if seen[m.Label] {
				return fmt.Errorf("report %q: duplicate metric %q", r.Name, m.Label)
			}
			if m.IsRatio() {
				if !seen[m.Numerator] || !seen[m.Denominator] {
					return fmt.Errorf("report %q: metric %q must reference earlier metrics", r.Name, m.Label)
				}
			} else {
				if m.Aggregation.NeedsMeasure() && m.Column == "" {
					return fmt.Errorf("report %q: metric %q needs a column", r.Name, m.Label)
				}
			}
			seen[m.Label] = true
		}
	}
	return nil
}
