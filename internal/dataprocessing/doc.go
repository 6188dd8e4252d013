// Package dataprocessing loads, cleans and aggregates raw sales data.
//
// # Architecture
//
// The package is organized into three components that run in sequence:
//
// 1. Loader: reads a CSV file into a Table (a gota data frame of string columns)
// 2. Cleaner: trims cells, normalizes dates and numbers, fills categorical blanks
// and drops rows that fail the validity rules
// 3. Aggregator: reduces the cleaned table into Reports, one per worksheet
//
// # Usage
//
//	table, err := dataprocessing.NewLoader(logger).Load(ctx, "data/sales.csv")
//	if err != nil {
//	    return err
//	}
//	cleaned, stats, err := dataprocessing.NewCleaner(logger, cfg.Cleaning).Clean(ctx, table)
//	if err != nil {
//	    return err
//	}
//	reports, err := dataprocessing.NewAggregator(logger, cfg.Cleaning).Build(ctx, cleaned, cfg.Reports)
//
// # Data Flow
//
//	CSV File → Loader → Table → Cleaner → Table → Aggregator → []Report
//
// # Values
//
// Cells stay strings inside a Table. Numeric columns are rewritten to canonical
// decimal text by the cleaner and parsed with shopspring/decimal during
// aggregation, so sums are exact: the sum over all groups of a report always
// equals the sum over the cleaned table.
//
// # Error Handling
//
// Loader failures are INPUT or NOT_FOUND errors; cleaning and aggregation
// failures are TRANSFORM errors (see internal/errors). An empty or header-only
// file is not an error and produces no reports.
package dataprocessing
