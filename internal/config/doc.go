// Package config provides configuration loading for the sales report
// generator. It handles loading configuration from multiple sources,
// validation, and exposes a typed Config to the rest of the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Command-line overrides (highest priority)
//	2. Environment variables, including those read from a .env file
//	3. A YAML configuration file (--config or REPORT_CONFIG_FILE)
//	4. Default values (lowest priority)
//
// The .env file never overrides variables already present in the process
// environment.
//
// # Environment Variables
//
//	SALES_DATA_FILE=data/sales.csv      (required)
//	OUTPUT_REPORT_DIR=reports          (required)
//	REPORT_FILE_PREFIX=Daily_Sales_Report
//	REPORT_DATE=2024-01-02
//	NUMERIC_COLUMNS=Quantity,UnitPrice,TotalPrice
//	MEASURE_POLICY=zero|skip|error
//	LOG_LEVEL=info
//
// A single report can be defined without a YAML file:
//
//	REPORT_GROUP_BY=Date
//	REPORT_MEASURE=TotalPrice
//	REPORT_AGGREGATION=sum
//
// # Reports
//
// The YAML file may carry the full report list:
//
//	reports:
//	  - name: Sales by Day
//	    group_by: Date
//	    measure: TotalPrice
//	    aggregation: sum
//	  - name: Top Regions
//	    group_by: Region
//	    measure: TotalPrice
//	    sort: value_desc
//	    limit: 3
//	    optional: true
//
// # Usage
//
//	cfg, err := config.Load(config.LoadOptions{})
//	if err != nil {
//	    os.Exit(errors.ExitCode(err))
//	}
package config
