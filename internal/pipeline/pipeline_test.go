package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesreport/internal/config"
	"salesreport/internal/dataprocessing"
	"salesreport/internal/errors"
	"salesreport/internal/exporter"
	"salesreport/internal/infrastructure"
	"salesreport/internal/shared/testutil"
)

const reportFile = "Daily_Sales_Report_2024-01-02.xlsx"

func testConfig(t *testing.T, csv string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Input.SalesDataFile = testutil.WriteFile(t, dir, "sales.csv", csv)
	cfg.Output.ReportDir = filepath.Join(dir, "reports")
	cfg.Output.ReportDate = "2024-01-02"
	cfg.Logging.Output = "console"
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestRun_DefaultReports(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	cfg := testConfig(t, testutil.SalesCSV)
	p := New(cfg, logger)

	res, err := p.Run(infrastructure.WithRunID(context.Background(), "run-1"))
	require.NoError(t, err)

	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, filepath.Join(cfg.Output.ReportDir, reportFile), res.OutputPath)
	assert.Equal(t, 3, res.RowsLoaded)
	assert.Equal(t, 3, res.RowsKept)
	assert.Equal(t, 0, res.RowsDropped)
	assert.Equal(t, []string{"Summary", "Sales by Category", "Sales by Region", "Top 5 Products"}, res.Sheets)

	wb := testutil.ReadWorkbook(t, res.OutputPath)
	assert.Equal(t, res.Sheets, wb.Sheets)
	assert.Equal(t, [][]string{
		{"Metric", "Value"},
		{"Total Revenue", "22"},
		{"Total Quantity Sold", "4"},
		{"Number of Transactions", "3"},
		{"Average Transaction Value", "7.3333"},
	}, wb.Rows["Summary"])
	assert.Equal(t, [][]string{
		{"Category", "Total Revenue"},
		{"Hardware", "15"},
		{"Books", "7"},
	}, wb.Rows["Sales by Category"])
	assert.Equal(t, [][]string{
		{"Region", "Total Revenue"},
		{"North", "17"},
		{"South", "5"},
	}, wb.Rows["Sales by Region"])
	assert.Equal(t, [][]string{
		{"ProductName", "Total Revenue"},
		{"Widget", "10"},
		{"Manual", "7"},
		{"Gadget", "5"},
	}, wb.Rows["Top 5 Products"])

	m := p.Metrics()
	assert.Equal(t, float64(3), promtestutil.ToFloat64(m.RowsLoaded))
	assert.Equal(t, float64(3), promtestutil.ToFloat64(m.RowsKept))
	assert.Equal(t, float64(4), promtestutil.ToFloat64(m.SheetsWritten))
	assert.Equal(t, float64(1), promtestutil.ToFloat64(m.LastSuccess))

	testutil.AssertLogContains(t, logs, slog.LevelInfo, "Sales report run completed")
	testutil.AssertNoErrors(t, logs)
}

func TestRun_GroupByDate(t *testing.T) {
	cfg := testConfig(t, testutil.SalesCSV)
	cfg.Reports = []config.ReportSpec{{
		Name:        "Sales by Date",
		GroupBy:     "Date",
		Measure:     "TotalPrice",
		Aggregation: config.AggSum,
		Label:       "Revenue",
	}}
	require.NoError(t, cfg.Validate())

	res, err := New(cfg, nil).Run(context.Background())
	require.NoError(t, err)

	wb := testutil.ReadWorkbook(t, res.OutputPath)
	assert.Equal(t, [][]string{
		{"Date", "Revenue"},
		{"2024-01-01", "15"},
		{"2024-01-02", "7"},
	}, wb.Rows["Sales by Date"])
}

func TestRun_DirtyData(t *testing.T) {
	csv := `TransactionID,Date,ProductName,Category,Region,SalespersonID,Quantity,UnitPrice,TotalPrice
T1,2024-01-01,Widget,Hardware,North,S1,2,5.00,10.00
T2,not-a-date,Gadget,Hardware,South,S2,1,5.00,5.00
T3,2024/01/02,Manual,,North,S1,1,7.00,$7.00
T4,2024-01-02,Cable,Hardware,South,S3,1,n/a,oops
`
	cfg := testConfig(t, csv)
	p := New(cfg, nil)

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, res.RowsLoaded)
	assert.Equal(t, 3, res.RowsKept)
	assert.Equal(t, 1, res.RowsDropped)

	m := p.Metrics()
	assert.Equal(t, float64(1), promtestutil.ToFloat64(m.RowsDropped.WithLabelValues(dataprocessing.DropInvalidDate)))
	assert.Equal(t, float64(0), promtestutil.ToFloat64(m.RowsDropped.WithLabelValues(dataprocessing.DropMissingRequired)))
	assert.Equal(t, float64(2), promtestutil.ToFloat64(m.CellsFilled.WithLabelValues(dataprocessing.FillNumeric)))
	assert.Equal(t, float64(1), promtestutil.ToFloat64(m.CellsFilled.WithLabelValues(dataprocessing.FillCategorical)))

	wb := testutil.ReadWorkbook(t, res.OutputPath)
	assert.Equal(t, [][]string{
		{"Category", "Total Revenue"},
		{"Hardware", "10"},
		{"Unknown", "7"},
	}, wb.Rows["Sales by Category"])
}

func TestRun_MissingMeasureColumn(t *testing.T) {
	cfg := testConfig(t, testutil.SalesCSV)
	cfg.AdHoc = config.AdHocReport{GroupBy: "Date", Measure: "Discount", Aggregation: "sum"}
	cfg.Reports = []config.ReportSpec{cfg.AdHoc.Spec()}
	require.NoError(t, cfg.Validate())
	p := New(cfg, nil)

	res, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, errors.ErrTypeTransform, errors.TypeOf(err))
	assert.Equal(t, errors.ExitTransform, errors.ExitCode(err))
	assert.Contains(t, err.Error(), `column "Discount" not found`)

	_, statErr := os.Stat(filepath.Join(cfg.Output.ReportDir, reportFile))
	assert.True(t, os.IsNotExist(statErr), "failed run must not leave a workbook")
	assert.Equal(t, float64(0), promtestutil.ToFloat64(p.Metrics().LastSuccess))
}

func TestRun_EmptyInput(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{name: "empty file", csv: ""},
		{name: "header only", csv: "TransactionID,Date,ProductName,Category,Region,SalespersonID,Quantity,UnitPrice,TotalPrice\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, tt.csv)

			res, err := New(cfg, nil).Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 0, res.RowsLoaded)
			assert.Equal(t, []string{exporter.NoDataSheet}, res.Sheets)

			wb := testutil.ReadWorkbook(t, res.OutputPath)
			assert.Equal(t, [][]string{{exporter.NoDataColumn}, {exporter.NoDataMessage}}, wb.Rows[exporter.NoDataSheet])
		})
	}
}

func TestRun_EmptyInputWithRequiredColumns(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Cleaning.RequiredColumns = []string{"Date"}

	res, err := New(cfg, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{exporter.NoDataSheet}, res.Sheets)
	assert.FileExists(t, filepath.Join(cfg.Output.ReportDir, reportFile))
}

func TestRun_InputNotFound(t *testing.T) {
	cfg := testConfig(t, testutil.SalesCSV)
	cfg.Input.SalesDataFile = filepath.Join(t.TempDir(), "missing.csv")

	_, err := New(cfg, nil).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrTypeNotFound, errors.TypeOf(err))
	assert.Equal(t, errors.ExitInput, errors.ExitCode(err))

	entries, readErr := os.ReadDir(cfg.Output.ReportDir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestRun_Idempotent(t *testing.T) {
	cfg := testConfig(t, testutil.SalesCSV)

	first, err := New(cfg, nil).Run(context.Background())
	require.NoError(t, err)
	before := testutil.ReadWorkbook(t, first.OutputPath)

	second, err := New(cfg, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.OutputPath, second.OutputPath)
	assert.Equal(t, before, testutil.ReadWorkbook(t, second.OutputPath))
}

func TestRun_Cancelled(t *testing.T) {
	cfg := testConfig(t, testutil.SalesCSV)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(cfg, nil).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, errors.ExitFailure, errors.ExitCode(err))

	_, statErr := os.Stat(filepath.Join(cfg.Output.ReportDir, reportFile))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_MetricsTextfile(t *testing.T) {
	cfg := testConfig(t, testutil.SalesCSV)
	cfg.Metrics.TextfilePath = filepath.Join(t.TempDir(), "textfile", "salesreport.prom")
	start := time.Date(2024, 1, 2, 6, 0, 0, 0, time.UTC)

	_, err := New(cfg, nil, WithClock(func() time.Time { return start })).Run(context.Background())
	require.NoError(t, err)

	content, err := os.ReadFile(cfg.Metrics.TextfilePath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "salesreport_rows_loaded 3")
	assert.Contains(t, string(content), "salesreport_last_run_success 1")
	assert.Contains(t, string(content), `salesreport_rows_dropped{reason="invalid_date"} 0`)
}

func TestRun_ReportDateDefaultsToClock(t *testing.T) {
	cfg := testConfig(t, testutil.SalesCSV)
	cfg.Output.ReportDate = ""
	now := time.Date(2025, 7, 4, 9, 30, 0, 0, time.UTC)

	res, err := New(cfg, nil, WithClock(func() time.Time { return now })).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Daily_Sales_Report_2025-07-04.xlsx", filepath.Base(res.OutputPath))
}

func TestRun_CSVExport(t *testing.T) {
	cfg := testConfig(t, testutil.SalesCSV)
	cfg.Output.ExportCSV = true

	res, err := New(cfg, nil).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.CSVFiles, len(res.Sheets))
	for _, path := range res.CSVFiles {
		assert.FileExists(t, path)
	}
}

func TestRun_StageSpans(t *testing.T) {
	traceFile := filepath.Join(t.TempDir(), "trace.json")
	tracing, err := infrastructure.InitializeTracing(config.TracingConfig{Enabled: true, Output: traceFile}, nil)
	require.NoError(t, err)

	cfg := testConfig(t, testutil.SalesCSV)
	_, err = New(cfg, nil, WithTracer(tracing.Tracer())).Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, tracing.Shutdown(context.Background()))

	content, err := os.ReadFile(traceFile)
	require.NoError(t, err)
	for _, name := range []string{"pipeline", "pipeline.load", "pipeline.clean", "pipeline.aggregate", "pipeline.export"} {
		assert.Contains(t, string(content), `"Name": "`+name+`"`)
	}
}
