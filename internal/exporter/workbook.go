package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"salesreport/internal/config"
	"salesreport/internal/dataprocessing"
	"salesreport/internal/errors"
)

// Placeholder sheet written when there are no reports.
const (
	NoDataSheet   = "No Data"
	NoDataColumn  = "Message"
	NoDataMessage = "No data available for reports."
)

const (
	maxSheetName = 31
	minColWidth  = 10.0
	maxColWidth  = 60.0
	headerFill   = "#D9E1F2"
)

// Options configures an Exporter.
type Options struct {
	// ExportCSV also writes one CSV file per report next to the workbook.
	ExportCSV bool
}

// Output describes what an export wrote.
type Output struct {
	Path     string
	Sheets   []string
	CSVFiles []string
}

// Exporter writes reports to an Excel workbook.
type Exporter struct {
	logger *slog.Logger
	csv    *CSVWriter
	opts   Options
}

// NewExporter creates an exporter. A nil logger falls back to slog.Default.
func NewExporter(logger *slog.Logger, opts Options) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		logger: logger,
		csv:    NewCSVWriter(logger),
		opts:   opts,
	}
}

// FileName returns the workbook name for a report date.
func FileName(prefix string, date time.Time) string {
	if prefix == "" {
		prefix = config.DefaultFilePrefix
	}
	return fmt.Sprintf("%s_%s%s", prefix, date.Format(config.DateLayout), config.WorkbookExt)
}

// Export writes reports to dir/fileName, one sheet per report in order. The
// directory is created if needed. The workbook is written to a temporary
// file and renamed into place, so a failed export leaves nothing behind.
func (e *Exporter) Export(ctx context.Context, dir, fileName string, reports []dataprocessing.Report) (*Output, error) {
	path := filepath.Join(dir, fileName)
	e.logger.InfoContext(ctx, "Saving reports", slog.String("path", path), slog.Int("reports", len(reports)))

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.NewOutputError("failed to create output directory", err).WithContext("dir", dir)
	}

	if len(reports) == 0 {
		e.logger.WarnContext(ctx, "No reports to save, writing placeholder sheet")
	}

	f, sheets, err := BuildWorkbook(reports)
	if err != nil {
		return nil, errors.NewOutputError("failed to build workbook", err).WithContext("path", path)
	}
	defer f.Close()

	if err := writeAtomic(f, dir, path); err != nil {
		return nil, errors.NewOutputError("failed to write workbook", err).WithContext("path", path)
	}
	for _, sheet := range sheets {
		e.logger.DebugContext(ctx, "Sheet saved", slog.String("sheet", sheet))
	}

	out := &Output{Path: path, Sheets: sheets}

	if e.opts.ExportCSV && len(reports) > 0 {
		files, err := e.writeCSVFiles(ctx, path, sheets, reports)
		if err != nil {
			os.Remove(path)
			return nil, errors.NewOutputError("failed to write CSV export", err).WithContext("path", path)
		}
		out.CSVFiles = files
	}

	e.logger.InfoContext(ctx, "Saved all reports",
		slog.String("path", path),
		slog.Any("sheets", sheets))
	return out, nil
}

// BuildWorkbook lays the reports out in an in-memory workbook and returns it
// with the final sheet names.
func BuildWorkbook(reports []dataprocessing.Report) (*excelize.File, []string, error) {
	if len(reports) == 0 {
		reports = []dataprocessing.Report{noDataReport()}
	}

	f := excelize.NewFile()
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("create header style: %w", err)
	}

	names := sheetNames(reports)
	for i, report := range reports {
		sheet := names[i]
		if i == 0 {
			err = f.SetSheetName(f.GetSheetName(0), sheet)
		} else {
			_, err = f.NewSheet(sheet)
		}
		if err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("create sheet %q: %w", sheet, err)
		}
		if err := writeSheet(f, sheet, report, headerStyle); err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("write sheet %q: %w", sheet, err)
		}
	}
	f.SetActiveSheet(0)
	return f, names, nil
}

func writeSheet(f *excelize.File, sheet string, report dataprocessing.Report, headerStyle int) error {
	header := make([]interface{}, len(report.Columns))
	widths := make([]int, len(report.Columns))
	for i, col := range report.Columns {
		header[i] = col
		widths[i] = utf8.RuneCountInString(col)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for r, row := range report.Rows {
		cells := make([]interface{}, 0, len(row.Values)+1)
		cells = append(cells, row.Key)
		for _, v := range row.Values {
			cells = append(cells, cellValue(v))
		}
		for i := range cells {
			if i < len(widths) {
				widths[i] = max(widths[i], utf8.RuneCountInString(cellText(cells[i])))
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}

	if len(report.Columns) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(report.Columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		width := min(max(float64(w)+2, minColWidth), maxColWidth)
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}
	return nil
}

func noDataReport() dataprocessing.Report {
	return dataprocessing.Report{
		Name:    NoDataSheet,
		Columns: []string{NoDataColumn},
		Rows:    []dataprocessing.Row{{Key: NoDataMessage}},
	}
}

// sheetNames maps report names to valid, unique worksheet names.
func sheetNames(reports []dataprocessing.Report) []string {
	names := make([]string, len(reports))
	used := make(map[string]bool, len(reports))
	for i, r := range reports {
		base := SanitizeSheetName(r.Name)
		name := base
		for n := 2; used[strings.ToLower(name)]; n++ {
			suffix := fmt.Sprintf(" (%d)", n)
			name = truncateRunes(base, maxSheetName-len(suffix)) + suffix
		}
		used[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}

// SanitizeSheetName applies Excel's worksheet naming rules: at most 31
// characters, none of :\/?*[] and no leading or trailing apostrophe.
func SanitizeSheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(strings.TrimSpace(name), "'")
	name = truncateRunes(name, maxSheetName)
	if strings.TrimSpace(name) == "" {
		return "Sheet"
	}
	return name
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// writeAtomic serializes f to a temporary file in dir and renames it to path.
func writeAtomic(f *excelize.File, dir, path string) error {
	tmp, err := os.CreateTemp(dir, ".salesreport-*"+config.WorkbookExt)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if err := f.Write(tmp); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}

func (e *Exporter) writeCSVFiles(ctx context.Context, workbook string, sheets []string, reports []dataprocessing.Report) ([]string, error) {
	base := strings.TrimSuffix(workbook, filepath.Ext(workbook))
	files := make([]string, 0, len(reports))
	for i, report := range reports {
		path := fmt.Sprintf("%s_%s.csv", base, strings.ReplaceAll(sheets[i], " ", "_"))
		if err := e.csv.WriteSimpleCSV(ctx, path, report.Columns, reportRecords(report)); err != nil {
			for _, written := range files {
				os.Remove(written)
			}
			os.Remove(path)
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}

func reportRecords(report dataprocessing.Report) [][]string {
	records := make([][]string, len(report.Rows))
	for i, row := range report.Rows {
		record := make([]string, 0, len(row.Values)+1)
		record = append(record, row.Key)
		for _, v := range row.Values {
			record = append(record, formatDecimal(v))
		}
		records[i] = record
	}
	return records
}
