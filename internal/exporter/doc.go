// Package exporter writes aggregated sales reports to disk.
//
// This package contains two components:
//
// Exporter: Lays reports out in an Excel workbook (one sheet per report, bold
// frozen header row, numeric value cells) and writes it atomically through a
// temporary file in the target directory. When there are no reports the
// workbook holds a single "No Data" sheet.
//
// CSVWriter: Core CSV writing with headers, append mode and a UTF-8 BOM for
// Excel compatibility. The Exporter uses it for the optional per-report CSV
// side-car files.
//
// Example usage:
//
//	exp := exporter.NewExporter(logger, exporter.Options{ExportCSV: true})
//	name := exporter.FileName(cfg.Output.FilePrefix, cfg.ReportTime(time.Now()))
//	out, err := exp.Export(ctx, cfg.Output.ReportDir, name, reports)
package exporter
