package dataprocessing

import (
	"bytes"
	"context"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"salesreport/internal/errors"
	"salesreport/internal/validation"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Loader reads raw sales CSV files into tables.
type Loader struct {
	logger    *slog.Logger
	validator *validation.FileValidator
}

// NewLoader creates a loader. A nil logger falls back to slog.Default.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger, validator: validation.NewFileValidator(logger)}
}

// Load reads the CSV file at path. An empty or header-only file yields an
// empty table rather than an error.
func (l *Loader) Load(ctx context.Context, path string) (*Table, error) {
	l.logger.InfoContext(ctx, "Loading sales data", slog.String("path", path))

	if err := l.validator.ValidateCSVFile(ctx, path); err != nil {
		return nil, err
	}

	data, err := readFile(path)
	if err != nil {
		return nil, errors.NewInputError("failed to read sales data file", err).WithContext("path", path)
	}

	table, err := Parse(data)
	if err != nil {
		l.logger.ErrorContext(ctx, "Failed to parse sales data",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, errors.NewInputError("failed to parse sales data file", err).WithContext("path", path)
	}

	if table.Len() == 0 {
		l.logger.WarnContext(ctx, "Sales data file is empty", slog.String("path", path))
		return table, nil
	}

	l.logger.InfoContext(ctx, "Loaded sales data",
		slog.String("path", path),
		slog.Int("rows", table.Len()),
		slog.Int("columns", len(table.Columns())))
	return table, nil
}

func readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}

// Parse decodes CSV content into a table. The first record is the header.
func Parse(data []byte) (*Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("unsupported encoding: input is not valid UTF-8")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &Table{}, nil
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = 0

	records, err := reader.ReadAll()
	if err != nil {
		var perr *csv.ParseError
		if stderrors.As(err, &perr) {
			return nil, fmt.Errorf("malformed CSV at line %d: %w", perr.Line, perr.Err)
		}
		return nil, fmt.Errorf("malformed CSV: %w", err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}

	header, err := normalizeHeader(records[0])
	if err != nil {
		return nil, err
	}
	return NewTable(header, records[1:])
}

// normalizeHeader trims names, labels blank ones by position and rejects
// duplicates.
func normalizeHeader(raw []string) ([]string, error) {
	header := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, name := range raw {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if first, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate column %q at positions %d and %d", name, first+1, i+1)
		}
		seen[name] = i
		header[i] = name
	}
	return header, nil
}
