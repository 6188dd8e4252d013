package dataprocessing

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesreport/internal/errors"
	"salesreport/internal/shared/testutil"
)

func TestLoader_Load(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantCols []string
		wantRows [][]string
		wantType errors.ErrorType
		wantErr  string
	}{
		{
			name:     "simple file",
			content:  "Date,Sales\n2024-01-01,10\n2024-01-02,7\n",
			wantCols: []string{"Date", "Sales"},
			wantRows: [][]string{{"2024-01-01", "10"}, {"2024-01-02", "7"}},
		},
		{
			name:     "bom and padded header",
			content:  "\xEF\xBB\xBF Date , Sales\n2024-01-01,10\n",
			wantCols: []string{"Date", "Sales"},
			wantRows: [][]string{{"2024-01-01", "10"}},
		},
		{
			name:     "blank header becomes unnamed",
			content:  "Date,,Sales\n2024-01-01,x,10\n",
			wantCols: []string{"Date", "Unnamed: 1", "Sales"},
			wantRows: [][]string{{"2024-01-01", "x", "10"}},
		},
		{
			name:     "quoted fields",
			content:  "Product,Sales\n\"Widget, large\",\"1,000\"\n",
			wantCols: []string{"Product", "Sales"},
			wantRows: [][]string{{"Widget, large", "1,000"}},
		},
		{
			name:     "header only",
			content:  "Date,Sales\n",
			wantCols: []string{"Date", "Sales"},
			wantRows: [][]string{},
		},
		{
			name:     "empty file",
			content:  "",
			wantCols: []string{},
			wantRows: [][]string{},
		},
		{
			name:     "inconsistent column count",
			content:  "Date,Sales\n2024-01-01,10\n2024-01-02\n",
			wantType: errors.ErrTypeInput,
			wantErr:  "line 3",
		},
		{
			name:     "bad quoting",
			content:  "Date,Sales\n2024-01-01,\"10\n",
			wantType: errors.ErrTypeInput,
			wantErr:  "malformed CSV",
		},
		{
			name:     "invalid utf-8",
			content:  "Date,Sales\n2024-01-01,\xff\xfe\n",
			wantType: errors.ErrTypeInput,
			wantErr:  "unsupported encoding",
		},
		{
			name:     "duplicate header",
			content:  "Date,Sales,Date\n2024-01-01,10,2024-01-01\n",
			wantType: errors.ErrTypeInput,
			wantErr:  `duplicate column "Date"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.WriteFile(t, t.TempDir(), "sales.csv", tt.content)
			loader := NewLoader(nil)

			table, err := loader.Load(context.Background(), path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantType, errors.TypeOf(err))
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantCols, table.Columns())
			assert.Equal(t, len(tt.wantRows), table.Len())
			assert.Equal(t, tt.wantRows, table.Records()[1:])
		})
	}
}

func TestLoader_LoadMissingFile(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	loader := NewLoader(logger)

	_, err := loader.Load(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrTypeNotFound, errors.TypeOf(err))
	assert.Equal(t, errors.ExitInput, errors.ExitCode(err))
	testutil.AssertLogContains(t, logs, slog.LevelError, "not found")
}

func TestLoader_LoadDirectory(t *testing.T) {
	_, err := NewLoader(nil).Load(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.Equal(t, errors.ErrTypeInput, errors.TypeOf(err))
	assert.Contains(t, err.Error(), "directory")
}

func TestLoader_LoadEmptyWarns(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	table, err := NewLoader(logger).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
	testutil.AssertLogContains(t, logs, slog.LevelWarn, "empty")
}
