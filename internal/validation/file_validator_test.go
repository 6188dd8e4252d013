package validation

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

func TestFileValidator_ValidateFile(t *testing.T) {
	tests := []struct {
		name          string
		setupFunc     func(t *testing.T) string
		wantType      errors.ErrorType
		errorContains string
	}{
		{
			name: "readable file",
			setupFunc: func(t *testing.T) string {
				return testutil.WriteFile(t, t.TempDir(), "sales.csv", "Date\n")
			},
		},
		{
			name: "non-existent file",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.csv")
			},
			wantType:      errors.ErrTypeNotFound,
			errorContains: "sales data file not found",
		},
		{
			name: "path is directory",
			setupFunc: func(t *testing.T) string {
				return t.TempDir()
			},
			wantType:      errors.ErrTypeInput,
			errorContains: "directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := NewFileValidator(slog.Default())
			path := tt.setupFunc(t)

			err := validator.ValidateFile(context.Background(), path)

			if tt.wantType == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantType, errors.TypeOf(err))
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestFileValidator_ValidateCSVFile(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	validator := NewFileValidator(logger)
	dir := t.TempDir()

	require.NoError(t, validator.ValidateCSVFile(context.Background(), testutil.WriteFile(t, dir, "sales.CSV", "a\n")))
	_, warned := logs.Find(slog.LevelWarn, "extension")
	assert.False(t, warned)

	require.NoError(t, validator.ValidateCSVFile(context.Background(), testutil.WriteFile(t, dir, "sales.txt", "a\n")))
	testutil.AssertLogContains(t, logs, slog.LevelWarn, "extension")
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	tests := []struct {
		name      string
		setupFunc func(t *testing.T) string
		wantErr   bool
	}{
		{
			name: "existing directory",
			setupFunc: func(t *testing.T) string {
				return t.TempDir()
			},
		},
		{
			name: "non-existent directory (should be created)",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "new", "nested", "dir")
			},
		},
		{
			name: "parent is a file",
			setupFunc: func(t *testing.T) string {
				file := testutil.WriteFile(t, t.TempDir(), "blocker", "x")
				return filepath.Join(file, "reports")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := NewFileValidator(slog.Default())
			dir := tt.setupFunc(t)

			err := validator.ValidateOutputDirectory(context.Background(), dir)

			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.ErrTypeOutput, errors.TypeOf(err))
				return
			}
			require.NoError(t, err)
			info, err := os.Stat(dir)
			require.NoError(t, err)
			assert.True(t, info.IsDir())

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries, "probe file must be removed")
		})
	}
}
