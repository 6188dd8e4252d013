package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVWriter_WriteSimpleCSV(t *testing.T) {
	writer := NewCSVWriter(nil)
	filePath := filepath.Join(t.TempDir(), "reports", "simple_test.csv")

	headers := []string{"Category", "Total Revenue"}
	records := [][]string{
		{"Hardware", "15"},
		{"Books", "7.5"},
	}

	require.NoError(t, writer.WriteSimpleCSV(context.Background(), filePath, headers, records))

	content, err := os.ReadFile(filePath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte{0xEF, 0xBB, 0xBF}))

	lines := strings.Split(strings.TrimSpace(string(content[3:])), "\n")
	assert.Equal(t, []string{"Category,Total Revenue", "Hardware,15", "Books,7.5"}, lines)
}

func TestCSVWriter_Overwrites(t *testing.T) {
	writer := NewCSVWriter(nil)
	filePath := filepath.Join(t.TempDir(), "overwrite_test.csv")

	require.NoError(t, writer.WriteSimpleCSV(context.Background(), filePath, []string{"Col1", "Col2"}, [][]string{{"a", "b"}, {"c", "d"}}))
	require.NoError(t, writer.WriteSimpleCSV(context.Background(), filePath, []string{"Col1", "Col2"}, [][]string{{"e", "f"}}))

	content, err := os.ReadFile(filePath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content[3:])), "\n")
	assert.Equal(t, []string{"Col1,Col2", "e,f"}, lines)
}

func TestCSVWriter_SpecialCharacters(t *testing.T) {
	writer := NewCSVWriter(nil)
	filePath := filepath.Join(t.TempDir(), "special_chars.csv")

	headers := []string{"Name", "Notes"}
	records := [][]string{
		{"Company, Inc", "Description with \"quotes\""},
		{"Café", "Notes with\nnewlines"},
	}
	require.NoError(t, writer.WriteSimpleCSV(context.Background(), filePath, headers, records))

	content, err := os.ReadFile(filePath)
	require.NoError(t, err)

	all, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(content, []byte{0xEF, 0xBB, 0xBF}))).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, append([][]string{headers}, records...), all)
}

func TestCSVWriter_ErrorScenarios(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	err := NewCSVWriter(nil).WriteSimpleCSV(context.Background(), filepath.Join(blocker, "out.csv"), []string{"a"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create directory")
}
