package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// SalesCSV is a small, clean sales extract with the standard columns.
const SalesCSV = `TransactionID,Date,ProductName,Category,Region,SalespersonID,Quantity,UnitPrice,TotalPrice
T1,2024-01-01,Widget,Hardware,North,S1,2,5.00,10.00
T2,2024-01-01,Gadget,Hardware,South,S2,1,5.00,5.00
T3,2024-01-02,Manual,Books,North,S1,1,7.00,7.00
`

// WriteFile writes content to name under dir and returns the path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// Workbook is a workbook read back into memory.
type Workbook struct {
	Sheets []string
	Rows   map[string][][]string
}

// ReadWorkbook opens an xlsx file and returns the raw cell values of every
// sheet.
func ReadWorkbook(t *testing.T, path string) Workbook {
	t.Helper()

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	wb := Workbook{Sheets: f.GetSheetList(), Rows: map[string][][]string{}}
	for _, sheet := range wb.Sheets {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		require.NoError(t, err)
		wb.Rows[sheet] = rows
	}
	return wb
}
