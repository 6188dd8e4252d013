package exporter

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// formatDecimal renders a value for CSV output without trailing zeros
func formatDecimal(d decimal.Decimal) string {
	return d.String()
}

// cellValue converts a value to the number excelize stores in the sheet.
// Integral values are written as integers so they do not pick up a
// fractional part.
func cellValue(d decimal.Decimal) interface{} {
	if d.IsInteger() && d.Abs().LessThan(maxExactInt) {
		return d.IntPart()
	}
	return d.InexactFloat64()
}

// maxExactInt is the largest magnitude a spreadsheet double holds exactly.
var maxExactInt = decimal.New(1, 15)

// cellText is the text a cell shows, used to size columns.
func cellText(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return fmt.Sprintf("%d", x)
	case float64:
		return decimal.NewFromFloat(x).String()
	default:
		return fmt.Sprint(x)
	}
}
