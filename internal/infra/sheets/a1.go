package sheets

import (
	"fmt"
	"strings"
)

// columnName converts a zero-based column index to its A1 letters.
func columnName(idx int64) string {
	var b []byte
	for n := idx + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

// quoteSheet quotes a worksheet title for use in A1 notation.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// rowRange returns the A1 range covering width cells of one row.
// row is one based; startColumn is zero based.
func rowRange(sheet string, row, startColumn int64, width int) string {
	return fmt.Sprintf("%s!%s%d:%s%d",
		quoteSheet(sheet),
		columnName(startColumn), row,
		columnName(startColumn+int64(width)-1), row,
	)
}
