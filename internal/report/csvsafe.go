// Package report exports stored card records to spreadsheet-friendly
// CSV. Card names and attribute values come straight from scraped
// pages, so every cell is escaped against formula injection before it
// reaches a spreadsheet.
package report

import (
	"strings"
)

// EscapeCSVCell neutralizes cells a spreadsheet would evaluate as a
// formula by prefixing them with a single quote.
func EscapeCSVCell(value string) string {
	if value == "" {
		return value
	}

	switch value[0] {
	case '=', '+', '-', '@', '|', '%':
		return "'" + value
	}

	// Leading control whitespace can smuggle a formula past the
	// first-character check.
	if strings.HasPrefix(value, "\t") || strings.HasPrefix(value, "\r") || strings.HasPrefix(value, "\n") {
		return "'" + value
	}

	return value
}

// EscapeCSVRow escapes every cell in a row.
func EscapeCSVRow(row []string) []string {
	escaped := make([]string, len(row))
	for i, cell := range row {
		escaped[i] = EscapeCSVCell(cell)
	}
	return escaped
}
