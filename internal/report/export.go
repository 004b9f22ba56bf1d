package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/guarzo/cardseed/internal/model"
)

var exportHeader = []string{"series", "number", "language", "name", "rarity", "finish", "image_url", "attributes"}

// WriteCSV writes card records as CSV, one row per card, in stable
// (series, ingestion-number, language) order with all cells escaped.
func WriteCSV(w io.Writer, cards []model.Card) error {
	sorted := make([]model.Card, len(cards))
	copy(sorted, cards)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.SeriesCode != b.SeriesCode {
			return a.SeriesCode < b.SeriesCode
		}
		if c := model.CompareNumbers(a.Number, b.Number); c != 0 {
			return c < 0
		}
		return a.Language < b.Language
	})

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, c := range sorted {
		row := []string{
			c.SeriesCode,
			c.Number,
			string(c.Language),
			c.Name,
			c.Rarity,
			string(c.Finish),
			c.ImageURL,
			flattenAttributes(c.Attributes),
		}
		if err := cw.Write(EscapeCSVRow(row)); err != nil {
			return fmt.Errorf("write row %s: %w", c.Key(), err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// flattenAttributes renders the attribute bag as "k=v; k=v" in key
// order so exports diff cleanly between runs.
func flattenAttributes(attrs map[string]string) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + attrs[k]
	}
	return strings.Join(parts, "; ")
}
