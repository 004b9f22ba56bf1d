package parse

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractAttributes reads the game-specific stat table from a card
// detail page into an open key/value bag (power, cost, colors, effect
// text, illustrator and whatever else the game renders). Missing table
// means an empty bag, not an error.
func ExtractAttributes(html string) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	attrs := make(map[string]string)
	doc.Find(".card-attributes tr").Each(func(_ int, row *goquery.Selection) {
		key := strings.TrimSpace(row.Find("th").First().Text())
		value := strings.TrimSpace(row.Find("td").First().Text())
		if key == "" || value == "" {
			return
		}
		attrs[normalizeAttrKey(key)] = value
	})

	// Some layouts use definition lists instead of tables.
	doc.Find(".card-attributes dt").Each(func(_ int, dt *goquery.Selection) {
		key := strings.TrimSpace(dt.Text())
		value := strings.TrimSpace(dt.Next().Filter("dd").Text())
		if key == "" || value == "" {
			return
		}
		attrs[normalizeAttrKey(key)] = value
	})

	return attrs, nil
}

func normalizeAttrKey(key string) string {
	key = strings.ToLower(key)
	key = strings.TrimSuffix(key, ":")
	return strings.ReplaceAll(strings.TrimSpace(key), " ", "_")
}
