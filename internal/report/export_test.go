package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/guarzo/cardseed/internal/model"
)

func TestWriteCSV(t *testing.T) {
	cards := []model.Card{
		{
			SeriesCode: "tfc1", Number: "1/P1", Language: model.LangEnglish,
			Name: "Stitch Rock Star", Rarity: "promo", Finish: model.FinishStandard,
		},
		{
			SeriesCode: "tfc1", Number: "042", Language: model.LangEnglish,
			Name: "Elsa Snow Queen", Rarity: "rare", Finish: model.FinishStandard,
			Attributes: map[string]string{"cost": "4", "ink": "amethyst"},
			ImageURL:   "https://assets.test/tfc1/en/042.webp",
		},
		{
			SeriesCode: "tfc1", Number: "9", Language: model.LangEnglish,
			Name: "=EvilName", Rarity: "common", Finish: model.FinishAlternate,
		},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, cards); err != nil {
		t.Fatal(err)
	}

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatal(err)
	}

	if len(rows) != 4 {
		t.Fatalf("got %d rows", len(rows))
	}

	// Numeric ordering with promos last: 9, 042, then 1/P1.
	if rows[1][1] != "9" || rows[2][1] != "042" || rows[3][1] != "1/P1" {
		t.Errorf("row order = %q, %q, %q", rows[1][1], rows[2][1], rows[3][1])
	}

	if rows[1][3] != "'=EvilName" {
		t.Errorf("name cell not escaped: %q", rows[1][3])
	}
	if rows[2][7] != "cost=4; ink=amethyst" {
		t.Errorf("attributes cell = %q", rows[2][7])
	}
}
