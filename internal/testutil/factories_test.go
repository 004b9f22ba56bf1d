package testutil

import (
	"testing"

	"github.com/guarzo/cardseed/internal/model"
	"github.com/guarzo/cardseed/internal/parse"
)

func TestFactoryDeterminism(t *testing.T) {
	a := NewFactory(42)
	b := NewFactory(42)

	for i := 0; i < 10; i++ {
		if a.Slug() != b.Slug() {
			t.Fatal("same seed produced different slugs")
		}
	}
}

func TestFactorySlugsParse(t *testing.T) {
	f := NewFactory(7)
	for i := 0; i < 50; i++ {
		slug := f.Slug()
		if _, err := parse.Slug(slug, nil); err != nil {
			t.Errorf("generated slug %q does not parse: %v", slug, err)
		}
	}
}

func TestFactoryCard(t *testing.T) {
	f := NewFactory(1)
	card := f.Card()

	if card.SeriesCode == "" || card.Number == "" {
		t.Errorf("card missing key fields: %+v", card)
	}
	if card.Language != model.LangEnglish {
		t.Errorf("Language = %q, want en", card.Language)
	}
	if card.Key() == "" {
		t.Error("card has empty key")
	}
}

func TestFactoryPromoNumber(t *testing.T) {
	f := NewFactory(3)
	for i := 0; i < 20; i++ {
		n := f.PromoNumber()
		if model.ClassifyNumber(n) != model.NumberPromo {
			t.Errorf("PromoNumber() = %q, not classified as promo", n)
		}
	}
}
