// Package testutil generates dynamic test data for the ingestion
// pipeline's tests.
package testutil

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/guarzo/cardseed/internal/model"
)

// Factory produces randomized but well-formed domain values from a
// seeded generator, so failures reproduce.
type Factory struct {
	rand *rand.Rand
}

// NewFactory creates a factory. A zero seed uses the current time.
func NewFactory(seed int64) *Factory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{rand: rand.New(rand.NewSource(seed))}
}

// CardNumber generates a zero-padded in-set number.
func (f *Factory) CardNumber() string {
	return fmt.Sprintf("%03d", f.rand.Intn(204)+1)
}

// PromoNumber generates a promo slash-notation number.
func (f *Factory) PromoNumber() string {
	return fmt.Sprintf("%d/P%d", f.rand.Intn(30)+1, f.rand.Intn(4)+1)
}

// SeriesCode generates a plausible series code.
func (f *Factory) SeriesCode() string {
	codes := []string{"tfc1", "ri2", "ink3", "urs4", "ss5"}
	return codes[f.rand.Intn(len(codes))]
}

// CardName generates a display name.
func (f *Factory) CardName() string {
	names := []string{"Elsa Snow Queen", "Mickey Mouse Brave Little Tailor", "Stitch Rock Star", "Maui Demigod", "Cruella de Vil"}
	return names[f.rand.Intn(len(names))]
}

// Rarity generates a raw rarity label, sometimes aliased.
func (f *Factory) Rarity() string {
	labels := []string{"common", "uncommon", "rare", "super rare", "Super-Rare", "legendary", "promo"}
	return labels[f.rand.Intn(len(labels))]
}

// Slug generates a parseable card detail slug.
func (f *Factory) Slug() string {
	return fmt.Sprintf("%s-%s-rare-test-card-%d", f.SeriesCode(), f.CardNumber(), f.rand.Intn(1000))
}

// Card generates a complete card record.
func (f *Factory) Card() model.Card {
	series := f.SeriesCode()
	number := f.CardNumber()
	return model.Card{
		SeriesCode: series,
		Number:     number,
		Language:   model.LangEnglish,
		Name:       f.CardName(),
		Rarity:     "rare",
		Finish:     model.FinishStandard,
		Attributes: map[string]string{"cost": fmt.Sprintf("%d", f.rand.Intn(9)+1)},
		ImageURL:   fmt.Sprintf("https://cdn.cardsite.test/cards/%s/en/%s.webp", series, number),
	}
}

// Series generates a catalog entry.
func (f *Factory) Series() model.Series {
	return model.Series{
		Code:          f.SeriesCode(),
		Name:          "Test Series",
		Game:          "lorcana",
		Languages:     []model.Language{model.LangEnglish, model.LangFrench},
		ExpectedCards: 204,
	}
}
