package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/guarzo/cardseed/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cards.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testCard() model.Card {
	return model.Card{
		SeriesCode: "tfc1",
		Number:     "042",
		Language:   model.LangEnglish,
		Name:       "Elsa Snow Queen",
		Rarity:     "rare",
		Finish:     model.FinishStandard,
		Attributes: map[string]string{"ink": "amethyst", "cost": "4"},
		ImageURL:   "https://cdn.test/cards/tfc1/en/042.webp",
	}
}

func TestUpsertCard_InsertThenQuery(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.UpsertCard(ctx, testCard()); err != nil {
		t.Fatal(err)
	}

	cards, err := s.QueryCards(ctx, Filter{SeriesCode: "tfc1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(cards) != 1 {
		t.Fatalf("got %d cards", len(cards))
	}

	got := cards[0]
	if got.Name != "Elsa Snow Queen" || got.Rarity != "rare" {
		t.Errorf("got %+v", got)
	}
	if got.Attributes["ink"] != "amethyst" {
		t.Errorf("attributes not round-tripped: %v", got.Attributes)
	}
}

func TestUpsertCard_ReplaceOnConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.UpsertCard(ctx, testCard()); err != nil {
		t.Fatal(err)
	}

	updated := testCard()
	updated.Name = "Elsa the Snow Queen"
	updated.Rarity = "super-rare"
	if err := s.UpsertCard(ctx, updated); err != nil {
		t.Fatal(err)
	}

	cards, err := s.QueryCards(ctx, Filter{SeriesCode: "tfc1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(cards) != 1 {
		t.Fatalf("upsert duplicated: %d rows for one key", len(cards))
	}
	if cards[0].Name != "Elsa the Snow Queen" || cards[0].Rarity != "super-rare" {
		t.Errorf("replace semantics violated: %+v", cards[0])
	}
}

func TestUpsertCard_LanguageIsPartOfKey(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	en := testCard()
	fr := testCard()
	fr.Language = model.LangFrench
	fr.Name = "Elsa Reine des Neiges"

	if err := s.UpsertCard(ctx, en); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertCard(ctx, fr); err != nil {
		t.Fatal(err)
	}

	cards, err := s.QueryCards(ctx, Filter{SeriesCode: "tfc1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(cards) != 2 {
		t.Fatalf("expected 2 rows (one per language), got %d", len(cards))
	}

	frOnly, err := s.QueryCards(ctx, Filter{Language: model.LangFrench})
	if err != nil {
		t.Fatal(err)
	}
	if len(frOnly) != 1 || frOnly[0].Name != "Elsa Reine des Neiges" {
		t.Errorf("language filter: %+v", frOnly)
	}
}

func TestAssets_RecordAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.RecordAsset(ctx, "tfc1/en/042.webp", "https://cdn.test/a"); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordAsset(ctx, "tfc1/en/043.webp", "https://cdn.test/b"); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordAsset(ctx, "tfc1/fr/042.webp", "https://cdn.test/c"); err != nil {
		t.Fatal(err)
	}
	// Overwrite, not duplicate.
	if err := s.RecordAsset(ctx, "tfc1/en/042.webp", "https://cdn.test/a2"); err != nil {
		t.Fatal(err)
	}

	keys, err := s.ListStoredAssetKeys(ctx, "tfc1", model.LangEnglish)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Errorf("expected 2 en keys, got %v", keys)
	}
	if !keys["tfc1/en/042.webp"] || !keys["tfc1/en/043.webp"] {
		t.Errorf("keys = %v", keys)
	}
}
