package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/guarzo/cardseed/internal/model"
)

const sampleYAML = `
series:
  - code: tfc1
    name: The First Chapter
    game: lorcana
    languages: [en, fr, de]
    expectedCards: 204
  - code: ri2
    name: Rise of the Floodborn
    game: lorcana
    languages: [en]
    expectedCards: 204
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(c.Series) != 2 {
		t.Fatalf("expected 2 series, got %d", len(c.Series))
	}

	s, ok := c.FindSeries("tfc1")
	if !ok {
		t.Fatal("FindSeries(tfc1) not found")
	}
	if s.ExpectedCards != 204 {
		t.Errorf("ExpectedCards = %d", s.ExpectedCards)
	}
	if !s.HasLanguage(model.LangFrench) {
		t.Error("expected fr available for tfc1")
	}

	if _, ok := c.FindSeries("nope"); ok {
		t.Error("FindSeries should miss unknown code")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.Series) != 2 {
		t.Errorf("expected 2 series, got %d", len(c.Series))
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no series", `series: []`},
		{"missing code", "series:\n  - name: X\n    languages: [en]"},
		{"duplicate code", "series:\n  - code: a\n    languages: [en]\n  - code: a\n    languages: [en]"},
		{"no languages", "series:\n  - code: a\n    languages: []"},
		{"bad language", "series:\n  - code: a\n    languages: [xx]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Errorf("expected error for %s", tt.name)
			}
		})
	}
}

func TestNormalizer_DefaultsWhenNoOverride(t *testing.T) {
	c, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	n, err := c.Normalizer()
	if err != nil {
		t.Fatal(err)
	}
	if got := n.Normalize("super rare"); got != "super-rare" {
		t.Errorf("default normalizer missing, Normalize = %q", got)
	}
}

func TestNormalizer_Override(t *testing.T) {
	c, err := Parse([]byte(sampleYAML + `
rarities:
  games: [custom]
  tables:
    custom:
      shiny: [shiny, glitter]
  groups: []
`))
	if err != nil {
		t.Fatal(err)
	}
	n, err := c.Normalizer()
	if err != nil {
		t.Fatal(err)
	}
	if got := n.Normalize("Glitter"); got != "shiny" {
		t.Errorf("override Normalize = %q, want shiny", got)
	}
	if got := n.Normalize("super rare"); got != "" {
		t.Errorf("override should replace defaults, got %q", got)
	}
}

func TestNormalizer_BadOverrideIsFatal(t *testing.T) {
	c, err := Parse([]byte(sampleYAML + `
rarities:
  games: [custom]
  tables:
    custom:
      a: [x]
      b: [x]
  groups: []
`))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Normalizer(); err == nil {
		t.Fatal("expected alias collision to be a fatal config error")
	}
}
