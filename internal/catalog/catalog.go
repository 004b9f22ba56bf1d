// Package catalog loads the static series catalog and optional rarity
// overrides from a YAML file. The catalog is read once at startup and
// is read-only for the rest of the run.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/guarzo/cardseed/internal/model"
	"github.com/guarzo/cardseed/internal/rarity"
)

// Catalog is the parsed configuration file.
type Catalog struct {
	Series []model.Series `yaml:"series"`

	// Rarities optionally replaces the built-in alias tables. When
	// empty the defaults apply.
	Rarities *RarityConfig `yaml:"rarities,omitempty"`
}

// RarityConfig mirrors the rarity package's construction inputs.
type RarityConfig struct {
	Games  []string                `yaml:"games"`
	Tables map[string]rarity.Table `yaml:"tables"`
	Groups [][]string              `yaml:"groups"`
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes catalog YAML and validates it.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Series) == 0 {
		return fmt.Errorf("catalog: no series declared")
	}
	seen := make(map[string]bool)
	for _, s := range c.Series {
		if s.Code == "" {
			return fmt.Errorf("catalog: series %q has no code", s.Name)
		}
		if seen[s.Code] {
			return fmt.Errorf("catalog: duplicate series code %q", s.Code)
		}
		seen[s.Code] = true
		if len(s.Languages) == 0 {
			return fmt.Errorf("catalog: series %q declares no languages", s.Code)
		}
		for _, lang := range s.Languages {
			if _, err := model.ParseLanguage(string(lang)); err != nil {
				return fmt.Errorf("catalog: series %q: %w", s.Code, err)
			}
		}
	}
	return nil
}

// FindSeries returns the series with the given code, or false.
func (c *Catalog) FindSeries(code string) (model.Series, bool) {
	for _, s := range c.Series {
		if s.Code == code {
			return s, true
		}
	}
	return model.Series{}, false
}

// Normalizer builds the rarity normalizer for this catalog: the
// declared override tables when present, the package defaults
// otherwise. Alias table inconsistencies are fatal configuration
// errors surfaced here, before any crawling starts.
func (c *Catalog) Normalizer() (*rarity.Normalizer, error) {
	if c.Rarities == nil {
		return rarity.Default(), nil
	}
	n, err := rarity.New(c.Rarities.Games, c.Rarities.Tables, c.Rarities.Groups)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return n, nil
}
