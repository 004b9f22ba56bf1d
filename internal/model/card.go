package model

import (
	"fmt"
	"strings"
)

// Language is the locale a card was printed in. It is part of the card's
// uniqueness key alongside series code and number.
type Language string

const (
	LangEnglish  Language = "en"
	LangFrench   Language = "fr"
	LangGerman   Language = "de"
	LangItalian  Language = "it"
	LangJapanese Language = "ja"
)

// AllLanguages lists every locale the pipeline knows how to ingest,
// in the order partitions are processed.
var AllLanguages = []Language{LangEnglish, LangFrench, LangGerman, LangItalian, LangJapanese}

// ParseLanguage validates a locale code from user input.
func ParseLanguage(s string) (Language, error) {
	for _, l := range AllLanguages {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown language %q", s)
}

// Finish is the card's print variant classification.
type Finish string

const (
	FinishStandard  Finish = "standard"
	FinishAlternate Finish = "alternate"
	FinishSpecial   Finish = "special"
)

// Card is the canonical unit of ingestion: one physical card in one
// language. The triple (SeriesCode, Number, Language) uniquely identifies
// a card; re-ingestion upserts on that key and never duplicates.
type Card struct {
	SeriesCode string            `json:"seriesCode"`
	Number     string            `json:"number"`
	Language   Language          `json:"language"`
	Name       string            `json:"name"`
	Rarity     string            `json:"rarity,omitempty"` // canonical id, empty if unrecognized
	Finish     Finish            `json:"finish"`
	Attributes map[string]string `json:"attributes,omitempty"`
	ImageURL   string            `json:"imageUrl,omitempty"`
}

// Key returns the card's natural composite key, used by the progress
// ledger and the upsert sink.
func (c Card) Key() string {
	return CardKey(c.SeriesCode, c.Number, c.Language)
}

// CardKey builds the composite key without materializing a Card.
func CardKey(series, number string, lang Language) string {
	return strings.Join([]string{series, number, string(lang)}, "/")
}

// Series describes one catalog entry: a released set and where it is
// available. Defined once per release, read-only during ingestion.
type Series struct {
	Code          string     `yaml:"code" json:"code"`
	Name          string     `yaml:"name" json:"name"`
	Game          string     `yaml:"game" json:"game"`
	Languages     []Language `yaml:"languages" json:"languages"`
	ExpectedCards int        `yaml:"expectedCards" json:"expectedCards"`
}

// HasLanguage reports whether the series was released in the given locale.
func (s Series) HasLanguage(lang Language) bool {
	for _, l := range s.Languages {
		if l == lang {
			return true
		}
	}
	return false
}
