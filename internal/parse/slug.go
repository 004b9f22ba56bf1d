// Package parse turns a card detail URL slug, and optionally the
// fetched page content, into an unvalidated card record. Slug parsing
// is a structural pattern match; when the pattern fails the caller
// logs and skips the item rather than aborting the partition.
package parse

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/guarzo/cardseed/internal/model"
	"github.com/guarzo/cardseed/internal/rarity"
)

// ErrPatternMismatch reports a slug that does not follow the
// [lang-]series-number-rarity-name structure. Permanent for that URL
// shape; never retried.
var ErrPatternMismatch = errors.New("parse: slug does not match card pattern")

// Item is the result of parsing one slug.
type Item struct {
	Language     model.Language // empty when the slug carries no locale prefix
	SeriesCode   string
	Number       string // rendered, e.g. "042" or "1/P3"
	RarityRaw    string // raw text as it appeared, pre-normalization
	Name         string
	Finish       model.Finish
	AlternateArt bool
}

var (
	seriesRe = regexp.MustCompile(`^[a-z]{1,4}\d{0,2}$`)
	numberRe = regexp.MustCompile(`^(\d+)(?:p(\d+))?([a-z])?$`)
)

// maxRaritySegments bounds the greedy rarity match ("super-rare" is
// two slug tokens).
const maxRaritySegments = 3

// Slug parses a card detail slug of the form
//
//	[langPrefix-]seriesLetters[seriesDigits]-itemNumber-raritySegment-nameSegment...
//
// The rarity segment may span multiple hyphen tokens; the longest run
// that the normalizer recognizes wins, falling back to a single token
// for rarities the alias tables do not know yet.
func Slug(slug string, norm *rarity.Normalizer) (Item, error) {
	tokens := strings.Split(strings.ToLower(strings.TrimSpace(slug)), "-")
	if len(tokens) < 3 {
		return Item{}, fmt.Errorf("%w: %q", ErrPatternMismatch, slug)
	}

	var item Item

	if lang, err := model.ParseLanguage(tokens[0]); err == nil && len(tokens) > 3 {
		item.Language = lang
		tokens = tokens[1:]
	}

	if !seriesRe.MatchString(tokens[0]) || !strings.ContainsAny(tokens[0], "abcdefghijklmnopqrstuvwxyz") {
		return Item{}, fmt.Errorf("%w: bad series segment in %q", ErrPatternMismatch, slug)
	}
	item.SeriesCode = tokens[0]
	tokens = tokens[1:]

	num := numberRe.FindStringSubmatch(tokens[0])
	if num == nil {
		return Item{}, fmt.Errorf("%w: bad number segment in %q", ErrPatternMismatch, slug)
	}
	item.Number = renderNumber(num)
	tokens = tokens[1:]

	if len(tokens) < 2 {
		return Item{}, fmt.Errorf("%w: missing rarity or name in %q", ErrPatternMismatch, slug)
	}

	rarityTokens := matchRarity(tokens, norm)
	item.RarityRaw = strings.Join(tokens[:rarityTokens], " ")
	tokens = tokens[rarityTokens:]

	if len(tokens) == 0 {
		return Item{}, fmt.Errorf("%w: empty name segment in %q", ErrPatternMismatch, slug)
	}

	tokens, item.Finish, item.AlternateArt = detectFinish(tokens)
	if len(tokens) == 0 {
		return Item{}, fmt.Errorf("%w: name segment was only a variant marker in %q", ErrPatternMismatch, slug)
	}

	item.Name = reconstructName(tokens)
	return item, nil
}

func renderNumber(m []string) string {
	if m[2] != "" { // promo wave: "1p3" renders as "1/P3"
		return m[1] + "/P" + m[2]
	}
	return m[1] + m[3]
}

// matchRarity returns how many leading tokens form the rarity segment.
// Longest recognized run wins so "super-rare" is not split into a
// rarity "super" and a card named "Rare ...".
func matchRarity(tokens []string, norm *rarity.Normalizer) int {
	limit := maxRaritySegments
	// The name segment must keep at least one token.
	if len(tokens)-1 < limit {
		limit = len(tokens) - 1
	}
	for n := limit; n >= 2; n-- {
		if norm != nil && norm.Normalize(strings.Join(tokens[:n], " ")) != "" {
			return n
		}
	}
	return 1
}

// detectFinish recognizes positional variant markers in the name
// segment and strips them: a trailing "version-2" reclassifies the
// card as the alternate-art print, a "premium" token as the special
// (foil) print.
func detectFinish(tokens []string) ([]string, model.Finish, bool) {
	finish := model.FinishStandard
	alternate := false

	n := len(tokens)
	if n >= 2 && tokens[n-2] == "version" && tokens[n-1] == "2" {
		tokens = tokens[:n-2]
		finish = model.FinishAlternate
		alternate = true
		n = len(tokens)
	}
	if n >= 1 && tokens[n-1] == "premium" {
		tokens = tokens[:n-1]
		if finish == model.FinishStandard {
			finish = model.FinishSpecial
		}
	}
	return tokens, finish, alternate
}

// properNouns fixes multi-word names that generic title-casing
// mangles. Exact-string substitution after reconstruction; best
// effort, not a dictionary.
var properNouns = map[string]string{
	"Mc Duck":     "McDuck",
	"O Hara":      "O'Hara",
	"Mr Smee":     "Mr. Smee",
	"Dr Facilier": "Dr. Facilier",
	"De Vil":      "de Vil",
	"Hi Ho":       "Heigh-Ho",
	"Lilo Stitch": "Lilo & Stitch",
	"Tick Tock":   "Tick-Tock",
}

func reconstructName(tokens []string) string {
	cased := make([]string, len(tokens))
	for i, tok := range tokens {
		cased[i] = titleCase(tok)
	}
	name := strings.Join(cased, " ")
	for from, to := range properNouns {
		name = strings.ReplaceAll(name, from, to)
	}
	return name
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
