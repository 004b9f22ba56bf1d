// Package rarity canonicalizes the free-text rarity labels found on
// scraped card pages. Each supported game declares a flat alias table
// (many aliases, one canonical id); tables are consulted in a fixed
// declared order so alias collisions between games resolve
// deterministically.
package rarity

import (
	"fmt"
	"strings"

	"github.com/guarzo/cardseed/internal/model"
)

// Table maps a canonical rarity id to the raw-text aliases that should
// normalize to it. Alias matching is case-insensitive with surrounding
// whitespace ignored.
type Table map[string][]string

// Normalizer holds the alias tables for every supported game plus the
// rarity groups that must be treated as present or absent together.
type Normalizer struct {
	games  []string
	tables map[string]Table
	groups [][]string

	// aliasIndex is built once from the tables: lowercased alias -> id.
	aliasIndex map[string]string
	// groupIndex maps a canonical id to its group slice, nil if ungrouped.
	groupIndex map[string][]string
}

// New builds a Normalizer from per-game tables consulted in the given
// order, plus flat non-overlapping groups. It fails if two canonical
// ids share an alias within one game's table or if an id appears in
// more than one group.
func New(games []string, tables map[string]Table, groups [][]string) (*Normalizer, error) {
	n := &Normalizer{
		games:      games,
		tables:     tables,
		groups:     groups,
		aliasIndex: make(map[string]string),
		groupIndex: make(map[string][]string),
	}

	for _, game := range games {
		table, ok := tables[game]
		if !ok {
			return nil, fmt.Errorf("rarity: no table declared for game %q", game)
		}
		seen := make(map[string]string) // alias -> id within this game
		for id, aliases := range table {
			for _, alias := range aliases {
				key := canon(alias)
				if key == "" {
					return nil, fmt.Errorf("rarity: empty alias for %s/%s", game, id)
				}
				if prev, dup := seen[key]; dup && prev != id {
					return nil, fmt.Errorf("rarity: alias %q claimed by both %s and %s in %s", alias, prev, id, game)
				}
				seen[key] = id
				// First game's table wins on cross-game collisions.
				if _, exists := n.aliasIndex[key]; !exists {
					n.aliasIndex[key] = id
				}
			}
		}
	}

	for _, group := range groups {
		for _, id := range group {
			if prev := n.groupIndex[id]; prev != nil {
				return nil, fmt.Errorf("rarity: id %q belongs to more than one group", id)
			}
			n.groupIndex[id] = group
		}
	}

	return n, nil
}

// Normalize maps raw rarity text to its canonical id. Returns the empty
// string when no game's table contains the alias; callers treat that as
// a data-quality warning, not a failure.
func (n *Normalizer) Normalize(raw string) string {
	return n.aliasIndex[canon(raw)]
}

// Matches reports whether a card with the given raw rarity satisfies a
// selection of canonical ids. A card matches if its normalized id is
// selected directly, or if it shares a group with any selected id, so
// selecting one group member surfaces cards tagged with any member.
func (n *Normalizer) Matches(rawCardRarity string, selected []string) bool {
	id := n.Normalize(rawCardRarity)
	if id == "" {
		return false
	}
	for _, sel := range selected {
		if sel == id {
			return true
		}
		if n.sameGroup(id, sel) {
			return true
		}
	}
	return false
}

// AvailableRarities returns the canonical ids present in a card set,
// expanded to every other member of any group with at least one member
// present. Filter UIs built on this never offer a rarity that yields
// zero results due to group-splitting.
func (n *Normalizer) AvailableRarities(cards []model.Card) []string {
	present := make(map[string]bool)
	for _, c := range cards {
		if id := n.Normalize(c.Rarity); id != "" {
			present[id] = true
		}
	}
	for id := range present {
		for _, member := range n.groupIndex[id] {
			present[member] = true
		}
	}

	out := make([]string, 0, len(present))
	for _, game := range n.games {
		for id := range n.tables[game] {
			if present[id] {
				out = append(out, id)
				delete(present, id)
			}
		}
	}
	return out
}

func (n *Normalizer) sameGroup(a, b string) bool {
	group := n.groupIndex[a]
	for _, member := range group {
		if member == b {
			return true
		}
	}
	return false
}

func canon(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
