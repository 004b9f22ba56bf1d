package rarity

// Built-in alias tables. Aliases span the locales the crawler visits;
// the scraped sites render rarity labels in the page language.

// GameLorcana and GameStarWars are consulted in this order; the first
// table owning an alias wins.
const (
	GameLorcana  = "lorcana"
	GameStarWars = "starwars-unlimited"
)

var defaultGames = []string{GameLorcana, GameStarWars}

var lorcanaTable = Table{
	"common":     {"common", "c", "commune", "häufig", "comune"},
	"uncommon":   {"uncommon", "u", "inhabituelle", "nicht so häufig", "non comune"},
	"rare":       {"rare", "r", "selten", "rara"},
	"super-rare": {"super rare", "super-rare", "sr", "super rara", "super selten"},
	"legendary":  {"legendary", "l", "légendaire", "legendär", "leggendaria"},
	"enchanted":  {"enchanted", "e", "enchantée", "verzaubert", "incantata"},
	"iconic":     {"iconic", "iconique", "ikonisch"},
	"promo":      {"promo", "promotional", "p"},
	"dlc":        {"dlc"},
	"d23":        {"d23"},
}

var starWarsTable = Table{
	"sw-common":    {"sw common"},
	"sw-uncommon":  {"sw uncommon"},
	"sw-rare":      {"sw rare"},
	"legendary-sw": {"sw legendary"},
	"special":      {"special", "spéciale", "speziell"},
	"showcase":     {"showcase"},
	"hyperspace":   {"hyperspace"},
	"op-promo":     {"op promo", "organized play", "event exclusive"},
}

// Promo-style rarities are interchangeable in filters: a card tagged
// with any member must surface when another member is selected.
var defaultGroups = [][]string{
	{"promo", "dlc", "d23"},
	{"showcase", "hyperspace"},
}

// Default returns the Normalizer over the built-in tables. The tables
// are validated at construction; a panic here means the declarations
// themselves are inconsistent.
func Default() *Normalizer {
	n, err := New(defaultGames, map[string]Table{
		GameLorcana:  lorcanaTable,
		GameStarWars: starWarsTable,
	}, defaultGroups)
	if err != nil {
		panic(err)
	}
	return n
}
