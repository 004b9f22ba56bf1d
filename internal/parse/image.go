package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/guarzo/cardseed/internal/model"
)

// ErrNoImage means every extraction strategy came up empty or
// rejected. The record is marked image-missing, the item itself is not
// a failure.
var ErrNoImage = errors.New("parse: no usable image on page")

// placeholderMarkers reject assets that are not the card face: the
// shared back-of-card image and generic placeholders.
var placeholderMarkers = []string{"card-back", "cardback", "back-of-card", "placeholder"}

// imageStrategy is one extraction attempt. Returns the URL and true on
// a non-rejected match. Strategies run in declared order; the first
// hit wins.
type imageStrategy func(doc *goquery.Document, lang model.Language, assetHost string) (string, bool)

var imageStrategies = []imageStrategy{
	linkedDataImage,
	socialPreviewImage,
	primaryCardImage,
	anyAssetHostImage,
}

// ExtractImageURL resolves the card image from fetched page content,
// trying each strategy in order: structured linked data, then the
// social-preview meta tag, then the language-scoped primary selector,
// then any image served from the asset host.
func ExtractImageURL(html string, lang model.Language, assetHost string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	for _, strategy := range imageStrategies {
		if url, ok := strategy(doc, lang, assetHost); ok {
			return url, nil
		}
	}
	return "", ErrNoImage
}

// FallbackImageURL builds the deterministic CDN location used when
// page extraction is unavailable (dry runs, cached discovery).
// Extraction from live page content is authoritative when present.
func FallbackImageURL(assetHost string, series string, lang model.Language, number string, finish model.Finish) string {
	name := number
	if suffix := finishSuffix(finish); suffix != "" {
		name += "-" + suffix
	}
	return fmt.Sprintf("https://%s/cards/%s/%s/%s.webp", assetHost, series, lang, name)
}

func finishSuffix(finish model.Finish) string {
	switch finish {
	case model.FinishAlternate:
		return "alt"
	case model.FinishSpecial:
		return "premium"
	default:
		return ""
	}
}

// linkedDataImage reads the JSON-LD product block. The image field may
// be a single URL or a list; lists are filtered to the language-tagged
// variant.
func linkedDataImage(doc *goquery.Document, lang model.Language, _ string) (string, bool) {
	var found string
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var block struct {
			Image json.RawMessage `json:"image"`
		}
		if err := json.Unmarshal([]byte(s.Text()), &block); err != nil || len(block.Image) == 0 {
			return true
		}

		var single string
		if err := json.Unmarshal(block.Image, &single); err == nil {
			if usable(single) {
				found = single
				return false
			}
			return true
		}

		var list []string
		if err := json.Unmarshal(block.Image, &list); err == nil {
			for _, url := range list {
				if usable(url) && strings.Contains(url, "/"+string(lang)+"/") {
					found = url
					return false
				}
			}
		}
		return true
	})
	return found, found != ""
}

// socialPreviewImage reads the og:image meta tag, rejected when it
// points at the shared back-of-card asset.
func socialPreviewImage(doc *goquery.Document, _ model.Language, _ string) (string, bool) {
	url, ok := doc.Find(`meta[property="og:image"]`).Attr("content")
	if !ok || !usable(url) {
		return "", false
	}
	return url, true
}

// primaryCardImage is the language-scoped main card selector.
func primaryCardImage(doc *goquery.Document, lang model.Language, _ string) (string, bool) {
	var found string
	doc.Find("img.card-image").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, ok := s.Attr("src")
		if ok && usable(src) && strings.Contains(src, "/"+string(lang)+"/") {
			found = src
			return false
		}
		return true
	})
	return found, found != ""
}

// anyAssetHostImage is the last resort: any image served from the
// asset host, same placeholder rejection.
func anyAssetHostImage(doc *goquery.Document, _ model.Language, assetHost string) (string, bool) {
	if assetHost == "" {
		return "", false
	}
	var found string
	doc.Find("img[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		if strings.Contains(src, assetHost) && usable(src) {
			found = src
			return false
		}
		return true
	})
	return found, found != ""
}

func usable(url string) bool {
	if url == "" {
		return false
	}
	lower := strings.ToLower(url)
	for _, marker := range placeholderMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	return true
}
