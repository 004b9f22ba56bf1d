// Package discover crawls the paginated index of one (series, language)
// partition and produces the complete, deduplicated set of card detail
// URLs, keyed by parsed card number. Pages are visited strictly one at
// a time through the shared browser session.
package discover

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/guarzo/cardseed/internal/cache"
	"github.com/guarzo/cardseed/internal/model"
	"github.com/guarzo/cardseed/internal/parse"
	"github.com/guarzo/cardseed/internal/rarity"
	"github.com/guarzo/cardseed/internal/ratelimit"
)

// Pager fetches one rendered index page. The browser session satisfies
// this; tests use a stub.
type Pager interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// Config tunes the crawl.
type Config struct {
	// BaseURL of the catalog site, no trailing slash.
	BaseURL string

	// ItemsPerPage the index renders. Default 18.
	ItemsPerPage int

	// CacheTTL for full discovery results. Default 12h.
	CacheTTL time.Duration
}

func (c *Config) defaults() {
	if c.ItemsPerPage <= 0 {
		c.ItemsPerPage = 18
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 12 * time.Hour
	}
}

// Discoverer runs discovery for partitions.
type Discoverer struct {
	pager   Pager
	cache   *cache.Cache // nil disables caching
	limiter *ratelimit.Limiter
	norm    *rarity.Normalizer
	cfg     Config
}

// New creates a Discoverer. cache and limiter may be nil.
func New(pager Pager, c *cache.Cache, limiter *ratelimit.Limiter, norm *rarity.Normalizer, cfg Config) *Discoverer {
	cfg.defaults()
	return &Discoverer{pager: pager, cache: c, limiter: limiter, norm: norm, cfg: cfg}
}

// BaseURL exposes the configured catalog site root for callers that
// build detail URLs.
func (d *Discoverer) BaseURL() string {
	return d.cfg.BaseURL
}

// Discover returns detail URLs keyed by rendered card number for the
// partition. targets, when non-empty, bounds the page range visited to
// the pages that can contain those numbers. A page fetch or parse
// failure stops the crawl for this partition and returns what was
// found; zero results means the series is unavailable in this language
// and is a skip, not a failure.
func (d *Discoverer) Discover(ctx context.Context, series model.Series, lang model.Language, targets []string) (map[string]string, error) {
	cacheKey := cache.DiscoveryKey(series.Code, string(lang))
	if d.cache != nil && len(targets) == 0 {
		var cached map[string]string
		if hit, err := d.cache.Get(cacheKey, &cached); err == nil && hit {
			return cached, nil
		}
	}

	firstPage, lastPage := d.pageWindow(targets)
	urls := make(map[string]string)
	maxSeen := firstPage // pagination max from rendered content, updated each page

	for page := firstPage; page <= lastPage; page++ {
		if page > maxSeen {
			break
		}
		if err := d.wait(ctx); err != nil {
			return urls, err
		}

		pageURL := d.indexURL(series.Code, lang, page)
		html, err := d.pager.Fetch(ctx, pageURL)
		if err != nil {
			// A single broken page ends this partition's crawl; the
			// caller treats a short or empty set as "skip".
			log.Printf("[discover] %s/%s page %d: %v (stopping partition)", series.Code, lang, page, err)
			break
		}

		items, pageMax, err := parseIndexPage(html, series.Code, d.cfg.BaseURL, d.norm)
		if err != nil {
			log.Printf("[discover] %s/%s page %d: %v (stopping partition)", series.Code, lang, page, err)
			break
		}
		for number, u := range items {
			if _, dup := urls[number]; !dup {
				urls[number] = u
			}
		}
		if pageMax > maxSeen {
			maxSeen = pageMax
		}

		if len(targets) > 0 && covers(urls, targets) {
			break
		}
	}

	if d.cache != nil && len(targets) == 0 && len(urls) > 0 {
		// Only unbounded discoveries are complete enough to cache.
		if err := d.cache.Put(cacheKey, urls, d.cfg.CacheTTL); err != nil {
			log.Printf("[discover] cache write for %s/%s: %v", series.Code, lang, err)
		}
	}
	return urls, nil
}

// pageWindow computes the page range that can contain the target
// numbers: ceil(min/perPage) through ceil(max/perPage)+1. Without
// targets the window is open-ended and termination comes from the
// rendered pagination max.
func (d *Discoverer) pageWindow(targets []string) (first, last int) {
	if len(targets) == 0 {
		return 1, 1 << 20
	}

	minN, maxN := 0, 0
	found := false
	for _, t := range targets {
		n, ok := model.NumericValue(t)
		if !ok {
			continue
		}
		if !found || n < minN {
			minN = n
		}
		if !found || n > maxN {
			maxN = n
		}
		found = true
	}
	if !found {
		return 1, 1 << 20
	}

	per := d.cfg.ItemsPerPage
	first = (minN + per - 1) / per
	if first < 1 {
		first = 1
	}
	last = (maxN+per-1)/per + 1
	return first, last
}

func (d *Discoverer) indexURL(series string, lang model.Language, page int) string {
	return fmt.Sprintf("%s/%s/cards?series=%s&page=%d", d.cfg.BaseURL, lang, url.QueryEscape(series), page)
}

func (d *Discoverer) wait(ctx context.Context) error {
	if d.limiter == nil {
		return nil
	}
	return d.limiter.Wait(ctx)
}

// parseIndexPage extracts the card links and the maximum pagination
// index from one rendered index page.
func parseIndexPage(html, seriesCode, baseURL string, norm *rarity.Normalizer) (map[string]string, int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, 0, fmt.Errorf("parse index page: %w", err)
	}

	items := make(map[string]string)
	doc.Find(`a[href*="/cards/"]`).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		slug := href[strings.LastIndex(href, "/")+1:]
		item, err := parse.Slug(slug, norm)
		if err != nil {
			return // navigation links and promos pages share the path prefix
		}
		if item.SeriesCode != seriesCode {
			return
		}
		items[item.Number] = absoluteURL(baseURL, href)
	})

	maxPage := 1
	doc.Find(".pagination a, .pagination span").Each(func(_ int, s *goquery.Selection) {
		if n, err := strconv.Atoi(strings.TrimSpace(s.Text())); err == nil && n > maxPage {
			maxPage = n
		}
	})

	return items, maxPage, nil
}

func absoluteURL(baseURL, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return baseURL + href
}

// covers reports whether every target number is in the discovered set.
func covers(urls map[string]string, targets []string) bool {
	for _, t := range targets {
		if _, ok := urls[t]; !ok {
			return false
		}
	}
	return true
}
