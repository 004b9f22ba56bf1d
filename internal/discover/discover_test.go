package discover

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/guarzo/cardseed/internal/cache"
	"github.com/guarzo/cardseed/internal/model"
	"github.com/guarzo/cardseed/internal/rarity"
)

const perPage = 18

// fakeSite renders index pages for a synthetic 204-card series.
type fakeSite struct {
	totalCards int
	visited    []int
	failPage   int // 0 = never fail
}

func (f *fakeSite) Fetch(_ context.Context, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	page, _ := strconv.Atoi(u.Query().Get("page"))
	f.visited = append(f.visited, page)

	if f.failPage != 0 && page == f.failPage {
		return "", errors.New("navigation timeout")
	}

	maxPage := (f.totalCards + perPage - 1) / perPage
	if page > maxPage {
		return fmt.Sprintf(`<html><body><div class="pagination"><a>%d</a></div></body></html>`, maxPage), nil
	}

	var b strings.Builder
	b.WriteString("<html><body><ul>")
	start := (page-1)*perPage + 1
	end := page * perPage
	if end > f.totalCards {
		end = f.totalCards
	}
	for i := start; i <= end; i++ {
		b.WriteString(fmt.Sprintf(`<li><a href="/en/cards/tfc1-%03d-rare-card-number-%d">card</a></li>`, i, i))
	}
	b.WriteString(`</ul><a href="/en/cards/about-page">about</a>`)
	b.WriteString(fmt.Sprintf(`<div class="pagination"><a>1</a><a>2</a><a>%d</a></div>`, maxPage))
	b.WriteString("</body></html>")
	return b.String(), nil
}

func newDiscoverer(site *fakeSite, c *cache.Cache) *Discoverer {
	return New(site, c, nil, rarity.Default(), Config{
		BaseURL:      "https://cardsite.test",
		ItemsPerPage: perPage,
	})
}

func testSeries() model.Series {
	return model.Series{Code: "tfc1", Languages: []model.Language{model.LangEnglish}, ExpectedCards: 204}
}

func TestDiscover_FullCrawl(t *testing.T) {
	site := &fakeSite{totalCards: 40}
	d := newDiscoverer(site, nil)

	urls, err := d.Discover(context.Background(), testSeries(), model.LangEnglish, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(urls) != 40 {
		t.Errorf("discovered %d urls, want 40", len(urls))
	}
	if got := urls["001"]; got != "https://cardsite.test/en/cards/tfc1-001-rare-card-number-1" {
		t.Errorf("urls[001] = %q", got)
	}
	// 40 cards at 18/page = 3 pages.
	if len(site.visited) != 3 {
		t.Errorf("visited %v, want 3 pages", site.visited)
	}
}

func TestDiscover_PageBounding(t *testing.T) {
	site := &fakeSite{totalCards: 204}
	d := newDiscoverer(site, nil)

	// Targets 40..50 live on pages 3 (37-54). Window is
	// ceil(40/18)=3 through ceil(50/18)+1=4.
	targets := []string{"040", "045", "050"}
	urls, err := d.Discover(context.Background(), testSeries(), model.LangEnglish, targets)
	if err != nil {
		t.Fatal(err)
	}

	for _, target := range targets {
		if _, ok := urls[target]; !ok {
			t.Errorf("target %s not discovered", target)
		}
	}
	for _, page := range site.visited {
		if page < 3 || page > 4 {
			t.Errorf("visited page %d outside window [3,4]", page)
		}
	}
	if len(site.visited) == 0 {
		t.Fatal("no pages visited")
	}
}

func TestDiscover_StopsEarlyWhenTargetsCovered(t *testing.T) {
	site := &fakeSite{totalCards: 204}
	d := newDiscoverer(site, nil)

	// Both targets are on page 1; page 2 should never be fetched even
	// though the window allows it.
	_, err := d.Discover(context.Background(), testSeries(), model.LangEnglish, []string{"001", "002"})
	if err != nil {
		t.Fatal(err)
	}
	if len(site.visited) != 1 || site.visited[0] != 1 {
		t.Errorf("visited %v, want just page 1", site.visited)
	}
}

func TestDiscover_FetchFailureStopsPartition(t *testing.T) {
	site := &fakeSite{totalCards: 60, failPage: 2}
	d := newDiscoverer(site, nil)

	urls, err := d.Discover(context.Background(), testSeries(), model.LangEnglish, nil)
	if err != nil {
		t.Fatalf("page failure must not fail the partition: %v", err)
	}
	// Page 1 succeeded; pages 2+ are abandoned.
	if len(urls) != perPage {
		t.Errorf("discovered %d urls, want %d from page 1 only", len(urls), perPage)
	}
}

func TestDiscover_EmptyIndexIsSkipNotError(t *testing.T) {
	site := &fakeSite{totalCards: 0}
	d := newDiscoverer(site, nil)

	urls, err := d.Discover(context.Background(), testSeries(), model.LangEnglish, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 0 {
		t.Errorf("got %d urls", len(urls))
	}
}

func TestDiscover_CachesFullResults(t *testing.T) {
	c, err := cache.New(filepath.Join(t.TempDir(), "cache.json"))
	if err != nil {
		t.Fatal(err)
	}

	site := &fakeSite{totalCards: 20}
	d := newDiscoverer(site, c)
	ctx := context.Background()

	if _, err := d.Discover(ctx, testSeries(), model.LangEnglish, nil); err != nil {
		t.Fatal(err)
	}
	fetchesAfterFirst := len(site.visited)

	urls, err := d.Discover(ctx, testSeries(), model.LangEnglish, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(site.visited) != fetchesAfterFirst {
		t.Error("second discovery should be served from cache")
	}
	if len(urls) != 20 {
		t.Errorf("cached result has %d urls", len(urls))
	}
}

func TestDiscover_BoundedRunsBypassCache(t *testing.T) {
	c, err := cache.New(filepath.Join(t.TempDir(), "cache.json"))
	if err != nil {
		t.Fatal(err)
	}

	site := &fakeSite{totalCards: 20}
	d := newDiscoverer(site, c)
	ctx := context.Background()

	if _, err := d.Discover(ctx, testSeries(), model.LangEnglish, []string{"001"}); err != nil {
		t.Fatal(err)
	}

	var cached map[string]string
	hit, err := c.Get(cache.DiscoveryKey("tfc1", "en"), &cached)
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("bounded discovery must not poison the partition cache")
	}
}
