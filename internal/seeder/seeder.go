// Package seeder orchestrates the ingestion pipeline: discovery, slug
// parsing, normalization, asset upload and record upsert, one item at
// a time, partition by partition. Item-level failures are caught at
// this boundary and never unwind past the per-item loop; resource
// setup failures are fatal.
package seeder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/guarzo/cardseed/internal/assets"
	"github.com/guarzo/cardseed/internal/catalog"
	"github.com/guarzo/cardseed/internal/discover"
	"github.com/guarzo/cardseed/internal/model"
	"github.com/guarzo/cardseed/internal/parse"
	"github.com/guarzo/cardseed/internal/progress"
	"github.com/guarzo/cardseed/internal/rarity"
	"github.com/guarzo/cardseed/internal/ratelimit"
	"github.com/guarzo/cardseed/internal/store"
)

// state names the per-item pipeline stages, used in logs and errors.
type state string

const (
	stateDiscovering state = "discovering"
	stateParsing     state = "parsing"
	stateUploading   state = "uploading"
	stateRecording   state = "recording"
)

// RecordStore is the content store surface the seeder writes to.
type RecordStore interface {
	UpsertCard(ctx context.Context, c model.Card) error
	RecordAsset(ctx context.Context, key, url string) error
	ListStoredAssetKeys(ctx context.Context, series string, lang model.Language) (map[string]bool, error)
	QueryCards(ctx context.Context, f store.Filter) ([]model.Card, error)
}

// PageFetcher fetches one rendered page; the browser session satisfies
// this.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// ImageFetcher downloads raw image bytes over plain HTTP.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Options parameterize one run.
type Options struct {
	Series          []string // empty = every series in the catalog
	Language        string   // locale code or "all"/""
	Limit           int      // max items per partition, 0 = no limit
	DryRun          bool     // discovery and diffing only, no writes
	SkipImages      bool     // write records without asset upload
	ContinueOnError bool     // demote upload failures to per-item errors
	ImagesOnly      bool     // backfill only items with missing assets
	AssetHost       string   // source CDN host for image extraction
	Quiet           bool
}

// Summary aggregates one run's outcome.
type Summary struct {
	Partitions int
	Processed  int
	Succeeded  int
	Failed     int
	Skipped    int // already done in a prior interrupted run
	Aborted    int // partitions halted under fail-fast policy
}

// SuccessRate is succeeded over processed, 1.0 for an empty run.
func (s Summary) SuccessRate() float64 {
	if s.Processed == 0 {
		return 1.0
	}
	return float64(s.Succeeded) / float64(s.Processed)
}

// Seeder wires the pipeline's collaborators.
type Seeder struct {
	cat     *catalog.Catalog
	norm    *rarity.Normalizer
	disc    *discover.Discoverer
	pages   PageFetcher
	records RecordStore
	sink    assets.Sink
	images  ImageFetcher
	ledger  *progress.Store
	limiter *ratelimit.Limiter
	opts    Options
}

// New builds a Seeder. limiter may be nil (tests), and ledger may be
// nil for dry runs, which never touch it; everything else is required.
func New(cat *catalog.Catalog, norm *rarity.Normalizer, disc *discover.Discoverer,
	pages PageFetcher, records RecordStore, sink assets.Sink, images ImageFetcher,
	ledger *progress.Store, limiter *ratelimit.Limiter, opts Options) *Seeder {
	return &Seeder{
		cat: cat, norm: norm, disc: disc, pages: pages, records: records,
		sink: sink, images: images, ledger: ledger, limiter: limiter, opts: opts,
	}
}

// errPartitionAborted wraps the failure that halted a partition under
// the fail-fast policy.
var errPartitionAborted = errors.New("partition aborted")

// Run executes the whole pipeline. Returns a non-nil error only when a
// partition aborted under fail-fast or the run was canceled; item
// errors under continue-on-error are reported through the Summary.
func (s *Seeder) Run(ctx context.Context) (Summary, error) {
	var summary Summary
	var firstAbort error
	runTotal := 0

	if !s.opts.DryRun && s.ledger.Resumed() {
		processed, _, _ := s.ledger.Counts()
		log.Printf("[seeder] resuming prior run: %d items already recorded (last partition %s)",
			processed, s.ledger.Partition())
	}

	for _, series := range s.seriesList() {
		for _, lang := range s.languages(series) {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			default:
			}

			partition := series.Code + "/" + string(lang)
			summary.Partitions++

			aborted, err := s.runPartition(ctx, series, lang, partition, &summary, &runTotal)
			if err != nil {
				return summary, err // cancellation only
			}
			if aborted != nil {
				summary.Aborted++
				if firstAbort == nil {
					firstAbort = aborted
				}
				log.Printf("[seeder] partition %s aborted: %v", partition, aborted)
			}
		}
	}

	s.report(summary)

	if firstAbort != nil {
		return summary, fmt.Errorf("%w: %v", errPartitionAborted, firstAbort)
	}

	if !s.opts.DryRun {
		if summary.Failed == 0 {
			if err := s.ledger.Clear(); err != nil {
				return summary, fmt.Errorf("clear progress ledger: %w", err)
			}
		} else if err := s.ledger.Close(); err != nil {
			return summary, fmt.Errorf("close progress ledger: %w", err)
		}
	}
	return summary, nil
}

// runPartition processes one (series, language) partition. The
// returned abort error is partition-scoped; run-fatal errors (context
// cancellation) come back in err.
func (s *Seeder) runPartition(ctx context.Context, series model.Series, lang model.Language,
	partition string, summary *Summary, runTotal *int) (abort, err error) {

	if !s.opts.DryRun {
		if err := s.ledger.SetPartition(partition); err != nil {
			return nil, err
		}
	}

	targets, err := s.partitionTargets(ctx, series, lang)
	if err != nil {
		return err, nil // diffing needs the store; treat as partition abort
	}
	if s.opts.ImagesOnly && len(targets) == 0 {
		log.Printf("[seeder] %s: no missing images, skipping", partition)
		return nil, nil
	}

	urls, err := s.disc.Discover(ctx, series, lang, targets)
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		// Series not available in this language; skip, not failure.
		log.Printf("[seeder] %s: nothing discovered, skipping partition", partition)
		return nil, nil
	}

	numbers := make([]string, 0, len(urls))
	for number := range urls {
		numbers = append(numbers, number)
	}
	if s.opts.ImagesOnly {
		// Discovery returns everything in the bounded page window; only
		// the cards actually missing an image get re-attempted.
		wanted := make(map[string]bool, len(targets))
		for _, t := range targets {
			wanted[t] = true
		}
		kept := numbers[:0]
		for _, n := range numbers {
			if wanted[n] {
				kept = append(kept, n)
			}
		}
		numbers = kept
	}
	model.SortNumbers(numbers)
	if s.opts.Limit > 0 && len(numbers) > s.opts.Limit {
		numbers = numbers[:s.opts.Limit]
	}

	*runTotal += len(numbers)
	if !s.opts.DryRun {
		if err := s.ledger.SetTotal(*runTotal); err != nil {
			return nil, err
		}
	}

	indicator := progress.NewIndicator("seeding "+partition, len(numbers), !s.opts.Quiet)
	indicator.Start()

	for i, number := range numbers {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		key := model.CardKey(series.Code, number, lang)
		if !s.opts.DryRun && s.ledger.IsDone(key) {
			summary.Skipped++
			indicator.Update(i + 1)
			continue
		}

		if err := s.processItem(ctx, series, lang, number, urls[number], key, summary); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			indicator.FinishWithError(err)
			return err, nil
		}
		indicator.Update(i + 1)
	}

	indicator.Finish()
	return nil, nil
}

// processItem walks one card through parsing, enrichment, upload and
// recording. A nil return means the loop continues; the item itself
// may still have been recorded as an error.
func (s *Seeder) processItem(ctx context.Context, series model.Series, lang model.Language,
	number, itemURL, key string, summary *Summary) error {

	slug := slugFromURL(itemURL)

	item, err := parse.Slug(slug, s.norm)
	if err != nil {
		// Structural mismatch is permanent for this URL shape: record
		// it so resume never retries, then continue the loop.
		log.Printf("[seeder] %s %s: %v", stateParsing, key, err)
		return s.recordOutcome(key, progress.OutcomeError, summary)
	}

	card := model.Card{
		SeriesCode: series.Code,
		Number:     number,
		Language:   lang,
		Name:       item.Name,
		Rarity:     s.norm.Normalize(item.RarityRaw),
		Finish:     item.Finish,
	}
	if card.Rarity == "" && item.RarityRaw != "" {
		// Normalization miss is a data-quality warning, never a failure.
		log.Printf("[seeder] %s: unrecognized rarity %q", key, item.RarityRaw)
	}

	if s.opts.DryRun {
		summary.Processed++
		summary.Succeeded++
		return nil
	}

	if err := s.enrich(ctx, &card, lang, slug); err != nil {
		// Transient navigation failure: not recorded, so the next run
		// retries it. No in-loop retry on an already-slow crawl.
		log.Printf("[seeder] %s %s: %v (will retry on next run)", stateParsing, key, err)
		summary.Processed++
		summary.Failed++
		if s.opts.ContinueOnError {
			return nil
		}
		return fmt.Errorf("enrich %s: %w", key, err)
	}

	if err := s.upload(ctx, &card); err != nil {
		log.Printf("[seeder] %s %s: %v", stateUploading, key, err)
		if s.opts.ContinueOnError {
			return s.recordOutcome(key, progress.OutcomeError, summary)
		}
		return fmt.Errorf("upload %s: %w", key, err)
	}

	if err := s.records.UpsertCard(ctx, card); err != nil {
		log.Printf("[seeder] %s %s: %v", stateRecording, key, err)
		if s.opts.ContinueOnError {
			return s.recordOutcome(key, progress.OutcomeError, summary)
		}
		return fmt.Errorf("upsert %s: %w", key, err)
	}

	return s.recordOutcome(key, progress.OutcomeSuccess, summary)
}

// enrich navigates the shared page to the card detail URL and fills
// the record's image URL and attribute bag from rendered content.
// Extraction is authoritative; the deterministic CDN pattern is only a
// fallback when the page yields nothing usable for a record that still
// needs an image.
func (s *Seeder) enrich(ctx context.Context, card *model.Card, lang model.Language, slug string) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	detailURL := s.detailURL(lang, slug)
	html, err := s.pages.Fetch(ctx, detailURL)
	if err != nil {
		return err
	}

	if attrs, err := parse.ExtractAttributes(html); err == nil && len(attrs) > 0 {
		card.Attributes = attrs
	}

	imageURL, err := parse.ExtractImageURL(html, lang, s.opts.AssetHost)
	switch {
	case err == nil:
		card.ImageURL = imageURL
	case errors.Is(err, parse.ErrNoImage):
		// Page yielded nothing usable; fall back to the deterministic
		// CDN pattern when a host is configured, else the record stays
		// image-missing. Not an item failure either way.
		card.ImageURL = ""
		if s.opts.AssetHost != "" {
			card.ImageURL = parse.FallbackImageURL(s.opts.AssetHost, card.SeriesCode, lang, card.Number, card.Finish)
		}
	default:
		return err
	}
	return nil
}

// upload pushes the card image to asset storage and remembers the
// asset key. Skipped for image-missing records and --skip-images runs.
func (s *Seeder) upload(ctx context.Context, card *model.Card) error {
	if s.opts.SkipImages || card.ImageURL == "" {
		return nil
	}

	data, err := s.images.Fetch(ctx, card.ImageURL)
	if err != nil {
		return fmt.Errorf("fetch image: %w", err)
	}

	key := assets.Key(card.SeriesCode, card.Language, card.Number, card.Finish)
	storedURL, err := s.sink.Upload(data, key)
	if err != nil {
		return fmt.Errorf("upload image: %w", err)
	}
	if err := s.records.RecordAsset(ctx, key, storedURL); err != nil {
		return err
	}
	card.ImageURL = storedURL
	return nil
}

// recordOutcome persists the item's outcome before the loop moves on.
func (s *Seeder) recordOutcome(key string, outcome progress.Outcome, summary *Summary) error {
	summary.Processed++
	if outcome == progress.OutcomeError {
		summary.Failed++
	} else {
		summary.Succeeded++
	}
	if s.opts.DryRun {
		return nil
	}
	if err := s.ledger.Record(key, outcome); err != nil {
		return fmt.Errorf("record progress for %s: %w", key, err)
	}
	return nil
}

// partitionTargets returns the numbers of interest for a partition:
// nil for a full crawl, or the missing-image set for --images-only
// runs, computed by diffing stored asset keys against stored records.
func (s *Seeder) partitionTargets(ctx context.Context, series model.Series, lang model.Language) ([]string, error) {
	if !s.opts.ImagesOnly {
		return nil, nil
	}

	cards, err := s.records.QueryCards(ctx, store.Filter{SeriesCode: series.Code, Language: lang})
	if err != nil {
		return nil, fmt.Errorf("query stored cards: %w", err)
	}
	stored, err := s.records.ListStoredAssetKeys(ctx, series.Code, lang)
	if err != nil {
		return nil, fmt.Errorf("list stored assets: %w", err)
	}

	var missing []string
	for _, c := range cards {
		if !stored[assets.Key(c.SeriesCode, c.Language, c.Number, c.Finish)] {
			missing = append(missing, c.Number)
		}
	}
	sort.Strings(missing)
	return missing, nil
}

func (s *Seeder) seriesList() []model.Series {
	if len(s.opts.Series) == 0 {
		return s.cat.Series
	}
	var out []model.Series
	for _, code := range s.opts.Series {
		if series, ok := s.cat.FindSeries(code); ok {
			out = append(out, series)
		} else {
			log.Printf("[seeder] unknown series %q, skipping", code)
		}
	}
	return out
}

func (s *Seeder) languages(series model.Series) []model.Language {
	if s.opts.Language == "" || s.opts.Language == "all" {
		return series.Languages
	}
	lang, err := model.ParseLanguage(s.opts.Language)
	if err != nil {
		log.Printf("[seeder] %v", err)
		return nil
	}
	if !series.HasLanguage(lang) {
		return nil
	}
	return []model.Language{lang}
}

func (s *Seeder) detailURL(lang model.Language, slug string) string {
	return fmt.Sprintf("%s/%s/cards/%s", strings.TrimRight(s.baseURL(), "/"), lang, slug)
}

func (s *Seeder) baseURL() string {
	return s.disc.BaseURL()
}

func (s *Seeder) report(summary Summary) {
	log.Printf("[seeder] run complete: %d partitions, %d processed, %d succeeded, %d failed, %d skipped (%.1f%% success)",
		summary.Partitions, summary.Processed, summary.Succeeded, summary.Failed,
		summary.Skipped, summary.SuccessRate()*100)
}

func slugFromURL(u string) string {
	return u[strings.LastIndex(u, "/")+1:]
}
