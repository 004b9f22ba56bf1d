// Command cardseed crawls the card catalog site and seeds the
// collection database: discovery, slug parsing, rarity normalization,
// image upload and record upsert, partition by partition, with
// crash-resumable progress.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/guarzo/cardseed/internal/assets"
	"github.com/guarzo/cardseed/internal/browser"
	"github.com/guarzo/cardseed/internal/cache"
	"github.com/guarzo/cardseed/internal/catalog"
	"github.com/guarzo/cardseed/internal/discover"
	"github.com/guarzo/cardseed/internal/progress"
	"github.com/guarzo/cardseed/internal/ratelimit"
	"github.com/guarzo/cardseed/internal/report"
	"github.com/guarzo/cardseed/internal/seeder"
	"github.com/guarzo/cardseed/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Printf("[cardseed] fatal: %v", err)
		os.Exit(1)
	}
}

func run() error {
	// Optional .env in the working directory; absence is fine.
	_ = godotenv.Load()

	var (
		seriesFlag     = flag.String("series", "", "comma-separated series codes (default: every series in the catalog)")
		languageFlag   = flag.String("language", "all", "locale code to ingest, or 'all'")
		limitFlag      = flag.Int("limit", 0, "max items per partition, 0 = no limit")
		dryRunFlag     = flag.Bool("dry-run", false, "discover and report without writing records or assets")
		skipImagesFlag = flag.Bool("skip-images", false, "write records without uploading images")
		continueFlag   = flag.Bool("continue-on-error", false, "record item failures and keep going instead of aborting the partition")
		imagesOnlyFlag = flag.Bool("images-only", false, "re-attempt only stored records with missing images")
		scheduleFlag   = flag.String("schedule", "", "cron spec for repeated catch-up runs (empty = run once)")
		exportFlag     = flag.String("export", "", "write stored records to this CSV file and exit")
		dataDirFlag    = flag.String("data-dir", "data", "directory for the database, ledger, cache and assets")
		catalogFlag    = flag.String("catalog", "catalog.yaml", "series catalog file")
		quietFlag      = flag.Bool("quiet", false, "suppress the progress indicator")
	)
	flag.Parse()

	if err := os.MkdirAll(*dataDirFlag, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *exportFlag != "" {
		return exportCSV(ctx, *dataDirFlag, *exportFlag)
	}

	cat, err := catalog.Load(*catalogFlag)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	norm, err := cat.Normalizer()
	if err != nil {
		return fmt.Errorf("build rarity normalizer: %w", err)
	}

	baseURL := envOr("CARDSEED_BASE_URL", "https://cards.disneylorcana.com")
	assetHost := envOr("CARDSEED_ASSET_HOST", "")

	db, err := store.Open(filepath.Join(*dataDirFlag, "cards.db"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	// Dry runs write nothing, the progress ledger included.
	var ledger *progress.Store
	if !*dryRunFlag {
		ledger, err = progress.Open(filepath.Join(*dataDirFlag, "progress.jsonl"))
		if err != nil {
			return fmt.Errorf("open progress ledger: %w", err)
		}
	}

	discoveryCache, err := cache.New(filepath.Join(*dataDirFlag, "discovery-cache.json"))
	if err != nil {
		log.Printf("[cardseed] discovery cache unavailable, crawling cold: %v", err)
		discoveryCache = nil
	}

	session, err := browser.New(ctx, browser.Config{
		RemoteURL: os.Getenv("CARDSEED_CHROME_URL"),
		Stealth:   true,
	})
	if err != nil {
		return fmt.Errorf("start browser session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Printf("[cardseed] browser close: %v", err)
		}
	}()

	// One limiter paces every navigation, index and detail alike.
	navLimiter := ratelimit.NewNavigationLimiter()

	disc := discover.New(session, discoveryCache, navLimiter, norm,
		discover.Config{BaseURL: baseURL})

	sink := &assets.DirSink{
		Root:    filepath.Join(*dataDirFlag, "assets"),
		BaseURL: envOr("CARDSEED_ASSET_BASE_URL", "/assets"),
	}

	opts := seeder.Options{
		Series:          splitList(*seriesFlag),
		Language:        *languageFlag,
		Limit:           *limitFlag,
		DryRun:          *dryRunFlag,
		SkipImages:      *skipImagesFlag,
		ContinueOnError: *continueFlag,
		ImagesOnly:      *imagesOnlyFlag,
		AssetHost:       assetHost,
		Quiet:           *quietFlag,
	}

	sdr := seeder.New(cat, norm, disc, session, db, sink, assets.NewFetcher(3), ledger,
		navLimiter, opts)

	runOnce := func(ctx context.Context) error {
		summary, err := sdr.Run(ctx)
		if err != nil {
			return err
		}
		if summary.Failed > 0 {
			log.Printf("[cardseed] %d items failed this run; rerun to retry transient failures", summary.Failed)
		}
		return nil
	}

	if *scheduleFlag != "" {
		return seeder.RunScheduled(ctx, *scheduleFlag, runOnce)
	}

	if err := runOnce(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Printf("[cardseed] interrupted; progress ledger retained for resume")
		}
		return err
	}
	return nil
}

// exportCSV dumps every stored record, independent of the crawl path.
func exportCSV(ctx context.Context, dataDir, outPath string) error {
	db, err := store.Open(filepath.Join(dataDir, "cards.db"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	cards, err := db.QueryCards(ctx, store.Filter{})
	if err != nil {
		return fmt.Errorf("query cards: %w", err)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	if err := report.WriteCSV(f, cards); err != nil {
		return err
	}
	log.Printf("[cardseed] exported %d records to %s", len(cards), outPath)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
