// Package assets moves card images: fetched over plain HTTP from the
// source CDN and written to asset storage under a content-addressed
// key. Re-uploading the same key overwrites rather than duplicates, so
// retried items are harmless.
package assets

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/time/rate"

	"github.com/guarzo/cardseed/internal/model"
)

const (
	userAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	fetchTimeout = 30 * time.Second
	maxImageSize = 20 << 20 // 20MB, far above any real card scan
)

// Key builds the asset key for a card: series/language/number with the
// finish suffix for variant prints. One key per logical print.
func Key(series string, lang model.Language, number string, finish model.Finish) string {
	name := number
	switch finish {
	case model.FinishAlternate:
		name += "-alt"
	case model.FinishSpecial:
		name += "-premium"
	}
	return fmt.Sprintf("%s/%s/%s.webp", series, lang, name)
}

// Fetcher downloads image bytes from the source CDN, rate limited and
// transparently decoding gzip/brotli responses.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewFetcher creates a Fetcher allowing roughly perSecond requests per
// second with a small burst.
func NewFetcher(perSecond float64) *Fetcher {
	return &Fetcher{
		client:  &http.Client{Timeout: fetchTimeout},
		limiter: rate.NewLimiter(rate.Limit(perSecond), 2),
	}
}

// Fetch downloads one image. Non-2xx statuses are errors; the caller's
// continue-on-error policy decides severity.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, br")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	reader, err := decodeBody(resp)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}

	data, err := io.ReadAll(io.LimitReader(reader, maxImageSize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("fetch %s: empty body", url)
	}
	return data, nil
}

func decodeBody(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}

// Sink is where normalized image assets land. Upload must overwrite on
// key conflict.
type Sink interface {
	Upload(data []byte, key string) (url string, err error)
}

// DirSink stores assets under a local directory tree mirroring the
// key layout, returning URLs under a configured public base. The
// collection site serves this tree directly.
type DirSink struct {
	Root    string
	BaseURL string
}

// Upload writes the asset atomically: temp file in the target
// directory, then rename over any existing file. A crash never leaves
// a readable-but-truncated asset.
func (d *DirSink) Upload(data []byte, key string) (string, error) {
	path := filepath.Join(d.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create asset dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp asset: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write asset %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("sync asset %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close asset %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("finalize asset %s: %w", key, err)
	}

	return d.BaseURL + "/" + key, nil
}
