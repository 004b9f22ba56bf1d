// Package browser owns the single browser-automation session the
// pipeline crawls with. One page handle is reused for every sequential
// navigation; no parallel page loads are permitted against it. The
// session is torn down unconditionally at the end of the run,
// including on the error path.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Config configures the session.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local headless Chrome via launcher.
	RemoteURL string

	// NavTimeout bounds every navigation. Exceeding it is a per-item
	// failure, not a fatal abort. Default: 30s.
	NavTimeout time.Duration

	// Stealth applies the anti-automation-detection page setup.
	// Off only for local test fixtures.
	Stealth bool

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Session is the exclusively-owned browser handle.
type Session struct {
	cfg     Config
	browser *rod.Browser
	lnch    *launcher.Launcher
	page    *rod.Page
}

// New launches (or connects to) Chrome and opens the single page the
// whole run navigates with.
func New(ctx context.Context, cfg Config) (*Session, error) {
	cfg.defaults()
	s := &Session{cfg: cfg}

	var wsURL string
	if cfg.RemoteURL != "" {
		wsURL = cfg.RemoteURL
	} else {
		s.lnch = launcher.New().Headless(true)
		u, err := s.lnch.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
	}

	s.browser = rod.New().ControlURL(wsURL).Context(ctx)
	if err := s.browser.Connect(); err != nil {
		s.cleanupLauncher()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}

	page, err := s.newPage()
	if err != nil {
		s.browser.Close()
		s.cleanupLauncher()
		return nil, err
	}
	s.page = page

	return s, nil
}

func (s *Session) newPage() (*rod.Page, error) {
	if s.cfg.Stealth {
		page, err := stealth.Page(s.browser)
		if err != nil {
			return nil, fmt.Errorf("browser: stealth page: %w", err)
		}
		return page, nil
	}
	page, err := s.browser.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, fmt.Errorf("browser: create page: %w", err)
	}
	return page, nil
}

// Navigate loads url on the shared page and waits for it to settle,
// bounded by the configured timeout.
func (s *Session) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavTimeout)
	defer cancel()

	page := s.page.Context(navCtx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("browser: wait load %s: %w", url, err)
	}
	return nil
}

// HTML serialises the current DOM as outer HTML. Rendered content, not
// the raw response body; the catalog site builds its listings
// client-side.
func (s *Session) HTML(ctx context.Context) (string, error) {
	res, err := s.page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("browser: read DOM: %w", err)
	}
	return res.Value.Str(), nil
}

// Fetch navigates to url and returns the rendered HTML. This is the
// discovery and enrichment entry point.
func (s *Session) Fetch(ctx context.Context, url string) (string, error) {
	if err := s.Navigate(ctx, url); err != nil {
		return "", err
	}
	return s.HTML(ctx)
}

// Close tears the session down: page, browser, and any launched Chrome
// process. Safe to defer immediately after New.
func (s *Session) Close() error {
	var firstErr error
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			firstErr = err
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.cleanupLauncher()
	if firstErr != nil {
		s.cfg.Logger.Warn("browser: close", "error", firstErr)
	}
	return firstErr
}

func (s *Session) cleanupLauncher() {
	if s.lnch != nil {
		s.lnch.Cleanup()
	}
}
