// Package fetcher retrieves building website HTML under per-domain rate
// limits and browser-like headers, and discovers amenity/floor-plan sub-pages.
package fetcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/digisapp/luxapts/internal/logger"
)

// browserHeaders reduce trivial bot-blocking on property management sites.
var browserHeaders = map[string]string{
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
	"Cache-Control":   "no-cache",
	"Pragma":          "no-cache",
}

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultTimeout bounds a single page fetch.
const DefaultTimeout = 15 * time.Second

// Mode determines how pages are fetched.
type Mode string

const (
	ModeAuto    Mode = "auto"
	ModeStatic  Mode = "static"
	ModeDynamic Mode = "dynamic"
)

// Page is a fetched page. FinalURL is redirect-resolved so downstream code
// cites the real source.
type Page struct {
	HTML     string
	FinalURL string
}

// Config holds fetcher configuration.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	Mode      Mode
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		UserAgent: defaultUserAgent,
		Timeout:   DefaultTimeout,
		Mode:      ModeStatic,
	}
}

// Client fetches building website pages through a shared domain throttle.
type Client struct {
	cfg      Config
	throttle *Throttle
	dynamic  *dynamicFetcher
}

// New creates a Client. The throttle is shared across all scrapes in the
// process; pass the same instance to every client.
func New(cfg Config, throttle *Throttle) (*Client, error) {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeStatic
	}
	if throttle == nil {
		throttle = NewThrottle()
	}

	c := &Client{cfg: cfg, throttle: throttle}

	if cfg.Mode == ModeDynamic || cfg.Mode == ModeAuto {
		c.dynamic = newDynamicFetcher(cfg)
	}

	return c, nil
}

// Close releases browser resources held by the dynamic fetcher, if any.
func (c *Client) Close() error {
	if c.dynamic != nil {
		return c.dynamic.Close()
	}
	return nil
}

// FetchHTML retrieves the page at rawURL. It waits on the domain throttle,
// follows redirects, and returns an error on any non-2xx response or network
// failure. No retry happens at this layer; callers schedule the next window.
func (c *Client) FetchHTML(ctx context.Context, rawURL string) (*Page, error) {
	if err := c.throttle.Wait(ctx, rawURL); err != nil {
		return nil, err
	}

	switch c.cfg.Mode {
	case ModeDynamic:
		return c.dynamic.Fetch(ctx, rawURL)
	case ModeAuto:
		page, err := c.fetchStatic(ctx, rawURL)
		if err != nil {
			return c.dynamic.Fetch(ctx, rawURL)
		}
		if needsJavaScript(page.HTML) {
			logger.Debug("page looks like an unrendered SPA shell, refetching dynamically", "url", rawURL)
			if rendered, derr := c.dynamic.Fetch(ctx, rawURL); derr == nil {
				return rendered, nil
			}
		}
		return page, nil
	default:
		return c.fetchStatic(ctx, rawURL)
	}
}

func (c *Client) fetchStatic(ctx context.Context, rawURL string) (*Page, error) {
	collector := colly.NewCollector(
		colly.UserAgent(c.cfg.UserAgent),
	)
	collector.SetRequestTimeout(c.cfg.Timeout)

	collector.OnRequest(func(r *colly.Request) {
		for k, v := range browserHeaders {
			r.Headers.Set(k, v)
		}
	})

	page := &Page{FinalURL: rawURL}
	var fetchErr error

	collector.OnResponse(func(r *colly.Response) {
		page.HTML = string(r.Body)
		if r.Request != nil && r.Request.URL != nil {
			page.FinalURL = r.Request.URL.String()
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = fmt.Errorf("fetch %s: HTTP %d", rawURL, r.StatusCode)
			return
		}
		fetchErr = fmt.Errorf("fetch %s: %w", rawURL, err)
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := collector.Visit(rawURL); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	if fetchErr != nil {
		return nil, fetchErr
	}
	if page.HTML == "" {
		return nil, fmt.Errorf("fetch %s: empty response body", rawURL)
	}

	return page, nil
}

// needsJavaScript checks if a page appears to be an SPA shell that requires
// rendering before any unit or amenity content is present.
func needsJavaScript(html string) bool {
	lower := strings.ToLower(html)

	spaMarkers := []string{
		`<div id="root"></div>`,
		`<div id="app"></div>`,
		`<app-root></app-root>`,
		`<div id="__next"></div>`,
		`<div id="__nuxt"></div>`,
	}
	for _, marker := range spaMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
