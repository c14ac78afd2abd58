package fetcher

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"

	"github.com/digisapp/luxapts/internal/logger"
)

// dynamicFetcher renders JavaScript-heavy property sites with a headless
// browser. Many newer management-company sites ship unit pricing as an SPA.
type dynamicFetcher struct {
	cfg       Config
	allocCtx  context.Context
	cancelCtx context.CancelFunc
}

func newDynamicFetcher(cfg Config) *dynamicFetcher {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(1920, 1080),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	return &dynamicFetcher{
		cfg:       cfg,
		allocCtx:  allocCtx,
		cancelCtx: cancelAlloc,
	}
}

// Fetch renders the page and returns its post-render HTML. The navigated
// location is reported as FinalURL so redirects resolve the same way the
// static path does.
func (f *dynamicFetcher) Fetch(ctx context.Context, targetURL string) (*Page, error) {
	logger.Debug("dynamic fetch starting", "url", targetURL)

	browserCtx, cancelBrowser := chromedp.NewContext(f.allocCtx)
	defer cancelBrowser()

	timeoutCtx, cancelTimeout := context.WithTimeout(browserCtx, f.cfg.Timeout)
	defer cancelTimeout()

	// Honor caller cancellation alongside the per-fetch timeout.
	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	var html, finalURL string
	err := chromedp.Run(timeoutCtx,
		chromedp.Navigate(targetURL),
		chromedp.WaitVisible("body"),
		chromedp.OuterHTML("html", &html),
		chromedp.Location(&finalURL),
	)
	if err != nil {
		return nil, fmt.Errorf("dynamic fetch %s: %w", targetURL, err)
	}

	if finalURL == "" {
		finalURL = targetURL
	}

	logger.Debug("dynamic fetch complete", "url", targetURL, "final_url", finalURL, "bytes", len(html))
	return &Page{HTML: html, FinalURL: finalURL}, nil
}

// Close shuts down the browser allocator.
func (f *dynamicFetcher) Close() error {
	if f.cancelCtx != nil {
		f.cancelCtx()
	}
	return nil
}
