package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/digisapp/luxapts/internal/extractor"
	"github.com/digisapp/luxapts/internal/fetcher"
	"github.com/digisapp/luxapts/internal/llm"
	"github.com/digisapp/luxapts/internal/logger"
	"github.com/digisapp/luxapts/internal/scraper"
)

// buildScraper assembles the fetch and extraction pipeline. With no LLM
// credential configured it falls back to regex pattern extraction so local
// runs still produce data.
func buildScraper(fetchMode string, timeout time.Duration, maxContentSize int) (*scraper.Scraper, error) {
	cfg := fetcher.DefaultConfig()
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	switch fetcher.Mode(fetchMode) {
	case fetcher.ModeStatic, fetcher.ModeDynamic, fetcher.ModeAuto:
		cfg.Mode = fetcher.Mode(fetchMode)
	case "":
	default:
		return nil, fmt.Errorf("unknown fetch mode: %s (use static, dynamic or auto)", fetchMode)
	}

	client, err := fetcher.New(cfg, fetcher.NewThrottle())
	if err != nil {
		return nil, err
	}

	provider, err := buildProvider()
	if err != nil {
		return nil, err
	}
	if provider == nil {
		logger.Warn("no LLM credential configured, using pattern extraction")
		pattern := extractor.NewPatternExtractor()
		return scraper.New(client, pattern, pattern), nil
	}

	var opts []extractor.Option
	if maxContentSize > 0 {
		opts = append(opts, extractor.WithMaxContentSize(maxContentSize))
	}
	ext := extractor.New(provider, opts...)
	return scraper.New(client, ext, ext), nil
}

// buildProvider resolves the LLM provider from config, falling back to
// environment detection. Returns nil when nothing is configured.
func buildProvider() (llm.Provider, error) {
	cfg := llm.DefaultProviderConfig()
	cfg.APIKey = viper.GetString("api_key")
	cfg.Model = viper.GetString("model")
	cfg.BaseURL = viper.GetString("base_url")

	name := viper.GetString("provider")
	if name == "" {
		detected, key, ok := llm.Detect()
		if !ok {
			return nil, nil
		}
		name = detected
		if cfg.APIKey == "" {
			cfg.APIKey = key
		}
	}
	if cfg.Model == "" {
		cfg.Model = llm.DefaultModels[name]
	}
	return llm.NewProvider(name, cfg)
}

// parseContentSize converts a humanized size like "100KB" to bytes.
// Empty or "0" means unlimited.
func parseContentSize(s string) (int, error) {
	if strings.TrimSpace(s) == "" || s == "0" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid max-content-size %q: %w", s, err)
	}
	return int(n), nil
}
