package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/digisapp/luxapts/internal/llm"
	"github.com/digisapp/luxapts/internal/logger"
)

// MaxContentSize is the default HTML budget sent to the model. Truncation is
// applied at exactly this offset on every call so behavior is deterministic
// for a given input length.
const MaxContentSize = 100000

// truncationMarker is appended whenever HTML is cut at the budget.
const truncationMarker = "\n... [truncated]"

// Extractor performs LLM-based extraction. Extraction failure is never fatal:
// any provider, parse, or configuration problem degrades to an
// empty-but-well-formed result.
type Extractor struct {
	provider       llm.Provider
	maxContentSize int
	temperature    float64
	maxTokens      int
}

// Option configures the extractor.
type Option func(*Extractor)

// WithMaxContentSize overrides the HTML budget.
func WithMaxContentSize(n int) Option {
	return func(e *Extractor) {
		e.maxContentSize = n
	}
}

// WithMaxTokens sets the maximum tokens for responses.
func WithMaxTokens(n int) Option {
	return func(e *Extractor) {
		e.maxTokens = n
	}
}

// New creates an Extractor. A nil provider is allowed and means no LLM
// credential is configured; every extraction then returns empty results.
func New(provider llm.Provider, opts ...Option) *Extractor {
	e := &Extractor{
		provider:       provider,
		maxContentSize: MaxContentSize,
		temperature:    0.1,
		maxTokens:      8192,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractUnits extracts rental units from html.
func (e *Extractor) ExtractUnits(ctx context.Context, html, sourceURL string) UnitsResult {
	var result UnitsResult
	if !e.complete(ctx, unitsPrompt, html, sourceURL, &result) {
		return UnitsResult{}
	}
	if result.TotalAvailable == 0 {
		result.TotalAvailable = len(result.Units)
	}
	return result
}

// ExtractAmenities extracts building amenities from html.
func (e *Extractor) ExtractAmenities(ctx context.Context, html, sourceURL string) AmenitiesResult {
	var result AmenitiesResult
	if !e.complete(ctx, amenitiesPrompt, html, sourceURL, &result) {
		return AmenitiesResult{}
	}
	return result
}

// complete runs one LLM call and unmarshals the response JSON into out.
// Returns false when the result should degrade to empty.
func (e *Extractor) complete(ctx context.Context, systemPrompt, html, sourceURL string, out any) bool {
	if e.provider == nil {
		logger.Warn("no LLM credential configured, extraction degrades to empty result", "url", sourceURL)
		return false
	}

	truncated := Truncate(html, e.maxContentSize)

	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: fmt.Sprintf("URL: %s\n\nHTML:\n%s", sourceURL, truncated)},
		},
		MaxTokens:   e.maxTokens,
		Temperature: e.temperature,
	})
	if err != nil {
		logger.Warn("LLM extraction failed", "url", sourceURL, "error", err)
		return false
	}

	blob, ok := jsonBlob(resp.Content)
	if !ok {
		logger.Warn("no JSON object in LLM response", "url", sourceURL, "response_size", len(resp.Content))
		return false
	}

	if err := json.Unmarshal([]byte(blob), out); err != nil {
		logger.Warn("failed to parse LLM response JSON", "url", sourceURL, "error", err)
		return false
	}

	logger.Debug("extraction complete",
		"url", sourceURL,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens)
	return true
}

// Truncate cuts content at exactly maxLen characters, appending the
// truncation marker. maxLen <= 0 means no limit.
func Truncate(content string, maxLen int) string {
	if maxLen <= 0 || len(content) <= maxLen {
		return content
	}
	return content[:maxLen] + truncationMarker
}

// jsonBlob locates the outermost {...} span of s: from the first opening
// brace to the last closing brace. Models occasionally wrap the payload in
// prose or code fences despite the prompt.
func jsonBlob(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return s[start : end+1], true
}
