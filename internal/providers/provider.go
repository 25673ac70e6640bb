// Package providers contains the evidence scanners. Each scanner reads one
// kind of content source and returns typed evidence items with a raw,
// provider-local confidence.
//
// Scanners are side-effect-free on the corpus and safe to call repeatedly;
// the only state they share between calls is the result cache.
package providers

import (
	"context"
	"strings"
	"time"

	"attrib/internal/cache"
	"attrib/internal/cms"
	"attrib/internal/evidence"
	"attrib/internal/terms"
)

// Target is the scan target: the page the user is looking at plus any
// client-supplied element hints.
type Target struct {
	Page  cms.PageContext
	Hints []cms.ElementHint
}

// ScanProvider is the fixed, explicit interface every scanner implements.
// Quick scans run a static ordered list of these; no dynamic dispatch.
type ScanProvider interface {
	Kind() string
	Scan(ctx context.Context, searchTerms []terms.Term, target Target) ([]evidence.Item, error)
}

// Slicer is implemented by providers whose corpus is large enough for the
// deep scan to process in batches. Scan a bounded slice starting at offset;
// done reports that the slice exhausted the input.
type Slicer interface {
	ScanSlice(ctx context.Context, searchTerms []terms.Term, target Target, offset, limit int) (items []evidence.Item, done bool, err error)
}

// QuickOrder returns the fixed priority order for quick scans: client hints
// first, then menus, then high-value templates, then widgets and embedded
// shortcodes last.
func QuickOrder(source cms.ContentSource, c *cache.Cache, cacheTTL time.Duration) []ScanProvider {
	return []ScanProvider{
		NewHintProvider(),
		NewMenuProvider(source),
		NewTemplateProvider(source, c, cacheTTL),
		NewWidgetProvider(source),
		NewShortcodeProvider(source),
	}
}

// snippet extracts a short context window around the first term match in
// text, for display alongside the evidence item.
func snippet(text string, searchTerms []terms.Term) string {
	lowered := strings.ToLower(text)
	idx := -1
	for _, t := range searchTerms {
		if i := strings.Index(lowered, t.Text); i >= 0 && (idx < 0 || i < idx) {
			idx = i
		}
	}
	if idx < 0 {
		if len(text) > 80 {
			return text[:80]
		}
		return text
	}

	start := idx - 40
	if start < 0 {
		start = 0
	}
	end := idx + 80
	if end > len(text) {
		end = len(text)
	}
	return strings.TrimSpace(text[start:end])
}

// matchedTerm returns the first term found inside text, preferring phrases.
func matchedTerm(text string, searchTerms []terms.Term) string {
	lowered := strings.ToLower(text)
	for _, t := range searchTerms {
		if strings.Contains(lowered, t.Text) {
			return t.Text
		}
	}
	return ""
}
