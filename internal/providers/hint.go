package providers

import (
	"context"

	"attrib/internal/evidence"
	"attrib/internal/terms"
)

// HintProvider turns client-supplied, already-matched DOM elements into
// evidence items. It runs first in the quick-scan order because the client
// has already done the locating work.
type HintProvider struct{}

// NewHintProvider creates a hint scanner.
func NewHintProvider() *HintProvider {
	return &HintProvider{}
}

// Kind implements ScanProvider.
func (p *HintProvider) Kind() string { return "hint" }

// Scan scores each hint's visible text against the search terms and tags it
// with a structural hint inferred from its selector.
func (p *HintProvider) Scan(ctx context.Context, searchTerms []terms.Term, target Target) ([]evidence.Item, error) {
	var items []evidence.Item
	for _, h := range target.Hints {
		conf := evidence.MatchConfidence(h.Text, searchTerms)
		if conf <= 0 {
			continue
		}

		items = append(items, evidence.Item{
			SourceType:  evidence.SourceHint,
			Location:    h.Selector,
			MatchedText: h.Text,
			Confidence:  conf,
			Context:     "client-matched element (" + h.Kind + ")",
			Hint:        evidence.InferHint(h.Selector),
		})
	}
	return items, nil
}
