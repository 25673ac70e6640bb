package providers

import (
	"context"

	"attrib/internal/cms"
	"attrib/internal/evidence"
	"attrib/internal/terms"
)

// RecordProvider scans stored content records. The corpus is unbounded and
// unindexed, so the deep scan drives it through ScanSlice.
type RecordProvider struct {
	source cms.ContentSource
}

// NewRecordProvider creates a content-record scanner.
func NewRecordProvider(source cms.ContentSource) *RecordProvider {
	return &RecordProvider{source: source}
}

// Kind implements ScanProvider.
func (p *RecordProvider) Kind() string { return "record" }

// Scan covers one default-sized slice; quick scans do not include this
// provider, but the interface keeps it drivable standalone.
func (p *RecordProvider) Scan(ctx context.Context, searchTerms []terms.Term, target Target) ([]evidence.Item, error) {
	items, _, err := p.ScanSlice(ctx, searchTerms, target, 0, 100)
	return items, err
}

// ScanSlice scans records [offset, offset+limit).
func (p *RecordProvider) ScanSlice(ctx context.Context, searchTerms []terms.Term, target Target, offset, limit int) ([]evidence.Item, bool, error) {
	records, err := p.source.SearchRecords(ctx, limit, offset)
	if err != nil {
		return nil, false, err
	}
	if len(records) == 0 {
		return nil, true, nil
	}

	var items []evidence.Item
	for _, r := range records {
		searchable := r.Title + "\n" + r.Body
		conf := evidence.MatchConfidence(searchable, searchTerms)
		if conf <= 0 {
			continue
		}

		items = append(items, evidence.Item{
			SourceType:  evidence.SourceRecord,
			Location:    "record:" + r.ID,
			MatchedText: firstNonEmpty(matchedTerm(searchable, searchTerms), r.Title),
			Confidence:  conf,
			Context:     snippet(r.Body, searchTerms),
			EditRef:     "record:" + r.ID,
			Hint:        evidence.HintRecord,
		})
	}

	return items, len(records) < limit, nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
