package providers

import (
	"context"

	"attrib/internal/cms"
	"attrib/internal/evidence"
	"attrib/internal/terms"
)

// WidgetProvider scans placed widgets: titles first, then their serialized
// content blobs.
type WidgetProvider struct {
	source cms.ContentSource
}

// NewWidgetProvider creates a widget scanner.
func NewWidgetProvider(source cms.ContentSource) *WidgetProvider {
	return &WidgetProvider{source: source}
}

// Kind implements ScanProvider.
func (p *WidgetProvider) Kind() string { return "widget" }

// Scan matches search terms against widget titles and serialized content.
func (p *WidgetProvider) Scan(ctx context.Context, searchTerms []terms.Term, target Target) ([]evidence.Item, error) {
	widgets, err := p.source.ListWidgets(ctx)
	if err != nil {
		return nil, err
	}

	var items []evidence.Item
	for _, w := range widgets {
		searchable := w.Title + " " + w.SerializedContent
		conf := evidence.MatchConfidence(searchable, searchTerms)
		if conf <= 0 {
			continue
		}

		location := w.Type
		if w.Area != "" {
			location = w.Area + ":" + w.Type
		}

		matched := w.Title
		if matched == "" {
			matched = matchedTerm(w.SerializedContent, searchTerms)
		}

		items = append(items, evidence.Item{
			SourceType:  evidence.SourceWidget,
			Location:    location,
			MatchedText: matched,
			Confidence:  conf,
			Context:     snippet(w.SerializedContent, searchTerms),
			EditRef:     w.EditRef,
			Hint:        evidence.HintWidget,
		})
	}

	return items, nil
}
