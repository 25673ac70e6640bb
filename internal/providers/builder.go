package providers

import (
	"context"

	"attrib/internal/cms"
	"attrib/internal/evidence"
	"attrib/internal/terms"
)

// BuilderProvider detects page-builder blocks on the target page through
// the injected adapter.
type BuilderProvider struct {
	adapter cms.BuilderAdapter
}

// NewBuilderProvider creates a page-builder scanner.
func NewBuilderProvider(adapter cms.BuilderAdapter) *BuilderProvider {
	return &BuilderProvider{adapter: adapter}
}

// Kind implements ScanProvider.
func (p *BuilderProvider) Kind() string { return "builder" }

// Scan matches terms against detected builder element content. An element
// with no text content still scores against its type name, since builder
// block types are often descriptive ("contact-form", "image-carousel").
func (p *BuilderProvider) Scan(ctx context.Context, searchTerms []terms.Term, target Target) ([]evidence.Item, error) {
	if p.adapter == nil {
		return nil, nil
	}

	elements, err := p.adapter.Detect(ctx, target.Page)
	if err != nil {
		return nil, err
	}

	var items []evidence.Item
	for _, el := range elements {
		searchable := el.Type + " " + el.Content
		conf := evidence.MatchConfidence(searchable, searchTerms)
		if conf <= 0 {
			continue
		}

		items = append(items, evidence.Item{
			SourceType:  evidence.SourceBuilder,
			Location:    el.Type,
			MatchedText: firstNonEmpty(matchedTerm(searchable, searchTerms), el.Type),
			Confidence:  conf,
			Context:     snippet(el.Content, searchTerms),
			EditRef:     el.EditRef,
			Hint:        evidence.HintBuilder,
		})
	}

	return items, nil
}
