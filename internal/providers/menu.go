package providers

import (
	"context"

	"attrib/internal/cms"
	"attrib/internal/evidence"
	"attrib/internal/terms"
)

// MenuProvider scans navigation configurations. Menu titles are short and
// curated, so a term hit here is strong evidence.
type MenuProvider struct {
	source cms.ContentSource
}

// NewMenuProvider creates a menu scanner.
func NewMenuProvider(source cms.ContentSource) *MenuProvider {
	return &MenuProvider{source: source}
}

// Kind implements ScanProvider.
func (p *MenuProvider) Kind() string { return "menu" }

// Scan matches search terms against menu item titles and targets.
func (p *MenuProvider) Scan(ctx context.Context, searchTerms []terms.Term, target Target) ([]evidence.Item, error) {
	menus, err := p.source.ListMenus(ctx)
	if err != nil {
		return nil, err
	}

	var items []evidence.Item
	for _, m := range menus {
		searchable := m.Title + " " + m.Target
		conf := evidence.MatchConfidence(searchable, searchTerms)
		if conf <= 0 {
			continue
		}

		location := m.Target
		if m.Menu != "" {
			location = m.Menu + ":" + m.Title
		}

		items = append(items, evidence.Item{
			SourceType:  evidence.SourceMenu,
			Location:    location,
			MatchedText: m.Title,
			Confidence:  conf,
			Context:     "menu item linking to " + m.Target,
			EditRef:     m.EditRef,
			Hint:        evidence.HintMenu,
		})
	}

	return items, nil
}
