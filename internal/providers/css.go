package providers

import (
	"context"
	"regexp"
	"strings"

	"attrib/internal/cms"
	"attrib/internal/evidence"
	"attrib/internal/terms"
)

// selectorPattern pulls selectors and custom-property names out of a
// stylesheet without a full CSS parse; branding audits only need names.
var selectorPattern = regexp.MustCompile(`(?m)^\s*([.#]?[a-zA-Z][a-zA-Z0-9_.#\s>:,-]*)\{|--([a-zA-Z][a-zA-Z0-9-]*)\s*:`)

// CSSProvider audits stylesheets for branding rules: selectors and custom
// properties whose names match the search terms.
type CSSProvider struct {
	source cms.ContentSource
}

// NewCSSProvider creates a branding/CSS scanner.
func NewCSSProvider(source cms.ContentSource) *CSSProvider {
	return &CSSProvider{source: source}
}

// Kind implements ScanProvider.
func (p *CSSProvider) Kind() string { return "css" }

// Scan matches terms against selector and custom-property names in every
// stylesheet.
func (p *CSSProvider) Scan(ctx context.Context, searchTerms []terms.Term, target Target) ([]evidence.Item, error) {
	sheets, err := p.source.ListStylesheets(ctx)
	if err != nil {
		return nil, err
	}

	var items []evidence.Item
	for _, sheet := range sheets {
		for _, m := range selectorPattern.FindAllStringSubmatch(sheet.Content, -1) {
			name := m[1]
			if name == "" {
				name = m[2]
			}
			searchable := strings.NewReplacer("-", " ", "_", " ", ".", " ", "#", " ").Replace(name)

			conf := evidence.MatchConfidence(searchable, searchTerms)
			if conf < 0.6 {
				// Fuzzy-only selector hits are noise
				continue
			}

			items = append(items, evidence.Item{
				SourceType:  evidence.SourceCSS,
				Location:    sheet.Path,
				MatchedText: strings.TrimSpace(name),
				Confidence:  conf,
				Context:     "style rule in " + sheet.Path,
				EditRef:     sheet.Path,
				Hint:        evidence.InferHint(sheet.Path),
			})
		}
	}

	return items, nil
}
