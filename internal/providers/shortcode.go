package providers

import (
	"context"
	"regexp"
	"strings"

	"attrib/internal/cms"
	"attrib/internal/evidence"
	"attrib/internal/terms"
)

// shortcodePattern matches square-bracket embeds like [contact_form id="3"].
var shortcodePattern = regexp.MustCompile(`\[([a-zA-Z][a-zA-Z0-9_-]*)([^\]]*)\]`)

// shortcodeScanLimit bounds how many records the quick scan inspects for
// embedded shortcodes; the deep scan's record phase covers the rest.
const shortcodeScanLimit = 50

// ShortcodeProvider finds embedded shortcode blocks inside content records.
// A shortcode hit points at the extension that registered it, so items carry
// the shortcode name as their location.
type ShortcodeProvider struct {
	source cms.ContentSource
}

// NewShortcodeProvider creates a shortcode scanner.
func NewShortcodeProvider(source cms.ContentSource) *ShortcodeProvider {
	return &ShortcodeProvider{source: source}
}

// Kind implements ScanProvider.
func (p *ShortcodeProvider) Kind() string { return "shortcode" }

// Scan inspects a bounded set of records for shortcodes whose name or
// attributes match the search terms.
func (p *ShortcodeProvider) Scan(ctx context.Context, searchTerms []terms.Term, target Target) ([]evidence.Item, error) {
	records, err := p.source.SearchRecords(ctx, shortcodeScanLimit, 0)
	if err != nil {
		return nil, err
	}

	var items []evidence.Item
	for _, r := range records {
		for _, m := range shortcodePattern.FindAllStringSubmatch(r.Body, -1) {
			name, attrs := m[1], m[2]
			searchable := strings.ReplaceAll(name, "_", " ") + " " + attrs
			conf := evidence.MatchConfidence(searchable, searchTerms)
			if conf <= 0 {
				continue
			}

			items = append(items, evidence.Item{
				SourceType:  evidence.SourceShortcode,
				Location:    name,
				MatchedText: m[0],
				Confidence:  conf,
				Context:     "embedded in record " + r.ID + " (" + r.Title + ")",
				EditRef:     "record:" + r.ID,
				Hint:        evidence.HintRecord,
			})
		}
	}

	return items, nil
}
