package providers

import (
	"context"
	"strings"

	"attrib/internal/cms"
	"attrib/internal/evidence"
	"attrib/internal/terms"
)

// ExtensionProvider matches installed, active extensions by name and by
// their shipped file names. Only the deep scan runs it; extension hits are
// weaker circumstantial evidence than content hits.
type ExtensionProvider struct {
	source cms.ContentSource
}

// NewExtensionProvider creates an extension scanner.
func NewExtensionProvider(source cms.ContentSource) *ExtensionProvider {
	return &ExtensionProvider{source: source}
}

// Kind implements ScanProvider.
func (p *ExtensionProvider) Kind() string { return "extension" }

// Scan matches terms against extension names and file names.
func (p *ExtensionProvider) Scan(ctx context.Context, searchTerms []terms.Term, target Target) ([]evidence.Item, error) {
	extensions, err := p.source.ListActiveExtensions(ctx)
	if err != nil {
		return nil, err
	}

	var items []evidence.Item
	for _, ext := range extensions {
		searchable := strings.ReplaceAll(ext.Name, "-", " ")
		for _, f := range ext.Files {
			searchable += " " + strings.ReplaceAll(f, "-", " ")
		}

		conf := evidence.MatchConfidence(searchable, searchTerms)
		if conf <= 0 {
			continue
		}

		items = append(items, evidence.Item{
			SourceType:  evidence.SourceExtension,
			Location:    ext.Name,
			MatchedText: ext.Name,
			Confidence:  conf,
			Context:     "active extension " + ext.Name + " " + ext.Version,
			EditRef:     "extension:" + ext.Name,
		})
	}

	return items, nil
}
