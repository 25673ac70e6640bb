// Package evidence defines the typed evidence model shared by all scanners.
//
// An Item is one located, confidence-scored hint that a given source
// controls the queried element. Items are immutable once created; scoring
// produces derived Scored values and never mutates the underlying item.
package evidence

import (
	"strings"

	"attrib/internal/terms"
)

// SourceType identifies the kind of source an item points at.
type SourceType string

const (
	SourceMenu      SourceType = "navigation_menu"
	SourceTemplate  SourceType = "template_file"
	SourceWidget    SourceType = "widget"
	SourceShortcode SourceType = "shortcode"
	SourceBuilder   SourceType = "page_builder"
	SourceRecord    SourceType = "content_record"
	SourceExtension SourceType = "extension"
	SourceCSS       SourceType = "stylesheet"
	SourceHint      SourceType = "client_hint"
)

// StructuralHint tags items whose location follows a structural naming
// convention. Used as a scoring bonus, never as a confidence override.
type StructuralHint string

const (
	HintNone    StructuralHint = ""
	HintMenu    StructuralHint = "likely_menu"
	HintWidget  StructuralHint = "likely_widget"
	HintBuilder StructuralHint = "likely_builder"
	HintRecord  StructuralHint = "likely_record"
	HintHeader  StructuralHint = "likely_header"
	HintFooter  StructuralHint = "likely_footer"
)

// Item is one piece of evidence produced by exactly one provider.
// Confidence is provider-local and must not be compared across providers;
// cross-provider comparison happens only via Scored.Combined.
type Item struct {
	SourceType  SourceType     `json:"sourceType"`
	Location    string         `json:"location"`
	MatchedText string         `json:"matchedText"`
	Confidence  float64        `json:"confidence"`
	Context     string         `json:"context,omitempty"`
	EditRef     string         `json:"editRef,omitempty"`
	Hint        StructuralHint `json:"structuralHint,omitempty"`
}

// Scored is the derived, rankable view of an item.
type Scored struct {
	Item      Item    `json:"item"`
	Relevance float64 `json:"relevanceScore"`
	Combined  float64 `json:"combinedScore"`
}

const (
	wordBoundaryConfidence = 0.9
	substringConfidence    = 0.75
	fuzzyConfidenceCeiling = 0.6
	fuzzySimilarityFloor   = 0.6
)

// MatchConfidence computes provider-local confidence for text against terms:
// 0.9 for a word-boundary match, 0.75 for a plain substring match, otherwise
// the best character-similarity ratio capped at 0.6 so fuzzy evidence never
// crowds out exact evidence. Similarity below the floor counts as no match
// at all; LCS ratios are rarely exactly zero and would otherwise leak noise
// through every provider.
func MatchConfidence(text string, searchTerms []terms.Term) float64 {
	if text == "" || len(searchTerms) == 0 {
		return 0
	}
	lowered := strings.ToLower(text)

	best := 0.0
	for _, t := range searchTerms {
		var c float64
		switch {
		case containsWord(lowered, t.Text):
			c = wordBoundaryConfidence
		case strings.Contains(lowered, t.Text):
			c = substringConfidence
		default:
			if sim := Similarity(lowered, t.Text); sim >= fuzzySimilarityFloor {
				c = sim * fuzzyConfidenceCeiling
			}
		}
		if c > best {
			best = c
		}
	}
	return best
}

// containsWord reports whether term occurs in text bounded by non-word runes.
func containsWord(text, term string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], term)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(term)
		beforeOK := start == 0 || !isWordByte(text[start-1])
		afterOK := end == len(text) || !isWordByte(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_'
}

// Similarity returns a character-similarity ratio in [0,1] between two
// strings: the length of their longest common subsequence over the length
// of the longer string.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	// Single-row LCS
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}

	longer := len(a)
	if len(b) > longer {
		longer = len(b)
	}
	return float64(prev[len(b)]) / float64(longer)
}

// InferHint derives a structural hint from naming conventions in a location
// or selector string.
func InferHint(location string) StructuralHint {
	l := strings.ToLower(location)
	switch {
	case strings.Contains(l, "menu") || strings.Contains(l, "nav"):
		return HintMenu
	case strings.Contains(l, "widget") || strings.Contains(l, "sidebar"):
		return HintWidget
	case strings.Contains(l, "builder") || strings.Contains(l, "elementor") ||
		strings.Contains(l, "block"):
		return HintBuilder
	case strings.Contains(l, "header"):
		return HintHeader
	case strings.Contains(l, "footer"):
		return HintFooter
	case strings.Contains(l, "post") || strings.Contains(l, "page"):
		return HintRecord
	}
	return HintNone
}
