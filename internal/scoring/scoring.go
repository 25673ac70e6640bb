// Package scoring ranks evidence across providers and collapses duplicates.
//
// Provider confidences are local to each provider and never compared
// directly; ranking happens on the combined score, relevance times
// confidence, computed here.
package scoring

import (
	"sort"
	"strings"

	"attrib/internal/evidence"
	"attrib/internal/terms"
)

const (
	substringPoints    = 10.0
	wordBoundaryPoints = 5.0
	fuzzyMaxPoints     = 3.0
	locationPoints     = 5.0
)

// highValueLocations are structural file names that control most visible
// chrome; evidence located in them gets a flat bonus.
var highValueLocations = []string{"header", "footer", "nav", "navigation", "menu", "sidebar"}

// backupSegments are path decorations that mark backup or staging copies of
// the same underlying file; stripped before duplicate detection.
var backupSegments = []string{"-backup", ".bak", "_old", "-old", "-copy", "_copy", "~"}

// Scorer computes relevance and combined scores for evidence items.
type Scorer struct {
	fuzzyThreshold float64
	topN           int
}

// NewScorer creates a scorer. fuzzyThreshold <= 0 selects 0.6; topN <= 0
// selects 20.
func NewScorer(fuzzyThreshold float64, topN int) *Scorer {
	if fuzzyThreshold <= 0 {
		fuzzyThreshold = 0.6
	}
	if topN <= 0 {
		topN = 20
	}
	return &Scorer{fuzzyThreshold: fuzzyThreshold, topN: topN}
}

// Score ranks items against the search terms: deduplicates, computes
// relevance and combined scores, sorts descending by combined score and
// truncates to top-N.
func (s *Scorer) Score(items []evidence.Item, searchTerms []terms.Term) []evidence.Scored {
	deduped := Deduplicate(items)

	scored := make([]evidence.Scored, 0, len(deduped))
	for _, item := range deduped {
		rel := s.relevance(item, searchTerms)
		scored = append(scored, evidence.Scored{
			Item:      item,
			Relevance: rel,
			Combined:  rel * item.Confidence,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Combined > scored[j].Combined
	})

	if len(scored) > s.topN {
		scored = scored[:s.topN]
	}
	return scored
}

// relevance accumulates term-match points plus structural bonuses.
func (s *Scorer) relevance(item evidence.Item, searchTerms []terms.Term) float64 {
	searchable := strings.ToLower(item.MatchedText + " " + item.Context + " " + item.Location)

	score := 0.0
	substring := false
	boundary := false
	bestFuzzy := 0.0

	for _, t := range searchTerms {
		if strings.Contains(searchable, t.Text) {
			substring = true
			if containsWord(searchable, t.Text) {
				boundary = true
			}
			continue
		}
		if sim := evidence.Similarity(searchable, t.Text); sim >= s.fuzzyThreshold && sim > bestFuzzy {
			bestFuzzy = sim
		}
	}

	if substring {
		score += substringPoints
	}
	if boundary {
		score += wordBoundaryPoints
	}
	if !substring && bestFuzzy > 0 {
		score += fuzzyMaxPoints * bestFuzzy
	}

	location := strings.ToLower(item.Location)
	for _, name := range highValueLocations {
		if strings.Contains(location, name) {
			score += locationPoints
			break
		}
	}

	return score
}

// Deduplicate collapses items that share a normalized location key, keeping
// only the highest-confidence survivor per key.
func Deduplicate(items []evidence.Item) []evidence.Item {
	best := make(map[string]int, len(items))
	order := make([]string, 0, len(items))

	for i, item := range items {
		key := NormalizeLocation(item.Location)
		if idx, seen := best[key]; seen {
			if item.Confidence > items[idx].Confidence {
				best[key] = i
			}
			continue
		}
		best[key] = i
		order = append(order, key)
	}

	out := make([]evidence.Item, 0, len(order))
	for _, key := range order {
		out = append(out, items[best[key]])
	}
	return out
}

// NormalizeLocation strips backup/staging decorations so copies of the same
// file collapse to one key.
func NormalizeLocation(location string) string {
	key := strings.ToLower(location)
	key = strings.ReplaceAll(key, "/staging/", "/")
	for _, seg := range backupSegments {
		key = strings.ReplaceAll(key, seg, "")
	}
	return key
}

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
