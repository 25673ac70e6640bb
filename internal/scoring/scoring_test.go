package scoring

import (
	"testing"

	"attrib/internal/evidence"
	"attrib/internal/terms"
)

func searchTerms(texts ...string) []terms.Term {
	out := make([]terms.Term, len(texts))
	for i, t := range texts {
		out[i] = terms.Term{Text: t}
	}
	return out
}

func TestScore(t *testing.T) {
	s := NewScorer(0.6, 20)

	t.Run("combined is relevance times confidence", func(t *testing.T) {
		items := []evidence.Item{
			{SourceType: evidence.SourceMenu, Location: "menu/main", MatchedText: "contact", Confidence: 0.9},
		}
		scored := s.Score(items, searchTerms("contact"))
		if len(scored) != 1 {
			t.Fatalf("expected 1 scored item, got %d", len(scored))
		}
		want := scored[0].Relevance * 0.9
		if scored[0].Combined != want {
			t.Errorf("Combined = %v, want %v", scored[0].Combined, want)
		}
	})

	t.Run("sorted descending and truncated to top-N", func(t *testing.T) {
		small := NewScorer(0.6, 2)
		items := []evidence.Item{
			{Location: "a", MatchedText: "unrelated", Confidence: 0.3},
			{Location: "header/menu", MatchedText: "contact", Confidence: 0.9},
			{Location: "b", MatchedText: "contact", Confidence: 0.75},
		}
		scored := small.Score(items, searchTerms("contact"))
		if len(scored) != 2 {
			t.Fatalf("expected top 2, got %d", len(scored))
		}
		if scored[0].Combined < scored[1].Combined {
			t.Error("results not sorted by combined score")
		}
		if scored[0].Item.Location != "header/menu" {
			t.Errorf("expected high-value menu location first, got %s", scored[0].Item.Location)
		}
	})

	t.Run("word boundary beats plain substring", func(t *testing.T) {
		boundary := s.relevance(evidence.Item{MatchedText: "contact us"}, searchTerms("contact"))
		substring := s.relevance(evidence.Item{MatchedText: "precontacting"}, searchTerms("contact"))
		if boundary <= substring {
			t.Errorf("boundary relevance %v should exceed substring relevance %v", boundary, substring)
		}
	})

	t.Run("high value location bonus", func(t *testing.T) {
		plain := s.relevance(evidence.Item{Location: "misc/a.php", MatchedText: "contact"}, searchTerms("contact"))
		header := s.relevance(evidence.Item{Location: "header.php", MatchedText: "contact"}, searchTerms("contact"))
		if header != plain+5 {
			t.Errorf("header bonus = %v, want %v", header-plain, 5.0)
		}
	})

	t.Run("fuzzy only when no substring", func(t *testing.T) {
		got := s.relevance(evidence.Item{MatchedText: "kontact"}, searchTerms("contact"))
		if got <= 0 || got > 3 {
			t.Errorf("fuzzy relevance = %v, want within (0, 3]", got)
		}
	})
}

func TestDeduplicate(t *testing.T) {
	t.Run("keeps highest confidence per location", func(t *testing.T) {
		items := []evidence.Item{
			{Location: "templates/header.php", Confidence: 0.75},
			{Location: "templates/header.php", Confidence: 0.9},
		}
		got := Deduplicate(items)
		if len(got) != 1 {
			t.Fatalf("expected 1 item, got %d", len(got))
		}
		if got[0].Confidence != 0.9 {
			t.Errorf("kept confidence %v, want 0.9", got[0].Confidence)
		}
	})

	t.Run("backup copies collapse", func(t *testing.T) {
		items := []evidence.Item{
			{Location: "templates/header.php", Confidence: 0.9},
			{Location: "templates/header-backup.php", Confidence: 0.75},
			{Location: "staging/templates/header.php", Confidence: 0.6},
		}
		got := Deduplicate(items)
		if len(got) != 2 {
			t.Fatalf("expected 2 items after collapsing the backup copy, got %d", len(got))
		}
		seen := map[string]bool{}
		for _, item := range got {
			key := NormalizeLocation(item.Location)
			if seen[key] {
				t.Errorf("duplicate normalized key %q survived", key)
			}
			seen[key] = true
		}
	})

	t.Run("order of first appearance kept", func(t *testing.T) {
		items := []evidence.Item{
			{Location: "b.php", Confidence: 0.5},
			{Location: "a.php", Confidence: 0.5},
			{Location: "b.php", Confidence: 0.4},
		}
		got := Deduplicate(items)
		if len(got) != 2 || got[0].Location != "b.php" || got[1].Location != "a.php" {
			t.Errorf("unexpected order: %v", got)
		}
	})
}

func TestNormalizeLocation(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Templates/Header.php", "templates/header.php"},
		{"templates/header-backup.php", "templates/header.php"},
		{"templates/header.bak", "templates/header"},
		{"site/staging/header.php", "site/header.php"},
		{"theme_old/footer_copy.php", "theme/footer.php"},
	}
	for _, tt := range tests {
		if got := NormalizeLocation(tt.in); got != tt.want {
			t.Errorf("NormalizeLocation(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
