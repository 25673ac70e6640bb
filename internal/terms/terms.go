// Package terms turns a free-text question into ranked search terms.
//
// Extraction is a pure function of the query and the loaded vocabulary:
// multi-word UI phrases are matched first and ranked ahead of single words.
package terms

import (
	"strings"
	"unicode"
)

// Term is a normalized search token or phrase extracted from a query.
type Term struct {
	Text   string `json:"text"`
	Phrase bool   `json:"phrase"`
}

// Stop words never contribute evidence on their own: articles, auxiliary
// verbs and the question words that dominate "where is the ..." queries.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "her": true,
	"was": true, "one": true, "our": true, "out": true, "his": true,
	"has": true, "had": true, "how": true, "who": true, "its": true,
	"did": true, "get": true, "him": true, "this": true, "that": true,
	"with": true, "from": true, "they": true, "what": true, "when": true,
	"where": true, "which": true, "does": true, "why": true, "have": true,
	"will": true, "been": true, "were": true, "there": true, "their": true,
	"come": true, "comes": true, "coming": true, "change": true,
	"show": true, "shows": true, "appear": true, "appears": true,
	"control": true, "controls": true, "controlled": true,
}

// defaultVocabulary lists known multi-word UI phrases. Order matters: it is
// the order phrases are ranked in when more than one matches.
var defaultVocabulary = []string{
	"contact form",
	"contact us",
	"contact button",
	"log in",
	"sign in",
	"sign up",
	"read more",
	"learn more",
	"add to cart",
	"search bar",
	"search box",
	"social icons",
	"social media",
	"copyright notice",
	"privacy policy",
	"terms of service",
	"back to top",
	"call to action",
	"hero image",
	"hero section",
	"footer menu",
	"header menu",
	"main menu",
	"navigation bar",
	"nav bar",
	"side bar",
	"breadcrumb trail",
	"featured image",
	"related posts",
	"recent posts",
	"newsletter signup",
	"opt in",
	"slide show",
}

// Extractor extracts search terms from queries against a phrase vocabulary.
type Extractor struct {
	vocabulary []string
}

// NewExtractor returns an extractor using the built-in phrase vocabulary.
func NewExtractor() *Extractor {
	return &Extractor{vocabulary: defaultVocabulary}
}

// NewExtractorWithVocabulary returns an extractor whose vocabulary is the
// built-in set extended with extra phrases (duplicates removed, order kept).
func NewExtractorWithVocabulary(extra []string) *Extractor {
	seen := make(map[string]bool, len(defaultVocabulary)+len(extra))
	vocab := make([]string, 0, len(defaultVocabulary)+len(extra))
	for _, p := range defaultVocabulary {
		if !seen[p] {
			seen[p] = true
			vocab = append(vocab, p)
		}
	}
	for _, p := range extra {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && strings.Contains(p, " ") && !seen[p] {
			seen[p] = true
			vocab = append(vocab, p)
		}
	}
	return &Extractor{vocabulary: vocab}
}

// Extract returns ordered search terms: vocabulary phrases found in the
// query first, then single words with stop words and short tokens dropped.
// Deterministic: the same query always yields the same ordered output.
func (e *Extractor) Extract(query string) []Term {
	lowered := strings.ToLower(query)

	var out []Term
	seen := make(map[string]bool)

	for _, phrase := range e.vocabulary {
		if containsPhrase(lowered, phrase) && !seen[phrase] {
			seen[phrase] = true
			out = append(out, Term{Text: phrase, Phrase: true})
		}
	}

	for _, word := range tokenize(lowered) {
		if len(word) <= 2 || stopWords[word] || seen[word] {
			continue
		}
		seen[word] = true
		out = append(out, Term{Text: word, Phrase: false})
	}

	return out
}

// containsPhrase reports whether phrase occurs in text on word boundaries.
func containsPhrase(text, phrase string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], phrase)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(phrase)
		beforeOK := start == 0 || !isWordChar(rune(text[start-1]))
		afterOK := end == len(text) || !isWordChar(rune(text[end]))
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

// tokenize splits on any non-letter, non-digit rune.
func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func isWordChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Texts returns just the term strings, phrases first, preserving order.
func Texts(ts []Term) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Text
	}
	return out
}
