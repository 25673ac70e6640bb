package terms

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	e := NewExtractor()

	t.Run("phrases rank before words", func(t *testing.T) {
		got := e.Extract("what controls the contact button in the header")

		if len(got) == 0 {
			t.Fatal("expected terms, got none")
		}
		if got[0].Text != "contact button" || !got[0].Phrase {
			t.Errorf("expected leading phrase 'contact button', got %+v", got[0])
		}

		texts := Texts(got)
		want := []string{"contact button", "contact", "button", "header"}
		if !reflect.DeepEqual(texts, want) {
			t.Errorf("Extract() = %v, want %v", texts, want)
		}
	})

	t.Run("stop words dropped", func(t *testing.T) {
		got := e.Extract("where does the text come from")
		for _, term := range got {
			if term.Text == "where" || term.Text == "the" || term.Text == "does" || term.Text == "from" {
				t.Errorf("stop word %q survived extraction", term.Text)
			}
		}
	})

	t.Run("short tokens dropped", func(t *testing.T) {
		got := e.Extract("is it an ad")
		for _, term := range got {
			if len(term.Text) <= 2 {
				t.Errorf("short token %q survived extraction", term.Text)
			}
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		query := "why does the contact form appear under the footer menu"
		first := e.Extract(query)
		for i := 0; i < 10; i++ {
			if !reflect.DeepEqual(e.Extract(query), first) {
				t.Fatal("extraction is not deterministic")
			}
		}
	})

	t.Run("phrase requires word boundary", func(t *testing.T) {
		got := e.Extract("precontact buttons")
		for _, term := range got {
			if term.Phrase {
				t.Errorf("unexpected phrase match %q", term.Text)
			}
		}
	})

	t.Run("empty query", func(t *testing.T) {
		if got := e.Extract(""); len(got) != 0 {
			t.Errorf("expected no terms for empty query, got %v", got)
		}
	})
}

func TestExtractorWithVocabulary(t *testing.T) {
	e := NewExtractorWithVocabulary([]string{"booking widget", "single", "  "})

	got := e.Extract("the booking widget is broken")
	if len(got) == 0 || got[0].Text != "booking widget" || !got[0].Phrase {
		t.Errorf("expected custom phrase first, got %v", got)
	}

	// Single words are not phrases and must be rejected from the vocabulary
	got = e.Extract("single")
	for _, term := range got {
		if term.Phrase {
			t.Errorf("single word accepted as phrase: %+v", term)
		}
	}
}

func TestLoadVocabulary(t *testing.T) {
	t.Run("missing file falls back to defaults", func(t *testing.T) {
		e, err := LoadVocabulary(filepath.Join(t.TempDir(), "nope.toml"))
		if err != nil {
			t.Fatalf("LoadVocabulary() error = %v", err)
		}
		got := e.Extract("contact form")
		if len(got) == 0 || got[0].Text != "contact form" {
			t.Errorf("default vocabulary missing, got %v", got)
		}
	})

	t.Run("file extends vocabulary", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "vocab.toml")
		content := "phrases = [\"donation banner\"]\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		e, err := LoadVocabulary(path)
		if err != nil {
			t.Fatalf("LoadVocabulary() error = %v", err)
		}
		got := e.Extract("hide the donation banner")
		if len(got) == 0 || got[0].Text != "donation banner" || !got[0].Phrase {
			t.Errorf("expected loaded phrase first, got %v", got)
		}
	})
}
