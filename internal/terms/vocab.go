package terms

import (
	"os"

	"github.com/BurntSushi/toml"
)

// vocabFile is the on-disk shape of an optional phrase vocabulary file.
type vocabFile struct {
	Phrases []string `toml:"phrases"`
}

// LoadVocabulary reads extra multi-word phrases from a TOML file, e.g.
//
//	phrases = ["store locator", "gift card balance"]
//
// A missing file is not an error; the built-in vocabulary is used alone.
func LoadVocabulary(path string) (*Extractor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewExtractor(), nil
		}
		return nil, err
	}

	var vf vocabFile
	if err := toml.Unmarshal(data, &vf); err != nil {
		return nil, err
	}

	return NewExtractorWithVocabulary(vf.Phrases), nil
}
