package providers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"attrib/internal/cache"
	"attrib/internal/cms"
	"attrib/internal/evidence"
	"attrib/internal/terms"
)

// highValueNames marks templates worth scanning even under a tight budget:
// the structural fragments that control most visible chrome.
var highValueNames = []string{"header", "footer", "nav", "navigation", "menu", "index", "home", "front"}

// TemplateProvider scans theme/template files line by line. Per-file scan
// results are cached keyed by path, modification time and the term set, so
// a touched file invalidates itself.
type TemplateProvider struct {
	source cms.ContentSource
	cache  *cache.Cache
	ttl    time.Duration
}

// NewTemplateProvider creates a template scanner. cache may be nil.
func NewTemplateProvider(source cms.ContentSource, c *cache.Cache, ttl time.Duration) *TemplateProvider {
	return &TemplateProvider{source: source, cache: c, ttl: ttl}
}

// Kind implements ScanProvider.
func (p *TemplateProvider) Kind() string { return "template" }

// Scan covers only the high-value template subset; quick scans call this.
func (p *TemplateProvider) Scan(ctx context.Context, searchTerms []terms.Term, target Target) ([]evidence.Item, error) {
	files, err := p.source.ListTemplateFiles(ctx, target.Page)
	if err != nil {
		return nil, err
	}

	var items []evidence.Item
	for _, f := range files {
		if !isHighValue(f.Path) {
			continue
		}
		items = append(items, p.scanFile(f, searchTerms)...)
	}
	return items, nil
}

// ScanSlice covers every template file in batches; deep scans call this.
func (p *TemplateProvider) ScanSlice(ctx context.Context, searchTerms []terms.Term, target Target, offset, limit int) ([]evidence.Item, bool, error) {
	files, err := p.source.ListTemplateFiles(ctx, target.Page)
	if err != nil {
		return nil, false, err
	}

	if offset >= len(files) {
		return nil, true, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(files) {
		end = len(files)
	}

	var items []evidence.Item
	for _, f := range files[offset:end] {
		items = append(items, p.scanFile(f, searchTerms)...)
	}
	return items, end >= len(files), nil
}

func (p *TemplateProvider) scanFile(f cms.FileRef, searchTerms []terms.Term) []evidence.Item {
	key := fileCacheKey("template", f, searchTerms)

	if p.cache != nil {
		if payload, ok, err := p.cache.Get(key); err == nil && ok {
			var cached []evidence.Item
			if json.Unmarshal(payload, &cached) == nil {
				return cached
			}
		}
	}

	items := scanLines(f, searchTerms, evidence.SourceTemplate)

	if p.cache != nil {
		if payload, err := json.Marshal(items); err == nil {
			_ = p.cache.Set(key, payload, p.ttl)
		}
	}
	return items
}

// scanLines emits one item per matching line of a file.
func scanLines(f cms.FileRef, searchTerms []terms.Term, sourceType evidence.SourceType) []evidence.Item {
	var items []evidence.Item
	for n, line := range strings.Split(f.Content, "\n") {
		conf := evidence.MatchConfidence(line, searchTerms)
		if conf < 0.3 {
			continue
		}
		items = append(items, evidence.Item{
			SourceType:  sourceType,
			Location:    f.Path,
			MatchedText: matchedTerm(line, searchTerms),
			Confidence:  conf,
			Context:     snippet(line, searchTerms),
			EditRef:     f.Path + ":" + strconv.Itoa(n+1),
			Hint:        evidence.InferHint(f.Path),
		})
	}
	return items
}

// fileCacheKey derives a cache key from path + modtime + term set, so edits
// to the underlying file invalidate automatically.
func fileCacheKey(kind string, f cms.FileRef, searchTerms []terms.Term) string {
	h := sha256.Sum256([]byte(strings.Join(terms.Texts(searchTerms), "|")))
	return kind + ":" + f.Path + ":" +
		strconv.FormatInt(f.ModTime.Unix(), 10) + ":" +
		hex.EncodeToString(h[:8])
}

func isHighValue(path string) bool {
	base := strings.ToLower(path)
	for _, name := range highValueNames {
		if strings.Contains(base, name) {
			return true
		}
	}
	return false
}
