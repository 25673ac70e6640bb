package cms

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DirSource is a ContentSource over an exported site directory:
//
//	<root>/menus.json       []MenuItem
//	<root>/widgets.json     []WidgetRef
//	<root>/records.json     []Record
//	<root>/extensions.json  []ExtensionRef
//	<root>/templates/       template files
//	<root>/css/             stylesheets
//
// It doubles as the fixture format for tests.
type DirSource struct {
	root string
}

// NewDirSource creates a DirSource rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{root: dir}
}

// ListMenus reads menus.json. A missing file yields no menus, not an error.
func (s *DirSource) ListMenus(ctx context.Context) ([]MenuItem, error) {
	var items []MenuItem
	if err := s.readJSON("menus.json", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ListTemplateFiles reads all files under templates/. When page.Path is set,
// files whose name shares a token with the path sort first so budgeted scans
// see the most likely templates early.
func (s *DirSource) ListTemplateFiles(ctx context.Context, page PageContext) ([]FileRef, error) {
	refs, err := s.readDir("templates")
	if err != nil {
		return nil, err
	}
	if page.Path != "" {
		needle := strings.Trim(strings.ToLower(page.Path), "/")
		sort.SliceStable(refs, func(i, j int) bool {
			return templateAffinity(refs[i].Path, needle) > templateAffinity(refs[j].Path, needle)
		})
	}
	return refs, nil
}

// ListStylesheets reads all files under css/.
func (s *DirSource) ListStylesheets(ctx context.Context) ([]FileRef, error) {
	return s.readDir("css")
}

// ListWidgets reads widgets.json.
func (s *DirSource) ListWidgets(ctx context.Context) ([]WidgetRef, error) {
	var items []WidgetRef
	if err := s.readJSON("widgets.json", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetRecord returns the record with the given id, or nil when unknown.
func (s *DirSource) GetRecord(ctx context.Context, id string) (*Record, error) {
	records, err := s.loadRecords()
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == id {
			return &records[i], nil
		}
	}
	return nil, nil
}

// SearchRecords returns a bounded slice of records for batched scanning.
func (s *DirSource) SearchRecords(ctx context.Context, limit, offset int) ([]Record, error) {
	records, err := s.loadRecords()
	if err != nil {
		return nil, err
	}
	if offset >= len(records) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(records) {
		end = len(records)
	}
	return records[offset:end], nil
}

// ListActiveExtensions reads extensions.json.
func (s *DirSource) ListActiveExtensions(ctx context.Context) ([]ExtensionRef, error) {
	var items []ExtensionRef
	if err := s.readJSON("extensions.json", &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *DirSource) loadRecords() ([]Record, error) {
	var records []Record
	if err := s.readJSON("records.json", &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *DirSource) readJSON(name string, out interface{}) error {
	data, err := os.ReadFile(filepath.Join(s.root, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

func (s *DirSource) readDir(sub string) ([]FileRef, error) {
	dir := filepath.Join(s.root, sub)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", sub, err)
	}

	var refs []FileRef
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		full := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(full)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", full, err)
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		refs = append(refs, FileRef{
			Path:    filepath.Join(sub, entry.Name()),
			Content: string(data),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].Path < refs[j].Path })
	return refs, nil
}

// DirBuilderAdapter reads page-builder elements from <root>/builder.json,
// a map of page path to elements. Sites without a builder export simply
// have no such file.
type DirBuilderAdapter struct {
	root string
}

// NewDirBuilderAdapter creates a builder adapter rooted at dir.
func NewDirBuilderAdapter(dir string) *DirBuilderAdapter {
	return &DirBuilderAdapter{root: dir}
}

// Detect returns the builder elements recorded for the page.
func (a *DirBuilderAdapter) Detect(ctx context.Context, page PageContext) ([]BuilderElement, error) {
	data, err := os.ReadFile(filepath.Join(a.root, "builder.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read builder.json: %w", err)
	}

	var byPage map[string][]BuilderElement
	if err := json.Unmarshal(data, &byPage); err != nil {
		return nil, fmt.Errorf("failed to parse builder.json: %w", err)
	}
	return byPage[page.Path], nil
}

// templateAffinity counts path tokens shared between a template file name
// and the page path.
func templateAffinity(path, needle string) int {
	if needle == "" {
		return 0
	}
	base := strings.ToLower(filepath.Base(path))
	score := 0
	for _, tok := range strings.FieldsFunc(needle, func(r rune) bool {
		return r == '/' || r == '-' || r == '_' || r == '.'
	}) {
		if len(tok) > 2 && strings.Contains(base, tok) {
			score++
		}
	}
	return score
}
