// Package cms declares the narrow interfaces through which the attribution
// engine reads the host content-management system. The engine only ever
// consumes these; it never writes back.
package cms

import (
	"context"
	"time"
)

// MenuItem is one entry of a navigation configuration.
type MenuItem struct {
	Title   string `json:"title"`
	Target  string `json:"target"`
	Menu    string `json:"menu,omitempty"`
	EditRef string `json:"editRef,omitempty"`
}

// FileRef is a template or stylesheet file with its content.
type FileRef struct {
	Path    string    `json:"path"`
	Content string    `json:"content"`
	ModTime time.Time `json:"modTime"`
}

// WidgetRef is one placed widget with its serialized content.
type WidgetRef struct {
	Type              string `json:"type"`
	Title             string `json:"title"`
	Area              string `json:"area,omitempty"`
	SerializedContent string `json:"serializedContent"`
	EditRef           string `json:"editRef,omitempty"`
}

// Record is a stored content record (page, post, reusable block).
type Record struct {
	ID    string            `json:"id"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Meta  map[string]string `json:"meta,omitempty"`
}

// ExtensionRef is an installed, active extension and its files.
type ExtensionRef struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Files   []string `json:"files,omitempty"`
}

// BuilderElement is a page-builder block detected on a page.
type BuilderElement struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	EditRef string `json:"editRef"`
}

// PageContext narrows scans to the page the user is looking at.
type PageContext struct {
	Path     string `json:"path,omitempty"`
	RecordID string `json:"recordId,omitempty"`
}

// ElementHint is a client-supplied, already-matched DOM element.
type ElementHint struct {
	Selector string `json:"selector"`
	Text     string `json:"text"`
	Kind     string `json:"kind,omitempty"`
}

// ContentSource reads site content. Implementations must be safe for
// repeated reads; the engine holds no state between calls except its cache.
type ContentSource interface {
	ListMenus(ctx context.Context) ([]MenuItem, error)
	ListTemplateFiles(ctx context.Context, page PageContext) ([]FileRef, error)
	ListStylesheets(ctx context.Context) ([]FileRef, error)
	ListWidgets(ctx context.Context) ([]WidgetRef, error)
	GetRecord(ctx context.Context, id string) (*Record, error)
	SearchRecords(ctx context.Context, limit, offset int) ([]Record, error)
	ListActiveExtensions(ctx context.Context) ([]ExtensionRef, error)
}

// BuilderAdapter detects page-builder elements on a page.
type BuilderAdapter interface {
	Detect(ctx context.Context, page PageContext) ([]BuilderElement, error)
}

// Explainer is the single abstract text-completion capability used by
// synthesis. Implementations own their transport; callers own the timeout
// via ctx.
type Explainer interface {
	Explain(ctx context.Context, query string, digest string) (string, error)
}
