package quick

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"attrib/internal/cms"
	"attrib/internal/evidence"
	"attrib/internal/logging"
	"attrib/internal/providers"
	"attrib/internal/scoring"
)

// slowSource wraps a fixture source with a per-call delay and optional
// per-method failures.
type slowSource struct {
	menus    []cms.MenuItem
	widgets  []cms.WidgetRef
	delay    time.Duration
	menusErr error
	calls    int
}

func (s *slowSource) stall() {
	s.calls++
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
}

func (s *slowSource) ListMenus(ctx context.Context) ([]cms.MenuItem, error) {
	s.stall()
	return s.menus, s.menusErr
}
func (s *slowSource) ListTemplateFiles(ctx context.Context, page cms.PageContext) ([]cms.FileRef, error) {
	s.stall()
	return nil, nil
}
func (s *slowSource) ListStylesheets(ctx context.Context) ([]cms.FileRef, error) {
	return nil, nil
}
func (s *slowSource) ListWidgets(ctx context.Context) ([]cms.WidgetRef, error) {
	s.stall()
	return s.widgets, nil
}
func (s *slowSource) GetRecord(ctx context.Context, id string) (*cms.Record, error) {
	return nil, nil
}
func (s *slowSource) SearchRecords(ctx context.Context, limit, offset int) ([]cms.Record, error) {
	s.stall()
	return nil, nil
}
func (s *slowSource) ListActiveExtensions(ctx context.Context) ([]cms.ExtensionRef, error) {
	return nil, nil
}

func testScanner(source cms.ContentSource, budget time.Duration) *Scanner {
	logger := logging.NewLogger(logging.Config{Output: io.Discard, Level: logging.ErrorLevel})
	return NewScanner(source, nil, 0, scoring.NewScorer(0.6, 20), nil, logger, budget)
}

func TestQuickScanFindsMenuEvidence(t *testing.T) {
	source := &slowSource{menus: []cms.MenuItem{
		{Title: "Contact", Target: "/contact", Menu: "main", EditRef: "menus:main:2"},
	}}
	s := testScanner(source, time.Second)

	result := s.Scan(context.Background(), "what controls the contact button", providers.Target{})

	if result.PrimarySource != string(evidence.SourceMenu) {
		t.Errorf("primary source = %s, want navigation_menu", result.PrimarySource)
	}
	if result.Confidence <= 0.6 {
		t.Errorf("confidence = %v, want > 0.6 for a curated menu hit", result.Confidence)
	}
	if result.TimedOut {
		t.Error("scan should finish inside the budget")
	}
}

func TestQuickScanZeroEvidenceIsNotAnError(t *testing.T) {
	s := testScanner(&slowSource{}, time.Second)

	result := s.Scan(context.Background(), "nonexistent gizmo", providers.Target{})

	if result.PrimarySource != "" {
		t.Errorf("primary source = %s, want empty", result.PrimarySource)
	}
	if result.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", result.Confidence)
	}
	if len(result.Evidence) != 0 {
		t.Errorf("evidence = %v, want none", result.Evidence)
	}
}

func TestQuickScanProviderFailureSwallowed(t *testing.T) {
	source := &slowSource{
		menusErr: errors.New("database locked"),
		widgets: []cms.WidgetRef{
			{Type: "text", Title: "Contact info", SerializedContent: "Call us"},
		},
	}
	s := testScanner(source, time.Second)

	result := s.Scan(context.Background(), "contact info", providers.Target{})

	if len(result.Evidence) == 0 {
		t.Fatal("later providers should still contribute after an earlier failure")
	}
	if result.PrimarySource != string(evidence.SourceWidget) {
		t.Errorf("primary source = %s, want widget", result.PrimarySource)
	}
}

func TestQuickScanBudget(t *testing.T) {
	// Each source call sleeps longer than the whole budget, and no
	// provider's worst case fits it: at most one call may be in flight
	// before the chain stops.
	source := &slowSource{delay: 50 * time.Millisecond}
	s := testScanner(source, 10*time.Millisecond)

	start := time.Now()
	result := s.Scan(context.Background(), "contact button", providers.Target{})
	elapsed := time.Since(start)

	if !result.TimedOut {
		t.Error("expected TimedOut")
	}
	// Bounded overrun: one in-flight provider, not the whole chain
	if elapsed > 200*time.Millisecond {
		t.Errorf("scan took %v, budget overrun unbounded", elapsed)
	}
	if source.calls > 2 {
		t.Errorf("%d provider calls after budget exhaustion", source.calls)
	}
}

func TestQuickScanSkipsProvidersThatCannotFit(t *testing.T) {
	// A 150ms budget fits the hint, menu and widget providers but not the
	// template or shortcode worst cases: those are skipped while the
	// cheaper providers after them still run.
	source := &slowSource{
		menus:   []cms.MenuItem{{Title: "Contact", Target: "/contact"}},
		widgets: []cms.WidgetRef{{Type: "text", Title: "Contact info", SerializedContent: "Call us"}},
	}
	s := testScanner(source, 150*time.Millisecond)

	result := s.Scan(context.Background(), "contact", providers.Target{})

	if !result.TimedOut {
		t.Error("skipping a provider should mark the scan as timed out")
	}
	kinds := map[string]bool{}
	for _, sc := range result.Evidence {
		kinds[string(sc.Item.SourceType)] = true
	}
	if !kinds[string(evidence.SourceMenu)] || !kinds[string(evidence.SourceWidget)] {
		t.Errorf("menu and widget providers should still run, got %v", kinds)
	}
	if source.calls != 2 {
		t.Errorf("source calls = %d, want 2 (menus and widgets only)", source.calls)
	}
}

func TestQuickScanHintsRankFirst(t *testing.T) {
	source := &slowSource{menus: []cms.MenuItem{
		{Title: "Contact", Target: "/contact"},
	}}
	s := testScanner(source, time.Second)

	target := providers.Target{Hints: []cms.ElementHint{
		{Selector: "#header .contact", Text: "Contact us now", Kind: "button"},
	}}
	result := s.Scan(context.Background(), "contact button", target)

	if len(result.Evidence) < 2 {
		t.Fatalf("expected hint and menu evidence, got %d", len(result.Evidence))
	}
}

func TestAggregateConfidence(t *testing.T) {
	scored := []evidence.Scored{
		{Item: evidence.Item{Confidence: 0.9}},
		{Item: evidence.Item{Confidence: 0.9}},
		{Item: evidence.Item{Confidence: 0.3}},
		{Item: evidence.Item{Confidence: 0.1}},
	}
	got := aggregateConfidence(scored)
	want := (0.9 + 0.9 + 0.3) / 3
	if got < want-0.001 || got > want+0.001 {
		t.Errorf("aggregateConfidence = %v, want %v", got, want)
	}

	if aggregateConfidence(nil) != 0 {
		t.Error("no evidence should aggregate to 0")
	}

	single := []evidence.Scored{{Item: evidence.Item{Confidence: 0.75}}}
	if aggregateConfidence(single) != 0.75 {
		t.Error("single item aggregates to itself")
	}
}
