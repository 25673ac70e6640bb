package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"attrib/internal/cms"
	"attrib/internal/config"
	attriberrors "attrib/internal/errors"
	"attrib/internal/export"
	"attrib/internal/jobs"
	"attrib/internal/logging"
	"attrib/internal/providers"
)

func fixtureSite(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	fixtures := map[string]interface{}{
		"menus.json": []cms.MenuItem{
			{Title: "Contact", Target: "/contact", Menu: "main", EditRef: "menus:main:2"},
			{Title: "Blog", Target: "/blog"},
		},
		"widgets.json": []cms.WidgetRef{
			{Type: "text", Title: "Opening hours", Area: "footer-1", SerializedContent: "Mon-Fri 9-5"},
		},
		"records.json": []cms.Record{
			{ID: "p1", Title: "Contact us", Body: `Use the form: [contact_form id="3"]`},
		},
		"extensions.json": []cms.ExtensionRef{
			{Name: "contact-form-pro", Version: "2.1", Files: []string{"contact-form.php"}},
		},
	}
	for name, v := range fixtures {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(root, name), data, 0644); err != nil {
			t.Fatal(err)
		}
	}

	for dir, files := range map[string]map[string]string{
		"templates": {
			"header.php": `<nav><a href="/contact">Contact</a></nav>`,
			"footer.php": `<p>Copyright</p>`,
		},
		"css": {
			"style.css": ".contact-button { color: red; }",
		},
	} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
			t.Fatal(err)
		}
		for name, content := range files {
			if err := os.WriteFile(filepath.Join(root, dir, name), []byte(content), 0644); err != nil {
				t.Fatal(err)
			}
		}
	}

	return root
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	root := fixtureSite(t)

	cfg := config.DefaultConfig()
	cfg.SiteRoot = root

	logger := logging.NewLogger(logging.Config{Output: io.Discard, Level: logging.ErrorLevel})
	source := cms.NewDirSource(root)
	adapter := cms.NewDirBuilderAdapter(root)

	eng, err := New(cfg, source, adapter, nil, logger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func TestEngineQuickScan(t *testing.T) {
	eng := testEngine(t)

	result := eng.QuickScan(context.Background(), "what controls the contact button", providers.Target{})

	if len(result.Evidence) == 0 {
		t.Fatal("expected evidence from the fixture site")
	}
	if result.PrimarySource == "" {
		t.Error("expected a primary source")
	}
}

func TestEngineDeepScanLifecycle(t *testing.T) {
	eng := testEngine(t)
	ctx := context.Background()

	job, estimate, err := eng.StartDeepScan("what controls the contact button", cms.PageContext{})
	if err != nil {
		t.Fatalf("StartDeepScan() error = %v", err)
	}
	if estimate <= 0 {
		t.Errorf("estimate = %v, want positive", estimate)
	}

	done, err := eng.DriveJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("DriveJob() error = %v", err)
	}
	if done.Status != jobs.StatusCompleted {
		t.Fatalf("status = %s (error: %s)", done.Status, done.Error)
	}
	if done.Outcome == nil || done.Outcome.Location == "" {
		t.Errorf("outcome = %+v", done.Outcome)
	}

	// Progress after completion reads the stored row
	got, err := eng.JobProgress(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Progress != 100 {
		t.Errorf("progress = %d, want 100", got.Progress)
	}

	// Export the finished job both ways
	var buf bytes.Buffer
	if err := eng.ExportResults(&buf, job.ID, export.FormatJSON); err != nil {
		t.Fatalf("json export error = %v", err)
	}
	if !json.Valid(buf.Bytes()) {
		t.Error("export is not valid JSON")
	}

	buf.Reset()
	if err := eng.ExportResults(&buf, job.ID, export.FormatCSV); err != nil {
		t.Fatalf("csv export error = %v", err)
	}
	if buf.Len() == 0 {
		t.Error("csv export is empty")
	}
}

func TestEngineControlJob(t *testing.T) {
	eng := testEngine(t)

	job, _, err := eng.StartDeepScan("contact button", cms.PageContext{})
	if err != nil {
		t.Fatal(err)
	}

	paused, err := eng.ControlJob(job.ID, ActionPause)
	if err != nil {
		t.Fatalf("pause error = %v", err)
	}
	if paused.Status != jobs.StatusPaused {
		t.Errorf("status = %s", paused.Status)
	}

	resumed, err := eng.ControlJob(job.ID, ActionResume)
	if err != nil {
		t.Fatalf("resume error = %v", err)
	}
	if resumed.Status != jobs.StatusInProgress {
		t.Errorf("status = %s", resumed.Status)
	}

	cancelled, err := eng.ControlJob(job.ID, ActionCancel)
	if err != nil {
		t.Fatalf("cancel error = %v", err)
	}
	if cancelled.Status != jobs.StatusCancelled {
		t.Errorf("status = %s", cancelled.Status)
	}

	if _, err := eng.ControlJob(job.ID, "restart"); !attriberrors.IsCode(err, attriberrors.InvalidAction) {
		t.Errorf("unknown action error = %v, want INVALID_ACTION", err)
	}
}

func TestEngineJobNotFound(t *testing.T) {
	eng := testEngine(t)

	_, err := eng.JobProgress(context.Background(), "job_ffffffffffffffff")
	if !attriberrors.IsCode(err, attriberrors.JobNotFound) {
		t.Errorf("error = %v, want JOB_NOT_FOUND", err)
	}
}

func TestEngineSweep(t *testing.T) {
	eng := testEngine(t)

	// Nothing to sweep on a fresh site
	cacheRemoved, jobsRemoved, err := eng.Sweep()
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if cacheRemoved != 0 || jobsRemoved != 0 {
		t.Errorf("swept (%d, %d) on a fresh site", cacheRemoved, jobsRemoved)
	}
}

func TestEngineListJobs(t *testing.T) {
	eng := testEngine(t)

	if _, _, err := eng.StartDeepScan("contact button", cms.PageContext{}); err != nil {
		t.Fatal(err)
	}

	list, err := eng.ListJobs(10)
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 job, got %d", len(list))
	}
}
