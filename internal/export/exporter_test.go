package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	attriberrors "attrib/internal/errors"
	"attrib/internal/evidence"
	"attrib/internal/jobs"
	"attrib/internal/logging"
	"attrib/internal/synthesis"
)

func sampleJob() *jobs.Job {
	return &jobs.Job{
		ID:       "job_0123456789abcdef",
		Query:    "contact button",
		Status:   jobs.StatusCompleted,
		Phase:    jobs.PhaseSynthesis,
		Progress: 100,
		Results: []evidence.Item{
			{
				SourceType:  evidence.SourceMenu,
				Location:    "main:Contact",
				MatchedText: "Contact",
				Confidence:  0.9,
				EditRef:     "menus:main:2",
			},
			{
				SourceType: evidence.SourceTemplate,
				Location:   "templates/header.php",
				Confidence: 0.75,
				Context:    `line with "quotes", commas`,
			},
		},
		Outcome: &synthesis.Explanation{
			PrimarySource: "navigation_menu",
			Location:      "main:Contact",
		},
		StartedAt:  time.Now().UTC(),
		LastUpdate: time.Now().UTC(),
	}
}

func testExporter() *Exporter {
	return NewExporter(logging.NewLogger(logging.Config{Output: io.Discard, Level: logging.ErrorLevel}))
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := testExporter().Export(&buf, sampleJob(), FormatJSON); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var envelope map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &envelope); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if envelope["id"] != "job_0123456789abcdef" {
		t.Errorf("id = %v", envelope["id"])
	}
	if envelope["exportedAt"] == nil {
		t.Error("missing exportedAt")
	}
	if envelope["outcome"] == nil {
		t.Error("missing outcome")
	}
}

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := testExporter().Export(&buf, sampleJob(), FormatCSV); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "source_type" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][1] != "main:Contact" || rows[1][3] != "0.90" {
		t.Errorf("row = %v", rows[1])
	}
	// Quoted field with commas survives the round trip
	if !strings.Contains(rows[2][4], "commas") {
		t.Errorf("context row = %v", rows[2])
	}
}

func TestExportDefaultFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := testExporter().Export(&buf, sampleJob(), ""); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !json.Valid(buf.Bytes()) {
		t.Error("empty format should default to JSON")
	}
}

func TestExportUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := testExporter().Export(&buf, sampleJob(), "xml")
	if !attriberrors.IsCode(err, attriberrors.ExportFailed) {
		t.Errorf("error = %v, want EXPORT_FAILED", err)
	}
}
