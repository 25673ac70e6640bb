// Package export writes scan results to JSON or CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	attriberrors "attrib/internal/errors"
	"attrib/internal/jobs"
	"attrib/internal/logging"
)

// Format selects the export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Exporter serializes finished and in-flight jobs.
type Exporter struct {
	logger *logging.Logger
}

// NewExporter creates an exporter.
func NewExporter(logger *logging.Logger) *Exporter {
	return &Exporter{logger: logger}
}

// Export writes the job in the requested format. JSON carries the full job
// envelope including the synthesized outcome; CSV is one row per evidence
// item for spreadsheet triage.
func (e *Exporter) Export(w io.Writer, job *jobs.Job, format Format) error {
	var err error
	switch format {
	case FormatJSON, "":
		err = e.writeJSON(w, job)
	case FormatCSV:
		err = e.writeCSV(w, job)
	default:
		return attriberrors.New(attriberrors.ExportFailed,
			fmt.Sprintf("unknown export format: %s", format), nil)
	}
	if err != nil {
		return attriberrors.New(attriberrors.ExportFailed, "export failed", err)
	}

	e.logger.Debug("Exported scan results", map[string]interface{}{
		"jobId":    job.ID,
		"format":   format,
		"evidence": len(job.Results),
	})
	return nil
}

func (e *Exporter) writeJSON(w io.Writer, job *jobs.Job) error {
	envelope := struct {
		*jobs.Job
		ExportedAt string `json:"exportedAt"`
	}{
		Job:        job,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(envelope)
}

func (e *Exporter) writeCSV(w io.Writer, job *jobs.Job) error {
	cw := csv.NewWriter(w)

	header := []string{"source_type", "location", "matched_text", "confidence", "context", "edit_ref", "hint"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, item := range job.Results {
		row := []string{
			string(item.SourceType),
			item.Location,
			item.MatchedText,
			strconv.FormatFloat(item.Confidence, 'f', 2, 64),
			item.Context,
			item.EditRef,
			string(item.Hint),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
