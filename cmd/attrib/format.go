package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"attrib/internal/jobs"
	"attrib/internal/quick"
)

// OutputFormat selects CLI output rendering
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// formatJSON renders any response as indented JSON.
func formatJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format output: %w", err)
	}
	return string(data), nil
}

// formatQuickResult renders a quick scan for terminals.
func formatQuickResult(r quick.Result) string {
	var b strings.Builder

	if r.PrimarySource == "" {
		b.WriteString("No controlling source found.\n")
	} else {
		fmt.Fprintf(&b, "Primary source: %s (confidence %.2f)\n", r.PrimarySource, r.Confidence)
	}
	fmt.Fprintf(&b, "Elapsed: %dms", r.ElapsedMs)
	if r.TimedOut {
		b.WriteString(" (budget exhausted, partial results)")
	}
	b.WriteString("\n")

	if len(r.Evidence) > 0 {
		b.WriteString("\nEvidence:\n")
		for i, sc := range r.Evidence {
			fmt.Fprintf(&b, "  %d. [%s] %s (score %.1f)\n", i+1, sc.Item.SourceType, sc.Item.Location, sc.Combined)
			if sc.Item.EditRef != "" {
				fmt.Fprintf(&b, "     edit: %s\n", sc.Item.EditRef)
			}
		}
	}
	return b.String()
}

// formatJob renders job status for terminals.
func formatJob(job *jobs.Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Job:      %s\n", job.ID)
	fmt.Fprintf(&b, "Query:    %s\n", job.Query)
	fmt.Fprintf(&b, "Status:   %s\n", job.Status)
	fmt.Fprintf(&b, "Phase:    %s\n", job.Phase)
	fmt.Fprintf(&b, "Progress: %d%%\n", job.Progress)
	fmt.Fprintf(&b, "Evidence: %d items\n", len(job.Results))
	if job.Error != "" {
		fmt.Fprintf(&b, "Error:    %s\n", job.Error)
	}
	if job.Outcome != nil {
		fmt.Fprintf(&b, "\nAnswer: %s at %s", job.Outcome.PrimarySource, job.Outcome.Location)
		if job.Outcome.EditPath != "" {
			fmt.Fprintf(&b, " (edit %s)", job.Outcome.EditPath)
		}
		if job.Outcome.Fallback {
			b.WriteString(" [from top-ranked evidence]")
		}
		b.WriteString("\n")
		if job.Outcome.Narrative != "" {
			fmt.Fprintf(&b, "\n%s\n", job.Outcome.Narrative)
		}
	}
	return b.String()
}
