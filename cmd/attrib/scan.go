package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"attrib/internal/cms"
	"attrib/internal/engine"
	"attrib/internal/export"
	"attrib/internal/jobs"
)

var (
	scanFormat string
	scanPage   string
	scanRecord string
	scanWait   bool
	scanLimit  int
	scanOut    string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Manage deep background scans",
	Long: `Start, inspect and control deep scans.

Deep scans walk every source in phases (templates, extensions, content
records, page builder, branding) and finish with a synthesized answer.
They run in resumable batches: pause, resume and cancel take effect at
the next batch boundary.

Examples:
  attrib scan start "what controls the contact button"
  attrib scan status job_abc123
  attrib scan pause job_abc123
  attrib scan export job_abc123 --format csv`,
}

var scanStartCmd = &cobra.Command{
	Use:   "start <query>",
	Short: "Start a deep scan",
	Long: `Start a deep scan. Submitting the same query for the same target while
a scan is live returns the existing job instead of a duplicate.

Examples:
  attrib scan start "what controls the contact button"
  attrib scan start "footer copyright text" --page /about --wait`,
	Args: cobra.MinimumNArgs(1),
	Run:  runScanStart,
}

var scanStatusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Get progress and results of a deep scan",
	Args:  cobra.ExactArgs(1),
	Run:   runScanStatus,
}

var scanPauseCmd = &cobra.Command{
	Use:   "pause <job-id>",
	Short: "Pause a running deep scan",
	Args:  cobra.ExactArgs(1),
	Run:   controlRunner(engine.ActionPause),
}

var scanResumeCmd = &cobra.Command{
	Use:   "resume <job-id>",
	Short: "Resume a paused deep scan",
	Args:  cobra.ExactArgs(1),
	Run:   controlRunner(engine.ActionResume),
}

var scanCancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a deep scan",
	Args:  cobra.ExactArgs(1),
	Run:   controlRunner(engine.ActionCancel),
}

var scanListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent deep scans",
	Run:   runScanList,
}

var scanExportCmd = &cobra.Command{
	Use:   "export <job-id>",
	Short: "Export scan results as JSON or CSV",
	Long: `Export a scan's evidence and outcome.

Examples:
  attrib scan export job_abc123
  attrib scan export job_abc123 --format csv --out results.csv`,
	Args: cobra.ExactArgs(1),
	Run:  runScanExport,
}

func init() {
	scanStartCmd.Flags().StringVar(&scanFormat, "format", "human", "Output format (json, human)")
	scanStartCmd.Flags().StringVar(&scanPage, "page", "", "Path of the page being looked at")
	scanStartCmd.Flags().StringVar(&scanRecord, "record", "", "Content record id backing the page, if known")
	scanStartCmd.Flags().BoolVar(&scanWait, "wait", false, "Drive the scan to completion before returning")

	scanStatusCmd.Flags().StringVar(&scanFormat, "format", "human", "Output format (json, human)")
	scanListCmd.Flags().StringVar(&scanFormat, "format", "human", "Output format (json, human)")
	scanListCmd.Flags().IntVar(&scanLimit, "limit", 20, "Maximum jobs to return")

	scanExportCmd.Flags().StringVar(&scanFormat, "format", "json", "Export format (json, csv)")
	scanExportCmd.Flags().StringVar(&scanOut, "out", "", "Output file (default stdout)")

	scanCmd.AddCommand(scanStartCmd)
	scanCmd.AddCommand(scanStatusCmd)
	scanCmd.AddCommand(scanPauseCmd)
	scanCmd.AddCommand(scanResumeCmd)
	scanCmd.AddCommand(scanCancelCmd)
	scanCmd.AddCommand(scanListCmd)
	scanCmd.AddCommand(scanExportCmd)
	rootCmd.AddCommand(scanCmd)
}

func runScanStart(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig()
	logger := newLogger(cfg)
	eng := mustEngine(cfg, logger)
	defer func() { _ = eng.Close() }()

	query := strings.Join(args, " ")
	page := cms.PageContext{Path: scanPage, RecordID: scanRecord}

	job, estimate, err := eng.StartDeepScan(query, page)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting scan: %v\n", err)
		os.Exit(1)
	}

	if scanWait {
		job, err = eng.DriveJob(context.Background(), job.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error running scan: %v\n", err)
			os.Exit(1)
		}
		printJob(job)
		return
	}

	if OutputFormat(scanFormat) == FormatJSON {
		out, _ := formatJSON(map[string]interface{}{
			"jobId":               job.ID,
			"status":              job.Status,
			"estimatedDurationMs": estimate.Milliseconds(),
		})
		fmt.Println(out)
		return
	}
	fmt.Printf("Started %s (estimated %s)\n", job.ID, estimate.Round(time.Second))
	fmt.Printf("Check progress with: attrib scan status %s\n", job.ID)
}

func runScanStatus(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig()
	logger := newLogger(cfg)
	eng := mustEngine(cfg, logger)
	defer func() { _ = eng.Close() }()

	job, err := eng.JobProgress(context.Background(), args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	printJob(job)
}

func controlRunner(action engine.Action) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()
		logger := newLogger(cfg)
		eng := mustEngine(cfg, logger)
		defer func() { _ = eng.Close() }()

		job, err := eng.ControlJob(args[0], action)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s: %s\n", job.ID, job.Status)
	}
}

func runScanList(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig()
	logger := newLogger(cfg)
	eng := mustEngine(cfg, logger)
	defer func() { _ = eng.Close() }()

	jobList, err := eng.ListJobs(scanLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing scans: %v\n", err)
		os.Exit(1)
	}

	if OutputFormat(scanFormat) == FormatJSON {
		out, err := formatJSON(jobList)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(out)
		return
	}

	if len(jobList) == 0 {
		fmt.Println("No scans found.")
		return
	}
	for _, job := range jobList {
		fmt.Printf("%-22s %-12s %3d%%  %s\n", job.ID, job.Status, job.Progress, job.Query)
	}
}

func runScanExport(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig()
	logger := newLogger(cfg)
	eng := mustEngine(cfg, logger)
	defer func() { _ = eng.Close() }()

	out := os.Stdout
	if scanOut != "" {
		f, err := os.Create(scanOut)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating output file: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	if err := eng.ExportResults(out, args[0], export.Format(scanFormat)); err != nil {
		fmt.Fprintf(os.Stderr, "Error exporting: %v\n", err)
		os.Exit(1)
	}
}

func printJob(job *jobs.Job) {
	if OutputFormat(scanFormat) == FormatJSON {
		out, err := formatJSON(job)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(out)
		return
	}
	fmt.Print(formatJob(job))
}
