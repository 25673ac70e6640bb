package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"attrib/internal/cms"
	"attrib/internal/providers"
)

var (
	quickFormat string
	quickPage   string
	quickRecord string
	quickHints  string
)

var quickCmd = &cobra.Command{
	Use:   "quick <query>",
	Short: "Run a bounded-time quick scan",
	Long: `Run a quick scan that answers within the configured wall-clock budget.

The query is natural language ("what controls the contact button in the
header"). Results are partial when the budget runs out; start a deep scan
for full coverage.

Examples:
  attrib quick "what controls the contact button"
  attrib quick "where does the footer text come from" --page /about
  attrib quick "edit the read more link" --hints '[{"selector":".more","text":"Read more"}]'`,
	Args: cobra.MinimumNArgs(1),
	Run:  runQuick,
}

func init() {
	quickCmd.Flags().StringVar(&quickFormat, "format", "human", "Output format (json, human)")
	quickCmd.Flags().StringVar(&quickPage, "page", "", "Path of the page being looked at")
	quickCmd.Flags().StringVar(&quickRecord, "record", "", "Content record id backing the page, if known")
	quickCmd.Flags().StringVar(&quickHints, "hints", "", "JSON array of client element hints")
	rootCmd.AddCommand(quickCmd)
}

func runQuick(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig()
	logger := newLogger(cfg)
	eng := mustEngine(cfg, logger)
	defer func() { _ = eng.Close() }()

	query := strings.Join(args, " ")
	target := providers.Target{
		Page: cms.PageContext{Path: quickPage, RecordID: quickRecord},
	}
	if quickHints != "" {
		if err := json.Unmarshal([]byte(quickHints), &target.Hints); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing --hints: %v\n", err)
			os.Exit(1)
		}
	}

	result := eng.QuickScan(context.Background(), query, target)

	if OutputFormat(quickFormat) == FormatJSON {
		out, err := formatJSON(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(out)
		return
	}
	fmt.Print(formatQuickResult(result))
}
