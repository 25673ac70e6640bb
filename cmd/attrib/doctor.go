package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"attrib/internal/version"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the site directory and engine health",
	Long: `Check that the site directory looks like an exported site, that the
state database opens, and report cache and load diagnostics.

Examples:
  attrib doctor
  attrib doctor --site /var/exports/mysite`,
	Run: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig()
	logger := newLogger(cfg)

	fmt.Printf("attrib %s\n", version.Info())
	fmt.Printf("Site root: %s\n\n", cfg.SiteRoot)

	ok := true
	for _, check := range []struct {
		name     string
		path     string
		required bool
	}{
		{"menus.json", filepath.Join(cfg.SiteRoot, "menus.json"), false},
		{"widgets.json", filepath.Join(cfg.SiteRoot, "widgets.json"), false},
		{"records.json", filepath.Join(cfg.SiteRoot, "records.json"), false},
		{"extensions.json", filepath.Join(cfg.SiteRoot, "extensions.json"), false},
		{"templates/", filepath.Join(cfg.SiteRoot, "templates"), false},
		{"css/", filepath.Join(cfg.SiteRoot, "css"), false},
	} {
		if _, err := os.Stat(check.path); err != nil {
			fmt.Printf("  [missing] %s\n", check.name)
			if check.required {
				ok = false
			}
			continue
		}
		fmt.Printf("  [ok]      %s\n", check.name)
	}

	eng := mustEngine(cfg, logger)
	defer func() { _ = eng.Close() }()

	fmt.Println("\nDatabase: ok")

	if stats, err := eng.CacheStats(); err == nil {
		fmt.Printf("Cache: %v entries, %v hits, %v bytes stored\n",
			stats["entries"], stats["total_hits"], stats["stored_bytes"])
	}

	snapshot, level := eng.LoadSnapshot()
	fmt.Printf("Load: %s (%d active jobs, %.1fMB heap)\n",
		level, snapshot.ActiveJobs, float64(snapshot.MemoryUsed)/(1024*1024))

	if os.Getenv("ATTRIB_GEMINI_API_KEY") == "" {
		fmt.Println("\nExplainer: no API key set; synthesis uses the evidence fallback")
		fmt.Println("Set ATTRIB_GEMINI_API_KEY to enable narrative answers")
	} else {
		fmt.Println("\nExplainer: configured")
	}

	if !ok {
		os.Exit(1)
	}
}
