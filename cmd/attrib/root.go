package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"attrib/internal/cms"
	"attrib/internal/config"
	"attrib/internal/engine"
	"attrib/internal/llm"
	"attrib/internal/logging"
	"attrib/internal/version"
)

var (
	// siteFlag is the CLI --site flag value
	siteFlag string
	// verboseFlag enables debug logging
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "attrib",
	Short: "attrib - site source attribution engine",
	Long: `attrib answers "what controls this piece of my site?" by scanning menus,
templates, widgets, content records, extensions and stylesheets for evidence,
ranking it, and synthesizing one explained answer.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate(version.Full() + "\n")
	rootCmd.PersistentFlags().StringVar(&siteFlag, "site", ".",
		"Site root directory (exported site content plus .attrib state)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false,
		"Enable debug logging")
}

// newLogger builds the CLI logger from config plus the --verbose override.
func newLogger(cfg *config.Config) *logging.Logger {
	level := logging.LogLevel(cfg.Logging.Level)
	if verboseFlag {
		level = logging.DebugLevel
	}
	return logging.NewLogger(logging.Config{
		Format:    logging.Format(cfg.Logging.Format),
		Level:     level,
		Component: "cli",
	})
}

// mustLoadConfig loads the site configuration or exits.
func mustLoadConfig() *config.Config {
	cfg, err := config.LoadConfig(siteFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// mustEngine builds the engine over a directory content source, wiring the
// Gemini explainer when an API key is present. Without a key, synthesis
// runs on the deterministic fallback.
func mustEngine(cfg *config.Config, logger *logging.Logger) *engine.Engine {
	source := cms.NewDirSource(cfg.SiteRoot)
	adapter := cms.NewDirBuilderAdapter(cfg.SiteRoot)

	var explainer cms.Explainer
	if apiKey := os.Getenv("ATTRIB_GEMINI_API_KEY"); apiKey != "" && cfg.Synthesis.Provider == "gemini" {
		ex, err := llm.NewGeminiExplainer(context.Background(), apiKey, cfg.Synthesis.Model)
		if err != nil {
			logger.Warn("Failed to create explainer, falling back", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			explainer = ex
		}
	}

	eng, err := engine.New(cfg, source, adapter, explainer, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing engine: %v\n", err)
		os.Exit(1)
	}
	return eng
}
