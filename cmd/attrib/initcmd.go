package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"attrib/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration for this site",
	Long: `Create .attrib/config.json with default settings under the site root.

Examples:
  attrib init
  attrib init --site /var/exports/mysite`,
	Run: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) {
	path := filepath.Join(siteFlag, ".attrib", "config.json")
	if _, err := os.Stat(path); err == nil && !initForce {
		fmt.Fprintf(os.Stderr, "Config already exists at %s (use --force to overwrite)\n", path)
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	cfg.SiteRoot = siteFlag
	if err := cfg.Save(siteFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", path)
}
