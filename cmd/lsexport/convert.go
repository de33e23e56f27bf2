package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"lsexport/pkg/checkpoint"
	"lsexport/pkg/config"
	"lsexport/pkg/csvconv"
	"lsexport/pkg/logger"
	"lsexport/pkg/ui"
)

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert [session-dir]",
	Short: "Convert a session's JSONL exports to CSV tables",
	Long: `Convert the JSONL files of an export session into CSV tables, written
to a csv/ subdirectory of the session. The JSONL files are left untouched.

Nested collections are extracted into their own tables: product variants
from products, and line items and payments from sales.

Without an argument the most recent session under the output directory
is converted.`,
	Example: `  # Convert the most recent session
  lsexport convert

  # Convert a specific session directory
  lsexport convert ./exports/20260828_093055`,
	Args: cobra.MaximumNArgs(1),
	Run:  runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) {
	log, err := logger.New(&config.LoggingConfig{Level: logLevel})
	if err == nil {
		logger.SetLogger(log)
	}

	var sessionDir string
	if len(args) > 0 {
		sessionDir = args[0]
	} else {
		sessionDir = latestSessionDir()
		if sessionDir == "" {
			ui.PrintError("No export sessions found", "run 'lsexport export' first or pass a session directory")
			os.Exit(1)
		}
	}

	converter, err := csvconv.New(sessionDir)
	if err != nil {
		ui.PrintError("Failed to open session", err.Error())
		os.Exit(1)
	}

	summary, err := converter.ConvertAll()
	if err != nil {
		ui.PrintError("Conversion failed", err.Error())
		os.Exit(1)
	}

	if len(summary.Files) == 0 {
		ui.PrintWarning("No JSONL files found to convert", sessionDir)
		return
	}

	names := make([]string, 0, len(summary.Files))
	for name := range summary.Files {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("Wrote %d CSV file(s) to %s:\n", len(names), summary.CSVDir)
	for _, name := range names {
		fmt.Printf("  %-24s %d records\n", name, summary.Files[name])
	}
	ui.PrintSuccess("Conversion complete")
}

// latestSessionDir returns the newest session directory under the configured
// output root, regardless of session status
func latestSessionDir() string {
	cfg := config.DefaultConfig()
	_ = cfg.LoadFromFile(configFile)
	_ = cfg.LoadFromEnv()

	entries, err := os.ReadDir(cfg.Export.OutputDir)
	if err != nil {
		return ""
	}

	var dirs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(cfg.Export.OutputDir, entry.Name())
		if checkpoint.NewStore(dir).Exists() {
			dirs = append(dirs, dir)
		}
	}
	if len(dirs) == 0 {
		return ""
	}
	sort.Strings(dirs)
	return dirs[len(dirs)-1]
}
