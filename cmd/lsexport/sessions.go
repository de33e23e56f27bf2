package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lsexport/pkg/checkpoint"
	"lsexport/pkg/config"
	"lsexport/pkg/ui"
)

// sessionsCmd represents the sessions command
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List interrupted export sessions that can be resumed",
	Long: `Scan the output directory for export sessions that were interrupted
and can be picked up with 'lsexport export --resume'.

Completed and aborted sessions are not listed.`,
	Example: `  # List resumable sessions under the default output directory
  lsexport sessions

  # List sessions under a specific directory
  lsexport sessions --output ./exports`,
	Args: cobra.NoArgs,
	Run:  runSessions,
}

var sessionsOutputDir string

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.Flags().StringVarP(&sessionsOutputDir, "output", "o", "", "output root directory to scan (default: ./exports)")
}

func runSessions(cmd *cobra.Command, args []string) {
	outputRoot := sessionsOutputDir
	if outputRoot == "" {
		cfg := config.DefaultConfig()
		if err := cfg.LoadFromFile(configFile); err != nil {
			ui.PrintError("Failed to load configuration", err.Error())
			os.Exit(1)
		}
		_ = cfg.LoadFromEnv()
		outputRoot = cfg.Export.OutputDir
	}

	resumable, err := checkpoint.FindResumable(outputRoot)
	if err != nil {
		ui.PrintError("Failed to scan output directory", err.Error())
		os.Exit(1)
	}

	if len(resumable) == 0 {
		fmt.Printf("No resumable sessions under %s\n", outputRoot)
		return
	}

	fmt.Printf("Found %d resumable session(s) under %s:\n\n", len(resumable), outputRoot)
	for _, r := range resumable {
		ui.PrintInfo("Directory", r.Dir)
		fmt.Print(r.Session.Summary())
		fmt.Println()
	}
	fmt.Println("Resume the most recent one with: lsexport export --resume")
}
