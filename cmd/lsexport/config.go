package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"lsexport/pkg/config"
	"lsexport/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage lsexport configuration",
	Long: `Inspect and initialize the lsexport configuration file.

Configuration is resolved in this order, later sources winning:
  defaults, config file, .env file, environment variables, flags.`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with default settings",
	Long: `Write a configuration file populated with the default settings so it
can be edited by hand. Refuses to overwrite an existing file.`,
	Example: `  # Create ./lsexport.yaml
  lsexport config init

  # Create the per-user config file
  lsexport config init --path ~/.config/lsexport/config.yaml`,
	Args: cobra.NoArgs,
	Run:  runConfigInit,
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the effective configuration after merging the config file,
environment variables and defaults. The API token is never printed.`,
	Args: cobra.NoArgs,
	Run:  runConfigShow,
}

var configInitPath string

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().StringVar(&configInitPath, "path", "lsexport.yaml", "where to write the config file")
}

func runConfigInit(cmd *cobra.Command, args []string) {
	path := configInitPath
	if _, err := os.Stat(path); err == nil {
		ui.PrintError("Config file already exists", path)
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if err := cfg.SaveToFile(path); err != nil {
		ui.PrintError("Failed to write config file", err.Error())
		os.Exit(1)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	ui.PrintSuccess("Config written to " + abs)
	fmt.Println("Edit it, or override individual settings with flags and environment variables.")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(configFile); err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}
	_ = cfg.LoadFromEnv()

	// The token never goes to stdout
	if cfg.Lightspeed.Token != "" {
		cfg.Lightspeed.Token = "<set>"
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		ui.PrintError("Failed to render configuration", err.Error())
		os.Exit(1)
	}
	fmt.Print(string(data))
}
