package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"lsexport/pkg/auth"
	"lsexport/pkg/checkpoint"
	"lsexport/pkg/config"
	"lsexport/pkg/export"
	"lsexport/pkg/jsonl"
	"lsexport/pkg/lightspeed"
	"lsexport/pkg/logger"
	"lsexport/pkg/ratelimit"
	"lsexport/pkg/retry"
	"lsexport/pkg/ui"
	"lsexport/pkg/ui/tui"
)

var (
	// Export command flags
	exportDomain  string
	outputDir     string
	endpointList  []string
	pageSize      int
	maxRetries    int
	rateLimitRPS  int
	resumeExport  bool
	forceRestart  bool
	useTUI        bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all data from a Lightspeed account to JSONL files",
	Long: `Export every endpoint of a Lightspeed X-Series account into a session
directory of newline-delimited JSON files, one file per endpoint.

Progress is checkpointed after every page. If the export is interrupted
for any reason, re-running with --resume continues from where it stopped
without losing or duplicating records.

Credentials are looked up in this order:
  - Stored credentials (use 'lsexport auth login' to store)
  - Environment variables (LIGHTSPEED_DOMAIN and LIGHTSPEED_TOKEN)
  - Configuration file`,
	Example: `  # Export everything with default settings
  lsexport export

  # Export a specific retailer domain to a specific directory
  lsexport export --domain mystore.retail.lightspeed.app --output ./exports

  # Only selected endpoints
  lsexport export --endpoints products,customers,sales

  # Resume an interrupted session
  lsexport export --resume

  # Start over, leaving earlier sessions untouched
  lsexport export --force-restart

  # Watch progress in the full-screen dashboard
  lsexport export --tui`,
	Args: cobra.NoArgs,
	Run:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportDomain, "domain", "d", "", "retailer domain, e.g. mystore.retail.lightspeed.app")
	exportCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output root directory (default: ./exports)")
	exportCmd.Flags().StringSliceVar(&endpointList, "endpoints", nil, "comma-separated endpoint list (default: all)")
	exportCmd.Flags().IntVar(&pageSize, "page-size", 0, "records requested per page")
	exportCmd.Flags().IntVar(&maxRetries, "max-retries", 0, "maximum retry attempts per page")
	exportCmd.Flags().IntVar(&rateLimitRPS, "rate-limit", 0, "API requests per second")
	exportCmd.Flags().BoolVar(&resumeExport, "resume", false, "resume the most recent interrupted session")
	exportCmd.Flags().BoolVar(&forceRestart, "force-restart", false, "start a fresh session even if one is resumable")
	exportCmd.Flags().BoolVar(&useTUI, "tui", false, "use interactive terminal dashboard with real-time progress")
}

func runExport(cmd *cobra.Command, args []string) {
	cfg := loadExportConfig()

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(1)
	}
	logger.SetLogger(log)
	log.WithField("version", version).Info("Lightspeed export starting")

	resolveCredentials(cfg)

	endpoints := cfg.Export.Endpoints
	if len(endpoints) == 0 {
		endpoints = lightspeed.DefaultEndpoints()
	}
	for _, name := range endpoints {
		if !lightspeed.IsValidEndpoint(name) {
			ui.PrintError("Invalid endpoint name", name)
			os.Exit(1)
		}
	}

	store, session, writer, resumed := openSession(cfg, endpoints)
	defer writer.Close()

	client := lightspeed.NewClient(
		cfg.Lightspeed.Domain,
		cfg.Lightspeed.APIVersion,
		cfg.Lightspeed.Token,
		cfg.Lightspeed.Timeout,
		log,
		lightspeed.WithPageSize(cfg.Export.PageSize),
		lightspeed.WithLimiter(ratelimit.PerSecond(cfg.RateLimit.RequestsPerSecond)),
	)

	runner := export.NewRunner(client, store, writer, session, &export.Options{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Backoff: &retry.ExponentialBackoff{
			BaseDelay:    cfg.Retry.BaseDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
			Multiplier:   cfg.Retry.Multiplier,
			JitterFactor: cfg.Retry.JitterFactor,
		},
		AnomalyThreshold: cfg.Export.AnomalyThreshold,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if useTUI {
		runWithDashboard(ctx, runner, session, resumed)
		return
	}

	if !quiet {
		ui.PrintBanner()
		ui.PrintInfo("Retailer", cfg.Lightspeed.Domain)
		ui.PrintInfo("Session", session.ID)
		if resumed {
			ui.PrintWarning("Resuming interrupted session")
		}
	}

	runner.SetReporter(ui.NewProgressDisplay(len(session.Endpoints), quiet))

	report, err := runner.Run(ctx)
	if err != nil {
		log.WithError(err).Error("Export aborted")
		ui.PrintError("EXPORT ABORTED", err.Error())
		os.Exit(1)
	}
	if len(report.Failed) > 0 {
		os.Exit(1)
	}
}

// loadExportConfig merges config file, environment and flags
func loadExportConfig() *config.Config {
	flags := make(map[string]interface{})
	if exportDomain != "" {
		flags["domain"] = exportDomain
	}
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if len(endpointList) > 0 {
		flags["endpoints"] = endpointList
	}
	if pageSize > 0 {
		flags["page-size"] = pageSize
	}
	if maxRetries > 0 {
		flags["max-retries"] = maxRetries
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		// Domain may still come from stored credentials; re-validate after
		// resolution when the only problem is a missing domain.
		cfg = config.DefaultConfig()
		if ferr := cfg.LoadFromFile(configFile); ferr != nil {
			ui.PrintError("Failed to load configuration", ferr.Error())
			os.Exit(1)
		}
		_ = cfg.LoadFromEnv()
		cfg.ApplyFlags(flags)
	}
	if rateLimitRPS > 0 {
		cfg.RateLimit.RequestsPerSecond = rateLimitRPS
	}
	return cfg
}

// resolveCredentials fills in the token from the credential manager when the
// config and environment did not provide one, then validates.
func resolveCredentials(cfg *config.Config) {
	if cfg.Lightspeed.Token == "" {
		if manager, err := auth.NewManager(); err == nil {
			if cred, err := manager.Retrieve(cfg.Lightspeed.Domain); err == nil {
				cfg.Lightspeed.Domain = cred.Domain
				cfg.Lightspeed.Token = cred.Token
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		ui.PrintError("Invalid configuration", err.Error())
		os.Exit(1)
	}
	if cfg.Lightspeed.Token == "" {
		ui.PrintError("No Lightspeed credentials found", "")
		fmt.Println("\nTo store credentials securely, run:")
		fmt.Println("  lsexport auth login")
		fmt.Println("\nOr set environment variables:")
		fmt.Println("  export LIGHTSPEED_DOMAIN=mystore.retail.lightspeed.app")
		fmt.Println("  export LIGHTSPEED_TOKEN=your_personal_token")
		os.Exit(1)
	}
}

// openSession decides between resuming the newest interrupted session and
// creating a fresh one
func openSession(cfg *config.Config, endpoints []string) (*checkpoint.Store, *checkpoint.Session, *jsonl.Writer, bool) {
	if !forceRestart {
		resumable, err := checkpoint.FindResumable(cfg.Export.OutputDir)
		if err != nil {
			ui.PrintError("Failed to scan output directory", err.Error())
			os.Exit(1)
		}
		if len(resumable) > 0 {
			pick := resumable[0]
			if resumeExport || promptResume(pick.Session) {
				store, session, writer, err := export.ResumeSession(pick.Dir)
				if err != nil {
					ui.PrintError("Failed to resume session", err.Error())
					os.Exit(1)
				}
				return store, session, writer, true
			}
		}
	}

	store, session, writer, err := export.CreateSession(cfg.Export.OutputDir, endpoints)
	if err != nil {
		ui.PrintError("Failed to create session", err.Error())
		os.Exit(1)
	}
	return store, session, writer, false
}

// promptResume asks the operator whether to pick up an interrupted session.
// Non-interactive runs (quiet mode) default to a fresh session.
func promptResume(s *checkpoint.Session) bool {
	if quiet {
		return false
	}

	fmt.Println()
	fmt.Print(s.Summary())
	fmt.Print("\nResume this session? (Y/n): ")

	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.ToLower(strings.TrimSpace(answer)) != "n"
}

// runWithDashboard runs the export under the full-screen dashboard
func runWithDashboard(ctx context.Context, runner *export.Runner, session *checkpoint.Session, resumed bool) {
	names := make([]string, 0, len(session.Endpoints))
	for _, ep := range session.Endpoints {
		names = append(names, ep.Name)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dashboard := tui.New(names)
	runner.SetReporter(dashboard.Reporter())

	runnerDone := make(chan error, 1)
	var report *export.Report
	go func() {
		var err error
		report, err = runner.Run(ctx)
		runnerDone <- err
	}()

	tuiDone := make(chan error, 1)
	go func() {
		tuiDone <- dashboard.Start()
	}()

	select {
	case err := <-runnerDone:
		dashboard.Stop()
		<-tuiDone
		if err != nil {
			ui.PrintError("EXPORT ABORTED", err.Error())
			os.Exit(1)
		}
		fmt.Print(report.Render())
		if len(report.Failed) > 0 {
			os.Exit(1)
		}
	case err := <-tuiDone:
		// Quitting the dashboard stops the run; progress is checkpointed.
		cancel()
		<-runnerDone
		if err != nil {
			ui.PrintError("Dashboard failed", err.Error())
			os.Exit(1)
		}
		if report != nil {
			fmt.Print(report.Render())
		}
	}
}
