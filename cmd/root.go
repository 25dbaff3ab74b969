package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ysocial-sim/ysocial-sim/llm"
	"github.com/ysocial-sim/ysocial-sim/service"
	sim "github.com/ysocial-sim/ysocial-sim/sim"
	"github.com/ysocial-sim/ysocial-sim/sim/actionlog"
)

var (
	// CLI flags for the run command
	configPath    string // Path to the YAML configuration file
	logLevel      string // Log verbosity level
	seed          int64  // Master seed override (-1 keeps the config value)
	days          int64  // Simulated days override (0 keeps the config value)
	agentsPath    string // Population snapshot path (loaded if present, saved daily)
	contentRecsys string // Content recommender override
	followRecsys  string // Follow recommender override
	telemetryDB   string // SQLite action log path override
	sequential    bool   // Force single-worker dispatch
	reset         bool   // Wipe the remote service before starting
	dryRun        bool   // Run against in-process mock collaborators
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "ysocial-sim",
	Short: "Agent-based social network simulator driven by LLM personas",
}

// runCmd executes a full simulation from a YAML configuration
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the social simulation",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
		log := logrus.WithField("component", "run")

		if configPath == "" {
			logrus.Fatalf("Configuration file not provided. Exiting simulation.")
		}
		cfg, err := sim.LoadConfig(configPath)
		if err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}
		applyOverrides(cfg)
		if err := cfg.Validate(); err != nil {
			logrus.Fatalf("Invalid configuration after flag overrides: %v", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc, chat := buildCollaborators(cfg)

		if reset {
			if err := svc.Reset(ctx); err != nil {
				logrus.Fatalf("Service reset failed: %v", err)
			}
			log.Info("service state reset")
		}

		var sink sim.ActionSink
		if cfg.Telemetry.SQLitePath != "" {
			alog, err := actionlog.Open(cfg.Telemetry.SQLitePath)
			if err != nil {
				logrus.Fatalf("Cannot open action log: %v", err)
			}
			defer func() {
				if err := alog.Close(); err != nil {
					log.WithError(err).Warn("action log close failed")
				}
			}()
			sink = alog
		}

		s, err := sim.NewSimulator(cfg, svc, chat, sink, log)
		if err != nil {
			logrus.Fatalf("Cannot build simulator: %v", err)
		}

		logrus.Infof("Starting simulation: seed=%d days=%d slots_per_day=%d agents=%d pages=%d",
			cfg.Simulation.Seed, cfg.Simulation.Days, cfg.Simulation.SlotsPerDay,
			cfg.Simulation.StartingAgents, cfg.Simulation.StartingPages)

		startTime := time.Now()
		metrics, err := s.Run(ctx)
		if err != nil {
			logrus.Fatalf("Simulation aborted: %v", err)
		}
		metrics.Print()
		logrus.Infof("Simulation complete in %v.", time.Since(startTime).Round(time.Millisecond))
	},
}

// applyOverrides folds the run command's flags over the loaded config.
func applyOverrides(cfg *sim.Config) {
	if seed >= 0 {
		cfg.Simulation.Seed = seed
	}
	if days > 0 {
		cfg.Simulation.Days = days
	}
	if agentsPath != "" {
		cfg.Simulation.AgentsSnapshot = agentsPath
	}
	if contentRecsys != "" {
		cfg.Recsys.Content = contentRecsys
	}
	if followRecsys != "" {
		cfg.Recsys.Follow = followRecsys
	}
	if telemetryDB != "" {
		cfg.Telemetry.SQLitePath = telemetryDB
	}
	if sequential {
		cfg.Resources.Mode = sim.ResourceModeSequential
	}
}

// buildCollaborators wires the content service and the language backend,
// or their in-process mocks for a dry run.
func buildCollaborators(cfg *sim.Config) (service.API, llm.Client) {
	if dryRun {
		return service.NewMock(), llm.NewMockClient("Exploring #simulation today with @everyone.")
	}
	timeout := time.Duration(cfg.Resources.ActionTimeout)
	svc := service.NewClient(cfg.Servers.API, timeout)
	chat := llm.NewOpenAIClient(llm.ClientConfig{
		BaseURL: cfg.Servers.LLM,
		Model:   cfg.Servers.LLMModel,
		APIKey:  cfg.Servers.LLMAPIKey,
		Timeout: timeout,
	})
	return svc, chat
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "Path to the YAML configuration file")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().Int64Var(&seed, "seed", -1, "Master seed override (-1 keeps the config value)")
	runCmd.Flags().Int64Var(&days, "days", 0, "Simulated days override")
	runCmd.Flags().StringVar(&agentsPath, "agents", "", "Population snapshot file (loaded if present, updated at each day boundary)")
	runCmd.Flags().StringVar(&contentRecsys, "content-recsys", "", "Content recommender override")
	runCmd.Flags().StringVar(&followRecsys, "follow-recsys", "", "Follow recommender override")
	runCmd.Flags().StringVar(&telemetryDB, "telemetry-db", "", "SQLite action log path override")
	runCmd.Flags().BoolVar(&sequential, "sequential", false, "Force single-worker dispatch")
	runCmd.Flags().BoolVar(&reset, "reset", false, "Wipe the remote service state before starting")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run against in-process mock collaborators")

	rootCmd.AddCommand(runCmd)
}
