package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vsinha/distplan/pkg/infrastructure/config"
	"github.com/vsinha/distplan/pkg/interfaces/cli/commands"
)

var (
	configFile string
	verbose    bool

	settings *config.Config
	logger   *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "planner",
	Short: "Production and distribution planner for perishable goods",
	Long: `planner builds a mixed-integer model of a production and distribution
network for perishable products and solves it for a minimum cost plan.

A scenario is a directory holding network.yaml, demand.csv or demand.xlsx,
and optionally inventory.csv and labor.csv. Settings come from planner.yaml,
PLANNER_* environment variables (a .env file is honoured) and flags.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		settings, err = config.Load(configFile)
		if err != nil {
			return err
		}
		if verbose && settings.Log.Level == "info" {
			settings.Log.Level = "debug"
		}
		logger, err = initLogger(settings.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var planCmd = &cobra.Command{
	Use:   "plan <scenario-dir>...",
	Short: "Plan one or more scenarios",
	Long: `Plan builds and solves each scenario. Several scenarios are planned
concurrently; with an output directory each gets its own subdirectory.

Formats: text, json, csv, xlsx, svg.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

var exportCmd = &cobra.Command{
	Use:   "export-lp <scenario-dir>",
	Short: "Write a scenario's model in LP format without solving it",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Create a synthetic bakery scenario",
	RunE:  runGenerate,
}

var (
	planFormat    string
	planOutput    string
	planStart     string
	planEnd       string
	planSolver    string
	planTimeLimit float64
	planGap       float64
	noShortages   bool

	exportOutput string

	genConfig commands.GenerateConfig
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default: ./planner.yaml or ./configs/planner.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	for _, cmd := range []*cobra.Command{planCmd, exportCmd} {
		cmd.Flags().StringVar(&planStart, "start", "", "First planning day (YYYY-MM-DD)")
		cmd.Flags().StringVar(&planEnd, "end", "", "Last planning day (YYYY-MM-DD)")
		cmd.Flags().BoolVar(&noShortages, "no-shortages", false, "Require all demand to be met")
	}

	planCmd.Flags().StringVarP(&planFormat, "format", "f", "", "Output format: text, json, csv, xlsx, svg")
	planCmd.Flags().StringVarP(&planOutput, "output", "o", "", "Output directory")
	planCmd.Flags().StringVar(&planSolver, "solver", "", "Solver backend: branch-and-bound, lp-relaxation")
	planCmd.Flags().Float64Var(&planTimeLimit, "time-limit", 0, "Solver time limit in seconds")
	planCmd.Flags().Float64Var(&planGap, "mip-gap", 0, "Relative optimality gap")

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "LP file (default: stdout)")

	generateCmd.Flags().IntVar(&genConfig.Products, "products", 3, "Number of products")
	generateCmd.Flags().IntVar(&genConfig.Hubs, "hubs", 2, "Number of storage hubs")
	generateCmd.Flags().IntVar(&genConfig.Stores, "stores", 6, "Number of stores")
	generateCmd.Flags().IntVar(&genConfig.Days, "days", 14, "Horizon length in days")
	generateCmd.Flags().Float64Var(&genConfig.Inventory, "inventory", 1.0, "Initial store stock in days of demand")
	generateCmd.Flags().StringVarP(&genConfig.OutputDir, "output", "o", "", "Output directory")
	generateCmd.Flags().Int64Var(&genConfig.Seed, "seed", 0, "Random seed for reproducible generation")
	generateCmd.MarkFlagRequired("output")

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(generateCmd)
}

func main() {
	// a missing .env file is fine
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// applyFlags lets command line flags win over file and environment settings
func applyFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("start") {
		settings.Planning.StartDate = planStart
	}
	if flags.Changed("end") {
		settings.Planning.EndDate = planEnd
	}
	if flags.Changed("no-shortages") {
		settings.Planning.AllowShortages = !noShortages
	}
	if flags.Changed("solver") {
		settings.Solver.Name = planSolver
	}
	if flags.Changed("time-limit") {
		settings.Solver.TimeLimitSeconds = planTimeLimit
	}
	if flags.Changed("mip-gap") {
		settings.Solver.MIPGap = planGap
	}
	return settings.Validate()
}

func runPlan(cmd *cobra.Command, args []string) error {
	if err := applyFlags(cmd); err != nil {
		return err
	}
	return commands.NewPlanCommand(commands.Config{
		ScenarioDirs: args,
		OutputDir:    planOutput,
		Format:       planFormat,
		Verbose:      verbose,
		Settings:     settings,
		Logger:       logger,
		Out:          cmd.OutOrStdout(),
	}).Execute(cmd.Context())
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := applyFlags(cmd); err != nil {
		return err
	}
	return commands.NewExportCommand(commands.ExportConfig{
		ScenarioDir: args[0],
		OutputFile:  exportOutput,
		Verbose:     verbose,
		Settings:    settings,
		Logger:      logger,
		Out:         cmd.OutOrStdout(),
	}).Execute(cmd.Context())
}

func runGenerate(cmd *cobra.Command, args []string) error {
	genConfig.Verbose = verbose
	genConfig.Out = cmd.OutOrStdout()
	return commands.NewGenerateCommand(genConfig).Execute(cmd.Context())
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}
