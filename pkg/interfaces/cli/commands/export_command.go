package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/vsinha/distplan/pkg/application/services/planning"
	"github.com/vsinha/distplan/pkg/infrastructure/config"
	"github.com/vsinha/distplan/pkg/infrastructure/events"
	"github.com/vsinha/distplan/pkg/optimization/milp"
)

// ExportConfig holds configuration for the export-lp command
type ExportConfig struct {
	ScenarioDir string
	OutputFile  string // empty writes to Out
	Verbose     bool
	Settings    *config.Config
	Logger      *zap.Logger
	Out         io.Writer
}

// ExportCommand builds a scenario's model and writes it in LP format
// without solving it
type ExportCommand struct {
	config ExportConfig
}

func NewExportCommand(cfg ExportConfig) *ExportCommand {
	if cfg.Settings == nil {
		cfg.Settings = config.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	return &ExportCommand{config: cfg}
}

// Execute runs the export-lp command
func (c *ExportCommand) Execute(ctx context.Context) error {
	if c.config.ScenarioDir == "" {
		return fmt.Errorf("validation error: scenario directory is required")
	}

	requests, err := loadRequests([]string{c.config.ScenarioDir}, c.config.Settings, c.config.Logger)
	if err != nil {
		return err
	}

	service := planning.NewService(c.config.Logger, events.NewInMemoryEventStore(c.config.Logger))
	model, err := service.Build(requests[0])
	if err != nil {
		return fmt.Errorf("error building model: %w", err)
	}

	if c.config.Verbose {
		fmt.Fprintf(c.config.Out, "🧮 Model %s: %d variables, %d constraints\n",
			requests[0].Name, model.LP.NumVars(), model.LP.NumConstraints())
		for _, f := range model.LP.Families() {
			fmt.Fprintf(c.config.Out, "  %s\n", f)
		}
		for _, w := range model.Warnings {
			fmt.Fprintf(c.config.Out, "⚠️  %s\n", w)
		}
	}

	if c.config.OutputFile == "" {
		return milp.WriteLP(c.config.Out, model.LP)
	}

	file, err := os.Create(c.config.OutputFile)
	if err != nil {
		return fmt.Errorf("failed to create LP file: %w", err)
	}
	defer file.Close()

	if err := milp.WriteLP(file, model.LP); err != nil {
		return fmt.Errorf("failed to write LP file: %w", err)
	}
	if c.config.Verbose {
		fmt.Fprintf(c.config.Out, "💾 Model written to: %s\n", c.config.OutputFile)
	}
	return nil
}
