package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/distplan/pkg/application/dto"
	"github.com/vsinha/distplan/pkg/application/services/planning"
	"github.com/vsinha/distplan/pkg/infrastructure/config"
	"github.com/vsinha/distplan/pkg/infrastructure/events"
	"github.com/vsinha/distplan/pkg/infrastructure/scenario"
	"github.com/vsinha/distplan/pkg/interfaces/cli/output"
)

// ErrNoPlan is returned when at least one scenario finished without a plan
var ErrNoPlan = errors.New("no plan produced")

// Config holds configuration for the plan command
type Config struct {
	ScenarioDirs []string
	OutputDir    string
	Format       string
	Verbose      bool
	Settings     *config.Config
	Logger       *zap.Logger
	Out          io.Writer
}

// PlanCommand loads scenarios, plans them and writes the results
type PlanCommand struct {
	config Config
}

// NewPlanCommand creates a new plan command with the given configuration
func NewPlanCommand(cfg Config) *PlanCommand {
	if cfg.Settings == nil {
		cfg.Settings = config.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Format == "" {
		cfg.Format = cfg.Settings.Output.Format
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = cfg.Settings.Output.Dir
	}
	return &PlanCommand{config: cfg}
}

// Execute runs the plan command
func (c *PlanCommand) Execute(ctx context.Context) error {
	if len(c.config.ScenarioDirs) == 0 {
		return fmt.Errorf("validation error: at least one scenario directory is required")
	}

	requests, err := loadRequests(c.config.ScenarioDirs, c.config.Settings, c.config.Logger)
	if err != nil {
		return err
	}

	if c.config.Verbose {
		fmt.Fprintf(c.config.Out, "📂 Loaded %d scenario(s)\n", len(requests))
		for _, r := range requests {
			in := r.Input
			fmt.Fprintf(c.config.Out, "  %s: %d nodes, %d routes, %d products, %d demand entries, %s to %s\n",
				r.Name, len(in.Nodes), len(in.Routes), len(in.Products), len(in.Demand),
				in.Start.Format("2006-01-02"), in.End.Format("2006-01-02"))
		}
		fmt.Fprintln(c.config.Out)
	}

	store := events.NewInMemoryEventStore(c.config.Logger)
	service := planning.NewService(c.config.Logger, store)

	if c.config.Verbose {
		live := c.liveEvents()
		if err := store.Subscribe(events.PlanningEventTypes, live); err != nil {
			return fmt.Errorf("error subscribing to planning events: %w", err)
		}
		defer func() {
			_ = store.Unsubscribe(live)
			store.Flush()
		}()
	}

	startTime := time.Now()
	results, err := service.PlanAll(ctx, requests)
	if err != nil {
		return fmt.Errorf("error running planner: %w", err)
	}

	if c.config.Verbose {
		store.Flush()
		for i, result := range results {
			fmt.Fprintf(c.config.Out, "📋 %s: run %s, %d event(s)\n",
				requests[i].Name, result.RunID, len(store.RunHistory(result.RunID)))
		}
		fmt.Fprintf(c.config.Out, "✅ Planning completed in %v\n\n", time.Since(startTime))
	}

	failed := 0
	for i, result := range results {
		outputConfig := output.Config{
			Format:    c.config.Format,
			OutputDir: c.outputDir(requests[i].Name),
			Verbose:   c.config.Verbose,
		}
		if err := output.Generate(c.config.Out, result, outputConfig); err != nil {
			return fmt.Errorf("error generating output for %s: %w", requests[i].Name, err)
		}
		if outputConfig.OutputDir != "" && c.config.Format != "text" {
			fmt.Fprintln(c.config.Out, summaryLine(requests[i].Name, result))
		}
		if !result.Success {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w for %d of %d scenario(s)", ErrNoPlan, failed, len(results))
	}
	return nil
}

// liveEvents prints planning events as the runs emit them. Handlers run on
// their own goroutines, so writes share a lock.
func (c *PlanCommand) liveEvents() *events.HandlerFunc {
	var mu sync.Mutex
	return &events.HandlerFunc{
		Types: events.PlanningEventTypes,
		Fn: func(e events.Event) error {
			mu.Lock()
			defer mu.Unlock()
			_, err := fmt.Fprintf(c.config.Out, "🔔 %s %s%s\n",
				e.Timestamp().Format(time.TimeOnly), e.Type(), eventDetail(e))
			return err
		},
	}
}

func eventDetail(e events.Event) string {
	switch d := e.Data().(type) {
	case events.PlanRequested:
		return fmt.Sprintf(" %s (%d nodes, %d products)", d.Name, d.Nodes, d.Products)
	case events.ModelBuilt:
		return fmt.Sprintf(" %d vars, %d integer, %d rows", d.Variables, d.Integers, d.Constraints)
	case events.ModelSolved:
		return fmt.Sprintf(" %s in %v", d.Status, d.Elapsed.Round(time.Millisecond))
	case events.PlanExtracted:
		return fmt.Sprintf(" cost %s, fill rate %.1f%%", d.TotalCost, d.FillRate*100)
	case events.PlanFailed:
		return fmt.Sprintf(" at %s: %s", d.Stage, d.Error)
	}
	return ""
}

// outputDir gives every scenario its own subdirectory when several run
func (c *PlanCommand) outputDir(name string) string {
	if c.config.OutputDir == "" || len(c.config.ScenarioDirs) == 1 {
		return c.config.OutputDir
	}
	return filepath.Join(c.config.OutputDir, name)
}

// loadRequests reads each scenario directory into a planning request
func loadRequests(dirs []string, settings *config.Config, logger *zap.Logger) ([]planning.Request, error) {
	start, end, err := settings.Planning.Horizon()
	if err != nil {
		return nil, err
	}

	loader := scenario.NewLoader(logger)
	requests := make([]planning.Request, 0, len(dirs))
	for _, dir := range dirs {
		sc, err := loader.Load(dir, scenario.Overrides{Start: start, End: end})
		if err != nil {
			return nil, fmt.Errorf("error loading scenario %s: %w", dir, err)
		}
		requests = append(requests, planning.Request{
			Name:    sc.Name,
			Input:   sc.Input,
			Options: settings.Planning.BuilderOptions(),
			Solver:  settings.Solver.SolverOptions(),
		})
	}
	return requests, nil
}

// summaryLine is a one-line status printed when results go to files
func summaryLine(name string, r *dto.PlanResult) string {
	if !r.Success {
		return fmt.Sprintf("%s: %s", name, r.TerminationCondition)
	}
	return fmt.Sprintf("%s: %s, cost %s, fill rate %.1f%%", name, r.TerminationCondition,
		r.Plan.Costs.Total.StringFixed(2), r.Plan.Summary.FillRate*100)
}
