// Package planning runs the build, solve and extract pipeline for one or
// more independent planning requests
package planning

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vsinha/distplan/pkg/application/dto"
	"github.com/vsinha/distplan/pkg/infrastructure/events"
	"github.com/vsinha/distplan/pkg/optimization/builder"
	"github.com/vsinha/distplan/pkg/optimization/extract"
	"github.com/vsinha/distplan/pkg/optimization/milp"
	"github.com/vsinha/distplan/pkg/optimization/solver"
)

// Request is one planning run
type Request struct {
	Name    string
	Input   builder.Input
	Options builder.Options
	Solver  solver.Options
}

// Service orchestrates planning runs. Each run owns its model; runs share
// nothing but the logger and the event store.
type Service struct {
	logger *zap.Logger
	store  events.EventStore
}

// NewService creates a planning service. A nil logger discards logs and a
// nil store discards events.
func NewService(logger *zap.Logger, store events.EventStore) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger, store: store}
}

// Build validates the request and constructs its model without solving it
func (s *Service) Build(req Request) (*builder.Model, error) {
	return builder.Build(req.Input, req.Options)
}

// Plan builds, solves and decodes one request. Validation and extraction
// failures are returned as errors; every solver outcome, including
// infeasible and timed out, is reported on the result.
func (s *Service) Plan(ctx context.Context, req Request) (*dto.PlanResult, error) {
	runID := uuid.New()
	log := s.logger.With(zap.String("run_id", runID.String()))
	if req.Name != "" {
		log = log.With(zap.String("scenario", req.Name))
	}

	s.publish(runID, events.PlanRequestedEvent, events.PlanRequested{
		RunID:    runID,
		Name:     req.Name,
		Start:    req.Input.Start,
		End:      req.Input.End,
		Nodes:    len(req.Input.Nodes),
		Products: len(req.Input.Products),
		Demand:   len(req.Input.Demand),
		Solver:   req.Solver.Solver,
	})

	buildStart := time.Now()
	model, err := builder.Build(req.Input, req.Options)
	if err != nil {
		s.fail(log, runID, "build", err)
		return nil, fmt.Errorf("failed to build model: %w", err)
	}
	stats := model.Stats()
	log.Info("model built",
		zap.Int("variables", stats.Variables),
		zap.Int("integers", stats.Integers),
		zap.Int("constraints", stats.Constraints),
		zap.Duration("elapsed", time.Since(buildStart)))
	for _, w := range model.Warnings {
		log.Warn("input warning", zap.String("warning", w))
	}
	s.publish(runID, events.ModelBuiltEvent, events.ModelBuilt{
		RunID:       runID,
		Variables:   stats.Variables,
		Integers:    stats.Integers,
		Constraints: stats.Constraints,
		Warnings:    model.Warnings,
		Elapsed:     time.Since(buildStart),
	})

	opts := req.Solver
	if opts.Logger == nil {
		opts.Logger = log
	}
	result := solver.Solve(ctx, model.LP, opts)
	s.publish(runID, events.ModelSolvedEvent, events.ModelSolved{
		RunID:     runID,
		Status:    string(result.Status),
		Objective: result.Objective,
		Gap:       result.Gap,
		Nodes:     result.Nodes,
		Elapsed:   result.SolveTime,
	})

	out := &dto.PlanResult{
		RunID:                runID,
		TerminationCondition: string(result.Status),
		ObjectiveValue:       result.Objective,
		Gap:                  result.Gap,
		SolveTimeSeconds:     result.SolveTime.Seconds(),
		Stats:                stats,
		Warnings:             model.Warnings,
	}

	if !result.HasSolution() {
		out.InfeasibilityMessage = infeasibilityMessage(model, result)
		s.fail(log, runID, "solve", fmt.Errorf("%s", out.InfeasibilityMessage))
		return out, nil
	}

	plan, err := extract.Extract(model, result)
	if err != nil {
		s.fail(log, runID, "extract", err)
		return out, fmt.Errorf("failed to extract plan: %w", err)
	}
	out.Success = true
	out.Plan = plan

	log.Info("plan extracted",
		zap.String("total_cost", plan.Costs.Total.String()),
		zap.Float64("fill_rate", plan.Summary.FillRate),
		zap.Float64("produced", plan.Summary.TotalProduced),
		zap.Float64("shortage", plan.Summary.TotalShortage))
	s.publish(runID, events.PlanExtractedEvent, events.PlanExtracted{
		RunID:         runID,
		TotalCost:     plan.Costs.Total.String(),
		FillRate:      plan.Summary.FillRate,
		TotalProduced: plan.Summary.TotalProduced,
		TotalShortage: plan.Summary.TotalShortage,
	})
	return out, nil
}

// PlanAll runs independent requests concurrently. Results are returned in
// request order; the first error cancels the remaining runs.
func (s *Service) PlanAll(ctx context.Context, reqs []Request) ([]*dto.PlanResult, error) {
	results := make([]*dto.PlanResult, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			r, err := s.Plan(ctx, req)
			if err != nil {
				name := req.Name
				if name == "" {
					name = fmt.Sprintf("#%d", i)
				}
				return fmt.Errorf("request %s: %w", name, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) publish(runID uuid.UUID, eventType string, data any) {
	if s.store == nil {
		return
	}
	stream := events.RunStream(runID)
	if err := s.store.AppendEvent(stream, events.NewEvent(eventType, stream, data)); err != nil {
		s.logger.Warn("failed to publish event", zap.String("event", eventType), zap.Error(err))
	}
}

func (s *Service) fail(log *zap.Logger, runID uuid.UUID, stage string, err error) {
	log.Error("planning run failed", zap.String("stage", stage), zap.Error(err))
	s.publish(runID, events.PlanFailedEvent, events.PlanFailed{RunID: runID, Stage: stage, Error: err.Error()})
}

// infeasibilityMessage explains a solve without a plan, listing the
// model's constraint families and variable ranges for external analysis
func infeasibilityMessage(m *builder.Model, r *milp.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "solver finished with status %s", r.Status)
	if r.Message != "" {
		fmt.Fprintf(&b, " (%s)", r.Message)
	}
	switch r.Status {
	case milp.StatusInfeasible:
		if !m.Options.AllowShortages {
			b.WriteString("; shortages are disabled, so every demand must be met in full")
		}
		b.WriteString("; check labor capacity, truck schedules and the planning horizon")
	case milp.StatusTimedOut:
		b.WriteString("; no feasible plan was found within the time limit")
	}
	b.WriteString("; families:")
	for _, f := range m.LP.Families() {
		b.WriteString(" ")
		b.WriteString(f.String())
		b.WriteString(";")
	}
	return strings.TrimSuffix(b.String(), ";")
}
