// Package solver runs a milp.Model through a solver backend and reports a
// typed milp.Result. Backends never return Go errors: every failure mode is
// a Status on the result.
package solver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/distplan/pkg/optimization/milp"
)

// Backend names accepted by New
const (
	BranchAndBoundSolver = "branch-and-bound"
	RelaxationSolver     = "lp-relaxation"
)

const (
	DefaultMaxNodes = 100000
	DefaultMIPGap   = 1e-4
)

// ErrUnknownSolver is reported when a backend name is not registered
var ErrUnknownSolver = errors.New("unknown solver")

// Options configures a solve
type Options struct {
	Solver    string
	TimeLimit time.Duration
	MIPGap    float64
	MaxNodes  int
	Verbose   bool
	Logger    *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o Options) maxNodes() int {
	if o.MaxNodes <= 0 {
		return DefaultMaxNodes
	}
	return o.MaxNodes
}

// Adapter is a solver backend
type Adapter interface {
	Name() string
	Solve(ctx context.Context, m *milp.Model, opts Options) *milp.Result
}

// New returns the backend registered under name. The empty name and
// "gonum" select branch-and-bound.
func New(name string) (Adapter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "gonum", "default", BranchAndBoundSolver:
		return &BranchAndBound{}, nil
	case RelaxationSolver, "lp":
		return &Relaxation{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSolver, name)
	}
}

// Available lists the registered backend names
func Available() []string {
	return []string{BranchAndBoundSolver, RelaxationSolver}
}

// Solve picks the backend named in opts and runs it. An unknown backend is
// reported as StatusError.
func Solve(ctx context.Context, m *milp.Model, opts Options) *milp.Result {
	adapter, err := New(opts.Solver)
	if err != nil {
		return &milp.Result{Status: milp.StatusError, Message: err.Error()}
	}
	log := opts.logger()
	log.Info("solving model",
		zap.String("solver", adapter.Name()),
		zap.String("model", m.Name),
		zap.Int("variables", m.NumVars()),
		zap.Int("constraints", m.NumConstraints()),
		zap.Duration("time_limit", opts.TimeLimit),
		zap.Float64("mip_gap", opts.MIPGap))

	result := adapter.Solve(ctx, m, opts)

	log.Info("solve finished",
		zap.String("status", string(result.Status)),
		zap.Float64("objective", result.Objective),
		zap.Float64("gap", result.Gap),
		zap.Int("nodes", result.Nodes),
		zap.Duration("elapsed", result.SolveTime))
	return result
}
