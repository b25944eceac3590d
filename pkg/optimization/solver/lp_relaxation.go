package solver

import (
	"context"
	"time"

	"github.com/vsinha/distplan/pkg/optimization/milp"
)

// Relaxation solves only the continuous relaxation. Integer variables may
// come back fractional, so the result is a lower bound useful for
// diagnosing a model rather than an executable plan.
type Relaxation struct{}

var _ Adapter = (*Relaxation)(nil)

func (*Relaxation) Name() string { return RelaxationSolver }

func (*Relaxation) Solve(ctx context.Context, m *milp.Model, opts Options) *milp.Result {
	start := time.Now()
	if opts.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.TimeLimit)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return &milp.Result{Status: milp.StatusTimedOut, Message: err.Error()}
	}
	lo, hi := initialBounds(m)
	out := newSimplex(m, lo, hi).solve(ctx, lo, hi)
	r := &milp.Result{Nodes: 1, SolveTime: time.Since(start)}
	switch out.status {
	case lpSolved:
		r.Status = milp.StatusOptimal
		r.Values = out.x
		r.Objective = out.objective
		r.BestBound = out.objective
		r.Message = "integrality relaxed"
	case lpInfeasible:
		r.Status, r.Message = milp.StatusInfeasible, "relaxation is infeasible"
	case lpUnbounded:
		r.Status, r.Message = milp.StatusUnbounded, "relaxation is unbounded"
	case lpInterrupted:
		r.Status, r.Message = milp.StatusTimedOut, "time limit reached"
	default:
		r.Status, r.Message = milp.StatusError, out.err.Error()
	}
	return r
}
