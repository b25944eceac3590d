package solver

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/distplan/pkg/optimization/milp"
)

const integralityTol = 1e-6

// BranchAndBound solves MILPs by depth-first branch and bound. Each node
// re-optimizes the parent's simplex basis with the dual simplex after the
// branching bound change. A rounding heuristic at the root seeds the
// incumbent.
type BranchAndBound struct {
	relaxation func(m *milp.Model, lo, hi []float64) relaxer
}

// relaxer solves the continuous relaxation under node bounds
type relaxer interface {
	solve(ctx context.Context, lo, hi []float64) lpOutcome
}

var _ Adapter = (*BranchAndBound)(nil)

func (*BranchAndBound) Name() string { return BranchAndBoundSolver }

type bbNode struct {
	lo, hi []float64
	bound  float64 // parent relaxation objective
	depth  int
}

func (b *BranchAndBound) Solve(ctx context.Context, m *milp.Model, opts Options) *milp.Result {
	start := time.Now()
	log := opts.logger()
	if opts.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.TimeLimit)
		defer cancel()
	}

	vars := m.Vars()
	integers := make([]int, 0)
	for i, v := range vars {
		if v.IsInteger() {
			integers = append(integers, i)
		}
	}

	lo, hi := initialBounds(m)
	var lp relaxer
	if b.relaxation != nil {
		lp = b.relaxation(m, lo, hi)
	} else {
		lp = newSimplex(m, lo, hi)
	}
	stack := []bbNode{{lo: lo, hi: hi, bound: math.Inf(-1)}}

	var (
		incumbent    []float64
		incumbentObj = math.Inf(1)
		rootBound    = math.Inf(-1)
		lostBound    = math.Inf(1) // lowest bound of subtrees dropped after a failed relaxation
		failed       int
		nodes        int
		status       milp.Status
		message      string
	)

	bound := func() float64 {
		return math.Min(bestBound(stack, incumbentObj, rootBound), lostBound)
	}
	finish := func() *milp.Result {
		r := &milp.Result{
			Status:    status,
			Message:   message,
			Nodes:     nodes,
			SolveTime: time.Since(start),
			BestBound: bound(),
		}
		if incumbent != nil {
			r.Values = incumbent
			r.Objective = m.Evaluate(incumbent)
			r.Gap = relativeGap(r.Objective, r.BestBound)
		}
		return r
	}
	accept := func(x []float64, node int, source string) {
		candidate := roundIntegers(x, integers)
		obj := m.Evaluate(candidate)
		if obj >= incumbentObj {
			return
		}
		incumbent, incumbentObj = candidate, obj
		if opts.Verbose {
			log.Info("new incumbent",
				zap.String("source", source),
				zap.Int("node", node),
				zap.Float64("objective", incumbentObj))
		}
	}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			status = milp.StatusTimedOut
			message = "time limit reached"
			return finish()
		}
		if nodes >= opts.maxNodes() {
			status = milp.StatusFeasible
			message = "node limit reached"
			if incumbent == nil {
				status = milp.StatusError
				message = "node limit reached without a feasible solution"
			}
			return finish()
		}
		if incumbent != nil && relativeGap(incumbentObj, bound()) <= opts.MIPGap {
			break
		}

		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node.bound >= incumbentObj-pruneTol(incumbentObj, opts.MIPGap) {
			continue
		}

		nodes++
		out := lp.solve(ctx, node.lo, node.hi)
		if out.status == lpInterrupted {
			status = milp.StatusTimedOut
			message = "time limit reached"
			if node.bound < lostBound {
				lostBound = node.bound
			}
			return finish()
		}
		if nodes == 1 {
			switch out.status {
			case lpInfeasible:
				status, message = milp.StatusInfeasible, "relaxation is infeasible"
				return finish()
			case lpUnbounded:
				status, message = milp.StatusUnbounded, "relaxation is unbounded"
				return finish()
			case lpFailed:
				status, message = milp.StatusError, out.err.Error()
				return finish()
			}
			rootBound = out.objective
		}
		if out.status != lpSolved {
			if out.status != lpInfeasible {
				// the subtree was not proven empty
				failed++
				lostBound = math.Min(lostBound, node.bound)
				log.Debug("node relaxation failed",
					zap.Int("node", nodes),
					zap.Int("depth", node.depth),
					zap.Error(out.err))
			}
			continue
		}
		if out.objective >= incumbentObj-pruneTol(incumbentObj, opts.MIPGap) {
			continue
		}

		branch, frac := mostFractional(out.x, integers)
		if branch < 0 {
			accept(out.x, nodes, "relaxation")
			continue
		}
		if nodes == 1 {
			for _, x := range roundingHeuristic(ctx, lp, out.x, node.lo, node.hi, integers) {
				accept(x, nodes, "rounding")
			}
		}

		value := out.x[branch]
		down := bbNode{lo: node.lo, hi: clone(node.hi), bound: out.objective, depth: node.depth + 1}
		down.hi[branch] = math.Floor(value)
		up := bbNode{lo: clone(node.lo), hi: node.hi, bound: out.objective, depth: node.depth + 1}
		up.lo[branch] = math.Ceil(value)

		// the side nearer the relaxed value is explored first
		if frac >= 0.5 {
			stack = append(stack, down, up)
		} else {
			stack = append(stack, up, down)
		}
	}

	switch {
	case incumbent == nil && failed > 0:
		status = milp.StatusError
		message = fmt.Sprintf("no feasible solution found; %d node relaxation(s) failed", failed)
	case incumbent == nil:
		status, message = milp.StatusInfeasible, "no integer-feasible solution exists"
	case failed > 0 && relativeGap(incumbentObj, bound()) > opts.MIPGap:
		status = milp.StatusFeasible
		message = fmt.Sprintf("optimality not proven; %d node relaxation(s) failed", failed)
	default:
		status = milp.StatusOptimal
	}
	return finish()
}

// roundingHeuristic fixes every integer variable at a rounding of the root
// relaxation x and re-solves the continuous rest. It returns the solutions
// of the roundings whose relaxation stayed feasible.
func roundingHeuristic(ctx context.Context, lp relaxer, x, lo, hi []float64, integers []int) [][]float64 {
	roundings := []func(float64) float64{
		func(v float64) float64 { return math.Ceil(v - integralityTol) },
		math.Round,
		func(v float64) float64 { return math.Floor(v + integralityTol) },
	}
	var found [][]float64
	for _, round := range roundings {
		flo, fhi := clone(lo), clone(hi)
		for _, i := range integers {
			v := math.Min(math.Max(round(x[i]), lo[i]), hi[i])
			flo[i], fhi[i] = v, v
		}
		out := lp.solve(ctx, flo, fhi)
		if out.status == lpInterrupted {
			break
		}
		if out.status == lpSolved {
			found = append(found, out.x)
		}
	}
	return found
}

// mostFractional returns the integer variable whose relaxed value is
// furthest from a whole number, or -1 when all are integral
func mostFractional(x []float64, integers []int) (int, float64) {
	best, bestDist, bestFrac := -1, integralityTol, 0.0
	for _, i := range integers {
		frac := x[i] - math.Floor(x[i])
		dist := math.Min(frac, 1-frac)
		if dist > bestDist {
			best, bestDist, bestFrac = i, dist, frac
		}
	}
	return best, bestFrac
}

func roundIntegers(x []float64, integers []int) []float64 {
	out := clone(x)
	for _, i := range integers {
		out[i] = math.Round(out[i])
	}
	return out
}

func bestBound(open []bbNode, incumbentObj, rootBound float64) float64 {
	bound := incumbentObj
	for _, n := range open {
		if n.bound < bound {
			bound = n.bound
		}
	}
	if math.IsInf(bound, -1) {
		return rootBound
	}
	return bound
}

func relativeGap(objective, bound float64) float64 {
	if math.IsInf(objective, 0) || math.IsInf(bound, 0) {
		return math.Inf(1)
	}
	gap := (objective - bound) / math.Max(1, math.Abs(objective))
	return math.Max(gap, 0)
}

func pruneTol(incumbentObj, mipGap float64) float64 {
	if math.IsInf(incumbentObj, 1) {
		return 0
	}
	return math.Max(1e-9, mipGap*math.Max(1, math.Abs(incumbentObj)))
}

func clone(s []float64) []float64 {
	out := make([]float64, len(s))
	copy(out, s)
	return out
}
