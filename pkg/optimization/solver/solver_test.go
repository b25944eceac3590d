package solver

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/distplan/pkg/optimization/milp"
)

func expr(terms ...milp.Term) milp.Expr { return milp.NewExpr(terms...) }

func term(v milp.VarID, c float64) milp.Term { return milp.Term{Var: v, Coef: c} }

func exact() Options { return Options{MIPGap: 0} }

func TestNew(t *testing.T) {
	for _, name := range []string{"", "gonum", "branch-and-bound", "Branch-And-Bound"} {
		a, err := New(name)
		require.NoError(t, err, name)
		assert.Equal(t, BranchAndBoundSolver, a.Name())
	}

	a, err := New("lp-relaxation")
	require.NoError(t, err)
	assert.Equal(t, RelaxationSolver, a.Name())

	_, err = New("cplex")
	assert.ErrorIs(t, err, ErrUnknownSolver)
}

func TestSolve_UnknownSolverIsStatusError(t *testing.T) {
	m := milp.NewModel("empty")
	r := Solve(context.Background(), m, Options{Solver: "gurobi"})
	assert.Equal(t, milp.StatusError, r.Status)
	assert.Contains(t, r.Message, "unknown solver")
	assert.False(t, r.HasSolution())
}

func TestBranchAndBound_ContinuousLP(t *testing.T) {
	m := milp.NewModel("lp")
	x := m.AddVar("x", "x", milp.Continuous, 0, math.Inf(1))
	y := m.AddVar("y", "y", milp.Continuous, 0, math.Inf(1))
	m.AddConstraint("c", "c1", expr(term(x, 1), term(y, 2)), milp.LessEqual, 4)
	m.AddConstraint("c", "c2", expr(term(x, 3), term(y, 1)), milp.LessEqual, 6)
	m.AddCost("value", x, -1)
	m.AddCost("value", y, -1)

	r := Solve(context.Background(), m, exact())
	require.Equal(t, milp.StatusOptimal, r.Status, r.Message)
	assert.InDelta(t, -2.8, r.Objective, 1e-6)
	assert.InDelta(t, 1.6, r.Values[x], 1e-6)
	assert.InDelta(t, 1.2, r.Values[y], 1e-6)
	assert.Equal(t, 1, r.Nodes)
}

func knapsack() (*milp.Model, []milp.VarID) {
	m := milp.NewModel("knapsack")
	values := []float64{10, 13, 7}
	weights := []float64{3, 4, 2}
	items := make([]milp.VarID, len(values))
	capacity := milp.NewExpr()
	for i := range values {
		items[i] = m.AddVar("take", "take", milp.Binary, 0, 1)
		capacity.Add(items[i], weights[i])
		m.AddCost("value", items[i], -values[i])
	}
	m.AddConstraint("capacity", "capacity", capacity, milp.LessEqual, 6)
	return m, items
}

func TestBranchAndBound_Knapsack(t *testing.T) {
	m, items := knapsack()

	r := Solve(context.Background(), m, exact())
	require.Equal(t, milp.StatusOptimal, r.Status, r.Message)
	assert.InDelta(t, -20, r.Objective, 1e-6)
	assert.Equal(t, 0.0, r.Values[items[0]])
	assert.Equal(t, 1.0, r.Values[items[1]])
	assert.Equal(t, 1.0, r.Values[items[2]])
	assert.Empty(t, m.Violations(r.Values, 1e-6))
	assert.InDelta(t, 0, r.Gap, 1e-9)
}

func TestRelaxation_KnapsackBound(t *testing.T) {
	m, _ := knapsack()

	r := Solve(context.Background(), m, Options{Solver: RelaxationSolver})
	require.Equal(t, milp.StatusOptimal, r.Status)
	assert.InDelta(t, -20.25, r.Objective, 1e-6)
	assert.Equal(t, "integrality relaxed", r.Message)
}

func TestBranchAndBound_GeneralInteger(t *testing.T) {
	m := milp.NewModel("round-up")
	x := m.AddVar("x", "x", milp.Integer, 0, 100)
	m.AddConstraint("c", "c", expr(term(x, 2)), milp.GreaterEqual, 3)
	m.AddCost("x", x, 1)

	r := Solve(context.Background(), m, exact())
	require.Equal(t, milp.StatusOptimal, r.Status)
	assert.Equal(t, 2.0, r.Values[x])
	assert.Greater(t, r.Nodes, 1)
}

func TestBranchAndBound_EqualityAndBounds(t *testing.T) {
	m := milp.NewModel("bounds")
	x := m.AddVar("x", "x", milp.Continuous, 3, math.Inf(1))
	y := m.AddVar("y", "y", milp.Continuous, 0, 4)
	m.AddConstraint("sum", "sum", expr(term(x, 1), term(y, 1)), milp.Equal, 10)
	m.AddCost("x", x, 1)

	r := Solve(context.Background(), m, exact())
	require.Equal(t, milp.StatusOptimal, r.Status)
	assert.InDelta(t, 6, r.Values[x], 1e-6)
	assert.InDelta(t, 4, r.Values[y], 1e-6)
}

func TestBranchAndBound_FixedVariableEliminated(t *testing.T) {
	m := milp.NewModel("fixed")
	x := m.AddVar("x", "x", milp.Continuous, 2, 2)
	y := m.AddVar("y", "y", milp.Continuous, 0, math.Inf(1))
	m.AddConstraint("c", "c", expr(term(x, 1), term(y, 1)), milp.GreaterEqual, 5)
	m.AddCost("y", y, 1)
	m.AddCostConstant("fixed", 7)

	r := Solve(context.Background(), m, exact())
	require.Equal(t, milp.StatusOptimal, r.Status)
	assert.Equal(t, 2.0, r.Values[x])
	assert.InDelta(t, 3, r.Values[y], 1e-6)
	assert.InDelta(t, 10, r.Objective, 1e-6)
}

func TestBranchAndBound_ZeroUpperBoundColumn(t *testing.T) {
	m := milp.NewModel("shortage")
	prod := m.AddVar("production", "production", milp.Continuous, 0, math.Inf(1))
	short := m.AddVar("shortage", "shortage", milp.Continuous, 0, 0)
	m.AddConstraint("demand", "demand", expr(term(prod, 1), term(short, 1)), milp.Equal, 100)
	m.AddCost("production", prod, 2)
	m.AddCost("shortage", short, 1)

	r := Solve(context.Background(), m, exact())
	require.Equal(t, milp.StatusOptimal, r.Status)
	assert.InDelta(t, 100, r.Values[prod], 1e-6)
	assert.Equal(t, 0.0, r.Values[short])
}

func TestBranchAndBound_Infeasible(t *testing.T) {
	m := milp.NewModel("infeasible")
	x := m.AddVar("x", "x", milp.Continuous, 0, math.Inf(1))
	m.AddConstraint("lo", "lo", expr(term(x, 1)), milp.GreaterEqual, 5)
	m.AddConstraint("hi", "hi", expr(term(x, 1)), milp.LessEqual, 3)

	r := Solve(context.Background(), m, exact())
	assert.Equal(t, milp.StatusInfeasible, r.Status)
	assert.False(t, r.HasSolution())
}

func TestBranchAndBound_InfeasibleBounds(t *testing.T) {
	m := milp.NewModel("bounds")
	x := m.AddVar("x", "x", milp.Integer, 0.2, 0.8)
	m.AddCost("x", x, 1)

	r := Solve(context.Background(), m, exact())
	assert.Equal(t, milp.StatusInfeasible, r.Status)
}

func TestBranchAndBound_Unbounded(t *testing.T) {
	m := milp.NewModel("unbounded")
	x := m.AddVar("x", "x", milp.Continuous, 0, math.Inf(1))
	y := m.AddVar("y", "y", milp.Continuous, 0, math.Inf(1))
	m.AddConstraint("c", "c", expr(term(x, 1), term(y, -1)), milp.LessEqual, 1)
	m.AddCost("x", x, -1)

	r := Solve(context.Background(), m, exact())
	assert.Equal(t, milp.StatusUnbounded, r.Status)

	free := milp.NewModel("free-ray")
	z := free.AddVar("z", "z", milp.Continuous, 0, math.Inf(1))
	free.AddCost("z", z, -1)
	assert.Equal(t, milp.StatusUnbounded, Solve(context.Background(), free, exact()).Status)
}

func TestBranchAndBound_CancelledContextTimesOut(t *testing.T) {
	m, _ := knapsack()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := Solve(ctx, m, Options{TimeLimit: time.Second})
	assert.Equal(t, milp.StatusTimedOut, r.Status)
	assert.False(t, r.HasSolution())
}

func TestBranchAndBound_NodeLimit(t *testing.T) {
	m := milp.NewModel("round-up")
	x := m.AddVar("x", "x", milp.Integer, 0, 100)
	m.AddConstraint("c", "c", expr(term(x, 2)), milp.GreaterEqual, 3)
	m.AddCost("x", x, 1)

	// rounding the root relaxation up already gives the optimum
	r := Solve(context.Background(), m, Options{MaxNodes: 1})
	assert.Equal(t, milp.StatusFeasible, r.Status)
	assert.Contains(t, r.Message, "node limit")
	require.True(t, r.HasSolution())
	assert.Equal(t, 2.0, r.Values[x])
	assert.InDelta(t, 1.5, r.BestBound, 1e-9)
}

func TestBranchAndBound_NodeLimitWithoutIncumbent(t *testing.T) {
	m := milp.NewModel("odd")
	x := m.AddVar("x", "x", milp.Integer, 0, 10)
	m.AddConstraint("c", "c", expr(term(x, 2)), milp.Equal, 3)

	r := Solve(context.Background(), m, Options{MaxNodes: 1})
	assert.Equal(t, milp.StatusError, r.Status)
	assert.Contains(t, r.Message, "node limit")
	assert.False(t, r.HasSolution())

	r = Solve(context.Background(), m, exact())
	assert.Equal(t, milp.StatusInfeasible, r.Status)
}

func TestBranchAndBound_RoundingSeedsIncumbent(t *testing.T) {
	m, items := knapsack()

	r := Solve(context.Background(), m, Options{MaxNodes: 1})
	assert.Equal(t, milp.StatusFeasible, r.Status)
	require.True(t, r.HasSolution())
	assert.Empty(t, m.Violations(r.Values, 1e-6))
	// nearest rounding of the root drops the fractional item
	assert.InDelta(t, -17, r.Objective, 1e-6)
	assert.Equal(t, 0.0, r.Values[items[1]])
}

// failingRelaxation solves the root and fails every later relaxation
type failingRelaxation struct {
	root  *simplex
	calls int
}

func (f *failingRelaxation) solve(ctx context.Context, lo, hi []float64) lpOutcome {
	f.calls++
	if f.calls == 1 {
		return f.root.solve(ctx, lo, hi)
	}
	return lpOutcome{status: lpFailed, err: errIterationLimit}
}

func TestBranchAndBound_FailedNodesAreNotInfeasible(t *testing.T) {
	m, _ := knapsack()
	failing := &BranchAndBound{relaxation: func(m *milp.Model, lo, hi []float64) relaxer {
		return &failingRelaxation{root: newSimplex(m, lo, hi)}
	}}

	r := failing.Solve(context.Background(), m, exact())
	assert.Equal(t, milp.StatusError, r.Status)
	assert.Contains(t, r.Message, "node relaxation(s) failed")
	assert.False(t, r.HasSolution())
	assert.InDelta(t, -20.25, r.BestBound, 1e-6)
}

func TestBranchAndBound_FailedNodesKeepIncumbentFeasible(t *testing.T) {
	m := milp.NewModel("round-up")
	x := m.AddVar("x", "x", milp.Integer, 0, 100)
	y := m.AddVar("y", "y", milp.Integer, 0, 100)
	m.AddConstraint("c", "c", expr(term(x, 2), term(y, 2)), milp.GreaterEqual, 3)
	m.AddCost("x", x, 1)
	m.AddCost("y", y, 1.1)

	calls := 0
	partial := &BranchAndBound{relaxation: func(m *milp.Model, lo, hi []float64) relaxer {
		lp := newSimplex(m, lo, hi)
		return relaxerFunc(func(ctx context.Context, lo, hi []float64) lpOutcome {
			calls++
			// root and the three roundings succeed, the first child fails
			if calls == 5 {
				return lpOutcome{status: lpFailed, err: errIterationLimit}
			}
			return lp.solve(ctx, lo, hi)
		})
	}}

	r := partial.Solve(context.Background(), m, exact())
	require.True(t, r.HasSolution(), r.Message)
	assert.Equal(t, milp.StatusFeasible, r.Status)
	assert.Contains(t, r.Message, "optimality not proven")
	assert.Equal(t, 2.0, r.Values[x])
}

type relaxerFunc func(ctx context.Context, lo, hi []float64) lpOutcome

func (f relaxerFunc) solve(ctx context.Context, lo, hi []float64) lpOutcome { return f(ctx, lo, hi) }

func TestSimplex_EqualityIsOneRowWithoutSlack(t *testing.T) {
	m := milp.NewModel("bounds")
	x := m.AddVar("x", "x", milp.Continuous, 3, math.Inf(1))
	y := m.AddVar("y", "y", milp.Continuous, 0, 4)
	m.AddConstraint("sum", "sum", expr(term(x, 1), term(y, 1)), milp.Equal, 10)
	m.AddConstraint("cap", "cap", expr(term(x, 1)), milp.LessEqual, 8)

	lo, hi := initialBounds(m)
	s := newSimplex(m, lo, hi)
	require.Len(t, s.rows, 2)
	assert.Equal(t, -1, s.rows[0].slack)
	assert.Equal(t, 2, s.rows[1].slack)
	assert.Equal(t, 3, s.width)
}

func TestSimplex_WarmRestartMatchesColdSolve(t *testing.T) {
	m, items := knapsack()
	lo, hi := initialBounds(m)
	warm := newSimplex(m, lo, hi)
	require.Equal(t, lpSolved, warm.solve(context.Background(), lo, hi).status)

	for i := range items {
		for _, v := range []float64{0, 1} {
			nlo, nhi := clone(lo), clone(hi)
			nlo[items[i]], nhi[items[i]] = v, v

			got := warm.solve(context.Background(), nlo, nhi)
			want := newSimplex(m, lo, hi).solve(context.Background(), nlo, nhi)
			require.Equal(t, want.status, got.status, "item %d at %g", i, v)
			assert.InDelta(t, want.objective, got.objective, 1e-6, "item %d at %g", i, v)
			assert.Empty(t, rowViolations(m, got.x))
		}
	}
}

// rowViolations ignores integrality, which a relaxation need not meet
func rowViolations(m *milp.Model, x []float64) []milp.Violation {
	var out []milp.Violation
	for _, v := range m.Violations(x, 1e-6) {
		if !strings.HasPrefix(v.Constraint, "integer(") {
			out = append(out, v)
		}
	}
	return out
}

func TestSimplex_RedundantEqualities(t *testing.T) {
	// balanced transportation problem: one supply or demand row is implied
	m := milp.NewModel("transport")
	supply := []float64{20, 30}
	demand := []float64{10, 25, 15}
	cost := [][]float64{{2, 4, 5}, {3, 1, 7}}
	ship := make([][]milp.VarID, len(supply))
	for s := range supply {
		ship[s] = make([]milp.VarID, len(demand))
		for d := range demand {
			ship[s][d] = m.AddVar("ship", "ship", milp.Continuous, 0, math.Inf(1))
			m.AddCost("transport", ship[s][d], cost[s][d])
		}
	}
	for s := range supply {
		e := milp.NewExpr()
		for d := range demand {
			e.Add(ship[s][d], 1)
		}
		m.AddConstraint("supply", "supply", e, milp.Equal, supply[s])
	}
	for d := range demand {
		e := milp.NewExpr()
		for s := range supply {
			e.Add(ship[s][d], 1)
		}
		m.AddConstraint("demand", "demand", e, milp.Equal, demand[d])
	}

	r := Solve(context.Background(), m, exact())
	require.Equal(t, milp.StatusOptimal, r.Status, r.Message)
	assert.InDelta(t, 125, r.Objective, 1e-6)
	assert.InDelta(t, 25, r.Values[ship[1][1]], 1e-6)
	assert.InDelta(t, 15, r.Values[ship[0][2]], 1e-6)
	assert.Empty(t, m.Violations(r.Values, 1e-6))
}

func TestSimplex_CancelledInsideRelaxation(t *testing.T) {
	m, _ := knapsack()
	lo, hi := initialBounds(m)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := newSimplex(m, lo, hi).solve(ctx, lo, hi)
	assert.Equal(t, lpInterrupted, out.status)
	assert.ErrorIs(t, out.err, context.Canceled)

	r := Solve(ctx, m, Options{Solver: RelaxationSolver})
	assert.Equal(t, milp.StatusTimedOut, r.Status)
}

func TestRelativeGap(t *testing.T) {
	assert.Equal(t, 0.0, relativeGap(10, 10))
	assert.InDelta(t, 0.1, relativeGap(10, 9), 1e-12)
	assert.InDelta(t, 0.5, relativeGap(0.5, 0), 1e-12)
	assert.True(t, math.IsInf(relativeGap(10, math.Inf(-1)), 1))
}
