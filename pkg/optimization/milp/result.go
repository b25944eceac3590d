package milp

import "time"

// Status is the termination condition of a solve
type Status string

const (
	StatusOptimal    Status = "optimal"
	StatusFeasible   Status = "feasible"
	StatusInfeasible Status = "infeasible"
	StatusUnbounded  Status = "unbounded"
	StatusTimedOut   Status = "timed_out"
	StatusError      Status = "error"
)

// Result is the typed outcome of a solve. Values is indexed by VarID and is
// only populated when a feasible assignment was found.
type Result struct {
	Status    Status
	Objective float64
	BestBound float64
	Gap       float64
	Values    []float64
	SolveTime time.Duration
	Nodes     int
	Message   string
}

// HasSolution reports whether a variable assignment is available
func (r *Result) HasSolution() bool {
	return r != nil && len(r.Values) > 0
}

// Value returns the value of a variable, ok=false when no assignment exists
func (r *Result) Value(v VarID) (float64, bool) {
	if !r.HasSolution() || int(v) < 0 || int(v) >= len(r.Values) {
		return 0, false
	}
	return r.Values[v], true
}
