package solver

import (
	"context"
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/vsinha/distplan/pkg/optimization/milp"
)

const (
	boundTol = 1e-9
	feasTol  = 1e-7
	optTol   = 1e-7
	pivotTol = 1e-9

	// iterations between context checks inside one relaxation
	ctxEvery = 64
	// non-improving primal iterations before falling back to Bland's rule
	blandAfter = 50
)

type lpStatus uint8

const (
	lpSolved lpStatus = iota
	lpInfeasible
	lpUnbounded
	lpInterrupted
	lpFailed
)

var (
	errIterationLimit  = errors.New("simplex iteration limit reached")
	errNotDualFeasible = errors.New("basis is not dual feasible for the new bounds")
	errResidual        = errors.New("relaxation solution violates its rows")
	errLostBound       = errors.New("phase one lost its bound")
)

type lpOutcome struct {
	status    lpStatus
	objective float64
	x         []float64 // indexed by milp.VarID
	err       error
}

// position of a column relative to the basis
type position int8

const (
	basic position = iota
	atLower
	atUpper
	atZero // nonbasic free column
)

type varRole int8

const (
	roleColumn varRole = iota
	roleFixed          // fixed at the root, folded into the row constants
	roleLoose          // appears in no row
)

type lpTerm struct {
	col  int
	coef float64
}

// lpRow is Σ coef·x + slackSign·slack = rhs over the tableau columns.
// Equality rows have no slack.
type lpRow struct {
	terms     []lpTerm
	slack     int // column, -1 for equalities
	slackSign float64
	sense     milp.Sense
	rhs       float64
}

// simplex solves the continuous relaxation of a model with a bounded
// variable primal and dual simplex over a dense tableau. Variable bounds
// stay on the columns instead of becoming rows. Only inequalities get a
// slack column. Phase one artificials are implicit unit columns: once one
// leaves the basis it never re-enters, so its column is never stored.
//
// The tableau survives between solves. A later solve with different bounds
// restarts from the previous basis with the dual simplex, which is how
// branch and bound children are re-optimized after a bound change.
type simplex struct {
	model *milp.Model
	role  []varRole // per VarID
	colOf []int     // per VarID, -1 unless roleColumn
	fixed []float64 // per VarID, value of roleFixed variables

	cols       []int     // VarID per structural column
	cost       []float64 // per tableau column
	rows       []lpRow
	width      int // structural plus slack columns
	rhsScale   float64
	loose      []int
	unsolvable bool // a row without columns is violated at the root

	tab    *mat.Dense // rows × (width+1); the last column holds B⁻¹b
	basis  []int      // column per row, width+row marks the row's artificial
	pos    []position
	x      []float64 // nonbasic values per column
	lo, hi []float64 // per column bounds of the current solve
	beta   []float64 // basic values per row
	d      []float64 // reduced costs per column
	phase1 bool
	ready  bool // tableau holds a consistent basis to restart from
}

// newSimplex prepares the relaxation of m. lo/hi are the root bounds:
// variables they fix are folded into the row constants, so later solves
// may only tighten them.
func newSimplex(m *milp.Model, lo, hi []float64) *simplex {
	vars := m.Vars()
	objective := m.ObjectiveCoefficients()
	s := &simplex{
		model: m,
		role:  make([]varRole, len(vars)),
		colOf: make([]int, len(vars)),
		fixed: make([]float64, len(vars)),
	}

	used := make([]bool, len(vars))
	for _, c := range m.Constraints() {
		for _, t := range c.Terms {
			if t.Coef != 0 {
				used[t.Var] = true
			}
		}
	}
	for i := range vars {
		s.colOf[i] = -1
		switch {
		case math.Abs(hi[i]-lo[i]) <= boundTol:
			s.role[i] = roleFixed
			s.fixed[i] = lo[i]
		case !used[i]:
			s.role[i] = roleLoose
			s.loose = append(s.loose, i)
		default:
			s.role[i] = roleColumn
			s.colOf[i] = len(s.cols)
			s.cols = append(s.cols, i)
			s.cost = append(s.cost, objective[i])
		}
	}

	slack := len(s.cols)
	for _, c := range m.Constraints() {
		r := lpRow{slack: -1, sense: c.Sense, rhs: c.RHS}
		for _, t := range c.Terms {
			if t.Coef == 0 {
				continue
			}
			if j := s.colOf[t.Var]; j >= 0 {
				r.terms = append(r.terms, lpTerm{col: j, coef: t.Coef})
			} else {
				r.rhs -= t.Coef * s.fixed[t.Var]
			}
		}
		if len(r.terms) == 0 {
			if !constantRowHolds(c.Sense, r.rhs) {
				s.unsolvable = true
			}
			continue
		}
		switch c.Sense {
		case milp.LessEqual:
			r.slack, r.slackSign = slack, 1
			slack++
		case milp.GreaterEqual:
			r.slack, r.slackSign = slack, -1
			slack++
		}
		s.rhsScale = math.Max(s.rhsScale, math.Abs(r.rhs))
		s.rows = append(s.rows, r)
	}

	s.width = slack
	for len(s.cost) < s.width {
		s.cost = append(s.cost, 0)
	}
	s.lo = make([]float64, s.width)
	s.hi = make([]float64, s.width)
	s.pos = make([]position, s.width)
	s.x = make([]float64, s.width)
	s.d = make([]float64, s.width)
	s.basis = make([]int, len(s.rows))
	s.beta = make([]float64, len(s.rows))
	return s
}

// solve optimizes the relaxation under the bounds lo/hi, indexed by VarID
func (s *simplex) solve(ctx context.Context, lo, hi []float64) lpOutcome {
	if s.unsolvable {
		return lpOutcome{status: lpInfeasible}
	}
	for i := range lo {
		if hi[i] < lo[i]-boundTol {
			return lpOutcome{status: lpInfeasible}
		}
	}

	x := make([]float64, len(lo))
	objective := s.model.ObjectiveCoefficients()
	for _, i := range s.loose {
		switch c := objective[i]; {
		case c < -boundTol && math.IsInf(hi[i], 1), c > boundTol && math.IsInf(lo[i], -1):
			return lpOutcome{status: lpUnbounded}
		case c < -boundTol:
			x[i] = hi[i]
		case !math.IsInf(lo[i], -1):
			x[i] = lo[i]
		case !math.IsInf(hi[i], 1):
			x[i] = hi[i]
		}
	}
	for i, r := range s.role {
		if r == roleFixed {
			x[i] = s.fixed[i]
		}
	}
	if len(s.rows) == 0 {
		return lpOutcome{status: lpSolved, objective: s.model.Evaluate(x), x: x}
	}

	for j, v := range s.cols {
		s.lo[j], s.hi[j] = lo[v], hi[v]
	}
	for j := len(s.cols); j < s.width; j++ {
		s.lo[j], s.hi[j] = 0, math.Inf(1)
	}

	warm := s.ready
	status, err := lpFailed, errNotDualFeasible
	if warm {
		status, err = s.warm(ctx)
	}
	if status == lpFailed {
		warm = false
		status, err = s.cold(ctx)
	}
	s.ready = status != lpFailed
	if status != lpSolved {
		return lpOutcome{status: status, err: err}
	}

	s.values(x)
	if !s.residualsHold(x) {
		if !warm {
			s.ready = false
			return lpOutcome{status: lpFailed, err: errResidual}
		}
		if status, err = s.cold(ctx); status != lpSolved {
			s.ready = status != lpFailed
			return lpOutcome{status: status, err: err}
		}
		s.values(x)
		if !s.residualsHold(x) {
			s.ready = false
			return lpOutcome{status: lpFailed, err: errResidual}
		}
	}
	for _, v := range s.cols {
		x[v] = math.Min(math.Max(x[v], lo[v]), hi[v])
	}
	return lpOutcome{status: lpSolved, objective: s.model.Evaluate(x), x: x}
}

// cold builds the tableau from the slack and artificial basis and runs
// both phases
func (s *simplex) cold(ctx context.Context) (lpStatus, error) {
	s.reset()
	if s.infeasibility() > 0 {
		s.phase1 = true
		s.phaseOneCosts()
		status, err := s.primal(ctx)
		switch status {
		case lpSolved:
		case lpUnbounded:
			return lpFailed, errLostBound
		default:
			return status, err
		}
		if s.infeasibility() > feasTol*math.Max(1, s.rhsScale) {
			s.phase1 = false
			return lpInfeasible, nil
		}
	}
	s.phase1 = false
	s.phaseTwoCosts()
	return s.primal(ctx)
}

// warm restarts from the previous basis: nonbasic columns move to the
// bound their reduced cost prefers, the dual simplex restores primal
// feasibility and a primal pass cleans up
func (s *simplex) warm(ctx context.Context) (lpStatus, error) {
	s.phase1 = false
	s.phaseTwoCosts()
	for j := 0; j < s.width; j++ {
		if s.pos[j] == basic {
			continue
		}
		lo, hi := s.lo[j], s.hi[j]
		loOK, hiOK := !math.IsInf(lo, -1), !math.IsInf(hi, 1)
		switch {
		case hi-lo <= boundTol:
			s.pos[j], s.x[j] = atLower, lo
		case s.d[j] > optTol && loOK:
			s.pos[j], s.x[j] = atLower, lo
		case s.d[j] < -optTol && hiOK:
			s.pos[j], s.x[j] = atUpper, hi
		case math.Abs(s.d[j]) <= optTol && loOK:
			s.pos[j], s.x[j] = atLower, lo
		case math.Abs(s.d[j]) <= optTol && hiOK:
			s.pos[j], s.x[j] = atUpper, hi
		case math.Abs(s.d[j]) <= optTol:
			s.pos[j], s.x[j] = atZero, 0
		default:
			return lpFailed, errNotDualFeasible
		}
	}
	s.refreshBasics()

	status, err := s.dual(ctx)
	if status != lpSolved {
		return status, err
	}
	status, err = s.primal(ctx)
	if status == lpUnbounded {
		// a bounded parent cannot have an unbounded child
		return lpFailed, errLostBound
	}
	return status, err
}

// reset lays out the starting tableau. Nonbasic structurals sit on a
// finite bound. A row whose slack can absorb the residual keeps the slack
// basic; every other row starts on its artificial.
func (s *simplex) reset() {
	if s.tab == nil {
		s.tab = mat.NewDense(len(s.rows), s.width+1, nil)
	} else {
		s.tab.Zero()
	}
	for j := 0; j < s.width; j++ {
		lo, hi := s.lo[j], s.hi[j]
		switch {
		case !math.IsInf(lo, -1):
			s.pos[j], s.x[j] = atLower, lo
		case !math.IsInf(hi, 1):
			s.pos[j], s.x[j] = atUpper, hi
		default:
			s.pos[j], s.x[j] = atZero, 0
		}
	}

	for i, r := range s.rows {
		residual := r.rhs
		for _, t := range r.terms {
			residual -= t.coef * s.x[t.col]
		}
		sign := 1.0
		switch {
		case r.slack >= 0 && residual*r.slackSign >= 0:
			sign = r.slackSign
			s.basis[i] = r.slack
			s.pos[r.slack] = basic
		case residual < 0:
			sign = -1
			s.basis[i] = s.width + i
		default:
			s.basis[i] = s.width + i
		}

		row := s.tab.RawRowView(i)
		for _, t := range r.terms {
			row[t.col] += sign * t.coef
		}
		if r.slack >= 0 {
			row[r.slack] = sign * r.slackSign
		}
		row[s.width] = sign * r.rhs
		s.beta[i] = sign * residual
	}
}

// basicBounds returns the bounds of the variable basic in row i
func (s *simplex) basicBounds(i int) (float64, float64) {
	b := s.basis[i]
	if b < s.width {
		return s.lo[b], s.hi[b]
	}
	if s.phase1 {
		return 0, math.Inf(1)
	}
	return 0, 0
}

// infeasibility is the total value of the artificials still in the basis
func (s *simplex) infeasibility() float64 {
	sum := 0.0
	for i, b := range s.basis {
		if b >= s.width {
			sum += math.Max(s.beta[i], 0)
		}
	}
	return sum
}

func (s *simplex) phaseOneCosts() {
	for j := range s.d {
		s.d[j] = 0
	}
	for i, b := range s.basis {
		if b >= s.width {
			floats.AddScaled(s.d, -1, s.tab.RawRowView(i)[:s.width])
		}
	}
	s.clearBasicCosts()
}

func (s *simplex) phaseTwoCosts() {
	copy(s.d, s.cost)
	for i, b := range s.basis {
		if b < s.width && s.cost[b] != 0 {
			floats.AddScaled(s.d, -s.cost[b], s.tab.RawRowView(i)[:s.width])
		}
	}
	s.clearBasicCosts()
}

func (s *simplex) clearBasicCosts() {
	for _, b := range s.basis {
		if b < s.width {
			s.d[b] = 0
		}
	}
}

// refreshBasics recomputes the basic values from B⁻¹b and the nonbasic
// values, discarding drift from incremental updates
func (s *simplex) refreshBasics() {
	var moved []int
	for j := 0; j < s.width; j++ {
		if s.pos[j] != basic && s.x[j] != 0 {
			moved = append(moved, j)
		}
	}
	for i := range s.rows {
		row := s.tab.RawRowView(i)
		v := row[s.width]
		for _, j := range moved {
			v -= row[j] * s.x[j]
		}
		s.beta[i] = v
	}
}

func (s *simplex) maxIterations() int {
	return 50*(len(s.rows)+s.width) + 1000
}

// primal runs the bounded primal simplex from a primal feasible basis
// against the reduced costs in s.d
func (s *simplex) primal(ctx context.Context) (lpStatus, error) {
	stalled := 0
	for iter := 0; ; iter++ {
		if iter%ctxEvery == 0 {
			if err := ctx.Err(); err != nil {
				return lpInterrupted, err
			}
		}
		if iter >= s.maxIterations() {
			return lpFailed, errIterationLimit
		}

		q, dir := s.price(stalled > blandAfter)
		if q < 0 {
			return lpSolved, nil
		}
		dq := s.d[q]
		r, step, flip := s.ratio(q, dir)
		switch {
		case flip:
			s.shift(q, dir*step)
			if dir > 0 {
				s.pos[q], s.x[q] = atUpper, s.hi[q]
			} else {
				s.pos[q], s.x[q] = atLower, s.lo[q]
			}
		case r < 0:
			return lpUnbounded, nil
		default:
			lo, hi := s.basicBounds(r)
			if dir*s.tab.At(r, q) > 0 {
				s.pivot(r, q, dir*step, atLower, lo)
			} else {
				s.pivot(r, q, dir*step, atUpper, hi)
			}
		}

		if step*math.Abs(dq) > optTol {
			stalled = 0
		} else {
			stalled++
		}
	}
}

// price picks the entering column: the largest reduced cost violation, or
// the lowest eligible index when bland is set. dir is +1 when the column
// increases.
func (s *simplex) price(bland bool) (int, float64) {
	q, dir, best := -1, 0.0, optTol
	for j := 0; j < s.width; j++ {
		var score, sign float64
		switch s.pos[j] {
		case atLower:
			score, sign = -s.d[j], 1
		case atUpper:
			score, sign = s.d[j], -1
		case atZero:
			score, sign = math.Abs(s.d[j]), -math.Copysign(1, s.d[j])
		default:
			continue
		}
		if score <= optTol || s.hi[j]-s.lo[j] <= boundTol {
			continue
		}
		if bland {
			return j, sign
		}
		if score > best {
			q, dir, best = j, sign, score
		}
	}
	return q, dir
}

// ratio finds how far column q can move in direction dir. Basic variables
// may overshoot their bounds by feasTol so that among near ties the row
// with the largest pivot element wins. flip reports that q reaches its own
// opposite bound first; r < 0 without a flip means the ray is unbounded.
func (s *simplex) ratio(q int, dir float64) (r int, step float64, flip bool) {
	data, stride := s.tab.RawMatrix().Data, s.tab.RawMatrix().Stride

	limit := math.Inf(1)
	for i := range s.rows {
		alpha := dir * data[i*stride+q]
		if math.Abs(alpha) <= pivotTol {
			continue
		}
		lo, hi := s.basicBounds(i)
		if alpha > 0 && !math.IsInf(lo, -1) {
			limit = math.Min(limit, (s.beta[i]-lo+feasTol)/alpha)
		} else if alpha < 0 && !math.IsInf(hi, 1) {
			limit = math.Min(limit, (hi-s.beta[i]+feasTol)/-alpha)
		}
	}

	span := s.hi[q] - s.lo[q]
	if span <= limit {
		return -1, span, !math.IsInf(span, 1)
	}

	r, best := -1, 0.0
	for i := range s.rows {
		alpha := dir * data[i*stride+q]
		if math.Abs(alpha) <= pivotTol {
			continue
		}
		lo, hi := s.basicBounds(i)
		var exact float64
		switch {
		case alpha > 0 && !math.IsInf(lo, -1):
			exact = (s.beta[i] - lo) / alpha
		case alpha < 0 && !math.IsInf(hi, 1):
			exact = (hi - s.beta[i]) / -alpha
		default:
			continue
		}
		if exact <= limit && math.Abs(alpha) > best {
			r, step, best = i, math.Max(exact, 0), math.Abs(alpha)
		}
	}
	return r, step, false
}

// dual runs the bounded dual simplex from a dual feasible basis until the
// basic values are within bounds
func (s *simplex) dual(ctx context.Context) (lpStatus, error) {
	data, stride := s.tab.RawMatrix().Data, s.tab.RawMatrix().Stride
	for iter := 0; ; iter++ {
		if iter%ctxEvery == 0 {
			if err := ctx.Err(); err != nil {
				return lpInterrupted, err
			}
		}
		if iter >= s.maxIterations() {
			return lpFailed, errIterationLimit
		}

		// leaving row: the largest bound violation
		r, target, worst := -1, 0.0, 0.0
		for i := range s.rows {
			lo, hi := s.basicBounds(i)
			if v := lo - s.beta[i]; v > feasTol*math.Max(1, math.Abs(lo)) && v > worst {
				r, target, worst = i, lo, v
			}
			if v := s.beta[i] - hi; v > feasTol*math.Max(1, math.Abs(hi)) && v > worst {
				r, target, worst = i, hi, v
			}
		}
		if r < 0 {
			return lpSolved, nil
		}
		up := s.beta[r] < target // the basic value must increase

		// entering column: the smallest dual ratio, largest pivot among near ties
		row := data[r*stride : r*stride+s.width]
		eligible := func(j int) (float64, bool) {
			if s.pos[j] == basic || s.hi[j]-s.lo[j] <= boundTol {
				return 0, false
			}
			a := row[j]
			if math.Abs(a) <= pivotTol {
				return 0, false
			}
			// x_B moves by -a per unit increase of column j
			if (a < 0) == up {
				return math.Abs(a), s.pos[j] != atUpper
			}
			return math.Abs(a), s.pos[j] != atLower
		}
		limit := math.Inf(1)
		for j := 0; j < s.width; j++ {
			if a, ok := eligible(j); ok {
				limit = math.Min(limit, (math.Abs(s.d[j])+optTol)/a)
			}
		}
		q, best := -1, 0.0
		for j := 0; j < s.width; j++ {
			if a, ok := eligible(j); ok && math.Abs(s.d[j])/a <= limit && a > best {
				q, best = j, a
			}
		}
		if q < 0 {
			return lpInfeasible, nil
		}

		step := (s.beta[r] - target) / row[q]
		leave := atUpper
		if up {
			leave = atLower
		}
		s.pivot(r, q, step, leave, target)
	}
}

// shift moves nonbasic column q by step and carries the basic values along
func (s *simplex) shift(q int, step float64) {
	if step == 0 {
		return
	}
	data, stride := s.tab.RawMatrix().Data, s.tab.RawMatrix().Stride
	for i := range s.beta {
		if a := data[i*stride+q]; a != 0 {
			s.beta[i] -= a * step
		}
	}
	s.x[q] += step
}

// pivot moves column q by step, brings it into the basis in row r and
// parks the leaving variable at value on the given side
func (s *simplex) pivot(r, q int, step float64, side position, value float64) {
	s.shift(q, step)
	if leave := s.basis[r]; leave < s.width {
		s.pos[leave], s.x[leave] = side, value
	}
	s.beta[r] = s.x[q]
	s.pos[q] = basic
	s.basis[r] = q

	pivotRow := s.tab.RawRowView(r)
	floats.Scale(1/pivotRow[q], pivotRow)
	pivotRow[q] = 1
	for i := range s.rows {
		if i == r {
			continue
		}
		row := s.tab.RawRowView(i)
		if a := row[q]; a != 0 {
			floats.AddScaled(row, -a, pivotRow)
			row[q] = 0
		}
	}
	if dq := s.d[q]; dq != 0 {
		floats.AddScaled(s.d, -dq, pivotRow[:s.width])
		s.d[q] = 0
	}
}

// values writes the structural solution into x, indexed by VarID
func (s *simplex) values(x []float64) {
	for j, v := range s.cols {
		x[v] = s.x[j]
	}
	for i, b := range s.basis {
		if b < len(s.cols) {
			x[s.cols[b]] = s.beta[i]
		}
	}
}

// residualsHold checks the solution against the original rows
func (s *simplex) residualsHold(x []float64) bool {
	for _, r := range s.rows {
		lhs := 0.0
		for _, t := range r.terms {
			lhs += t.coef * x[s.cols[t.col]]
		}
		tol := 1e-6 * math.Max(1, math.Abs(r.rhs))
		switch r.sense {
		case milp.LessEqual:
			if lhs > r.rhs+tol {
				return false
			}
		case milp.GreaterEqual:
			if lhs < r.rhs-tol {
				return false
			}
		default:
			if math.Abs(lhs-r.rhs) > tol {
				return false
			}
		}
	}
	return true
}

func constantRowHolds(sense milp.Sense, rhs float64) bool {
	const tol = 1e-7
	switch sense {
	case milp.LessEqual:
		return 0 <= rhs+tol
	case milp.GreaterEqual:
		return 0 >= rhs-tol
	default:
		return math.Abs(rhs) <= tol
	}
}

// initialBounds returns the model bounds with integer bounds tightened to
// whole numbers
func initialBounds(m *milp.Model) (lo, hi []float64) {
	vars := m.Vars()
	lo = make([]float64, len(vars))
	hi = make([]float64, len(vars))
	for i, v := range vars {
		lo[i], hi[i] = v.Lower, v.Upper
		if v.IsInteger() {
			lo[i] = math.Ceil(lo[i] - integralityTol)
			if !math.IsInf(hi[i], 1) {
				hi[i] = math.Floor(hi[i] + integralityTol)
			}
		}
	}
	return lo, hi
}
