package milp

import "sort"

// Expr is a linear expression under construction
type Expr struct {
	Terms    []Term
	Constant float64
}

// NewExpr starts an expression with the given terms
func NewExpr(terms ...Term) Expr {
	return Expr{Terms: terms}
}

// Add appends coef × v
func (e *Expr) Add(v VarID, coef float64) *Expr {
	e.Terms = append(e.Terms, Term{Var: v, Coef: coef})
	return e
}

// AddConstant adds a constant
func (e *Expr) AddConstant(c float64) *Expr {
	e.Constant += c
	return e
}

// AddExpr appends scale × other
func (e *Expr) AddExpr(other Expr, scale float64) *Expr {
	for _, t := range other.Terms {
		e.Terms = append(e.Terms, Term{Var: t.Var, Coef: t.Coef * scale})
	}
	e.Constant += other.Constant * scale
	return e
}

// Empty reports whether the expression has no variable terms
func (e Expr) Empty() bool {
	return len(e.Terms) == 0
}

// merged returns the terms with duplicates summed and zeros dropped, in
// variable order
func (e Expr) merged() []Term {
	if len(e.Terms) == 0 {
		return nil
	}
	sums := make(map[VarID]float64, len(e.Terms))
	for _, t := range e.Terms {
		sums[t.Var] += t.Coef
	}
	out := make([]Term, 0, len(sums))
	for v, c := range sums {
		if c != 0 {
			out = append(out, Term{Var: v, Coef: c})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Var < out[j].Var })
	return out
}
