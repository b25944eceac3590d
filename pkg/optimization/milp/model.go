// Package milp holds an arena-indexed mixed-integer linear program: variables
// and constraints are addressed by dense integer handles, never by name.
package milp

import (
	"fmt"
	"math"
	"sort"
)

// VarID is a stable handle into a Model's variable arena
type VarID int32

// VarKind is the domain of a variable
type VarKind uint8

const (
	Continuous VarKind = iota
	Integer
	Binary
)

func (k VarKind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Integer:
		return "integer"
	case Binary:
		return "binary"
	default:
		return "unknown"
	}
}

// Sense is the relation of a constraint
type Sense uint8

const (
	LessEqual Sense = iota
	GreaterEqual
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEqual:
		return "<="
	case GreaterEqual:
		return ">="
	default:
		return "="
	}
}

// Variable is one column of the program
type Variable struct {
	Name   string
	Family string
	Kind   VarKind
	Lower  float64
	Upper  float64 // math.Inf(1) when unbounded
}

// IsInteger reports whether the variable must take an integral value
func (v Variable) IsInteger() bool {
	return v.Kind != Continuous
}

// Term is coefficient × variable
type Term struct {
	Var  VarID
	Coef float64
}

// Constraint is one row of the program
type Constraint struct {
	Name   string
	Family string
	Terms  []Term
	Sense  Sense
	RHS    float64
}

// Model is a minimisation MILP owned by a single planning run
type Model struct {
	Name string

	vars        []Variable
	constraints []Constraint

	objective         []float64 // indexed by VarID
	objectiveConstant float64
	categories        map[string][]Term
	categoryOrder     []string
	categoryConstants map[string]float64
}

// NewModel creates an empty model
func NewModel(name string) *Model {
	return &Model{
		Name:              name,
		categories:        make(map[string][]Term),
		categoryConstants: make(map[string]float64),
	}
}

// AddVar appends a variable and returns its handle. Binary variables are
// clamped to [0, 1].
func (m *Model) AddVar(family, name string, kind VarKind, lower, upper float64) VarID {
	if kind == Binary {
		lower = math.Max(lower, 0)
		upper = math.Min(upper, 1)
	}
	m.vars = append(m.vars, Variable{Name: name, Family: family, Kind: kind, Lower: lower, Upper: upper})
	m.objective = append(m.objective, 0)
	return VarID(len(m.vars) - 1)
}

// AddConstraint appends a row built from an expression. The expression's
// constant is moved to the right-hand side. Terms with the same variable
// are merged.
func (m *Model) AddConstraint(family, name string, lhs Expr, sense Sense, rhs float64) int {
	m.constraints = append(m.constraints, Constraint{
		Name:   name,
		Family: family,
		Terms:  lhs.merged(),
		Sense:  sense,
		RHS:    rhs - lhs.Constant,
	})
	return len(m.constraints) - 1
}

// AddCost adds coef × v to the objective under a cost category
func (m *Model) AddCost(category string, v VarID, coef float64) {
	if coef == 0 {
		return
	}
	if _, ok := m.categories[category]; !ok {
		m.categoryOrder = append(m.categoryOrder, category)
	}
	m.objective[v] += coef
	m.categories[category] = append(m.categories[category], Term{Var: v, Coef: coef})
}

// AddCostConstant adds a constant amount to the objective under a category
func (m *Model) AddCostConstant(category string, amount float64) {
	if amount == 0 {
		return
	}
	if _, ok := m.categories[category]; !ok {
		m.categoryOrder = append(m.categoryOrder, category)
		m.categories[category] = nil
	}
	m.objectiveConstant += amount
	m.categoryConstants[category] += amount
}

// NumVars returns the number of variables
func (m *Model) NumVars() int { return len(m.vars) }

// NumConstraints returns the number of constraints
func (m *Model) NumConstraints() int { return len(m.constraints) }

// Var returns the variable behind a handle
func (m *Model) Var(id VarID) Variable { return m.vars[id] }

// Vars returns the variable arena; callers must not modify it
func (m *Model) Vars() []Variable { return m.vars }

// Constraints returns the constraint arena; callers must not modify it
func (m *Model) Constraints() []Constraint { return m.constraints }

// ObjectiveCoefficients returns the dense cost vector
func (m *Model) ObjectiveCoefficients() []float64 { return m.objective }

// ObjectiveConstant returns the constant part of the objective
func (m *Model) ObjectiveConstant() float64 { return m.objectiveConstant }

// Categories returns the cost categories in insertion order
func (m *Model) Categories() []string { return m.categoryOrder }

// Evaluate returns the objective value of an assignment
func (m *Model) Evaluate(values []float64) float64 {
	total := m.objectiveConstant
	for i, c := range m.objective {
		if c != 0 {
			total += c * values[i]
		}
	}
	return total
}

// EvaluateCategory returns the part of the objective attributed to a category
func (m *Model) EvaluateCategory(category string, values []float64) float64 {
	total := m.categoryConstants[category]
	for _, t := range m.categories[category] {
		total += t.Coef * values[t.Var]
	}
	return total
}

// Violation describes an assignment breaking a row or a bound
type Violation struct {
	Constraint string
	Family     string
	Amount     float64
}

// Violations lists every row, bound and integrality requirement the
// assignment breaks by more than tol
func (m *Model) Violations(values []float64, tol float64) []Violation {
	var out []Violation
	for i, v := range m.vars {
		x := values[i]
		if x < v.Lower-tol {
			out = append(out, Violation{Constraint: "lower(" + v.Name + ")", Family: v.Family, Amount: v.Lower - x})
		}
		if x > v.Upper+tol {
			out = append(out, Violation{Constraint: "upper(" + v.Name + ")", Family: v.Family, Amount: x - v.Upper})
		}
		if v.IsInteger() && math.Abs(x-math.Round(x)) > tol {
			out = append(out, Violation{Constraint: "integer(" + v.Name + ")", Family: v.Family, Amount: math.Abs(x - math.Round(x))})
		}
	}
	for _, c := range m.constraints {
		lhs := 0.0
		for _, t := range c.Terms {
			lhs += t.Coef * values[t.Var]
		}
		var amount float64
		switch c.Sense {
		case LessEqual:
			amount = lhs - c.RHS
		case GreaterEqual:
			amount = c.RHS - lhs
		case Equal:
			amount = math.Abs(lhs - c.RHS)
		}
		if amount > tol {
			out = append(out, Violation{Constraint: c.Name, Family: c.Family, Amount: amount})
		}
	}
	return out
}

// FamilyStats summarises one variable or constraint family
type FamilyStats struct {
	Family      string
	Variables   int
	Integers    int
	Constraints int
	FirstVar    VarID // index range of the family's variables, -1 if none
	LastVar     VarID
}

func (f FamilyStats) String() string {
	if f.FirstVar < 0 {
		return fmt.Sprintf("%s(vars=0 rows=%d)", f.Family, f.Constraints)
	}
	return fmt.Sprintf("%s(vars=%d [%d..%d] ints=%d rows=%d)", f.Family, f.Variables, f.FirstVar, f.LastVar, f.Integers, f.Constraints)
}

// Families summarises the model by family, sorted by name
func (m *Model) Families() []FamilyStats {
	stats := make(map[string]*FamilyStats)
	get := func(name string) *FamilyStats {
		s, ok := stats[name]
		if !ok {
			s = &FamilyStats{Family: name, FirstVar: -1, LastVar: -1}
			stats[name] = s
		}
		return s
	}
	for i, v := range m.vars {
		s := get(v.Family)
		s.Variables++
		if v.IsInteger() {
			s.Integers++
		}
		if s.FirstVar < 0 {
			s.FirstVar = VarID(i)
		}
		s.LastVar = VarID(i)
	}
	for _, c := range m.constraints {
		get(c.Family).Constraints++
	}

	out := make([]FamilyStats, 0, len(stats))
	for _, s := range stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Family < out[j].Family })
	return out
}
