package mip

import (
	"fmt"
	"io"
	"sort"
)

type varRecord struct {
	name      string
	lb, ub    float64
	committed bool
}

type linConstr struct {
	name string
	lhs  Var
	rhs  LinExpr
}

type genConstr struct {
	name     string
	kind     GenKind
	result   Var
	operands []Var
	constant float64
}

// Store is the in-memory Model implementation. It records variables
// and constraints verbatim, enforces name uniqueness and the
// pending/committed visibility rule, and can propagate and check
// numeric assignments (see eval.go). It performs no optimization.
//
// A Store is not safe for concurrent use; model construction is a
// single sequential pass.
type Store struct {
	vars   []varRecord
	arrays []*VarArray
	lin    []linConstr
	gen    []genConstr
	names  map[string]struct{}
}

// NewStore returns an empty model.
func NewStore() *Store {
	return &Store{names: make(map[string]struct{})}
}

func (m *Store) claimName(name string) error {
	if name == "" {
		return fmt.Errorf("mip: empty name")
	}
	if _, ok := m.names[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	m.names[name] = struct{}{}
	return nil
}

// ref validates that a variable exists and has been committed.
func (m *Store) ref(v Var) error {
	if v.id < 0 || v.id >= len(m.vars) {
		return fmt.Errorf("mip: variable id %d out of range", v.id)
	}
	if !m.vars[v.id].committed {
		return fmt.Errorf("%w: %s", ErrUncommittedVar, m.vars[v.id].name)
	}
	return nil
}

// AddVarArray implements Model.
func (m *Store) AddVarArray(shape Shape, lb, ub float64, name string) (*VarArray, error) {
	if !shape.valid() {
		return nil, fmt.Errorf("mip: invalid shape %v for array %q", []int(shape), name)
	}
	if lb > ub {
		return nil, fmt.Errorf("mip: bounds [%g, %g] reversed for array %q", lb, ub, name)
	}
	if name == "" {
		return nil, fmt.Errorf("mip: empty name")
	}
	// Element names are claimed alongside the array name so that no
	// later constraint can shadow a variable.
	elem := ElemNamer(name)
	indices := shape.Indices()
	names := make([]string, 0, len(indices)+1)
	names = append(names, name)
	for _, idx := range indices {
		names = append(names, elem(idx))
	}
	for _, n := range names {
		if _, ok := m.names[n]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, n)
		}
	}
	for _, n := range names {
		m.names[n] = struct{}{}
	}
	base := len(m.vars)
	for _, idx := range indices {
		m.vars = append(m.vars, varRecord{name: elem(idx), lb: lb, ub: ub})
	}
	a := &VarArray{name: name, shape: append(Shape(nil), shape...), base: base}
	m.arrays = append(m.arrays, a)
	return a, nil
}

// Update implements Model.
func (m *Store) Update() error {
	for i := range m.vars {
		m.vars[i].committed = true
	}
	return nil
}

// AddLinearEq implements Model.
func (m *Store) AddLinearEq(lhs *VarArray, rhs func(idx []int) LinExpr, name Namer) error {
	for _, idx := range lhs.shape.Indices() {
		y := lhs.At(idx...)
		if err := m.ref(y); err != nil {
			return err
		}
		expr := rhs(idx)
		for _, t := range expr.Terms {
			if err := m.ref(t.X); err != nil {
				return err
			}
		}
		cname := name(idx)
		if err := m.claimName(cname); err != nil {
			return err
		}
		m.lin = append(m.lin, linConstr{name: cname, lhs: y, rhs: expr})
	}
	return nil
}

// AddGenConstr implements Model.
func (m *Store) AddGenConstr(kind GenKind, result *VarArray, operands []*VarArray, constant float64, name Namer) error {
	switch kind {
	case MaxConst:
		if len(operands) < 1 {
			return fmt.Errorf("mip: max relation needs at least one operand")
		}
	case Exp, BilinearEqConst:
		if len(operands) != 1 {
			return fmt.Errorf("mip: %s relation needs exactly one operand, got %d", kind, len(operands))
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedRelation, kind)
	}
	for _, op := range operands {
		if !op.shape.Equal(result.shape) {
			return fmt.Errorf("mip: operand %q shape %v does not match result %q shape %v",
				op.name, []int(op.shape), result.name, []int(result.shape))
		}
	}
	for _, idx := range result.shape.Indices() {
		y := result.At(idx...)
		if err := m.ref(y); err != nil {
			return err
		}
		ops := make([]Var, len(operands))
		for i, op := range operands {
			ops[i] = op.At(idx...)
			if err := m.ref(ops[i]); err != nil {
				return err
			}
		}
		cname := name(idx)
		if err := m.claimName(cname); err != nil {
			return err
		}
		m.gen = append(m.gen, genConstr{name: cname, kind: kind, result: y, operands: ops, constant: constant})
	}
	return nil
}

// SetBounds implements Model. Existing bounds are overwritten, not
// intersected.
func (m *Store) SetBounds(a *VarArray, lb, ub float64) error {
	if lb > ub {
		return fmt.Errorf("mip: bounds [%g, %g] reversed for array %q", lb, ub, a.name)
	}
	for _, idx := range a.shape.Indices() {
		v := a.At(idx...)
		if v.id < 0 || v.id >= len(m.vars) {
			return fmt.Errorf("mip: variable id %d out of range", v.id)
		}
		m.vars[v.id].lb = lb
		m.vars[v.id].ub = ub
	}
	return nil
}

// NumVars returns the total number of variables, pending included.
func (m *Store) NumVars() int { return len(m.vars) }

// NumConstrs returns the total number of constraints.
func (m *Store) NumConstrs() int { return len(m.lin) + len(m.gen) }

// Arrays returns every variable array in creation order.
func (m *Store) Arrays() []*VarArray {
	return append([]*VarArray(nil), m.arrays...)
}

// Bounds returns the current bounds of a single variable.
func (m *Store) Bounds(v Var) (lb, ub float64) {
	return m.vars[v.id].lb, m.vars[v.id].ub
}

// VarName returns the element name of a single variable.
func (m *Store) VarName(v Var) string { return m.vars[v.id].name }

// ConstrCounts returns the number of constraints per kind, keyed by
// "linear" and the GenKind names.
func (m *Store) ConstrCounts() map[string]int {
	counts := map[string]int{}
	if len(m.lin) > 0 {
		counts["linear"] = len(m.lin)
	}
	for _, g := range m.gen {
		counts[g.kind.String()]++
	}
	return counts
}

// Write dumps every variable and constraint in a readable text form,
// one per line, in creation order.
func (m *Store) Write(w io.Writer) {
	for _, v := range m.vars {
		fmt.Fprintf(w, "var %s in [%s, %s]\n", v.name, fmtBound(v.lb), fmtBound(v.ub))
	}
	for _, c := range m.lin {
		fmt.Fprintf(w, "constr %s: %s == %s\n", c.name, m.vars[c.lhs.id].name, m.fmtExpr(c.rhs))
	}
	for _, g := range m.gen {
		fmt.Fprintf(w, "constr %s: %s\n", g.name, m.fmtGen(g))
	}
}

func (m *Store) fmtExpr(e LinExpr) string {
	s := ""
	for i, t := range e.Terms {
		if i > 0 {
			s += " + "
		}
		s += fmt.Sprintf("%g*%s", t.Coef, m.vars[t.X.id].name)
	}
	if e.Offset != 0 || len(e.Terms) == 0 {
		if s != "" {
			s += " + "
		}
		s += fmt.Sprintf("%g", e.Offset)
	}
	return s
}

func (m *Store) fmtGen(g genConstr) string {
	names := make([]string, len(g.operands))
	for i, op := range g.operands {
		names[i] = m.vars[op.id].name
	}
	y := m.vars[g.result.id].name
	switch g.kind {
	case MaxConst:
		return fmt.Sprintf("%s == max(%s, %g)", y, joinNames(names), g.constant)
	case Exp:
		return fmt.Sprintf("%s == exp(%s)", y, names[0])
	case BilinearEqConst:
		return fmt.Sprintf("%s * %s == %g", y, names[0], g.constant)
	default:
		return g.kind.String()
	}
}

func joinNames(names []string) string {
	sort.Strings(names)
	s := ""
	for i, n := range names {
		if i > 0 {
			s += ", "
		}
		s += n
	}
	return s
}

func fmtBound(b float64) string {
	switch {
	case b >= Infinity:
		return "inf"
	case b <= -Infinity:
		return "-inf"
	default:
		return fmt.Sprintf("%g", b)
	}
}
