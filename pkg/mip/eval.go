package mip

import (
	"fmt"
	"math"
)

// Assignment maps variables to numeric values.
type Assignment map[Var]float64

// Values reads the assigned values of an array in row-major order.
// Unassigned elements are reported as an error.
func (a Assignment) Values(arr *VarArray) ([]float64, error) {
	out := make([]float64, 0, arr.shape.Size())
	for _, idx := range arr.shape.Indices() {
		v, ok := a[arr.At(idx...)]
		if !ok {
			return nil, fmt.Errorf("mip: %s[%v] has no assigned value", arr.name, idx)
		}
		out = append(out, v)
	}
	return out, nil
}

// Propagate extends the assignment to a fixed point by running every
// constraint as a value-propagation rule: a linear equality whose
// right-hand side is fully known determines its left-hand variable,
// max and exp relations with known operands determine their result,
// and a bilinear equality solves for whichever side is unknown. It
// returns an error on a detected inconsistency (a bilinear equality
// with a zero known factor and nonzero constant).
//
// The constraint sets emitted by the neuralnet encoders are triangular
// in this sense, so fixing a model's input variables and propagating
// yields the unique satisfying assignment.
func (m *Store) Propagate(a Assignment) error {
	for changed := true; changed; {
		changed = false
		for _, c := range m.lin {
			if _, ok := a[c.lhs]; ok {
				continue
			}
			val, ok := evalExpr(a, c.rhs)
			if !ok {
				continue
			}
			a[c.lhs] = val
			changed = true
		}
		for _, g := range m.gen {
			ok, err := m.propagateGen(a, g)
			if err != nil {
				return err
			}
			changed = changed || ok
		}
	}
	return nil
}

func (m *Store) propagateGen(a Assignment, g genConstr) (bool, error) {
	_, haveResult := a[g.result]
	switch g.kind {
	case MaxConst:
		if haveResult {
			return false, nil
		}
		best := g.constant
		for _, op := range g.operands {
			v, ok := a[op]
			if !ok {
				return false, nil
			}
			best = math.Max(best, v)
		}
		a[g.result] = best
		return true, nil
	case Exp:
		if haveResult {
			return false, nil
		}
		v, ok := a[g.operands[0]]
		if !ok {
			return false, nil
		}
		a[g.result] = math.Exp(v)
		return true, nil
	case BilinearEqConst:
		x, haveOp := a[g.operands[0]]
		y, haveRes := a[g.result]
		switch {
		case haveOp && !haveRes:
			if x == 0 {
				if g.constant != 0 {
					return false, fmt.Errorf("mip: constraint %s is inconsistent: 0 * %s == %g",
						g.name, m.vars[g.result.id].name, g.constant)
				}
				return false, nil
			}
			a[g.result] = g.constant / x
			return true, nil
		case haveRes && !haveOp:
			if y == 0 {
				if g.constant != 0 {
					return false, fmt.Errorf("mip: constraint %s is inconsistent: %s * 0 == %g",
						g.name, m.vars[g.operands[0].id].name, g.constant)
				}
				return false, nil
			}
			a[g.operands[0]] = g.constant / y
			return true, nil
		default:
			return false, nil
		}
	default:
		return false, fmt.Errorf("%w: %s", ErrUnsupportedRelation, g.kind)
	}
}

// Check verifies that the assignment satisfies every constraint and
// every variable bound within the given absolute tolerance. Every
// variable referenced by a constraint must be assigned. The first
// violation is reported by name.
func (m *Store) Check(a Assignment, tol float64) error {
	for i, v := range m.vars {
		val, ok := a[Var{id: i}]
		if !ok {
			continue
		}
		if val < v.lb-tol || val > v.ub+tol {
			return fmt.Errorf("mip: %s == %g violates bounds [%s, %s]", v.name, val, fmtBound(v.lb), fmtBound(v.ub))
		}
	}
	for _, c := range m.lin {
		y, ok := a[c.lhs]
		if !ok {
			return fmt.Errorf("mip: constraint %s references unassigned %s", c.name, m.vars[c.lhs.id].name)
		}
		rhs, ok := evalExpr(a, c.rhs)
		if !ok {
			return fmt.Errorf("mip: constraint %s has unassigned right-hand side", c.name)
		}
		if math.Abs(y-rhs) > tol {
			return fmt.Errorf("mip: constraint %s violated: %g != %g", c.name, y, rhs)
		}
	}
	for _, g := range m.gen {
		if err := m.checkGen(a, g, tol); err != nil {
			return err
		}
	}
	return nil
}

func (m *Store) checkGen(a Assignment, g genConstr, tol float64) error {
	y, ok := a[g.result]
	if !ok {
		return fmt.Errorf("mip: constraint %s references unassigned %s", g.name, m.vars[g.result.id].name)
	}
	ops := make([]float64, len(g.operands))
	for i, op := range g.operands {
		v, opOK := a[op]
		if !opOK {
			return fmt.Errorf("mip: constraint %s references unassigned %s", g.name, m.vars[op.id].name)
		}
		ops[i] = v
	}
	var want float64
	switch g.kind {
	case MaxConst:
		want = g.constant
		for _, v := range ops {
			want = math.Max(want, v)
		}
	case Exp:
		want = math.Exp(ops[0])
	case BilinearEqConst:
		if math.Abs(y*ops[0]-g.constant) > tol {
			return fmt.Errorf("mip: constraint %s violated: %g * %g != %g", g.name, y, ops[0], g.constant)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedRelation, g.kind)
	}
	if math.Abs(y-want) > tol {
		return fmt.Errorf("mip: constraint %s violated: %g != %g", g.name, y, want)
	}
	return nil
}

func evalExpr(a Assignment, e LinExpr) (float64, bool) {
	val := e.Offset
	for _, t := range e.Terms {
		v, ok := a[t.X]
		if !ok {
			return 0, false
		}
		val += t.Coef * v
	}
	return val, true
}
