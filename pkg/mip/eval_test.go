package mip

import (
	"math"
	"testing"
)

// buildSigmoidChain emits the decomposed sigmoid relation over a
// single element: neg == -x, e == exp(neg), s == 1 + e, y*s == 1.
func buildSigmoidChain(t *testing.T) (*Store, *VarArray, *VarArray) {
	t.Helper()
	m := NewStore()
	x, _ := m.AddVarArray(Shape{1}, -Infinity, Infinity, "x")
	neg, _ := m.AddVarArray(Shape{1}, -Infinity, Infinity, "neg")
	e, _ := m.AddVarArray(Shape{1}, -Infinity, Infinity, "e")
	s, _ := m.AddVarArray(Shape{1}, -Infinity, Infinity, "s")
	y, _ := m.AddVarArray(Shape{1}, 0, 1, "y")
	if err := m.Update(); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	err := m.AddLinearEq(neg, func(idx []int) LinExpr {
		return LinExpr{Terms: []Term{{X: x.At(idx...), Coef: -1}}}
	}, ElemNamer("c_neg"))
	if err != nil {
		t.Fatalf("AddLinearEq failed: %v", err)
	}
	if err := m.AddGenConstr(Exp, e, []*VarArray{neg}, 0, ElemNamer("c_exp")); err != nil {
		t.Fatalf("AddGenConstr exp failed: %v", err)
	}
	err = m.AddLinearEq(s, func(idx []int) LinExpr {
		return LinExpr{Terms: []Term{{X: e.At(idx...), Coef: 1}}, Offset: 1}
	}, ElemNamer("c_shift"))
	if err != nil {
		t.Fatalf("AddLinearEq failed: %v", err)
	}
	if err := m.AddGenConstr(BilinearEqConst, y, []*VarArray{s}, 1, ElemNamer("c_recip")); err != nil {
		t.Fatalf("AddGenConstr bilinear failed: %v", err)
	}
	return m, x, y
}

func TestPropagateSigmoidChain(t *testing.T) {
	tests := []struct {
		name string
		x    float64
		want float64
	}{
		{"zero", 0, 0.5},
		{"one", 1, 1 / (1 + math.Exp(-1))},
		{"negative", -3, 1 / (1 + math.Exp(3))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, x, y := buildSigmoidChain(t)
			a := Assignment{x.At(0): tt.x}
			if err := m.Propagate(a); err != nil {
				t.Fatalf("Propagate failed: %v", err)
			}
			got, ok := a[y.At(0)]
			if !ok {
				t.Fatal("propagation did not reach y")
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("y = %g, want %g", got, tt.want)
			}
			if err := m.Check(a, 1e-9); err != nil {
				t.Errorf("Check failed on propagated assignment: %v", err)
			}
		})
	}
}

func TestPropagateMax(t *testing.T) {
	m := NewStore()
	x, _ := m.AddVarArray(Shape{3}, -Infinity, Infinity, "x")
	y, _ := m.AddVarArray(Shape{3}, -Infinity, Infinity, "y")
	if err := m.Update(); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := m.AddGenConstr(MaxConst, y, []*VarArray{x}, 0, ElemNamer("c")); err != nil {
		t.Fatalf("AddGenConstr failed: %v", err)
	}

	a := Assignment{x.At(0): -2, x.At(1): 0, x.At(2): 3}
	if err := m.Propagate(a); err != nil {
		t.Fatalf("Propagate failed: %v", err)
	}
	want := []float64{0, 0, 3}
	for i, w := range want {
		if got := a[y.At(i)]; got != w {
			t.Errorf("y[%d] = %g, want %g", i, got, w)
		}
	}
}

func TestPropagateBilinearBackward(t *testing.T) {
	// y known, operand unknown: y*s == 2 with y == 4 forces s == 0.5.
	m := NewStore()
	s, _ := m.AddVarArray(Shape{1}, -Infinity, Infinity, "s")
	y, _ := m.AddVarArray(Shape{1}, -Infinity, Infinity, "y")
	if err := m.Update(); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := m.AddGenConstr(BilinearEqConst, y, []*VarArray{s}, 2, ElemNamer("c")); err != nil {
		t.Fatalf("AddGenConstr failed: %v", err)
	}

	a := Assignment{y.At(0): 4}
	if err := m.Propagate(a); err != nil {
		t.Fatalf("Propagate failed: %v", err)
	}
	if got := a[s.At(0)]; got != 0.5 {
		t.Errorf("s = %g, want 0.5", got)
	}
}

func TestPropagateInconsistentBilinear(t *testing.T) {
	m := NewStore()
	s, _ := m.AddVarArray(Shape{1}, -Infinity, Infinity, "s")
	y, _ := m.AddVarArray(Shape{1}, -Infinity, Infinity, "y")
	if err := m.Update(); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := m.AddGenConstr(BilinearEqConst, y, []*VarArray{s}, 1, ElemNamer("c")); err != nil {
		t.Fatalf("AddGenConstr failed: %v", err)
	}

	a := Assignment{s.At(0): 0}
	if err := m.Propagate(a); err == nil {
		t.Error("expected inconsistency error for 0 * y == 1")
	}
}

func TestCheckViolations(t *testing.T) {
	m := NewStore()
	x, _ := m.AddVarArray(Shape{1}, 0, 1, "x")
	y, _ := m.AddVarArray(Shape{1}, -Infinity, Infinity, "y")
	if err := m.Update(); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	err := m.AddLinearEq(y, func(idx []int) LinExpr {
		return LinExpr{Terms: []Term{{X: x.At(idx...), Coef: 2}}}
	}, ElemNamer("c"))
	if err != nil {
		t.Fatalf("AddLinearEq failed: %v", err)
	}

	if err := m.Check(Assignment{x.At(0): 0.5, y.At(0): 1}, 1e-9); err != nil {
		t.Errorf("Check failed on satisfying assignment: %v", err)
	}
	if err := m.Check(Assignment{x.At(0): 0.5, y.At(0): 2}, 1e-9); err == nil {
		t.Error("expected violation for y != 2x")
	}
	if err := m.Check(Assignment{x.At(0): 3, y.At(0): 6}, 1e-9); err == nil {
		t.Error("expected bound violation for x > 1")
	}
	if err := m.Check(Assignment{x.At(0): 0.5}, 1e-9); err == nil {
		t.Error("expected error for unassigned constraint variable")
	}
}

func TestAssignmentValues(t *testing.T) {
	m := NewStore()
	x, _ := m.AddVarArray(Shape{2, 2}, -Infinity, Infinity, "x")
	a := Assignment{}
	for i, idx := range x.Shape().Indices() {
		a[x.At(idx...)] = float64(i)
	}
	vals, err := a.Values(x)
	if err != nil {
		t.Fatalf("Values failed: %v", err)
	}
	for i, v := range vals {
		if v != float64(i) {
			t.Errorf("vals[%d] = %g, want %d", i, v, i)
		}
	}

	delete(a, x.At(1, 1))
	if _, err := a.Values(x); err == nil {
		t.Error("expected error for unassigned element")
	}
}
