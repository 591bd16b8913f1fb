// Package mip defines the constraint-model surface that the activation
// encoders in pkg/neuralnet write into, together with an in-memory
// reference implementation (Store) used for testing and inspection.
//
// A Model is a narrow facade over a mathematical-programming solver:
// it can create continuous variable arrays, add elementwise linear
// equalities, add elementwise generic relations (max-with-constant,
// exponential, bilinear equality), overwrite variable bounds, and
// commit pending additions. Newly created variables are not visible to
// constraints until Update has been called, mirroring the deferred
// update model of common solver APIs.
package mip

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Infinity is the sentinel for an unbounded variable bound. Use
// -Infinity for "unbounded below".
const Infinity = 1e100

// GenKind identifies a generic (non-linear) elementwise relation.
type GenKind int

const (
	// MaxConst relates result == max(operands..., constant).
	MaxConst GenKind = iota
	// Exp relates result == exp(operand); exactly one operand.
	Exp
	// BilinearEqConst relates result * operand == constant; exactly
	// one operand. This is a nonconvex equality and requires a
	// backend that accepts bilinear constraints.
	BilinearEqConst
)

func (k GenKind) String() string {
	switch k {
	case MaxConst:
		return "max"
	case Exp:
		return "exp"
	case BilinearEqConst:
		return "bilinear"
	default:
		return fmt.Sprintf("genkind(%d)", int(k))
	}
}

var (
	// ErrUnsupportedRelation reports a generic-relation kind the model
	// cannot express. There is no fallback encoding; callers surface it.
	ErrUnsupportedRelation = errors.New("mip: relation kind not supported by model")
	// ErrUncommittedVar reports a constraint referencing a variable
	// created after the last Update call.
	ErrUncommittedVar = errors.New("mip: variable referenced before Update")
	// ErrDuplicateName reports a variable or constraint name that is
	// already in use within the model.
	ErrDuplicateName = errors.New("mip: name already in use")
)

// Shape is the dimension tuple of a variable array. All dimensions are
// positive.
type Shape []int

// Size returns the number of elements the shape spans.
func (s Shape) Size() int {
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

// Equal reports whether two shapes have identical dimensions.
func (s Shape) Equal(o Shape) bool {
	if len(s) != len(o) {
		return false
	}
	for i, d := range s {
		if d != o[i] {
			return false
		}
	}
	return true
}

func (s Shape) valid() bool {
	if len(s) == 0 {
		return false
	}
	for _, d := range s {
		if d < 1 {
			return false
		}
	}
	return true
}

// Indices returns every index tuple of the shape in row-major order.
// The iteration is a plain odometer over the cartesian product of the
// dimensions; each returned slice is freshly allocated.
func (s Shape) Indices() [][]int {
	out := make([][]int, 0, s.Size())
	idx := make([]int, len(s))
	for {
		cur := make([]int, len(idx))
		copy(cur, idx)
		out = append(out, cur)

		d := len(idx) - 1
		for d >= 0 {
			idx[d]++
			if idx[d] < s[d] {
				break
			}
			idx[d] = 0
			d--
		}
		if d < 0 {
			return out
		}
	}
}

// offset converts an index tuple to a row-major element offset.
func (s Shape) offset(idx []int) int {
	if len(idx) != len(s) {
		panic(fmt.Sprintf("mip: index rank %d does not match shape rank %d", len(idx), len(s)))
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= s[i] {
			panic(fmt.Sprintf("mip: index %v out of range for shape %v", idx, []int(s)))
		}
		off = off*s[i] + v
	}
	return off
}

// Var is an opaque reference to a single model variable.
type Var struct {
	id int
}

// VarArray is a handle to a shaped block of model variables. Handles
// are created by a Model and borrowed by everything else.
type VarArray struct {
	name  string
	shape Shape
	base  int
}

// Name returns the name the array was created under.
func (a *VarArray) Name() string { return a.name }

// Shape returns the array's dimension tuple. The caller must not
// modify it.
func (a *VarArray) Shape() Shape { return a.shape }

// At returns the variable at the given index tuple. It panics on a
// rank mismatch or out-of-range index; indices always come from the
// array's own Shape in correct code.
func (a *VarArray) At(idx ...int) Var {
	return Var{id: a.base + a.shape.offset(idx)}
}

// Term is one coefficient-variable pair of a linear expression.
type Term struct {
	X    Var
	Coef float64
}

// LinExpr is an affine expression sum(Coef_i * X_i) + Offset.
type LinExpr struct {
	Terms  []Term
	Offset float64
}

// Namer produces a constraint name for one element index. Names must
// be unique within a model.
type Namer func(idx []int) string

// ElemNamer returns the per-element variable Namer: the base name
// followed by the index values joined with underscores, e.g.
// "dense0.mix_1_2". Models use it to name array elements.
func ElemNamer(base string) Namer {
	return func(idx []int) string {
		var b strings.Builder
		b.WriteString(base)
		for _, v := range idx {
			b.WriteByte('_')
			b.WriteString(strconv.Itoa(v))
		}
		return b.String()
	}
}

// IndexedNamer returns the per-element constraint Namer: the base
// name followed by the bracketed index, e.g. "dense0.relu[1,2]". The
// bracket form keeps constraint names disjoint from the underscore
// form ElemNamer gives variable elements.
func IndexedNamer(base string) Namer {
	return func(idx []int) string {
		var b strings.Builder
		b.WriteString(base)
		b.WriteByte('[')
		for i, v := range idx {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(v))
		}
		b.WriteByte(']')
		return b.String()
	}
}

// Model is the constraint-model facade. Implementations must reject
// duplicate names and constraints over uncommitted variables.
type Model interface {
	// AddVarArray creates a continuous variable array with uniform
	// bounds. The array is pending until Update is called.
	AddVarArray(shape Shape, lb, ub float64, name string) (*VarArray, error)

	// AddLinearEq adds, for every element index of lhs, the equality
	// lhs[idx] == rhs(idx).
	AddLinearEq(lhs *VarArray, rhs func(idx []int) LinExpr, name Namer) error

	// AddGenConstr adds, for every element index of result, the
	// generic relation of the given kind between result[idx], the
	// operand elements at idx, and the constant.
	AddGenConstr(kind GenKind, result *VarArray, operands []*VarArray, constant float64, name Namer) error

	// SetBounds overwrites the bounds of every element of the array.
	SetBounds(a *VarArray, lb, ub float64) error

	// Update makes all pending variable creations visible to
	// subsequent constraint additions.
	Update() error
}
