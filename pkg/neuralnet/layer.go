// Package neuralnet translates one trained dense layer at a time into
// constraints on a mip.Model. A Layer carries the layer's input and
// output variable arrays plus its learned affine parameters; an
// Activation encodes the layer's nonlinearity over them. The heavy
// lifting is making each activation's exact algebra expressible with
// the relation kinds the model facade guarantees, without ever
// creating the same variable twice.
package neuralnet

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/predopt/nnembed/pkg/mip"
)

// ErrShapeMismatch reports a layer whose input, output, weight or bias
// dimensions are inconsistent.
var ErrShapeMismatch = errors.New("neuralnet: inconsistent layer shapes")

// Layer is the per-layer encoding context. It borrows the input and
// output variable arrays and the model; it owns only the lazily
// materialized mixing and auxiliary arrays, which it creates at most
// once per role. A Layer is built for one activation call and
// discarded afterwards.
type Layer struct {
	model   mip.Model
	name    string
	input   *mip.VarArray
	output  *mip.VarArray
	weights *mat.Dense
	bias    *mat.VecDense

	mixing *mip.VarArray
	aux    map[string]*mip.VarArray
}

// NewLayer builds a layer context. weights and bias are either both
// nil (the layer applies a pure activation to its input) or both set,
// in which case the pre-activation value is input·weights + bias over
// the trailing dimension. Shape consistency is checked here, once, so
// the encoders can assume it.
func NewLayer(model mip.Model, name string, input, output *mip.VarArray, weights *mat.Dense, bias *mat.VecDense) (*Layer, error) {
	if model == nil || input == nil || output == nil {
		return nil, fmt.Errorf("neuralnet: layer %q needs a model, an input array and an output array", name)
	}
	if name == "" {
		return nil, fmt.Errorf("neuralnet: layer name must not be empty")
	}
	if (weights == nil) != (bias == nil) {
		return nil, fmt.Errorf("neuralnet: layer %q must set weights and bias together", name)
	}

	in, out := input.Shape(), output.Shape()
	if weights == nil {
		if !in.Equal(out) {
			return nil, fmt.Errorf("%w: layer %q without affine parameters has input %v and output %v",
				ErrShapeMismatch, name, []int(in), []int(out))
		}
	} else {
		if len(in) != len(out) {
			return nil, fmt.Errorf("%w: layer %q input rank %d vs output rank %d",
				ErrShapeMismatch, name, len(in), len(out))
		}
		for i := 0; i < len(in)-1; i++ {
			if in[i] != out[i] {
				return nil, fmt.Errorf("%w: layer %q leading dimension %d: input %d vs output %d",
					ErrShapeMismatch, name, i, in[i], out[i])
			}
		}
		r, c := weights.Dims()
		if in[len(in)-1] != r {
			return nil, fmt.Errorf("%w: layer %q input width %d vs weight rows %d",
				ErrShapeMismatch, name, in[len(in)-1], r)
		}
		if out[len(out)-1] != c {
			return nil, fmt.Errorf("%w: layer %q output width %d vs weight columns %d",
				ErrShapeMismatch, name, out[len(out)-1], c)
		}
		if bias.Len() != c {
			return nil, fmt.Errorf("%w: layer %q bias length %d vs weight columns %d",
				ErrShapeMismatch, name, bias.Len(), c)
		}
	}

	return &Layer{
		model:   model,
		name:    name,
		input:   input,
		output:  output,
		weights: weights,
		bias:    bias,
		aux:     make(map[string]*mip.VarArray),
	}, nil
}

// Name returns the layer's base name; every variable and constraint
// the layer creates is prefixed with it.
func (l *Layer) Name() string { return l.name }

// Input returns the borrowed input array.
func (l *Layer) Input() *mip.VarArray { return l.input }

// Output returns the borrowed output array.
func (l *Layer) Output() *mip.VarArray { return l.output }

// HasAffine reports whether the layer carries an affine stage.
func (l *Layer) HasAffine() bool { return l.weights != nil }

// Mixing returns the pre-activation array. With affine parameters it
// materializes, on first call only, a fresh unbounded array of the
// output's shape together with the equality mixing == input·weights +
// bias; later calls return the same array and add nothing. Without
// affine parameters the input array itself plays the mixing role and
// no variable or constraint is created.
func (l *Layer) Mixing() (*mip.VarArray, error) {
	if l.weights == nil {
		return l.input, nil
	}
	if l.mixing != nil {
		return l.mixing, nil
	}
	mix, err := l.model.AddVarArray(l.output.Shape(), -mip.Infinity, mip.Infinity, l.arrayName("mix"))
	if err != nil {
		return nil, fmt.Errorf("neuralnet: layer %q mixing: %w", l.name, err)
	}
	if err := l.model.Update(); err != nil {
		return nil, fmt.Errorf("neuralnet: layer %q mixing: %w", l.name, err)
	}
	if err := l.model.AddLinearEq(mix, l.affine, l.elemNamer("mix")); err != nil {
		return nil, fmt.Errorf("neuralnet: layer %q mixing: %w", l.name, err)
	}
	l.mixing = mix
	return mix, nil
}

// affine builds the expression input·weights + bias for one output
// element: the trailing index selects the weight column, the leading
// indices select the input row.
func (l *Layer) affine(idx []int) mip.LinExpr {
	j := idx[len(idx)-1]
	rows, _ := l.weights.Dims()
	terms := make([]mip.Term, 0, rows)
	elem := make([]int, len(idx))
	copy(elem, idx)
	for k := 0; k < rows; k++ {
		elem[len(elem)-1] = k
		terms = append(terms, mip.Term{X: l.input.At(elem...), Coef: l.weights.At(k, j)})
	}
	return mip.LinExpr{Terms: terms, Offset: l.bias.AtVec(j)}
}

// auxArray returns the auxiliary array for a role, creating it on
// first request. The role map is the idempotency record: a role is
// materialized at most once per layer, and the model's name-uniqueness
// check backstops the invariant if it is ever broken.
func (l *Layer) auxArray(role string, lb, ub float64) (*mip.VarArray, error) {
	if a, ok := l.aux[role]; ok {
		return a, nil
	}
	a, err := l.model.AddVarArray(l.output.Shape(), lb, ub, l.arrayName(role))
	if err != nil {
		return nil, fmt.Errorf("neuralnet: layer %q role %q: %w", l.name, role, err)
	}
	if err := l.model.Update(); err != nil {
		return nil, fmt.Errorf("neuralnet: layer %q role %q: %w", l.name, role, err)
	}
	l.aux[role] = a
	return a, nil
}

func (l *Layer) arrayName(role string) string {
	return l.name + "." + role
}

func (l *Layer) elemNamer(role string) mip.Namer {
	return mip.IndexedNamer(l.name + "." + role)
}
