// Package sequential embeds a whole feed-forward network into a
// constraint model, one dense layer at a time, and provides the exact
// numeric forward pass used to cross-check a solver's solution.
package sequential

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/predopt/nnembed/pkg/mip"
	"github.com/predopt/nnembed/pkg/neuralnet"
)

// ErrUnsupportedActivation reports an activation tag with no
// registered encoder.
var ErrUnsupportedActivation = errors.New("sequential: unsupported activation")

// Dense is one trained layer: weights oriented (input width × output
// width) so the forward pass is x·W + b, plus the activation tag
// applied to the result.
type Dense struct {
	Weights    *mat.Dense
	Bias       *mat.VecDense
	Activation string
}

// InputSize returns the layer's input width.
func (d *Dense) InputSize() int {
	r, _ := d.Weights.Dims()
	return r
}

// OutputSize returns the layer's output width.
func (d *Dense) OutputSize() int {
	_, c := d.Weights.Dims()
	return c
}

// Network is an ordered list of dense layers.
type Network struct {
	Layers []Dense
}

// Validate checks that the network is nonempty, fully parameterized
// and width-consistent between adjacent layers.
func (n *Network) Validate() error {
	if len(n.Layers) == 0 {
		return fmt.Errorf("sequential: network has no layers")
	}
	for i := range n.Layers {
		d := &n.Layers[i]
		if d.Weights == nil || d.Bias == nil {
			return fmt.Errorf("sequential: layer %d has missing parameters", i)
		}
		if d.Bias.Len() != d.OutputSize() {
			return fmt.Errorf("sequential: layer %d bias length %d vs output width %d", i, d.Bias.Len(), d.OutputSize())
		}
		if _, ok := neuralnet.Get(d.Activation); !ok {
			return fmt.Errorf("%w: layer %d tag %q", ErrUnsupportedActivation, i, d.Activation)
		}
		if i > 0 && n.Layers[i-1].OutputSize() != d.InputSize() {
			return fmt.Errorf("sequential: layer %d input width %d vs layer %d output width %d",
				i, d.InputSize(), i-1, n.Layers[i-1].OutputSize())
		}
	}
	return nil
}

// InputSize returns the network's input width.
func (n *Network) InputSize() int { return n.Layers[0].InputSize() }

// OutputSize returns the network's output width.
func (n *Network) OutputSize() int { return n.Layers[len(n.Layers)-1].OutputSize() }

// Apply encodes the network between the given input and output
// variable arrays, both of shape (rows, width). Intermediate arrays
// are created unbounded, one per inner layer, named
// "<base>.layer<i>"; the final layer writes into output. It returns
// the per-layer contexts in order.
func (n *Network) Apply(m mip.Model, base string, input, output *mip.VarArray) ([]*neuralnet.Layer, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	in := input.Shape()
	if len(in) != 2 {
		return nil, fmt.Errorf("%w: input must be 2-D (rows, width), got %v", neuralnet.ErrShapeMismatch, []int(in))
	}
	rows := in[0]

	layers := make([]*neuralnet.Layer, 0, len(n.Layers))
	cur := input
	for i := range n.Layers {
		d := &n.Layers[i]
		act, _ := neuralnet.Get(d.Activation)

		name := fmt.Sprintf("%s.layer%d", base, i)
		out := output
		if i < len(n.Layers)-1 {
			var err error
			out, err = m.AddVarArray(mip.Shape{rows, d.OutputSize()}, -mip.Infinity, mip.Infinity, name+".out")
			if err != nil {
				return nil, err
			}
			if err := m.Update(); err != nil {
				return nil, err
			}
		}

		layer, err := neuralnet.NewLayer(m, name, cur, out, d.Weights, d.Bias)
		if err != nil {
			return nil, err
		}
		if err := act.Apply(layer); err != nil {
			return nil, fmt.Errorf("sequential: layer %d (%s): %w", i, d.Activation, err)
		}
		layers = append(layers, layer)
		cur = out
	}
	return layers, nil
}

// Predict runs the exact numeric forward pass on a (rows × input
// width) matrix. The activations are evaluated with the same algebra
// the encoders emit, so a feasible model solution must match Predict
// on the same input.
func (n *Network) Predict(x *mat.Dense) (*mat.Dense, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	_, c := x.Dims()
	if c != n.InputSize() {
		return nil, fmt.Errorf("sequential: input width %d vs network input width %d", c, n.InputSize())
	}
	cur := mat.DenseCopyOf(x)
	for i := range n.Layers {
		d := &n.Layers[i]
		rows, _ := cur.Dims()
		next := mat.NewDense(rows, d.OutputSize(), nil)
		next.Mul(cur, d.Weights)
		for r := 0; r < rows; r++ {
			for j := 0; j < d.OutputSize(); j++ {
				v := next.At(r, j) + d.Bias.AtVec(j)
				next.Set(r, j, activate(d.Activation, v))
			}
		}
		cur = next
	}
	return cur, nil
}

// SolutionError returns Predict(x) - y elementwise, the residual of a
// solver solution (x, y) against the network's own forward pass.
func (n *Network) SolutionError(x, y *mat.Dense) (*mat.Dense, error) {
	pred, err := n.Predict(x)
	if err != nil {
		return nil, err
	}
	pr, pc := pred.Dims()
	yr, yc := y.Dims()
	if pr != yr || pc != yc {
		return nil, fmt.Errorf("sequential: prediction is %dx%d but solution output is %dx%d", pr, pc, yr, yc)
	}
	diff := mat.NewDense(pr, pc, nil)
	diff.Sub(pred, y)
	return diff, nil
}

// activate evaluates an activation tag numerically. The "silu" tag is
// the logistic sigmoid, matching the constraint encoder of the same
// tag.
func activate(tag string, v float64) float64 {
	switch tag {
	case "relu":
		return math.Max(v, 0)
	case "silu":
		return 1 / (1 + math.Exp(-v))
	default:
		return v
	}
}
