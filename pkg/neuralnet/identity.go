package neuralnet

import "github.com/predopt/nnembed/pkg/mip"

func init() {
	Register("identity", Identity{})
}

// Identity encodes output == input·weights + bias, or output == input
// when the layer has no affine parameters. No auxiliary variables, no
// bound changes.
type Identity struct{}

// Apply implements Activation.
func (Identity) Apply(l *Layer) error {
	if !l.HasAffine() {
		return l.model.AddLinearEq(l.output, func(idx []int) mip.LinExpr {
			return mip.LinExpr{Terms: []mip.Term{{X: l.input.At(idx...), Coef: 1}}}
		}, l.elemNamer("identity"))
	}
	return l.model.AddLinearEq(l.output, l.affine, l.elemNamer("identity"))
}
