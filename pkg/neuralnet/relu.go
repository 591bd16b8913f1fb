package neuralnet

import "github.com/predopt/nnembed/pkg/mip"

func init() {
	Register("relu", ReLU{})
}

// ReLU encodes output == max(mixing, 0) elementwise through the
// model's native max relation. The output's implied lower bound of
// zero is left to the solver's own bound propagation.
//
// SetBounds and BigM are reserved for alternative formulations and
// are not read by the encoding.
type ReLU struct {
	SetBounds bool
	BigM      float64
}

// Apply implements Activation.
func (ReLU) Apply(l *Layer) error {
	mix, err := l.Mixing()
	if err != nil {
		return err
	}
	return l.model.AddGenConstr(mip.MaxConst, l.output, []*mip.VarArray{mix}, 0, l.elemNamer("relu"))
}
