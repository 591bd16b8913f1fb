package neuralnet

import "github.com/predopt/nnembed/pkg/mip"

func init() {
	Register("silu", SiLU{})
}

// SiLU encodes the logistic sigmoid output == 1 / (1 + exp(-mixing)).
//
// Note: despite the name, the emitted relation is the sigmoid curve,
// not the multiplicative SiLU/swish x·sigmoid(x). Models trained
// against this encoder depend on the emitted algebra, so the tag and
// the formula are kept as they are.
//
// A model with only unary generic relations and linear or bilinear
// equalities cannot state 1/(1+exp(x)) directly, so the relation is
// decomposed elementwise into
//
//	negated      == -mixing
//	exponentiated == exp(negated)
//	exp_plus_one == 1 + exponentiated
//	output * exp_plus_one == 1
//
// with the output bounded to the function's exact range [0, 1]. The
// final equality is bilinear and nonconvex; the model facade must
// accept BilinearEqConst for this encoder to work.
//
// SetBounds and BigM are reserved for alternative formulations and
// are not read by the encoding.
type SiLU struct {
	SetBounds bool
	BigM      float64
}

// Apply implements Activation.
func (SiLU) Apply(l *Layer) error {
	if err := l.model.SetBounds(l.output, 0, 1); err != nil {
		return err
	}
	mix, err := l.Mixing()
	if err != nil {
		return err
	}
	negated, err := l.auxArray("negated", -mip.Infinity, mip.Infinity)
	if err != nil {
		return err
	}
	exponentiated, err := l.auxArray("exponentiated", -mip.Infinity, mip.Infinity)
	if err != nil {
		return err
	}
	expPlusOne, err := l.auxArray("exp_plus_one", -mip.Infinity, mip.Infinity)
	if err != nil {
		return err
	}

	err = l.model.AddLinearEq(negated, func(idx []int) mip.LinExpr {
		return mip.LinExpr{Terms: []mip.Term{{X: mix.At(idx...), Coef: -1}}}
	}, l.elemNamer("negated"))
	if err != nil {
		return err
	}
	err = l.model.AddGenConstr(mip.Exp, exponentiated, []*mip.VarArray{negated}, 0, l.elemNamer("exp"))
	if err != nil {
		return err
	}
	err = l.model.AddLinearEq(expPlusOne, func(idx []int) mip.LinExpr {
		return mip.LinExpr{Terms: []mip.Term{{X: exponentiated.At(idx...), Coef: 1}}, Offset: 1}
	}, l.elemNamer("exp_plus_one"))
	if err != nil {
		return err
	}
	return l.model.AddGenConstr(mip.BilinearEqConst, l.output, []*mip.VarArray{expPlusOne}, 1, l.elemNamer("silu"))
}
