// Package nnembed embeds trained feed-forward neural networks into
// mathematical-optimization models: each layer's affine transform and
// activation function are translated into an exact set of algebraic
// constraints over solver variable arrays, so the network's
// input-output relation can appear as a sub-problem of a larger
// optimization.
//
// The per-layer encoders live in pkg/neuralnet, the solver facade and
// its in-memory reference implementation in pkg/mip, and the
// whole-network walker in pkg/sequential. This package ties them
// together in one call:
//
//	layers, err := nnembed.AddNetwork(model, net, "net", input, output)
package nnembed

import (
	"github.com/predopt/nnembed/pkg/mip"
	"github.com/predopt/nnembed/pkg/neuralnet"
	"github.com/predopt/nnembed/pkg/sequential"
)

// AddNetwork encodes every layer of the network into the model,
// between the caller's input and output variable arrays (both 2-D,
// shaped rows × width). Names of all created variables and
// constraints are prefixed with name, which must be unique per
// embedded network within one model.
func AddNetwork(model mip.Model, network *sequential.Network, name string, input, output *mip.VarArray) ([]*neuralnet.Layer, error) {
	return network.Apply(model, name, input, output)
}
