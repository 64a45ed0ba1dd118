package feedforward

import (
	"github.com/neurlang/mldemos/layer/activation"
	"github.com/neurlang/mldemos/layer/flatten"
)

// NewMLP builds a multilayer perceptron: the input is flattened to inputs values,
// every hidden size adds a fully connected layer followed by ReLU, and a final
// fully connected layer produces outputs values.
func NewMLP(inputs, outputs int, hidden ...int) *FeedforwardNetwork {
	var net FeedforwardNetwork
	net.NewCombiner(flatten.MustNew(inputs))
	for _, units := range hidden {
		net.NewLayer(units)
		net.NewCombiner(activation.ReLU{})
	}
	net.NewLayer(outputs)
	return &net
}
