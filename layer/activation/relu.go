// Package activation implements parameterless nonlinearities.
package activation

import (
	"math/rand"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/neurlang/mldemos/layer"
)

// ReLU is the rectified linear unit max(0, x).
type ReLU struct{}

func (ReLU) Name() string           { return "ReLU" }
func (ReLU) Params() []*layer.Param { return nil }

func (ReLU) Init(in tensor.Shape, _ *rand.Rand) (tensor.Shape, error) {
	return in.Clone(), nil
}

func (ReLU) Lay(*G.ExprGraph, string) (layer.Combiner, error) {
	return relu{}, nil
}

type relu struct {
	layer.Stateless
}

func (relu) Forward(x *G.Node) (*G.Node, error) {
	return G.Rectify(x)
}
