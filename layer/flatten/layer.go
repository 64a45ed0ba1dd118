// Package flatten implements the batch flatten block.
package flatten

import (
	"fmt"
	"math/rand"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/neurlang/mldemos/layer"
)

// FlattenLayer reshapes every sample of a batch into a vector of size values.
type FlattenLayer struct {
	size int
}

// MustNew creates a flatten block producing vectors of size values.
func MustNew(size int) *FlattenLayer {
	if size <= 0 {
		panic(fmt.Sprintf("flatten: size must be > 0 (got %d)", size))
	}
	return &FlattenLayer{size: size}
}

func (f *FlattenLayer) Name() string           { return fmt.Sprintf("BatchFlatten(%d)", f.size) }
func (f *FlattenLayer) Params() []*layer.Param { return nil }

func (f *FlattenLayer) Init(in tensor.Shape, _ *rand.Rand) (tensor.Shape, error) {
	if in.TotalSize() != f.size {
		return nil, fmt.Errorf("flatten: input shape %v does not hold %d values", in, f.size)
	}
	return tensor.Shape{f.size}, nil
}

func (f *FlattenLayer) Lay(*G.ExprGraph, string) (layer.Combiner, error) {
	return flatten{size: f.size}, nil
}

type flatten struct {
	layer.Stateless
	size int
}

func (f flatten) Forward(x *G.Node) (*G.Node, error) {
	batch := x.Shape()[0]
	if x.Dims() == 2 && x.Shape()[1] == f.size {
		return x, nil
	}
	return G.Reshape(x, tensor.Shape{batch, f.size})
}
