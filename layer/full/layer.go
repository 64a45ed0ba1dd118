// Package full implements a fully connected (linear) layer and combiner.
package full

import (
	"fmt"
	"math"
	"math/rand"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/neurlang/mldemos/layer"
)

// FullLayer computes x·W + b for flat inputs.
type FullLayer struct {
	units  int
	weight *layer.Param
	bias   *layer.Param
}

// MustNew creates a new full layer with units outputs.
func MustNew(units int) *FullLayer {
	o, err := New(units)
	if err != nil {
		panic(err.Error())
	}
	return o
}

// New creates a new full layer with units outputs.
func New(units int) (*FullLayer, error) {
	if units <= 0 {
		return nil, fmt.Errorf("full: units must be > 0 (got %d)", units)
	}
	return &FullLayer{units: units}, nil
}

// Units returns the number of outputs.
func (f *FullLayer) Units() int { return f.units }

func (f *FullLayer) Name() string { return fmt.Sprintf("Linear(%d)", f.units) }

// Init allocates a Glorot-uniform weight of shape (in, units) and a zero bias of shape (1, units).
func (f *FullLayer) Init(in tensor.Shape, rng *rand.Rand) (tensor.Shape, error) {
	if len(in) != 1 {
		return nil, fmt.Errorf("full: expects a flat input, got shape %v", in)
	}
	fanIn := in[0]
	limit := math.Sqrt(6 / float64(fanIn+f.units))
	w := make([]float64, fanIn*f.units)
	for i := range w {
		w[i] = (rng.Float64()*2 - 1) * limit
	}
	f.weight = &layer.Param{Name: "weight", Value: tensor.New(tensor.WithShape(fanIn, f.units), tensor.WithBacking(w))}
	f.bias = &layer.Param{Name: "bias", Value: tensor.New(tensor.WithShape(1, f.units), tensor.WithBacking(make([]float64, f.units)))}
	return tensor.Shape{f.units}, nil
}

func (f *FullLayer) Params() []*layer.Param {
	if f.weight == nil {
		return nil
	}
	return []*layer.Param{f.weight, f.bias}
}

// Lay turns the full layer into a combiner bound to g.
func (f *FullLayer) Lay(g *G.ExprGraph, prefix string) (layer.Combiner, error) {
	if f.weight == nil {
		return nil, fmt.Errorf("full: %s laid before Init", f.Name())
	}
	return &Full{
		layer: f,
		w:     f.weight.Node(g, prefix),
		b:     f.bias.Node(g, prefix),
	}, nil
}
