// Package layer defines the blocks a feedforward network is composed of.
package layer

import (
	"fmt"
	"math/rand"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Layer is a block of the network. It is first initialised for an input shape,
// which allocates its parameters, and then laid onto computation graphs as often
// as needed.
type Layer interface {

	// Init prepares the layer for a per-sample input shape (batch axis excluded)
	// and returns the per-sample output shape.
	Init(in tensor.Shape, rng *rand.Rand) (out tensor.Shape, err error)

	// Lay adds the layer's parameter nodes to g, named with prefix.
	Lay(g *G.ExprGraph, prefix string) (Combiner, error)

	// Params returns the parameters allocated by Init, nil for parameterless layers.
	Params() []*Param

	// Name describes the layer, e.g. "Linear(128)".
	Name() string
}

// Param is a named parameter tensor owned by a layer.
type Param struct {
	Name  string
	Value *tensor.Dense
}

// Valuer is satisfied by both tensors and graph values.
type Valuer interface {
	Shape() tensor.Shape
	Data() interface{}
}

// Set overwrites the parameter values with those of v, which must have the same shape.
func (p *Param) Set(v Valuer) error {
	if !p.Value.Shape().Eq(v.Shape()) {
		return fmt.Errorf("layer: parameter %s has shape %v, got %v", p.Name, p.Value.Shape(), v.Shape())
	}
	src, ok := v.Data().([]float64)
	if !ok {
		return fmt.Errorf("layer: parameter %s: expected float64 data, got %T", p.Name, v.Data())
	}
	copy(p.Value.Data().([]float64), src)
	return nil
}

// Node creates an input node on g bound to a copy of the parameter.
func (p *Param) Node(g *G.ExprGraph, prefix string) *G.Node {
	v := p.Value.Clone().(*tensor.Dense)
	return G.NewTensor(g, tensor.Float64, v.Dims(), G.WithShape(v.Shape()...), G.WithName(prefix+p.Name), G.WithValue(v))
}
