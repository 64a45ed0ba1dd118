// Package feedforward implements a sequential feedforward network type
package feedforward

import (
	"errors"
	"fmt"
	"math/rand"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/neurlang/mldemos/layer"
	"github.com/neurlang/mldemos/layer/full"
)

// ErrNotInitialized is returned when a network is used before Initialize.
var ErrNotInitialized = errors.New("feedforward: network is not initialized")

// FeedforwardNetwork is the feedforward network. Layers are applied in the order
// they were added.
type FeedforwardNetwork struct {
	layers   []layer.Layer
	inShape  tensor.Shape
	outShape tensor.Shape
}

// NamedParam is a parameter qualified with the position of its layer.
type NamedParam struct {
	Name  string
	Param *layer.Param
}

// Len returns the number of layers.
func (f FeedforwardNetwork) Len() int {
	return len(f.layers)
}

// GetLayer returns the n-th layer or nil.
func (f FeedforwardNetwork) GetLayer(n int) layer.Layer {
	if n < 0 || n >= len(f.layers) {
		return nil
	}
	return f.layers[n]
}

// NewLayer adds a fully connected layer with units outputs to the end of network.
func (f *FeedforwardNetwork) NewLayer(units int) {
	f.NewCombiner(full.MustNew(units))
}

// NewCombiner adds any layer to the end of network. Adding a layer discards
// a previous initialization.
func (f *FeedforwardNetwork) NewCombiner(l layer.Layer) {
	f.layers = append(f.layers, l)
	f.Reset()
}

// Reset discards the initialization. The network must be initialized again before use.
func (f *FeedforwardNetwork) Reset() {
	f.inShape = nil
	f.outShape = nil
}

// Initialize allocates the parameters of every layer for a per-sample input shape.
// The same seed yields the same initial parameters.
func (f *FeedforwardNetwork) Initialize(in tensor.Shape, seed int64) error {
	if len(f.layers) == 0 {
		return errors.New("feedforward: network has no layers")
	}
	rng := rand.New(rand.NewSource(seed))
	shape := in.Clone()
	for i, l := range f.layers {
		out, err := l.Init(shape, rng)
		if err != nil {
			return fmt.Errorf("feedforward: layer %d %s: %w", i, l.Name(), err)
		}
		shape = out
	}
	f.inShape = in.Clone()
	f.outShape = shape
	return nil
}

// Initialized reports whether Initialize succeeded since the last layer was added.
func (f FeedforwardNetwork) Initialized() bool {
	return f.inShape != nil
}

// InputShape returns the per-sample input shape given to Initialize.
func (f FeedforwardNetwork) InputShape() tensor.Shape {
	return f.inShape.Clone()
}

// OutputShape returns the per-sample output shape.
func (f FeedforwardNetwork) OutputShape() tensor.Shape {
	return f.outShape.Clone()
}

// Describe lists the layer names in order.
func (f FeedforwardNetwork) Describe() []string {
	names := make([]string, len(f.layers))
	for i, l := range f.layers {
		names[i] = l.Name()
	}
	return names
}

// Params returns every parameter, named "<layer index>_<parameter>", in layer order.
func (f FeedforwardNetwork) Params() []NamedParam {
	var out []NamedParam
	for i, l := range f.layers {
		for _, p := range l.Params() {
			out = append(out, NamedParam{Name: fmt.Sprintf("%02d_%s", i, p.Name), Param: p})
		}
	}
	return out
}

// Laid is the network laid onto one computation graph.
type Laid struct {
	Output    *G.Node
	combiners []layer.Combiner
}

// Learnables returns the parameter nodes of all layers.
func (l *Laid) Learnables() G.Nodes {
	var out G.Nodes
	for _, c := range l.combiners {
		out = append(out, c.Learnables()...)
	}
	return out
}

// Commit copies the parameter node values back into the network.
func (l *Laid) Commit() error {
	for _, c := range l.combiners {
		if err := c.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// Lay adds the network to g and applies it to x, a batch of inputs. The parameter
// nodes are bound to copies of the current parameters.
func (f *FeedforwardNetwork) Lay(g *G.ExprGraph, x *G.Node) (*Laid, error) {
	if !f.Initialized() {
		return nil, ErrNotInitialized
	}
	if x.Dims() != len(f.inShape)+1 || !tensor.Shape(x.Shape()[1:]).Eq(f.inShape) {
		return nil, fmt.Errorf("feedforward: input shape %v does not match (batch, %v)", x.Shape(), f.inShape)
	}
	laid := &Laid{combiners: make([]layer.Combiner, 0, len(f.layers))}
	out := x
	for i, l := range f.layers {
		c, err := l.Lay(g, fmt.Sprintf("%02d_", i))
		if err != nil {
			return nil, err
		}
		if out, err = c.Forward(out); err != nil {
			return nil, fmt.Errorf("feedforward: layer %d %s: %w", i, l.Name(), err)
		}
		laid.combiners = append(laid.combiners, c)
	}
	laid.Output = out
	return laid, nil
}
