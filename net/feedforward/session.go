package feedforward

import (
	"fmt"
	"slices"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Session evaluates the network on batches of one fixed shape. The parameters are
// captured when the session is created.
type Session struct {
	shape tensor.Shape
	x     *G.Node
	out   *G.Node
	vm    G.VM
}

// NewSession builds an inference graph for batches of batchShape (batch axis first).
func (f *FeedforwardNetwork) NewSession(batchShape tensor.Shape) (*Session, error) {
	if !f.Initialized() {
		return nil, ErrNotInitialized
	}
	g := G.NewGraph()
	x := G.NewTensor(g, tensor.Float64, len(batchShape), G.WithShape(batchShape...), G.WithName("x"))
	laid, err := f.Lay(g, x)
	if err != nil {
		return nil, err
	}
	return &Session{
		shape: batchShape.Clone(),
		x:     x,
		out:   laid.Output,
		vm:    G.NewTapeMachine(g),
	}, nil
}

// Shape returns the batch shape the session accepts.
func (s *Session) Shape() tensor.Shape {
	return s.shape.Clone()
}

// Run evaluates the network on x and returns a copy of the raw output.
func (s *Session) Run(x *tensor.Dense) (*tensor.Dense, error) {
	if !slices.Equal([]int(x.Shape()), []int(s.shape)) {
		return nil, fmt.Errorf("feedforward: session expects shape %v, got %v", s.shape, x.Shape())
	}
	defer s.vm.Reset()
	if err := G.Let(s.x, x); err != nil {
		return nil, err
	}
	if err := s.vm.RunAll(); err != nil {
		return nil, err
	}
	v := s.out.Value()
	data, ok := v.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("feedforward: unexpected output %T", v.Data())
	}
	return tensor.New(tensor.WithShape(v.Shape()...), tensor.WithBacking(append([]float64(nil), data...))), nil
}

// Close releases the session.
func (s *Session) Close() error {
	return s.vm.Close()
}
