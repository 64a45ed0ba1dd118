package full

import (
	G "gorgonia.org/gorgonia"
)

// Full is a FullLayer laid onto a graph.
type Full struct {
	layer *FullLayer
	w, b  *G.Node
}

// Forward computes x·W + b, broadcasting the bias over the batch axis.
func (f *Full) Forward(x *G.Node) (*G.Node, error) {
	xw, err := G.Mul(x, f.w)
	if err != nil {
		return nil, err
	}
	return G.BroadcastAdd(xw, f.b, nil, []byte{0})
}

func (f *Full) Learnables() G.Nodes {
	return G.Nodes{f.w, f.b}
}

func (f *Full) Commit() error {
	if err := f.layer.weight.Set(f.w.Value()); err != nil {
		return err
	}
	return f.layer.bias.Set(f.b.Value())
}
