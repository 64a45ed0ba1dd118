package layer

import G "gorgonia.org/gorgonia"

// Combiner is a layer laid onto one computation graph.
type Combiner interface {

	// Forward applies the layer to x, whose first axis is the batch axis.
	Forward(x *G.Node) (*G.Node, error)

	// Learnables returns the parameter nodes gradients are computed for.
	Learnables() G.Nodes

	// Commit copies the current values of the parameter nodes back into the
	// layer's parameters, e.g. after training.
	Commit() error
}

// Stateless is embedded by combiners without parameters.
type Stateless struct{}

func (Stateless) Learnables() G.Nodes { return nil }
func (Stateless) Commit() error       { return nil }
