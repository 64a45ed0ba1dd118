// Package inference runs saved networks on application level inputs. A Translator
// converts inputs to tensors and raw outputs back to results, a Batchifier groups
// the tensors of several inputs, and a Predictor ties them to a network.
package inference

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"gorgonia.org/tensor"
)

// Translator converts between application values and network tensors.
type Translator[I, O any] interface {
	// ProcessInput converts one input to a tensor without the batch axis.
	ProcessInput(ctx context.Context, in I) (*tensor.Dense, error)
	// ProcessOutput converts the network output for one input.
	ProcessOutput(ctx context.Context, out *tensor.Dense) (O, error)
	// Batchifier groups processed inputs; nil selects StackBatchifier.
	Batchifier() Batchifier
}

// Batchifier combines per-input tensors into one batch and splits batches back.
type Batchifier interface {
	Batchify(items []*tensor.Dense) (*tensor.Dense, error)
	Unbatchify(batch *tensor.Dense) ([]*tensor.Dense, error)
}

// StackBatchifier stacks N tensors of shape S into one tensor of shape (N, S...).
type StackBatchifier struct{}

func (StackBatchifier) Batchify(items []*tensor.Dense) (*tensor.Dense, error) {
	if len(items) == 0 {
		return nil, errors.New("inference: nothing to batchify")
	}
	shape := items[0].Shape()
	size := shape.TotalSize()
	data := make([]float64, 0, len(items)*size)
	for i, item := range items {
		if !slices.Equal([]int(item.Shape()), []int(shape)) {
			return nil, fmt.Errorf("inference: item %d has shape %v, expected %v", i, item.Shape(), shape)
		}
		values, ok := item.Data().([]float64)
		if !ok {
			return nil, fmt.Errorf("inference: item %d holds %v, expected float64", i, item.Dtype())
		}
		data = append(data, values...)
	}
	return tensor.New(tensor.WithShape(append(tensor.Shape{len(items)}, shape...)...), tensor.WithBacking(data)), nil
}

func (StackBatchifier) Unbatchify(batch *tensor.Dense) ([]*tensor.Dense, error) {
	shape := batch.Shape()
	if len(shape) < 2 {
		return nil, fmt.Errorf("inference: cannot unbatchify shape %v", shape)
	}
	values, ok := batch.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("inference: batch holds %v, expected float64", batch.Dtype())
	}
	item := shape[1:].Clone()
	size := item.TotalSize()
	out := make([]*tensor.Dense, shape[0])
	for i := range out {
		chunk := append([]float64(nil), values[i*size:(i+1)*size]...)
		out[i] = tensor.New(tensor.WithShape(item...), tensor.WithBacking(chunk))
	}
	return out, nil
}
