// Package datasets implements sampling of labelled samples into pooled training batches.
package datasets

import (
	"errors"
	"fmt"

	"gorgonia.org/tensor"
)

// Source is an indexable collection of labelled samples of one shape.
type Source interface {

	// Len returns the number of samples.
	Len() int

	// Shape returns the shape of a single sample, without the batch axis.
	Shape() tensor.Shape

	// Classes returns the number of distinct labels.
	Classes() int

	// Fill writes sample i into dst, which holds Shape().TotalSize() values,
	// and returns its label.
	Fill(i int, dst []float64) int
}

// Slice is an in-memory Source.
type Slice struct {
	Inputs      [][]float64
	Labels      []int
	SampleShape tensor.Shape
	NumClasses  int
}

// NewSlice validates inputs and labels and wraps them as a Source.
func NewSlice(inputs [][]float64, labels []int, shape tensor.Shape, classes int) (*Slice, error) {
	if len(inputs) != len(labels) {
		return nil, fmt.Errorf("datasets: %d inputs but %d labels", len(inputs), len(labels))
	}
	if classes <= 0 {
		return nil, errors.New("datasets: classes must be > 0")
	}
	size := shape.TotalSize()
	for i, in := range inputs {
		if len(in) != size {
			return nil, fmt.Errorf("datasets: input %d has %d values, shape %v needs %d", i, len(in), shape, size)
		}
		if labels[i] < 0 || labels[i] >= classes {
			return nil, fmt.Errorf("datasets: label %d of input %d out of range", labels[i], i)
		}
	}
	return &Slice{Inputs: inputs, Labels: labels, SampleShape: shape.Clone(), NumClasses: classes}, nil
}

func (s *Slice) Len() int            { return len(s.Inputs) }
func (s *Slice) Shape() tensor.Shape { return s.SampleShape.Clone() }
func (s *Slice) Classes() int        { return s.NumClasses }

func (s *Slice) Fill(i int, dst []float64) int {
	copy(dst, s.Inputs[i])
	return s.Labels[i]
}
