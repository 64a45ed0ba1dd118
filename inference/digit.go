package inference

import (
	"context"
	"fmt"
	"image"
	"strconv"

	"gorgonia.org/tensor"

	"github.com/neurlang/mldemos/cv"
)

// DigitTranslator turns grayscale digit images into (1, Height, Width) tensors and
// network outputs into probabilities over the digits 0 to 9.
type DigitTranslator struct {
	Width, Height int
}

// NewDigitTranslator creates a translator for 28x28 digits.
func NewDigitTranslator() DigitTranslator {
	return DigitTranslator{Width: 28, Height: 28}
}

// DigitClasses lists the class names "0" to "9".
func DigitClasses() []string {
	names := make([]string, 10)
	for i := range names {
		names[i] = strconv.Itoa(i)
	}
	return names
}

func (d DigitTranslator) ProcessInput(_ context.Context, img image.Image) (*tensor.Dense, error) {
	if img == nil {
		return nil, fmt.Errorf("inference: nil image")
	}
	if d.Width > 0 && d.Height > 0 {
		img = cv.Resize(img, d.Width, d.Height)
	}
	return cv.ToTensor(img), nil
}

func (d DigitTranslator) ProcessOutput(_ context.Context, out *tensor.Dense) (*Classifications, error) {
	logits, ok := out.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("inference: output holds %v, expected float64", out.Dtype())
	}
	return NewClassifications(DigitClasses(), Softmax(logits))
}

func (DigitTranslator) Batchifier() Batchifier {
	return StackBatchifier{}
}
