package inference

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// DefaultTopK is the number of classes String prints.
const DefaultTopK = 5

// Classification is one class with its probability.
type Classification struct {
	ClassName   string
	Probability float64
}

func (c Classification) String() string {
	return fmt.Sprintf(`{"class": %q, "probability": %.5f}`, c.ClassName, c.Probability)
}

// Classifications holds the probability of every class, in class order.
type Classifications struct {
	items []Classification
}

// NewClassifications pairs class names with probabilities.
func NewClassifications(names []string, probabilities []float64) (*Classifications, error) {
	if len(names) != len(probabilities) {
		return nil, fmt.Errorf("inference: %d class names for %d probabilities", len(names), len(probabilities))
	}
	items := make([]Classification, len(names))
	for i := range names {
		items[i] = Classification{ClassName: names[i], Probability: probabilities[i]}
	}
	return &Classifications{items: items}, nil
}

// Softmax returns the normalised exponentials of logits.
func Softmax(logits []float64) []float64 {
	out := make([]float64, len(logits))
	if len(logits) == 0 {
		return out
	}
	top := floats.Max(logits)
	for i, v := range logits {
		out[i] = math.Exp(v - top)
	}
	floats.Scale(1/floats.Sum(out), out)
	return out
}

// Len returns the number of classes.
func (c *Classifications) Len() int {
	return len(c.items)
}

// Items returns all classes in class order.
func (c *Classifications) Items() []Classification {
	return append([]Classification(nil), c.items...)
}

// Get returns the class called name.
func (c *Classifications) Get(name string) (Classification, bool) {
	for _, item := range c.items {
		if item.ClassName == name {
			return item, true
		}
	}
	return Classification{}, false
}

// Best returns the most probable class.
func (c *Classifications) Best() Classification {
	if len(c.items) == 0 {
		return Classification{}
	}
	probs := make([]float64, len(c.items))
	for i, item := range c.items {
		probs[i] = item.Probability
	}
	return c.items[floats.MaxIdx(probs)]
}

// TopK returns the k most probable classes, most probable first. Ties keep class order.
func (c *Classifications) TopK(k int) []Classification {
	sorted := c.Items()
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Probability > sorted[j].Probability
	})
	if k >= 0 && k < len(sorted) {
		sorted = sorted[:k]
	}
	return sorted
}

// Format prints the k most probable classes, one per line.
func (c *Classifications) Format(k int) string {
	var sb strings.Builder
	sb.WriteString("[\n")
	for _, item := range c.TopK(k) {
		sb.WriteByte('\t')
		sb.WriteString(item.String())
		sb.WriteByte('\n')
	}
	sb.WriteByte(']')
	return sb.String()
}

func (c *Classifications) String() string {
	return c.Format(DefaultTopK)
}
