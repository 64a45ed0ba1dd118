package trainer

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gorgonia.org/tensor"

	"github.com/neurlang/mldemos/datasets"
	"github.com/neurlang/mldemos/net/feedforward"
	"github.com/neurlang/mldemos/parallel"
)

// Evaluation is the result of classifying a whole dataset.
type Evaluation struct {
	Correct int
	Total   int
	// Fingerprint is a hash over the predicted label of every sample, in order.
	Fingerprint [32]byte
}

// Accuracy returns the fraction of correctly classified samples.
func (e Evaluation) Accuracy() float64 {
	if e.Total == 0 {
		return 0
	}
	return float64(e.Correct) / float64(e.Total)
}

// Percent returns the accuracy in whole percents.
func (e Evaluation) Percent() int {
	if e.Total == 0 {
		return 0
	}
	return 100 * e.Correct / e.Total
}

// Evaluate classifies every sample of src with net in batches of batchSize.
func Evaluate(net *feedforward.FeedforwardNetwork, src datasets.Source, batchSize int) (Evaluation, error) {
	var ev Evaluation
	if batchSize <= 0 {
		return ev, fmt.Errorf("trainer: batch size must be > 0 (got %d)", batchSize)
	}
	if !net.Initialized() {
		return ev, feedforward.ErrNotInitialized
	}
	shape := src.Shape()
	if !shape.Eq(net.InputShape()) {
		return ev, fmt.Errorf("trainer: dataset samples %v do not match network input %v", shape, net.InputShape())
	}
	classes := net.OutputShape().TotalSize()
	sampleSize := shape.TotalSize()
	hasher := parallel.NewUint16Hasher(src.Len())
	sessions := make(map[int]*feedforward.Session)
	defer func() {
		for _, s := range sessions {
			s.Close()
		}
	}()

	data := make([]float64, batchSize*sampleSize)
	truth := make([]int, batchSize)
	for start := 0; start < src.Len(); start += batchSize {
		size := min(batchSize, src.Len()-start)
		sess, ok := sessions[size]
		if !ok {
			var err error
			if sess, err = net.NewSession(append(tensor.Shape{size}, shape...)); err != nil {
				return ev, err
			}
			sessions[size] = sess
		}
		for j := 0; j < size; j++ {
			truth[j] = src.Fill(start+j, data[j*sampleSize:(j+1)*sampleSize])
		}
		x := tensor.New(tensor.WithShape(append(tensor.Shape{size}, shape...)...),
			tensor.WithBacking(data[:size*sampleSize]))
		out, err := sess.Run(x)
		if err != nil {
			return ev, err
		}
		logits := out.Data().([]float64)
		for j := 0; j < size; j++ {
			predicted := floats.MaxIdx(logits[j*classes : (j+1)*classes])
			hasher.MustPutUint16(start+j, uint16(predicted))
			if predicted == truth[j] {
				ev.Correct++
			}
		}
		ev.Total += size
	}
	ev.Fingerprint = hasher.Sum()
	return ev, nil
}
