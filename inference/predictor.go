package inference

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"gorgonia.org/tensor"

	"github.com/neurlang/mldemos/model"
	"github.com/neurlang/mldemos/net/feedforward"
	"github.com/neurlang/mldemos/parallel"
)

// Predictor runs a model through a translator. It keeps one session per batch
// shape and is safe for concurrent use.
type Predictor[I, O any] struct {
	net        *feedforward.FeedforwardNetwork
	translator Translator[I, O]
	batchifier Batchifier

	mut      sync.Mutex
	sessions map[string]*feedforward.Session
	closed   bool
}

// NewPredictor creates a predictor for the current parameters of m.
func NewPredictor[I, O any](m *model.Model, t Translator[I, O]) (*Predictor[I, O], error) {
	net := m.Network()
	if !net.Initialized() {
		return nil, feedforward.ErrNotInitialized
	}
	b := t.Batchifier()
	if b == nil {
		b = StackBatchifier{}
	}
	return &Predictor[I, O]{
		net:        net,
		translator: t,
		batchifier: b,
		sessions:   make(map[string]*feedforward.Session),
	}, nil
}

// Predict runs a single input.
func (p *Predictor[I, O]) Predict(ctx context.Context, in I) (O, error) {
	out, err := p.BatchPredict(ctx, []I{in})
	if err != nil {
		var zero O
		return zero, err
	}
	return out[0], nil
}

// BatchPredict runs all inputs as one batch. Inputs are processed concurrently, so
// the translator must be safe for concurrent use.
func (p *Predictor[I, O]) BatchPredict(ctx context.Context, ins []I) ([]O, error) {
	if len(ins) == 0 {
		return nil, nil
	}
	items := make([]*tensor.Dense, len(ins))
	err := parallel.ForEachErr(len(ins), parallel.Limit(), func(i int) error {
		x, err := p.translator.ProcessInput(ctx, ins[i])
		if err != nil {
			return fmt.Errorf("inference: process input %d: %w", i, err)
		}
		items[i] = x
		return nil
	})
	if err != nil {
		return nil, err
	}
	batch, err := p.batchifier.Batchify(items)
	if err != nil {
		return nil, err
	}
	if err := p.fit(batch); err != nil {
		return nil, err
	}

	raw, err := p.run(batch)
	if err != nil {
		return nil, err
	}
	outs, err := p.batchifier.Unbatchify(raw)
	if err != nil {
		return nil, err
	}
	if len(outs) != len(ins) {
		return nil, fmt.Errorf("inference: %d outputs for %d inputs", len(outs), len(ins))
	}
	results := make([]O, len(outs))
	for i, out := range outs {
		if results[i], err = p.translator.ProcessOutput(ctx, out); err != nil {
			return nil, fmt.Errorf("inference: process output %d: %w", i, err)
		}
	}
	return results, nil
}

// fit reshapes batch to (N, network input...) when only the item layout differs,
// e.g. (N, 1, 28, 28) for a network taking 28x28 samples.
func (p *Predictor[I, O]) fit(batch *tensor.Dense) error {
	in := p.net.InputShape()
	shape := batch.Shape()
	if shape[1:].Eq(in) {
		return nil
	}
	if shape[1:].TotalSize() != in.TotalSize() {
		return fmt.Errorf("inference: input %v does not fit network input %v", shape[1:], in)
	}
	return batch.Reshape(append(tensor.Shape{shape[0]}, in...)...)
}

func (p *Predictor[I, O]) run(batch *tensor.Dense) (*tensor.Dense, error) {
	p.mut.Lock()
	defer p.mut.Unlock()
	if p.closed {
		return nil, fmt.Errorf("inference: predictor is closed")
	}
	key := fmt.Sprint(batch.Shape())
	sess, ok := p.sessions[key]
	if !ok {
		var err error
		if sess, err = p.net.NewSession(batch.Shape()); err != nil {
			return nil, err
		}
		p.sessions[key] = sess
		log.Debug().Str("shape", key).Msg("inference session created")
	}
	return sess.Run(batch)
}

// Close releases every session.
func (p *Predictor[I, O]) Close() error {
	p.mut.Lock()
	defer p.mut.Unlock()
	var first error
	for key, sess := range p.sessions {
		if err := sess.Close(); err != nil && first == nil {
			first = err
		}
		delete(p.sessions, key)
	}
	p.closed = true
	return first
}
