package trainer

import (
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/cpuid/v2"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/neurlang/mldemos/datasets"
	"github.com/neurlang/mldemos/metrics"
	"github.com/neurlang/mldemos/net/feedforward"
)

// DefaultLearningRate is used when Config.LearningRate is not positive.
const DefaultLearningRate = 0.001

// ErrNoGradients is returned by Step when no batch was trained since the last step.
var ErrNoGradients = errors.New("trainer: no gradients pending")

// Config captures the knobs of a training run.
type Config struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
	Seed         int64
	// StartEpoch is the number of epochs the network was already trained for.
	StartEpoch int
	Listeners  []Listener
}

// Trainer owns the training graph of one network.
type Trainer struct {
	net     *feedforward.FeedforwardNetwork
	cfg     Config
	inShape tensor.Shape
	classes int

	x, y    *G.Node
	laid    *feedforward.Laid
	costVal G.Value
	probVal G.Value
	vm      G.VM
	solver  G.Solver

	pending bool
	epoch   int
	batches int
	correct int
	seen    int
	window  metrics.Window
	started time.Time
}

// New builds the training graph for net. The network is initialised for inputShape
// with the configured seed when it is not initialised yet.
func New(net *feedforward.FeedforwardNetwork, cfg Config, inputShape tensor.Shape) (*Trainer, error) {
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("trainer: batch size must be > 0 (got %d)", cfg.BatchSize)
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = DefaultLearningRate
	}
	if !net.Initialized() {
		if err := net.Initialize(inputShape, cfg.Seed); err != nil {
			return nil, err
		}
	} else if !net.InputShape().Eq(inputShape) {
		return nil, fmt.Errorf("trainer: network input %v does not match %v", net.InputShape(), inputShape)
	}
	out := net.OutputShape()
	if len(out) != 1 || out[0] < 2 {
		return nil, fmt.Errorf("trainer: network output %v is not a class vector", out)
	}

	t := &Trainer{
		net:     net,
		cfg:     cfg,
		inShape: inputShape.Clone(),
		classes: out[0],
		epoch:   cfg.StartEpoch,
	}
	if err := t.build(); err != nil {
		return nil, err
	}
	log.Debug().
		Str("cpu", cpuid.CPU.BrandName).
		Int("cores", cpuid.CPU.LogicalCores).
		Strs("block", net.Describe()).
		Int("batch_size", cfg.BatchSize).
		Float64("learning_rate", cfg.LearningRate).
		Msg("trainer ready")
	return t, nil
}

func (t *Trainer) build() error {
	g := G.NewGraph()
	xShape := append(tensor.Shape{t.cfg.BatchSize}, t.inShape...)
	t.x = G.NewTensor(g, tensor.Float64, len(xShape), G.WithShape(xShape...), G.WithName("x"))
	t.y = G.NewMatrix(g, tensor.Float64, G.WithShape(t.cfg.BatchSize, t.classes), G.WithName("y"))

	laid, err := t.net.Lay(g, t.x)
	if err != nil {
		return err
	}
	t.laid = laid

	prob, err := G.SoftMax(laid.Output)
	if err != nil {
		return fmt.Errorf("trainer: softmax: %w", err)
	}
	safe, err := G.Add(prob, G.NewConstant(1e-12))
	if err != nil {
		return err
	}
	logp, err := G.Log(safe)
	if err != nil {
		return err
	}
	picked, err := G.HadamardProd(logp, t.y)
	if err != nil {
		return err
	}
	total, err := G.Sum(picked)
	if err != nil {
		return err
	}
	mean, err := G.Div(total, G.NewConstant(float64(t.cfg.BatchSize)))
	if err != nil {
		return err
	}
	cost, err := G.Neg(mean)
	if err != nil {
		return err
	}

	G.Read(cost, &t.costVal)
	G.Read(prob, &t.probVal)
	learnables := laid.Learnables()
	if _, err := G.Grad(cost, learnables...); err != nil {
		return fmt.Errorf("trainer: gradients: %w", err)
	}
	t.vm = G.NewTapeMachine(g, G.BindDualValues(learnables...))
	t.solver = G.NewAdamSolver(G.WithLearnRate(t.cfg.LearningRate))
	return nil
}

// Network returns the trained network.
func (t *Trainer) Network() *feedforward.FeedforwardNetwork {
	return t.net
}

// Epoch returns the number of completed epochs, including Config.StartEpoch.
func (t *Trainer) Epoch() int {
	return t.epoch
}

// TrainBatch runs the forward and backward pass on b and updates the loss and
// accuracy evaluators. The gradients are applied by Step.
func (t *Trainer) TrainBatch(b *datasets.Batch) error {
	if b == nil || b.Data == nil {
		return errors.New("trainer: batch is closed")
	}
	if b.Size != t.cfg.BatchSize {
		return fmt.Errorf("trainer: batch of %d samples, graph expects %d", b.Size, t.cfg.BatchSize)
	}
	start := time.Now()
	if t.started.IsZero() {
		t.started = start
	}
	t.vm.Reset()
	if err := G.Let(t.x, b.Data); err != nil {
		return err
	}
	if err := G.Let(t.y, b.Labels); err != nil {
		return err
	}
	if err := t.vm.RunAll(); err != nil {
		return fmt.Errorf("trainer: run: %w", err)
	}
	loss, err := scalar(t.costVal)
	if err != nil {
		return err
	}
	prob, ok := t.probVal.Data().([]float64)
	if !ok {
		return fmt.Errorf("trainer: unexpected output %T", t.probVal.Data())
	}
	for i, truth := range b.Truth {
		if floats.MaxIdx(prob[i*t.classes:(i+1)*t.classes]) == truth {
			t.correct++
		}
	}
	t.seen += b.Size
	t.batches++
	t.window.Record(b.Size, time.Since(start), loss)
	t.pending = true
	return nil
}

// Step applies the pending gradients with the solver.
func (t *Trainer) Step() error {
	if !t.pending {
		return ErrNoGradients
	}
	t.pending = false
	if err := t.solver.Step(G.NodesToValueGrads(t.laid.Learnables())); err != nil {
		return fmt.Errorf("trainer: solver: %w", err)
	}
	t.vm.Reset()
	return nil
}

// IterateDataset returns an iterator over shuffled batches of src. Every epoch
// shuffles differently.
func (t *Trainer) IterateDataset(src datasets.Source) *datasets.Iterator {
	return datasets.Sampler{
		BatchSize: t.cfg.BatchSize,
		Shuffle:   true,
		Seed:      t.cfg.Seed + int64(t.epoch),
	}.Iterate(src)
}

// NotifyEpoch closes the current epoch: every listener receives its statistics and
// the evaluators are reset.
func (t *Trainer) NotifyEpoch() EpochStats {
	t.epoch++
	snap := t.window.Snapshot()
	stats := EpochStats{
		Epoch:         t.epoch,
		Batches:       t.batches,
		Samples:       t.seen,
		Loss:          snap.AvgLoss,
		SamplesPerSec: snap.SamplesPerSec,
	}
	if t.seen > 0 {
		stats.Accuracy = float64(t.correct) / float64(t.seen)
	}
	if !t.started.IsZero() {
		stats.Elapsed = time.Since(t.started)
	}
	for _, l := range t.cfg.Listeners {
		l.OnEpoch(stats)
	}
	t.batches, t.correct, t.seen = 0, 0, 0
	t.started = time.Time{}
	return stats
}

// Commit copies the trained values into the network parameters.
func (t *Trainer) Commit() error {
	return t.laid.Commit()
}

// Close releases the machine.
func (t *Trainer) Close() error {
	return t.vm.Close()
}

func scalar(v G.Value) (float64, error) {
	if v == nil {
		return 0, errors.New("trainer: cost was not computed")
	}
	switch d := v.Data().(type) {
	case float64:
		return d, nil
	case []float64:
		if len(d) == 1 {
			return d[0], nil
		}
	}
	return 0, fmt.Errorf("trainer: unexpected cost %T", v.Data())
}
