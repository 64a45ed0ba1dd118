package metrics

import "time"

// Window accumulates throughput and loss across multiple steps.
type Window struct {
	samples int
	elapsed time.Duration
	steps   int
	loss    float64
}

// Record adds a new measurement to the window.
func (w *Window) Record(batchSize int, elapsed time.Duration, loss float64) {
	w.samples += batchSize
	w.elapsed += elapsed
	w.steps++
	w.loss += loss
}

// Steps reports how many measurements the window holds.
func (w *Window) Steps() int {
	return w.steps
}

// Snapshot returns aggregated metrics and resets the window.
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{Steps: w.steps, Samples: w.samples}
	if w.elapsed > 0 {
		snap.SamplesPerSec = float64(w.samples) / w.elapsed.Seconds()
	}
	if w.steps > 0 {
		snap.AvgLoss = w.loss / float64(w.steps)
		snap.AvgStepMS = (w.elapsed.Seconds() * 1000) / float64(w.steps)
	}
	*w = Window{}
	return snap
}

// Snapshot represents loggable metrics.
type Snapshot struct {
	Steps         int
	Samples       int
	SamplesPerSec float64
	AvgStepMS     float64
	AvgLoss       float64
}
