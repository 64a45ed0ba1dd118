package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindowSnapshot(t *testing.T) {
	var w Window
	w.Record(64, 30*time.Millisecond, 1.2)
	w.Record(64, 30*time.Millisecond, 0.8)
	snap := w.Snapshot()
	assert.InDelta(t, 2133.33, snap.SamplesPerSec, 1)
	assert.InDelta(t, 1.0, snap.AvgLoss, 1e-9)
	assert.InDelta(t, 30.0, snap.AvgStepMS, 1e-6)
	assert.Equal(t, 128, snap.Samples)
	assert.Equal(t, 0, w.Steps(), "window was not reset")
}

func TestNewWithoutAddressIsNoOp(t *testing.T) {
	client, err := New("")
	assert.NoError(t, err)
	assert.NoError(t, client.Gauge(EpochLoss, 1, nil, 1))
}
