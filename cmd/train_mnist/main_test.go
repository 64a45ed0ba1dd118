package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurlang/mldemos/config"
	"github.com/neurlang/mldemos/model/registry"
	"github.com/neurlang/mldemos/trainer"
)

func TestNewEntry(t *testing.T) {
	cfg := &config.Train{ModelName: "mlp", ModelDir: "build/mlp"}

	e := newEntry(cfg, 2, nil)
	assert.Equal(t, "mlp", e.Name)
	assert.Equal(t, "build/mlp", e.Dir)
	assert.Equal(t, 2, e.Epoch)
	assert.False(t, e.Evaluated)
	assert.Zero(t, e.Accuracy)
	assert.False(t, e.SavedAt.IsZero())

	e = newEntry(cfg, 2, &trainer.Evaluation{Correct: 3, Total: 4})
	assert.True(t, e.Evaluated)
	assert.InDelta(t, 0.75, e.Accuracy, 1e-12)
}

func TestRecord(t *testing.T) {
	cfg := &config.Train{ModelName: "mlp", ModelDir: "build/mlp", Registry: filepath.Join(t.TempDir(), "models.db")}
	require.NoError(t, record(cfg, newEntry(cfg, 1, nil)))

	reg, err := registry.Open(cfg.Registry)
	require.NoError(t, err)
	defer reg.Close()
	got, err := reg.Get("mlp")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Epoch)
	assert.False(t, got.Evaluated)
}
