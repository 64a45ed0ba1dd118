package registry

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.db")
	r, err := Open(path)
	require.NoError(t, err)

	saved := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, r.Put(Entry{Name: "mlp", Dir: "build/mlp", Epoch: 2, Accuracy: 0.97, SavedAt: saved}))
	require.NoError(t, r.Put(Entry{Name: "big", Dir: "build/big", Epoch: 5}))
	require.NoError(t, r.Put(Entry{Name: "mlp", Dir: "build/mlp", Epoch: 3, SavedAt: saved}))

	e, err := r.Get("mlp")
	require.NoError(t, err)
	assert.Equal(t, 3, e.Epoch)
	assert.True(t, saved.Equal(e.SavedAt))

	all, err := r.List()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "big", all[0].Name)
	assert.Equal(t, "mlp", all[1].Name)

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrUnknownModel)
	assert.Error(t, r.Put(Entry{}))
	require.NoError(t, r.Close())

	// reopen keeps entries
	r, err = Open(path)
	require.NoError(t, err)
	defer r.Close()
	e, err = r.Get("big")
	require.NoError(t, err)
	assert.Equal(t, "build/big", e.Dir)
}
