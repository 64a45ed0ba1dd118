package datasets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func tinySource(t *testing.T, n int) *Slice {
	t.Helper()
	inputs := make([][]float64, n)
	labels := make([]int, n)
	for i := range inputs {
		inputs[i] = []float64{float64(i), float64(i) + 0.5}
		labels[i] = i % 3
	}
	src, err := NewSlice(inputs, labels, tensor.Shape{1, 2}, 3)
	require.NoError(t, err)
	return src
}

func TestIterateBatchesInOrder(t *testing.T) {
	src := tinySource(t, 7)
	it := Sampler{BatchSize: 3}.Iterate(src)
	assert.Equal(t, 2, it.Len())

	var seen []float64
	batches := 0
	for it.Next() {
		b := it.Batch()
		assert.Equal(t, tensor.Shape{3, 1, 2}, b.Data.Shape())
		assert.Equal(t, tensor.Shape{3, 3}, b.Labels.Shape())
		data := b.Data.Data().([]float64)
		onehot := b.Labels.Data().([]float64)
		for j := 0; j < b.Size; j++ {
			seen = append(seen, data[2*j])
			assert.Equal(t, 1.0, onehot[j*3+b.Truth[j]])
		}
		b.Close()
		batches++
	}
	require.NoError(t, it.Err())
	assert.Equal(t, 2, batches, "trailing partial batch must be dropped")
	assert.Equal(t, []float64{0, 1, 2, 3, 4, 5}, seen)
}

func TestIterateShuffleIsSeeded(t *testing.T) {
	src := tinySource(t, 12)
	collect := func(seed int64) []int {
		var truth []int
		it := Sampler{BatchSize: 4, Shuffle: true, Seed: seed}.Iterate(src)
		for it.Next() {
			b := it.Batch()
			data := b.Data.Data().([]float64)
			for j := 0; j < b.Size; j++ {
				truth = append(truth, int(data[2*j]))
			}
			b.Close()
		}
		return truth
	}
	assert.Equal(t, collect(5), collect(5))
	assert.ElementsMatch(t, collect(5), collect(6))
}

func TestBatchCloseReleasesBuffers(t *testing.T) {
	src := tinySource(t, 4)
	it := Sampler{BatchSize: 2}.Iterate(src)
	require.True(t, it.Next())
	b := it.Batch()
	b.Close()
	assert.Nil(t, b.Data)
	assert.Nil(t, b.Labels)
	b.Close()

	require.True(t, it.Next())
	b2 := it.Batch()
	onehot := b2.Labels.Data().([]float64)
	ones := 0
	for _, v := range onehot {
		if v == 1 {
			ones++
		}
	}
	assert.Equal(t, 2, ones, "reused one-hot buffer must be cleared")
	b2.Close()
}

func TestIterateRejectsBadBatchSize(t *testing.T) {
	it := Sampler{}.Iterate(tinySource(t, 2))
	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Err(), ErrBatchSize)
}

func TestNewSliceValidates(t *testing.T) {
	_, err := NewSlice([][]float64{{1}}, []int{0, 1}, tensor.Shape{1}, 2)
	assert.Error(t, err)
	_, err = NewSlice([][]float64{{1, 2}}, []int{0}, tensor.Shape{1}, 2)
	assert.Error(t, err)
	_, err = NewSlice([][]float64{{1}}, []int{5}, tensor.Shape{1}, 2)
	assert.Error(t, err)
}
