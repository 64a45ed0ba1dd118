package datasets

import (
	"errors"
	"math/rand"
	"sync"

	"gorgonia.org/tensor"
)

// Batch is a group of samples stacked along a new leading axis, with one-hot labels.
// The backing buffers belong to the iterator that produced the batch; Close returns
// them for reuse and must be called once the batch is no longer needed.
type Batch struct {
	Data   *tensor.Dense // (Size, sample shape...)
	Labels *tensor.Dense // (Size, classes), one-hot
	Truth  []int         // label index of every sample
	Size   int

	buf  *buffers
	pool *sync.Pool
}

// Close releases the batch buffers. Calling Close more than once is harmless.
func (b *Batch) Close() {
	if b.buf != nil && b.pool != nil {
		b.pool.Put(b.buf)
	}
	b.buf = nil
	b.Data = nil
	b.Labels = nil
	b.Truth = nil
}

type buffers struct {
	data   []float64
	onehot []float64
	truth  []int
}

// Sampler describes how a Source is cut into batches. Incomplete trailing batches
// are dropped, so every batch holds exactly BatchSize samples.
type Sampler struct {
	BatchSize int
	Shuffle   bool
	Seed      int64
}

// Iterator walks a Source batch by batch.
//
//	it := sampler.Iterate(src)
//	for it.Next() {
//		batch := it.Batch()
//		...
//		batch.Close()
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator struct {
	src     Source
	order   []int
	pos     int
	size    int
	shape   tensor.Shape
	classes int
	pool    *sync.Pool
	cur     *Batch
	err     error
}

// ErrBatchSize is reported by an iterator whose sampler has no positive batch size.
var ErrBatchSize = errors.New("datasets: batch size must be > 0")

// Iterate starts a pass over src.
func (s Sampler) Iterate(src Source) *Iterator {
	it := &Iterator{src: src, size: s.BatchSize}
	if s.BatchSize <= 0 {
		it.err = ErrBatchSize
		return it
	}
	it.shape = src.Shape()
	it.classes = src.Classes()
	it.order = make([]int, src.Len())
	for i := range it.order {
		it.order[i] = i
	}
	if s.Shuffle {
		rng := rand.New(rand.NewSource(s.Seed))
		rng.Shuffle(len(it.order), func(i, j int) {
			it.order[i], it.order[j] = it.order[j], it.order[i]
		})
	}
	sampleSize := it.shape.TotalSize()
	it.pool = &sync.Pool{New: func() interface{} {
		return &buffers{
			data:   make([]float64, s.BatchSize*sampleSize),
			onehot: make([]float64, s.BatchSize*it.classes),
			truth:  make([]int, s.BatchSize),
		}
	}}
	return it
}

// Len returns the number of batches a full pass yields.
func (it *Iterator) Len() int {
	if it.size <= 0 {
		return 0
	}
	return len(it.order) / it.size
}

// Next prepares the next batch and reports whether there is one.
func (it *Iterator) Next() bool {
	if it.err != nil || it.pos+it.size > len(it.order) {
		it.cur = nil
		return false
	}
	buf := it.pool.Get().(*buffers)
	clear(buf.onehot)
	sampleSize := it.shape.TotalSize()
	for j := 0; j < it.size; j++ {
		label := it.src.Fill(it.order[it.pos+j], buf.data[j*sampleSize:(j+1)*sampleSize])
		buf.truth[j] = label
		buf.onehot[j*it.classes+label] = 1
	}
	it.pos += it.size

	shape := append(tensor.Shape{it.size}, it.shape...)
	it.cur = &Batch{
		Data:   tensor.New(tensor.WithShape(shape...), tensor.WithBacking(buf.data)),
		Labels: tensor.New(tensor.WithShape(it.size, it.classes), tensor.WithBacking(buf.onehot)),
		Truth:  buf.truth,
		Size:   it.size,
		buf:    buf,
		pool:   it.pool,
	}
	return true
}

// Batch returns the batch prepared by the last call to Next.
func (it *Iterator) Batch() *Batch {
	return it.cur
}

// Err returns the error which stopped the iteration, if any.
func (it *Iterator) Err() error {
	return it.err
}
