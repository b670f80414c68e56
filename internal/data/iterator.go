package data

import (
	"fmt"
	"math/rand/v2"
)

// Batch is a group of raw samples as returned by Iterator.Next.
type Batch struct {
	Images [][]float64
	Labels []int
}

// Len returns the number of samples in the batch.
func (b Batch) Len() int {
	return len(b.Labels)
}

// Iterator yields a Dataset in batches. It is finite and restartable: after
// Next reports false, Reset starts a new pass. Not safe for concurrent use.
type Iterator struct {
	ds        *Dataset
	batchSize int
	shuffle   bool
	rng       *rand.Rand
	order     []int
	pos       int
}

// NewIterator creates an iterator over ds. When shuffle is set the sample
// order is permuted on every pass using a generator seeded with seed.
func NewIterator(ds *Dataset, batchSize int, shuffle bool, seed uint64) (*Iterator, error) {
	if ds == nil {
		return nil, fmt.Errorf("iterator: nil dataset")
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("iterator: batch size must be > 0 (got %d)", batchSize)
	}
	it := &Iterator{
		ds:        ds,
		batchSize: batchSize,
		shuffle:   shuffle,
		rng:       rand.New(rand.NewPCG(seed, seed+1)),
		order:     make([]int, ds.Len()),
	}
	it.Reset()
	return it, nil
}

// Reset rewinds the iterator, reshuffling if enabled.
func (it *Iterator) Reset() {
	for i := range it.order {
		it.order[i] = i
	}
	if it.shuffle {
		it.rng.Shuffle(len(it.order), func(i, j int) {
			it.order[i], it.order[j] = it.order[j], it.order[i]
		})
	}
	it.pos = 0
}

// Next returns the next batch. The last batch of a pass may be short.
func (it *Iterator) Next() (Batch, bool) {
	if it.pos >= len(it.order) {
		return Batch{}, false
	}
	end := min(it.pos+it.batchSize, len(it.order))
	b := Batch{
		Images: make([][]float64, 0, end-it.pos),
		Labels: make([]int, 0, end-it.pos),
	}
	for _, idx := range it.order[it.pos:end] {
		b.Images = append(b.Images, it.ds.Images[idx])
		b.Labels = append(b.Labels, it.ds.Labels[idx])
	}
	it.pos = end
	return b, true
}

// NumBatches returns the number of batches in one pass.
func (it *Iterator) NumBatches() int {
	return (len(it.order) + it.batchSize - 1) / it.batchSize
}
