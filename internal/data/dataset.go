// Package data provides the batch source for the classifier: MNIST readers,
// a synthetic dataset, a batch iterator and batch preprocessing.
package data

import (
	"errors"
	"fmt"
)

// ErrLabelOutOfRange is returned when a label is not a valid class index.
var ErrLabelOutOfRange = errors.New("label out of range")

// Dataset holds flattened images with their class labels.
type Dataset struct {
	Images  [][]float64 // [num_samples][Rows*Cols], values in [0, 1]
	Labels  []int       // [num_samples]
	Rows    int
	Cols    int
	Classes int
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	return len(d.Images)
}

// Features returns the flattened image size.
func (d *Dataset) Features() int {
	return d.Rows * d.Cols
}

// Validate checks that images and labels agree in count, size and range.
func (d *Dataset) Validate() error {
	if len(d.Images) != len(d.Labels) {
		return fmt.Errorf("%d images but %d labels", len(d.Images), len(d.Labels))
	}
	for i, img := range d.Images {
		if len(img) != d.Features() {
			return fmt.Errorf("image %d has %d pixels, want %d", i, len(img), d.Features())
		}
		if d.Labels[i] < 0 || d.Labels[i] >= d.Classes {
			return fmt.Errorf("sample %d: %w: %d not in [0, %d)", i, ErrLabelOutOfRange, d.Labels[i], d.Classes)
		}
	}
	return nil
}

// Split holds out the last n samples. It returns the remaining samples and
// the hold-out set; both share storage with d.
func (d *Dataset) Split(n int) (*Dataset, *Dataset) {
	if n < 0 {
		n = 0
	}
	if n > d.Len() {
		n = d.Len()
	}
	at := d.Len() - n

	head := *d
	head.Images, head.Labels = d.Images[:at], d.Labels[:at]
	tail := *d
	tail.Images, tail.Labels = d.Images[at:], d.Labels[at:]
	return &head, &tail
}
