package data

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Preprocess turns a batch into the classifier's layout: x is (features, B)
// with one flattened image per column and t is the (classes, B) one-hot
// target with t[label[j], j] = 1.
func Preprocess(b Batch, classes int) (x, t *mat.Dense, err error) {
	n := b.Len()
	if n == 0 || len(b.Images) != n {
		return nil, nil, fmt.Errorf("preprocess: %d images and %d labels", len(b.Images), n)
	}
	if classes <= 0 {
		return nil, nil, fmt.Errorf("preprocess: classes must be > 0 (got %d)", classes)
	}
	features := len(b.Images[0])
	if features == 0 {
		return nil, nil, fmt.Errorf("preprocess: empty image")
	}

	x = mat.NewDense(features, n, nil)
	t = mat.NewDense(classes, n, nil)
	for j, img := range b.Images {
		if len(img) != features {
			return nil, nil, fmt.Errorf("preprocess: image %d has %d pixels, want %d", j, len(img), features)
		}
		label := b.Labels[j]
		if label < 0 || label >= classes {
			return nil, nil, fmt.Errorf("preprocess: sample %d: %w: %d not in [0, %d)", j, ErrLabelOutOfRange, label, classes)
		}
		x.SetCol(j, img)
		t.Set(label, j, 1)
	}
	return x, t, nil
}
