package data

import (
	"fmt"
	"math/rand/v2"
)

// syntheticNoise is the amplitude of the uniform pixel noise.
const syntheticNoise = 0.1

// Synthetic builds n noisy (rows, cols) images of classes distinct coarse
// block patterns. Sample i has label i % classes. Equal seeds give equal data.
func Synthetic(n, rows, cols, classes int, seed uint64) (*Dataset, error) {
	if n < 0 || rows <= 0 || cols <= 0 || classes <= 0 {
		return nil, fmt.Errorf("synthetic: invalid shape n=%d rows=%d cols=%d classes=%d", n, rows, cols, classes)
	}
	gridY, gridX := min(rows, 4), min(cols, 4)
	cells := gridY * gridX
	if cells < 63 && classes > 1<<cells {
		return nil, fmt.Errorf("synthetic: %d classes do not fit a %dx%d grid", classes, gridY, gridX)
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x5bd1e995))
	patterns := make([][]bool, classes)
	seen := make(map[string]bool, classes)
	for c := range patterns {
		for {
			p := make([]bool, cells)
			key := make([]byte, cells)
			for k := range p {
				p[k] = rng.IntN(2) == 1
				if p[k] {
					key[k] = 1
				}
			}
			if !seen[string(key)] {
				seen[string(key)] = true
				patterns[c] = p
				break
			}
		}
	}

	ds := &Dataset{
		Images:  make([][]float64, n),
		Labels:  make([]int, n),
		Rows:    rows,
		Cols:    cols,
		Classes: classes,
	}
	for i := range ds.Images {
		label := i % classes
		img := make([]float64, rows*cols)
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				noise := rng.Float64() * syntheticNoise
				if patterns[label][(y*gridY/rows)*gridX+x*gridX/cols] {
					img[y*cols+x] = 1 - noise
				} else {
					img[y*cols+x] = noise
				}
			}
		}
		ds.Images[i] = img
		ds.Labels[i] = label
	}
	return ds, nil
}
