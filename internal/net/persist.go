package net

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/backprop/internal/layer"
)

// header is the first gob value of a saved classifier.
type header struct {
	Sizes        [NumLayers + 1]int
	LearningRate float64
	Init         string
}

// Save saves the classifier to a file using gob encoding.
// The mode is not saved.
func (c *Classifier) Save(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := c.Encode(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Encode writes the classifier to w: a header followed by the row-major
// data of each weight matrix in layer order.
func (c *Classifier) Encode(w io.Writer) error {
	encoder := gob.NewEncoder(w)

	h := header{Sizes: c.sizes, LearningRate: c.opt.LearningRate, Init: c.method}
	if err := encoder.Encode(h); err != nil {
		return fmt.Errorf("failed to encode header: %w", err)
	}

	for i, l := range c.layers {
		if err := encoder.Encode(mat.DenseCopyOf(l.Weights()).RawMatrix().Data); err != nil {
			return fmt.Errorf("failed to encode layer %d: %w", i+1, err)
		}
	}
	return nil
}

// Load loads a classifier from a file written by Save.
// The returned classifier is in ModeUnset.
func Load(filename string) (*Classifier, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Decode(file)
}

// Decode reads a classifier written by Encode.
func Decode(r io.Reader) (*Classifier, error) {
	decoder := gob.NewDecoder(r)

	var h header
	if err := decoder.Decode(&h); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cfg := Config{
		InputSize:        h.Sizes[0],
		HiddenLayersSize: h.Sizes[1:NumLayers],
		OutputSize:       h.Sizes[NumLayers],
		Init:             h.Init,
		LearningRate:     h.LearningRate,
	}
	sizes, err := cfg.Sizes()
	if err != nil {
		return nil, err
	}
	if cfg.LearningRate <= 0 {
		return nil, fmt.Errorf("%w: learning rate must be > 0 (got %v)", ErrInvalidConfig, cfg.LearningRate)
	}

	layers := make([]*layer.Dense, NumLayers)
	for i := range layers {
		var data []float64
		if err := decoder.Decode(&data); err != nil {
			return nil, fmt.Errorf("failed to read layer %d: %w", i+1, err)
		}
		in, out := sizes[i], sizes[i+1]
		if len(data) != in*out {
			return nil, fmt.Errorf("layer %d: got %d weights, want %d", i+1, len(data), in*out)
		}
		layers[i] = layer.NewDenseFromWeights(mat.NewDense(in, out, data), activationFor(i))
	}

	c := &Classifier{
		sizes:  sizes,
		layers: layers,
		method: h.Init,
	}
	c.opt.LearningRate = h.LearningRate
	return c, nil
}
