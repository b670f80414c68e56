// Package net provides the feed-forward classifier.
package net

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/backprop/internal/activations"
	"github.com/FlavioCFOliveira/backprop/internal/layer"
	"github.com/FlavioCFOliveira/backprop/internal/linalg"
	"github.com/FlavioCFOliveira/backprop/internal/loss"
	"github.com/FlavioCFOliveira/backprop/internal/opt"
)

var (
	// ErrNotInTrainingMode is returned by UpdateWeights outside training mode.
	ErrNotInTrainingMode = errors.New("weights can only be updated in training mode")

	// ErrInvalidCache is returned by Backward for a nil or partial cache.
	ErrInvalidCache = errors.New("invalid activation cache")

	// ErrInvalidConfig is returned by New for an unusable configuration.
	ErrInvalidConfig = errors.New("invalid classifier config")
)

// NumLayers is the number of weight layers of the classifier.
const NumLayers = 3

// Config describes a classifier.
type Config struct {
	InputSize        int
	HiddenLayersSize []int
	OutputSize       int
	Init             string
	LearningRate     float64
	// Seed feeds the weight initializer, so equal seeds give equal weights.
	Seed uint64
}

// DefaultConfig returns the 784→1024→2048→10 MNIST configuration.
func DefaultConfig() Config {
	return Config{
		InputSize:        784,
		HiddenLayersSize: []int{1024, 2048},
		OutputSize:       10,
		Init:             "random",
		LearningRate:     1e-3,
	}
}

// Sizes returns [input, hidden1, hidden2, output].
func (c Config) Sizes() ([NumLayers + 1]int, error) {
	var sizes [NumLayers + 1]int
	if len(c.HiddenLayersSize) != NumLayers-1 {
		return sizes, fmt.Errorf("%w: want %d hidden layer sizes, got %d",
			ErrInvalidConfig, NumLayers-1, len(c.HiddenLayersSize))
	}
	sizes[0] = c.InputSize
	copy(sizes[1:], c.HiddenLayersSize)
	sizes[NumLayers] = c.OutputSize
	for i, s := range sizes {
		if s <= 0 {
			return sizes, fmt.Errorf("%w: layer size %d is %d", ErrInvalidConfig, i, s)
		}
	}
	return sizes, nil
}

// Classifier is a fully connected network with two sigmoid hidden layers and
// a softmax output, trained with cross entropy and plain gradient descent.
// It is not safe for concurrent use.
type Classifier struct {
	sizes  [NumLayers + 1]int
	layers []*layer.Dense
	method string
	loss   loss.CrossEntropy
	opt    opt.SGD
	mode   Mode
}

// New creates a classifier and initialises its weights.
func New(cfg Config) (*Classifier, error) {
	sizes, err := cfg.Sizes()
	if err != nil {
		return nil, err
	}
	if cfg.LearningRate <= 0 {
		return nil, fmt.Errorf("%w: learning rate must be > 0 (got %v)", ErrInvalidConfig, cfg.LearningRate)
	}

	src := rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)
	layers := make([]*layer.Dense, NumLayers)
	for i := range layers {
		d, err := layer.NewDense(sizes[i], sizes[i+1], activationFor(i), cfg.Init, src)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i+1, err)
		}
		layers[i] = d
	}

	return &Classifier{
		sizes:  sizes,
		layers: layers,
		method: cfg.Init,
		opt:    opt.SGD{LearningRate: cfg.LearningRate},
	}, nil
}

// activationFor returns sigmoid for hidden layers and softmax for the output.
func activationFor(i int) activations.MatrixActivation {
	if i == NumLayers-1 {
		return activations.Softmax{}
	}
	return activations.Sigmoid{}
}

// Forward runs x, shaped (input_size, batch), through the network and
// returns the (output_size, batch) prediction with the cache for Backward.
func (c *Classifier) Forward(x *mat.Dense) (*mat.Dense, *Cache, error) {
	if x == nil {
		return nil, nil, errors.New("forward: nil input")
	}
	hs := make([]*mat.Dense, 0, NumLayers+1)
	as := make([]*mat.Dense, 0, NumLayers)

	h := x
	hs = append(hs, h)
	for i, l := range c.layers {
		a, out, err := l.Forward(h)
		if err != nil {
			return nil, nil, fmt.Errorf("forward layer %d: %w", i+1, err)
		}
		as = append(as, a)
		hs = append(hs, out)
		h = out
	}
	return h, newCache(hs, as), nil
}

// Backward computes the gradient of the summed cross entropy with respect
// to each weight matrix. It does not modify the classifier.
func (c *Classifier) Backward(target, prediction *mat.Dense, cache *Cache) ([]*mat.Dense, error) {
	if !cache.complete() {
		return nil, ErrInvalidCache
	}
	if prediction != cache.H3 && !mat.Equal(prediction, cache.H3) {
		return nil, fmt.Errorf("%w: prediction does not match cache", ErrInvalidCache)
	}

	gradA, err := c.loss.Backward(prediction, target)
	if err != nil {
		return nil, fmt.Errorf("backward output: %w", err)
	}

	inputs := cache.inputs()
	preActs := cache.preActivations()
	grads := make([]*mat.Dense, len(c.layers))
	for i := len(c.layers) - 1; i >= 0; i-- {
		l := c.layers[i]
		if i == 0 {
			if grads[0], err = l.WeightGradient(gradA, inputs[0]); err != nil {
				return nil, fmt.Errorf("backward layer 1: %w", err)
			}
			break
		}

		gradW, gradH, err := l.Backward(gradA, inputs[i])
		if err != nil {
			return nil, fmt.Errorf("backward layer %d: %w", i+1, err)
		}
		grads[i] = gradW
		act, ok := c.layers[i-1].Activation().(activations.Differentiable)
		if !ok {
			return nil, fmt.Errorf("backward layer %d: activation %T has no elementwise derivative", i, c.layers[i-1].Activation())
		}
		if gradA, err = linalg.Hadamard(gradH, act.ApplyDerivative(preActs[i-1])); err != nil {
			return nil, fmt.Errorf("backward layer %d: %w", i, err)
		}
	}
	return grads, nil
}

// UpdateWeights replaces every weight matrix W[i] with W[i] - lr*grads[i].
// Nothing changes unless the classifier is in training mode and every
// gradient has the shape of its weight matrix.
func (c *Classifier) UpdateWeights(grads []*mat.Dense) error {
	if c.mode != ModeTraining {
		return fmt.Errorf("%w (mode %s)", ErrNotInTrainingMode, c.mode)
	}
	if len(grads) != len(c.layers) {
		return fmt.Errorf("update weights: %w: got %d gradients for %d layers",
			linalg.ErrShapeMismatch, len(grads), len(c.layers))
	}

	updated := make([]*mat.Dense, len(c.layers))
	for i, l := range c.layers {
		if grads[i] == nil {
			return fmt.Errorf("update weights: gradient %d is nil", i)
		}
		w, err := c.opt.Step(l.Weights(), grads[i])
		if err != nil {
			return fmt.Errorf("update layer %d: %w", i+1, err)
		}
		updated[i] = w
	}
	for i, l := range c.layers {
		if err := l.SetWeights(updated[i]); err != nil {
			return err
		}
	}
	return nil
}

// Loss returns the mean cross entropy of prediction against one-hot target.
func (c *Classifier) Loss(prediction, target mat.Matrix) (float64, error) {
	return c.loss.Forward(prediction, target)
}

// Sizes returns [input, hidden1, hidden2, output].
func (c *Classifier) Sizes() [NumLayers + 1]int {
	return c.sizes
}

// LearningRate returns the gradient descent step size.
func (c *Classifier) LearningRate() float64 {
	return c.opt.LearningRate
}

// SetLearningRate changes the gradient descent step size.
func (c *Classifier) SetLearningRate(lr float64) error {
	if lr <= 0 {
		return fmt.Errorf("%w: learning rate must be > 0 (got %v)", ErrInvalidConfig, lr)
	}
	c.opt.LearningRate = lr
	return nil
}

// Weights returns copies of the weight matrices in layer order.
func (c *Classifier) Weights() []*mat.Dense {
	ws := make([]*mat.Dense, len(c.layers))
	for i, l := range c.layers {
		ws[i] = mat.DenseCopyOf(l.Weights())
	}
	return ws
}

// SetWeights replaces the weight matrices. Shapes must match the topology.
// Unlike UpdateWeights it ignores the mode; it exists for loading and tests.
func (c *Classifier) SetWeights(ws []*mat.Dense) error {
	if len(ws) != len(c.layers) {
		return fmt.Errorf("set weights: %w: got %d matrices for %d layers",
			linalg.ErrShapeMismatch, len(ws), len(c.layers))
	}
	for i, l := range c.layers {
		if err := linalg.SameShape("set weights", l.Weights(), ws[i]); err != nil {
			return fmt.Errorf("layer %d: %w", i+1, err)
		}
	}
	for i, l := range c.layers {
		_ = l.SetWeights(mat.DenseCopyOf(ws[i]))
	}
	return nil
}
