// Package net provides comprehensive unit tests for the classifier.
package net

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/backprop/internal/layer"
	"github.com/FlavioCFOliveira/backprop/internal/linalg"
)

// smallConfig is the [4,3,3,2] network used throughout these tests.
func smallConfig() Config {
	return Config{
		InputSize:        4,
		HiddenLayersSize: []int{3, 3},
		OutputSize:       2,
		Init:             "random",
		LearningRate:     0.1,
		Seed:             42,
	}
}

func newSmall(t *testing.T) *Classifier {
	t.Helper()
	c, err := New(smallConfig())
	require.NoError(t, err)
	return c
}

// smallBatch returns a (4,2) input and its (2,2) one-hot targets.
func smallBatch() (*mat.Dense, *mat.Dense) {
	x := mat.NewDense(4, 2, []float64{
		0.9, 0.1,
		0.2, 0.8,
		0.7, 0.3,
		0.0, 1.0,
	})
	target := mat.NewDense(2, 2, []float64{
		1, 0,
		0, 1,
	})
	return x, target
}

// randomizeWeights replaces the 0.01-scale init with larger weights so
// gradients are far from zero.
func randomizeWeights(t *testing.T, c *Classifier, seed uint64, scale float64) {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed))
	ws := c.Weights()
	for _, w := range ws {
		w.Apply(func(_, _ int, _ float64) float64 { return rng.NormFloat64() * scale }, w)
	}
	require.NoError(t, c.SetWeights(ws))
}

func TestNewDefaultShapes(t *testing.T) {
	c, err := New(DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, [4]int{784, 1024, 2048, 10}, c.Sizes())
	want := []linalg.Shape{
		{Rows: 784, Cols: 1024},
		{Rows: 1024, Cols: 2048},
		{Rows: 2048, Cols: 10},
	}
	for i, w := range c.Weights() {
		assert.Equal(t, want[i], linalg.ShapeOf(w), "layer %d", i+1)
	}
	assert.Equal(t, ModeUnset, c.Mode())
	assert.Equal(t, 1e-3, c.LearningRate())
}

func TestNewUnknownInitMethod(t *testing.T) {
	cfg := smallConfig()
	cfg.Init = "orthogonal"
	_, err := New(cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, layer.ErrUnknownInitMethod))
}

func TestNewInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"one hidden layer", func(c *Config) { c.HiddenLayersSize = []int{3} }},
		{"three hidden layers", func(c *Config) { c.HiddenLayersSize = []int{3, 3, 3} }},
		{"zero input", func(c *Config) { c.InputSize = 0 }},
		{"negative hidden", func(c *Config) { c.HiddenLayersSize = []int{3, -1} }},
		{"zero learning rate", func(c *Config) { c.LearningRate = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := smallConfig()
			tt.mutate(&cfg)
			_, err := New(cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestNewSeedReproducible(t *testing.T) {
	a := newSmall(t)
	b := newSmall(t)
	cfg := smallConfig()
	cfg.Seed = 43
	c, err := New(cfg)
	require.NoError(t, err)

	for i := range a.Weights() {
		assert.True(t, mat.Equal(a.Weights()[i], b.Weights()[i]))
	}
	assert.False(t, mat.Equal(a.Weights()[0], c.Weights()[0]))
}

// TestForwardColumnsAreDistributions checks shape and softmax columns.
func TestForwardColumnsAreDistributions(t *testing.T) {
	c := newSmall(t)
	randomizeWeights(t, c, 1, 3)
	rng := rand.New(rand.NewPCG(9, 9))

	for _, batch := range []int{1, 2, 5, 33} {
		x := mat.NewDense(4, batch, nil)
		x.Apply(func(_, _ int, _ float64) float64 { return rng.NormFloat64() * 10 }, x)

		pred, cache, err := c.Forward(x)
		require.NoError(t, err)
		assert.Equal(t, linalg.Shape{Rows: 2, Cols: batch}, linalg.ShapeOf(pred))
		assert.Same(t, pred, cache.H3)
		assert.Same(t, x, cache.H0)

		for j := 0; j < batch; j++ {
			col := mat.Col(nil, j, pred)
			assert.InDelta(t, 1.0, floats.Sum(col), 1e-9)
			assert.GreaterOrEqual(t, floats.Min(col), 0.0)
		}
	}
}

func TestForwardCacheMatchesDefinition(t *testing.T) {
	c := newSmall(t)
	x, _ := smallBatch()
	_, cache, err := c.Forward(x)
	require.NoError(t, err)

	ws := c.Weights()
	a1 := mat.NewDense(3, 2, nil)
	a1.Mul(ws[0].T(), x)
	assert.True(t, mat.EqualApprox(a1, cache.A1, 1e-15))

	h1 := mat.NewDense(3, 2, nil)
	h1.Apply(func(_, _ int, v float64) float64 { return 1 / (1 + math.Exp(-v)) }, a1)
	assert.True(t, mat.EqualApprox(h1, cache.H1, 1e-15))

	a3 := mat.NewDense(2, 2, nil)
	a3.Mul(ws[2].T(), cache.H2)
	assert.True(t, mat.EqualApprox(a3, cache.A3, 1e-15))
}

func TestForwardShapeMismatch(t *testing.T) {
	c := newSmall(t)
	_, _, err := c.Forward(mat.NewDense(5, 2, nil))
	assert.ErrorIs(t, err, linalg.ErrShapeMismatch)

	_, _, err = c.Forward(nil)
	assert.Error(t, err)
}

func TestForwardDoesNotMutateWeights(t *testing.T) {
	c := newSmall(t)
	before := c.Weights()
	x, _ := smallBatch()
	_, _, err := c.Forward(x)
	require.NoError(t, err)

	for i, w := range c.Weights() {
		assert.True(t, mat.Equal(before[i], w))
	}
}

// TestBackwardShapes checks that every gradient has its weight's shape.
func TestBackwardShapes(t *testing.T) {
	for _, cfg := range []Config{smallConfig(), {
		InputSize:        784,
		HiddenLayersSize: []int{1024, 2048},
		OutputSize:       10,
		Init:             "random",
		LearningRate:     1e-3,
	}} {
		c, err := New(cfg)
		require.NoError(t, err)

		x := mat.NewDense(cfg.InputSize, 2, nil)
		target := mat.NewDense(cfg.OutputSize, 2, nil)
		target.Set(0, 0, 1)
		target.Set(1, 1, 1)

		pred, cache, err := c.Forward(x)
		require.NoError(t, err)
		grads, err := c.Backward(target, pred, cache)
		require.NoError(t, err)

		require.Len(t, grads, NumLayers)
		for i, w := range c.Weights() {
			assert.Equal(t, linalg.ShapeOf(w), linalg.ShapeOf(grads[i]), "layer %d", i+1)
		}
	}
}

func TestBackwardErrors(t *testing.T) {
	c := newSmall(t)
	x, target := smallBatch()
	pred, cache, err := c.Forward(x)
	require.NoError(t, err)

	_, err = c.Backward(target, pred, nil)
	assert.ErrorIs(t, err, ErrInvalidCache)

	_, err = c.Backward(target, pred, &Cache{H0: x})
	assert.ErrorIs(t, err, ErrInvalidCache)

	_, err = c.Backward(mat.NewDense(3, 2, nil), pred, cache)
	assert.ErrorIs(t, err, linalg.ErrShapeMismatch)

	other := mat.DenseCopyOf(pred)
	other.Set(0, 0, other.At(0, 0)+1)
	_, err = c.Backward(target, other, cache)
	assert.ErrorIs(t, err, ErrInvalidCache)
}

func TestBackwardDoesNotMutate(t *testing.T) {
	c := newSmall(t)
	before := c.Weights()
	x, target := smallBatch()
	pred, cache, err := c.Forward(x)
	require.NoError(t, err)
	a1 := mat.DenseCopyOf(cache.A1)

	_, err = c.Backward(target, pred, cache)
	require.NoError(t, err)

	assert.True(t, mat.Equal(a1, cache.A1))
	for i, w := range c.Weights() {
		assert.True(t, mat.Equal(before[i], w))
	}
	assert.Equal(t, ModeUnset, c.Mode())
}

// TestGradientCheck compares analytic gradients with central differences.
// Backward returns the gradient of the summed loss while Loss is a mean, so
// the numeric derivative is scaled by the batch size.
func TestGradientCheck(t *testing.T) {
	for _, batch := range []int{1, 3} {
		t.Run(fmt.Sprintf("batch=%d", batch), func(t *testing.T) {
			c := newSmall(t)
			randomizeWeights(t, c, 5, 0.8)
			ws := c.Weights()

			rng := rand.New(rand.NewPCG(11, uint64(batch)))
			x := mat.NewDense(4, batch, nil)
			x.Apply(func(_, _ int, _ float64) float64 { return rng.Float64() }, x)
			target := mat.NewDense(2, batch, nil)
			for j := 0; j < batch; j++ {
				target.Set(j%2, j, 1)
			}

			pred, cache, err := c.Forward(x)
			require.NoError(t, err)
			grads, err := c.Backward(target, pred, cache)
			require.NoError(t, err)

			settings := &fd.Settings{Formula: fd.Central, Step: 1e-6}
			for l := range ws {
				r, cols := ws[l].Dims()
				for i := 0; i < r; i++ {
					for j := 0; j < cols; j++ {
						f := func(v float64) float64 {
							perturbed := c.Weights()
							perturbed[l].Set(i, j, v)
							require.NoError(t, c.SetWeights(perturbed))
							p, _, err := c.Forward(x)
							require.NoError(t, err)
							loss, err := c.Loss(p, target)
							require.NoError(t, err)
							return loss * float64(batch)
						}
						numeric := fd.Derivative(f, ws[l].At(i, j), settings)
						require.NoError(t, c.SetWeights(ws))

						assert.InDelta(t, numeric, grads[l].At(i, j), 1e-4,
							"W%d[%d,%d]", l+1, i, j)
					}
				}
			}
		})
	}
}

// TestGradientCheckSingleExample compares against the mean loss directly.
func TestGradientCheckSingleExample(t *testing.T) {
	c := newSmall(t)
	randomizeWeights(t, c, 6, 1)
	x := mat.NewDense(4, 1, []float64{0.3, -0.2, 0.9, 0.5})
	target := mat.NewDense(2, 1, []float64{0, 1})

	pred, cache, err := c.Forward(x)
	require.NoError(t, err)
	grads, err := c.Backward(target, pred, cache)
	require.NoError(t, err)

	ws := c.Weights()
	const eps = 1e-5
	plus := c.Weights()
	plus[0].Set(2, 1, ws[0].At(2, 1)+eps)
	require.NoError(t, c.SetWeights(plus))
	p, _, err := c.Forward(x)
	require.NoError(t, err)
	lossPlus, err := c.Loss(p, target)
	require.NoError(t, err)

	minus := c.Weights()
	minus[0].Set(2, 1, ws[0].At(2, 1)-eps)
	require.NoError(t, c.SetWeights(minus))
	p, _, err = c.Forward(x)
	require.NoError(t, err)
	lossMinus, err := c.Loss(p, target)
	require.NoError(t, err)

	assert.InDelta(t, (lossPlus-lossMinus)/(2*eps), grads[0].At(2, 1), 1e-4)
}

func TestUpdateWeights(t *testing.T) {
	c := newSmall(t)
	c.EnterTrainingMode()
	before := c.Weights()

	grads := make([]*mat.Dense, NumLayers)
	for i, w := range before {
		r, cols := w.Dims()
		grads[i] = mat.NewDense(r, cols, nil)
		grads[i].Apply(func(_, _ int, _ float64) float64 { return 1 }, grads[i])
	}
	require.NoError(t, c.UpdateWeights(grads))

	for i, w := range c.Weights() {
		want := mat.NewDense(w.RawMatrix().Rows, w.RawMatrix().Cols, nil)
		want.Apply(func(_, _ int, v float64) float64 { return v - 0.1 }, before[i])
		assert.True(t, mat.Equal(want, w), "layer %d", i+1)
	}
}

// TestUpdateWeightsOutsideTraining checks the mode gate and that weights are
// bit identical after a rejected update.
func TestUpdateWeightsOutsideTraining(t *testing.T) {
	c := newSmall(t)
	x, target := smallBatch()
	pred, cache, err := c.Forward(x)
	require.NoError(t, err)
	grads, err := c.Backward(target, pred, cache)
	require.NoError(t, err)

	before := c.Weights()

	// never set
	err = c.UpdateWeights(grads)
	assert.ErrorIs(t, err, ErrNotInTrainingMode)

	c.EnterEvaluationMode()
	c.EnterEvaluationMode()
	assert.Equal(t, ModeEvaluation, c.Mode())
	err = c.UpdateWeights(grads)
	assert.ErrorIs(t, err, ErrNotInTrainingMode)
	assert.Contains(t, err.Error(), "evaluation")

	for i, w := range c.Weights() {
		assert.Equal(t, before[i].RawMatrix().Data, w.RawMatrix().Data, "layer %d", i+1)
	}

	c.EnterTrainingMode()
	c.EnterTrainingMode()
	assert.Equal(t, ModeTraining, c.Mode())
	assert.NoError(t, c.UpdateWeights(grads))
}

func TestUpdateWeightsAllOrNothing(t *testing.T) {
	c := newSmall(t)
	c.EnterTrainingMode()
	before := c.Weights()

	grads := c.Weights()
	grads[2] = mat.NewDense(2, 3, nil) // transposed shape
	assert.ErrorIs(t, c.UpdateWeights(grads), linalg.ErrShapeMismatch)
	assert.ErrorIs(t, c.UpdateWeights(grads[:2]), linalg.ErrShapeMismatch)

	for i, w := range c.Weights() {
		assert.True(t, mat.Equal(before[i], w))
	}
}

// TestTrainingStepReducesLoss is the [4,3,3,2] end-to-end scenario.
func TestTrainingStepReducesLoss(t *testing.T) {
	c := newSmall(t)
	x, target := smallBatch()

	c.EnterTrainingMode()
	pred, cache, err := c.Forward(x)
	require.NoError(t, err)
	before, err := c.Loss(pred, target)
	require.NoError(t, err)

	grads, err := c.Backward(target, pred, cache)
	require.NoError(t, err)
	require.NoError(t, c.UpdateWeights(grads))

	c.EnterEvaluationMode()
	pred, _, err = c.Forward(x)
	require.NoError(t, err)
	after, err := c.Loss(pred, target)
	require.NoError(t, err)

	assert.Less(t, after, before)
	assert.False(t, math.IsNaN(after) || math.IsInf(after, 0))
}

func TestRepeatedTrainingConverges(t *testing.T) {
	c := newSmall(t)
	randomizeWeights(t, c, 21, 0.5)
	x := mat.NewDense(4, 4, []float64{
		1, 0, 1, 0,
		0, 1, 0, 1,
		1, 1, 0, 0,
		0, 0, 1, 1,
	})
	labels := []int{0, 1, 0, 1}
	target := mat.NewDense(2, 4, nil)
	for j, l := range labels {
		target.Set(l, j, 1)
	}

	c.EnterTrainingMode()
	var first, last float64
	for step := 0; step < 500; step++ {
		pred, cache, err := c.Forward(x)
		require.NoError(t, err)
		last, err = c.Loss(pred, target)
		require.NoError(t, err)
		if step == 0 {
			first = last
		}
		grads, err := c.Backward(target, pred, cache)
		require.NoError(t, err)
		require.NoError(t, c.UpdateWeights(grads))
	}
	assert.Less(t, last, first)
}

func TestSetWeightsValidation(t *testing.T) {
	c := newSmall(t)
	ws := c.Weights()
	assert.ErrorIs(t, c.SetWeights(ws[:1]), linalg.ErrShapeMismatch)

	ws[1] = mat.NewDense(4, 4, nil)
	assert.ErrorIs(t, c.SetWeights(ws), linalg.ErrShapeMismatch)
}

func TestWeightsReturnsCopies(t *testing.T) {
	c := newSmall(t)
	ws := c.Weights()
	ws[0].Set(0, 0, 1e6)
	assert.NotEqual(t, 1e6, c.Weights()[0].At(0, 0))
}

func TestSetLearningRate(t *testing.T) {
	c := newSmall(t)
	require.NoError(t, c.SetLearningRate(0.5))
	assert.Equal(t, 0.5, c.LearningRate())
	assert.ErrorIs(t, c.SetLearningRate(-1), ErrInvalidConfig)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "unset", ModeUnset.String())
	assert.Equal(t, "training", ModeTraining.String())
	assert.Equal(t, "evaluation", ModeEvaluation.String())
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := newSmall(t)
	randomizeWeights(t, c, 3, 1)
	c.EnterTrainingMode()

	var buf bytes.Buffer
	require.NoError(t, c.Encode(&buf))

	loaded, err := Decode(&buf)
	require.NoError(t, err)

	assert.Equal(t, c.Sizes(), loaded.Sizes())
	assert.Equal(t, c.LearningRate(), loaded.LearningRate())
	assert.Equal(t, ModeUnset, loaded.Mode())
	for i := range c.Weights() {
		assert.True(t, mat.Equal(c.Weights()[i], loaded.Weights()[i]))
	}

	x, _ := smallBatch()
	want, _, err := c.Forward(x)
	require.NoError(t, err)
	got, _, err := loaded.Forward(x)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
}

func TestSaveLoad(t *testing.T) {
	c := newSmall(t)
	path := filepath.Join(t.TempDir(), "model.gob")
	require.NoError(t, c.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, mat.Equal(c.Weights()[2], loaded.Weights()[2]))

	_, err = Load(filepath.Join(t.TempDir(), "missing.gob"))
	assert.Error(t, err)
}

func TestDecodeCorrupt(t *testing.T) {
	_, err := Decode(strings.NewReader("not a gob stream"))
	assert.Error(t, err)

	// header only, no weights
	c := newSmall(t)
	var buf bytes.Buffer
	require.NoError(t, c.Encode(&buf))
	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()/4])
	_, err = Decode(truncated)
	assert.Error(t, err)
}

func TestPredictAndAccuracy(t *testing.T) {
	m := mat.NewDense(3, 4, []float64{
		0.1, 0.8, 0.3, 0.2,
		0.7, 0.1, 0.3, 0.2,
		0.2, 0.1, 0.4, 0.6,
	})
	assert.Equal(t, []int{1, 0, 2, 2}, ArgMax(m))

	assert.Equal(t, 0.75, Accuracy([]int{1, 0, 2, 2}, []int{1, 0, 2, 0}))
	assert.Equal(t, 0.0, Accuracy(nil, nil))
	assert.Equal(t, 0.0, Accuracy([]int{1}, []int{1, 2}))

	c := newSmall(t)
	x, _ := smallBatch()
	classes, err := c.Predict(x)
	require.NoError(t, err)
	assert.Len(t, classes, 2)
}

func TestSummary(t *testing.T) {
	c := newSmall(t)
	var buf bytes.Buffer
	c.Summary(&buf)

	out := buf.String()
	assert.Contains(t, out, "dense_1 (Sigmoid)")
	assert.Contains(t, out, "dense_3 (Softmax)")
	assert.Contains(t, out, "Total params: 27")
}
