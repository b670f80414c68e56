// Package layer provides the fully connected weight layer of the classifier.
package layer

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/backprop/internal/activations"
	"github.com/FlavioCFOliveira/backprop/internal/linalg"
)

// Dense is a fully connected layer without bias.
//
// Weights have shape (in, out) and examples travel as columns, so a batch of
// B inputs is an (in, B) matrix and the pre-activation is Wᵀ·h.
type Dense struct {
	weights *mat.Dense
	act     activations.MatrixActivation
	inSize  int
	outSize int
}

// NewDense creates a dense layer initialised with the named method.
func NewDense(in, out int, act activations.MatrixActivation, method string, src rand.Source) (*Dense, error) {
	w, err := Initialize(method, in, out, src)
	if err != nil {
		return nil, err
	}
	return &Dense{weights: w, act: act, inSize: in, outSize: out}, nil
}

// NewDenseFromWeights wraps an existing (in, out) weight matrix.
func NewDenseFromWeights(w *mat.Dense, act activations.MatrixActivation) *Dense {
	in, out := w.Dims()
	return &Dense{weights: w, act: act, inSize: in, outSize: out}
}

// Forward computes a = Wᵀ·h and returns a and act(a).
func (d *Dense) Forward(h mat.Matrix) (a, out *mat.Dense, err error) {
	a, err = linalg.MulTA(d.weights, h)
	if err != nil {
		return nil, nil, fmt.Errorf("dense forward: %w", err)
	}
	return a, d.act.Apply(a), nil
}

// Backward takes the gradient w.r.t. this layer's pre-activation and the
// input the layer saw during Forward. It returns the weight gradient, laid
// out like the weights, and the gradient w.r.t. the input.
func (d *Dense) Backward(gradA, input mat.Matrix) (gradW, gradIn *mat.Dense, err error) {
	if gradW, err = d.WeightGradient(gradA, input); err != nil {
		return nil, nil, err
	}
	if gradIn, err = d.InputGradient(gradA); err != nil {
		return nil, nil, err
	}
	return gradW, gradIn, nil
}

// WeightGradient returns (gradA·inputᵀ)ᵀ, shaped like the weights.
func (d *Dense) WeightGradient(gradA, input mat.Matrix) (*mat.Dense, error) {
	if r, _ := gradA.Dims(); r != d.outSize {
		return nil, fmt.Errorf("dense weight gradient: %w", &linalg.ShapeError{
			Op: "grad_a rows", Left: linalg.ShapeOf(gradA), Right: linalg.ShapeOf(d.weights.T()),
		})
	}
	if r, _ := input.Dims(); r != d.inSize {
		return nil, fmt.Errorf("dense weight gradient: %w", &linalg.ShapeError{
			Op: "input rows", Left: linalg.ShapeOf(input), Right: linalg.ShapeOf(d.weights),
		})
	}
	// (gradA·inputᵀ)ᵀ == input·gradAᵀ
	gradW, err := linalg.MulTB(input, gradA)
	if err != nil {
		return nil, fmt.Errorf("dense weight gradient: %w", err)
	}
	return gradW, nil
}

// InputGradient returns W·gradA.
func (d *Dense) InputGradient(gradA mat.Matrix) (*mat.Dense, error) {
	gradIn, err := linalg.Mul(d.weights, gradA)
	if err != nil {
		return nil, fmt.Errorf("dense input gradient: %w", err)
	}
	return gradIn, nil
}

// Weights returns the weight matrix. Callers must not modify it.
func (d *Dense) Weights() *mat.Dense {
	return d.weights
}

// SetWeights replaces the weight matrix. The shape must not change.
func (d *Dense) SetWeights(w *mat.Dense) error {
	if err := linalg.SameShape("set weights", d.weights, w); err != nil {
		return err
	}
	d.weights = w
	return nil
}

// InSize returns the input size of the layer.
func (d *Dense) InSize() int {
	return d.inSize
}

// OutSize returns the output size of the layer.
func (d *Dense) OutSize() int {
	return d.outSize
}

// Activation returns the activation function used by this layer.
func (d *Dense) Activation() activations.MatrixActivation {
	return d.act
}
