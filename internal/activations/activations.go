// Package activations provides the activation functions of the classifier.
package activations

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/backprop/internal/linalg"
)

// Activation is an elementwise activation function with derivative.
type Activation interface {
	// Activate computes f(x)
	Activate(x float64) float64

	// Derivative computes f'(x)
	Derivative(x float64) float64
}

// MatrixActivation maps a pre-activation matrix, one example per column,
// to a new post-activation matrix of the same shape.
type MatrixActivation interface {
	Apply(a mat.Matrix) *mat.Dense
}

// Differentiable is a MatrixActivation whose derivative can be evaluated
// elementwise on the cached pre-activation.
type Differentiable interface {
	MatrixActivation
	ApplyDerivative(a mat.Matrix) *mat.Dense
}

// Sigmoid activation function.
type Sigmoid struct{}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Activate computes sigmoid(x)
func (s Sigmoid) Activate(x float64) float64 {
	return sigmoid(x)
}

// Derivative computes sigmoid(x) * (1 - sigmoid(x))
func (s Sigmoid) Derivative(x float64) float64 {
	sigma := sigmoid(x)
	return sigma * (1 - sigma)
}

// Apply computes sigmoid elementwise.
func (s Sigmoid) Apply(a mat.Matrix) *mat.Dense {
	return linalg.Apply(sigmoid, a)
}

// ApplyDerivative computes sigmoid'(a) elementwise on the pre-activation a.
func (s Sigmoid) ApplyDerivative(a mat.Matrix) *mat.Dense {
	return linalg.Apply(s.Derivative, a)
}

// Softmax activation for the output layer. It normalises each column
// independently, so it has no elementwise form.
type Softmax struct{}

// Apply computes softmax over every column of a.
// The column maximum is subtracted before exponentiation, so inputs of any
// magnitude produce finite probabilities that sum to one.
func (s Softmax) Apply(a mat.Matrix) *mat.Dense {
	r, c := a.Dims()
	out := mat.NewDense(r, c, nil)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, a)
		s.ActivateBatch(col)
		out.SetCol(j, col)
	}
	return out
}

// ActivateBatch computes softmax of x in place and returns it.
func (s Softmax) ActivateBatch(x []float64) []float64 {
	if len(x) == 0 {
		return x
	}
	floats.AddConst(-floats.Max(x), x)
	for i := range x {
		x[i] = math.Exp(x[i])
	}
	floats.Scale(1/floats.Sum(x), x)
	return x
}
