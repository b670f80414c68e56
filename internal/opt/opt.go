// Package opt provides optimization algorithms.
package opt

import (
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/backprop/internal/linalg"
)

// Optimizer updates network parameters based on gradients.
type Optimizer interface {
	// Step computes updated parameters: params - lr * gradients
	// Returns a new matrix; params is left untouched.
	Step(params, gradients mat.Matrix) (*mat.Dense, error)
}

// SGD (plain gradient descent) optimizer.
type SGD struct {
	LearningRate float64
}

// Step computes updated parameters: params - lr * gradients
func (s SGD) Step(params, gradients mat.Matrix) (*mat.Dense, error) {
	if err := linalg.SameShape("sgd step", params, gradients); err != nil {
		return nil, err
	}
	r, c := params.Dims()
	scaled := mat.NewDense(r, c, nil)
	scaled.Scale(s.LearningRate, gradients)

	updated := mat.NewDense(r, c, nil)
	updated.Sub(params, scaled)
	return updated, nil
}
