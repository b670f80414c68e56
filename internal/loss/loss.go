// Package loss provides the classification loss of the network.
package loss

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/backprop/internal/linalg"
)

// Loss is a loss function over a batch, one example per column.
type Loss interface {
	// Forward computes the mean loss of the batch.
	Forward(yPred, yTrue mat.Matrix) (float64, error)

	// Backward computes the gradient of the summed loss w.r.t. the
	// pre-activation of the output layer.
	Backward(yPred, yTrue mat.Matrix) (*mat.Dense, error)
}

// CrossEntropy loss for one-hot targets under a softmax output.
type CrossEntropy struct{}

// Forward computes -mean_j(log(sum_i(yPred[i,j] * yTrue[i,j]))).
//
// There is no clipping: a zero probability on the true class gives +Inf.
func (c CrossEntropy) Forward(yPred, yTrue mat.Matrix) (float64, error) {
	if err := linalg.SameShape("cross-entropy", yPred, yTrue); err != nil {
		return 0, err
	}
	r, n := yPred.Dims()
	if n == 0 {
		return math.NaN(), nil
	}

	pred := make([]float64, r)
	target := make([]float64, r)
	var sum float64
	for j := 0; j < n; j++ {
		mat.Col(pred, j, yPred)
		mat.Col(target, j, yTrue)
		sum += math.Log(floats.Dot(pred, target))
	}
	return -sum / float64(n), nil
}

// Backward computes yPred - yTrue, the gradient of cross entropy composed
// with softmax. It is not divided by the batch size.
func (c CrossEntropy) Backward(yPred, yTrue mat.Matrix) (*mat.Dense, error) {
	return linalg.Sub(yPred, yTrue)
}
