// Package layer provides benchmarks for the dense layer.
package layer

import (
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/backprop/internal/activations"
)

func benchInput(rows, cols int) *mat.Dense {
	r := rand.New(rand.NewPCG(3, 4))
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = r.Float64()
	}
	return mat.NewDense(rows, cols, data)
}

// BenchmarkDenseForward benchmarks the first MNIST layer on a batch of 128.
func BenchmarkDenseForward(b *testing.B) {
	d, err := NewDense(784, 1024, activations.Sigmoid{}, "random", rand.NewPCG(1, 2))
	if err != nil {
		b.Fatal(err)
	}
	x := benchInput(784, 128)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = d.Forward(x)
	}
}

// BenchmarkDenseBackward benchmarks the output layer gradients.
func BenchmarkDenseBackward(b *testing.B) {
	d, err := NewDense(2048, 10, activations.Softmax{}, "random", rand.NewPCG(1, 2))
	if err != nil {
		b.Fatal(err)
	}
	input := benchInput(2048, 128)
	gradA := benchInput(10, 128)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = d.Backward(gradA, input)
	}
}

// BenchmarkRandomInit benchmarks initialising the largest weight matrix.
func BenchmarkRandomInit(b *testing.B) {
	src := rand.NewPCG(1, 2)
	for i := 0; i < b.N; i++ {
		_ = Random(1024, 2048, src)
	}
}
