package net

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Predict returns the most probable class of every column of x.
func (c *Classifier) Predict(x *mat.Dense) ([]int, error) {
	prediction, _, err := c.Forward(x)
	if err != nil {
		return nil, err
	}
	return ArgMax(prediction), nil
}

// ArgMax returns the row index of the largest entry of each column.
func ArgMax(m mat.Matrix) []int {
	r, n := m.Dims()
	out := make([]int, n)
	col := make([]float64, r)
	for j := range out {
		mat.Col(col, j, m)
		out[j] = floats.MaxIdx(col)
	}
	return out
}

// Accuracy returns the fraction of predicted classes equal to labels.
func Accuracy(predicted, labels []int) float64 {
	if len(predicted) == 0 || len(predicted) != len(labels) {
		return 0
	}
	correct := 0
	for i := range predicted {
		if predicted[i] == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(labels))
}

// Summary prints a summary of the network architecture.
func (c *Classifier) Summary(w io.Writer) {
	fmt.Fprintln(w, "Model: FeedForwardClassifier")
	fmt.Fprintln(w, "_________________________________________________________________")
	fmt.Fprintf(w, "%-25s %-20s %-10s\n", "Layer (activation)", "Weight Shape", "Param #")
	fmt.Fprintln(w, "=================================================================")

	totalParams := 0
	for i, l := range c.layers {
		act := fmt.Sprintf("%T", l.Activation())
		// Extract simple type name
		for j := len(act) - 1; j >= 0; j-- {
			if act[j] == '.' {
				act = act[j+1:]
				break
			}
		}

		params := l.InSize() * l.OutSize()
		totalParams += params

		fmt.Fprintf(w, "%-25s %-20s %-10d\n",
			fmt.Sprintf("dense_%d (%s)", i+1, act),
			fmt.Sprintf("(%d, %d)", l.InSize(), l.OutSize()),
			params)
	}
	fmt.Fprintln(w, "=================================================================")
	fmt.Fprintf(w, "Total params: %d\n", totalParams)
	fmt.Fprintf(w, "Mode: %s  Learning rate: %g\n", c.mode, c.opt.LearningRate)
	fmt.Fprintln(w, "_________________________________________________________________")
}
