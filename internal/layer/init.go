package layer

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrUnknownInitMethod is returned for an unregistered init method tag.
var ErrUnknownInitMethod = errors.New("unknown init method")

// RandomStdDev is the standard deviation of the "random" initializer.
const RandomStdDev = 0.01

// InitFunc builds a (neuronsIn, neuronsOut) weight matrix.
// src may be nil, in which case the global source is used.
type InitFunc func(neuronsIn, neuronsOut int, src rand.Source) *mat.Dense

var initMethods = map[string]InitFunc{
	"random": Random,
}

// RegisterInit adds or replaces an init method. Not safe for concurrent use;
// call it from package init functions.
func RegisterInit(name string, fn InitFunc) {
	initMethods[name] = fn
}

// InitMethods lists the registered method tags in sorted order.
func InitMethods() []string {
	names := make([]string, 0, len(initMethods))
	for name := range initMethods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Initialize builds a weight matrix using the named method.
func Initialize(method string, neuronsIn, neuronsOut int, src rand.Source) (*mat.Dense, error) {
	fn, ok := initMethods[method]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownInitMethod, method)
	}
	if neuronsIn <= 0 || neuronsOut <= 0 {
		return nil, fmt.Errorf("invalid layer shape (%d,%d)", neuronsIn, neuronsOut)
	}
	return fn(neuronsIn, neuronsOut, src), nil
}

// Random draws every weight independently from N(0, 0.01²).
func Random(neuronsIn, neuronsOut int, src rand.Source) *mat.Dense {
	dist := distuv.Normal{Mu: 0, Sigma: RandomStdDev, Src: src}
	data := make([]float64, neuronsIn*neuronsOut)
	for i := range data {
		data[i] = dist.Rand()
	}
	return mat.NewDense(neuronsIn, neuronsOut, data)
}
