// Package linalg provides shape-checked helpers over gonum dense matrices.
//
// gonum panics with mat.ErrShape when operand dimensions disagree. The
// helpers here check shapes first and return a *ShapeError instead, so
// callers can surface the mismatch as an ordinary error.
package linalg

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrShapeMismatch is matched by every *ShapeError.
var ErrShapeMismatch = errors.New("shape mismatch")

// Shape is a (rows, cols) pair.
type Shape struct {
	Rows, Cols int
}

func (s Shape) String() string {
	return fmt.Sprintf("(%d,%d)", s.Rows, s.Cols)
}

// ShapeOf returns the dimensions of m.
func ShapeOf(m mat.Matrix) Shape {
	r, c := m.Dims()
	return Shape{Rows: r, Cols: c}
}

// ShapeError reports an operation whose operands do not fit together.
type ShapeError struct {
	Op          string
	Left, Right Shape
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %v: %v vs %v", e.Op, ErrShapeMismatch, e.Left, e.Right)
}

// Is reports whether target is ErrShapeMismatch.
func (e *ShapeError) Is(target error) bool {
	return target == ErrShapeMismatch
}

func newShapeError(op string, a, b mat.Matrix) *ShapeError {
	return &ShapeError{Op: op, Left: ShapeOf(a), Right: ShapeOf(b)}
}

// SameShape returns a *ShapeError unless a and b have identical dimensions.
func SameShape(op string, a, b mat.Matrix) error {
	if ShapeOf(a) != ShapeOf(b) {
		return newShapeError(op, a, b)
	}
	return nil
}

// Mul returns a·b.
func Mul(a, b mat.Matrix) (*mat.Dense, error) {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ac != br {
		return nil, newShapeError("mul", a, b)
	}
	out := mat.NewDense(ar, bc, nil)
	out.Mul(a, b)
	return out, nil
}

// MulTA returns aᵀ·b without materialising the transpose.
func MulTA(a, b mat.Matrix) (*mat.Dense, error) {
	return Mul(a.T(), b)
}

// MulTB returns a·bᵀ.
func MulTB(a, b mat.Matrix) (*mat.Dense, error) {
	return Mul(a, b.T())
}

// Hadamard returns the elementwise product a⊙b.
func Hadamard(a, b mat.Matrix) (*mat.Dense, error) {
	if err := SameShape("hadamard", a, b); err != nil {
		return nil, err
	}
	r, c := a.Dims()
	out := mat.NewDense(r, c, nil)
	out.MulElem(a, b)
	return out, nil
}

// Sub returns a−b.
func Sub(a, b mat.Matrix) (*mat.Dense, error) {
	if err := SameShape("sub", a, b); err != nil {
		return nil, err
	}
	r, c := a.Dims()
	out := mat.NewDense(r, c, nil)
	out.Sub(a, b)
	return out, nil
}

// Apply returns a new matrix with fn applied to every element of m.
func Apply(fn func(x float64) float64, m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, _ int, v float64) float64 { return fn(v) }, m)
	return out
}
