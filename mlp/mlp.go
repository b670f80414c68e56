// Package mlp is the public entry point of the module. It re-exports the
// three-layer classifier, its data pipeline and the training loop.
package mlp

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/backprop/internal/data"
	"github.com/FlavioCFOliveira/backprop/internal/layer"
	"github.com/FlavioCFOliveira/backprop/internal/linalg"
	"github.com/FlavioCFOliveira/backprop/internal/net"
	"github.com/FlavioCFOliveira/backprop/internal/trainer"
)

// Re-export common types and functions for easier access
type (
	Classifier = net.Classifier
	Config     = net.Config
	Cache      = net.Cache
	Mode       = net.Mode
	ShapeError = linalg.ShapeError

	Dataset  = data.Dataset
	Batch    = data.Batch
	Iterator = data.Iterator

	Options    = trainer.Options
	History    = trainer.History
	EpochStats = trainer.EpochStats
	Callback   = trainer.Callback
)

// Modes
const (
	ModeUnset      = net.ModeUnset
	ModeTraining   = net.ModeTraining
	ModeEvaluation = net.ModeEvaluation
)

// Errors
var (
	ErrUnknownInitMethod = layer.ErrUnknownInitMethod
	ErrNotInTrainingMode = net.ErrNotInTrainingMode
	ErrShapeMismatch     = linalg.ErrShapeMismatch
	ErrInvalidCache      = net.ErrInvalidCache
	ErrLabelOutOfRange   = data.ErrLabelOutOfRange
)

// Model creation
func New(cfg Config) (*Classifier, error) {
	return net.New(cfg)
}

func DefaultConfig() Config {
	return net.DefaultConfig()
}

func Load(filename string) (*Classifier, error) {
	return net.Load(filename)
}

// Data
func LoadMNIST(dir string, train bool, maxSamples int) (*Dataset, error) {
	return data.LoadMNIST(dir, train, maxSamples)
}

func Synthetic(n, rows, cols, classes int, seed uint64) (*Dataset, error) {
	return data.Synthetic(n, rows, cols, classes, seed)
}

func NewIterator(ds *Dataset, batchSize int, shuffle bool, seed uint64) (*Iterator, error) {
	return data.NewIterator(ds, batchSize, shuffle, seed)
}

func Preprocess(b Batch, classes int) (x, t *mat.Dense, err error) {
	return data.Preprocess(b, classes)
}

// Training
func Train(ctx context.Context, model *Classifier, train, valid *Iterator, opts Options) (*History, error) {
	return trainer.Run(ctx, model, train, valid, opts)
}
