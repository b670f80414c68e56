// Package trainer runs the epoch loop of the classifier: training passes with
// weight updates, validation passes without, and callbacks for reporting.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/backprop/internal/data"
	"github.com/FlavioCFOliveira/backprop/internal/net"
)

// ErrEmptyDataset is returned when an iterator yields no batch.
var ErrEmptyDataset = errors.New("trainer: iterator yielded no batches")

// Options configures Run.
type Options struct {
	Epochs    int
	Callbacks []Callback
}

// EpochStats is what one epoch produced. Losses are means over batches.
type EpochStats struct {
	Epoch         int
	TrainLoss     float64
	ValidLoss     float64
	ValidAccuracy float64
	HasValidation bool
	Duration      time.Duration
	SamplesPerSec float64
	AvgDataMS     float64
	AvgComputeMS  float64
}

// History records the stats of every completed epoch.
type History struct {
	Epochs []EpochStats
}

// Last returns the stats of the last completed epoch.
func (h *History) Last() (EpochStats, bool) {
	if len(h.Epochs) == 0 {
		return EpochStats{}, false
	}
	return h.Epochs[len(h.Epochs)-1], true
}

// Run trains model for opts.Epochs passes over train, evaluating on valid
// after each one when valid is not nil. Cancellation of ctx is observed
// between batches; the history of completed epochs is returned with the
// context error.
func Run(ctx context.Context, model *net.Classifier, train, valid *data.Iterator, opts Options) (*History, error) {
	if model == nil {
		return nil, errors.New("trainer: nil model")
	}
	if train == nil {
		return nil, errors.New("trainer: nil training iterator")
	}
	if opts.Epochs <= 0 {
		return nil, fmt.Errorf("trainer: epochs must be > 0 (got %d)", opts.Epochs)
	}

	hist := &History{}
	for _, cb := range opts.Callbacks {
		cb.OnTrainBegin(model)
	}
	defer func() {
		for _, cb := range opts.Callbacks {
			cb.OnTrainEnd(model)
		}
	}()

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		for _, cb := range opts.Callbacks {
			cb.OnEpochBegin(epoch, model)
		}

		start := time.Now()
		stats := EpochStats{Epoch: epoch}
		var err error
		if stats.TrainLoss, err = trainEpoch(ctx, model, train, opts.Callbacks, &stats); err != nil {
			return hist, fmt.Errorf("epoch %d: %w", epoch, err)
		}
		if valid != nil {
			if stats.ValidLoss, stats.ValidAccuracy, err = Evaluate(ctx, model, valid); err != nil {
				return hist, fmt.Errorf("epoch %d: validation: %w", epoch, err)
			}
			stats.HasValidation = true
		}
		stats.Duration = time.Since(start)
		hist.Epochs = append(hist.Epochs, stats)

		for _, cb := range opts.Callbacks {
			cb.OnEpochEnd(epoch, stats, model)
		}
		if stopRequested(opts.Callbacks) {
			break
		}
	}
	return hist, nil
}

// trainEpoch runs one training pass and returns the mean batch loss. The
// loss of a batch is that of its prediction before the update.
func trainEpoch(ctx context.Context, model *net.Classifier, it *data.Iterator, callbacks []Callback, stats *EpochStats) (float64, error) {
	model.EnterTrainingMode()
	classes := model.Sizes()[net.NumLayers]

	var w window
	total, batches := 0.0, 0
	it.Reset()
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		startData := time.Now()
		b, ok := it.Next()
		if !ok {
			break
		}
		x, target, err := data.Preprocess(b, classes)
		if err != nil {
			return 0, err
		}
		dataTime := time.Since(startData)

		for _, cb := range callbacks {
			cb.OnBatchBegin(batches, model)
		}
		startCompute := time.Now()
		loss, err := trainStep(model, x, target)
		if err != nil {
			return 0, fmt.Errorf("batch %d: %w", batches, err)
		}
		w.record(b.Len(), dataTime, time.Since(startCompute))
		for _, cb := range callbacks {
			cb.OnBatchEnd(batches, loss, model)
		}

		total += loss
		batches++
	}
	if batches == 0 {
		return 0, ErrEmptyDataset
	}
	w.snapshot(stats)
	return total / float64(batches), nil
}

func trainStep(model *net.Classifier, x, target *mat.Dense) (float64, error) {
	prediction, cache, err := model.Forward(x)
	if err != nil {
		return 0, err
	}
	grads, err := model.Backward(target, prediction, cache)
	if err != nil {
		return 0, err
	}
	if err := model.UpdateWeights(grads); err != nil {
		return 0, err
	}
	return model.Loss(prediction, target)
}

// Evaluate puts model in evaluation mode and returns the mean batch loss
// and the sample accuracy over one pass of it.
func Evaluate(ctx context.Context, model *net.Classifier, it *data.Iterator) (loss, accuracy float64, err error) {
	model.EnterEvaluationMode()
	classes := model.Sizes()[net.NumLayers]

	total, batches, correct, seen := 0.0, 0, 0, 0
	it.Reset()
	for b, ok := it.Next(); ok; b, ok = it.Next() {
		if err := ctx.Err(); err != nil {
			return 0, 0, err
		}
		x, target, err := data.Preprocess(b, classes)
		if err != nil {
			return 0, 0, err
		}
		prediction, _, err := model.Forward(x)
		if err != nil {
			return 0, 0, err
		}
		l, err := model.Loss(prediction, target)
		if err != nil {
			return 0, 0, err
		}
		total += l
		batches++
		for j, class := range net.ArgMax(prediction) {
			if class == b.Labels[j] {
				correct++
			}
		}
		seen += b.Len()
	}
	if batches == 0 {
		return 0, 0, ErrEmptyDataset
	}
	return total / float64(batches), float64(correct) / float64(seen), nil
}
