package trainer

import (
	"log"
	"math"

	"github.com/FlavioCFOliveira/backprop/internal/net"
)

// Callback defines the interface for training callbacks.
type Callback interface {
	OnTrainBegin(c *net.Classifier)
	OnTrainEnd(c *net.Classifier)
	OnEpochBegin(epoch int, c *net.Classifier)
	OnEpochEnd(epoch int, stats EpochStats, c *net.Classifier)
	OnBatchBegin(batch int, c *net.Classifier)
	OnBatchEnd(batch int, loss float64, c *net.Classifier)
}

// Stopper is implemented by callbacks that can end training early.
type Stopper interface {
	StopTraining() bool
}

func stopRequested(callbacks []Callback) bool {
	for _, cb := range callbacks {
		if s, ok := cb.(Stopper); ok && s.StopTraining() {
			return true
		}
	}
	return false
}

// BaseCallback provides default empty implementations for Callback.
type BaseCallback struct{}

func (BaseCallback) OnTrainBegin(c *net.Classifier)                           {}
func (BaseCallback) OnTrainEnd(c *net.Classifier)                             {}
func (BaseCallback) OnEpochBegin(epoch int, c *net.Classifier)                {}
func (BaseCallback) OnEpochEnd(epoch int, stats EpochStats, c *net.Classifier) {}
func (BaseCallback) OnBatchBegin(batch int, c *net.Classifier)                {}
func (BaseCallback) OnBatchEnd(batch int, loss float64, c *net.Classifier)    {}

// Monitored quantities for EarlyStopping and ModelCheckpoint.
const (
	MonitorTrainLoss = "loss"
	MonitorValidLoss = "val_loss"
)

// monitored returns the quantity named by monitor. val_loss falls back to
// the training loss for epochs without validation.
func monitored(monitor string, s EpochStats) float64 {
	if monitor == MonitorValidLoss && s.HasValidation {
		return s.ValidLoss
	}
	return s.TrainLoss
}

// EarlyStopping stops training when a monitored loss has stopped improving.
type EarlyStopping struct {
	BaseCallback
	Patience  int
	Threshold float64
	Monitor   string // "loss" (default) or "val_loss"

	bestLoss     float64
	numBadEpochs int
	Stopped      bool
}

func NewEarlyStopping(patience int, threshold float64) *EarlyStopping {
	return &EarlyStopping{
		Patience:  patience,
		Threshold: threshold,
		Monitor:   MonitorTrainLoss,
		bestLoss:  math.Inf(1),
	}
}

func (e *EarlyStopping) OnTrainBegin(c *net.Classifier) {
	e.bestLoss = math.Inf(1)
	e.numBadEpochs = 0
	e.Stopped = false
}

func (e *EarlyStopping) OnEpochEnd(epoch int, stats EpochStats, c *net.Classifier) {
	loss := monitored(e.Monitor, stats)
	if loss < e.bestLoss-e.Threshold {
		e.bestLoss = loss
		e.numBadEpochs = 0
	} else {
		e.numBadEpochs++
	}

	if e.numBadEpochs >= e.Patience {
		log.Printf("early_stop epoch=%d %s=%.6f patience=%d", epoch, e.Monitor, loss, e.Patience)
		e.Stopped = true
	}
}

// StopTraining reports whether training should end.
func (e *EarlyStopping) StopTraining() bool {
	return e.Stopped
}

// ModelCheckpoint saves the model after every epoch if it's the best so far.
type ModelCheckpoint struct {
	BaseCallback
	Filename string
	Monitor  string // "loss" (default) or "val_loss"

	bestLoss float64
	// Err holds the error of the last save attempt, nil after a success.
	Err error
}

func NewModelCheckpoint(filename string) *ModelCheckpoint {
	return &ModelCheckpoint{
		Filename: filename,
		Monitor:  MonitorTrainLoss,
		bestLoss: math.Inf(1),
	}
}

func (m *ModelCheckpoint) OnEpochEnd(epoch int, stats EpochStats, c *net.Classifier) {
	loss := monitored(m.Monitor, stats)
	if loss >= m.bestLoss {
		return
	}
	m.bestLoss = loss
	if err := c.Save(m.Filename); err != nil {
		m.Err = err
		log.Printf("checkpoint epoch=%d error=%q", epoch, err)
		return
	}
	m.Err = nil
	log.Printf("checkpoint epoch=%d %s=%.6f file=%s", epoch, m.Monitor, loss, m.Filename)
}

// Logger logs training progress as key=value lines.
type Logger struct {
	BaseCallback
	Interval int
	// Out defaults to log.Default().
	Out *log.Logger
}

func (l Logger) OnEpochEnd(epoch int, stats EpochStats, c *net.Classifier) {
	if l.Interval <= 0 || epoch%l.Interval != 0 {
		return
	}
	out := l.Out
	if out == nil {
		out = log.Default()
	}
	if stats.HasValidation {
		out.Printf("epoch=%d train_loss=%.4f valid_loss=%.4f valid_acc=%.4f samples_per_sec=%.1f data_ms=%.2f compute_ms=%.2f",
			epoch, stats.TrainLoss, stats.ValidLoss, stats.ValidAccuracy,
			stats.SamplesPerSec, stats.AvgDataMS, stats.AvgComputeMS)
		return
	}
	out.Printf("epoch=%d train_loss=%.4f samples_per_sec=%.1f data_ms=%.2f compute_ms=%.2f",
		epoch, stats.TrainLoss, stats.SamplesPerSec, stats.AvgDataMS, stats.AvgComputeMS)
}
