package trainer

import "time"

// window accumulates timing stats across the batches of an epoch.
type window struct {
	samples int
	data    time.Duration
	compute time.Duration
	steps   int
}

// record adds one batch measurement.
func (w *window) record(batchSize int, dataTime, computeTime time.Duration) {
	w.samples += batchSize
	w.data += dataTime
	w.compute += computeTime
	w.steps++
}

// snapshot writes the aggregated metrics into s and resets the window.
func (w *window) snapshot(s *EpochStats) {
	total := w.data + w.compute
	if total > 0 {
		s.SamplesPerSec = float64(w.samples) / total.Seconds()
	}
	if w.steps > 0 {
		s.AvgDataMS = (w.data.Seconds() * 1000) / float64(w.steps)
		s.AvgComputeMS = (w.compute.Seconds() * 1000) / float64(w.steps)
	}
	*w = window{}
}
