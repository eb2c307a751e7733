package metrics

import "time"

// Window accumulates solve timing stats across training samples.
type Window struct {
	samples  int
	free     time.Duration
	clamped  time.Duration
	lastLoss float64
}

// Record adds one sample's free and clamped solve timings.
func (w *Window) Record(freeTime, clampedTime time.Duration) {
	w.samples++
	w.free += freeTime
	w.clamped += clampedTime
}

// SetLoss records the most recent epoch loss.
func (w *Window) SetLoss(loss float64) {
	w.lastLoss = loss
}

// Snapshot returns aggregated metrics and resets the window.
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{}
	total := w.free + w.clamped
	if total > 0 {
		// two equilibrium solves per sample
		snap.SolvesPerSec = float64(2*w.samples) / total.Seconds()
	}
	if w.samples > 0 {
		snap.AvgFreeMS = (w.free.Seconds() * 1000) / float64(w.samples)
		snap.AvgClampedMS = (w.clamped.Seconds() * 1000) / float64(w.samples)
	}
	snap.LastLoss = w.lastLoss

	w.samples = 0
	w.free = 0
	w.clamped = 0
	return snap
}

// Snapshot represents loggable metrics.
type Snapshot struct {
	SolvesPerSec float64
	AvgFreeMS    float64
	AvgClampedMS float64
	LastLoss     float64
}
