package engine

import (
	"sync/atomic"
	"time"
)

// FrameClock converts wall-clock frames into simulation deltas
// Paused time is never reported, and a single delta never exceeds maxDelta so a stalled
// terminal cannot teleport agents through obstacles
type FrameClock struct {
	provider TimeProvider
	maxDelta time.Duration

	last   time.Time
	paused atomic.Bool
}

// NewFrameClock starts a clock at the provider's current time
func NewFrameClock(provider TimeProvider, maxDelta time.Duration) *FrameClock {
	if provider == nil {
		provider = MonotonicTimeProvider{}
	}
	return &FrameClock{
		provider: provider,
		maxDelta: maxDelta,
		last:     provider.Now(),
	}
}

// Next returns seconds since the previous call, 0 while paused
func (fc *FrameClock) Next() float64 {
	now := fc.provider.Now()
	delta := now.Sub(fc.last)
	fc.last = now

	if fc.paused.Load() || delta <= 0 {
		return 0
	}
	if fc.maxDelta > 0 && delta > fc.maxDelta {
		delta = fc.maxDelta
	}
	return delta.Seconds()
}

func (fc *FrameClock) Pause() {
	fc.paused.Store(true)
}

// Resume restarts delta measurement from now, discarding the paused interval
func (fc *FrameClock) Resume() {
	if fc.paused.CompareAndSwap(true, false) {
		fc.last = fc.provider.Now()
	}
}

// Toggle flips the pause state and returns true when now paused
func (fc *FrameClock) Toggle() bool {
	if fc.paused.Load() {
		fc.Resume()
		return false
	}
	fc.Pause()
	return true
}

func (fc *FrameClock) IsPaused() bool {
	return fc.paused.Load()
}
