package status

import (
	"math"
	"sync/atomic"
)

// AtomicFloat mirrors atomic.Int64's Load/Store surface for float64 gauges
// such as sim.elapsed; the value lives in a uint64 as IEEE-754 bits
type AtomicFloat struct {
	v atomic.Uint64
}

func (a *AtomicFloat) Store(x float64) { a.v.Store(math.Float64bits(x)) }

func (a *AtomicFloat) Load() float64 { return math.Float64frombits(a.v.Load()) }

// Add is a CAS retry on the bit pattern, concurrent adders never lose an update
func (a *AtomicFloat) Add(delta float64) (sum float64) {
	for old := a.v.Load(); ; old = a.v.Load() {
		sum = math.Float64frombits(old) + delta
		if a.v.CompareAndSwap(old, math.Float64bits(sum)) {
			return sum
		}
	}
}
