package status

import "sync/atomic"

// Metric keys written by the simulation and its host
const (
	KeyPreyCount       = "prey.count"
	KeyHunterCount     = "hunter.count"
	KeyConversionTotal = "conversion.total"
	KeyTick            = "tick"
	KeyStepMicros      = "step.last_us"
	KeyElapsed         = "sim.elapsed"

	KeyBoostPrey    = "boost.prey"
	KeyBoostHunters = "boost.hunter"
	KeyPaused       = "paused"

	KeyRunID           = "run.id"
	KeyObserverClients = "observer.clients"
	KeyRecorderDropped = "recorder.dropped"
)

// Registry groups typed metric maps shared between the simulation and its readers
type Registry struct {
	Bools   *MetricMap[atomic.Bool]
	Ints    *MetricMap[atomic.Int64]
	Floats  *MetricMap[AtomicFloat]
	Strings *MetricMap[AtomicString]
}

func NewRegistry() *Registry {
	return &Registry{
		Bools:   NewMetricMap[atomic.Bool](),
		Ints:    NewMetricMap[atomic.Int64](),
		Floats:  NewMetricMap[AtomicFloat](),
		Strings: NewMetricMap[AtomicString](),
	}
}

// TotalCount returns the number of registered metrics across all types
func (r *Registry) TotalCount() int {
	return r.Bools.Count() + r.Ints.Count() + r.Floats.Count() + r.Strings.Count()
}

// Export copies every metric into a flat map for JSON publication
func (r *Registry) Export() map[string]any {
	out := make(map[string]any, r.TotalCount())
	r.Bools.Range(func(k string, v *atomic.Bool) { out[k] = v.Load() })
	r.Ints.Range(func(k string, v *atomic.Int64) { out[k] = v.Load() })
	r.Floats.Range(func(k string, v *AtomicFloat) { out[k] = v.Load() })
	r.Strings.Range(func(k string, v *AtomicString) { out[k] = v.Load() })
	return out
}
