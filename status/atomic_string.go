package status

import (
	"sync/atomic"
)

// MaxStringLen bounds stored labels; a canonical UUID fits
const MaxStringLen = 40

// AtomicString holds a short label, zero value reads ""
type AtomicString struct {
	ptr atomic.Pointer[string]
}

// Store truncates to MaxStringLen bytes
func (s *AtomicString) Store(v string) {
	if len(v) > MaxStringLen {
		v = v[:MaxStringLen]
	}
	s.ptr.Store(&v)
}

func (s *AtomicString) Load() string {
	if p := s.ptr.Load(); p != nil {
		return *p
	}
	return ""
}
