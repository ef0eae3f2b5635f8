package concurrency

import "sync/atomic"

// StopSignal is a one-way flag shared by the workers of one attack. It
// starts unset and, once set, stays set.
type StopSignal struct {
	set atomic.Bool
}

func NewStopSignal() *StopSignal {
	return &StopSignal{}
}

// Set raises the signal. It reports true only for the first caller.
func (s *StopSignal) Set() bool {
	return s.set.CompareAndSwap(false, true)
}

func (s *StopSignal) IsSet() bool {
	return s.set.Load()
}
