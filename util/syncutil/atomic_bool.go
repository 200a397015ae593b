package syncutil

import (
	"github.com/eluv-io/atomic-go/util/syncutil/atomicutil"
)

// AtomicBool is a flag that is safe to be used from multiple go routines. It is
// a thin convenience layer over atomicutil.Bool for the common flag usage:
// readiness flags, "stopped" markers and single-assignment latches.
//
// The zero value is an unset (false) flag.
type AtomicBool struct {
	b atomicutil.Bool
}

func (f *AtomicBool) IsTrue() bool  { return f.b.Get() }
func (f *AtomicBool) IsFalse() bool { return !f.b.Get() }
func (f *AtomicBool) SetTrue()      { f.b.Set(true) }
func (f *AtomicBool) SetFalse()     { f.b.Set(false) }

// TrySetTrue transitions the flag from false to true and reports whether this
// call performed the transition. Among any number of concurrent callers exactly
// one wins, which makes the flag usable as a latch that can only be claimed
// once.
func (f *AtomicBool) TrySetTrue() bool {
	return f.b.CompareAndSet(false, true)
}

func (f *AtomicBool) String() string { return f.b.String() }
