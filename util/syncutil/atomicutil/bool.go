package atomicutil

import (
	"strconv"
	"sync/atomic"
)

// Bool is a boolean flag that may be read and mutated concurrently by any
// number of goroutines without locking. The value is stored in a single 32-bit
// word as 0 (false) or 1 (true), and every mutation is a single atomic
// instruction, so no goroutine ever observes a torn or intermediate state.
//
// The zero value is a valid cell holding false. A Bool must not be copied after
// first use - share it by pointer.
//
// All operations are sequentially consistent (see the Go memory model): the
// operations on one Bool admit a single total order that is consistent with the
// program order of each goroutine.
type Bool struct {
	v atomic.Int32
}

// NewBool creates a new Bool holding the given initial value.
func NewBool(initial bool) *Bool {
	b := &Bool{}
	if initial {
		b.v.Store(1)
	}
	return b
}

func b2i(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// Get returns the current value.
func (b *Bool) Get() bool {
	return b.v.Load() != 0
}

// Set unconditionally stores the given value.
func (b *Bool) Set(val bool) {
	b.v.Store(b2i(val))
}

// LazySet eventually stores the given value. The contract is that of a
// release-only store: writes made by the caller before LazySet are visible to a
// goroutine that subsequently observes the new value, but a concurrent reader
// that does not synchronize with the caller may briefly still see the old value.
//
// Go's atomics offer no store weaker than sequentially consistent, hence the
// implementation is a plain Set, which satisfies the weaker contract.
func (b *Bool) LazySet(val bool) {
	b.v.Store(b2i(val))
}

// CompareAndSet atomically sets the value to update if the current value equals
// expected. It returns true if the swap took place, false if the current value
// differs from expected - in which case the value is left unchanged.
//
// CompareAndSet never fails spuriously and never retries.
func (b *Bool) CompareAndSet(expected, update bool) bool {
	return b.v.CompareAndSwap(b2i(expected), b2i(update))
}

// WeakCompareAndSet has the same logical contract as CompareAndSet, but is
// permitted to fail spuriously, i.e. return false even though the current value
// equals expected. Callers must therefore invoke it in a loop that re-reads the
// value and tries again, and never treat false as a definitive answer.
//
// The native CAS width equals the width of the flag's word, so this
// implementation never actually fails spuriously. See SpuriousBool for a
// variant that does.
func (b *Bool) WeakCompareAndSet(expected, update bool) bool {
	return b.v.CompareAndSwap(b2i(expected), b2i(update))
}

// GetAndSet atomically sets the value to val and returns the previous value.
//
// The swap is a CAS spin loop: read the current value, attempt to replace it,
// and re-read and retry if another goroutine changed it in between. The
// returned value is the one replaced by the successful CAS. The loop is
// lock-free but not wait-free: it busy-spins and never blocks.
func (b *Bool) GetAndSet(val bool) bool {
	for {
		prev := b.Get()
		if b.CompareAndSet(prev, val) {
			return prev
		}
	}
}

// String returns "true" or "false".
func (b *Bool) String() string {
	return strconv.FormatBool(b.Get())
}
