package atomicutil

import (
	"github.com/eluv-io/errors-go"
)

// Cell is the set of operations a CAS spin loop is built from.
type Cell interface {
	Get() bool
	CompareAndSet(expected, update bool) bool
	WeakCompareAndSet(expected, update bool) bool
}

// Spin atomically replaces the value of the given cell with fn(current) in a
// compare-and-set retry loop and returns the value that was replaced, together
// with the number of CAS attempts it took.
//
// The loop uses WeakCompareAndSet and re-reads the current value after every
// failed attempt, so the returned value is always the one that actually existed
// in the cell at the instant of the successful CAS. fn may be called multiple
// times and must be free of side effects.
//
// If maxAttempts is zero or negative, the loop retries until it succeeds.
// Otherwise it gives up after maxAttempts failed attempts and returns an error
// of kind Unavailable - this call then has not modified the cell.
func Spin(c Cell, fn func(bool) bool, maxAttempts int) (prev bool, attempts int, err error) {
	for maxAttempts <= 0 || attempts < maxAttempts {
		attempts++
		prev = c.Get()
		if c.WeakCompareAndSet(prev, fn(prev)) {
			return prev, attempts, nil
		}
	}
	return prev, attempts, errors.E("Spin", errors.K.Unavailable,
		"reason", "retry limit reached",
		"attempts", attempts)
}

func identity(val bool) func(bool) bool {
	return func(bool) bool { return val }
}

func not(b bool) bool { return !b }

// GetAndUpdate atomically replaces the current value with fn(current) and
// returns the previous value.
func (b *Bool) GetAndUpdate(fn func(bool) bool) bool {
	prev, _, _ := Spin(b, fn, 0)
	return prev
}

// UpdateAndGet atomically replaces the current value with fn(current) and
// returns the new value.
func (b *Bool) UpdateAndGet(fn func(bool) bool) bool {
	prev, _, _ := Spin(b, fn, 0)
	return fn(prev)
}

// GetAndToggle atomically inverts the value and returns the previous value.
func (b *Bool) GetAndToggle() bool {
	return b.GetAndUpdate(not)
}

// TryGetAndSet is the bounded version of GetAndSet: it gives up after
// maxAttempts failed CAS attempts and returns an error of kind Unavailable
// instead of spinning indefinitely. A maxAttempts of zero or less means no
// limit.
func (b *Bool) TryGetAndSet(val bool, maxAttempts int) (bool, error) {
	prev, _, err := Spin(b, identity(val), maxAttempts)
	if err != nil {
		return false, errors.E("TryGetAndSet", err)
	}
	return prev, nil
}
