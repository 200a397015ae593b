package atomicutil

import (
	"math"
	"math/rand"

	"github.com/eluv-io/errors-go"
	"go.uber.org/atomic"
)

// SpuriousBool is a Bool whose WeakCompareAndSet genuinely fails spuriously:
// with the configured probability it returns false without looking at the
// cell, even if the comparison would have matched. It makes the weak CAS
// contract observable and is meant for testing that callers really retry.
//
// The strong CompareAndSet, Get, Set and LazySet behave exactly like those of
// the embedded Bool. GetAndSet, GetAndUpdate and GetAndToggle run through Spin
// and therefore retry on spurious failures.
type SpuriousBool struct {
	Bool
	failureRate float64
	failures    atomic.Int64
}

// NewSpuriousBool creates a SpuriousBool with the given initial value and
// probability of spurious weak CAS failures. The rate is clamped to [0, 0.99]:
// a weak CAS that always fails would make every retry loop spin forever. NaN is
// treated as 0.
func NewSpuriousBool(initial bool, failureRate float64) *SpuriousBool {
	if math.IsNaN(failureRate) || failureRate < 0 {
		failureRate = 0
	}
	if failureRate > 0.99 {
		failureRate = 0.99
	}
	b := &SpuriousBool{failureRate: failureRate}
	b.Set(initial)
	return b
}

// WeakCompareAndSet fails spuriously with the configured probability and
// otherwise delegates to the strong CompareAndSet.
func (b *SpuriousBool) WeakCompareAndSet(expected, update bool) bool {
	if b.failureRate > 0 && rand.Float64() < b.failureRate {
		b.failures.Inc()
		return false
	}
	return b.Bool.CompareAndSet(expected, update)
}

// GetAndSet atomically sets the value to val and returns the previous value.
func (b *SpuriousBool) GetAndSet(val bool) bool {
	prev, _, _ := Spin(b, identity(val), 0)
	return prev
}

// GetAndUpdate atomically replaces the current value with fn(current) and
// returns the previous value.
func (b *SpuriousBool) GetAndUpdate(fn func(bool) bool) bool {
	prev, _, _ := Spin(b, fn, 0)
	return prev
}

// UpdateAndGet atomically replaces the current value with fn(current) and
// returns the new value.
func (b *SpuriousBool) UpdateAndGet(fn func(bool) bool) bool {
	prev, _, _ := Spin(b, fn, 0)
	return fn(prev)
}

// GetAndToggle atomically inverts the value and returns the previous value.
func (b *SpuriousBool) GetAndToggle() bool {
	return b.GetAndUpdate(not)
}

// TryGetAndSet is the bounded version of GetAndSet, see Bool.TryGetAndSet.
func (b *SpuriousBool) TryGetAndSet(val bool, maxAttempts int) (bool, error) {
	prev, _, err := Spin(b, identity(val), maxAttempts)
	if err != nil {
		return false, errors.E("TryGetAndSet", err)
	}
	return prev, nil
}

// FailureRate returns the probability of a spurious weak CAS failure.
func (b *SpuriousBool) FailureRate() float64 {
	return b.failureRate
}

// SpuriousFailures returns the number of spurious failures so far.
func (b *SpuriousBool) SpuriousFailures() int64 {
	return b.failures.Load()
}
