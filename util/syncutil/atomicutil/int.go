package atomicutil

import "sync/atomic"

// Int64 returns a new stdlib atomic.Int64 holding v.
func Int64(v int64) *atomic.Int64 {
	ret := &atomic.Int64{}
	ret.Store(v)
	return ret
}
