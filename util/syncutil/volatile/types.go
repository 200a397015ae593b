package volatile

import (
	"encoding/json"
	"sync/atomic"

	"github.com/eluv-io/errors-go"

	"github.com/eluv-io/atomic-go/util/syncutil/atomicutil"
)

// Int64 is an atomic counter that marshals to and from a JSON number.
type Int64 struct {
	*atomic.Int64
}

func NewInt64(val int64) *Int64 {
	return &Int64{Int64: atomicutil.Int64(val)}
}

func (v *Int64) MarshalJSON() ([]byte, error) {
	var val int64
	if v.Int64 != nil {
		val = v.Load()
	}
	return json.Marshal(val)
}

func (v *Int64) UnmarshalJSON(b []byte) error {
	var val int64
	err := json.Unmarshal(b, &val)
	if err != nil {
		return errors.E("Int64.UnmarshalJSON", errors.K.Invalid, err, "json", string(b))
	}
	if v.Int64 == nil {
		v.Int64 = atomicutil.Int64(val)
	} else {
		v.Store(val)
	}
	return nil
}

// Max atomically raises the value to val if val is larger and returns the
// resulting value.
func (v *Int64) Max(val int64) int64 {
	for {
		cur := v.Load()
		if val <= cur {
			return cur
		}
		if v.CompareAndSwap(cur, val) {
			return val
		}
	}
}
