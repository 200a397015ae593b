package volatile

import (
	"encoding/json"
	"strconv"

	"github.com/eluv-io/errors-go"
	"github.com/ugorji/go/codec"

	"github.com/eluv-io/atomic-go/util/syncutil/atomicutil"
)

// Bool is an atomicutil.Bool that can be marshaled to and from JSON, text,
// binary and CBOR (through github.com/ugorji/go/codec). Only the current value
// is encoded. Decoding stores the value into the receiver and does not carry
// over any concurrency state: decoding into a nil *Bool allocates a new,
// independent cell.
//
// Use *Bool for struct fields, since all marshaling methods have pointer
// receivers.
type Bool struct {
	atomicutil.Bool
}

func NewBool(val bool) *Bool {
	b := &Bool{}
	b.Set(val)
	return b
}

func (b *Bool) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Get())
}

// UnmarshalJSON accepts true, false or null. null leaves the value unchanged.
func (b *Bool) UnmarshalJSON(data []byte) error {
	var val *bool
	err := json.Unmarshal(data, &val)
	if err != nil {
		return errors.E("Bool.UnmarshalJSON", errors.K.Invalid, err, "json", string(data))
	}
	if val != nil {
		b.Set(*val)
	}
	return nil
}

func (b *Bool) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *Bool) UnmarshalText(text []byte) error {
	val, err := strconv.ParseBool(string(text))
	if err != nil {
		return errors.E("Bool.UnmarshalText", errors.K.Invalid, err, "text", string(text))
	}
	b.Set(val)
	return nil
}

// MarshalBinary encodes the value as a single byte: 0 or 1.
func (b *Bool) MarshalBinary() ([]byte, error) {
	if b.Get() {
		return []byte{1}, nil
	}
	return []byte{0}, nil
}

func (b *Bool) UnmarshalBinary(data []byte) error {
	if len(data) != 1 || data[0] > 1 {
		return errors.E("Bool.UnmarshalBinary", errors.K.Invalid,
			"reason", "expected a single byte 0 or 1",
			"data", data)
	}
	b.Set(data[0] == 1)
	return nil
}

// CodecEncodeSelf encodes the value as a plain boolean.
func (b *Bool) CodecEncodeSelf(e *codec.Encoder) {
	e.MustEncode(b.Get())
}

// CodecDecodeSelf accepts a boolean or nil. nil leaves the value unchanged.
func (b *Bool) CodecDecodeSelf(d *codec.Decoder) {
	var val *bool
	d.MustDecode(&val)
	if val != nil {
		b.Set(*val)
	}
}
