package volatile

import (
	"encoding/json"
	"testing"

	"github.com/eluv-io/errors-go"
	"github.com/stretchr/testify/require"
)

func TestBoolJSON(t *testing.T) {
	for _, val := range []bool{false, true} {
		b := NewBool(val)
		bb, err := json.Marshal(b)
		require.NoError(t, err)
		require.Equal(t, b.String(), string(bb))

		var decoded *Bool
		err = json.Unmarshal(bb, &decoded)
		require.NoError(t, err)
		require.Equal(t, val, decoded.Get())
	}

	b := NewBool(true)
	require.NoError(t, json.Unmarshal([]byte("null"), b))
	require.True(t, b.Get())

	err := json.Unmarshal([]byte(`"yes"`), b)
	require.Error(t, err)
	require.True(t, errors.IsKind(errors.K.Invalid, err))
	require.True(t, b.Get())
}

func TestBoolText(t *testing.T) {
	b := NewBool(false)
	require.NoError(t, b.UnmarshalText([]byte("true")))
	require.True(t, b.Get())

	txt, err := b.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "true", string(txt))

	err = b.UnmarshalText([]byte("maybe"))
	require.True(t, errors.IsKind(errors.K.Invalid, err))
}

func TestBoolBinary(t *testing.T) {
	b := NewBool(true)
	data, err := b.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, []byte{1}, data)

	decoded := &Bool{}
	require.NoError(t, decoded.UnmarshalBinary(data))
	require.True(t, decoded.Get())
	require.NoError(t, decoded.UnmarshalBinary([]byte{0}))
	require.False(t, decoded.Get())

	for _, bad := range [][]byte{nil, {2}, {0, 1}} {
		err = decoded.UnmarshalBinary(bad)
		require.True(t, errors.IsKind(errors.K.Invalid, err), "data %v", bad)
	}
}
