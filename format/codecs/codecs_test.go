package codecs_test

import (
	"bytes"
	"testing"

	"github.com/eluv-io/errors-go"
	"github.com/stretchr/testify/require"

	"github.com/eluv-io/atomic-go/format/codecs"
	"github.com/eluv-io/atomic-go/util/syncutil/volatile"
)

type state struct {
	Name  string         `json:"name"`
	Ready *volatile.Bool `json:"ready"`
}

func TestCborBool(t *testing.T) {
	for _, val := range []bool{false, true} {
		data, err := codecs.CborMarshal(volatile.NewBool(val))
		require.NoError(t, err)

		// encoded as a plain CBOR simple value: 0xf4 (false) or 0xf5 (true)
		want := byte(0xf4)
		if val {
			want = 0xf5
		}
		require.Equal(t, []byte{want}, data)

		decoded := &volatile.Bool{}
		require.NoError(t, codecs.CborUnmarshal(data, decoded))
		require.Equal(t, val, decoded.Get())
	}
}

func TestCborWrapped(t *testing.T) {
	s := &state{Name: "svc", Ready: volatile.NewBool(true)}

	buf := &bytes.Buffer{}
	require.NoError(t, codecs.CborEncode(buf, s))

	var decoded state
	require.NoError(t, codecs.CborDecode(buf, &decoded))
	require.Equal(t, "svc", decoded.Name)
	require.NotNil(t, decoded.Ready)
	require.True(t, decoded.Ready.Get())
	require.NotSame(t, s.Ready, decoded.Ready)
}

func TestCborDecodeInvalid(t *testing.T) {
	decoded := &volatile.Bool{}
	// CBOR text string "x"
	err := codecs.CborUnmarshal([]byte{0x61, 0x78}, decoded)
	require.Error(t, err)
	require.True(t, errors.IsKind(errors.K.Invalid, err))
}

func TestJsonCodec(t *testing.T) {
	s := &state{Name: "svc", Ready: volatile.NewBool(true)}

	buf := &bytes.Buffer{}
	require.NoError(t, codecs.NewJsonCodec().Encoder(buf).Encode(s))
	require.JSONEq(t, `{"name":"svc","ready":true}`, buf.String())

	var decoded state
	require.NoError(t, codecs.NewJsonCodec().Decoder(buf).Decode(&decoded))
	require.True(t, decoded.Ready.Get())
}

func TestCborNullKeepsValue(t *testing.T) {
	fromJson := volatile.NewBool(true)
	require.NoError(t, fromJson.UnmarshalJSON([]byte("null")))
	require.True(t, fromJson.Get())

	fromCbor := volatile.NewBool(true)
	// CBOR null
	require.NoError(t, codecs.CborUnmarshal([]byte{0xf6}, fromCbor))
	require.Equal(t, fromJson.Get(), fromCbor.Get())

	require.NoError(t, codecs.CborUnmarshal([]byte{0xf4}, fromCbor))
	require.False(t, fromCbor.Get())
}
