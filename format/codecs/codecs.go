package codecs

import (
	"bytes"
	"encoding/json"
	"io"
	"reflect"

	cd "github.com/ugorji/go/codec"

	"github.com/eluv-io/errors-go"
)

var (
	JsonCodec = makeJsonCodec()
	CborCodec = makeCborCodec()
)

// NewJsonCodec returns the codec using the encoding/json format.
func NewJsonCodec() Codec {
	return JsonCodec
}

// NewCborCodec returns the codec using the canonical CBOR format. Types
// implementing github.com/ugorji/go/codec.Selfer - like volatile.Bool - encode
// themselves.
func NewCborCodec() Codec {
	return CborCodec
}

// CborEncode encodes the given value as CBOR and writes it to the writer.
func CborEncode(w io.Writer, v interface{}) error {
	err := CborCodec.Encoder(w).Encode(v)
	if err != nil {
		return errors.E("CborEncode", errors.K.Invalid, err)
	}
	return nil
}

// CborDecode decodes CBOR data from the provided reader into the given value.
func CborDecode(r io.Reader, v interface{}) error {
	err := CborCodec.Decoder(r).Decode(v)
	if err != nil {
		return errors.E("CborDecode", errors.K.Invalid, err)
	}
	return nil
}

// CborMarshal encodes the given value as CBOR and returns the encoded bytes.
func CborMarshal(v interface{}) ([]byte, error) {
	buf := &bytes.Buffer{}
	err := CborEncode(buf, v)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CborUnmarshal decodes the given CBOR bytes into v.
func CborUnmarshal(data []byte, v interface{}) error {
	return CborDecode(bytes.NewReader(data), v)
}

func makeJsonCodec() Codec {
	return NewCodec(
		func(w io.Writer) Encoder {
			return json.NewEncoder(w)
		},
		func(r io.Reader) Decoder {
			return json.NewDecoder(r)
		},
	)
}

func makeCborCodec() Codec {
	handle := &cd.CborHandle{}
	handle.MapType = reflect.TypeOf(map[string]interface{}(nil))
	handle.Canonical = true

	return NewCodec(
		func(w io.Writer) Encoder {
			return cd.NewEncoder(w, handle)
		},
		func(r io.Reader) Decoder {
			return cd.NewDecoder(r, handle)
		},
	)
}
