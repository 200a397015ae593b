package codecs

import (
	"io"
)

// Codec is an algorithm for coding data from one representation to another: a
// function and its inverse, to encode and decode.
type Codec interface {
	// Decoder wraps the given io.Reader and returns an object which will decode bytes into objects.
	Decoder(r io.Reader) Decoder

	// Encoder wraps the given io.Writer and returns an Encoder
	Encoder(w io.Writer) Encoder
}

// Encoder encodes objects into bytes and writes them to an underlying io.Writer.
type Encoder interface {
	Encode(obj interface{}) error
}

// Decoder decodes objects from bytes read from an underlying io.Reader.
type Decoder interface {
	Decode(obj interface{}) error
}

type CreateEncoderFn func(w io.Writer) Encoder
type CreateDecoderFn func(io.Reader) Decoder

// NewCodec creates a new Codec from an encoder and a decoder creation function.
func NewCodec(enc CreateEncoderFn, dec CreateDecoderFn) Codec {
	return &codec{encoderFn: enc, decoderFn: dec}
}

type codec struct {
	encoderFn CreateEncoderFn
	decoderFn CreateDecoderFn
}

func (c *codec) Decoder(r io.Reader) Decoder {
	return c.decoderFn(r)
}

func (c *codec) Encoder(w io.Writer) Encoder {
	return c.encoderFn(w)
}
