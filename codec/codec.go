// Package codec defines how buffer elements are serialized to bytes.
//
// The buffer stores opaque byte payloads; a Codec supplied by the caller
// converts elements of a concrete type to bytes and back. All codecs in
// this package are stateless and safe for concurrent use.
package codec

// Codec encodes and decodes elements of type E for storage.
type Codec[E any] interface {
	// Encode serializes e into a byte slice.
	Encode(e E) ([]byte, error)
	// Decode deserializes a byte slice produced by Encode.
	Decode(d []byte) (E, error)
}

// String stores strings as their raw bytes.
type String struct{}

func (String) Encode(s string) ([]byte, error) {
	return []byte(s), nil
}

func (String) Decode(d []byte) (string, error) {
	return string(d), nil
}

// Bytes is the identity codec for raw byte payloads.
//
// Encode and Decode return their argument unchanged. The buffer hands
// Decode a freshly allocated slice per read, so the result is safe to
// retain.
type Bytes struct{}

func (Bytes) Encode(d []byte) ([]byte, error) {
	return d, nil
}

func (Bytes) Decode(d []byte) ([]byte, error) {
	return d, nil
}

var (
	_ Codec[string] = String{}
	_ Codec[[]byte] = Bytes{}
)
