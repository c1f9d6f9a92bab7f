package codec

import "github.com/toon-format/toon-go"

// Toon serializes elements in the TOON text format. More compact than
// JSON for repetitive struct payloads, still human-readable on disk.
type Toon[E any] struct{}

func (Toon[E]) Encode(e E) ([]byte, error) {
	return toon.Marshal(e)
}

func (Toon[E]) Decode(d []byte) (E, error) {
	var e E
	err := toon.Unmarshal(d, &e)
	return e, err
}
