package codec

import (
	"bytes"
	"encoding/gob"
)

// Gob serializes elements with encoding/gob. It works for any gob-able
// type and is the closest analog of serializing arbitrary objects, at
// the cost of a per-element type preamble in every payload.
type Gob[E any] struct{}

func (Gob[E]) Encode(e E) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (Gob[E]) Decode(d []byte) (E, error) {
	var e E
	err := gob.NewDecoder(bytes.NewReader(d)).Decode(&e)
	return e, err
}
