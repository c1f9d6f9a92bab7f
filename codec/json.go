package codec

import "encoding/json"

// JSON serializes elements with encoding/json.
type JSON[E any] struct{}

func (JSON[E]) Encode(e E) ([]byte, error) {
	return json.Marshal(e)
}

func (JSON[E]) Decode(d []byte) (E, error) {
	var e E
	err := json.Unmarshal(d, &e)
	return e, err
}
