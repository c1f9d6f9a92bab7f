package codec

import (
	"testing"

	"github.com/alecthomas/assert"
)

type event struct {
	Name  string
	Count int
	Tags  []string
}

func TestString(t *testing.T) {
	c := String{}
	d, err := c.Encode("hello")
	assert.NoError(t, err)
	s, err := c.Decode(d)
	assert.NoError(t, err)
	assert.Equal(t, "hello", s)

	d, err = c.Encode("")
	assert.NoError(t, err)
	assert.Equal(t, 0, len(d))
	s, err = c.Decode(nil)
	assert.NoError(t, err)
	assert.Equal(t, "", s)
}

func TestBytes(t *testing.T) {
	c := Bytes{}
	in := []byte{0, 1, 2, 255}
	d, err := c.Encode(in)
	assert.NoError(t, err)
	out, err := c.Decode(d)
	assert.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestGob(t *testing.T) {
	c := Gob[event]{}
	in := event{Name: "deploy", Count: 3, Tags: []string{"prod", "eu"}}
	d, err := c.Encode(in)
	assert.NoError(t, err)
	out, err := c.Decode(d)
	assert.NoError(t, err)
	assert.Equal(t, in, out)

	// malformed input must surface as an error
	_, err = c.Decode([]byte("not gob"))
	assert.Error(t, err)
}

func TestToon(t *testing.T) {
	c := Toon[event]{}
	in := event{Name: "deploy", Count: 2, Tags: []string{"prod"}}
	d, err := c.Encode(in)
	assert.NoError(t, err)
	out, err := c.Decode(d)
	assert.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = c.Decode([]byte("count: [not an int"))
	assert.Error(t, err)
}

func TestJSON(t *testing.T) {
	c := JSON[event]{}
	in := event{Name: "restart", Count: 1}
	d, err := c.Encode(in)
	assert.NoError(t, err)
	out, err := c.Decode(d)
	assert.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = c.Decode([]byte("{broken"))
	assert.Error(t, err)

	// decoding into a mismatched shape fails
	ints := JSON[int]{}
	_, err = ints.Decode([]byte(`"str"`))
	assert.Error(t, err)
}
