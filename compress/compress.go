// Package compress provides the frame compression methods used by the
// file buffer. Every method is safe for concurrent use.
package compress

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// Method identifies how frame payloads are compressed on disk.
//
// The files carry no header recording the method, so every open of the
// same files must use the same Method.
type Method int

const (
	// Gzip is the default method.
	Gzip Method = iota
	Zstd
	Snappy
	Brotli
)

func (m Method) String() string {
	switch m {
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	case Snappy:
		return "snappy"
	case Brotli:
		return "brotli"
	}
	return fmt.Sprintf("unknown(%d)", int(m))
}

// ParseMethod parses a method name as emitted by String.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gzip", "gz":
		return Gzip, nil
	case "zstd":
		return Zstd, nil
	case "snappy":
		return Snappy, nil
	case "brotli", "br":
		return Brotli, nil
	}
	return 0, fmt.Errorf("unknown compression method '%s'", s)
}

var (
	// shared zstd codecs, EncodeAll/DecodeAll are safe for concurrent use
	zstdEnc, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDec, _ = zstd.NewReader(nil)
)

// Compress compresses d using the method.
func (m Method) Compress(d []byte) ([]byte, error) {
	switch m {
	case Gzip:
		var dst bytes.Buffer
		w := gzip.NewWriter(&dst)
		_, err := w.Write(d)
		err2 := w.Close()
		if err = getErr(err, err2); err != nil {
			return nil, err
		}
		return dst.Bytes(), nil
	case Zstd:
		return zstdEnc.EncodeAll(d, nil), nil
	case Snappy:
		return snappy.Encode(nil, d), nil
	case Brotli:
		var dst bytes.Buffer
		w := brotli.NewWriterLevel(&dst, brotli.DefaultCompression)
		_, err := w.Write(d)
		err2 := w.Close()
		if err = getErr(err, err2); err != nil {
			return nil, err
		}
		return dst.Bytes(), nil
	}
	return nil, fmt.Errorf("unknown compression method '%d'", int(m))
}

// Decompress reverses Compress.
func (m Method) Decompress(d []byte) ([]byte, error) {
	switch m {
	case Gzip:
		r, err := gzip.NewReader(bytes.NewReader(d))
		if err != nil {
			return nil, err
		}
		res, err := io.ReadAll(r)
		err2 := r.Close()
		if err = getErr(err, err2); err != nil {
			return nil, err
		}
		return res, nil
	case Zstd:
		return zstdDec.DecodeAll(d, nil)
	case Snappy:
		return snappy.Decode(nil, d)
	case Brotli:
		return io.ReadAll(brotli.NewReader(bytes.NewReader(d)))
	}
	return nil, fmt.Errorf("unknown compression method '%d'", int(m))
}

func getErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
