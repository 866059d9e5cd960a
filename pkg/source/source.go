// Package source loads ISO 8211 byte streams from files and upload bodies,
// undoing gzip or zstd compression when the content is compressed.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression identifies how a byte stream was stored
type Compression string

const (
	None Compression = "none"
	Gzip Compression = "gzip"
	Zstd Compression = "zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// ErrTooLarge is returned when content exceeds the configured limit
var ErrTooLarge = errors.New("content exceeds maximum size")

// Source is a fully buffered, decompressed byte stream
type Source struct {
	Data        []byte
	Compression Compression
}

// Detect identifies the compression from the leading bytes
func Detect(head []byte) Compression {
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return Gzip
	case bytes.HasPrefix(head, zstdMagic):
		return Zstd
	default:
		return None
	}
}

// Open reads the file at path
func Open(path string, maxSize int64) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Load(f, maxSize)
}

// Load reads r to the end, decompressing if needed. maxSize bounds the
// decompressed size; 0 means no limit.
func Load(r io.Reader, maxSize int64) (*Source, error) {
	raw, err := readLimited(r, maxSize)
	if err != nil {
		return nil, err
	}

	s := &Source{Compression: Detect(raw)}
	switch s.Compression {
	case Gzip:
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		if s.Data, err = readLimited(zr, maxSize); err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
	case Zstd:
		dec := decoderPool.Get().(*zstd.Decoder)
		defer decoderPool.Put(dec)
		if err := dec.Reset(bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		if s.Data, err = readLimited(dec, maxSize); err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
	default:
		s.Data = raw
	}
	return s, nil
}

// Reader returns a seekable reader over the decompressed bytes
func (s *Source) Reader() *bytes.Reader {
	return bytes.NewReader(s.Data)
}

func readLimited(r io.Reader, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, maxSize)
	}
	return data, nil
}

// decoderPool reuses zstd decoders, which are expensive to create
var decoderPool = sync.Pool{
	New: func() any {
		// NewReader with a nil source and no options does not fail
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			panic("failed to create zstd decoder: " + err.Error())
		}
		return dec
	},
}

var encoderPool = sync.Pool{
	New: func() any {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			panic("failed to create zstd encoder: " + err.Error())
		}
		return enc
	},
}

// Compress encodes data with the given compression
func Compress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case None:
		return data, nil
	case Zstd:
		enc := encoderPool.Get().(*zstd.Encoder)
		defer encoderPool.Put(enc)
		return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
	case Gzip:
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unknown compression %q", c)
}
