package iso8211

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"unicode/utf8"
)

const (
	// FieldTerminator ends every field
	FieldTerminator byte = 0x1e
	// UnitTerminator ends variable-length subfields and units
	UnitTerminator byte = 0x1f
	// Null is reserved for padding and not interpreted
	Null byte = 0x00
)

// ByteReader is a sequential cursor over a byte source. It tracks the
// absolute offset so that every error can report where it happened.
type ByteReader struct {
	src    io.Reader
	reader *bufio.Reader
	offset int64
}

// NewByteReader creates a reader positioned at the start of r
func NewByteReader(r io.Reader) *ByteReader {
	return &ByteReader{
		src:    r,
		reader: bufio.NewReader(r),
	}
}

// Offset returns the number of bytes consumed so far
func (r *ByteReader) Offset() int64 {
	return r.offset
}

// ReadExact reads exactly n bytes
func (r *ByteReader) ReadExact(n int) ([]byte, error) {
	start := r.offset
	buf := make([]byte, n)
	read, err := io.ReadFull(r.reader, buf)
	r.offset += int64(read)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, &DecodeError{Kind: KindIO, Field: "read_exact", Offset: start, Err: err}
	}
	return buf, nil
}

// ReadChar reads a single byte and returns it as a character
func (r *ByteReader) ReadChar() (byte, error) {
	start := r.offset
	c, err := r.reader.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return 0, &DecodeError{Kind: KindIO, Field: "read_char", Offset: start, Err: err}
	}
	r.offset++
	return c, nil
}

// ReadFixedString reads exactly n bytes and validates them as UTF-8
func (r *ByteReader) ReadFixedString(n int) (string, error) {
	start := r.offset
	buf, err := r.ReadExact(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(buf) {
		return "", &DecodeError{Kind: KindEncoding, Field: "read_fixed_string", Actual: string(buf), Offset: start}
	}
	return string(buf), nil
}

// ReadTerminated accumulates bytes up to the terminator. The terminator is
// consumed but not returned.
func (r *ByteReader) ReadTerminated(terminator byte) (string, error) {
	start := r.offset
	buf, err := r.reader.ReadBytes(terminator)
	r.offset += int64(len(buf))
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return "", &DecodeError{Kind: KindIO, Field: "read_terminated", Offset: start, Err: err}
	}
	buf = buf[:len(buf)-1]
	if !utf8.Valid(buf) {
		return "", &DecodeError{Kind: KindEncoding, Field: "read_terminated", Actual: string(buf), Offset: start}
	}
	return string(buf), nil
}

// ReadUnsignedDecimal reads n ASCII digits as a base-10 unsigned integer
func (r *ByteReader) ReadUnsignedDecimal(n int) (uint64, error) {
	start := r.offset
	buf, err := r.ReadExact(n)
	if err != nil {
		return 0, err
	}
	return parseDecimal(buf, start)
}

func parseDecimal(buf []byte, offset int64) (uint64, error) {
	for _, c := range buf {
		if c < '0' || c > '9' {
			return 0, &DecodeError{Kind: KindNumericFormat, Field: "read_unsigned_decimal", Actual: string(buf), Offset: offset}
		}
	}
	v, err := strconv.ParseUint(string(buf), 10, 64)
	if err != nil {
		return 0, &DecodeError{Kind: KindNumericFormat, Field: "read_unsigned_decimal", Actual: string(buf), Offset: offset, Err: err}
	}
	return v, nil
}

// PeekByte returns the next byte without consuming it. A failed peek leaves
// the cursor where it was.
func (r *ByteReader) PeekByte() (byte, error) {
	b, err := r.reader.Peek(1)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return 0, &DecodeError{Kind: KindIO, Field: "peek_byte", Offset: r.offset, Err: err}
	}
	return b[0], nil
}

// AtEOF reports whether the source has no more bytes. Errors other than a
// clean end of stream are returned.
func (r *ByteReader) AtEOF() (bool, error) {
	_, err := r.reader.Peek(1)
	if err == nil {
		return false, nil
	}
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, &DecodeError{Kind: KindIO, Field: "at_end_of_stream", Offset: r.offset, Err: err}
}

// SeekTo repositions the cursor at an absolute offset. The underlying
// source must be an io.Seeker.
func (r *ByteReader) SeekTo(offset int64) error {
	seeker, ok := r.src.(io.Seeker)
	if !ok {
		return &DecodeError{Kind: KindIO, Field: "seek", Offset: r.offset, Err: errors.New("source is not seekable")}
	}
	if _, err := seeker.Seek(offset, io.SeekStart); err != nil {
		return &DecodeError{Kind: KindIO, Field: "seek", Offset: r.offset, Err: err}
	}

	r.reader = bufio.NewReader(r.src) // Recreate reader to clear buffer
	r.offset = offset
	return nil
}
