package iso8211

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Option configures a Decoder
type Option func(*Decoder)

// WithLogger sets the logger used for debug tracing
func WithLogger(logger logrus.FieldLogger) Option {
	return func(d *Decoder) {
		if logger != nil {
			d.log = logger
		}
	}
}

// Decoder reads an interchange file one record at a time. The schema is
// read when the decoder is created.
type Decoder struct {
	reader *ByteReader
	schema *DataDescriptiveRecord
	log    logrus.FieldLogger
	index  int
	err    error
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// NewDecoder reads the data descriptive record from r and returns a decoder
// positioned at the first data record.
func NewDecoder(r io.Reader, opts ...Option) (*Decoder, error) {
	d := &Decoder{
		reader: NewByteReader(r),
		log:    discardLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}

	schema, err := ReadDataDescriptiveRecord(d.reader)
	if err != nil {
		return nil, fmt.Errorf("data descriptive record: %w", err)
	}
	d.schema = schema

	d.log.WithFields(logrus.Fields{
		"fields":        len(schema.DataDescriptiveFields),
		"tag_pairs":     len(schema.FieldControlField.TagPairs),
		"record_length": schema.Leader.RecordLength,
	}).Debug("decoded data descriptive record")

	return d, nil
}

// Schema returns the data descriptive record
func (d *Decoder) Schema() *DataDescriptiveRecord {
	return d.schema
}

// Offset returns the number of bytes consumed so far
func (d *Decoder) Offset() int64 {
	return d.reader.Offset()
}

// Next returns the next data record, or io.EOF once the stream ends cleanly
// on a record boundary. After any other error the decoder keeps returning it.
func (d *Decoder) Next() (*DataRecord, error) {
	if d.err != nil {
		return nil, d.err
	}

	eof, err := d.reader.AtEOF()
	if err != nil {
		d.err = fmt.Errorf("data record %d: %w", d.index, err)
		return nil, d.err
	}
	if eof {
		d.err = io.EOF
		return nil, io.EOF
	}

	rec, err := ReadDataRecord(d.reader, d.schema)
	if err != nil {
		d.err = fmt.Errorf("data record %d: %w", d.index, err)
		return nil, d.err
	}

	d.log.WithFields(logrus.Fields{
		"index":         d.index,
		"fields":        len(rec.Fields),
		"record_length": rec.Leader.RecordLength,
	}).Debug("decoded data record")

	d.index++
	return rec, nil
}

// RecordIterator streams data records
type RecordIterator interface {
	Next() bool
	Record() *DataRecord
	Err() error
}

// Iterator returns a streaming iterator over the remaining data records
func (d *Decoder) Iterator() RecordIterator {
	return &recordIterator{decoder: d}
}

type recordIterator struct {
	decoder *Decoder
	record  *DataRecord
	err     error
}

func (it *recordIterator) Next() bool {
	it.record, it.err = it.decoder.Next()
	return it.err == nil
}

func (it *recordIterator) Record() *DataRecord {
	return it.record
}

// Err returns the error that stopped iteration; a clean end returns nil
func (it *recordIterator) Err() error {
	if it.err == io.EOF {
		return nil
	}
	return it.err
}
