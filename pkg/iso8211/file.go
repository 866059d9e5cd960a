package iso8211

import (
	"bytes"
	"io"
)

// InterchangeFile is a fully decoded file: the schema record followed by
// every data record in file order.
type InterchangeFile struct {
	DataDescriptiveRecord *DataDescriptiveRecord `json:"data_descriptive_record"`
	DataRecords           []*DataRecord          `json:"data_records"`
}

// ReadInterchangeFile decodes an entire stream. Any failure discards the
// records decoded so far.
func ReadInterchangeFile(r io.Reader, opts ...Option) (*InterchangeFile, error) {
	dec, err := NewDecoder(r, opts...)
	if err != nil {
		return nil, err
	}

	f := &InterchangeFile{DataDescriptiveRecord: dec.Schema()}
	it := dec.Iterator()
	for it.Next() {
		f.DataRecords = append(f.DataRecords, it.Record())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return f, nil
}

// Read decodes an in-memory file
func Read(data []byte, opts ...Option) (*InterchangeFile, error) {
	return ReadInterchangeFile(bytes.NewReader(data), opts...)
}
