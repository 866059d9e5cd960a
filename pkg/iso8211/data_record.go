package iso8211

import (
	"errors"
	"fmt"
	"strconv"
)

// DataRecord is one record after the DDR
type DataRecord struct {
	Leader    *Leader      `json:"leader"`
	Directory *Directory   `json:"directory"`
	Fields    []*DataField `json:"fields"`
}

// ReadDataRecord reads a data record and decodes every field against schema.
// Running out of bytes anywhere inside the record is a structural error.
func ReadDataRecord(r *ByteReader, schema *DataDescriptiveRecord) (*DataRecord, error) {
	start := r.Offset()

	leader, err := ReadLeader(r, Data)
	if err != nil {
		return nil, midRecord(err, "leader", start)
	}

	dir, err := ReadDirectory(r, leader)
	if err != nil {
		return nil, midRecord(err, "directory", start)
	}
	if err := checkBaseAddress(r, start, leader, dir, "data_record"); err != nil {
		return nil, err
	}

	areaOffset := r.Offset()
	area, err := r.ReadExact(int(leader.RecordLength - leader.BaseAddress))
	if err != nil {
		return nil, midRecord(err, "field_area", start)
	}

	rec := &DataRecord{
		Leader:    leader,
		Directory: dir,
		Fields:    make([]*DataField, 0, dir.Len()),
	}
	for _, entry := range dir.Entries {
		end := entry.FieldPosition + entry.FieldLength
		if end > uint64(len(area)) {
			return nil, &DecodeError{
				Kind:      KindStructural,
				Component: "data_record",
				Field:     entry.FieldTag,
				Expected:  "<= " + strconv.Itoa(len(area)),
				Actual:    strconv.FormatUint(end, 10),
				Offset:    areaOffset,
				Err:       errors.New("field extends past the end of the record"),
			}
		}

		def, ok := schema.Field(entry.FieldTag)
		if !ok {
			return nil, &DecodeError{
				Kind:      KindSchemaMismatch,
				Component: "data_record",
				Field:     entry.FieldTag,
				Offset:    areaOffset + int64(entry.FieldPosition),
				Err:       errors.New("tag is not declared by the data descriptive record"),
			}
		}

		f, err := decodeDataField(entry.FieldTag, area[entry.FieldPosition:end], def, areaOffset+int64(entry.FieldPosition))
		if err != nil {
			return nil, err
		}
		rec.Fields = append(rec.Fields, f)
	}

	return rec, nil
}

// midRecord converts a short read inside a record into a structural error
func midRecord(err error, field string, start int64) error {
	if kind, ok := KindOf(err); ok && kind == KindIO {
		return wrapAs(KindStructural, "data_record", field, start, fmt.Errorf("stream ended mid-record: %w", err))
	}
	return err
}

// Field returns the first field with the given tag
func (d *DataRecord) Field(tag string) (*DataField, bool) {
	for _, f := range d.Fields {
		if f.Tag == tag {
			return f, true
		}
	}
	return nil, false
}

// FieldsByTag returns every field with the given tag, in record order
func (d *DataRecord) FieldsByTag(tag string) []*DataField {
	var out []*DataField
	for _, f := range d.Fields {
		if f.Tag == tag {
			out = append(out, f)
		}
	}
	return out
}
