package iso8211

import (
	"fmt"
	"strconv"
)

// DataDescriptiveRecord is the first record of a file and the schema for
// every data record that follows it.
type DataDescriptiveRecord struct {
	Leader                *Leader                 `json:"leader"`
	Directory             *Directory              `json:"directory"`
	FieldControlField     *FieldControlField      `json:"field_control_field"`
	DataDescriptiveFields []*DataDescriptiveField `json:"data_descriptive_fields"`

	byTag map[string]*DataDescriptiveField
}

// ReadDataDescriptiveRecord reads the leader, directory, field control field
// and one data descriptive field per remaining directory entry.
func ReadDataDescriptiveRecord(r *ByteReader) (*DataDescriptiveRecord, error) {
	start := r.Offset()

	leader, err := ReadLeader(r, DataDescriptive)
	if err != nil {
		return nil, err
	}

	dir, err := ReadDirectory(r, leader)
	if err != nil {
		return nil, err
	}
	if dir.Len() == 0 {
		return nil, &DecodeError{
			Kind:      KindStructural,
			Component: "data_descriptive_record",
			Field:     "directory",
			Offset:    r.Offset(),
			Err:       fmt.Errorf("no field control field entry"),
		}
	}
	if err := checkBaseAddress(r, start, leader, dir, "data_descriptive_record"); err != nil {
		return nil, err
	}

	ddr := &DataDescriptiveRecord{
		Leader:                leader,
		Directory:             dir,
		DataDescriptiveFields: make([]*DataDescriptiveField, 0, dir.Len()-1),
		byTag:                 make(map[string]*DataDescriptiveField, dir.Len()-1),
	}

	fieldArea := start + int64(leader.BaseAddress)
	fcfEntry := dir.Entries[0]
	if err := checkFieldStart(r, fieldArea, fcfEntry); err != nil {
		return nil, err
	}
	if ddr.FieldControlField, err = ReadFieldControlField(r, leader, fcfEntry); err != nil {
		return nil, err
	}

	for _, entry := range dir.Entries[1:] {
		if err := checkFieldStart(r, fieldArea, entry); err != nil {
			return nil, err
		}
		fieldStart := r.Offset()

		f, err := ReadDataDescriptiveField(r)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", entry.FieldTag, err)
		}
		if consumed := uint64(r.Offset() - fieldStart); consumed != entry.FieldLength {
			return nil, &DecodeError{
				Kind:      KindStructural,
				Component: "data_descriptive_field",
				Field:     entry.FieldTag,
				Expected:  strconv.FormatUint(entry.FieldLength, 10),
				Actual:    strconv.FormatUint(consumed, 10),
				Offset:    fieldStart,
				Err:       fmt.Errorf("field length disagrees with directory"),
			}
		}

		f.Tag = entry.FieldTag
		f.layout, f.layoutErr = compileLayout(f)
		ddr.DataDescriptiveFields = append(ddr.DataDescriptiveFields, f)
		ddr.byTag[f.Tag] = f
	}

	if consumed := uint64(r.Offset() - start); consumed != leader.RecordLength {
		return nil, &DecodeError{
			Kind:      KindStructural,
			Component: "data_descriptive_record",
			Field:     "record_length",
			Expected:  strconv.FormatUint(leader.RecordLength, 10),
			Actual:    strconv.FormatUint(consumed, 10),
			Offset:    start,
		}
	}

	return ddr, nil
}

// Field returns the schema entry for tag
func (d *DataDescriptiveRecord) Field(tag string) (*DataDescriptiveField, bool) {
	if d.byTag == nil {
		d.byTag = make(map[string]*DataDescriptiveField, len(d.DataDescriptiveFields))
		for _, f := range d.DataDescriptiveFields {
			d.byTag[f.Tag] = f
		}
	}
	f, ok := d.byTag[tag]
	return f, ok
}

// Tags returns the schema's field tags in directory order
func (d *DataDescriptiveRecord) Tags() []string {
	tags := make([]string, 0, len(d.DataDescriptiveFields))
	for _, f := range d.DataDescriptiveFields {
		tags = append(tags, f.Tag)
	}
	return tags
}

// checkBaseAddress verifies that leader and directory end where the field
// area begins.
func checkBaseAddress(r *ByteReader, start int64, leader *Leader, dir *Directory, component string) error {
	consumed := uint64(r.Offset() - start)
	if consumed == leader.BaseAddress {
		return nil
	}
	return &DecodeError{
		Kind:      KindStructural,
		Component: component,
		Field:     "base_address",
		Expected:  strconv.FormatUint(leader.BaseAddress, 10),
		Actual:    strconv.FormatUint(consumed, 10),
		Offset:    start,
		Err:       fmt.Errorf("leader is %d bytes and directory is %d bytes", LeaderLength, dir.size(leader.EntryMap)),
	}
}

func checkFieldStart(r *ByteReader, fieldArea int64, entry DirectoryEntry) error {
	want := fieldArea + int64(entry.FieldPosition)
	if r.Offset() == want {
		return nil
	}
	return &DecodeError{
		Kind:      KindStructural,
		Component: "directory",
		Field:     entry.FieldTag,
		Expected:  strconv.FormatInt(want, 10),
		Actual:    strconv.FormatInt(r.Offset(), 10),
		Offset:    r.Offset(),
		Err:       fmt.Errorf("field position %d does not follow the previous field", entry.FieldPosition),
	}
}
