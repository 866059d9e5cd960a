package iso8211

import (
	"fmt"
	"strconv"
)

// fieldControlsLiteral is the mandated content of the field controls that
// open the Field Control Field
const fieldControlsLiteral = "0000;&   "

// fieldControlOverhead is the number of bytes in a Field Control Field that
// are not tag pairs: field controls, unit terminator and field terminator
const fieldControlOverhead = 11

// TagPair declares that child may nest under parent
type TagPair struct {
	Parent string `json:"parent"`
	Child  string `json:"child"`
}

// FieldControlField is the first field of the DDR. It lists the parent/child
// relationships among field tags.
type FieldControlField struct {
	TagPairs []TagPair `json:"tag_pairs"`
}

// ReadFieldControlField parses the field described by entry, which must be
// entry 0 of the DDR directory.
func ReadFieldControlField(r *ByteReader, leader *Leader, entry DirectoryEntry) (*FieldControlField, error) {
	offset := r.Offset()
	controls, err := r.ReadFixedString(int(leader.FieldControlLength))
	if err != nil {
		return nil, annotate(err, "field_control_field", "field_controls")
	}
	if controls != fieldControlsLiteral {
		return nil, formatViolation("field_control_field", "field_controls", fieldControlsLiteral, controls, offset)
	}

	// we should have a unit terminator here
	if err := expectTerminator(r, UnitTerminator, "field_control_field", "unit_terminator"); err != nil {
		return nil, err
	}

	tagWidth := int(leader.EntryMap.FieldTagWidth)
	count, err := tagPairCount(entry.FieldLength, tagWidth)
	if err != nil {
		return nil, &DecodeError{
			Kind:      KindStructural,
			Component: "field_control_field",
			Field:     entry.FieldTag,
			Actual:    strconv.FormatUint(entry.FieldLength, 10),
			Offset:    offset,
			Err:       err,
		}
	}

	f := &FieldControlField{TagPairs: make([]TagPair, 0, count)}
	for i := 0; i < count; i++ {
		parent, err := r.ReadFixedString(tagWidth)
		if err != nil {
			return nil, annotate(err, "field_control_field", fmt.Sprintf("tag_pairs[%d].parent", i))
		}
		child, err := r.ReadFixedString(tagWidth)
		if err != nil {
			return nil, annotate(err, "field_control_field", fmt.Sprintf("tag_pairs[%d].child", i))
		}
		f.TagPairs = append(f.TagPairs, TagPair{Parent: parent, Child: child})
	}

	// it should all end with a field terminator here
	if err := expectTerminator(r, FieldTerminator, "field_control_field", "field_terminator"); err != nil {
		return nil, err
	}

	return f, nil
}

// tagPairCount applies (length - 11) / (2 * width) and rejects remainders
func tagPairCount(fieldLength uint64, tagWidth int) (int, error) {
	if fieldLength < fieldControlOverhead {
		return 0, fmt.Errorf("field length %d is shorter than the %d byte minimum", fieldLength, fieldControlOverhead)
	}
	pairWidth := uint64(2 * tagWidth)
	body := fieldLength - fieldControlOverhead
	if body%pairWidth != 0 {
		return 0, fmt.Errorf("tag pair area of %d bytes is not a multiple of %d", body, pairWidth)
	}
	return int(body / pairWidth), nil
}

// Children returns the child tags declared for parent, in declaration order
func (f *FieldControlField) Children(parent string) []string {
	var children []string
	for _, p := range f.TagPairs {
		if p.Parent == parent {
			children = append(children, p.Child)
		}
	}
	return children
}

func expectTerminator(r *ByteReader, want byte, component, field string) error {
	offset := r.Offset()
	got, err := r.ReadChar()
	if err != nil {
		return annotate(err, component, field)
	}
	if got != want {
		return &DecodeError{
			Kind:      KindStructural,
			Component: component,
			Field:     field,
			Expected:  fmt.Sprintf("0x%02x", want),
			Actual:    fmt.Sprintf("0x%02x", got),
			Offset:    offset,
		}
	}
	return nil
}
