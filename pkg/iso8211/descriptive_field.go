package iso8211

import (
	"encoding/json"
	"fmt"
)

// DataStructure is the data structure code of a field
type DataStructure int

const (
	SingleDataItem DataStructure = iota
	LinearStructure
	MultiDimensionalStructure
	Unknown3
)

var dataStructureCodes = map[byte]DataStructure{
	'0': SingleDataItem,
	'1': LinearStructure,
	'2': MultiDimensionalStructure,
	'3': Unknown3,
}

func (d DataStructure) String() string {
	switch d {
	case SingleDataItem:
		return "single_data_item"
	case LinearStructure:
		return "linear_structure"
	case MultiDimensionalStructure:
		return "multi_dimensional_structure"
	case Unknown3:
		return "unknown_3"
	default:
		return fmt.Sprintf("data_structure(%d)", int(d))
	}
}

// MarshalText renders the code by name
func (d DataStructure) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// DataType is the data type code of a field
type DataType int

const (
	CharacterString DataType = 0
	ImplicitPoint   DataType = 1
	ExplicitPoint   DataType = 2
	Binary          DataType = 5
	Mixed           DataType = 6
)

var dataTypeCodes = map[byte]DataType{
	'0': CharacterString,
	'1': ImplicitPoint,
	'2': ExplicitPoint,
	'5': Binary,
	'6': Mixed,
}

func (d DataType) String() string {
	switch d {
	case CharacterString:
		return "character_string"
	case ImplicitPoint:
		return "implicit_point"
	case ExplicitPoint:
		return "explicit_point"
	case Binary:
		return "binary"
	case Mixed:
		return "mixed"
	default:
		return fmt.Sprintf("data_type(%d)", int(d))
	}
}

// MarshalText renders the code by name
func (d DataType) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LexicalLevel is decoded from the truncated escape sequence and selects how
// character subfields are encoded.
type LexicalLevel int

const (
	// Level0 is plain ASCII
	Level0 LexicalLevel = iota
	// Level1 is ISO 8859-1
	Level1
	// Level2 is UCS-2, little-endian, with two-byte terminators
	Level2
	// UnknownG is the "%/G" sequence, which designates UTF-8
	UnknownG
)

// Both Level2 literals are seen in real files and are accepted.
var escapeSequences = map[string]LexicalLevel{
	"   ": Level0,
	"-A ": Level1,
	"%/@": Level2,
	"%/A": Level2,
	"%/G": UnknownG,
}

func (l LexicalLevel) String() string {
	switch l {
	case Level0:
		return "level0"
	case Level1:
		return "level1"
	case Level2:
		return "level2"
	case UnknownG:
		return "unknown_g"
	default:
		return fmt.Sprintf("lexical_level(%d)", int(l))
	}
}

// MarshalText renders the level by name
func (l LexicalLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// FieldControls are the coded controls at the start of a data descriptive field
type FieldControls struct {
	DataStructure  DataStructure `json:"data_structure"`
	DataType       DataType      `json:"data_type"`
	EscapeSequence LexicalLevel  `json:"escape_sequence"`
	EscapeLiteral  string        `json:"escape_literal"`
}

// DataDescriptiveField describes the layout of one field tag. Together the
// fields of the DDR form the schema for every data record.
type DataDescriptiveField struct {
	Tag             string        `json:"tag"`
	FieldControls   FieldControls `json:"field_controls"`
	FieldName       string        `json:"field_name"`
	ArrayDescriptor string        `json:"array_descriptor"`
	FormatControls  string        `json:"format_controls"`

	layout    *fieldLayout
	layoutErr error
}

// ReadDataDescriptiveField parses one data descriptive field. The tag is
// not part of the field content; callers that know it should set it.
func ReadDataDescriptiveField(r *ByteReader) (*DataDescriptiveField, error) {
	f := &DataDescriptiveField{}

	// Data structure code
	offset := r.Offset()
	c, err := r.ReadChar()
	if err != nil {
		return nil, annotate(err, "data_descriptive_field", "data_structure")
	}
	ds, ok := dataStructureCodes[c]
	if !ok {
		return nil, formatViolation("data_descriptive_field", "data_structure", "one of 0,1,2,3", Char(c).String(), offset)
	}
	f.FieldControls.DataStructure = ds

	// Data type code
	offset = r.Offset()
	if c, err = r.ReadChar(); err != nil {
		return nil, annotate(err, "data_descriptive_field", "data_type")
	}
	dt, ok := dataTypeCodes[c]
	if !ok {
		return nil, formatViolation("data_descriptive_field", "data_type", "one of 0,1,2,5,6", Char(c).String(), offset)
	}
	f.FieldControls.DataType = dt

	// Auxiliary controls must be "00", printable graphics must be ";&"
	literals := []struct{ name, want string }{
		{"auxiliary_controls", "00"},
		{"printable_graphics", ";&"},
	}
	for _, lit := range literals {
		offset = r.Offset()
		got, err := r.ReadFixedString(len(lit.want))
		if err != nil {
			return nil, annotate(err, "data_descriptive_field", lit.name)
		}
		if got != lit.want {
			return nil, formatViolation("data_descriptive_field", lit.name, lit.want, got, offset)
		}
	}

	// Truncated escape sequence
	offset = r.Offset()
	esc, err := r.ReadFixedString(3)
	if err != nil {
		return nil, annotate(err, "data_descriptive_field", "escape_sequence")
	}
	level, ok := escapeSequences[esc]
	if !ok {
		return nil, formatViolation("data_descriptive_field", "escape_sequence", `one of "   ","-A ","%/@","%/A","%/G"`, esc, offset)
	}
	f.FieldControls.EscapeSequence = level
	f.FieldControls.EscapeLiteral = esc

	if f.FieldName, err = r.ReadTerminated(UnitTerminator); err != nil {
		return nil, annotate(err, "data_descriptive_field", "field_name")
	}
	if f.ArrayDescriptor, err = r.ReadTerminated(UnitTerminator); err != nil {
		return nil, annotate(err, "data_descriptive_field", "array_descriptor")
	}
	if f.FormatControls, err = r.ReadTerminated(FieldTerminator); err != nil {
		return nil, annotate(err, "data_descriptive_field", "format_controls")
	}

	return f, nil
}

// Labels returns the data subfield labels this field decodes into
func (f *DataDescriptiveField) Labels() ([]string, error) {
	l, err := f.compiled()
	if err != nil {
		return nil, err
	}
	return l.labels(), nil
}

// Repeating reports whether the field's subfield group repeats
func (f *DataDescriptiveField) Repeating() bool {
	l, err := f.compiled()
	return err == nil && len(l.repeating) > 0
}

// Dimensions returns the dimension labels of a multi-dimensional field
func (f *DataDescriptiveField) Dimensions() []string {
	l, err := f.compiled()
	if err != nil {
		return nil
	}
	return l.dimensions
}

// compiled returns the layout built when the schema was read, building it
// on demand for fields constructed outside a DDR.
func (f *DataDescriptiveField) compiled() (*fieldLayout, error) {
	if f.layout == nil && f.layoutErr == nil {
		return compileLayout(f)
	}
	return f.layout, f.layoutErr
}

// MarshalJSON adds the decoded labels alongside the raw descriptor
func (f *DataDescriptiveField) MarshalJSON() ([]byte, error) {
	type plain DataDescriptiveField
	out := struct {
		*plain
		Labels      []string `json:"labels,omitempty"`
		Dimensions  []string `json:"dimensions,omitempty"`
		Repeating   bool     `json:"repeating"`
		LayoutError string   `json:"layout_error,omitempty"`
	}{plain: (*plain)(f)}

	if l, err := f.compiled(); err != nil {
		out.LayoutError = err.Error()
	} else {
		out.Labels = l.labels()
		out.Dimensions = l.dimensions
		out.Repeating = len(l.repeating) > 0
	}
	return json.Marshal(out)
}
