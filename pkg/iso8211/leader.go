package iso8211

import (
	"fmt"
	"strconv"
)

/*
RP      Len     Entry name                          DDR         DR
==========================================================================
0       5       Record length                       digits      digits
5       1       Interchange level                   "3"         " "
6       1       Leader identifier                   "L"         "D"
7       1       In line code extension indicator    "E"         " "
8       1       Version number                      "1"         " "
9       1       Application indicator               " "         " "
10      2       Field control length                "09"        "  "
12      5       Base address of field area          digits      digits
17      3       Extended character set indicator    " ! "       "   "
20      4       Entry map                           see EntryMap
*/

// LeaderLength is the fixed size of every record leader
const LeaderLength = 24

// RecordKind selects which literal table a leader is validated against
type RecordKind int

const (
	// DataDescriptive is the first, schema-defining record
	DataDescriptive RecordKind = iota
	// Data is every record after the first
	Data
)

func (k RecordKind) String() string {
	if k == DataDescriptive {
		return "ddr"
	}
	return "dr"
}

// Char is a single-byte coded character from a fixed-position field
type Char byte

func (c Char) String() string {
	return string([]byte{byte(c)})
}

// MarshalText renders the character as text rather than a number
func (c Char) MarshalText() ([]byte, error) {
	return []byte{byte(c)}, nil
}

// leaderLiterals holds the mandated values for one record kind
type leaderLiterals struct {
	interchangeLevel     Char
	leaderIdentifier     Char
	codeExtension        Char
	versionNumber        Char
	applicationIndicator Char
	fieldControlLength   string
	fieldControlWidth    uint8
	characterSet         string
}

var leaderTable = map[RecordKind]leaderLiterals{
	DataDescriptive: {
		interchangeLevel:     '3',
		leaderIdentifier:     'L',
		codeExtension:        'E',
		versionNumber:        '1',
		applicationIndicator: ' ',
		fieldControlLength:   "09",
		fieldControlWidth:    9,
		characterSet:         " ! ",
	},
	Data: {
		interchangeLevel:     ' ',
		leaderIdentifier:     'D',
		codeExtension:        ' ',
		versionNumber:        ' ',
		applicationIndicator: ' ',
		fieldControlLength:   "  ",
		characterSet:         "   ",
	},
}

// Leader is the fixed 24-byte header at the start of every record
type Leader struct {
	Kind                 RecordKind `json:"kind"`
	RecordLength         uint64     `json:"record_length"`
	InterchangeLevel     Char       `json:"interchange_level"`
	LeaderIdentifier     Char       `json:"leader_identifier"`
	CodeExtension        Char       `json:"code_extension"`
	VersionNumber        Char       `json:"version_number"`
	ApplicationIndicator Char       `json:"application_indicator"`
	FieldControlLength   uint8      `json:"field_control_length"`
	BaseAddress          uint64     `json:"base_address"`
	CharacterSet         string     `json:"character_set"`
	EntryMap             EntryMap   `json:"entry_map"`
}

// EntryMap gives the width in bytes of each directory entry sub-field
type EntryMap struct {
	FieldLengthWidth   uint8 `json:"field_length_width"`
	FieldPositionWidth uint8 `json:"field_position_width"`
	Reserved           Char  `json:"reserved"`
	FieldTagWidth      uint8 `json:"field_tag_width"`
}

// EntryWidth is the total size of one directory entry
func (m EntryMap) EntryWidth() int {
	return int(m.FieldTagWidth) + int(m.FieldLengthWidth) + int(m.FieldPositionWidth)
}

// ReadLeader parses a leader and validates it against the literals for kind
func ReadLeader(r *ByteReader, kind RecordKind) (*Leader, error) {
	lit := leaderTable[kind]
	l := &Leader{Kind: kind}

	var err error
	if l.RecordLength, err = r.ReadUnsignedDecimal(5); err != nil {
		return nil, annotate(err, "leader", "record_length")
	}

	chars := []struct {
		name string
		want Char
		dst  *Char
	}{
		{"interchange_level", lit.interchangeLevel, &l.InterchangeLevel},
		{"leader_identifier", lit.leaderIdentifier, &l.LeaderIdentifier},
		{"code_extension", lit.codeExtension, &l.CodeExtension},
		{"version_number", lit.versionNumber, &l.VersionNumber},
		{"application_indicator", lit.applicationIndicator, &l.ApplicationIndicator},
	}
	for _, c := range chars {
		offset := r.Offset()
		b, err := r.ReadChar()
		if err != nil {
			return nil, annotate(err, "leader", c.name)
		}
		if got := Char(b); got != c.want {
			return nil, formatViolation("leader", c.name, c.want.String(), got.String(), offset)
		}
		*c.dst = Char(b)
	}

	offset := r.Offset()
	fcl, err := r.ReadFixedString(2)
	if err != nil {
		return nil, annotate(err, "leader", "field_control_length")
	}
	if fcl != lit.fieldControlLength {
		return nil, formatViolation("leader", "field_control_length", lit.fieldControlLength, fcl, offset)
	}
	l.FieldControlLength = lit.fieldControlWidth

	if l.BaseAddress, err = r.ReadUnsignedDecimal(5); err != nil {
		return nil, annotate(err, "leader", "base_address")
	}

	offset = r.Offset()
	if l.CharacterSet, err = r.ReadFixedString(3); err != nil {
		return nil, annotate(err, "leader", "character_set")
	}
	if l.CharacterSet != lit.characterSet {
		return nil, formatViolation("leader", "character_set", lit.characterSet, l.CharacterSet, offset)
	}

	if l.EntryMap, err = readEntryMap(r); err != nil {
		return nil, err
	}

	if l.BaseAddress < LeaderLength || l.BaseAddress > l.RecordLength {
		return nil, &DecodeError{
			Kind:      KindStructural,
			Component: "leader",
			Field:     "base_address",
			Actual:    strconv.FormatUint(l.BaseAddress, 10),
			Offset:    offset - 5,
			Err:       fmt.Errorf("must lie between %d and record length %d", LeaderLength, l.RecordLength),
		}
	}

	return l, nil
}

func readEntryMap(r *ByteReader) (EntryMap, error) {
	var m EntryMap
	widths := []struct {
		name string
		dst  *uint8
	}{
		{"field_length_width", &m.FieldLengthWidth},
		{"field_position_width", &m.FieldPositionWidth},
	}
	for _, w := range widths {
		if err := readWidth(r, w.name, w.dst); err != nil {
			return m, err
		}
	}

	offset := r.Offset()
	reserved, err := r.ReadChar()
	if err != nil {
		return m, annotate(err, "leader", "entry_map.reserved")
	}
	if reserved != '0' {
		return m, formatViolation("leader", "entry_map.reserved", "0", Char(reserved).String(), offset)
	}
	m.Reserved = Char(reserved)

	if err := readWidth(r, "field_tag_width", &m.FieldTagWidth); err != nil {
		return m, err
	}
	return m, nil
}

func readWidth(r *ByteReader, name string, dst *uint8) error {
	offset := r.Offset()
	v, err := r.ReadUnsignedDecimal(1)
	if err != nil {
		return annotate(err, "leader", "entry_map."+name)
	}
	if v == 0 {
		return formatViolation("leader", "entry_map."+name, "1-9", "0", offset)
	}
	*dst = uint8(v)
	return nil
}
