package iso8211

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Subfield is one decoded value. Value holds a string for A and C formats,
// int64 for I, float64 for R and S, []byte for B, and uint64, int64 or
// float64 for the binary b formats. Blank ASCII numerics decode to nil.
type Subfield struct {
	Label  string `json:"label"`
	Format Format `json:"format"`
	Value  any    `json:"value"`
}

// DataField is one field of a data record split into subfields
type DataField struct {
	Tag string `json:"tag"`
	// Subfields holds the non-repeating subfields in descriptor order
	Subfields []Subfield `json:"subfields,omitempty"`
	// Groups holds one entry per repetition of a repeating subfield set
	Groups [][]Subfield `json:"groups,omitempty"`
}

// Subfield returns the first subfield with the given label, looking in the
// non-repeating subfields before the first repetition.
func (f *DataField) Subfield(label string) (Subfield, bool) {
	for _, s := range f.Subfields {
		if s.Label == label {
			return s, true
		}
	}
	if len(f.Groups) > 0 {
		for _, s := range f.Groups[0] {
			if s.Label == label {
				return s, true
			}
		}
	}
	return Subfield{}, false
}

// Values returns every value recorded under label, across all repetitions
func (f *DataField) Values(label string) []any {
	var out []any
	for _, s := range f.Subfields {
		if s.Label == label {
			out = append(out, s.Value)
		}
	}
	for _, g := range f.Groups {
		for _, s := range g {
			if s.Label == label {
				out = append(out, s.Value)
			}
		}
	}
	return out
}

// Repeats returns the number of repetitions of the repeating group
func (f *DataField) Repeats() int {
	return len(f.Groups)
}

// fieldCursor walks the content of a single field
type fieldCursor struct {
	tag    string
	data   []byte
	pos    int
	level  LexicalLevel
	offset int64 // stream offset of data[0]

	// delimited is set when the last subfield ended with a unit terminator
	delimited bool
}

// decodeDataField splits raw, which includes its field terminator, using the
// schema entry for the field's tag.
func decodeDataField(tag string, raw []byte, def *DataDescriptiveField, offset int64) (*DataField, error) {
	layout, err := def.compiled()
	if err != nil {
		return nil, err
	}

	content, err := stripFieldTerminator(raw, layout.level)
	if err != nil {
		return nil, &DecodeError{
			Kind:      KindStructural,
			Component: "data_field",
			Field:     tag,
			Actual:    fmt.Sprintf("% x", lastBytes(raw, 2)),
			Offset:    offset + int64(len(raw)),
			Err:       err,
		}
	}

	c := &fieldCursor{tag: tag, data: content, level: layout.level, offset: offset}
	f := &DataField{Tag: tag}

	for _, d := range layout.prefix {
		s, err := c.next(d)
		if err != nil {
			return nil, err
		}
		f.Subfields = append(f.Subfields, s)
	}

	if len(layout.repeating) == 0 {
		if c.remaining() > 0 {
			return nil, c.mismatch(layout.prefix[len(layout.prefix)-1].label,
				fmt.Errorf("%d bytes left after the last subfield", c.remaining()))
		}
		return f, nil
	}

	for c.remaining() > 0 {
		group := make([]Subfield, 0, len(layout.repeating))
		for i, d := range layout.repeating {
			if i > 0 && c.remaining() == 0 && !c.delimited {
				return nil, c.mismatch(d.label,
					fmt.Errorf("repetition %d ends after %d of %d subfields", len(f.Groups)+1, i, len(layout.repeating)))
			}
			s, err := c.next(d)
			if err != nil {
				return nil, err
			}
			group = append(group, s)
		}
		f.Groups = append(f.Groups, group)
	}
	return f, nil
}

func stripFieldTerminator(raw []byte, level LexicalLevel) ([]byte, error) {
	n := len(raw)
	if level == Level2 && n >= 2 && raw[n-2] == FieldTerminator && raw[n-1] == Null {
		return raw[:n-2], nil
	}
	if n >= 1 && raw[n-1] == FieldTerminator {
		return raw[:n-1], nil
	}
	return nil, fmt.Errorf("field does not end with a field terminator")
}

func lastBytes(b []byte, n int) []byte {
	if len(b) < n {
		return b
	}
	return b[len(b)-n:]
}

func (c *fieldCursor) remaining() int {
	return len(c.data) - c.pos
}

func (c *fieldCursor) mismatch(label string, err error) *DecodeError {
	return &DecodeError{
		Kind:      KindSchemaMismatch,
		Component: "data_field",
		Field:     c.tag + "." + label,
		Offset:    c.offset + int64(c.pos),
		Err:       err,
	}
}

// take returns the bytes of the next subfield and advances past them and
// any unit terminator that delimits them.
func (c *fieldCursor) take(d subfieldDef) ([]byte, error) {
	c.delimited = false
	if w := d.format.Width; w > 0 {
		if c.remaining() < w {
			return nil, c.mismatch(d.label, fmt.Errorf("format %s needs %d bytes, %d remain", d.format, w, c.remaining()))
		}
		chunk := c.data[c.pos : c.pos+w]
		c.pos += w
		return chunk, nil
	}

	rest := c.data[c.pos:]
	if c.level == Level2 && d.format.isText() {
		for i := 0; i+1 < len(rest); i += 2 {
			if rest[i] == UnitTerminator && rest[i+1] == Null {
				c.pos += i + 2
				c.delimited = true
				return rest[:i], nil
			}
		}
		c.pos = len(c.data)
		return rest, nil
	}

	if i := bytes.IndexByte(rest, UnitTerminator); i >= 0 {
		c.pos += i + 1
		c.delimited = true
		return rest[:i], nil
	}
	c.pos = len(c.data)
	return rest, nil
}

func (c *fieldCursor) next(d subfieldDef) (Subfield, error) {
	start := c.offset + int64(c.pos)
	chunk, err := c.take(d)
	if err != nil {
		return Subfield{}, err
	}

	value, err := c.convert(d, chunk)
	if err != nil {
		if de, ok := err.(*DecodeError); ok {
			de.Component = "data_field"
			de.Field = c.tag + "." + d.label
			de.Offset = start
		}
		return Subfield{}, err
	}
	return Subfield{Label: d.label, Format: d.format, Value: value}, nil
}

func (f Format) isText() bool {
	switch f.Type {
	case FormatCharacter, FormatCharacterBits, FormatImplicitPoint, FormatExplicitPoint, FormatScaled:
		return true
	}
	return false
}

func (c *fieldCursor) convert(d subfieldDef, chunk []byte) (any, error) {
	switch d.format.Type {
	case FormatCharacter, FormatCharacterBits:
		return decodeText(chunk, c.level)

	case FormatImplicitPoint:
		text, err := decodeText(chunk, c.level)
		if err != nil {
			return nil, err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, nil
		}
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, &DecodeError{Kind: KindNumericFormat, Actual: text, Err: err}
		}
		return v, nil

	case FormatExplicitPoint, FormatScaled:
		text, err := decodeText(chunk, c.level)
		if err != nil {
			return nil, err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, &DecodeError{Kind: KindNumericFormat, Actual: text, Err: err}
		}
		return v, nil

	case FormatBitString:
		out := make([]byte, len(chunk))
		copy(out, chunk)
		return out, nil

	case FormatBinary:
		return decodeBinary(d.format, chunk), nil
	}
	return nil, fmt.Errorf("unsupported format %s", d.format)
}

// decodeBinary interprets a little-endian b-format value. The chunk length
// always equals the format width.
func decodeBinary(f Format, chunk []byte) any {
	var buf [8]byte
	copy(buf[:], chunk)
	u := binary.LittleEndian.Uint64(buf[:])

	switch f.BinaryForm {
	case binarySigned:
		shift := uint(64 - 8*f.Width)
		return int64(u<<shift) >> shift
	case binaryFloat:
		if f.Width == 4 {
			return float64(math.Float32frombits(uint32(u)))
		}
		return math.Float64frombits(u)
	default:
		return u
	}
}

var (
	latin1 = charmap.ISO8859_1
	ucs2   = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
)

// decodeText converts subfield bytes to a string according to the field's
// lexical level.
func decodeText(b []byte, level LexicalLevel) (string, error) {
	switch level {
	case Level1:
		out, err := latin1.NewDecoder().Bytes(b)
		if err != nil {
			return "", &DecodeError{Kind: KindEncoding, Actual: string(b), Err: err}
		}
		return string(out), nil

	case Level2:
		if len(b)%2 != 0 {
			return "", &DecodeError{Kind: KindEncoding, Actual: fmt.Sprintf("% x", b), Err: fmt.Errorf("odd byte count %d for UCS-2 text", len(b))}
		}
		out, err := ucs2.NewDecoder().Bytes(b)
		if err != nil {
			return "", &DecodeError{Kind: KindEncoding, Actual: fmt.Sprintf("% x", b), Err: err}
		}
		return string(out), nil

	default:
		if !utf8.Valid(b) {
			return "", &DecodeError{Kind: KindEncoding, Actual: fmt.Sprintf("% x", b)}
		}
		return string(b), nil
	}
}
