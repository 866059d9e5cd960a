package iso8211

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// FormatType is the type letter of a format control
type FormatType byte

const (
	FormatCharacter     FormatType = 'A'
	FormatImplicitPoint FormatType = 'I'
	FormatExplicitPoint FormatType = 'R'
	FormatScaled        FormatType = 'S'
	FormatCharacterBits FormatType = 'C'
	FormatBitString     FormatType = 'B'
	FormatBinary        FormatType = 'b'
)

const (
	binaryUnsigned byte = '1'
	binarySigned   byte = '2'
	binaryFloat    byte = '4'
)

// MaxFormats bounds the number of formats a format control string may
// expand to once repeat counts are applied.
const MaxFormats = 4096

// Format describes how one subfield is encoded
type Format struct {
	Type FormatType
	// Width is the fixed size in bytes; 0 means unit-terminator delimited
	Width int
	// BinaryForm is the b-format type digit: '1' unsigned, '2' signed, '4' float
	BinaryForm byte
}

// Fixed reports whether the subfield has a fixed width
func (f Format) Fixed() bool {
	return f.Width > 0
}

func (f Format) String() string {
	switch {
	case f.Type == FormatBinary:
		return fmt.Sprintf("b%c%d", f.BinaryForm, f.Width)
	case f.Type == FormatBitString && f.Width > 0:
		return fmt.Sprintf("B(%d)", f.Width*8)
	case f.Width > 0:
		return fmt.Sprintf("%c(%d)", f.Type, f.Width)
	default:
		return string(rune(f.Type))
	}
}

// MarshalText renders the format in its control-string form
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// ParseFormatControls expands a format control string such as
// "(b11,b14,2b12)" or "(A(2),2(I(5),R))" into one Format per subfield.
func ParseFormatControls(s string) ([]Format, error) {
	if s == "" {
		return nil, nil
	}
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return nil, fmt.Errorf("format controls %q must be enclosed in parentheses", s)
	}
	inner := s[1 : len(s)-1]
	if inner == "" {
		return nil, nil
	}
	return parseFormatList(inner)
}

func parseFormatList(s string) ([]Format, error) {
	items, err := splitTopLevel(s)
	if err != nil {
		return nil, err
	}

	var out []Format
	for _, item := range items {
		count, rest := leadingCount(item)
		if rest == "" {
			return nil, fmt.Errorf("empty format item in %q", s)
		}

		var unit []Format
		if rest[0] == '(' {
			if rest[len(rest)-1] != ')' {
				return nil, fmt.Errorf("unbalanced group %q", rest)
			}
			if unit, err = parseFormatList(rest[1 : len(rest)-1]); err != nil {
				return nil, err
			}
		} else {
			f, err := parseFormat(rest)
			if err != nil {
				return nil, err
			}
			unit = []Format{f}
		}

		if len(unit) > 0 && count > (MaxFormats-len(out))/len(unit) {
			return nil, fmt.Errorf("format item %q expands past %d formats", item, MaxFormats)
		}
		for i := 0; i < count; i++ {
			out = append(out, unit...)
		}
	}
	return out, nil
}

// splitTopLevel splits on commas that are not nested inside parentheses
func splitTopLevel(s string) ([]string, error) {
	var items []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced parentheses in %q", s)
			}
		case ',':
			if depth == 0 {
				items = append(items, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced parentheses in %q", s)
	}
	return append(items, s[start:]), nil
}

func leadingCount(item string) (int, string) {
	i := 0
	for i < len(item) && item[i] >= '0' && item[i] <= '9' {
		i++
	}
	if i == 0 {
		return 1, item
	}
	n, err := strconv.Atoi(item[:i])
	if err != nil || n == 0 {
		return 0, ""
	}
	return n, item[i:]
}

func parseFormat(d string) (Format, error) {
	t := FormatType(d[0])
	switch t {
	case FormatCharacter, FormatImplicitPoint, FormatExplicitPoint, FormatScaled, FormatCharacterBits:
		width, err := parenWidth(d[1:])
		if err != nil {
			return Format{}, fmt.Errorf("format %q: %w", d, err)
		}
		return Format{Type: t, Width: width}, nil

	case FormatBitString:
		bits, err := parenWidth(d[1:])
		if err != nil {
			return Format{}, fmt.Errorf("format %q: %w", d, err)
		}
		if bits%8 != 0 {
			return Format{}, fmt.Errorf("format %q: bit string width %d is not a whole number of bytes", d, bits)
		}
		return Format{Type: t, Width: bits / 8}, nil

	case FormatBinary:
		if len(d) < 3 {
			return Format{}, fmt.Errorf("format %q: binary form needs a type and a width", d)
		}
		form := d[1]
		width, err := strconv.Atoi(d[2:])
		if err != nil || width < 1 || width > 8 {
			return Format{}, fmt.Errorf("format %q: binary width must be 1-8 bytes", d)
		}
		switch form {
		case binaryUnsigned, binarySigned:
		case binaryFloat:
			if width != 4 && width != 8 {
				return Format{}, fmt.Errorf("format %q: floating point width must be 4 or 8", d)
			}
		default:
			return Format{}, fmt.Errorf("format %q: unsupported binary form %q", d, form)
		}
		return Format{Type: t, Width: width, BinaryForm: form}, nil
	}
	return Format{}, fmt.Errorf("format %q: unknown type %q", d, d[0])
}

// parenWidth parses an optional "(n)" suffix; no suffix means variable width
func parenWidth(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	if len(s) < 3 || s[0] != '(' || s[len(s)-1] != ')' {
		return 0, errors.New("width must be written as (n)")
	}
	n, err := strconv.Atoi(s[1 : len(s)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid width %q", s[1:len(s)-1])
	}
	return n, nil
}

// subfieldDef pairs a label with its format
type subfieldDef struct {
	label  string
	format Format
}

// fieldLayout is a data descriptive field compiled for decoding
type fieldLayout struct {
	level      LexicalLevel
	prefix     []subfieldDef
	repeating  []subfieldDef
	dimensions []string
}

func (l *fieldLayout) labels() []string {
	out := make([]string, 0, len(l.prefix)+len(l.repeating))
	for _, d := range l.prefix {
		out = append(out, d.label)
	}
	for _, d := range l.repeating {
		out = append(out, d.label)
	}
	return out
}

// compileLayout pairs the array descriptor's labels with the expanded format
// controls.
func compileLayout(f *DataDescriptiveField) (*fieldLayout, error) {
	formats, err := ParseFormatControls(f.FormatControls)
	if err != nil {
		return nil, &DecodeError{
			Kind:      KindFormatViolation,
			Component: "data_descriptive_field",
			Field:     fieldRef(f.Tag, "format_controls"),
			Actual:    f.FormatControls,
			Err:       err,
		}
	}

	l := &fieldLayout{level: f.FieldControls.EscapeSequence}
	var prefix, repeating []string
	desc := f.ArrayDescriptor
	if i := strings.IndexByte(desc, '*'); i >= 0 {
		prefix = splitLabels(desc[:i])
		repeating = splitLabels(desc[i+1:])
		if f.FieldControls.DataStructure == MultiDimensionalStructure && len(prefix) > 0 {
			l.dimensions = prefix
			prefix = nil
		}
	} else {
		prefix = splitLabels(desc)
	}

	labelCount := len(prefix) + len(repeating)
	switch {
	case labelCount == 0:
		// Elementary field: the whole field is one value named by the tag
		if len(formats) == 0 {
			formats = []Format{{Type: FormatCharacter}}
		}
		prefix = []string{f.Tag}
		labelCount = 1
	case len(formats) == 0:
		for i := 0; i < labelCount; i++ {
			formats = append(formats, Format{Type: FormatCharacter})
		}
	}

	if len(formats) != labelCount {
		return nil, &DecodeError{
			Kind:      KindSchemaMismatch,
			Component: "data_descriptive_field",
			Field:     fieldRef(f.Tag, "format_controls"),
			Expected:  fmt.Sprintf("%d formats", labelCount),
			Actual:    f.FormatControls,
			Err:       fmt.Errorf("array descriptor %q declares %d subfields but format controls expand to %d", desc, labelCount, len(formats)),
		}
	}

	for i, label := range prefix {
		l.prefix = append(l.prefix, subfieldDef{label: label, format: formats[i]})
	}
	for i, label := range repeating {
		l.repeating = append(l.repeating, subfieldDef{label: label, format: formats[len(prefix)+i]})
	}
	return l, nil
}

func splitLabels(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "!")
}

func fieldRef(tag, field string) string {
	if tag == "" {
		return field
	}
	return tag + "." + field
}
