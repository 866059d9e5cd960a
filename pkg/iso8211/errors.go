package iso8211

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a decoding failure
type ErrorKind int

const (
	// KindIO means the byte source could not produce the requested bytes
	KindIO ErrorKind = iota + 1
	// KindEncoding means text bytes were not valid in their declared encoding
	KindEncoding
	// KindNumericFormat means ASCII decimal digits were expected
	KindNumericFormat
	// KindFormatViolation means a fixed literal or coded character was wrong
	KindFormatViolation
	// KindSchemaMismatch means a data field disagrees with its schema
	KindSchemaMismatch
	// KindStructural means record framing (directory, lengths) is broken
	KindStructural
)

// Sentinel errors, one per kind, for use with errors.Is
var (
	ErrIO              = errors.New("i/o error")
	ErrEncoding        = errors.New("encoding error")
	ErrNumericFormat   = errors.New("numeric format error")
	ErrFormatViolation = errors.New("format violation")
	ErrSchemaMismatch  = errors.New("schema mismatch")
	ErrStructural      = errors.New("structural error")
)

func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindEncoding:
		return "encoding"
	case KindNumericFormat:
		return "numeric_format"
	case KindFormatViolation:
		return "format_violation"
	case KindSchemaMismatch:
		return "schema_mismatch"
	case KindStructural:
		return "structural"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindIO:
		return ErrIO
	case KindEncoding:
		return ErrEncoding
	case KindNumericFormat:
		return ErrNumericFormat
	case KindFormatViolation:
		return ErrFormatViolation
	case KindSchemaMismatch:
		return ErrSchemaMismatch
	case KindStructural:
		return ErrStructural
	default:
		return nil
	}
}

// DecodeError is the single error type returned by the decoder. It names the
// component and field that failed and, where applicable, the expected and
// actual raw values.
type DecodeError struct {
	Kind      ErrorKind
	Component string // leader, directory, field_control_field, ...
	Field     string // offending field, tag or operation
	Expected  string
	Actual    string
	Offset    int64 // byte offset in the stream where the failing read started
	Err       error // underlying cause, may be nil
}

func (e *DecodeError) Error() string {
	var b strings.Builder
	b.WriteString("iso8211: ")
	if e.Component != "" {
		b.WriteString(e.Component)
		b.WriteString(": ")
	}
	if sentinel := e.Kind.sentinel(); sentinel != nil {
		b.WriteString(sentinel.Error())
	} else {
		b.WriteString(e.Kind.String())
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " in %s", e.Field)
	}
	fmt.Fprintf(&b, " at offset %d", e.Offset)
	switch {
	case e.Expected != "":
		fmt.Fprintf(&b, ": expected %q, got %q", e.Expected, e.Actual)
	case e.Actual != "":
		fmt.Fprintf(&b, ": got %q", e.Actual)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *DecodeError) Unwrap() []error {
	var errs []error
	if sentinel := e.Kind.sentinel(); sentinel != nil {
		errs = append(errs, sentinel)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf returns the kind of the outermost DecodeError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}

// wrapAs re-labels an error produced by a lower layer with the kind and
// component currently being decoded, keeping the original as the cause.
func wrapAs(kind ErrorKind, component, field string, offset int64, err error) *DecodeError {
	return &DecodeError{
		Kind:      kind,
		Component: component,
		Field:     field,
		Offset:    offset,
		Err:       err,
	}
}

func formatViolation(component, field, expected, actual string, offset int64) *DecodeError {
	return &DecodeError{
		Kind:      KindFormatViolation,
		Component: component,
		Field:     field,
		Expected:  expected,
		Actual:    actual,
		Offset:    offset,
	}
}

// annotate fills in the component and field on errors bubbling up from the
// ByteReader, which only knows the operation it was performing.
func annotate(err error, component, field string) error {
	var de *DecodeError
	if errors.As(err, &de) && de.Component == "" {
		de.Component = component
		if field != "" {
			de.Field = field + " (" + de.Field + ")"
		}
	}
	return err
}
