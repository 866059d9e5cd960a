// Package iso8211 decodes files in the ISO/IEC 8211 interchange format.
//
// An ISO 8211 file is a sequence of self-describing variable-length records.
// The first record, the Data Descriptive Record (DDR), declares the layout of
// every field tag. Each following Data Record (DR) carries values laid out
// according to that schema.
//
// # Record Format
//
// Every record has the same three parts:
//
//	[Leader(24)][Directory][Field area]
//
// The leader gives the record length, the base address of the field area and
// an entry map with the widths of the directory sub-fields. The directory is a
// run of fixed-width entries terminated by 0x1E:
//
//	[Tag(w1)][Length(w2)][Position(w3)] ... 0x1E
//
// Field positions are relative to the base address. Every field ends with the
// field terminator 0x1E; variable-length subfields inside it end with the unit
// terminator 0x1F.
//
// # Schema
//
// Entry 0 of the DDR directory is the Field Control Field, a list of
// parent/child tag pairs. Every other entry is a DataDescriptiveField giving
// the field's structure and type codes, its lexical level, its name, an array
// descriptor naming the subfields ("RCNM!RCID" or "*YCOO!XCOO") and a format
// control string describing how they are encoded ("(b11,b14)" or "(2b24)").
//
// # Usage
//
// Streaming records one at a time:
//
//	dec, err := iso8211.NewDecoder(f)
//	if err != nil {
//	    return err
//	}
//	it := dec.Iterator()
//	for it.Next() {
//	    rec := it.Record()
//	    if vrid, ok := rec.Field("VRID"); ok {
//	        rcid, _ := vrid.Subfield("RCID")
//	        fmt.Println(rcid.Value)
//	    }
//	}
//	if err := it.Err(); err != nil {
//	    return err
//	}
//
// Or decoding a whole file at once with ReadInterchangeFile.
//
// # Error Handling
//
// Every failure is a *DecodeError naming the component, the field and, where
// one exists, the expected and actual raw values. The Kind classifies it:
//   - KindIO: the source could not produce the requested bytes
//   - KindEncoding: text was not valid in its declared encoding
//   - KindNumericFormat: ASCII digits were expected
//   - KindFormatViolation: a fixed literal or coded character was wrong
//   - KindSchemaMismatch: a data field disagrees with its schema
//   - KindStructural: directory or length framing is broken
//
// Errors are fail-fast. A broken data record aborts the whole read because
// the position of the next record cannot be trusted.
//
// # Thread Safety
//
// A Decoder and its ByteReader belong to one goroutine. Decoded records and
// the schema are not modified after they are returned and may be shared.
package iso8211
