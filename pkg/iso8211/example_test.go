package iso8211_test

import (
	"errors"
	"fmt"
	"log"

	"github.com/ssargent/iso8211/internal/testutil"
	"github.com/ssargent/iso8211/pkg/iso8211"
)

// ExampleRead decodes a whole file and reads subfields by label
func ExampleRead() {
	file, err := iso8211.Read(testutil.SampleFile(2))
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("fields:", file.DataDescriptiveRecord.Tags())
	for _, rec := range file.DataRecords {
		vrid, _ := rec.Field("VRID")
		rcid, _ := vrid.Subfield("RCID")
		attv, _ := rec.Field("ATTV")
		fmt.Printf("RCID=%v attributes=%d %v\n", rcid.Value, attv.Repeats(), attv.Values("ATVL"))
	}

	// Output:
	// fields: [0001 VRID ATTV SG2D]
	// RCID=1 attributes=2 [LIGHT North Pier]
	// RCID=2 attributes=2 [LIGHT North Pier]
}

// ExampleKindOf shows how decode failures are classified
func ExampleKindOf() {
	_, err := iso8211.Read([]byte("not an iso 8211 file"))

	kind, _ := iso8211.KindOf(err)
	fmt.Println(kind)
	fmt.Println(errors.Is(err, iso8211.ErrNumericFormat))
	fmt.Println(err)

	// Output:
	// numeric_format
	// true
	// data descriptive record: iso8211: leader: numeric format error in record_length (read_unsigned_decimal) at offset 0: got "not a"
}

// ExampleParseFormatControls expands repeat counts and groups
func ExampleParseFormatControls() {
	formats, err := iso8211.ParseFormatControls("(b11,b14,2(A,I(3)))")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(formats)

	// Output:
	// [b11 b14 A I(3) A I(3)]
}
