package iso8211

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/iso8211/internal/testutil"
)

func readSchema(t *testing.T, data []byte) (*DataDescriptiveRecord, *ByteReader) {
	t.Helper()
	r := NewByteReader(bytes.NewReader(data))
	ddr, err := ReadDataDescriptiveRecord(r)
	require.NoError(t, err)
	return ddr, r
}

func TestReadDataDescriptiveRecord_Sample(t *testing.T) {
	data := testutil.SampleSchema()
	ddr, r := readSchema(t, data)

	assert.Equal(t, int64(len(data)), r.Offset())
	assert.Equal(t, uint64(len(data)), ddr.Leader.RecordLength)
	assert.Equal(t, 5, ddr.Directory.Len())
	assert.Len(t, ddr.FieldControlField.TagPairs, 3)
	assert.Equal(t, []string{"0001", "VRID", "ATTV", "SG2D"}, ddr.Tags())

	vrid, ok := ddr.Field("VRID")
	require.True(t, ok)
	assert.Equal(t, "VECTOR RECORD IDENTIFIER", vrid.FieldName)
	assert.Equal(t, LinearStructure, vrid.FieldControls.DataStructure)

	sg2d, ok := ddr.Field("SG2D")
	require.True(t, ok)
	assert.True(t, sg2d.Repeating())

	_, ok = ddr.Field("NOPE")
	assert.False(t, ok)
}

func TestReadDataDescriptiveRecord_LengthChecks(t *testing.T) {
	b := testutil.DefaultBuilder()
	fcf := testutil.Field{Tag: "0000", Data: testutil.FieldControlField("0001VRID")}

	t.Run("no entries", func(t *testing.T) {
		_, err := ReadDataDescriptiveRecord(NewByteReader(bytes.NewReader(b.DDR())))
		assert.True(t, errors.Is(err, ErrStructural), "got %v", err)
	})

	t.Run("field longer than its content", func(t *testing.T) {
		padded := append(testutil.DescriptiveField("0100;&   ", "ID", "", "(b12)"), 'X')
		_, err := ReadDataDescriptiveRecord(NewByteReader(bytes.NewReader(b.DDR(fcf, testutil.Field{Tag: "0001", Data: padded}))))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrStructural), "got %v", err)
		assert.Contains(t, err.Error(), "0001")
	})

	t.Run("base address disagrees", func(t *testing.T) {
		data := b.DDR(fcf, testutil.Field{Tag: "0001", Data: testutil.DescriptiveField("0100;&   ", "ID", "", "(b12)")})
		data = bytes.Clone(data)
		copy(data[12:17], "00030")
		_, err := ReadDataDescriptiveRecord(NewByteReader(bytes.NewReader(data)))
		assert.True(t, errors.Is(err, ErrStructural), "got %v", err)
	})

	t.Run("record length disagrees", func(t *testing.T) {
		data := b.DDR(fcf, testutil.Field{Tag: "0001", Data: testutil.DescriptiveField("0100;&   ", "ID", "", "(b12)")})
		data = bytes.Clone(data)
		copy(data[0:5], "09999")
		_, err := ReadDataDescriptiveRecord(NewByteReader(bytes.NewReader(data)))
		var de *DecodeError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, KindStructural, de.Kind)
		assert.Equal(t, "record_length", de.Field)
	})
}

func TestReadDataRecord_Sample(t *testing.T) {
	schema, _ := readSchema(t, testutil.SampleSchema())
	rec, err := ReadDataRecord(NewByteReader(bytes.NewReader(testutil.SampleRecord(42))), schema)
	require.NoError(t, err)
	require.Len(t, rec.Fields, 4)

	id, ok := rec.Field("0001")
	require.True(t, ok)
	v, ok := id.Subfield("0001")
	require.True(t, ok)
	assert.Equal(t, uint64(42), v.Value)

	vrid, ok := rec.Field("VRID")
	require.True(t, ok)
	assert.Equal(t, 0, vrid.Repeats())
	want := map[string]any{"RCNM": uint64(110), "RCID": uint64(42), "RVER": uint64(1), "RUIN": uint64(1)}
	for label, value := range want {
		s, ok := vrid.Subfield(label)
		require.True(t, ok, label)
		assert.Equal(t, value, s.Value, label)
	}

	attv, ok := rec.Field("ATTV")
	require.True(t, ok)
	assert.Equal(t, 2, attv.Repeats())
	assert.Equal(t, []any{uint64(174), uint64(116)}, attv.Values("ATTL"))
	assert.Equal(t, []any{"LIGHT", "North Pier"}, attv.Values("ATVL"))

	sg2d, ok := rec.Field("SG2D")
	require.True(t, ok)
	assert.Equal(t, 2, sg2d.Repeats())
	assert.Equal(t, []any{int64(-339512345), int64(-339500000)}, sg2d.Values("YCOO"))
	assert.Equal(t, []any{int64(1512345678), int64(1512300000)}, sg2d.Values("XCOO"))

	_, ok = rec.Field("DSID")
	assert.False(t, ok)
}

func schemaWith(t *testing.T, tag, controls, descriptor, format string) *DataDescriptiveRecord {
	t.Helper()
	b := testutil.DefaultBuilder()
	ddr, _ := readSchema(t, b.DDR(
		testutil.Field{Tag: "0000", Data: testutil.FieldControlField()},
		testutil.Field{Tag: tag, Data: testutil.DescriptiveField(controls, "TEST FIELD", descriptor, format)},
	))
	return ddr
}

func decodeOne(t *testing.T, schema *DataDescriptiveRecord, tag string, data []byte) (*DataField, error) {
	t.Helper()
	rec, err := ReadDataRecord(NewByteReader(bytes.NewReader(testutil.DefaultBuilder().DR(testutil.Field{Tag: tag, Data: data}))), schema)
	if err != nil {
		return nil, err
	}
	return rec.Fields[0], nil
}

func TestDataField_ASCIINumerics(t *testing.T) {
	schema := schemaWith(t, "NUMS", "1600;&   ", "CNT!VAL!SCL!TXT", "(I(3),R(5),S,A(2))")

	f, err := decodeOne(t, schema, "NUMS", testutil.Data([]byte("   "), []byte(" -1.5"), testutil.Unit("2E3"), []byte("ok")))
	require.NoError(t, err)

	cnt, _ := f.Subfield("CNT")
	assert.Nil(t, cnt.Value, "blank numerics decode to nil")
	val, _ := f.Subfield("VAL")
	assert.Equal(t, -1.5, val.Value)
	scl, _ := f.Subfield("SCL")
	assert.Equal(t, 2000.0, scl.Value)
	txt, _ := f.Subfield("TXT")
	assert.Equal(t, "ok", txt.Value)

	_, err = decodeOne(t, schema, "NUMS", testutil.Data([]byte("1x3"), []byte("1.0  "), testutil.Unit(""), []byte("ok")))
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, KindNumericFormat, de.Kind)
	assert.Equal(t, "NUMS.CNT", de.Field)
}

func TestDataField_BinaryForms(t *testing.T) {
	schema := schemaWith(t, "BINS", "1500;&   ", "U8!I16!I32!F64!RAW", "(b11,b22,b24,b48,B(16))")

	f, err := decodeOne(t, schema, "BINS", testutil.Data(
		testutil.U8(255),
		[]byte{0xfe, 0xff},
		testutil.I32(-7),
		testutil.F64(51.5),
		[]byte{0xca, 0xfe},
	))
	require.NoError(t, err)

	assert.Equal(t, []any{uint64(255)}, f.Values("U8"))
	assert.Equal(t, []any{int64(-2)}, f.Values("I16"))
	assert.Equal(t, []any{int64(-7)}, f.Values("I32"))
	assert.Equal(t, []any{51.5}, f.Values("F64"))
	assert.Equal(t, []any{[]byte{0xca, 0xfe}}, f.Values("RAW"))
}

func TestDataField_Latin1(t *testing.T) {
	schema := schemaWith(t, "NOBJ", "1600;&-A ", "OBJL!NOBJ", "(b12,A)")

	f, err := decodeOne(t, schema, "NOBJ", testutil.Data(testutil.U16(7), []byte{'C', 'a', 'f', 0xe9}))
	require.NoError(t, err)

	s, ok := f.Subfield("NOBJ")
	require.True(t, ok)
	assert.Equal(t, "Café", s.Value)
}

func TestDataField_UCS2(t *testing.T) {
	schema := schemaWith(t, "NATF", "1600;&%/A", "*ATTL!ATVL", "(b12,A)")

	raw := []byte{}
	raw = append(raw, testutil.U16(300)...)
	raw = append(raw, 'H', 0, 'i', 0, 0x1f, 0)
	raw = append(raw, testutil.U16(301)...)
	raw = append(raw, 0xe9, 0, 0x1f, 0)
	raw = append(raw, 0x1e, 0)

	f, err := decodeOne(t, schema, "NATF", raw)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Repeats())
	assert.Equal(t, []any{"Hi", "é"}, f.Values("ATVL"))
}

func TestDataField_InvalidText(t *testing.T) {
	schema := schemaWith(t, "NAME", "0000;&   ", "", "(A)")

	_, err := decodeOne(t, schema, "NAME", testutil.Data([]byte{0xff, 0xfe}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEncoding))
}

func TestDataField_SchemaMismatch(t *testing.T) {
	schema, _ := readSchema(t, testutil.SampleSchema())
	b := testutil.DefaultBuilder()

	tests := []struct {
		name  string
		field testutil.Field
		tag   string
	}{
		{
			name:  "unknown tag",
			field: testutil.Field{Tag: "DSID", Data: testutil.Data([]byte("x"))},
			tag:   "DSID",
		},
		{
			name:  "short fixed field",
			field: testutil.Field{Tag: "VRID", Data: testutil.Data(testutil.U8(110), testutil.U16(1))},
			tag:   "VRID",
		},
		{
			name:  "trailing bytes",
			field: testutil.Field{Tag: "0001", Data: testutil.Data(testutil.U32(1))},
			tag:   "0001",
		},
		{
			name:  "partial repetition",
			field: testutil.Field{Tag: "SG2D", Data: testutil.Data(testutil.I32(1), testutil.I32(2), testutil.I32(3))},
			tag:   "SG2D",
		},
		{
			name:  "partial variable repetition",
			field: testutil.Field{Tag: "ATTV", Data: testutil.Data(testutil.U16(174), testutil.Unit("LIGHT"), testutil.U16(116))},
			tag:   "ATTV.ATVL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := ReadDataRecord(NewByteReader(bytes.NewReader(b.DR(tt.field))), schema)
			require.Error(t, err)
			assert.Nil(t, rec)
			assert.True(t, errors.Is(err, ErrSchemaMismatch), "got %v", err)
			assert.Contains(t, err.Error(), tt.tag)
		})
	}
}

func TestDataField_LayoutMismatchReportedOnUse(t *testing.T) {
	schema := schemaWith(t, "VRID", "1600;&   ", "RCNM!RCID!RVER", "(b11,b14)")

	_, err := decodeOne(t, schema, "VRID", testutil.Data(testutil.U8(1), testutil.U32(2)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaMismatch))
}

func TestReadDataRecord_MissingFieldTerminator(t *testing.T) {
	schema, _ := readSchema(t, testutil.SampleSchema())
	data := testutil.DefaultBuilder().DR(testutil.Field{Tag: "0001", Data: testutil.U16(1)})

	_, err := ReadDataRecord(NewByteReader(bytes.NewReader(data)), schema)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStructural))
}

func TestReadDataRecord_Truncated(t *testing.T) {
	schema, _ := readSchema(t, testutil.SampleSchema())
	data := testutil.SampleRecord(1)

	for _, cut := range []int{10, 30, len(data) - 1} {
		_, err := ReadDataRecord(NewByteReader(bytes.NewReader(data[:cut])), schema)
		require.Error(t, err, "cut at %d", cut)
		kind, _ := KindOf(err)
		assert.Equal(t, KindStructural, kind, "cut at %d: %v", cut, err)
	}
}

func TestDataRecord_FieldsByTag(t *testing.T) {
	schema := schemaWith(t, "NOTE", "0100;&   ", "", "(A)")
	data := testutil.DefaultBuilder().DR(
		testutil.Field{Tag: "NOTE", Data: testutil.Data([]byte("first"))},
		testutil.Field{Tag: "NOTE", Data: testutil.Data([]byte("second"))},
	)
	rec, err := ReadDataRecord(NewByteReader(bytes.NewReader(data)), schema)
	require.NoError(t, err)

	notes := rec.FieldsByTag("NOTE")
	require.Len(t, notes, 2)
	assert.Equal(t, []any{"first"}, notes[0].Values("NOTE"))
	assert.Equal(t, []any{"second"}, notes[1].Values("NOTE"))
	assert.Empty(t, rec.FieldsByTag("NONE"))
}

func TestDataField_VariableRepetitions(t *testing.T) {
	schema := schemaWith(t, "ATTV", "1600;&   ", "*ATTL!ATVL", "(A,A)")

	_, err := decodeOne(t, schema, "ATTV", testutil.Data(
		testutil.Unit("a"), testutil.Unit("1"), testutil.Unit("b"), testutil.Unit("2"), []byte("c")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaMismatch), "got %v", err)

	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "ATTV.ATVL", de.Field)

	f, err := decodeOne(t, schema, "ATTV", testutil.Data(
		testutil.Unit("a"), testutil.Unit("1"), testutil.Unit("b"), testutil.Unit("")))
	require.NoError(t, err)
	assert.Equal(t, 2, f.Repeats())
	assert.Equal(t, []any{"1", ""}, f.Values("ATVL"))
}

func TestDataField_FormatExpansionLimit(t *testing.T) {
	schema := schemaWith(t, "SG2D", "2500;&   ", "*YCOO!XCOO", "(9999(9999(9999b24)))")

	_, err := decodeOne(t, schema, "SG2D", testutil.Data(testutil.I32(1), testutil.I32(2)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFormatViolation), "got %v", err)
}
