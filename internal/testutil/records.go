// Package testutil builds byte-exact ISO 8211 records for tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

const (
	FT byte = 0x1e
	UT byte = 0x1f
)

// Field is one tagged field of a record, terminators included
type Field struct {
	Tag  string
	Data []byte
}

// Builder lays out records with the given directory entry widths
type Builder struct {
	LengthWidth   int
	PositionWidth int
	TagWidth      int
}

// DefaultBuilder uses the "5504" entry map
func DefaultBuilder() Builder {
	return Builder{LengthWidth: 5, PositionWidth: 5, TagWidth: 4}
}

// DDR builds a data descriptive record. The first field should be the field
// control field.
func (b Builder) DDR(fields ...Field) []byte {
	return b.record("3LE1 09", " ! ", fields)
}

// DR builds a data record
func (b Builder) DR(fields ...Field) []byte {
	return b.record(" D     ", "   ", fields)
}

func (b Builder) record(controls, charset string, fields []Field) []byte {
	var dir, area bytes.Buffer
	for _, f := range fields {
		fmt.Fprintf(&dir, "%-*s%0*d%0*d", b.TagWidth, f.Tag, b.LengthWidth, len(f.Data), b.PositionWidth, area.Len())
		area.Write(f.Data)
	}
	dir.WriteByte(FT)

	base := 24 + dir.Len()
	total := base + area.Len()

	var out bytes.Buffer
	fmt.Fprintf(&out, "%05d%s%05d%s%d%d0%d", total, controls, base, charset, b.LengthWidth, b.PositionWidth, b.TagWidth)
	out.Write(dir.Bytes())
	out.Write(area.Bytes())
	return out.Bytes()
}

// FieldControlField encodes tag pairs given as "PARENTCHILD" strings
func FieldControlField(pairs ...string) []byte {
	var buf bytes.Buffer
	buf.WriteString("0000;&   ")
	buf.WriteByte(UT)
	for _, p := range pairs {
		buf.WriteString(p)
	}
	buf.WriteByte(FT)
	return buf.Bytes()
}

// DescriptiveField encodes a data descriptive field
func DescriptiveField(controls, name, descriptor, format string) []byte {
	var buf bytes.Buffer
	buf.WriteString(controls)
	buf.WriteString(name)
	buf.WriteByte(UT)
	buf.WriteString(descriptor)
	buf.WriteByte(UT)
	buf.WriteString(format)
	buf.WriteByte(FT)
	return buf.Bytes()
}

// Data concatenates subfield bytes and appends the field terminator
func Data(parts ...[]byte) []byte {
	var buf bytes.Buffer
	for _, p := range parts {
		buf.Write(p)
	}
	buf.WriteByte(FT)
	return buf.Bytes()
}

// Unit returns s followed by a unit terminator
func Unit(s string) []byte {
	return append([]byte(s), UT)
}

func U8(v uint8) []byte { return []byte{v} }

func U16(v uint16) []byte { return binary.LittleEndian.AppendUint16(nil, v) }

func U32(v uint32) []byte { return binary.LittleEndian.AppendUint32(nil, v) }

func I32(v int32) []byte { return binary.LittleEndian.AppendUint32(nil, uint32(v)) }

func F64(v float64) []byte { return binary.LittleEndian.AppendUint64(nil, math.Float64bits(v)) }

// SampleSchema is a small vector-record schema in the style of an
// electronic chart cell.
func SampleSchema() []byte {
	b := DefaultBuilder()
	return b.DDR(
		Field{"0000", FieldControlField("0001VRID", "VRIDATTV", "VRIDSG2D")},
		Field{"0001", DescriptiveField("0100;&   ", "DDF RECORD IDENTIFIER", "", "(b12)")},
		Field{"VRID", DescriptiveField("1600;&   ", "VECTOR RECORD IDENTIFIER", "RCNM!RCID!RVER!RUIN", "(b11,b14,b12,b11)")},
		Field{"ATTV", DescriptiveField("1600;&   ", "ATTRIBUTE VALUE", "*ATTL!ATVL", "(b12,A)")},
		Field{"SG2D", DescriptiveField("2500;&   ", "2-D COORDINATE FIELDS", "*YCOO!XCOO", "(2b24)")},
	)
}

// SampleRecord is a data record conforming to SampleSchema
func SampleRecord(id uint32) []byte {
	b := DefaultBuilder()
	return b.DR(
		Field{"0001", Data(U16(uint16(id)))},
		Field{"VRID", Data(U8(110), U32(id), U16(1), U8(1))},
		Field{"ATTV", Data(U16(174), Unit("LIGHT"), U16(116), Unit("North Pier"))},
		Field{"SG2D", Data(I32(-339512345), I32(1512345678), I32(-339500000), I32(1512300000))},
	)
}

// SampleFile returns SampleSchema followed by n sample records
func SampleFile(n int) []byte {
	out := SampleSchema()
	for i := 1; i <= n; i++ {
		out = append(out, SampleRecord(uint32(i))...)
	}
	return out
}
