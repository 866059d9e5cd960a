package iso8211

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const s57TagPairs = "0001FRIDFRIDFOIDFRIDATTFFRIDNATFFRIDFFPCFRIDFFPTFRIDFSPCFRIDFSPT" +
	"0001VRIDVRIDATTVVRIDVRPCVRIDVRPTVRIDSGCCVRIDSG2DVRIDSG3DVRIDARCC" +
	"ARCCAR2DARCCEL2DARCCCT2D"

var ddrLeader5504 = &Leader{
	Kind:               DataDescriptive,
	FieldControlLength: 9,
	EntryMap:           EntryMap{FieldLengthWidth: 5, FieldPositionWidth: 5, Reserved: '0', FieldTagWidth: 4},
}

func TestReadFieldControlField_TagPairs(t *testing.T) {
	input := "0000;&   \x1f" + s57TagPairs + "\x1e"
	require.Len(t, input, 163)

	r := newReader(input)
	f, err := ReadFieldControlField(r, ddrLeader5504, DirectoryEntry{FieldTag: "0000", FieldLength: 163})
	require.NoError(t, err)
	require.Len(t, f.TagPairs, 19)
	assert.Equal(t, int64(163), r.Offset())

	assert.Equal(t, TagPair{Parent: "0001", Child: "FRID"}, f.TagPairs[0])
	assert.Equal(t, TagPair{Parent: "ARCC", Child: "CT2D"}, f.TagPairs[18])
	for _, p := range f.TagPairs {
		assert.Len(t, p.Parent, 4)
		assert.Len(t, p.Child, 4)
	}

	assert.Equal(t, []string{"ATTV", "VRPC", "VRPT", "SGCC", "SG2D", "SG3D", "ARCC"}, f.Children("VRID"))
	assert.Nil(t, f.Children("SG2D"))
}

func TestReadFieldControlField_NoPairs(t *testing.T) {
	f, err := ReadFieldControlField(newReader("0000;&   \x1f\x1e"), ddrLeader5504, DirectoryEntry{FieldLength: 11})
	require.NoError(t, err)
	assert.Empty(t, f.TagPairs)
}

func TestTagPairCount(t *testing.T) {
	tests := []struct {
		length  uint64
		width   int
		want    int
		wantErr bool
	}{
		{length: 163, width: 4, want: 19},
		{length: 11, width: 4, want: 0},
		{length: 19, width: 4, want: 1},
		{length: 17, width: 3, want: 1},
		{length: 164, width: 4, wantErr: true},
		{length: 15, width: 4, wantErr: true},
		{length: 10, width: 4, wantErr: true},
	}

	for _, tt := range tests {
		n, err := tagPairCount(tt.length, tt.width)
		if tt.wantErr {
			assert.Error(t, err, "length %d width %d", tt.length, tt.width)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, n, "length %d width %d", tt.length, tt.width)
	}
}

func TestReadFieldControlField_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		length uint64
		want   error
	}{
		{"bad literal", "0001;&   \x1f\x1e", 11, ErrFormatViolation},
		{"missing unit terminator", "0000;&   X0001VRID\x1e", 19, ErrStructural},
		{"indivisible length", "0000;&   \x1f0001VRI\x1e", 18, ErrStructural},
		{"missing field terminator", "0000;&   \x1f0001VRID\x1f", 19, ErrStructural},
		{"truncated pairs", "0000;&   \x1f0001", 19, ErrIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ReadFieldControlField(newReader(tt.input), ddrLeader5504, DirectoryEntry{FieldTag: "0000", FieldLength: tt.length})
			require.Error(t, err)
			assert.Nil(t, f)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			var de *DecodeError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, "field_control_field", de.Component)
		})
	}
}
