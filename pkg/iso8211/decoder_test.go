package iso8211

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/iso8211/internal/testutil"
)

func TestDecoder_Next(t *testing.T) {
	dec, err := NewDecoder(bytes.NewReader(testutil.SampleFile(3)))
	require.NoError(t, err)
	require.NotNil(t, dec.Schema())

	for i := 1; i <= 3; i++ {
		rec, err := dec.Next()
		require.NoError(t, err)
		vrid, ok := rec.Field("VRID")
		require.True(t, ok)
		rcid, _ := vrid.Subfield("RCID")
		assert.Equal(t, uint64(i), rcid.Value)
	}

	_, err = dec.Next()
	assert.Equal(t, io.EOF, err)
	_, err = dec.Next()
	assert.Equal(t, io.EOF, err, "end of stream is sticky")
}

func TestDecoder_SchemaOnly(t *testing.T) {
	f, err := Read(testutil.SampleSchema())
	require.NoError(t, err)
	assert.NotNil(t, f.DataDescriptiveRecord)
	assert.Empty(t, f.DataRecords)
}

func TestDecoder_BadSchema(t *testing.T) {
	dec, err := NewDecoder(bytes.NewReader([]byte("00024 D     00024   5504")))
	require.Error(t, err)
	assert.Nil(t, dec)
	assert.True(t, errors.Is(err, ErrFormatViolation))
	assert.Contains(t, err.Error(), "data descriptive record")
}

func TestDecoder_Iterator(t *testing.T) {
	dec, err := NewDecoder(bytes.NewReader(testutil.SampleFile(5)))
	require.NoError(t, err)

	it := dec.Iterator()
	count := 0
	for it.Next() {
		require.NotNil(t, it.Record())
		count++
	}
	assert.NoError(t, it.Err())
	assert.Equal(t, 5, count)
}

func TestDecoder_Logging(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	_, err := ReadInterchangeFile(bytes.NewReader(testutil.SampleFile(2)), WithLogger(logger))
	require.NoError(t, err)

	entries := hook.AllEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, "decoded data descriptive record", entries[0].Message)
	assert.Equal(t, 4, entries[0].Data["fields"])
	assert.Equal(t, "decoded data record", entries[2].Message)
	assert.Equal(t, 1, entries[2].Data["index"])
	for _, e := range entries {
		assert.Equal(t, logrus.DebugLevel, e.Level)
	}
}

// A file whose first data record has a truncated directory fails as a whole
func TestReadInterchangeFile_TruncatedDirectory(t *testing.T) {
	data := testutil.SampleSchema()
	rec := testutil.SampleRecord(1)
	data = append(data, rec[:LeaderLength+20]...)

	f, err := Read(data)
	require.Error(t, err)
	assert.Nil(t, f, "no partial results")

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindStructural, kind)
	assert.True(t, errors.Is(err, errTruncatedDirectory))
	assert.Contains(t, err.Error(), "data record 0")
}

func TestReadInterchangeFile_FailureAfterGoodRecords(t *testing.T) {
	data := testutil.SampleFile(2)
	data = append(data, []byte("garbage")...)

	f, err := Read(data)
	require.Error(t, err)
	assert.Nil(t, f)
	assert.Contains(t, err.Error(), "data record 2")
}

func TestReadInterchangeFile_Idempotent(t *testing.T) {
	data := testutil.SampleFile(4)

	first, err := Read(data)
	require.NoError(t, err)
	second, err := Read(data)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first.DataRecords, 4)
}
