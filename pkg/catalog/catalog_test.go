package catalog

import (
	"errors"
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/iso8211/internal/testutil"
	"github.com/ssargent/iso8211/pkg/iso8211"
	"github.com/ssargent/iso8211/pkg/source"
)

func setupCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func addSample(t *testing.T, c *Catalog, name string, records int) (*Entry, bool) {
	t.Helper()
	src := &source.Source{Data: testutil.SampleFile(records), Compression: source.None}
	file, err := iso8211.Read(src.Data)
	require.NoError(t, err)

	entry, dup, err := c.Add(name, src, file)
	require.NoError(t, err)
	return entry, dup
}

func TestCatalog_AddAndGet(t *testing.T) {
	c := setupCatalog(t)

	entry, dup := addSample(t, c, "US5TEST.000", 3)
	assert.False(t, dup)
	assert.Equal(t, "US5TEST.000", entry.Name)
	assert.Equal(t, 3, entry.Records)
	assert.Equal(t, []string{"0001", "VRID", "ATTV", "SG2D"}, entry.Fields)
	assert.Len(t, entry.Digest, 16)

	got, err := c.Get(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, got.ID)
	assert.Equal(t, entry.Digest, got.Digest)
	assert.Equal(t, entry.Records, got.Records)
}

func TestCatalog_Duplicate(t *testing.T) {
	c := setupCatalog(t)

	first, dup := addSample(t, c, "a.000", 2)
	require.False(t, dup)

	second, dup := addSample(t, c, "b.000", 2)
	assert.True(t, dup)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "a.000", second.Name)

	n, err := c.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCatalog_DigestCollision(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{
			name:   "different size",
			mutate: func(b []byte) []byte { return append(b, testutil.SampleRecord(9)...) },
		},
		{
			name: "same size",
			mutate: func(b []byte) []byte {
				b[len(b)-2] ^= 0xff
				return b
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := setupCatalog(t)
			first, _ := addSample(t, c, "first.000", 2)

			data := tt.mutate(testutil.SampleFile(2))
			require.NoError(t, c.db.Set(digestKey(Digest(data)), first.ID.Bytes(), pebble.Sync))

			file, err := iso8211.Read(testutil.SampleFile(2))
			require.NoError(t, err)
			second, dup, err := c.Add("second.000", &source.Source{Data: data, Compression: source.None}, file)
			require.NoError(t, err)
			assert.False(t, dup)
			assert.NotEqual(t, first.ID, second.ID)

			stored, err := c.Content(second.ID)
			require.NoError(t, err)
			assert.Equal(t, data, stored)

			// Removing the colliding entry leaves the first one indexed
			require.NoError(t, c.Delete(second.ID))
			again, dup := addSample(t, c, "again.000", 2)
			assert.True(t, dup)
			assert.Equal(t, first.ID, again.ID)
		})
	}
}

func TestCatalog_ContentAndDecode(t *testing.T) {
	c := setupCatalog(t)
	entry, _ := addSample(t, c, "x.000", 4)

	data, err := c.Content(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, testutil.SampleFile(4), data)

	file, err := c.Decode(entry.ID)
	require.NoError(t, err)
	assert.Len(t, file.DataRecords, 4)
}

func TestCatalog_List(t *testing.T) {
	c := setupCatalog(t)

	addSample(t, c, "one.000", 1)
	addSample(t, c, "two.000", 2)

	entries, err := c.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	names := []string{entries[0].Name, entries[1].Name}
	assert.ElementsMatch(t, []string{"one.000", "two.000"}, names)
}

func TestCatalog_Delete(t *testing.T) {
	c := setupCatalog(t)
	entry, _ := addSample(t, c, "gone.000", 1)

	require.NoError(t, c.Delete(entry.ID))

	_, err := c.Get(entry.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = c.Content(entry.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	// The digest index is cleared so the same content can be added again
	again, dup := addSample(t, c, "gone.000", 1)
	assert.False(t, dup)
	assert.NotEqual(t, entry.ID, again.ID)
}

func TestCatalog_NotFound(t *testing.T) {
	c := setupCatalog(t)

	_, err := c.Get(ksuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(c.Delete(ksuid.New()), ErrNotFound))
}

func TestCatalog_Reopen(t *testing.T) {
	dir := t.TempDir()

	c, err := Open(dir)
	require.NoError(t, err)
	entry, _ := addSample(t, c, "persist.000", 2)
	require.NoError(t, c.Close())

	c, err = Open(dir)
	require.NoError(t, err)
	defer c.Close()

	got, err := c.Get(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "persist.000", got.Name)
}

func TestParseID(t *testing.T) {
	id := ksuid.New()
	parsed, err := ParseID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseID("not-an-id")
	assert.Error(t, err)
}

func TestDigest(t *testing.T) {
	a := Digest([]byte("abc"))
	assert.Equal(t, a, Digest([]byte("abc")))
	assert.NotEqual(t, a, Digest([]byte("abd")))
	assert.Len(t, a, 16)
}
