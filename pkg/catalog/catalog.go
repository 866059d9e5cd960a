// Package catalog persists decoded ISO 8211 files in a pebble database so
// they can be listed and re-decoded later.
package catalog

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"
	"github.com/sirupsen/logrus"

	"github.com/ssargent/iso8211/pkg/iso8211"
	"github.com/ssargent/iso8211/pkg/source"
)

// ErrNotFound is returned for unknown catalog IDs
var ErrNotFound = errors.New("catalog entry not found")

const (
	entryPrefix  = "entry/"
	blobPrefix   = "blob/"
	digestPrefix = "digest/"
)

// Entry summarizes one stored file
type Entry struct {
	ID          ksuid.KSUID        `json:"id"`
	Name        string             `json:"name"`
	Digest      string             `json:"digest"`
	Size        int                `json:"size"`
	Compression source.Compression `json:"compression"`
	Fields      []string           `json:"fields"`
	Records     int                `json:"records"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Catalog is a pebble-backed store of files keyed by KSUID. The raw bytes
// are kept zstd-compressed so any entry can be decoded again.
type Catalog struct {
	db  *pebble.DB
	log logrus.FieldLogger
	mu  sync.Mutex // serializes Add so digest checks and inserts are atomic
}

// Option configures a Catalog
type Option func(*Catalog)

// WithLogger sets the catalog logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Catalog) {
		if logger != nil {
			c.log = logger
		}
	}
}

// Open opens or creates a catalog in dir
func Open(dir string, opts ...Option) (*Catalog, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", dir, err)
	}

	l := logrus.New()
	l.SetOutput(io.Discard)
	c := &Catalog{db: db, log: l}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close closes the underlying database
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Digest returns the content digest used for deduplication
func Digest(data []byte) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], xxhash.Sum64(data))
	return hex.EncodeToString(buf[:])
}

// Add stores a decoded file. If identical content is already stored the
// existing entry is returned with duplicate set.
func (c *Catalog) Add(name string, src *source.Source, file *iso8211.InterchangeFile) (entry *Entry, duplicate bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	digest := Digest(src.Data)
	indexed := false
	idBytes, err := c.get(digestKey(digest))
	switch {
	case err == nil:
		id, err := ksuid.FromBytes(idBytes)
		if err != nil {
			return nil, false, fmt.Errorf("corrupt digest index for %s: %w", digest, err)
		}
		existing, same, err := c.sameContent(id, src.Data)
		if err != nil {
			return nil, false, err
		}
		if same {
			c.log.WithFields(logrus.Fields{"file_id": id.String(), "digest": digest}).Debug("duplicate content")
			return existing, true, nil
		}
		// Digest collision: keep the first entry indexed
		c.log.WithFields(logrus.Fields{"file_id": id.String(), "digest": digest}).Warn("digest collision with different content")
		indexed = true
	case !errors.Is(err, ErrNotFound):
		return nil, false, err
	}

	entry = &Entry{
		ID:          ksuid.New(),
		Name:        name,
		Digest:      digest,
		Size:        len(src.Data),
		Compression: src.Compression,
		Fields:      file.DataDescriptiveRecord.Tags(),
		Records:     len(file.DataRecords),
		CreatedAt:   time.Now().UTC(),
	}

	meta, err := json.Marshal(entry)
	if err != nil {
		return nil, false, fmt.Errorf("marshal entry: %w", err)
	}
	blob, err := source.Compress(src.Data, source.Zstd)
	if err != nil {
		return nil, false, fmt.Errorf("compress content: %w", err)
	}

	b := c.db.NewBatch()
	defer b.Close()
	if err := b.Set(entryKey(entry.ID), meta, nil); err != nil {
		return nil, false, err
	}
	if err := b.Set(blobKey(entry.ID), blob, nil); err != nil {
		return nil, false, err
	}
	if !indexed {
		if err := b.Set(digestKey(digest), entry.ID.Bytes(), nil); err != nil {
			return nil, false, err
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return nil, false, fmt.Errorf("commit entry: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"file_id": entry.ID.String(),
		"name":    name,
		"records": entry.Records,
	}).Info("file added to catalog")
	return entry, false, nil
}

// sameContent loads entry id and reports whether its stored bytes equal data
func (c *Catalog) sameContent(id ksuid.KSUID, data []byte) (*Entry, bool, error) {
	existing, err := c.Get(id)
	if err != nil {
		return nil, false, err
	}
	if existing.Size != len(data) {
		return existing, false, nil
	}
	stored, err := c.Content(id)
	if err != nil {
		return nil, false, err
	}
	return existing, bytes.Equal(stored, data), nil
}

// Get returns the entry for id
func (c *Catalog) Get(id ksuid.KSUID) (*Entry, error) {
	data, err := c.get(entryKey(id))
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode entry %s: %w", id, err)
	}
	return &e, nil
}

// Content returns the original decompressed bytes of an entry
func (c *Catalog) Content(id ksuid.KSUID) ([]byte, error) {
	blob, err := c.get(blobKey(id))
	if err != nil {
		return nil, err
	}
	s, err := source.Load(bytes.NewReader(blob), 0)
	if err != nil {
		return nil, fmt.Errorf("load content %s: %w", id, err)
	}
	return s.Data, nil
}

// Decode decodes a stored entry again
func (c *Catalog) Decode(id ksuid.KSUID, opts ...iso8211.Option) (*iso8211.InterchangeFile, error) {
	data, err := c.Content(id)
	if err != nil {
		return nil, err
	}
	return iso8211.Read(data, opts...)
}

// List returns every entry, oldest first
func (c *Catalog) List() ([]*Entry, error) {
	iter, err := c.db.NewIter(prefixOptions(entryPrefix))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var entries []*Entry
	for iter.First(); iter.Valid(); iter.Next() {
		var e Entry
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			return nil, fmt.Errorf("decode entry %q: %w", iter.Key(), err)
		}
		entries = append(entries, &e)
	}
	return entries, iter.Error()
}

// Count returns the number of stored entries
func (c *Catalog) Count() (int, error) {
	iter, err := c.db.NewIter(prefixOptions(entryPrefix))
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		n++
	}
	return n, iter.Error()
}

// Delete removes an entry and its content
func (c *Catalog) Delete(id ksuid.KSUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, err := c.Get(id)
	if err != nil {
		return err
	}

	keys := [][]byte{entryKey(id), blobKey(id)}
	if indexed, err := c.get(digestKey(e.Digest)); err == nil && bytes.Equal(indexed, id.Bytes()) {
		keys = append(keys, digestKey(e.Digest))
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	b := c.db.NewBatch()
	defer b.Close()
	for _, key := range keys {
		if err := b.Delete(key, nil); err != nil {
			return err
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}

	c.log.WithField("file_id", id.String()).Info("file removed from catalog")
	return nil
}

// ParseID parses a catalog ID in its string form
func ParseID(s string) (ksuid.KSUID, error) {
	id, err := ksuid.Parse(s)
	if err != nil {
		return ksuid.Nil, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}

// get copies the value out of pebble, whose buffer is only valid until the
// closer is released.
func (c *Catalog) get(key []byte) ([]byte, error) {
	value, closer, err := c.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func entryKey(id ksuid.KSUID) []byte {
	return append([]byte(entryPrefix), id.Bytes()...)
}

func blobKey(id ksuid.KSUID) []byte {
	return append([]byte(blobPrefix), id.Bytes()...)
}

func digestKey(digest string) []byte {
	return []byte(digestPrefix + digest)
}

func prefixOptions(prefix string) *pebble.IterOptions {
	upper := []byte(prefix)
	upper[len(upper)-1]++
	return &pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: upper,
	}
}
