package iso8211

import "errors"

// DirectoryEntry locates one field within the record's field area
type DirectoryEntry struct {
	FieldTag      string `json:"field_tag"`
	FieldLength   uint64 `json:"field_length"`
	FieldPosition uint64 `json:"field_position"`
}

// Directory is the ordered catalog of a record's fields
type Directory struct {
	Entries []DirectoryEntry `json:"entries"`
}

var errTruncatedDirectory = errors.New("directory truncated before field terminator")

// ReadDirectory reads entries until the field terminator, using the widths
// declared in the leader's entry map. The terminator is consumed.
func ReadDirectory(r *ByteReader, leader *Leader) (*Directory, error) {
	m := leader.EntryMap
	d := &Directory{}

	for {
		next, err := r.PeekByte()
		if err != nil {
			return nil, wrapAs(KindStructural, "directory", "field_terminator", r.Offset(), errors.Join(errTruncatedDirectory, err))
		}
		if next == FieldTerminator {
			break
		}

		entry, err := readDirectoryEntry(r, m)
		if err != nil {
			return nil, err
		}
		d.Entries = append(d.Entries, entry)
	}

	// Go past the field terminator
	if _, err := r.ReadChar(); err != nil {
		return nil, annotate(err, "directory", "field_terminator")
	}

	return d, nil
}

func readDirectoryEntry(r *ByteReader, m EntryMap) (DirectoryEntry, error) {
	start := r.Offset()
	var e DirectoryEntry
	var err error

	if e.FieldTag, err = r.ReadFixedString(int(m.FieldTagWidth)); err != nil {
		return e, truncatedEntry(err, "field_tag", start)
	}
	if e.FieldLength, err = r.ReadUnsignedDecimal(int(m.FieldLengthWidth)); err != nil {
		return e, truncatedEntry(err, "field_length", start)
	}
	if e.FieldPosition, err = r.ReadUnsignedDecimal(int(m.FieldPositionWidth)); err != nil {
		return e, truncatedEntry(err, "field_position", start)
	}
	return e, nil
}

// truncatedEntry turns a short read inside an entry into a structural error
// while leaving encoding and numeric failures as they are.
func truncatedEntry(err error, field string, start int64) error {
	if errors.Is(err, ErrIO) {
		return wrapAs(KindStructural, "directory", field, start, errors.Join(errTruncatedDirectory, err))
	}
	return annotate(err, "directory", field)
}

// Len returns the number of entries
func (d *Directory) Len() int {
	return len(d.Entries)
}

// Lookup returns the first entry with the given tag
func (d *Directory) Lookup(tag string) (DirectoryEntry, bool) {
	for _, e := range d.Entries {
		if e.FieldTag == tag {
			return e, true
		}
	}
	return DirectoryEntry{}, false
}

// size returns the encoded size of the directory including its terminator
func (d *Directory) size(m EntryMap) uint64 {
	return uint64(len(d.Entries)*m.EntryWidth()) + 1
}
