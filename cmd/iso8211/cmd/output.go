package cmd

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ssargent/iso8211/pkg/catalog"
	"github.com/ssargent/iso8211/pkg/iso8211"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

func checkFormat(format string) error {
	if format != formatTable && format != formatJSON {
		return fmt.Errorf("unknown output format %q (want table or json)", format)
	}
	return nil
}

// outputJSON writes v as indented JSON
func outputJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// outputSchema displays the data descriptive record
func outputSchema(w io.Writer, ddr *iso8211.DataDescriptiveRecord, format string) error {
	if format == formatJSON {
		return outputJSON(w, ddr)
	}
	return outputSchemaTable(w, ddr)
}

func outputSchemaTable(w io.Writer, ddr *iso8211.DataDescriptiveRecord) error {
	l := ddr.Leader
	fmt.Fprintf(w, "Record length: %d  Base address: %d  Interchange level: %s  Entry map: %d/%d/%d\n",
		l.RecordLength, l.BaseAddress, l.InterchangeLevel,
		l.EntryMap.FieldLengthWidth, l.EntryMap.FieldPositionWidth, l.EntryMap.FieldTagWidth)

	if pairs := ddr.FieldControlField.TagPairs; len(pairs) > 0 {
		links := make([]string, 0, len(pairs))
		for _, p := range pairs {
			links = append(links, p.Parent+">"+p.Child)
		}
		fmt.Fprintf(w, "Tag pairs: %s\n", strings.Join(links, ", "))
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "TAG\tNAME\tSTRUCTURE\tTYPE\tLEVEL\tDESCRIPTOR\tFORMAT")
	for _, f := range ddr.DataDescriptiveFields {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			f.Tag,
			truncate(f.FieldName, 40),
			f.FieldControls.DataStructure,
			f.FieldControls.DataType,
			f.FieldControls.EscapeSequence,
			truncate(f.ArrayDescriptor, 40),
			truncate(f.FormatControls, 30))
	}
	return nil
}

// outputRecords displays up to limit data records; limit <= 0 shows all
func outputRecords(w io.Writer, records []*iso8211.DataRecord, limit int, format string) error {
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	if format == formatJSON {
		return outputJSON(w, records)
	}

	for i, rec := range records {
		fmt.Fprintf(w, "Record %d (%d bytes)\n", i, rec.Leader.RecordLength)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, f := range rec.Fields {
			if len(f.Subfields) > 0 {
				fmt.Fprintf(tw, "  %s\t%s\n", f.Tag, formatSubfields(f.Subfields))
			}
			for j, g := range f.Groups {
				fmt.Fprintf(tw, "  %s[%d]\t%s\n", f.Tag, j, formatSubfields(g))
			}
		}
		tw.Flush()
	}
	return nil
}

func formatSubfields(subfields []iso8211.Subfield) string {
	parts := make([]string, 0, len(subfields))
	for _, s := range subfields {
		parts = append(parts, s.Label+"="+formatValue(s.Value))
	}
	return strings.Join(parts, " ")
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "-"
	case string:
		return fmt.Sprintf("%q", v)
	case []byte:
		return "0x" + hex.EncodeToString(v)
	default:
		return fmt.Sprint(v)
	}
}

// outputEntries displays catalog entries
func outputEntries(w io.Writer, entries []*catalog.Entry, format string) error {
	if format == formatJSON {
		if entries == nil {
			entries = []*catalog.Entry{}
		}
		return outputJSON(w, entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No files found")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tNAME\tRECORDS\tSIZE\tCOMPRESSION\tADDED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
			e.ID,
			truncate(e.Name, 40),
			e.Records,
			e.Size,
			e.Compression,
			e.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

// outputEntry displays a single catalog entry
func outputEntry(w io.Writer, e *catalog.Entry, duplicate bool, format string) error {
	if format == formatJSON {
		return outputJSON(w, struct {
			*catalog.Entry
			Duplicate bool `json:"duplicate"`
		}{e, duplicate})
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintf(tw, "ID:\t%s\n", e.ID)
	fmt.Fprintf(tw, "Name:\t%s\n", e.Name)
	fmt.Fprintf(tw, "Records:\t%d\n", e.Records)
	fmt.Fprintf(tw, "Fields:\t%s\n", strings.Join(e.Fields, ", "))
	fmt.Fprintf(tw, "Digest:\t%s\n", e.Digest)
	if duplicate {
		fmt.Fprintf(tw, "Duplicate:\tyes\n")
	}
	fmt.Fprintf(tw, "Added:\t%s\n", e.CreatedAt.Format(time.RFC3339))
	return nil
}

// truncate shortens long strings for table cells
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
