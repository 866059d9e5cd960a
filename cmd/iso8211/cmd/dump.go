/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ssargent/iso8211/pkg/iso8211"
	"github.com/ssargent/iso8211/pkg/source"
)

// dumpCmd represents the dump command
var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Print the schema and data records of a file",
	Long: `Decode an ISO 8211 file and print its schema followed by its data records.
Gzip and zstd compressed files are decompressed transparently.

Examples:
  iso8211 dump US5MD22M.000
  iso8211 dump US5MD22M.000 --limit 10
  iso8211 dump US5MD22M.000.gz --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		limit, _ := cmd.Flags().GetInt("limit")
		if err := checkFormat(format); err != nil {
			return err
		}

		src, err := source.Open(args[0], cfg.Decode.MaxFileSize)
		if err != nil {
			return err
		}

		dec, err := iso8211.NewDecoder(src.Reader(), iso8211.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("decode %s: %w", args[0], err)
		}

		records, err := readRecords(dec, limit)
		if err != nil {
			return fmt.Errorf("decode %s: %w", args[0], err)
		}

		out := cmd.OutOrStdout()
		if format == formatJSON {
			return outputJSON(out, &iso8211.InterchangeFile{
				DataDescriptiveRecord: dec.Schema(),
				DataRecords:           records,
			})
		}
		if err := outputSchemaTable(out, dec.Schema()); err != nil {
			return err
		}
		fmt.Fprintln(out)
		return outputRecords(out, records, 0, formatTable)
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().StringP("format", "f", formatTable, "Output format: table or json")
	dumpCmd.Flags().IntP("limit", "n", 0, "Maximum number of data records to print (0 prints all)")
}

// readRecords streams up to limit records from dec; limit <= 0 reads all
func readRecords(dec *iso8211.Decoder, limit int) ([]*iso8211.DataRecord, error) {
	var records []*iso8211.DataRecord
	for limit <= 0 || len(records) < limit {
		rec, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
