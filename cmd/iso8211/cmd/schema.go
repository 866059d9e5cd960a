/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/iso8211/pkg/iso8211"
	"github.com/ssargent/iso8211/pkg/source"
)

// schemaCmd represents the schema command
var schemaCmd = &cobra.Command{
	Use:   "schema <file>",
	Short: "Print the data descriptive record of a file",
	Long: `Print the leader, tag pairs and field definitions of an ISO 8211 file.
Only the first record is decoded.

Examples:
  iso8211 schema US5MD22M.000
  iso8211 schema US5MD22M.000 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
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
		return outputSchema(cmd.OutOrStdout(), dec.Schema(), format)
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().StringP("format", "f", formatTable, "Output format: table or json")
}
