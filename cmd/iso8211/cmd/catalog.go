/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ssargent/iso8211/pkg/api"
	"github.com/ssargent/iso8211/pkg/iso8211"
	"github.com/ssargent/iso8211/pkg/source"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Decode files and store them in the catalog",
	Long: `Decode one or more ISO 8211 files and add them to the catalog. Files whose
content is already stored report the existing ID.

Examples:
  iso8211 ingest US5MD22M.000 US5MD23M.000
  iso8211 ingest --catalog-dir ./charts *.000`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if err := checkFormat(format); err != nil {
			return err
		}

		cat, err := openCatalog()
		if err != nil {
			return err
		}
		defer cat.Close()

		failed := 0
		for _, path := range args {
			if err := ingestFile(cmd, cat, path, format); err != nil {
				logger.WithError(err).WithField("file", path).Error("ingest failed")
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(args))
		}
		return nil
	},
}

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List files in the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if err := checkFormat(format); err != nil {
			return err
		}

		cat, err := openCatalog()
		if err != nil {
			return err
		}
		defer cat.Close()

		entries, err := cat.List()
		if err != nil {
			return fmt.Errorf("list catalog: %w", err)
		}
		return outputEntries(cmd.OutOrStdout(), entries, format)
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(listCmd)
	ingestCmd.Flags().StringP("format", "f", formatTable, "Output format: table or json")
	listCmd.Flags().StringP("format", "f", formatTable, "Output format: table or json")
}

func openCatalog() (api.CatalogStore, error) {
	if container == nil {
		return nil, errors.New("dependency container not initialized")
	}
	if err := os.MkdirAll(cfg.CatalogDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create catalog dir: %w", err)
	}
	return container.GetCatalogFactory().OpenCatalog(cfg.CatalogDir, logger)
}

func ingestFile(cmd *cobra.Command, cat api.ICatalog, path, format string) error {
	src, err := source.Open(path, cfg.Decode.MaxFileSize)
	if err != nil {
		return err
	}

	start := time.Now()
	file, err := iso8211.Read(src.Data, iso8211.WithLogger(logger))
	if err != nil {
		return err
	}

	entry, duplicate, err := cat.Add(filepath.Base(path), src, file)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"file_id":  entry.ID.String(),
		"records":  len(file.DataRecords),
		"duration": time.Since(start),
	}).Debug("file ingested")
	return outputEntry(cmd.OutOrStdout(), entry, duplicate, format)
}
