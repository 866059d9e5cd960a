/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ssargent/iso8211/pkg/config"
	"github.com/ssargent/iso8211/pkg/di"
)

var (
	container *di.Container

	// settings resolved by the root command before any subcommand runs
	cfg    *config.Config
	logger *logrus.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "iso8211",
	Short: "Decode ISO/IEC 8211 interchange files",
	Long: `iso8211 decodes ISO/IEC 8211 files such as S-57 and S-101 electronic
navigational charts. It can dump their schema and records, keep decoded files
in a local catalog and serve that catalog over a REST API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadSettings(cmd)
	},
}

// SetContainer injects the dependency container
func SetContainer(c *di.Container) {
	container = c
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: ~/.config/iso8211/config.yaml)")
	rootCmd.PersistentFlags().String("catalog-dir", "", "Catalog directory (overrides config)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
}

// loadSettings reads the config file if there is one and applies flag
// overrides on top of it.
func loadSettings(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	explicit := path != ""
	if !explicit {
		path = config.GetDefaultConfigPath()
	}

	c := config.DefaultConfig()
	switch {
	case config.ConfigExists(path):
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return err
		}
		c = loaded
	case explicit && cmd.Name() != "init":
		return fmt.Errorf("config file %s not found", path)
	}

	if cmd.Flags().Changed("catalog-dir") {
		c.CatalogDir, _ = cmd.Flags().GetString("catalog-dir")
	}
	if cmd.Flags().Changed("log-level") {
		c.Logging.Level, _ = cmd.Flags().GetString("log-level")
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cfg = c
	logger = newLogger(c.Logging, cmd.ErrOrStderr())
	return nil
}

// newLogger builds the root logger. Levels were checked by Validate.
func newLogger(l config.Logging, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)

	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if l.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
