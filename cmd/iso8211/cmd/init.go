/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/iso8211/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file with a generated API key",
	Long: `Create the configuration file used by the other commands. A random API key
for the REST API is generated and saved with the file.

Examples:
  iso8211 init
  iso8211 init --config ./iso8211.yaml --catalog-dir ./catalog`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		path, _ := cmd.Flags().GetString("config")
		if path == "" {
			path = config.GetDefaultConfigPath()
		}

		if config.ConfigExists(path) && !force {
			cmd.Printf("Configuration already exists at %s. Use --force to overwrite.\n", path)
			return nil
		}

		created, err := config.BootstrapConfig(path, cfg.CatalogDir)
		if err != nil {
			return err
		}

		cmd.Printf("Configuration created at %s\n", path)
		cmd.Printf("Catalog directory: %s\n", created.CatalogDir)
		cmd.Printf("API key: %s\n", created.Security.APIKey)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration")
}
