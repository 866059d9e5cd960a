/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ssargent/iso8211/pkg/api"
	"github.com/ssargent/iso8211/pkg/config"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the REST API server over the catalog. Uploaded files are decoded,
stored and can then be browsed by schema and record.

When the configured API key is "auto" a key is generated for this run only.

Examples:
  iso8211 serve
  iso8211 serve --port 9000 --bind 0.0.0.0`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("bind") {
			cfg.Bind, _ = cmd.Flags().GetString("bind")
		}

		apiKey := cfg.Security.APIKey
		if apiKey == "" || apiKey == "auto" {
			generated, err := config.GenerateSecureKey(32)
			if err != nil {
				return err
			}
			apiKey = generated
			logger.WithField("api_key", apiKey).Warn("no API key configured, generated one for this run")
		}

		if container == nil {
			return errors.New("dependency container not initialized")
		}
		cat, err := openCatalog()
		if err != nil {
			return err
		}
		defer cat.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		starter := container.GetServerFactory().CreateServerStarter()
		return starter.StartServer(ctx, cat, api.ServerConfig{
			Bind:        cfg.Bind,
			Port:        cfg.Port,
			APIKey:      apiKey,
			MaxFileSize: cfg.Decode.MaxFileSize,
		}, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides config)")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind server to (overrides config)")
}
