/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ssargent/iso8211/pkg/config"
)

const (
	serviceName     = "iso8211.service"
	defaultUnitPath = "/etc/systemd/system/" + serviceName
)

// serviceCmd represents the service command
var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Run the API server as a systemd service",
	Long: `Install and manage a systemd unit that runs "iso8211 serve" against a
fixed configuration file and catalog directory.`,
}

// installServiceCmd represents the service install command
var installServiceCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the systemd unit",
	Long: `Write the systemd unit, creating the configuration first if it does not
exist, then enable the service.

Examples:
  sudo iso8211 service install
  sudo iso8211 service install --catalog-dir /var/lib/iso8211 --user iso8211`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		startNow, _ := cmd.Flags().GetBool("start")
		binary, _ := cmd.Flags().GetString("binary")

		if os.Geteuid() != 0 {
			return errors.New("service install requires root privileges")
		}

		configPath, _ := cmd.Flags().GetString("config")
		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}
		if !config.ConfigExists(configPath) {
			if _, err := config.BootstrapConfig(configPath, cfg.CatalogDir); err != nil {
				return err
			}
			cmd.Printf("Created configuration at %s\n", configPath)
		}

		unit := systemdUnit(binary, configPath, cfg.CatalogDir, user)
		if err := os.WriteFile(defaultUnitPath, []byte(unit), 0600); err != nil {
			return fmt.Errorf("write unit file: %w", err)
		}
		if err := runCommand("systemctl", "daemon-reload"); err != nil {
			return fmt.Errorf("reload systemd: %w", err)
		}
		if err := runCommand("systemctl", "enable", serviceName); err != nil {
			return fmt.Errorf("enable service: %w", err)
		}
		if startNow {
			if err := runCommand("systemctl", "start", serviceName); err != nil {
				return fmt.Errorf("start service: %w", err)
			}
		}

		cmd.Printf("Installed %s\n", serviceName)
		cmd.Printf("Config: %s\n", configPath)
		cmd.Printf("Catalog: %s\n", cfg.CatalogDir)
		cmd.Printf("To view logs: sudo journalctl -u %s -f\n", serviceName)
		return nil
	},
}

// uninstallServiceCmd represents the service uninstall command
var uninstallServiceCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Stop and remove the systemd unit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if os.Geteuid() != 0 {
			return errors.New("service uninstall requires root privileges")
		}

		_ = runCommand("systemctl", "stop", serviceName) // already stopped is fine
		if err := runCommand("systemctl", "disable", serviceName); err != nil {
			logger.WithError(err).Warn("could not disable service")
		}
		if err := os.Remove(defaultUnitPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove unit file: %w", err)
		}
		if err := runCommand("systemctl", "daemon-reload"); err != nil {
			return fmt.Errorf("reload systemd: %w", err)
		}

		cmd.Printf("Uninstalled %s. Configuration and catalog were kept.\n", serviceName)
		return nil
	},
}

// statusServiceCmd represents the service status command
var statusServiceCmd = &cobra.Command{
	Use:   "status",
	Short: "Show service status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand("systemctl", "status", serviceName)
	},
}

// logsServiceCmd represents the service logs command
var logsServiceCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show service logs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		follow, _ := cmd.Flags().GetBool("follow")
		lines, _ := cmd.Flags().GetInt("lines")
		return runCommand("journalctl", journalArgs(follow, lines)...)
	},
}

func init() {
	rootCmd.AddCommand(serviceCmd)
	serviceCmd.AddCommand(installServiceCmd, uninstallServiceCmd, statusServiceCmd, logsServiceCmd)

	installServiceCmd.Flags().String("user", "iso8211", "User to run the service as")
	installServiceCmd.Flags().String("binary", "/usr/local/bin/iso8211", "Path to the iso8211 binary")
	installServiceCmd.Flags().Bool("start", true, "Start the service after installation")

	logsServiceCmd.Flags().BoolP("follow", "f", false, "Follow log output")
	logsServiceCmd.Flags().IntP("lines", "n", 0, "Number of lines to show")
}

// systemdUnit renders the unit file for the API server
func systemdUnit(binary, configPath, catalogDir, user string) string {
	return fmt.Sprintf(`[Unit]
Description=ISO 8211 catalog API
After=network-online.target
Wants=network-online.target

[Service]
User=%s
Group=%s
ExecStart=%s serve --config %s
Restart=on-failure
NoNewPrivileges=true
UMask=0077
ReadWritePaths=%s
ReadOnlyPaths=%s

[Install]
WantedBy=multi-user.target
`, user, user, binary, configPath, catalogDir, filepath.Dir(configPath))
}

func journalArgs(follow bool, lines int) []string {
	args := []string{"-u", serviceName}
	if follow {
		args = append(args, "-f")
	}
	if lines > 0 {
		args = append(args, fmt.Sprintf("-n%d", lines))
	}
	return args
}

// runCommand runs a system command with output attached to the terminal
func runCommand(command string, args ...string) error {
	c := exec.Command(command, args...)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}
