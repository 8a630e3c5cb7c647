package main

import (
	"fmt"

	"github.com/open-edge-platform/cef-composer/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// createConfigCommand creates the config subcommand
func createConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage global configuration for cef-composer.

Available commands:
  init    Initialize a new configuration file with default values
  show    Print the effective configuration`,
	}

	configCmd.AddCommand(createConfigInitCommand())
	configCmd.AddCommand(createConfigShowCommand())

	return configCmd
}

// createConfigInitCommand creates the config init subcommand
func createConfigInitCommand() *cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init [config-file]",
		Short: "Initialize a new configuration file",
		Long: `Initialize a new configuration file with default values.

If no path is specified, the config will be created in the current directory as cef-composer.yml

Examples:
  # Create config in current directory
  cef-composer config init

  # Create config at specific location
  cef-composer config init /etc/cef-composer/config.yml

  # Create config in user's home directory
  cef-composer config init ~/.config/cef-composer/config.yml`,
		Args: cobra.MaximumNArgs(1),
		RunE: executeConfigInit,
	}

	return initCmd
}

// executeConfigInit handles the config init command logic
func executeConfigInit(cmd *cobra.Command, args []string) error {
	configPath := "cef-composer.yml"
	if len(args) > 0 {
		configPath = args[0]
	}

	defaultConfig := config.DefaultGlobalConfig()

	// Save to file with descriptive comments
	if err := defaultConfig.SaveGlobalConfigWithComments(configPath); err != nil {
		return fmt.Errorf("failed to save config file: %v", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	fmt.Fprintf(out, "\nDefault configuration settings:\n")
	fmt.Fprintf(out, "  Workers: %d\n", defaultConfig.Workers)
	fmt.Fprintf(out, "  Cache Directory: %s\n", defaultConfig.CacheDir)
	fmt.Fprintf(out, "  Work Directory: %s\n", defaultConfig.WorkDir)
	fmt.Fprintf(out, "  Temp Directory: %s\n", defaultConfig.TempDir)
	fmt.Fprintf(out, "  Log Level: %s\n", defaultConfig.Logging.Level)
	fmt.Fprintf(out, "  Log File: %s\n", defaultConfig.Logging.File)
	fmt.Fprintf(out, "\nEdit the configuration file to customize these settings.\n")

	return nil
}

// createConfigShowCommand creates the config show subcommand
func createConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			source := actualConfigFile
			if source == "" {
				source = "(defaults)"
			}
			fmt.Fprintf(out, "# Loaded from: %s\n", source)
			data, err := yaml.Marshal(config.Global())
			if err != nil {
				return fmt.Errorf("marshaling config: %w", err)
			}
			_, err = out.Write(data)
			return err
		},
	}
}
