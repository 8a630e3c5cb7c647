package main

import (
	"fmt"
	"os"

	"github.com/open-edge-platform/cef-composer/internal/config"
	"github.com/open-edge-platform/cef-composer/internal/utils/logger"
	"github.com/open-edge-platform/cef-composer/internal/utils/security"
	"github.com/spf13/cobra"
)

// Command-line flags that can override config file settings
var (
	configFile  string = "" // Path to config file
	logLevel    string = "" // Empty means use config file value
	logFilePath string = "" // Empty means use config file value
)

var (
	actualConfigFile string // Config file that was actually loaded, empty for defaults
	loggerCleanup    func()
)

func main() {
	// Parent persistent hooks must run too, so config is loaded for every subcommand.
	cobra.EnableTraverseRunHooks = true

	rootCmd := createRootCommand()
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initConfig()
	}
	security.AttachRecursive(rootCmd, security.DefaultLimits())

	err := rootCmd.Execute()
	if loggerCleanup != nil {
		loggerCleanup()
	}
	if err != nil {
		os.Exit(1)
	}
}

// initConfig loads the global configuration once flags are parsed, applies
// the command line overrides and sets up the logger.
func initConfig() error {
	configFilePath := configFile
	if configFilePath == "" {
		configFilePath = config.FindConfigFile()
	}
	actualConfigFile = configFilePath

	globalConfig, err := config.LoadGlobalConfig(configFilePath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if logLevel != "" {
		globalConfig.Logging.Level = logLevel
	}
	if logFilePath != "" {
		globalConfig.Logging.File = logFilePath
	}
	if err := globalConfig.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	config.SetGlobal(globalConfig)

	_, cleanup, err := logger.InitWithConfig(logger.Config{
		Level:    globalConfig.Logging.Level,
		FilePath: globalConfig.Logging.File,
	})
	if err != nil {
		return err
	}
	loggerCleanup = cleanup

	log := logger.Logger()
	if configFilePath != "" {
		log.Infof("Using configuration from: %s", configFilePath)
	}
	cacheDir, _ := config.CacheDir()
	workDir, _ := config.WorkDir()
	log.Debugf("Config: workers=%d, cache_dir=%s, work_dir=%s, temp_dir=%s",
		config.Workers(), cacheDir, workDir, config.TempDir())
	return nil
}

// createRootCommand creates and configures the root cobra command with all subcommands
func createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cef-composer",
		Short: "Package Chromium Embedded Framework binary distributions",
		Long: `cef-composer turns a CEF binary distribution into a ready to link package.

For a target platform it downloads the matching distribution, builds the
libcef_dll_wrapper static library with CMake, and lays out headers,
libraries and resources together with the link metadata (cefinfo.json and,
on Linux and macOS, a pkg-config file).

Use 'cef-composer --help' to see available commands.
Use 'cef-composer <command> --help' for more information about a command.`,
		SilenceUsage: true,
	}

	// Add global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFilePath, "log-file", "",
		"Log file path to tee logs (overrides configuration file)")

	// Add all subcommands
	rootCmd.AddCommand(createBuildCommand())
	rootCmd.AddCommand(createPlanCommand())
	rootCmd.AddCommand(createValidateCommand())
	rootCmd.AddCommand(createVersionCommand())
	rootCmd.AddCommand(createConfigCommand())
	rootCmd.AddCommand(createCacheCommand())
	rootCmd.AddCommand(createInstallCompletionCommand())

	return rootCmd
}
