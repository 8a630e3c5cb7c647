// internal/config/global.go
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/open-edge-platform/cef-composer/internal/config/validate"
	"github.com/open-edge-platform/cef-composer/internal/utils/logger"
	"github.com/open-edge-platform/cef-composer/internal/utils/security"
	"github.com/open-edge-platform/cef-composer/internal/utils/slice"
	"gopkg.in/yaml.v3"
)

// GlobalConfig holds tool-level settings shared by every packaging run
type GlobalConfig struct {
	Workers  int    `yaml:"workers" json:"workers"`     // Concurrent companion downloads and build jobs (1-100, default: 4)
	CacheDir string `yaml:"cache_dir" json:"cache_dir"` // Where downloaded CEF archives are kept between runs (default: ./cache)
	WorkDir  string `yaml:"work_dir" json:"work_dir"`   // Per-platform workspaces holding source_subfolder and build_subfolder (default: ./workspace)
	TempDir  string `yaml:"temp_dir" json:"temp_dir"`   // Short-lived files such as signatures and keys (empty = system default)

	Download DownloadConfig `yaml:"download" json:"download"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// DownloadConfig overrides where CEF binary distributions are fetched from
type DownloadConfig struct {
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"` // Mirror of the CEF builds index (default: the Spotify CEF builds server)
	Version string `yaml:"version,omitempty" json:"version,omitempty"`   // CEF version used when a recipe does not pin one
}

// LoggingConfig controls basic logging behavior
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`                   // debug, info (default), warn or error
	File  string `yaml:"file,omitempty" json:"file,omitempty"` // Optional log file path for teeing output to disk
}

var (
	globalInstance *GlobalConfig
	globalMutex    sync.RWMutex
	once           sync.Once
)

// SetGlobal sets the global config instance (call once at startup in main.go)
func SetGlobal(config *GlobalConfig) {
	globalMutex.Lock()
	defer globalMutex.Unlock()
	globalInstance = config
}

// Global returns the global config instance
func Global() *GlobalConfig {
	once.Do(func() {
		globalMutex.Lock()
		defer globalMutex.Unlock()
		if globalInstance == nil {
			globalInstance = DefaultGlobalConfig()
		}
	})

	globalMutex.RLock()
	defer globalMutex.RUnlock()
	return globalInstance
}

// DefaultGlobalConfig returns a GlobalConfig with sensible defaults
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		Workers:  4,
		CacheDir: "./cache",
		WorkDir:  "./workspace",
		TempDir:  "",

		Logging: LoggingConfig{
			Level: "info",
			File:  "cef-composer.log",
		},
	}
}

// LoadGlobalConfig loads configuration from the specified path
func LoadGlobalConfig(configPath string) (*GlobalConfig, error) {
	log := logger.Logger()
	config := DefaultGlobalConfig()

	if configPath == "" {
		return config, nil
	}

	if _, err := os.Stat(configPath); err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		if errors.Is(err, os.ErrPermission) {
			log.Warnf("Config file %s is not accessible (%v); using defaults", configPath, err)
			return config, nil
		}
		log.Errorf("Error accessing config file %s: %v", configPath, err)
		return nil, fmt.Errorf("accessing config file %s: %w", configPath, err)
	}

	ext := strings.ToLower(filepath.Ext(configPath))
	if ext != ".yaml" && ext != ".yml" {
		log.Errorf("Unsupported config file format: %s", ext)
		return nil, fmt.Errorf("unsupported config file format: %s (supported: .yaml, .yml)", ext)
	}

	data, err := security.SafeReadFile(configPath, security.RejectSymlinks)
	if err != nil {
		log.Errorf("Error reading config file %s: %v", configPath, err)
		return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		log.Errorf("Error parsing YAML config: %v", err)
		return nil, fmt.Errorf("parsing YAML config: %w", err)
	}

	// Convert to JSON for schema validation
	jsonData, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("converting config to JSON for validation: %w", err)
	}
	if err := validate.ValidateConfigJSON(jsonData); err != nil {
		log.Errorf("Schema validation failed: %v", err)
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	if err := config.Validate(); err != nil {
		log.Errorf("Config validation failed: %v", err)
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (gc *GlobalConfig) checkBeforeSave(configPath string) error {
	if configPath == "" {
		return fmt.Errorf("config path is empty")
	}
	dir := filepath.Dir(configPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	jsonData, err := json.Marshal(gc)
	if err != nil {
		return fmt.Errorf("converting config to JSON for validation: %w", err)
	}
	if err := validate.ValidateConfigJSON(jsonData); err != nil {
		return fmt.Errorf("config validation failed before save: %w", err)
	}
	return nil
}

// SaveGlobalConfig saves the configuration to the specified path
func (gc *GlobalConfig) SaveGlobalConfig(configPath string) error {
	if err := gc.checkBeforeSave(configPath); err != nil {
		logger.Logger().Errorf("Cannot save config: %v", err)
		return err
	}

	data, err := yaml.Marshal(gc)
	if err != nil {
		return fmt.Errorf("marshaling config to YAML: %w", err)
	}

	if err := security.SafeWriteFile(configPath, data, 0600, security.RejectSymlinks); err != nil {
		logger.Logger().Errorf("Error writing config file: %v", err)
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// SaveGlobalConfigWithComments saves the configuration with descriptive
// comments. Used by config init to create a user-friendly starting file.
func (gc *GlobalConfig) SaveGlobalConfigWithComments(configPath string) error {
	if err := gc.checkBeforeSave(configPath); err != nil {
		logger.Logger().Errorf("Cannot save config: %v", err)
		return err
	}

	if err := security.SafeWriteFile(configPath, []byte(gc.renderCommentedYAML()), 0600, security.RejectSymlinks); err != nil {
		logger.Logger().Errorf("Error writing config file: %v", err)
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// renderCommentedYAML builds a YAML representation of the config with comments.
func (gc *GlobalConfig) renderCommentedYAML() string {
	var b strings.Builder

	b.WriteString("# cef-composer - Global Configuration\n")
	b.WriteString("# Tool-level settings shared by every packaging run.\n")
	b.WriteString("# Target platform and options belong in the recipe.\n\n")

	fmt.Fprintf(&b, "workers: %d\n", gc.Workers)
	b.WriteString("# Concurrent companion downloads and parallel CMake build jobs (1-100, default: 4)\n\n")

	fmt.Fprintf(&b, "cache_dir: %q\n", gc.CacheDir)
	b.WriteString("# Downloaded CEF archives are kept here and reused between runs (default: ./cache)\n")
	b.WriteString("# A single distribution is several hundred megabytes\n\n")

	fmt.Fprintf(&b, "work_dir: %q\n", gc.WorkDir)
	b.WriteString("# One workspace per platform, holding source_subfolder and build_subfolder (default: ./workspace)\n\n")

	fmt.Fprintf(&b, "temp_dir: %q\n", gc.TempDir)
	b.WriteString("# Short-lived files such as downloaded signatures; empty uses the system default\n\n")

	b.WriteString("# Distribution source\n")
	b.WriteString("download:\n")
	if gc.Download.BaseURL != "" {
		fmt.Fprintf(&b, "  base_url: %q\n", gc.Download.BaseURL)
	} else {
		b.WriteString("  # base_url: \"http://opensource.spotify.com/cefbuilds\"\n")
	}
	b.WriteString("  # Mirror serving cef_binary_<version>_<platform>.tar.bz2 archives\n")
	if gc.Download.Version != "" {
		fmt.Fprintf(&b, "  version: %q\n", gc.Download.Version)
	} else {
		b.WriteString("  # version: \"74.1.19+gb62bacf+chromium-74.0.3729.157\"\n")
	}
	b.WriteString("  # CEF version used when a recipe does not pin one\n\n")

	b.WriteString("# Logging configuration\n")
	b.WriteString("logging:\n")
	fmt.Fprintf(&b, "  level: %q\n", gc.Logging.Level)
	b.WriteString("  # Log verbosity level (default: info)\n")
	b.WriteString("  # - debug: Most verbose, includes every command run\n")
	b.WriteString("  # - info:  Normal output, shows progress and important events\n")
	b.WriteString("  # - warn:  Only warnings and errors\n")
	b.WriteString("  # - error: Only errors\n")
	if gc.Logging.File != "" {
		fmt.Fprintf(&b, "  file: %q\n", gc.Logging.File)
		b.WriteString("  # Tee logs to this file in addition to stderr (overwritten on each run)\n")
	}

	return b.String()
}

// Validate checks the configuration for consistency.
// Defaults belong in DefaultGlobalConfig.
func (gc *GlobalConfig) Validate() error {
	if gc.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0, got %d", gc.Workers)
	}
	if gc.Workers > 100 {
		return fmt.Errorf("workers cannot exceed 100, got %d", gc.Workers)
	}

	if gc.CacheDir == "" {
		return fmt.Errorf("CacheDir cannot be empty")
	}
	if gc.WorkDir == "" {
		return fmt.Errorf("WorkDir cannot be empty")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slice.Contains(validLevels, gc.Logging.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s",
			gc.Logging.Level, strings.Join(validLevels, ", "))
	}

	gc.Logging.File = strings.TrimSpace(gc.Logging.File)
	gc.Download.BaseURL = strings.TrimRight(strings.TrimSpace(gc.Download.BaseURL), "/")
	return nil
}

// GetConfigPaths returns the standard configuration file paths to check
func GetConfigPaths() []string {
	homeDir, _ := os.UserHomeDir()

	paths := []string{
		"cef-composer.yml",
		".cef-composer.yml",
		"cef-composer.yaml",
		".cef-composer.yaml",
	}

	if homeDir != "" {
		paths = append(paths,
			filepath.Join(homeDir, ".config", "cef-composer", "config.yml"),
			filepath.Join(homeDir, ".config", "cef-composer", "config.yaml"),
		)
	}

	paths = append(paths,
		"/etc/cef-composer/config.yml",
		"/etc/cef-composer/config.yaml",
	)

	return paths
}

// FindConfigFile searches for a configuration file in standard locations
func FindConfigFile() string {
	for _, path := range GetConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Convenience accessors for the global instance
func Workers() int {
	return Global().Workers
}

func CacheDir() (string, error) {
	cacheDir, err := filepath.Abs(Global().CacheDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve cache directory: %w", err)
	}
	return cacheDir, nil
}

func WorkDir() (string, error) {
	workDir, err := filepath.Abs(Global().WorkDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve work directory: %w", err)
	}
	return workDir, nil
}

func TempDir() string {
	tempDir := Global().TempDir
	if tempDir == "" {
		return os.TempDir()
	}
	return tempDir
}

func LogLevel() string {
	return Global().Logging.Level
}

func IsDebugMode() bool {
	return Global().Logging.Level == "debug"
}

// EnsureTempDir creates and returns a subdirectory of the temp directory.
func EnsureTempDir(subdir string) (string, error) {
	tempDir := filepath.Join(TempDir(), subdir)
	err := ensureDirExists(tempDir)
	return tempDir, err
}

func ensureDirExists(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0700)
	}
	return nil
}
