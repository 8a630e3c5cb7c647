package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDefaultGlobalConfig(t *testing.T) {
	c := DefaultGlobalConfig()
	if c.Workers != 4 || c.CacheDir != "./cache" || c.WorkDir != "./workspace" {
		t.Errorf("unexpected defaults: %+v", c)
	}
	if c.Logging.Level != "info" {
		t.Errorf("default log level = %q", c.Logging.Level)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestGlobalConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *GlobalConfig)
	}{
		{"zero workers", func(c *GlobalConfig) { c.Workers = 0 }},
		{"too many workers", func(c *GlobalConfig) { c.Workers = 101 }},
		{"empty cache dir", func(c *GlobalConfig) { c.CacheDir = "" }},
		{"empty work dir", func(c *GlobalConfig) { c.WorkDir = "" }},
		{"bad level", func(c *GlobalConfig) { c.Logging.Level = "trace" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultGlobalConfig()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}

	c := DefaultGlobalConfig()
	c.Download.BaseURL = " https://mirror.example.com/cef/ "
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	if c.Download.BaseURL != "https://mirror.example.com/cef" {
		t.Errorf("base url not normalized: %q", c.Download.BaseURL)
	}
}

func TestLoadGlobalConfig(t *testing.T) {
	dir := t.TempDir()

	c, err := LoadGlobalConfig("")
	if err != nil || c.Workers != 4 {
		t.Fatalf("empty path should return defaults: %v", err)
	}
	c, err = LoadGlobalConfig(filepath.Join(dir, "missing.yml"))
	if err != nil || c.Workers != 4 {
		t.Fatalf("missing file should return defaults: %v", err)
	}

	path := filepath.Join(dir, "cef-composer.yml")
	content := `workers: 12
cache_dir: /var/cache/cef
download:
  base_url: "https://mirror.example.com/cef"
  version: "75.1.4+g4210896+chromium-75.0.3770.100"
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	c, err = LoadGlobalConfig(path)
	if err != nil {
		t.Fatalf("LoadGlobalConfig failed: %v", err)
	}
	if c.Workers != 12 || c.CacheDir != "/var/cache/cef" || c.WorkDir != "./workspace" {
		t.Errorf("unexpected config: %+v", c)
	}
	if c.Download.Version != "75.1.4+g4210896+chromium-75.0.3770.100" || c.Logging.Level != "debug" {
		t.Errorf("nested sections not loaded: %+v", c)
	}
}

func TestLoadGlobalConfigErrors(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"bad.json":      `{"workers": 2}`,
		"schema.yml":    "workers: 0\n",
		"url.yml":       "download:\n  base_url: \"ftp://mirror\"\n",
		"malformed.yml": "workers: [\n",
	}
	for name, content := range tests {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadGlobalConfig(path); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestSaveGlobalConfig(t *testing.T) {
	dir := t.TempDir()
	c := DefaultGlobalConfig()
	c.Workers = 6
	c.Download.Version = "74.1.19+gb62bacf+chromium-74.0.3729.157"

	plain := filepath.Join(dir, "plain", "config.yml")
	if err := c.SaveGlobalConfig(plain); err != nil {
		t.Fatalf("SaveGlobalConfig failed: %v", err)
	}
	loaded, err := LoadGlobalConfig(plain)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.Workers != 6 || loaded.Download.Version != c.Download.Version {
		t.Errorf("round trip mismatch: %+v", loaded)
	}

	commented := filepath.Join(dir, "commented.yml")
	if err := c.SaveGlobalConfigWithComments(commented); err != nil {
		t.Fatalf("SaveGlobalConfigWithComments failed: %v", err)
	}
	data, err := os.ReadFile(commented)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.HasPrefix(text, "# cef-composer") || !strings.Contains(text, "# base_url:") {
		t.Errorf("comments missing:\n%s", text)
	}
	var parsed GlobalConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("commented file is not valid YAML: %v", err)
	}
	if parsed.Workers != 6 || parsed.Download.BaseURL != "" || parsed.Download.Version != c.Download.Version {
		t.Errorf("commented file content mismatch: %+v", parsed)
	}

	bad := DefaultGlobalConfig()
	bad.Workers = 0
	if err := bad.SaveGlobalConfig(filepath.Join(dir, "bad.yml")); err == nil {
		t.Errorf("expected invalid config to be refused")
	}
	if err := c.SaveGlobalConfig(""); err == nil {
		t.Errorf("expected empty path to be refused")
	}
}

func TestGlobalSingleton(t *testing.T) {
	prev := Global()
	t.Cleanup(func() { SetGlobal(prev) })

	c := DefaultGlobalConfig()
	c.Workers = 3
	c.TempDir = t.TempDir()
	c.Logging.Level = "debug"
	SetGlobal(c)

	if Workers() != 3 || LogLevel() != "debug" || !IsDebugMode() {
		t.Errorf("accessors do not reflect the global config")
	}
	if TempDir() != c.TempDir {
		t.Errorf("TempDir = %q", TempDir())
	}
	sub, err := EnsureTempDir("sigs")
	if err != nil {
		t.Fatalf("EnsureTempDir failed: %v", err)
	}
	if fi, err := os.Stat(sub); err != nil || !fi.IsDir() {
		t.Errorf("temp subdirectory not created: %v", err)
	}
	if dir, err := CacheDir(); err != nil || !filepath.IsAbs(dir) {
		t.Errorf("CacheDir = %q, %v", dir, err)
	}
}

func TestGetConfigPaths(t *testing.T) {
	paths := GetConfigPaths()
	if paths[0] != "cef-composer.yml" {
		t.Errorf("first path = %q", paths[0])
	}
	if paths[len(paths)-1] != "/etc/cef-composer/config.yaml" {
		t.Errorf("last path = %q", paths[len(paths)-1])
	}
}
