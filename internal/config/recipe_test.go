package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/open-edge-platform/cef-composer/internal/errdefs"
	"github.com/open-edge-platform/cef-composer/internal/platform"
)

var linuxHost = platform.Defaults(platform.Linux, platform.X86_64)

func TestLoadShippedRecipes(t *testing.T) {
	tests := []struct {
		file string
		want platform.Descriptor
	}{
		{"linux-x86_64.yml", platform.Descriptor{
			OS: platform.Linux, Arch: platform.X86_64, Compiler: platform.GCC,
			CompilerVersion: "9", BuildType: platform.Release,
		}},
		{"windows-vs2015-sandbox.yml", platform.Descriptor{
			OS: platform.Windows, Arch: platform.X86_64, Compiler: platform.VisualStudio,
			CompilerVersion: "14", CompilerRuntime: platform.RuntimeMT, BuildType: platform.Release,
		}},
		{"macos-debug.yml", platform.Descriptor{
			OS: platform.Macos, Arch: platform.X86_64, Compiler: platform.AppleClang,
			CompilerVersion: "10.0", BuildType: platform.Debug,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			path := filepath.Join("..", "..", "recipes", tt.file)
			r, err := LoadRecipe(path)
			if err != nil {
				t.Fatalf("LoadRecipe failed: %v", err)
			}
			if r.Path != path {
				t.Errorf("Path = %q, want %q", r.Path, path)
			}
			d, err := r.Descriptor(linuxHost)
			if err != nil {
				t.Fatalf("Descriptor failed: %v", err)
			}
			if d != tt.want {
				t.Errorf("Descriptor = %+v, want %+v", d, tt.want)
			}
		})
	}
}

func TestLoadRecipeErrors(t *testing.T) {
	if _, err := LoadRecipe(filepath.Join("testdata", "invalid-recipe.yml")); err == nil {
		t.Errorf("expected invalid recipe to fail")
	}

	dir := t.TempDir()
	txt := filepath.Join(dir, "recipe.txt")
	if err := os.WriteFile(txt, []byte("target: {}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRecipe(txt); err == nil {
		t.Errorf("expected unsupported extension to fail")
	}

	target := filepath.Join(dir, "target.yml")
	link := filepath.Join(dir, "link.yml")
	if err := os.WriteFile(target, []byte("target: {}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	if _, err := LoadRecipe(link); err == nil {
		t.Errorf("expected symlinked recipe to be rejected")
	}
}

func TestScalar(t *testing.T) {
	var v struct {
		A Scalar `json:"a"`
		B Scalar `json:"b"`
		C Scalar `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a": 14, "b": "10.0", "c": 9.1}`), &v); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if v.A != "14" || v.B != "10.0" || v.C != "9.1" {
		t.Errorf("got %q %q %q", v.A, v.B, v.C)
	}
	if err := json.Unmarshal([]byte(`{"a": true}`), &v); err == nil {
		t.Errorf("expected bool to be rejected")
	}
}

func TestDescriptorDefaults(t *testing.T) {
	tests := []struct {
		name   string
		target TargetSpec
		want   platform.Descriptor
	}{
		{"host", TargetSpec{}, linuxHost},
		{"windows defaults", TargetSpec{OS: "windows"}, platform.Defaults(platform.Windows, platform.X86_64)},
		{"arch alias", TargetSpec{OS: "linux", Arch: "aarch64"}, platform.Defaults(platform.Linux, platform.ARMv8)},
		{"other compiler drops defaults", TargetSpec{OS: "Linux", Compiler: "clang"}, platform.Descriptor{
			OS: platform.Linux, Arch: platform.X86_64, Compiler: platform.Clang, BuildType: platform.Release,
		}},
		{"lowercase build type", TargetSpec{BuildType: "debug"}, platform.Descriptor{
			OS: platform.Linux, Arch: platform.X86_64, Compiler: platform.GCC, BuildType: platform.Debug,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Recipe{Target: tt.target}
			d, err := r.Descriptor(linuxHost)
			if err != nil {
				t.Fatalf("Descriptor failed: %v", err)
			}
			if d != tt.want {
				t.Errorf("Descriptor = %+v, want %+v", d, tt.want)
			}
		})
	}
}

func TestDescriptorUnsupported(t *testing.T) {
	for _, target := range []TargetSpec{
		{OS: "Plan9"},
		{Arch: "sparc"},
		{Compiler: "tcc"},
		{OS: "Windows", Compiler: "gcc"},
		{OS: "Linux", Compiler: "Visual Studio"},
	} {
		r := &Recipe{Target: target}
		if _, err := r.Descriptor(linuxHost); !errors.Is(err, errdefs.ErrUnsupportedPlatform) {
			t.Errorf("%+v: expected ErrUnsupportedPlatform, got %v", target, err)
		}
	}
}

func TestRecipeHelpers(t *testing.T) {
	r := &Recipe{Path: filepath.Join("recipes", "linux.yml")}
	if !r.InstallSystemDeps() {
		t.Errorf("install_system_deps should default to true")
	}
	off := false
	r.Package.InstallSystemDeps = &off
	if r.InstallSystemDeps() {
		t.Errorf("install_system_deps: false ignored")
	}

	if got := r.ResolvePath("keys/cef.asc"); got != filepath.Join("recipes", "keys", "cef.asc") {
		t.Errorf("ResolvePath = %q", got)
	}
	if got := r.ResolvePath("/etc/cef.asc"); got != "/etc/cef.asc" {
		t.Errorf("absolute path changed: %q", got)
	}

	d := platform.Defaults(platform.Linux, platform.X86_64)
	if got := r.OutputDir(d); got != "cef-linux64-release" {
		t.Errorf("OutputDir = %q", got)
	}
	r.Package.OutputDir = "out"
	if got := r.OutputDir(d); got != "out" {
		t.Errorf("OutputDir = %q", got)
	}

	o := (&Recipe{}).PlatformOptions()
	if o.UseSandbox || o.DebugInfoFlag != platform.DebugInfoZ7 {
		t.Errorf("unexpected default options %+v", o)
	}
}

func TestMerge(t *testing.T) {
	base := &Recipe{
		Target:  TargetSpec{OS: "Windows", CompilerVersion: "14"},
		Source:  SourceSpec{Version: "74.1.19", SHA1: "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"},
		Options: OptionsSpec{UseSandbox: true},
	}
	on, off := true, false
	merged := base.Merge(Overrides{
		Target:        TargetSpec{BuildType: "Debug"},
		UseSandbox:    &off,
		Version:       "75.0.0",
		KeepWorkspace: &on,
	})

	if merged.Target.OS != "Windows" || merged.Target.CompilerVersion != "14" || merged.Target.BuildType != "Debug" {
		t.Errorf("target not merged: %+v", merged.Target)
	}
	if merged.Options.UseSandbox {
		t.Errorf("use_sandbox override ignored")
	}
	if merged.Source.Version != "75.0.0" || merged.Source.SHA1 != "" {
		t.Errorf("version override should drop the pinned sha1: %+v", merged.Source)
	}
	if !merged.Package.KeepWorkspace {
		t.Errorf("keep_workspace override ignored")
	}
	if !base.Options.UseSandbox || base.Source.SHA1 == "" {
		t.Errorf("Merge modified its receiver")
	}

	same := base.Merge(Overrides{Version: "74.1.19"})
	if same.Source.SHA1 == "" {
		t.Errorf("sha1 dropped although the version did not change")
	}
}

func TestWithDefaults(t *testing.T) {
	g := DefaultGlobalConfig()
	g.Download = DownloadConfig{BaseURL: "https://mirror.example.com/cef", Version: "75.0.0"}

	r := (&Recipe{}).WithDefaults(g)
	if r.Source.BaseURL != g.Download.BaseURL || r.Source.Version != "75.0.0" {
		t.Errorf("defaults not applied: %+v", r.Source)
	}

	pinned := (&Recipe{Source: SourceSpec{Version: "74.1.19"}}).WithDefaults(g)
	if pinned.Source.Version != "74.1.19" {
		t.Errorf("recipe version overridden by global default")
	}

	if r := (&Recipe{}).WithDefaults(nil); r.Source.Version != "" {
		t.Errorf("nil config should leave the recipe untouched")
	}
}
