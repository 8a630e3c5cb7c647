package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/open-edge-platform/cef-composer/internal/config"
)

const linuxID = "cef_binary_74.1.19+gb62bacf+chromium-74.0.3729.157_linux64"

func setupDirs(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	cacheDir := filepath.Join(root, "cache")
	workDir := filepath.Join(root, "workspace")

	prev := config.Global()
	cfg := *prev
	cfg.CacheDir = cacheDir
	cfg.WorkDir = workDir
	config.SetGlobal(&cfg)
	t.Cleanup(func() { config.SetGlobal(prev) })

	files := []string{
		filepath.Join(cacheDir, linuxID+".tar.bz2"),
		filepath.Join(cacheDir, "cef_binary_74.1.19+gb62bacf+chromium-74.0.3729.157_windows64.tar.bz2.part"),
		filepath.Join(cacheDir, "notes.txt"),
		filepath.Join(workDir, linuxID+"-release", "source_subfolder", "include", "cef_version.h"),
		filepath.Join(workDir, linuxID+"-debug", "build_subfolder", "CMakeCache.txt"),
		filepath.Join(workDir, "other", "keep.txt"),
	}
	for _, f := range files {
		if err := os.MkdirAll(filepath.Dir(f), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(f, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return cacheDir, workDir
}

func TestCleanDownloads(t *testing.T) {
	cacheDir, workDir := setupDirs(t)

	result, err := Clean(CleanOptions{CleanDownloads: true})
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if len(result.RemovedPaths) != 2 {
		t.Fatalf("expected 2 removed downloads, got %v", result.RemovedPaths)
	}
	if _, err := os.Stat(filepath.Join(cacheDir, "notes.txt")); err != nil {
		t.Errorf("unrelated file removed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(workDir, linuxID+"-release")); err != nil {
		t.Errorf("workspace should be untouched: %v", err)
	}
}

func TestCleanWorkspaceWithFilter(t *testing.T) {
	_, workDir := setupDirs(t)

	result, err := Clean(CleanOptions{CleanWorkspace: true, Distribution: linuxID + "-debug"})
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if len(result.RemovedPaths) != 1 || result.RemovedPaths[0] != filepath.Join(workDir, linuxID+"-debug") {
		t.Fatalf("unexpected removed paths: %v", result.RemovedPaths)
	}
	if _, err := os.Stat(filepath.Join(workDir, linuxID+"-release")); err != nil {
		t.Errorf("release workspace should be kept: %v", err)
	}
	if _, err := os.Stat(filepath.Join(workDir, "other")); err != nil {
		t.Errorf("non CEF directory should be kept: %v", err)
	}
}

func TestCleanDryRun(t *testing.T) {
	cacheDir, workDir := setupDirs(t)

	result, err := Clean(CleanOptions{CleanDownloads: true, CleanWorkspace: true, DryRun: true})
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if len(result.RemovedPaths) != 4 {
		t.Fatalf("expected 4 paths reported, got %v", result.RemovedPaths)
	}
	for _, p := range []string{
		filepath.Join(cacheDir, linuxID+".tar.bz2"),
		filepath.Join(workDir, linuxID+"-release"),
	} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("dry run removed %s", p)
		}
	}
}

func TestCleanErrors(t *testing.T) {
	setupDirs(t)

	if _, err := Clean(CleanOptions{}); err == nil {
		t.Errorf("expected error without a scope")
	}
	if _, err := Clean(CleanOptions{CleanDownloads: true, Distribution: "../etc"}); err == nil {
		t.Errorf("expected error for a distribution filter with a path")
	}
}

func TestCleanMissingDirectories(t *testing.T) {
	prev := config.Global()
	cfg := *prev
	cfg.CacheDir = filepath.Join(t.TempDir(), "absent-cache")
	cfg.WorkDir = filepath.Join(t.TempDir(), "absent-work")
	config.SetGlobal(&cfg)
	t.Cleanup(func() { config.SetGlobal(prev) })

	result, err := Clean(CleanOptions{CleanDownloads: true, CleanWorkspace: true})
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if len(result.RemovedPaths) != 0 || len(result.SkippedPaths) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}
