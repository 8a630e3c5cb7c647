package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/open-edge-platform/cef-composer/internal/config"
	"github.com/open-edge-platform/cef-composer/internal/utils/logger"
	"github.com/open-edge-platform/cef-composer/internal/utils/security"
)

// archivePrefix starts the name of every CEF distribution archive and workspace.
const archivePrefix = "cef_binary_"

// CleanOptions defines what cache artifacts should be removed.
type CleanOptions struct {
	CleanDownloads bool   // remove downloaded archives and partial downloads under cache_dir
	CleanWorkspace bool   // remove extracted sources and build trees under work_dir
	Distribution   string // optional filter: only entries whose name starts with this distribution id
	DryRun         bool   // report actions without deleting anything
}

// CleanResult contains the outcome of a cache cleanup run.
type CleanResult struct {
	RemovedPaths []string
	SkippedPaths []string
}

// Clean removes cached artifacts according to the provided options.
func Clean(opts CleanOptions) (*CleanResult, error) {
	if !opts.CleanDownloads && !opts.CleanWorkspace {
		return nil, fmt.Errorf("at least one scope must be specified")
	}
	if strings.ContainsAny(opts.Distribution, `/\`) || strings.Contains(opts.Distribution, "..") {
		return nil, fmt.Errorf("invalid distribution filter %q", opts.Distribution)
	}
	log := logger.Named("cache")

	var targets []string
	if opts.CleanDownloads {
		cacheDir, err := config.CacheDir()
		if err != nil {
			return nil, fmt.Errorf("resolving cache directory: %w", err)
		}
		found, err := entries(cacheDir, opts.Distribution, false)
		if err != nil {
			return nil, err
		}
		targets = append(targets, found...)
	}
	if opts.CleanWorkspace {
		workDir, err := config.WorkDir()
		if err != nil {
			return nil, fmt.Errorf("resolving work directory: %w", err)
		}
		found, err := entries(workDir, opts.Distribution, true)
		if err != nil {
			return nil, err
		}
		targets = append(targets, found...)
	}
	sort.Strings(targets)

	result := &CleanResult{}
	for _, target := range targets {
		exists, err := pathExists(target)
		if err != nil {
			return nil, fmt.Errorf("checking %s: %w", target, err)
		}
		if !exists {
			result.SkippedPaths = append(result.SkippedPaths, target)
			continue
		}

		if opts.DryRun {
			result.RemovedPaths = append(result.RemovedPaths, target)
			continue
		}

		log.Debugf("removing %s", target)
		if err := os.RemoveAll(target); err != nil {
			return nil, fmt.Errorf("removing %s: %w", target, err)
		}
		result.RemovedPaths = append(result.RemovedPaths, target)
	}
	return result, nil
}

// entries lists the CEF entries directly below root. Workspaces are
// directories, downloads are files; anything else is left alone.
func entries(root, distribution string, dirs bool) ([]string, error) {
	list, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", root, err)
	}

	prefix := archivePrefix
	if distribution != "" {
		prefix = distribution
	}

	var targets []string
	for _, entry := range list {
		name := entry.Name()
		if entry.IsDir() != dirs || !strings.HasPrefix(name, prefix) {
			continue
		}
		target := filepath.Join(root, name)
		if err := ensureSubPath(root, target); err != nil {
			return nil, err
		}
		targets = append(targets, target)
	}
	return targets, nil
}

func ensureSubPath(base, target string) error {
	ok, err := security.WithinDir(base, target)
	if err != nil {
		return err
	}
	if !ok || filepath.Clean(base) == filepath.Clean(target) {
		return fmt.Errorf("refusing to operate on %s because it is outside %s", target, base)
	}
	return nil
}

func pathExists(path string) (bool, error) {
	if path == "" {
		return false, fmt.Errorf("path must not be empty")
	}
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
