package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SymlinkPolicy decides what happens when a path turns out to be a symlink.
type SymlinkPolicy int

const (
	RejectSymlinks SymlinkPolicy = iota
	ResolveSymlinks
	AllowSymlinks
)

func (p SymlinkPolicy) valid() bool {
	return p >= RejectSymlinks && p <= AllowSymlinks
}

// Resolve applies policy to path and returns the path to operate on.
func Resolve(path string, policy SymlinkPolicy) (string, error) {
	if !policy.valid() {
		return "", fmt.Errorf("invalid symlink policy: %d", policy)
	}
	fi, err := os.Lstat(path)
	if err != nil {
		return "", fmt.Errorf("failed to get file info for %s: %w", path, err)
	}
	if fi.Mode()&os.ModeSymlink == 0 {
		return path, nil
	}

	switch policy {
	case RejectSymlinks:
		return "", fmt.Errorf("symlinks are not allowed: %s", path)
	case ResolveSymlinks:
		target, err := filepath.EvalSymlinks(path)
		if err != nil {
			return "", fmt.Errorf("failed to resolve symlink %s: %w", path, err)
		}
		return target, nil
	default:
		return path, nil
	}
}

// SafeReadFile reads path after applying policy.
func SafeReadFile(path string, policy SymlinkPolicy) ([]byte, error) {
	resolved, err := Resolve(path, policy)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(resolved)
}

// resolveForWrite applies policy to an existing file and to its parent directory.
func resolveForWrite(path string, policy SymlinkPolicy) (string, error) {
	if !policy.valid() {
		return "", fmt.Errorf("invalid symlink policy: %d", policy)
	}
	if _, err := os.Lstat(path); err == nil {
		resolved, err := Resolve(path, policy)
		if err != nil {
			return "", fmt.Errorf("existing file symlink check failed: %w", err)
		}
		path = resolved
	}

	dir := filepath.Dir(path)
	if dir == "." || dir == string(filepath.Separator) {
		return path, nil
	}
	if _, err := os.Stat(dir); err != nil {
		// A missing parent is reported by the write itself.
		return path, nil
	}
	resolvedDir, err := Resolve(dir, policy)
	if err != nil {
		return "", fmt.Errorf("parent directory symlink check failed: %w", err)
	}
	return filepath.Join(resolvedDir, filepath.Base(path)), nil
}

// SafeWriteFile writes data to path after applying policy to the file and its parent.
func SafeWriteFile(path string, data []byte, perm os.FileMode, policy SymlinkPolicy) error {
	resolved, err := resolveForWrite(path, policy)
	if err != nil {
		return err
	}
	return os.WriteFile(resolved, data, perm)
}

// SafeCreate creates or truncates path after applying policy to the file and its parent.
func SafeCreate(path string, perm os.FileMode, policy SymlinkPolicy) (*os.File, error) {
	resolved, err := resolveForWrite(path, policy)
	if err != nil {
		return nil, err
	}
	return os.OpenFile(resolved, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
}

// WithinDir reports whether target is base or lies below it, comparing
// cleaned absolute paths.
func WithinDir(base, target string) (bool, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return false, err
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(absBase, absTarget)
	if err != nil {
		return false, err
	}
	if rel == "." {
		return true, nil
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return false, nil
	}
	return true, nil
}
