// Package errdefs defines the failure kinds reported while assembling a CEF
// package. Callers match kinds with errors.Is.
package errdefs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedPlatform indicates an OS, architecture or compiler outside the supported set
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrFetchFailed indicates the distribution archive could not be downloaded or verified
	ErrFetchFailed = errors.New("fetch failed")

	// ErrExtractFailed indicates the downloaded archive could not be unpacked
	ErrExtractFailed = errors.New("extract failed")

	// ErrBuildFailed indicates the CMake configure or build step failed
	ErrBuildFailed = errors.New("build failed")

	// ErrMissingSourceArtifact indicates a copy rule matched no file after the build
	ErrMissingSourceArtifact = errors.New("missing source artifact")

	// ErrSystemPackageInstallFailed indicates one or more system packages could not be installed.
	// It is a warning: the build continues.
	ErrSystemPackageInstallFailed = errors.New("system package install failed")
)

// Error wraps an error with the kind and the context needed to diagnose it.
type Error struct {
	Kind     error  // One of the Err* sentinels
	Op       string // Operation that failed
	Platform string // Target platform, if known
	Path     string // File, pattern or URL involved, if any
	Err      error  // Underlying error, may be nil
}

// New returns an Error of the given kind for op.
func New(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// WithPlatform records the target platform.
func (e *Error) WithPlatform(platform string) *Error {
	e.Platform = platform
	return e
}

// WithPath records the path involved.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	} else {
		b.WriteString("error")
	}

	var ctx []string
	if e.Platform != "" {
		ctx = append(ctx, "platform="+e.Platform)
	}
	if e.Path != "" {
		ctx = append(ctx, fmt.Sprintf("path=%q", e.Path))
	}
	if len(ctx) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(ctx, ", "))
		b.WriteString(")")
	}

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the underlying error to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// IsWarning reports whether err only warrants a warning and the caller may continue.
func IsWarning(err error) bool {
	if err == nil {
		return false
	}
	if !errors.Is(err, ErrSystemPackageInstallFailed) {
		return false
	}
	// A fatal kind wrapped alongside the warning still wins.
	for _, fatal := range []error{
		ErrUnsupportedPlatform, ErrFetchFailed, ErrExtractFailed, ErrBuildFailed, ErrMissingSourceArtifact,
	} {
		if errors.Is(err, fatal) {
			return false
		}
	}
	return true
}
