// Package assembler maps a target platform and option set onto everything
// needed to turn a CEF binary distribution into a package: the distribution
// to fetch, the CMake variables for the wrapper build, the copy manifest and
// the link metadata consumers need.
//
// Every method is a pure function of its inputs and the Config the Assembler
// was created with.
package assembler

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/open-edge-platform/cef-composer/internal/platform"
)

const (
	// DefaultVersion is the CEF release packaged when none is configured.
	DefaultVersion = "74.1.19+gb62bacf+chromium-74.0.3729.157"

	// DefaultBaseURL hosts the Spotify CEF automated builds.
	DefaultBaseURL = "http://opensource.spotify.com/cefbuilds"

	// ArchiveExt is the extension CEF binary distributions are published with.
	ArchiveExt = ".tar.bz2"

	// SourceSubfolder holds the extracted distribution inside a workspace.
	SourceSubfolder = "source_subfolder"

	// BuildSubfolder holds the CMake build tree inside a workspace.
	BuildSubfolder = "build_subfolder"
)

// Config fixes the inputs shared by every computation.
type Config struct {
	Version      string // CEF version, DefaultVersion when empty
	BaseURL      string // download root, DefaultBaseURL when empty
	WorkspaceDir string // directory holding SourceSubfolder and BuildSubfolder
	PackageDir   string // output package root
}

// Assembler computes package plans for one CEF version.
type Assembler struct {
	cfg Config
}

// New returns an Assembler with defaults applied and directories made absolute.
func New(cfg Config) (*Assembler, error) {
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	for _, dir := range []*string{&cfg.WorkspaceDir, &cfg.PackageDir} {
		if *dir == "" {
			continue
		}
		abs, err := filepath.Abs(*dir)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", *dir, err)
		}
		*dir = abs
	}
	return &Assembler{cfg: cfg}, nil
}

// Config returns the effective configuration.
func (a *Assembler) Config() Config {
	return a.cfg
}

// Version returns the CEF version being packaged.
func (a *Assembler) Version() string {
	return a.cfg.Version
}

// SourceDir is the extracted distribution root, passed to CMake as CEF_ROOT.
func (a *Assembler) SourceDir() string {
	return filepath.Join(a.cfg.WorkspaceDir, SourceSubfolder)
}

// BuildDir is the CMake binary directory.
func (a *Assembler) BuildDir() string {
	return filepath.Join(a.cfg.WorkspaceDir, BuildSubfolder)
}

// DistributionID names the binary distribution for d, for example
// cef_binary_74.1.19+gb62bacf+chromium-74.0.3729.157_linux64.
func (a *Assembler) DistributionID(d platform.Descriptor) (string, error) {
	tag, err := d.OS.Tag()
	if err != nil {
		return "", err
	}
	bits, err := d.Arch.Bits()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("cef_binary_%s_%s%s", a.cfg.Version, tag, bits), nil
}

// ArchiveName is the file name of the distribution archive for d.
func (a *Assembler) ArchiveName(d platform.Descriptor) (string, error) {
	id, err := a.DistributionID(d)
	if err != nil {
		return "", err
	}
	return id + ArchiveExt, nil
}

// ArchiveURL is the download location of the distribution archive for d.
func (a *Assembler) ArchiveURL(d platform.Descriptor) (string, error) {
	name, err := a.ArchiveName(d)
	if err != nil {
		return "", err
	}
	return a.cfg.BaseURL + "/" + Quote(name), nil
}

// Generator returns the CMake generator for d. Empty selects the CMake default.
func Generator(d platform.Descriptor) string {
	if d.OS == platform.Macos {
		return "Xcode"
	}
	return ""
}

// Quote percent-encodes s the way CEF build servers expect archive names:
// every byte outside A-Z a-z 0-9 and "_.-~/" is escaped, so "+" becomes "%2B".
func Quote(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '_' || c == '.' || c == '-' || c == '~' || c == '/':
		return true
	}
	return false
}
