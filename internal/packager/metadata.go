package packager

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/open-edge-platform/cef-composer/internal/assembler"
	"github.com/open-edge-platform/cef-composer/internal/platform"
	"github.com/open-edge-platform/cef-composer/internal/utils/logger"
	"github.com/open-edge-platform/cef-composer/internal/utils/security"
)

const (
	// DescriptorFile is written at the package root.
	DescriptorFile = "cefinfo.json"
	// PkgConfigFile is written on Linux and Macos, relative to the package root.
	PkgConfigFile = "lib/pkgconfig/cef.pc"
)

// FileEntry describes one file shipped in the package.
type FileEntry struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256,omitempty"`
	Link   string `json:"link,omitempty"`
}

// Descriptor is the content of cefinfo.json.
type Descriptor struct {
	Name           string                `json:"name"`
	BuildID        string                `json:"build_id"`
	Version        string                `json:"version"`
	Platform       platform.Descriptor   `json:"platform"`
	Options        platform.Options      `json:"options"`
	DistributionID string                `json:"distribution_id"`
	PackageInfo    assembler.PackageInfo `json:"package_info"`
	CreatedAt      time.Time             `json:"created_at"`
	Files          []FileEntry           `json:"files"`
}

// Describe builds the descriptor for plan and the package relative files
// produced by Apply. Regular files are hashed; symlinks record their target.
func (p *Packager) Describe(plan *assembler.Plan, files []string) (*Descriptor, error) {
	desc := &Descriptor{
		Name:           "cef",
		BuildID:        uuid.NewString(),
		Version:        plan.Version,
		Platform:       plan.Platform,
		Options:        plan.Options,
		DistributionID: plan.DistributionID,
		PackageInfo:    plan.PackageInfo,
		CreatedAt:      time.Now().UTC(),
		Files:          make([]FileEntry, 0, len(files)),
	}
	for _, rel := range files {
		abs := filepath.Join(p.PackageDir, filepath.FromSlash(rel))
		fi, err := os.Lstat(abs)
		if err != nil {
			return nil, fmt.Errorf("describing %s: %w", rel, err)
		}
		entry := FileEntry{Path: rel, Size: fi.Size()}
		if fi.Mode()&os.ModeSymlink != 0 {
			if entry.Link, err = os.Readlink(abs); err != nil {
				return nil, err
			}
		} else if entry.SHA256, err = sha256File(abs); err != nil {
			return nil, err
		}
		desc.Files = append(desc.Files, entry)
	}
	return desc, nil
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// WriteDescriptor writes desc as cefinfo.json at the package root.
func (p *Packager) WriteDescriptor(desc *Descriptor) (string, error) {
	data, err := json.MarshalIndent(desc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal package descriptor: %w", err)
	}
	path := filepath.Join(p.PackageDir, DescriptorFile)
	if err := os.MkdirAll(p.PackageDir, 0755); err != nil {
		return "", err
	}
	if err := security.SafeWriteFile(path, append(data, '\n'), 0644, security.RejectSymlinks); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	logger.Named("packager").Infof("wrote %s (build %s)", path, desc.BuildID)
	return path, nil
}

// ReadDescriptor loads cefinfo.json from packageDir.
func ReadDescriptor(packageDir string) (*Descriptor, error) {
	data, err := security.SafeReadFile(filepath.Join(packageDir, DescriptorFile), security.RejectSymlinks)
	if err != nil {
		return nil, err
	}
	var desc Descriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", DescriptorFile, err)
	}
	return &desc, nil
}

// PkgConfig renders a pkg-config file for the package.
func (p *Packager) PkgConfig(version string, info assembler.PackageInfo) string {
	var cflags, libs []string
	for _, dir := range info.IncludeDirs {
		cflags = append(cflags, "-I${prefix}/"+dir)
	}
	for _, d := range info.Defines {
		cflags = append(cflags, "-D"+d)
	}
	for _, dir := range info.LibDirs {
		libs = append(libs, "-L${prefix}/"+dir)
	}
	for _, l := range info.Libs {
		libs = append(libs, "-l"+l)
	}
	libs = append(libs, info.ExeLinkFlags...)

	var b strings.Builder
	fmt.Fprintf(&b, "prefix=%s\n", filepath.ToSlash(p.PackageDir))
	b.WriteString("libdir=${prefix}/lib\n")
	b.WriteString("includedir=${prefix}/include\n\n")
	b.WriteString("Name: cef\n")
	b.WriteString("Description: Chromium Embedded Framework\n")
	fmt.Fprintf(&b, "Version: %s\n", version)
	fmt.Fprintf(&b, "Cflags: %s\n", strings.Join(cflags, " "))
	fmt.Fprintf(&b, "Libs: %s\n", strings.Join(libs, " "))
	return b.String()
}

// HasPkgConfig reports whether a pkg-config file is produced for target.
func HasPkgConfig(target platform.OS) bool {
	return target == platform.Linux || target == platform.Macos
}

// WritePkgConfig writes lib/pkgconfig/cef.pc and returns its package relative path.
func (p *Packager) WritePkgConfig(version string, info assembler.PackageInfo) (string, error) {
	path := filepath.Join(p.PackageDir, filepath.FromSlash(PkgConfigFile))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	if err := security.SafeWriteFile(path, []byte(p.PkgConfig(version, info)), 0644, security.RejectSymlinks); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	logger.Named("packager").Debugf("wrote %s", path)
	return PkgConfigFile, nil
}
