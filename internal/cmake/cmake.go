// Package cmake patches the CEF distribution and drives the CMake configure
// and build of libcef_dll_wrapper.
package cmake

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/open-edge-platform/cef-composer/internal/assembler"
	"github.com/open-edge-platform/cef-composer/internal/errdefs"
	"github.com/open-edge-platform/cef-composer/internal/platform"
	"github.com/open-edge-platform/cef-composer/internal/utils/logger"
	"github.com/open-edge-platform/cef-composer/internal/utils/shell"
)

// VariablesFile is the CMake module patched for clang, relative to the source directory.
const VariablesFile = "cmake/cef_variables.cmake"

const clangAnchor = "include(CheckCXXCompilerFlag)"

const clangFlags = `

  CHECK_CXX_COMPILER_FLAG(-Wno-undefined-var-template COMPILER_SUPPORTS_NO_UNDEFINED_VAR_TEMPLATE)
  if(COMPILER_SUPPORTS_NO_UNDEFINED_VAR_TEMPLATE)
    list(APPEND CEF_CXX_COMPILER_FLAGS
      -Wno-undefined-var-template   # Don't warn about potentially uninstantiated static members
      )
  endif()`

// NeedsClangPatch reports whether the distribution must be patched before configuring for d.
func NeedsClangPatch(d platform.Descriptor) bool {
	return d.Compiler == platform.Clang
}

// PatchForClang inserts the -Wno-undefined-var-template check after the
// first include(CheckCXXCompilerFlag) in the distribution's variables file.
// A file that already carries the check is left alone.
func PatchForClang(sourceDir string) error {
	path := filepath.Join(sourceDir, filepath.FromSlash(VariablesFile))
	data, err := os.ReadFile(path)
	if err != nil {
		return errdefs.New(errdefs.ErrBuildFailed, "patch", err).WithPath(path)
	}
	content := string(data)
	if strings.Contains(content, "COMPILER_SUPPORTS_NO_UNDEFINED_VAR_TEMPLATE") {
		logger.Named("cmake").Debugf("%s already patched for clang", path)
		return nil
	}
	idx := strings.Index(content, clangAnchor)
	if idx < 0 {
		return errdefs.New(errdefs.ErrBuildFailed, "patch",
			fmt.Errorf("anchor %q not found", clangAnchor)).WithPath(path)
	}
	end := idx + len(clangAnchor)
	patched := content[:end] + clangFlags + content[end:]

	fi, err := os.Stat(path)
	if err != nil {
		return errdefs.New(errdefs.ErrBuildFailed, "patch", err).WithPath(path)
	}
	if err := os.WriteFile(path, []byte(patched), fi.Mode().Perm()); err != nil {
		return errdefs.New(errdefs.ErrBuildFailed, "patch", err).WithPath(path)
	}
	logger.Named("cmake").Infof("patched %s for clang", path)
	return nil
}

// CMake runs cmake through an executor.
type CMake struct {
	Exec shell.Executor
}

// New returns a CMake using exec, or the default executor when exec is nil.
func New(exec shell.Executor) *CMake {
	if exec == nil {
		exec = shell.Default
	}
	return &CMake{Exec: exec}
}

// Patch applies the source patches d needs before configuring.
func (c *CMake) Patch(sourceDir string, d platform.Descriptor) error {
	if !NeedsClangPatch(d) {
		return nil
	}
	return PatchForClang(sourceDir)
}

// MultiConfig reports whether generator picks the configuration at build
// time. Single-config generators need CMAKE_BUILD_TYPE when configuring.
func MultiConfig(generator string) bool {
	return generator == "Xcode" ||
		generator == "Ninja Multi-Config" ||
		strings.HasPrefix(generator, "Visual Studio")
}

// ConfigureArgs returns the cmake arguments for configuring sourceDir into buildDir.
func ConfigureArgs(sourceDir, buildDir, generator string, buildType platform.BuildType, cfg assembler.BuildConfig) []string {
	args := []string{"-S", sourceDir, "-B", buildDir}
	if generator != "" {
		args = append(args, "-G", generator)
	}
	if !MultiConfig(generator) && buildType != "" {
		args = append(args, "-DCMAKE_BUILD_TYPE="+string(buildType))
	}
	return append(args, cfg.Args()...)
}

// BuildArgs returns the cmake arguments for building buildDir.
func BuildArgs(buildDir string, buildType platform.BuildType, jobs int) []string {
	args := []string{"--build", buildDir, "--config", string(buildType)}
	if jobs > 0 {
		args = append(args, "--parallel", strconv.Itoa(jobs))
	}
	return args
}

// Configure generates the build tree for buildType.
func (c *CMake) Configure(ctx context.Context, sourceDir, buildDir, generator string, buildType platform.BuildType, cfg assembler.BuildConfig) error {
	if _, err := c.Exec.LookPath("cmake"); err != nil {
		return errdefs.New(errdefs.ErrBuildFailed, "configure", fmt.Errorf("cmake not found: %w", err))
	}
	if err := os.MkdirAll(buildDir, 0755); err != nil {
		return errdefs.New(errdefs.ErrBuildFailed, "configure", err).WithPath(buildDir)
	}
	cmd := shell.Cmd{Name: "cmake", Args: ConfigureArgs(sourceDir, buildDir, generator, buildType, cfg), Dir: buildDir, Stream: true}
	logger.Named("cmake").Infof("configuring: %s", cmd)
	if _, err := c.Exec.Exec(ctx, cmd); err != nil {
		return errdefs.New(errdefs.ErrBuildFailed, "configure", err).WithPath(sourceDir)
	}
	return nil
}

// Build compiles the configured tree for buildType.
func (c *CMake) Build(ctx context.Context, buildDir string, buildType platform.BuildType, jobs int) error {
	cmd := shell.Cmd{Name: "cmake", Args: BuildArgs(buildDir, buildType, jobs), Dir: buildDir, Stream: true}
	logger.Named("cmake").Infof("building: %s", cmd)
	if _, err := c.Exec.Exec(ctx, cmd); err != nil {
		return errdefs.New(errdefs.ErrBuildFailed, "build", err).WithPath(buildDir)
	}
	return nil
}
