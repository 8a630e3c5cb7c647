// Package platform describes the target a CEF package is assembled for and
// the options that may be applied to it.
package platform

import (
	"fmt"
	"strings"

	"github.com/open-edge-platform/cef-composer/internal/errdefs"
)

// OS is a supported target operating system.
type OS string

const (
	Windows OS = "Windows"
	Macos   OS = "Macos"
	Linux   OS = "Linux"
)

// Arch is a supported target CPU architecture.
type Arch string

const (
	X86    Arch = "x86"
	X86_64 Arch = "x86_64"
	ARMv7  Arch = "armv7"
	ARMv8  Arch = "armv8"
)

// Compiler is a supported toolchain.
type Compiler string

const (
	VisualStudio Compiler = "Visual Studio"
	GCC          Compiler = "gcc"
	Clang        Compiler = "clang"
	AppleClang   Compiler = "apple-clang"
)

// BuildType selects the CEF binary flavour and the wrapper build configuration.
type BuildType string

const (
	Debug   BuildType = "Debug"
	Release BuildType = "Release"
)

// Runtime is the Visual Studio C runtime selection.
type Runtime string

const (
	RuntimeMT  Runtime = "MT"
	RuntimeMTd Runtime = "MTd"
	RuntimeMD  Runtime = "MD"
	RuntimeMDd Runtime = "MDd"
)

var osAliases = map[string]OS{
	"windows": Windows,
	"win":     Windows,
	"macos":   Macos,
	"darwin":  Macos,
	"mac":     Macos,
	"osx":     Macos,
	"linux":   Linux,
}

var archAliases = map[string]Arch{
	"x86":     X86,
	"386":     X86,
	"i386":    X86,
	"i686":    X86,
	"x86_64":  X86_64,
	"amd64":   X86_64,
	"x64":     X86_64,
	"armv7":   ARMv7,
	"armv7hf": ARMv7,
	"arm":     ARMv7,
	"armv8":   ARMv8,
	"arm64":   ARMv8,
	"aarch64": ARMv8,
}

var compilerAliases = map[string]Compiler{
	"visual studio": VisualStudio,
	"msvc":          VisualStudio,
	"vs":            VisualStudio,
	"gcc":           GCC,
	"clang":         Clang,
	"apple-clang":   AppleClang,
	"appleclang":    AppleClang,
}

func unsupported(what, value string) error {
	return errdefs.New(errdefs.ErrUnsupportedPlatform, "parse "+what, fmt.Errorf("unknown %s %q", what, value))
}

// ParseOS maps a user supplied name onto an OS.
func ParseOS(s string) (OS, error) {
	if os, ok := osAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return os, nil
	}
	return "", unsupported("os", s)
}

// ParseArch maps a user supplied name onto an Arch.
func ParseArch(s string) (Arch, error) {
	if arch, ok := archAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return arch, nil
	}
	return "", unsupported("arch", s)
}

// ParseCompiler maps a user supplied name onto a Compiler.
func ParseCompiler(s string) (Compiler, error) {
	if c, ok := compilerAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return c, nil
	}
	return "", unsupported("compiler", s)
}

// ParseBuildType accepts Debug or Release in any case.
func ParseBuildType(s string) (BuildType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug, nil
	case "release":
		return Release, nil
	}
	return "", unsupported("build type", s)
}

// ParseRuntime accepts the Visual Studio runtime names. An empty string is allowed.
func ParseRuntime(s string) (Runtime, error) {
	switch Runtime(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case RuntimeMT, RuntimeMTd, RuntimeMD, RuntimeMDd:
		return Runtime(strings.TrimSpace(s)), nil
	}
	return "", unsupported("runtime", s)
}

// Tag returns the platform segment used in CEF distribution names.
func (o OS) Tag() (string, error) {
	switch o {
	case Windows:
		return "windows", nil
	case Macos:
		return "macosx", nil
	case Linux:
		return "linux", nil
	}
	return "", unsupported("os", string(o))
}

// Bits returns the bit-width suffix used in CEF distribution names.
func (a Arch) Bits() (string, error) {
	switch a {
	case X86:
		return "32", nil
	case X86_64, ARMv7, ARMv8:
		return "64", nil
	}
	return "", unsupported("arch", string(a))
}

// Descriptor is the immutable target of one packaging run.
type Descriptor struct {
	OS              OS        `json:"os" yaml:"os"`
	Arch            Arch      `json:"arch" yaml:"arch"`
	Compiler        Compiler  `json:"compiler" yaml:"compiler"`
	CompilerVersion string    `json:"compiler_version,omitempty" yaml:"compiler_version,omitempty"`
	CompilerRuntime Runtime   `json:"compiler_runtime,omitempty" yaml:"compiler_runtime,omitempty"`
	BuildType       BuildType `json:"build_type" yaml:"build_type"`
}

func (d Descriptor) String() string {
	s := fmt.Sprintf("%s/%s/%s", d.OS, d.Arch, d.Compiler)
	if d.CompilerVersion != "" {
		s += "-" + d.CompilerVersion
	}
	return s + "/" + string(d.BuildType)
}

// IsVisualStudio reports whether the descriptor targets the Windows toolchain.
func (d Descriptor) IsVisualStudio() bool {
	return d.Compiler == VisualStudio
}

// Validate rejects descriptors that no CEF binary distribution can serve.
func (d Descriptor) Validate() error {
	if _, err := d.OS.Tag(); err != nil {
		return err
	}
	if _, err := d.Arch.Bits(); err != nil {
		return err
	}
	switch d.Compiler {
	case VisualStudio, GCC, Clang, AppleClang:
	default:
		return unsupported("compiler", string(d.Compiler))
	}
	if d.BuildType != Debug && d.BuildType != Release {
		return unsupported("build type", string(d.BuildType))
	}

	fail := func(format string, args ...any) error {
		return errdefs.New(errdefs.ErrUnsupportedPlatform, "validate platform", fmt.Errorf(format, args...)).
			WithPlatform(d.String())
	}

	switch {
	case d.OS == Windows && d.Compiler != VisualStudio:
		return fail("windows builds require Visual Studio, got %s", d.Compiler)
	case d.OS != Windows && d.Compiler == VisualStudio:
		return fail("Visual Studio is only available on Windows")
	case d.Compiler == VisualStudio && d.CompilerRuntime == "":
		return fail("Visual Studio builds require a compiler runtime (MT, MTd, MD, MDd)")
	case d.Compiler != VisualStudio && d.CompilerRuntime != "":
		return fail("compiler runtime %s is only meaningful for Visual Studio", d.CompilerRuntime)
	}
	return nil
}
