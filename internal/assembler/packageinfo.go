package assembler

import (
	"fmt"

	"github.com/open-edge-platform/cef-composer/internal/errdefs"
	"github.com/open-edge-platform/cef-composer/internal/platform"
)

// PackageInfo is the link metadata a consumer needs to use the package.
type PackageInfo struct {
	Libs            []string `json:"libs" yaml:"libs"`
	Defines         []string `json:"defines,omitempty" yaml:"defines,omitempty"`
	ExeLinkFlags    []string `json:"exe_link_flags,omitempty" yaml:"exe_link_flags,omitempty"`
	SharedLinkFlags []string `json:"shared_link_flags,omitempty" yaml:"shared_link_flags,omitempty"`
	IncludeDirs     []string `json:"include_dirs" yaml:"include_dirs"`
	LibDirs         []string `json:"lib_dirs" yaml:"lib_dirs"`
	BinDirs         []string `json:"bin_dirs" yaml:"bin_dirs"`
}

var (
	sandboxDefines     = []string{"USE_SANDBOX", "CEF_USE_SANDBOX", "PSAPI_VERSION=1"}
	windowsSandboxLibs = []string{"cef_sandbox", "dbghelp", "psapi", "version", "winmm"}
	windowsSystemLibs  = []string{"glu32", "opengl32", "comctl32", "rpcrt4", "shlwapi", "ws2_32"}
)

// PackageInfo computes link metadata for d and o.
func (a *Assembler) PackageInfo(d platform.Descriptor, o platform.Options) (PackageInfo, error) {
	if err := d.Validate(); err != nil {
		return PackageInfo{}, err
	}

	info := PackageInfo{
		IncludeDirs: []string{"include"},
		LibDirs:     []string{"lib"},
		BinDirs:     []string{"bin"},
	}

	switch {
	case d.OS == platform.Macos:
		info.Libs = []string{"cef_dll_wrapper"}
		flags := []string{
			fmt.Sprintf("-F %q", a.cfg.PackageDir),
			fmt.Sprintf("-framework %q", "Chromium Embedded Framework"),
		}
		info.ExeLinkFlags = flags
		info.SharedLinkFlags = append([]string(nil), flags...)
	case d.IsVisualStudio():
		info.Libs = []string{"libcef_dll_wrapper", "libcef"}
	case d.OS == platform.Linux:
		info.Libs = []string{"cef_dll_wrapper", "cef"}
		info.Defines = append(info.Defines, "_FILE_OFFSET_BITS=64")
	default:
		return PackageInfo{}, errdefs.New(errdefs.ErrUnsupportedPlatform, "package info", nil).WithPlatform(d.String())
	}

	if o.UseSandbox {
		if d.OS == platform.Windows {
			info.Libs = append(info.Libs, windowsSandboxLibs...)
		}
		info.Defines = append(info.Defines, sandboxDefines...)
	}

	if d.OS == platform.Windows {
		info.Libs = append(info.Libs, windowsSystemLibs...)
	}

	return info, nil
}
