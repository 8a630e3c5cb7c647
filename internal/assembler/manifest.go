package assembler

import (
	"path"

	"github.com/open-edge-platform/cef-composer/internal/errdefs"
	"github.com/open-edge-platform/cef-composer/internal/platform"
)

// CopyRule selects files below Src (relative to the workspace, "" for the
// whole workspace) whose relative path matches Pattern, and places them
// under Dst in the package. With KeepPath the path relative to Src is kept,
// otherwise files are flattened into Dst. Symlinks are recreated instead of
// followed when set. A rule that matches nothing is an error unless Optional.
type CopyRule struct {
	Pattern  string `json:"pattern" yaml:"pattern"`
	Src      string `json:"src" yaml:"src"`
	Dst      string `json:"dst" yaml:"dst"`
	KeepPath bool   `json:"keep_path" yaml:"keep_path"`
	Symlinks bool   `json:"symlinks,omitempty" yaml:"symlinks,omitempty"`
	Optional bool   `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// FrameworkBundle is the macOS framework directory shipped in the distribution.
const FrameworkBundle = "Chromium Embedded Framework.framework"

// ResourceFiles are copied for every OS.
var ResourceFiles = []string{
	"cef.pak",
	"cef_100_percent.pak",
	"cef_200_percent.pak",
	"cef_extensions.pak",
	"devtools_resources.pak",
	"icudtl.dat",
	"locales*",
}

// V8Blobs are the V8 startup snapshots shipped next to libcef.
var V8Blobs = []string{
	"natives_blob.bin",
	"snapshot_blob.bin",
	"v8_context_snapshot.bin",
}

// CopyManifest returns the ordered copy rules for d and o. The rules may only
// be executed once the wrapper build has produced its output.
func (a *Assembler) CopyManifest(d platform.Descriptor, o platform.Options) ([]CopyRule, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	var (
		include   = path.Join(SourceSubfolder, "include")
		resources = path.Join(SourceSubfolder, "Resources")
		dist      = path.Join(SourceSubfolder, string(d.BuildType))
	)

	rules := []CopyRule{
		{Pattern: "*", Src: include, Dst: "include/include", KeepPath: true},
	}
	// macOS distributions carry their resources inside the framework bundle.
	resourcesOptional := d.OS == platform.Macos
	for _, name := range ResourceFiles {
		rules = append(rules, CopyRule{Pattern: name, Src: resources, Dst: "lib", KeepPath: true, Optional: resourcesOptional})
	}

	switch d.OS {
	case platform.Linux:
		rules = append(rules, CopyRule{Pattern: "libcef.so", Src: dist, Dst: "lib"})
		for _, blob := range V8Blobs {
			rules = append(rules, CopyRule{Pattern: blob, Src: dist, Dst: "lib"})
		}
		if o.UseSandbox {
			rules = append(rules, CopyRule{Pattern: "chrome-sandbox", Src: dist, Dst: "bin"})
		}
		rules = append(rules, CopyRule{Pattern: "*cef_dll_wrapper.a", Dst: "lib"})

	case platform.Macos:
		rules = append(rules, CopyRule{Pattern: FrameworkBundle + "/*", Src: dist, Dst: "", KeepPath: true, Symlinks: true})
		if o.UseSandbox {
			rules = append(rules, CopyRule{Pattern: "cef-sandbox.a", Src: dist, Dst: "bin"})
		}
		rules = append(rules, CopyRule{Pattern: "*cef_dll_wrapper.a", Dst: "lib"})

	case platform.Windows:
		rules = append(rules,
			CopyRule{Pattern: "*.dll", Src: dist, Dst: "bin"},
			CopyRule{Pattern: "libcef.lib", Src: dist, Dst: "lib"},
		)
		for _, blob := range V8Blobs {
			rules = append(rules, CopyRule{Pattern: blob, Src: dist, Dst: "bin"})
		}
		if o.UseSandbox {
			rules = append(rules, CopyRule{Pattern: "cef_sandbox.lib", Src: dist, Dst: "lib"})
		}
		rules = append(rules, CopyRule{Pattern: "*cef_dll_wrapper.lib", Dst: "lib"})

	default:
		return nil, errdefs.New(errdefs.ErrUnsupportedPlatform, "copy manifest", nil).WithPlatform(d.String())
	}

	return rules, nil
}
