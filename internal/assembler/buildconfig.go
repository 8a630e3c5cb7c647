package assembler

import (
	"path/filepath"
	"sort"

	"github.com/open-edge-platform/cef-composer/internal/platform"
)

// CXXStandard is the language level the wrapper library is compiled with.
const CXXStandard = "17"

// BuildConfig holds CMake cache variables for the wrapper build.
type BuildConfig map[string]string

// Keys returns the variable names in sorted order.
func (c BuildConfig) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Args renders the variables as -DKEY=VALUE arguments in sorted key order.
func (c BuildConfig) Args() []string {
	args := make([]string, 0, len(c))
	for _, k := range c.Keys() {
		args = append(args, "-D"+k+"="+c[k])
	}
	return args
}

// BuildConfig computes the CMake variables for d and o.
func (a *Assembler) BuildConfig(d platform.Descriptor, o platform.Options) (BuildConfig, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	cfg := BuildConfig{
		"CEF_ROOT":           filepath.ToSlash(a.SourceDir()),
		"USE_SANDBOX":        onOff(o.UseSandbox),
		"CMAKE_CXX_STANDARD": CXXStandard,
	}
	if d.IsVisualStudio() {
		cfg["CEF_RUNTIME_LIBRARY_FLAG"] = "/" + string(d.CompilerRuntime)
		flag := o.DebugInfoFlag
		if flag == "" {
			flag = platform.DebugInfoZ7
		}
		cfg["CEF_DEBUG_INFO_FLAG"] = string(flag)
	}
	return cfg, nil
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}
