package config

import (
	"github.com/open-edge-platform/cef-composer/internal/utils/logger"
)

// Overrides are command line values layered over a recipe. Zero values and
// nil pointers leave the recipe untouched.
type Overrides struct {
	Target            TargetSpec
	UseSandbox        *bool
	DebugInfoFlag     string
	Version           string
	BaseURL           string
	OutputDir         string
	InstallSystemDeps *bool
	KeepWorkspace     *bool
}

func mergeString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func mergeBool(dst *bool, value *bool) {
	if value != nil {
		*dst = *value
	}
}

// mergeTarget overlays the non-empty fields of user onto base.
func mergeTarget(base, user TargetSpec) TargetSpec {
	merged := base
	mergeString(&merged.OS, user.OS)
	mergeString(&merged.Arch, user.Arch)
	mergeString(&merged.Compiler, user.Compiler)
	if user.CompilerVersion != "" {
		merged.CompilerVersion = user.CompilerVersion
	}
	mergeString(&merged.CompilerRuntime, user.CompilerRuntime)
	mergeString(&merged.BuildType, user.BuildType)
	return merged
}

// Merge returns a copy of r with o applied.
func (r *Recipe) Merge(o Overrides) *Recipe {
	log := logger.Logger()

	merged := *r
	merged.Target = mergeTarget(r.Target, o.Target)
	mergeBool(&merged.Options.UseSandbox, o.UseSandbox)
	mergeString(&merged.Options.DebugInfoFlag, o.DebugInfoFlag)
	mergeString(&merged.Source.Version, o.Version)
	mergeString(&merged.Source.BaseURL, o.BaseURL)
	mergeString(&merged.Package.OutputDir, o.OutputDir)
	if o.InstallSystemDeps != nil {
		v := *o.InstallSystemDeps
		merged.Package.InstallSystemDeps = &v
	}
	mergeBool(&merged.Package.KeepWorkspace, o.KeepWorkspace)

	if o.Version != "" && o.Version != r.Source.Version && r.Source.SHA1 != "" {
		// A pinned checksum belongs to the recipe's version.
		log.Warnf("dropping sha1 pinned for version %q after version override", r.Source.Version)
		merged.Source.SHA1 = ""
	}
	return &merged
}

// WithDefaults returns a copy of r whose empty source fields are filled from
// the global download settings.
func (r *Recipe) WithDefaults(g *GlobalConfig) *Recipe {
	merged := *r
	if g == nil {
		return &merged
	}
	if merged.Source.Version == "" {
		merged.Source.Version = g.Download.Version
	}
	if merged.Source.BaseURL == "" {
		merged.Source.BaseURL = g.Download.BaseURL
	}
	return &merged
}
