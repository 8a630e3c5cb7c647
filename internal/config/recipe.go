package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/open-edge-platform/cef-composer/internal/config/validate"
	"github.com/open-edge-platform/cef-composer/internal/platform"
	"github.com/open-edge-platform/cef-composer/internal/utils/logger"
	"github.com/open-edge-platform/cef-composer/internal/utils/security"
	"sigs.k8s.io/yaml"
)

// Scalar is a string that may be written as a bare YAML number, so that
// compiler_version: 14 and compiler_version: "14" mean the same.
type Scalar string

func (s *Scalar) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = Scalar(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*s = Scalar(num.String())
	return nil
}

// TargetSpec selects the platform. Empty fields fall back to the defaults of the target OS.
type TargetSpec struct {
	OS              string `json:"os,omitempty"`
	Arch            string `json:"arch,omitempty"`
	Compiler        string `json:"compiler,omitempty"`
	CompilerVersion Scalar `json:"compiler_version,omitempty"`
	CompilerRuntime string `json:"compiler_runtime,omitempty"`
	BuildType       string `json:"build_type,omitempty"`
}

// OptionsSpec holds the build options.
type OptionsSpec struct {
	UseSandbox    bool   `json:"use_sandbox,omitempty"`
	DebugInfoFlag string `json:"debug_info_flag,omitempty"`
}

// SourceSpec overrides where the distribution comes from and how it is verified.
type SourceSpec struct {
	Version        string `json:"version,omitempty"`
	BaseURL        string `json:"base_url,omitempty"`
	SHA1           string `json:"sha1,omitempty"`           // expected SHA-1 of the archive
	VerifyChecksum bool   `json:"verify_checksum,omitempty"` // fetch <archive>.sha1 next to the archive and compare
	SignatureURL   string `json:"signature_url,omitempty"`  // armored detached OpenPGP signature of the archive
	PublicKey      string `json:"public_key,omitempty"`     // armored public key file, relative to the recipe
}

// PackageSpec controls the output.
type PackageSpec struct {
	OutputDir         string `json:"output_dir,omitempty"`
	InstallSystemDeps *bool  `json:"install_system_deps,omitempty"`
	KeepWorkspace     bool   `json:"keep_workspace,omitempty"`
}

// Recipe describes one packaging run.
type Recipe struct {
	Target  TargetSpec  `json:"target"`
	Options OptionsSpec `json:"options"`
	Source  SourceSpec  `json:"source"`
	Package PackageSpec `json:"package"`

	// Path is the file the recipe was loaded from, empty for built-in recipes.
	Path string `json:"-"`
}

// LoadRecipe loads and validates a recipe from a YAML file.
func LoadRecipe(path string) (*Recipe, error) {
	log := logger.Logger()

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yml" && ext != ".yaml" {
		log.Errorf("Unsupported file format: %s", ext)
		return nil, fmt.Errorf("unsupported file format: %s (only .yml and .yaml are supported)", ext)
	}

	data, err := security.SafeReadFile(path, security.RejectSymlinks)
	if err != nil {
		log.Errorf("Failed to read recipe file: %v", err)
		return nil, fmt.Errorf("failed to read recipe file: %w", err)
	}

	recipe, err := ParseRecipe(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe %s: %w", path, err)
	}
	recipe.Path = path

	log.Infof("Loaded recipe from %s: os=%s, arch=%s, compiler=%s, build_type=%s",
		path, recipe.Target.OS, recipe.Target.Arch, recipe.Target.Compiler, recipe.Target.BuildType)
	return recipe, nil
}

// ParseRecipe validates YAML data against the recipe schema and decodes it.
func ParseRecipe(data []byte) (*Recipe, error) {
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("invalid YAML format: recipe parsing failed: %w", err)
	}

	var raw interface{}
	if err := json.Unmarshal(jsonData, &raw); err != nil {
		return nil, fmt.Errorf("invalid recipe structure: %w", err)
	}
	if err := security.ValidateStructStrings(&raw, security.DefaultLimits()); err != nil {
		return nil, fmt.Errorf("invalid recipe: %w", err)
	}
	if err := validate.ValidateRecipeJSON(jsonData); err != nil {
		return nil, fmt.Errorf("recipe validation error: %w", err)
	}

	var recipe Recipe
	if err := json.Unmarshal(jsonData, &recipe); err != nil {
		return nil, fmt.Errorf("recipe parsing failed: invalid structure: %w", err)
	}
	return &recipe, nil
}

// Descriptor resolves the target into a platform descriptor. host supplies
// the OS and architecture when the recipe leaves them out; the compiler
// defaults to the usual toolchain of the resolved OS.
func (r *Recipe) Descriptor(host platform.Descriptor) (platform.Descriptor, error) {
	t := r.Target

	targetOS := host.OS
	if t.OS != "" {
		parsed, err := platform.ParseOS(t.OS)
		if err != nil {
			return platform.Descriptor{}, err
		}
		targetOS = parsed
	}
	arch := host.Arch
	if t.Arch != "" {
		parsed, err := platform.ParseArch(t.Arch)
		if err != nil {
			return platform.Descriptor{}, err
		}
		arch = parsed
	}

	d := platform.Defaults(targetOS, arch)
	if t.Compiler != "" {
		c, err := platform.ParseCompiler(t.Compiler)
		if err != nil {
			return platform.Descriptor{}, err
		}
		if c != d.Compiler {
			// Toolchain defaults only make sense for the default compiler.
			d.CompilerVersion = ""
			d.CompilerRuntime = ""
		}
		d.Compiler = c
	}
	if t.CompilerVersion != "" {
		d.CompilerVersion = string(t.CompilerVersion)
	}
	if t.CompilerRuntime != "" {
		rt, err := platform.ParseRuntime(t.CompilerRuntime)
		if err != nil {
			return platform.Descriptor{}, err
		}
		d.CompilerRuntime = rt
	}
	if t.BuildType != "" {
		bt, err := platform.ParseBuildType(t.BuildType)
		if err != nil {
			return platform.Descriptor{}, err
		}
		d.BuildType = bt
	}

	if err := d.Validate(); err != nil {
		return platform.Descriptor{}, err
	}
	return d, nil
}

// PlatformOptions returns the options requested by the recipe, before any
// platform adjustment.
func (r *Recipe) PlatformOptions() platform.Options {
	o := platform.DefaultOptions()
	o.UseSandbox = r.Options.UseSandbox
	if r.Options.DebugInfoFlag != "" {
		o.DebugInfoFlag = platform.DebugInfoFlag(r.Options.DebugInfoFlag)
	}
	return o
}

// InstallSystemDeps reports whether Linux system packages should be installed. Defaults to true.
func (r *Recipe) InstallSystemDeps() bool {
	return r.Package.InstallSystemDeps == nil || *r.Package.InstallSystemDeps
}

// ResolvePath resolves p relative to the directory of the recipe file.
func (r *Recipe) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) || r.Path == "" {
		return p
	}
	return filepath.Join(filepath.Dir(r.Path), p)
}

// OutputDir returns the package directory, relative to the working
// directory. It defaults to ./cef-<os tag><bits>-<build type>.
func (r *Recipe) OutputDir(d platform.Descriptor) string {
	if r.Package.OutputDir != "" {
		return r.Package.OutputDir
	}
	tag, _ := d.OS.Tag()
	bits, _ := d.Arch.Bits()
	return filepath.Join(".", "cef-"+tag+bits+"-"+strings.ToLower(string(d.BuildType)))
}
