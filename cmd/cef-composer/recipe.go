package main

import (
	"github.com/open-edge-platform/cef-composer/internal/config"
	"github.com/spf13/cobra"
)

// recipeFlags are the command line overrides shared by build and plan.
type recipeFlags struct {
	target        config.TargetSpec
	sandbox       bool
	debugInfoFlag string
	cefVersion    string
	baseURL       string
	output        string
	skipSysDeps   bool
	keepWorkspace bool
}

func (f *recipeFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.target.OS, "os", "", "Target OS (Windows, Macos, Linux); defaults to the host")
	flags.StringVar(&f.target.Arch, "arch", "", "Target architecture (x86, x86_64, armv7, armv8); defaults to the host")
	flags.StringVar(&f.target.Compiler, "compiler", "", "Compiler (Visual Studio, gcc, clang, apple-clang)")
	flags.StringVar((*string)(&f.target.CompilerVersion), "compiler-version", "", "Compiler version, e.g. 14 for Visual Studio 2015")
	flags.StringVar(&f.target.CompilerRuntime, "compiler-runtime", "", "Visual Studio runtime (MT, MTd, MD, MDd)")
	flags.StringVar(&f.target.BuildType, "build-type", "", "Build type (Debug, Release)")
	flags.BoolVar(&f.sandbox, "sandbox", false, "Link the CEF sandbox (Visual Studio 14 only on Windows)")
	flags.StringVar(&f.debugInfoFlag, "debug-info-flag", "", "MSVC debug information flag (-Zi, -Z7)")
	flags.StringVar(&f.cefVersion, "cef-version", "", "CEF version to package")
	flags.StringVar(&f.baseURL, "base-url", "", "Base URL of the CEF builds server")
	flags.StringVarP(&f.output, "output", "o", "", "Package output directory")
}

// bindBuild adds the flags that only matter when a package is produced.
func (f *recipeFlags) bindBuild(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.skipSysDeps, "skip-system-deps", false, "Do not install Linux system packages")
	cmd.Flags().BoolVar(&f.keepWorkspace, "keep-workspace", false, "Keep the extracted sources and build tree")
}

// overrides returns the values explicitly set on cmd.
func (f *recipeFlags) overrides(cmd *cobra.Command) config.Overrides {
	o := config.Overrides{
		Target:        f.target,
		DebugInfoFlag: f.debugInfoFlag,
		Version:       f.cefVersion,
		BaseURL:       f.baseURL,
		OutputDir:     f.output,
	}
	if cmd.Flags().Changed("sandbox") {
		v := f.sandbox
		o.UseSandbox = &v
	}
	if cmd.Flags().Changed("skip-system-deps") {
		v := !f.skipSysDeps
		o.InstallSystemDeps = &v
	}
	if cmd.Flags().Changed("keep-workspace") {
		v := f.keepWorkspace
		o.KeepWorkspace = &v
	}
	return o
}

// loadRecipe reads the optional recipe argument and layers the global
// download defaults and the command line overrides on top of it.
func (f *recipeFlags) loadRecipe(cmd *cobra.Command, args []string) (*config.Recipe, error) {
	recipe := &config.Recipe{}
	if len(args) > 0 {
		loaded, err := config.LoadRecipe(args[0])
		if err != nil {
			return nil, err
		}
		recipe = loaded
	}
	return recipe.WithDefaults(config.Global()).Merge(f.overrides(cmd)), nil
}

// recipeFileCompletion helps with suggesting YAML files for the recipe argument
func recipeFileCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{"yml", "yaml"}, cobra.ShellCompDirectiveFilterFileExt
}
