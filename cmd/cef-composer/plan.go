package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/open-edge-platform/cef-composer/internal/assembler"
	"github.com/open-edge-platform/cef-composer/internal/config"
	"github.com/open-edge-platform/cef-composer/internal/pipeline"
	"github.com/open-edge-platform/cef-composer/internal/platform"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	planFlags  recipeFlags
	planFormat string = "table"
)

// resolvePlan is replaced in tests to pin the host platform.
var resolvePlan = func(recipe *config.Recipe) (*assembler.Plan, error) {
	host, err := platform.Host()
	if err != nil {
		return nil, err
	}
	p := &pipeline.Pipeline{Host: host}
	return p.Resolve(recipe)
}

// createPlanCommand creates the plan subcommand
func createPlanCommand() *cobra.Command {
	planCmd := &cobra.Command{
		Use:   "plan [flags] [RECIPE_FILE]",
		Short: "Show what a build would do",
		Long: `Compute the packaging plan for a recipe without downloading or building
anything: the distribution and its URL, the CMake variables, the copy manifest
and the link metadata of the resulting package.`,
		Args:              cobra.MaximumNArgs(1),
		RunE:              executePlan,
		ValidArgsFunction: recipeFileCompletion,
	}

	planFlags.bind(planCmd)
	planCmd.Flags().StringVarP(&planFormat, "format", "f", "table", "Output format (table, json, yaml)")

	return planCmd
}

// executePlan handles the plan command logic
func executePlan(cmd *cobra.Command, args []string) error {
	recipe, err := planFlags.loadRecipe(cmd, args)
	if err != nil {
		return fmt.Errorf("loading recipe: %w", err)
	}
	plan, err := resolvePlan(recipe)
	if err != nil {
		return fmt.Errorf("planning failed: %w", err)
	}
	return writePlan(cmd.OutOrStdout(), plan, planFormat)
}

func writePlan(w io.Writer, plan *assembler.Plan, format string) error {
	switch strings.ToLower(format) {
	case "json":
		data, err := json.MarshalIndent(plan, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(plan); err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return enc.Close()
	case "table", "":
		return renderPlanTables(w, plan)
	default:
		return fmt.Errorf("unsupported format %q (supported: table, json, yaml)", format)
	}
}

func renderPlanTables(w io.Writer, plan *assembler.Plan) error {
	summary := tablewriter.NewWriter(w)
	summary.Header("Field", "Value")
	rows := [][]string{
		{"Version", plan.Version},
		{"Platform", plan.Platform.String()},
		{"Distribution", plan.DistributionID},
		{"Archive URL", plan.ArchiveURL},
		{"Generator", orDefault(plan.Generator, "(cmake default)")},
		{"Options", plan.Options.String()},
	}
	for _, note := range plan.Notes {
		rows = append(rows, []string{"Note", note})
	}
	for _, row := range rows {
		_ = summary.Append(row)
	}
	if err := summary.Render(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nCMake variables:")
	vars := tablewriter.NewWriter(w)
	vars.Header("Variable", "Value")
	for _, k := range plan.BuildConfig.Keys() {
		_ = vars.Append([]string{k, plan.BuildConfig[k]})
	}
	if err := vars.Render(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nCopy manifest:")
	rules := tablewriter.NewWriter(w)
	rules.Header("Pattern", "Src", "Dst", "Keep Path", "Symlinks", "Optional")
	for _, r := range plan.CopyManifest {
		_ = rules.Append([]string{
			r.Pattern,
			orDefault(r.Src, "(workspace)"),
			orDefault(r.Dst, "(root)"),
			strconv.FormatBool(r.KeepPath),
			strconv.FormatBool(r.Symlinks),
			strconv.FormatBool(r.Optional),
		})
	}
	if err := rules.Render(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nPackage info:")
	info := tablewriter.NewWriter(w)
	info.Header("Field", "Value")
	pi := plan.PackageInfo
	for _, row := range [][]string{
		{"libs", strings.Join(pi.Libs, " ")},
		{"defines", strings.Join(pi.Defines, " ")},
		{"exe_link_flags", strings.Join(pi.ExeLinkFlags, " ")},
		{"shared_link_flags", strings.Join(pi.SharedLinkFlags, " ")},
		{"include_dirs", strings.Join(pi.IncludeDirs, " ")},
		{"lib_dirs", strings.Join(pi.LibDirs, " ")},
		{"bin_dirs", strings.Join(pi.BinDirs, " ")},
	} {
		_ = info.Append(row)
	}
	return info.Render()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
