package main

import (
	"fmt"

	"github.com/open-edge-platform/cef-composer/internal/cache"
	"github.com/spf13/cobra"
)

func createCacheCommand() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached artifacts",
		Long: `Manage cache directories used by cef-composer.

Available commands:
  clean    Remove downloaded distributions or workspace build trees`,
	}

	cacheCmd.AddCommand(createCacheCleanCommand())

	return cacheCmd
}

func createCacheCleanCommand() *cobra.Command {
	var (
		opts cache.CleanOptions
		all  bool
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove downloaded distributions or workspace build trees",
		Long: `Remove downloaded CEF distributions or extracted workspaces to reclaim disk space.

By default, the command removes downloaded archives. Use flags to target
workspaces or to restrict cleanup to a single distribution.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			downloadsFlag := cmd.Flags().Changed("downloads")
			workspaceFlag := cmd.Flags().Changed("workspace")

			if all {
				opts.CleanDownloads = true
				opts.CleanWorkspace = true
			} else if !downloadsFlag && !workspaceFlag {
				opts.CleanDownloads = true
			}

			if !opts.CleanDownloads && !opts.CleanWorkspace {
				return fmt.Errorf("nothing to clean: specify --downloads, --workspace, or --all")
			}

			result, err := cache.Clean(opts)
			if err != nil {
				return err
			}

			output := []string{}
			if opts.DryRun {
				output = append(output, "Dry run: no files were deleted.")
			}

			if len(result.RemovedPaths) > 0 {
				header := "Removed paths:"
				if opts.DryRun {
					header = "Would remove:"
				}
				output = append(output, header)
				output = append(output, indentPaths(result.RemovedPaths)...)
			}

			if len(result.RemovedPaths) == 0 && len(result.SkippedPaths) == 0 {
				scopeDesc := "download cache"
				if opts.CleanDownloads && opts.CleanWorkspace {
					scopeDesc = "download or workspace cache"
				} else if opts.CleanWorkspace {
					scopeDesc = "workspace cache"
				}
				filter := ""
				if opts.Distribution != "" {
					filter = fmt.Sprintf(" for distribution '%s'", opts.Distribution)
				}
				output = append(output, fmt.Sprintf("No %s entries found%s.", scopeDesc, filter))
			}

			if len(result.SkippedPaths) > 0 {
				output = append(output, "Skipped (not found):")
				output = append(output, indentPaths(result.SkippedPaths)...)
			}

			writer := cmd.OutOrStdout()
			for _, line := range output {
				fmt.Fprintln(writer, line)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Remove both downloads and workspaces")
	cmd.Flags().BoolVar(&opts.CleanDownloads, "downloads", false, "Remove downloaded distribution archives")
	cmd.Flags().BoolVar(&opts.CleanWorkspace, "workspace", false, "Remove extracted sources and build trees")
	cmd.Flags().StringVar(&opts.Distribution, "distribution", "", "Restrict cleanup to one distribution id, e.g. cef_binary_<version>_linux64")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Show what would be removed without deleting anything")

	return cmd
}

func indentPaths(values []string) []string {
	lines := make([]string, len(values))
	for i, v := range values {
		lines[i] = "  " + v
	}
	return lines
}
