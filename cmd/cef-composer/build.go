package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/open-edge-platform/cef-composer/internal/config"
	"github.com/open-edge-platform/cef-composer/internal/pipeline"
	"github.com/open-edge-platform/cef-composer/internal/utils/logger"
	"github.com/spf13/cobra"
)

// Build command flags
var (
	workers  int    = -1 // -1 means use config file value
	cacheDir string = "" // Empty means use config file value
	workDir  string = "" // Empty means use config file value

	buildFlags recipeFlags
)

// runPipeline is replaced in tests.
var runPipeline = func(ctx context.Context, recipe *config.Recipe) (*pipeline.Result, error) {
	p, err := pipeline.New(config.Global(), nil)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, recipe)
}

// createBuildCommand creates the build subcommand
func createBuildCommand() *cobra.Command {
	buildCmd := &cobra.Command{
		Use:   "build [flags] [RECIPE_FILE]",
		Short: "Build a CEF package",
		Long: `Build a CEF package for the platform described by the recipe file.
The recipe must be in YAML format following the recipe schema. Without a
recipe the host platform is targeted; flags override recipe values.`,
		Args:              cobra.MaximumNArgs(1),
		RunE:              executeBuild,
		ValidArgsFunction: recipeFileCompletion,
	}

	buildFlags.bind(buildCmd)
	buildFlags.bindBuild(buildCmd)
	buildCmd.Flags().IntVarP(&workers, "workers", "w", -1,
		"Number of concurrent download workers and build jobs")
	buildCmd.Flags().StringVarP(&cacheDir, "cache-dir", "d", "",
		"Download cache directory")
	buildCmd.Flags().StringVar(&workDir, "work-dir", "",
		"Working directory for builds")

	return buildCmd
}

// applyGlobalOverrides updates the global singleton with any directory or worker flags
func applyGlobalOverrides(cmd *cobra.Command) error {
	currentConfig := *config.Global()
	if cmd.Flags().Changed("workers") {
		currentConfig.Workers = workers
	}
	if cmd.Flags().Changed("cache-dir") {
		currentConfig.CacheDir = cacheDir
	}
	if cmd.Flags().Changed("work-dir") {
		currentConfig.WorkDir = workDir
	}
	if err := currentConfig.Validate(); err != nil {
		return err
	}
	config.SetGlobal(&currentConfig)
	return nil
}

// executeBuild handles the build command execution logic
func executeBuild(cmd *cobra.Command, args []string) error {
	log := logger.Logger()

	if err := applyGlobalOverrides(cmd); err != nil {
		return fmt.Errorf("invalid build flags: %w", err)
	}

	recipe, err := buildFlags.loadRecipe(cmd, args)
	if err != nil {
		return fmt.Errorf("loading recipe: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := runPipeline(ctx, recipe)
	if err != nil {
		log.Errorf("CEF package build failed: %v", err)
		return err
	}

	log.Info("CEF package build completed successfully")
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Package: %s\n", result.PackageDir)
	fmt.Fprintf(out, "Distribution: %s\n", result.Plan.DistributionID)
	fmt.Fprintf(out, "Platform: %s\n", result.Plan.Platform)
	fmt.Fprintf(out, "Files: %d\n", len(result.Files))
	fmt.Fprintf(out, "Descriptor: %s\n", result.Descriptor)
	if len(result.Warnings) > 0 {
		fmt.Fprintln(out, "Warnings:")
		for _, w := range result.Warnings {
			fmt.Fprintf(out, "  %s\n", w)
		}
	}
	return nil
}
