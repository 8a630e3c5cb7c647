package main

import (
	"errors"
	"fmt"

	"github.com/open-edge-platform/cef-composer/internal/config"
	"github.com/open-edge-platform/cef-composer/internal/utils/logger"
	"github.com/spf13/cobra"
)

// createValidateCommand creates the validate subcommand
func createValidateCommand() *cobra.Command {
	validateCmd := &cobra.Command{
		Use:   "validate [flags] RECIPE_FILE...",
		Short: "Validate recipe files",
		Long: `Validate one or more recipe files against the schema and check that the
target platform can be served by a CEF binary distribution, without
downloading or building anything.`,
		Args:              cobra.MinimumNArgs(1),
		RunE:              executeValidate,
		ValidArgsFunction: recipeFileCompletion,
	}

	return validateCmd
}

// executeValidate handles the validate command logic
func executeValidate(cmd *cobra.Command, args []string) error {
	log := logger.Logger()

	var errs []error
	for _, recipeFile := range args {
		log.Infof("validating recipe file: %s", recipeFile)

		recipe, err := config.LoadRecipe(recipeFile)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", recipeFile, err))
			continue
		}
		plan, err := resolvePlan(recipe.WithDefaults(config.Global()))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", recipeFile, err))
			continue
		}

		log.Infof("✓ Recipe validation successful")
		log.Infof("  Platform: %s", plan.Platform)
		log.Infof("  Distribution: %s", plan.DistributionID)
		log.Infof("  Options: %s", plan.Options)
		log.Infof("  Output: %s", recipe.OutputDir(plan.Platform))
		for _, note := range plan.Notes {
			log.Warnf("  Note: %s", note)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("recipe validation failed: %w", errors.Join(errs...))
	}
	return nil
}
