package validate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/open-edge-platform/cef-composer/internal/config/schema"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	recipeSchemaName = "cef-recipe.schema.json"
	configSchemaName = "cef-composer-config.schema.json"
	targetRef        = "#/$defs/Target"
)

// ValidateAgainstSchema compiles the given schema bytes and runs it against
// the JSON in data. The name is only used to identify the schema in errors.
func ValidateAgainstSchema(name string, schemaBytes, data []byte, ref string) error {
	comp := jsonschema.NewCompiler()
	if err := comp.AddResource(name, bytes.NewReader(schemaBytes)); err != nil {
		return fmt.Errorf("loading schema %q: %w", name, err)
	}

	// An empty ref compiles the root, otherwise the referenced subschema.
	target := name
	if ref != "" {
		switch {
		case strings.HasPrefix(ref, "#"):
			target = name + ref
		default:
			target = name + "#" + ref
		}
	}
	sch, err := comp.Compile(target)
	if err != nil {
		return fmt.Errorf("compiling schema %q: %w", name, err)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid JSON for %q: %w", name, err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("schema validation against %q failed: %w", name, err)
	}
	return nil
}

// ValidateRecipeJSON runs the recipe schema against data.
func ValidateRecipeJSON(data []byte) error {
	return ValidateAgainstSchema(recipeSchemaName, schema.RecipeSchema, data, "")
}

// ValidateTargetJSON checks a bare target object, as produced by command line overrides.
func ValidateTargetJSON(data []byte) error {
	return ValidateAgainstSchema(recipeSchemaName, schema.RecipeSchema, data, targetRef)
}

// ValidateConfigJSON runs the global config schema against data.
func ValidateConfigJSON(data []byte) error {
	return ValidateAgainstSchema(configSchemaName, schema.ConfigSchema, data, "")
}
