package schema

import _ "embed"

//go:embed cef-recipe.schema.json
var RecipeSchema []byte

//go:embed cef-composer-config.schema.json
var ConfigSchema []byte
