package server

import (
	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"recipestore"
)

// RecipeSchema describes a stored recipe record as served by GET /recipes/schema.
func RecipeSchema() *jsonschema.Schema {
	categories := make([]any, 0, len(recipestore.Categories()))
	for _, c := range recipestore.Categories() {
		categories = append(categories, string(c))
	}

	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"_id":          {Type: "string"},
			"name":         {Type: "string"},
			"category":     {Type: "string", Enum: categories},
			"ingredients":  {Type: "string"},
			"instructions": {Type: "string"},
			"image":        {Type: "string"},
		},
		Required: []string{"name", "category"},
	}
}
