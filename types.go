package recipestore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sort"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RecipeService is the remote source of truth for recipe records.
type RecipeService interface {
	List(ctx context.Context) (Collection, error)
	Create(ctx context.Context, draft Draft) (Recipe, error)
	Update(ctx context.Context, recipe Recipe) (Recipe, error)
	Delete(ctx context.Context, id string) error
}

// Category groups recipes in the list response.
type Category string

const (
	CategoryVeg       Category = "VegRecipe"
	CategoryNonVeg    Category = "NonVegRecipe"
	CategoryIceCreams Category = "IceCreams"
	CategoryCakes     Category = "Cakes"
)

// Categories returns the closed set of categories in display order.
func Categories() []Category {
	return []Category{CategoryVeg, CategoryNonVeg, CategoryIceCreams, CategoryCakes}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return slices.Contains(Categories(), c)
}

// Recipe is a single persisted recipe. ID is assigned by the remote service.
type Recipe struct {
	ID           string   `json:"_id"`
	Name         string   `json:"name"`
	Category     Category `json:"category"`
	Ingredients  string   `json:"ingredients"`
	Instructions string   `json:"instructions"`
	Image        string   `json:"image"`
}

// UnmarshalJSON accepts both "_id" and "id" as the identity key. Fields absent
// from data keep their current values.
func (r *Recipe) UnmarshalJSON(data []byte) error {
	type plain Recipe
	prevID := r.ID
	r.ID = ""
	aux := struct {
		*plain
		AltID string `json:"id"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		r.ID = prevID
		return err
	}
	if r.ID == "" {
		r.ID = aux.AltID
	}
	if r.ID == "" {
		r.ID = prevID
	}
	return nil
}

// Draft returns the editable fields of r without its identity.
func (r Recipe) Draft() Draft {
	return Draft{
		Name:         r.Name,
		Category:     r.Category,
		Ingredients:  r.Ingredients,
		Instructions: r.Instructions,
		Image:        r.Image,
	}
}

// Set assigns value to the named field. The identity cannot be set.
func (r *Recipe) Set(field Field, value string) error {
	d := r.Draft()
	if err := d.Set(field, value); err != nil {
		return err
	}
	*r = d.WithID(r.ID)
	return nil
}

// Draft is an unsaved recipe under construction. The zero value is the empty form.
type Draft struct {
	Name         string   `json:"name"`
	Category     Category `json:"category"`
	Ingredients  string   `json:"ingredients"`
	Instructions string   `json:"instructions"`
	Image        string   `json:"image"`
}

// IsEmpty reports whether d equals the empty form.
func (d Draft) IsEmpty() bool {
	return d == Draft{}
}

// WithID promotes the draft to a Recipe carrying id.
func (d Draft) WithID(id string) Recipe {
	return Recipe{
		ID:           id,
		Name:         d.Name,
		Category:     d.Category,
		Ingredients:  d.Ingredients,
		Instructions: d.Instructions,
		Image:        d.Image,
	}
}

// Set assigns value to the named field without validating it.
func (d *Draft) Set(field Field, value string) error {
	switch field {
	case FieldName:
		d.Name = value
	case FieldCategory:
		d.Category = Category(value)
	case FieldIngredients:
		d.Ingredients = value
	case FieldInstructions:
		d.Instructions = value
	case FieldImage:
		d.Image = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// Field names an editable recipe field.
type Field string

const (
	FieldName         Field = "name"
	FieldCategory     Field = "category"
	FieldIngredients  Field = "ingredients"
	FieldInstructions Field = "instructions"
	FieldImage        Field = "image"
)

// Collection maps a category name to its recipes in remote list order.
type Collection map[string][]Recipe

// Clone returns a deep copy of c. A nil collection clones to an empty one.
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	for cat, recipes := range c {
		out[cat] = slices.Clone(recipes)
	}
	return out
}

// Len returns the number of records across all categories.
func (c Collection) Len() int {
	n := 0
	for _, recipes := range c {
		n += len(recipes)
	}
	return n
}

// CategoryNames returns the known categories present in c in display order,
// followed by any other keys sorted alphabetically.
func (c Collection) CategoryNames() []string {
	names := make([]string, 0, len(c))
	for _, cat := range Categories() {
		if _, ok := c[string(cat)]; ok {
			names = append(names, string(cat))
		}
	}

	var extra []string
	for name := range c {
		if !Category(name).Valid() {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)

	return append(names, extra...)
}

// Find returns the record with the given id.
func (c Collection) Find(id string) (Recipe, bool) {
	for _, recipes := range c {
		for _, r := range recipes {
			if r.ID == id {
				return r, true
			}
		}
	}
	return Recipe{}, false
}
