// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

// RecipeRepository defines the interface for accessing recipe source data
type RecipeRepository interface {
	// GetSources retrieves the version-to-source mapping of a recipe
	GetSources(ctx context.Context, name string) (*entities.RecipeSources, error)

	// ListRecipes returns the names of all recipes with a sources file
	ListRecipes(ctx context.Context) ([]string, error)
}
