package yaml

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

// SourcesFileName is the per-recipe file mapping versions to sources
const SourcesFileName = "sources.yml"

// RecipeRepository implements repositories.RecipeRepository using a
// recipes/<name>/sources.yml tree
type RecipeRepository struct {
	recipesDir string
	parser     *SourcesParser
}

// NewRecipeRepository creates a new YAML-based recipe repository
func NewRecipeRepository(recipesDir string) *RecipeRepository {
	return &RecipeRepository{
		recipesDir: recipesDir,
		parser:     NewSourcesParser(),
	}
}

// GetSources retrieves the sources of a recipe by name
func (r *RecipeRepository) GetSources(_ context.Context, name string) (*entities.RecipeSources, error) {
	filePath := filepath.Join(r.recipesDir, name, SourcesFileName)

	// Check if file exists
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("no sources for recipe %s in %s", name, r.recipesDir)
	}

	return r.parser.ParseFile(name, filePath)
}

// ListRecipes returns the names of recipes that have a sources file
func (r *RecipeRepository) ListRecipes(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.recipesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipes directory: %w", err)
	}

	names := make([]string, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(r.recipesDir, entry.Name(), SourcesFileName)); err != nil {
			continue
		}
		names = append(names, entry.Name())
	}

	sort.Strings(names)
	return names, nil
}
