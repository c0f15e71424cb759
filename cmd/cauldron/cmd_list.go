package main

import (
	"context"
	"fmt"

	"github.com/ochairo/cauldron/internal/domain/interfaces"
	"github.com/ochairo/cauldron/internal/external-adapters/yaml"
	"github.com/ochairo/cauldron/internal/recipes"
)

// ListCmd implements the 'list' command.
type ListCmd struct{}

// Run prints the recipes that are both registered and have a sources file
func (l *ListCmd) Run(g *Global, cli *CLI) error {
	listed, err := yaml.NewRecipeRepository(cli.RecipesDir).ListRecipes(context.Background())
	if err != nil {
		return fmt.Errorf("error listing recipes: %w", err)
	}

	registry := recipes.NewRegistry()
	available := make([]interfaces.Recipe, 0, len(listed))
	for _, name := range listed {
		recipe, err := registry.Get(name)
		if err != nil {
			g.Logger.Debug("skipping sources without a recipe", interfaces.F("name", name))
			continue
		}
		available = append(available, recipe)
	}

	fmt.Fprintf(g.Out, "Available recipes (%d total):\n\n", len(available))
	for _, recipe := range available {
		meta := recipe.Metadata()
		fmt.Fprintf(g.Out, "  %-20s %s\n", meta.Name, meta.Description)
	}
	return nil
}
