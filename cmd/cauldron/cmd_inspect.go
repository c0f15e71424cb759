package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/ochairo/cauldron/internal/domain-adapters/gateways"
	"github.com/ochairo/cauldron/internal/external-adapters/yaml"
	"github.com/ochairo/cauldron/internal/recipes"
)

// InspectCmd implements the 'inspect' command.
type InspectCmd struct {
	Recipe string `arg:"" help:"Recipe name"`
}

func (i *InspectCmd) Run(g *Global, cli *CLI) error {
	recipe, err := recipes.NewRegistry().Get(i.Recipe)
	if err != nil {
		return err
	}
	meta := recipe.Metadata()

	fmt.Fprintf(g.Out, "name: %s\n", meta.Name)
	fmt.Fprintf(g.Out, "description: %s\n", meta.Description)
	fmt.Fprintf(g.Out, "license: %s\n", meta.License)
	fmt.Fprintf(g.Out, "homepage: %s\n", meta.Homepage)
	fmt.Fprintf(g.Out, "topics: %s\n", strings.Join(meta.Topics, ", "))
	fmt.Fprintf(g.Out, "settings: %s\n", strings.Join(meta.Settings, ", "))

	fmt.Fprintln(g.Out, "options:")
	for _, def := range recipe.OptionSchema() {
		fmt.Fprintf(g.Out, "  %s: [%s] (default: %s)\n", def.Name, strings.Join(def.Values, ", "), def.Default)
	}

	sources, err := yaml.NewRecipeRepository(cli.RecipesDir).GetSources(context.Background(), i.Recipe)
	if err != nil {
		g.Logger.Warn(err.Error())
		return nil
	}
	fmt.Fprintln(g.Out, "versions:")
	for _, v := range gateways.NewVersionResolver().Sorted(sources) {
		fmt.Fprintf(g.Out, "  %s\n", v)
	}
	return nil
}
