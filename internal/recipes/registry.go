// Package recipes holds the registry of recipes the host can build.
package recipes

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ochairo/cauldron/internal/domain/interfaces"
	"github.com/ochairo/cauldron/internal/recipes/cunit"
)

// ErrRecipeNotFound is returned for names with no registered recipe
var ErrRecipeNotFound = errors.New("recipe not found")

// Registry maps recipe names to constructors
type Registry struct {
	recipes map[string]func() interfaces.Recipe
}

// NewRegistry returns a registry with all built-in recipes
func NewRegistry() *Registry {
	r := &Registry{recipes: make(map[string]func() interfaces.Recipe)}
	r.Register(cunit.Name, func() interfaces.Recipe { return cunit.New() })
	return r
}

// Register adds or replaces a recipe constructor
func (r *Registry) Register(name string, constructor func() interfaces.Recipe) {
	r.recipes[name] = constructor
}

// Get returns a new instance of the named recipe
func (r *Registry) Get(name string) (interfaces.Recipe, error) {
	constructor, ok := r.recipes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRecipeNotFound, name)
	}
	return constructor(), nil
}

// Names returns the registered recipe names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.recipes))
	for name := range r.recipes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
