package entities

import (
	"fmt"
	"sort"
	"strings"
)

// RecipeMetadata describes a recipe
type RecipeMetadata struct {
	Name        string
	Description string
	Topics      []string
	URL         string
	Homepage    string
	License     string
	Settings    []string // settings the recipe depends on
}

// Source is one version entry of a recipe's sources file
type Source struct {
	URL          string
	SHA256       string
	SignatureURL string
	GPGKeysURL   string
	GPGKeyIDs    []string
	Git          string // clone URL, used instead of URL when set
	Ref          string // git tag to check out
}

// RecipeSources maps versions to the source archive they are built from
type RecipeSources struct {
	Name    string
	Sources map[string]Source
}

// Versions returns all versions in the sources file, sorted lexically
func (r *RecipeSources) Versions() []string {
	versions := make([]string, 0, len(r.Sources))
	for v := range r.Sources {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions
}

// Requirement is a reference to another package ("name/version")
type Requirement struct {
	Name    string
	Version string
}

// ParseRequirement parses a "name/version" reference
func ParseRequirement(ref string) (Requirement, error) {
	name, version, ok := strings.Cut(ref, "/")
	if !ok || name == "" || version == "" {
		return Requirement{}, fmt.Errorf("invalid requirement reference %q, want name/version", ref)
	}
	return Requirement{Name: name, Version: version}, nil
}

// MustRequirement is ParseRequirement for references known at compile time
func MustRequirement(ref string) Requirement {
	req, err := ParseRequirement(ref)
	if err != nil {
		panic(err)
	}
	return req
}

func (r Requirement) String() string {
	return r.Name + "/" + r.Version
}

// Layout holds the folders of a single build
type Layout struct {
	SourceFolder  string
	BuildFolder   string
	PackageFolder string
}
