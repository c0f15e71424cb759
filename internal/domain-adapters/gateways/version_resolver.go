package gateways

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

// ErrVersionNotFound is returned when no listed version satisfies a request
var ErrVersionNotFound = errors.New("version not found")

// VersionResolver picks a version out of a recipe's sources file
type VersionResolver struct{}

// NewVersionResolver creates a new version resolver
func NewVersionResolver() *VersionResolver {
	return &VersionResolver{}
}

// Sorted returns the listed versions newest first. Versions that do not
// parse as semver sort after the ones that do, in lexical order.
func (r *VersionResolver) Sorted(sources *entities.RecipeSources) []string {
	versions := sources.Versions()
	parsed := make(map[string]*semver.Version, len(versions))
	for _, v := range versions {
		if sv, err := parseVersion(v); err == nil {
			parsed[v] = sv
		}
	}

	sort.SliceStable(versions, func(i, j int) bool {
		vi, iok := parsed[versions[i]]
		vj, jok := parsed[versions[j]]
		switch {
		case iok && jok:
			return vi.GreaterThan(vj)
		case iok != jok:
			return iok
		default:
			return versions[i] < versions[j]
		}
	})
	return versions
}

// Resolve maps a request onto a listed version. An empty request or
// "latest" selects the newest version, an exact listed version is returned
// as is, anything else is treated as a semver constraint.
func (r *VersionResolver) Resolve(sources *entities.RecipeSources, requested string) (string, error) {
	if sources == nil || len(sources.Sources) == 0 {
		return "", fmt.Errorf("%w: no versions listed", ErrVersionNotFound)
	}

	requested = strings.TrimSpace(requested)
	if requested == "" || requested == "latest" {
		return r.Sorted(sources)[0], nil
	}
	if _, ok := sources.Sources[requested]; ok {
		return requested, nil
	}

	constraint, err := semver.NewConstraint(requested)
	if err != nil {
		return "", fmt.Errorf("%w: %s/%s", ErrVersionNotFound, sources.Name, requested)
	}
	for _, v := range r.Sorted(sources) {
		sv, err := parseVersion(v)
		if err != nil {
			continue
		}
		if constraint.Check(sv) {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: no %s version satisfies %q", ErrVersionNotFound, sources.Name, requested)
}

// parseVersion parses v as semver, reading a numeric "-N" suffix on a
// two-part version ("2.1-3") as the patch number
func parseVersion(v string) (*semver.Version, error) {
	if core, suffix, ok := strings.Cut(v, "-"); ok && strings.Count(core, ".") == 1 && isDigits(suffix) {
		v = core + "." + suffix
	}
	return semver.NewVersion(v)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
