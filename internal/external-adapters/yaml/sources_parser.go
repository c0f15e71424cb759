// Package yaml provides YAML-based recipe data, profile and metadata adapters.
package yaml

import (
	"fmt"
	"os"

	"github.com/ochairo/cauldron/internal/domain/entities"
	"gopkg.in/yaml.v3"
)

// yamlSources represents the raw sources file structure
type yamlSources struct {
	Sources map[string]yamlSource `yaml:"sources"`
}

type yamlSource struct {
	URL          string   `yaml:"url"`
	SHA256       string   `yaml:"sha256"`
	SignatureURL string   `yaml:"signature_url"`
	GPGKeysURL   string   `yaml:"gpg_keys_url"`
	GPGKeyIDs    []string `yaml:"gpg_key_ids"`
	Git          string   `yaml:"git"`
	Ref          string   `yaml:"ref"`
}

// SourcesParser parses recipe sources files
type SourcesParser struct{}

// NewSourcesParser creates a new sources parser
func NewSourcesParser() *SourcesParser {
	return &SourcesParser{}
}

// ParseFile parses a sources file for the named recipe
func (p *SourcesParser) ParseFile(name, filePath string) (*entities.RecipeSources, error) {
	//nolint:gosec // G304: filePath is the sources file path from the repository
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	return p.Parse(name, data)
}

// Parse parses YAML bytes into RecipeSources
func (p *SourcesParser) Parse(name string, data []byte) (*entities.RecipeSources, error) {
	var raw yamlSources
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(raw.Sources) == 0 {
		return nil, fmt.Errorf("sources file for %s lists no versions", name)
	}

	sources := &entities.RecipeSources{
		Name:    name,
		Sources: make(map[string]entities.Source, len(raw.Sources)),
	}
	for version, src := range raw.Sources {
		if src.URL == "" && src.Git == "" {
			return nil, fmt.Errorf("version %s: url or git is required", version)
		}
		if src.URL != "" && src.SHA256 == "" {
			return nil, fmt.Errorf("version %s: sha256 is required for url sources", version)
		}
		sources.Sources[version] = convertSource(src)
	}

	return sources, nil
}

func convertSource(ys yamlSource) entities.Source {
	return entities.Source{
		URL:          ys.URL,
		SHA256:       ys.SHA256,
		SignatureURL: ys.SignatureURL,
		GPGKeysURL:   ys.GPGKeysURL,
		GPGKeyIDs:    ys.GPGKeyIDs,
		Git:          ys.Git,
		Ref:          ys.Ref,
	}
}
