package yaml

import (
	"fmt"
	"os"

	"github.com/ochairo/cauldron/internal/domain/entities"
	"gopkg.in/yaml.v3"
)

// yamlProfile represents a profile file
type yamlProfile struct {
	Settings map[string]string `yaml:"settings"`
	Options  map[string]string `yaml:"options"`
	Env      map[string]string `yaml:"env"`
}

// ProfileParser parses build profile files
type ProfileParser struct{}

// NewProfileParser creates a new profile parser
func NewProfileParser() *ProfileParser {
	return &ProfileParser{}
}

// ParseFile parses a profile file
func (p *ProfileParser) ParseFile(filePath string) (*entities.Profile, error) {
	//nolint:gosec // G304: profile path is provided by the user
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", filePath, err)
	}

	return p.Parse(data)
}

// Parse parses YAML bytes into a Profile
func (p *ProfileParser) Parse(data []byte) (*entities.Profile, error) {
	var raw yamlProfile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}

	return &entities.Profile{
		Settings: raw.Settings,
		Options:  raw.Options,
		Env:      raw.Env,
	}, nil
}
