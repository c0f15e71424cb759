package yaml

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ochairo/cauldron/internal/domain/entities"
	"gopkg.in/yaml.v3"
)

// ManifestFileName is written at the root of every package folder
const ManifestFileName = "package-info.yml"

type yamlManifest struct {
	Name          string            `yaml:"name"`
	Version       string            `yaml:"version"`
	PackageID     string            `yaml:"package_id"`
	License       string            `yaml:"license,omitempty"`
	Settings      map[string]string `yaml:"settings"`
	Options       map[string]string `yaml:"options"`
	Requires      []string          `yaml:"requires,omitempty"`
	BuildRequires []string          `yaml:"build_requires,omitempty"`
	CppInfo       yamlCppInfo       `yaml:"cpp_info"`
}

type yamlCppInfo struct {
	Names       map[string]string `yaml:"names,omitempty"`
	Libs        []string          `yaml:"libs,omitempty"`
	IncludeDirs []string          `yaml:"includedirs,omitempty"`
	LibDirs     []string          `yaml:"libdirs,omitempty"`
	BinDirs     []string          `yaml:"bindirs,omitempty"`
	Defines     []string          `yaml:"defines,omitempty"`
	SystemLibs  []string          `yaml:"system_libs,omitempty"`
}

// ManifestWriter writes and reads package manifests
type ManifestWriter struct{}

// NewManifestWriter creates a new manifest writer
func NewManifestWriter() *ManifestWriter {
	return &ManifestWriter{}
}

// Write stores the manifest as package-info.yml in packageDir
func (w *ManifestWriter) Write(packageDir string, m *entities.PackageManifest) (string, error) {
	raw := yamlManifest{
		Name:          m.Name,
		Version:       m.Version,
		PackageID:     m.PackageID,
		License:       m.License,
		Settings:      m.Settings,
		Options:       m.Options,
		Requires:      refs(m.Requires),
		BuildRequires: refs(m.BuildRequires),
	}
	if m.CppInfo != nil {
		raw.CppInfo = yamlCppInfo{
			Names:       m.CppInfo.Names,
			Libs:        m.CppInfo.Libs,
			IncludeDirs: m.CppInfo.IncludeDirs,
			LibDirs:     m.CppInfo.LibDirs,
			BinDirs:     m.CppInfo.BinDirs,
			Defines:     m.CppInfo.Defines,
			SystemLibs:  m.CppInfo.SystemLibs,
		}
	}

	data, err := yaml.Marshal(&raw)
	if err != nil {
		return "", fmt.Errorf("failed to marshal manifest: %w", err)
	}

	path := filepath.Join(packageDir, ManifestFileName)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	return path, nil
}

// Read loads a package manifest from packageDir
func (w *ManifestWriter) Read(packageDir string) (*entities.PackageManifest, error) {
	//nolint:gosec // G304: manifest path is inside a package folder
	data, err := os.ReadFile(filepath.Join(packageDir, ManifestFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var raw yamlManifest
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	m := &entities.PackageManifest{
		Name:      raw.Name,
		Version:   raw.Version,
		PackageID: raw.PackageID,
		License:   raw.License,
		Settings:  raw.Settings,
		Options:   raw.Options,
		CppInfo: &entities.CppInfo{
			Names:       raw.CppInfo.Names,
			Libs:        raw.CppInfo.Libs,
			IncludeDirs: raw.CppInfo.IncludeDirs,
			LibDirs:     raw.CppInfo.LibDirs,
			BinDirs:     raw.CppInfo.BinDirs,
			Defines:     raw.CppInfo.Defines,
			SystemLibs:  raw.CppInfo.SystemLibs,
		},
	}
	for _, ref := range raw.Requires {
		req, err := entities.ParseRequirement(ref)
		if err != nil {
			return nil, err
		}
		m.Requires = append(m.Requires, req)
	}
	for _, ref := range raw.BuildRequires {
		req, err := entities.ParseRequirement(ref)
		if err != nil {
			return nil, err
		}
		m.BuildRequires = append(m.BuildRequires, req)
	}
	return m, nil
}

func refs(reqs []entities.Requirement) []string {
	if len(reqs) == 0 {
		return nil
	}
	out := make([]string, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.String())
	}
	return out
}
