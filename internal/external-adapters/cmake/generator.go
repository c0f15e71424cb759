// Package cmake writes CMake find modules and package config files for
// built packages.
package cmake

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

const targetBody = `
set({{.Name}}_VERSION "{{.Version}}")
set({{.Name}}_INCLUDE_DIRS{{range .IncludeDirs}} "${_{{$.Name}}_PREFIX}/{{.}}"{{end}})
set({{.Name}}_LIB_DIRS{{range .LibDirs}} "${_{{$.Name}}_PREFIX}/{{.}}"{{end}})
set({{.Name}}_DEFINITIONS{{range .Defines}} "{{.}}"{{end}})
set({{.Name}}_LIBRARIES "")
foreach(_lib{{range .Libs}} {{.}}{{end}})
  find_library(_{{.Name}}_${_lib}_PATH NAMES ${_lib} PATHS ${ {{- .Name}}_LIB_DIRS} NO_DEFAULT_PATH)
  if(_{{.Name}}_${_lib}_PATH)
    list(APPEND {{.Name}}_LIBRARIES "${_{{.Name}}_${_lib}_PATH}")
  endif()
endforeach()
list(APPEND {{.Name}}_LIBRARIES{{range .SystemLibs}} {{.}}{{end}})
`

const targetDefinition = `
if(NOT TARGET {{.Name}}::{{.Name}})
  add_library({{.Name}}::{{.Name}} INTERFACE IMPORTED)
  set_target_properties({{.Name}}::{{.Name}} PROPERTIES
    INTERFACE_INCLUDE_DIRECTORIES "${ {{- .Name}}_INCLUDE_DIRS}"
    INTERFACE_LINK_LIBRARIES "${ {{- .Name}}_LIBRARIES}"
    INTERFACE_COMPILE_DEFINITIONS "${ {{- .Name}}_DEFINITIONS}")
endif()
`

var findModule = template.Must(template.New("find").Parse(`# Generated by cauldron for {{.Package}} {{.RawVersion}}
get_filename_component(_{{.Name}}_PREFIX "${CMAKE_CURRENT_LIST_DIR}/{{.PrefixRel}}" ABSOLUTE)
` + targetBody + `
include(FindPackageHandleStandardArgs)
find_package_handle_standard_args({{.Name}}
  REQUIRED_VARS {{.Name}}_INCLUDE_DIRS {{.Name}}_LIBRARIES
  VERSION_VAR {{.Name}}_VERSION)

if({{.Name}}_FOUND)` + targetDefinition + `endif()
`))

var configFile = template.Must(template.New("config").Parse(`# Generated by cauldron for {{.Package}} {{.RawVersion}}
get_filename_component(_{{.Name}}_PREFIX "${CMAKE_CURRENT_LIST_DIR}/{{.PrefixRel}}" ABSOLUTE)
` + targetBody + targetDefinition + `
set({{.Name}}_FOUND TRUE)
`))

var versionFile = template.Must(template.New("version").Parse(`# Generated by cauldron for {{.Package}} {{.RawVersion}}
set(PACKAGE_VERSION "{{.Version}}")

if(PACKAGE_FIND_VERSION VERSION_GREATER PACKAGE_VERSION)
  set(PACKAGE_VERSION_COMPATIBLE FALSE)
else()
  set(PACKAGE_VERSION_COMPATIBLE TRUE)
  if(PACKAGE_FIND_VERSION STREQUAL PACKAGE_VERSION)
    set(PACKAGE_VERSION_EXACT TRUE)
  endif()
endif()
`))

type templateData struct {
	Package     string
	Name        string
	Version     string
	RawVersion  string
	PrefixRel   string
	IncludeDirs []string
	LibDirs     []string
	Libs        []string
	Defines     []string
	SystemLibs  []string
}

// Generator writes CMake files describing a package
type Generator struct{}

// NewGenerator creates a new generator
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate writes cmake/Find<Name>.cmake and lib/cmake/<Name>/<Name>Config.cmake
// (plus its version file) into packageDir and returns the written paths
func (g *Generator) Generate(packageDir string, m *entities.PackageManifest) ([]string, error) {
	info := m.CppInfo
	if info == nil {
		info = entities.NewCppInfo()
	}

	base := templateData{
		Package:     m.Name,
		Version:     cmakeVersion(m.Version),
		RawVersion:  m.Version,
		IncludeDirs: slashed(info.IncludeDirs),
		LibDirs:     slashed(info.LibDirs),
		Libs:        info.Libs,
		Defines:     info.Defines,
		SystemLibs:  info.SystemLibs,
	}

	findData := base
	findData.Name = info.Name(entities.GeneratorCMakeFindPackage, m.Name)
	findData.PrefixRel = ".."

	multiData := base
	multiData.Name = info.Name(entities.GeneratorCMakeFindPackageMulti, m.Name)
	multiData.PrefixRel = "../../.."

	configDir := filepath.Join("lib", "cmake", multiData.Name)
	files := []struct {
		rel  string
		tmpl *template.Template
		data templateData
	}{
		{filepath.Join("cmake", "Find"+findData.Name+".cmake"), findModule, findData},
		{filepath.Join(configDir, multiData.Name+"Config.cmake"), configFile, multiData},
		{filepath.Join(configDir, multiData.Name+"ConfigVersion.cmake"), versionFile, multiData},
	}

	written := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(packageDir, f.rel)
		if err := render(path, f.tmpl, f.data); err != nil {
			return nil, err
		}
		written = append(written, path)
	}
	return written, nil
}

func render(path string, tmpl *template.Template, data templateData) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// cmakeVersion turns "2.1-3" into "2.1.3", which VERSION_GREATER understands
func cmakeVersion(v string) string {
	return strings.ReplaceAll(v, "-", ".")
}

func slashed(dirs []string) []string {
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		out = append(out, filepath.ToSlash(d))
	}
	return out
}
