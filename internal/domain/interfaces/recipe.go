package interfaces

import (
	"context"
	"io/fs"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

// Recipe describes how to obtain, build and package one library.
// The host calls the hooks in declaration order, once per build.
type Recipe interface {
	Metadata() entities.RecipeMetadata
	OptionSchema() []entities.OptionDef

	// ConfigOptions runs before user option values are applied
	ConfigOptions(rc *RecipeContext)
	// Configure runs after user option values are applied
	Configure(rc *RecipeContext)

	Requirements(rc *RecipeContext) []entities.Requirement
	BuildRequirements(rc *RecipeContext) []entities.Requirement

	Source(ctx context.Context, rc *RecipeContext) error
	Build(ctx context.Context, rc *RecipeContext) error
	Package(ctx context.Context, rc *RecipeContext) error
	PackageInfo(rc *RecipeContext, info *entities.CppInfo)
}

// ConfigureArgsProvider is implemented by recipes that can report their
// configure arguments without building
type ConfigureArgsProvider interface {
	ConfigureArgs(rc *RecipeContext) []string
}

// RecipeContext is the state a recipe's hooks read and mutate
type RecipeContext struct {
	Name     string
	Version  string
	Settings *entities.Settings
	Options  *entities.Options
	Sources  *entities.RecipeSources
	Layout   entities.Layout
	Tools    Toolbox
	Logger   Logger
}

// Source returns the source entry for the version being built
func (rc *RecipeContext) Source() (entities.Source, bool) {
	if rc.Sources == nil {
		return entities.Source{}, false
	}
	src, ok := rc.Sources.Sources[rc.Version]
	return src, ok
}

// Toolbox is the set of external tools and filesystem primitives a recipe uses.
// Every failure is returned unchanged to the host.
type Toolbox interface {
	// Get downloads, verifies and extracts src into destDir
	Get(ctx context.Context, src entities.Source, destDir string) error

	// Run executes a shell command line in dir
	Run(ctx context.Context, dir, command string) error

	// Autotools returns a fresh autotools build environment for rc
	Autotools(rc *RecipeContext) AutotoolsBuild

	// Copy copies files matching pattern from srcDir into dstDir
	Copy(pattern, srcDir, dstDir string) ([]string, error)

	Rename(oldPath, newPath string) error

	// Chmod sets mode on the files directly in dir matching pattern
	Chmod(dir, pattern string, mode fs.FileMode) error

	// Rmdir removes a directory tree; a missing directory is not an error
	Rmdir(path string) error

	// Unlink removes a single file; a missing file is an error
	Unlink(path string) error
}

// AutotoolsBuild drives configure and make in a source tree
type AutotoolsBuild interface {
	SetLibs(libs []string)
	Configure(ctx context.Context, dir string, args []string) error
	Make(ctx context.Context, dir string, targets ...string) error
	Install(ctx context.Context, dir string) error
}
