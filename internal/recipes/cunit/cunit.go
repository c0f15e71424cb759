// Package cunit provides the recipe for CUnit, a unit testing framework for C.
package cunit

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ochairo/cauldron/internal/domain/entities"
	"github.com/ochairo/cauldron/internal/domain/interfaces"
)

// Name is the recipe name
const Name = "cunit"

const sourceSubfolder = "source_subfolder"

// Option names
const (
	OptShared          = "shared"
	OptFPIC            = "fPIC"
	OptEnableAutomated = "enable_automated"
	OptEnableBasic     = "enable_basic"
	OptEnableConsole   = "enable_console"
	OptWithCurses      = "with_curses"
)

// CursesNcurses is the non-default with_curses backend
const CursesNcurses = "ncurses"

var (
	ncursesRequirement = entities.MustRequirement("ncurses/6.2")
	libtoolRequirement = entities.MustRequirement("libtool/2.4.6")
)

// Recipe builds CUnit with autotools
type Recipe struct{}

// New creates the CUnit recipe
func New() *Recipe {
	return &Recipe{}
}

// Metadata returns the recipe description
func (r *Recipe) Metadata() entities.RecipeMetadata {
	return entities.RecipeMetadata{
		Name:        Name,
		Description: "A Unit Testing Framework for C",
		Topics:      []string{"cunit", "testing"},
		URL:         "https://github.com/ochairo/cauldron",
		Homepage:    "http://cunit.sourceforge.net/",
		License:     "BSD-3-Clause",
		Settings:    []string{"os", "compiler", "build_type", "arch"},
	}
}

// OptionSchema returns the configurable options and their defaults
func (r *Recipe) OptionSchema() []entities.OptionDef {
	return []entities.OptionDef{
		{Name: OptShared, Values: entities.BoolValues, Default: entities.False},
		{Name: OptFPIC, Values: entities.BoolValues, Default: entities.True},
		{Name: OptEnableAutomated, Values: entities.BoolValues, Default: entities.True},
		{Name: OptEnableBasic, Values: entities.BoolValues, Default: entities.True},
		{Name: OptEnableConsole, Values: entities.BoolValues, Default: entities.True},
		{Name: OptWithCurses, Values: []string{entities.False, CursesNcurses}, Default: entities.False},
	}
}

// ConfigOptions drops fPIC where it has no meaning
func (r *Recipe) ConfigOptions(rc *interfaces.RecipeContext) {
	if rc.Settings.OS == "Windows" {
		rc.Options.Remove(OptFPIC)
	}
}

// Configure removes the C++ settings (CUnit is pure C) and fPIC for shared builds
func (r *Recipe) Configure(rc *interfaces.RecipeContext) {
	rc.Settings.Remove("compiler.libcxx")
	rc.Settings.Remove("compiler.cppstd")
	if rc.Options.Bool(OptShared) {
		rc.Options.Remove(OptFPIC)
	}
}

// Requirements declares ncurses when the curses interface is enabled
func (r *Recipe) Requirements(rc *interfaces.RecipeContext) []entities.Requirement {
	if rc.Options.Get(OptWithCurses) == CursesNcurses {
		return []entities.Requirement{ncursesRequirement}
	}
	return nil
}

// BuildRequirements declares the tools autoreconf needs
func (r *Recipe) BuildRequirements(_ *interfaces.RecipeContext) []entities.Requirement {
	return []entities.Requirement{libtoolRequirement}
}

// Source fetches the release archive and normalises the extracted tree
func (r *Recipe) Source(ctx context.Context, rc *interfaces.RecipeContext) error {
	src, ok := rc.Source()
	if !ok {
		return fmt.Errorf("no source for %s version %s", Name, rc.Version)
	}
	if err := rc.Tools.Get(ctx, src, rc.Layout.SourceFolder); err != nil {
		return err
	}

	extracted := filepath.Join(rc.Layout.SourceFolder, ArchiveFolder(rc.Version))
	if err := rc.Tools.Rename(extracted, r.sourceDir(rc)); err != nil {
		return err
	}

	// Release tarballs ship the top-level sources executable
	return rc.Tools.Chmod(r.sourceDir(rc), "*.c", 0o644)
}

// Build regenerates the autotools files, configures and compiles
func (r *Recipe) Build(ctx context.Context, rc *interfaces.RecipeContext) error {
	dir := r.sourceDir(rc)
	if err := rc.Tools.Run(ctx, dir, AutoreconfCommand); err != nil {
		return err
	}

	at, err := r.configureAutotools(ctx, rc)
	if err != nil {
		return err
	}
	return at.Make(ctx, dir)
}

// Package installs into the package folder and removes what consumers do not need
func (r *Recipe) Package(ctx context.Context, rc *interfaces.RecipeContext) error {
	pkg := rc.Layout.PackageFolder
	if _, err := rc.Tools.Copy("COPYING", r.sourceDir(rc), filepath.Join(pkg, "licenses")); err != nil {
		return err
	}

	at, err := r.configureAutotools(ctx, rc)
	if err != nil {
		return err
	}
	if err := at.Install(ctx, r.sourceDir(rc)); err != nil {
		return err
	}

	if err := rc.Tools.Unlink(filepath.Join(pkg, "lib", "libcunit.la")); err != nil {
		return err
	}
	for _, dir := range ExcludedPackageDirs {
		if err := rc.Tools.Rmdir(filepath.Join(pkg, dir)); err != nil {
			return err
		}
	}
	return nil
}

// PackageInfo exports the library name and CMake package names
func (r *Recipe) PackageInfo(_ *interfaces.RecipeContext, info *entities.CppInfo) {
	info.Names[entities.GeneratorCMakeFindPackage] = "CUnit"
	info.Names[entities.GeneratorCMakeFindPackageMulti] = "CUnit"
	info.Libs = []string{"cunit"}
}

// ExcludedPackageDirs are removed from the package folder after install
var ExcludedPackageDirs = []string{
	filepath.Join("bin", "share", "man"),
	"doc",
	filepath.Join("lib", "pkgconfig"),
}

// ConfigureArgs translates settings and options into configure flags
func (r *Recipe) ConfigureArgs(rc *interfaces.RecipeContext) []string {
	datarootdir := filepath.ToSlash(filepath.Join(rc.Layout.PackageFolder, "bin", "share"))

	args := []string{
		"--datarootdir=" + datarootdir,
		enableFlag("debug", rc.Settings.BuildType == "Debug"),
		enableFlag("automated", rc.Options.Bool(OptEnableAutomated)),
		enableFlag("basic", rc.Options.Bool(OptEnableBasic)),
		enableFlag("console", rc.Options.Bool(OptEnableConsole)),
		enableFlag("curses", rc.Options.Get(OptWithCurses) != entities.False),
	}
	if rc.Options.Bool(OptShared) {
		args = append(args, "--enable-shared", "--disable-static")
	} else {
		args = append(args, "--disable-shared", "--enable-static")
	}
	return args
}

// configureAutotools runs configure in the source tree. It is run again
// before install so the package step does not depend on build state.
func (r *Recipe) configureAutotools(ctx context.Context, rc *interfaces.RecipeContext) (interfaces.AutotoolsBuild, error) {
	at := rc.Tools.Autotools(rc)
	at.SetLibs(nil)
	if err := at.Configure(ctx, r.sourceDir(rc), r.ConfigureArgs(rc)); err != nil {
		return nil, err
	}
	return at, nil
}

func (r *Recipe) sourceDir(rc *interfaces.RecipeContext) string {
	return filepath.Join(rc.Layout.SourceFolder, sourceSubfolder)
}

// ArchiveFolder returns the top-level folder of a release archive:
// the last "." of the version becomes "-" ("2.1-3" -> "CUnit-2-1-3").
func ArchiveFolder(version string) string {
	if i := strings.LastIndex(version, "."); i >= 0 {
		version = version[:i] + "-" + version[i+1:]
	}
	return "CUnit-" + version
}

func enableFlag(feature string, enabled bool) string {
	if enabled {
		return "--enable-" + feature
	}
	return "--disable-" + feature
}

// AutoreconfCommand is expanded by the shell, so $AUTORECONF may come from
// the process or the profile environment
const AutoreconfCommand = "${AUTORECONF:-autoreconf} -fiv"
