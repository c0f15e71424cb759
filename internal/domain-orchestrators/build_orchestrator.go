// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ochairo/cauldron/internal/domain/entities"
	"github.com/ochairo/cauldron/internal/domain/interfaces"
	"github.com/ochairo/cauldron/internal/domain/interfaces/repositories"
	"github.com/ochairo/cauldron/internal/domain/services"
)

// RecipeRegistry looks up recipe implementations by name
type RecipeRegistry interface {
	Get(name string) (interfaces.Recipe, error)
}

// VersionResolver maps a requested version onto one listed in a sources file
type VersionResolver interface {
	Resolve(sources *entities.RecipeSources, requested string) (string, error)
}

// ToolboxFactory creates the recipe toolbox for a profile environment
type ToolboxFactory func(env map[string]string) interfaces.Toolbox

// ManifestWriter stores package metadata in a package folder
type ManifestWriter interface {
	Write(packageDir string, m *entities.PackageManifest) (string, error)
}

// CMakeGenerator writes CMake find modules for a package
type CMakeGenerator interface {
	Generate(packageDir string, m *entities.PackageManifest) ([]string, error)
}

// Packager interface for packaging a package folder into a distributable archive
type Packager interface {
	PackageArtifact(ctx context.Context, name, version, packageID, packageDir, outputDir string) (*entities.Artifact, error)
}

// SecurityArtifactsGenerator writes checksums and provenance for an archive
type SecurityArtifactsGenerator interface {
	GenerateAllArtifacts(ctx context.Context, tarballPath string, build services.BuildInfo) (*services.SecurityArtifacts, error)
}

// BuildOrchestrator coordinates the complete package build workflow
type BuildOrchestrator struct {
	registry  RecipeRegistry
	repo      repositories.RecipeRepository
	resolver  VersionResolver
	tools     ToolboxFactory
	manifests ManifestWriter
	cmake     CMakeGenerator
	packager  Packager
	security  SecurityArtifactsGenerator
	host      *entities.Settings
	buildDir  string
	outputDir string
	archive   bool
	logger    interfaces.Logger
}

// BuildOrchestratorConfig holds configuration for the orchestrator
type BuildOrchestratorConfig struct {
	// HostSettings are the detected settings profiles and overrides start from
	HostSettings *entities.Settings
	BuildDir     string
	OutputDir    string
	// SkipArchive leaves the package folder in place without a tarball
	SkipArchive bool
}

// BuildOrchestratorDeps are the collaborators of the orchestrator
type BuildOrchestratorDeps struct {
	Registry  RecipeRegistry
	Repo      repositories.RecipeRepository
	Resolver  VersionResolver
	Tools     ToolboxFactory
	Manifests ManifestWriter
	CMake     CMakeGenerator
	Packager  Packager
	Security  SecurityArtifactsGenerator
}

// NewBuildOrchestrator creates a new build orchestrator
func NewBuildOrchestrator(deps BuildOrchestratorDeps, config BuildOrchestratorConfig, logger interfaces.Logger) *BuildOrchestrator {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	buildDir := config.BuildDir
	if buildDir == "" {
		buildDir = "build"
	}
	// configure rejects a relative --prefix
	if abs, err := filepath.Abs(buildDir); err == nil {
		buildDir = abs
	}
	outputDir := config.OutputDir
	if outputDir == "" {
		outputDir = "dist"
	}
	host := config.HostSettings
	if host == nil {
		host = &entities.Settings{}
	}

	return &BuildOrchestrator{
		registry:  deps.Registry,
		repo:      deps.Repo,
		resolver:  deps.Resolver,
		tools:     deps.Tools,
		manifests: deps.Manifests,
		cmake:     deps.CMake,
		packager:  deps.Packager,
		security:  deps.Security,
		host:      host,
		buildDir:  buildDir,
		outputDir: outputDir,
		archive:   !config.SkipArchive,
		logger:    logger,
	}
}

// BuildRequest selects a recipe, a version and the configuration to build
type BuildRequest struct {
	Recipe string
	// Version is a listed version, a semver constraint, or empty for the newest
	Version string
	Profile *entities.Profile
}

// Plan is the resolved configuration of a build, computed without running it
type Plan struct {
	Recipe         string
	Version        string
	Source         entities.Source
	Settings       map[string]string
	Options        map[string]string
	IgnoredOptions []string
	Requires       []entities.Requirement
	BuildRequires  []entities.Requirement
	ConfigureArgs  []string
	PackageID      string
	Layout         entities.Layout

	recipe interfaces.Recipe
	rc     *interfaces.RecipeContext
}

// BuildResult contains the result of a build operation
type BuildResult struct {
	Plan           *Plan
	Manifest       *entities.PackageManifest
	ManifestPath   string
	CMakeFiles     []string
	Artifact       *entities.Artifact
	Security       *services.SecurityArtifacts
	SourceDuration time.Duration
	BuildDuration  time.Duration
	TotalDuration  time.Duration
	Success        bool
	Error          error
}

// Plan runs the configuration hooks and returns the resolved build without
// fetching or compiling anything
func (o *BuildOrchestrator) Plan(ctx context.Context, req BuildRequest) (*Plan, error) {
	recipe, err := o.registry.Get(req.Recipe)
	if err != nil {
		return nil, err
	}

	sources, err := o.repo.GetSources(ctx, req.Recipe)
	if err != nil {
		return nil, fmt.Errorf("failed to load sources: %w", err)
	}

	version, err := o.resolver.Resolve(sources, req.Version)
	if err != nil {
		return nil, err
	}

	profile := req.Profile
	if profile == nil {
		profile = &entities.Profile{}
	}

	settings, err := o.resolveSettings(profile.Settings)
	if err != nil {
		return nil, err
	}

	options, err := entities.NewOptions(recipe.OptionSchema())
	if err != nil {
		return nil, fmt.Errorf("recipe %s: %w", req.Recipe, err)
	}

	rc := &interfaces.RecipeContext{
		Name:     req.Recipe,
		Version:  version,
		Settings: settings,
		Options:  options,
		Sources:  sources,
		Logger:   o.logger,
	}

	recipe.ConfigOptions(rc)
	ignored, err := o.applyOptions(rc.Options, profile.Options)
	if err != nil {
		return nil, err
	}
	recipe.Configure(rc)

	plan := &Plan{
		Recipe:         req.Recipe,
		Version:        version,
		Settings:       rc.Settings.Values(),
		Options:        rc.Options.Values(),
		IgnoredOptions: ignored,
		Requires:       recipe.Requirements(rc),
		BuildRequires:  recipe.BuildRequirements(rc),
		recipe:         recipe,
		rc:             rc,
	}
	plan.Source, _ = rc.Source()
	plan.PackageID = entities.PackageID(plan.Settings, plan.Options)

	root := filepath.Join(o.buildDir, req.Recipe, version, plan.PackageID)
	rc.Layout = entities.Layout{
		SourceFolder:  filepath.Join(root, "source"),
		BuildFolder:   filepath.Join(root, "source"),
		PackageFolder: filepath.Join(root, "package"),
	}
	plan.Layout = rc.Layout

	if p, ok := recipe.(interfaces.ConfigureArgsProvider); ok {
		plan.ConfigureArgs = p.ConfigureArgs(rc)
	}

	o.logger.Debug("build planned",
		interfaces.F("recipe", plan.Recipe),
		interfaces.F("version", plan.Version),
		interfaces.F("package_id", plan.PackageID))
	return plan, nil
}

// resolveSettings starts from the host settings and applies overrides in key order
func (o *BuildOrchestrator) resolveSettings(overrides map[string]string) (*entities.Settings, error) {
	settings := o.host.Clone()
	for _, key := range sortedKeys(overrides) {
		if err := settings.Set(key, overrides[key]); err != nil {
			return nil, err
		}
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// applyOptions sets user option values. Values for options the recipe
// removed are ignored and reported.
func (o *BuildOrchestrator) applyOptions(options *entities.Options, overrides map[string]string) ([]string, error) {
	var ignored []string
	for _, name := range sortedKeys(overrides) {
		if options.IsRemoved(name) {
			o.logger.Debug("ignoring value for removed option", interfaces.F("option", name))
			ignored = append(ignored, name)
			continue
		}
		if err := options.Set(name, overrides[name]); err != nil {
			return nil, err
		}
	}
	return ignored, nil
}

// BuildPackage executes the complete build workflow for a package
func (o *BuildOrchestrator) BuildPackage(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	startTime := time.Now()
	result := &BuildResult{}

	fail := func(err error) (*BuildResult, error) {
		result.Error = err
		result.TotalDuration = time.Since(startTime)
		return result, err
	}

	// Step 1: Resolve the configuration
	plan, err := o.Plan(ctx, req)
	if err != nil {
		return fail(err)
	}
	result.Plan = plan
	recipe, rc := plan.recipe, plan.rc

	var env map[string]string
	if req.Profile != nil {
		env = req.Profile.Env
	}
	rc.Tools = o.tools(env)

	o.logger.Info("building package",
		interfaces.F("recipe", plan.Recipe),
		interfaces.F("version", plan.Version),
		interfaces.F("package_id", plan.PackageID))

	if err := resetDir(rc.Layout.SourceFolder); err != nil {
		return fail(err)
	}
	if err := resetDir(rc.Layout.PackageFolder); err != nil {
		return fail(err)
	}

	// Step 2: Fetch sources
	sourceStart := time.Now()
	if err := recipe.Source(ctx, rc); err != nil {
		return fail(fmt.Errorf("source failed: %w", err))
	}
	result.SourceDuration = time.Since(sourceStart)

	// Step 3: Build
	buildStart := time.Now()
	if err := recipe.Build(ctx, rc); err != nil {
		return fail(fmt.Errorf("build failed: %w", err))
	}
	result.BuildDuration = time.Since(buildStart)

	// Step 4: Install into the package folder
	if err := recipe.Package(ctx, rc); err != nil {
		return fail(fmt.Errorf("package failed: %w", err))
	}

	// Step 5: Export metadata
	info := entities.NewCppInfo()
	recipe.PackageInfo(rc, info)

	manifest := &entities.PackageManifest{
		Name:          plan.Recipe,
		Version:       plan.Version,
		PackageID:     plan.PackageID,
		License:       recipe.Metadata().License,
		Settings:      plan.Settings,
		Options:       plan.Options,
		Requires:      plan.Requires,
		BuildRequires: plan.BuildRequires,
		CppInfo:       info,
	}
	result.Manifest = manifest

	manifestPath, err := o.manifests.Write(rc.Layout.PackageFolder, manifest)
	if err != nil {
		return fail(err)
	}
	result.ManifestPath = manifestPath

	cmakeFiles, err := o.cmake.Generate(rc.Layout.PackageFolder, manifest)
	if err != nil {
		return fail(fmt.Errorf("failed to generate CMake files: %w", err))
	}
	result.CMakeFiles = cmakeFiles

	result.Artifact = &entities.Artifact{
		Name:      plan.Recipe,
		Version:   plan.Version,
		PackageID: plan.PackageID,
		Path:      rc.Layout.PackageFolder,
		Type:      "package",
	}

	// Step 6: Archive and attest
	if o.archive {
		archived, err := o.packager.PackageArtifact(ctx, plan.Recipe, plan.Version, plan.PackageID, rc.Layout.PackageFolder, o.outputDir)
		if err != nil {
			return fail(fmt.Errorf("packaging failed: %w", err))
		}
		result.Artifact = archived

		security, err := o.security.GenerateAllArtifacts(ctx, archived.Path, services.BuildInfo{
			Manifest:  manifest,
			Source:    plan.Source,
			StartedOn: startTime,
		})
		if err != nil {
			return fail(err)
		}
		result.Security = security
	}

	result.Success = true
	result.TotalDuration = time.Since(startTime)
	o.logger.Info("package built", interfaces.F("path", result.Artifact.Path), interfaces.F("duration", result.TotalDuration))
	return result, nil
}

// GetBuildSummary returns a human-readable summary of the build
func (r *BuildResult) GetBuildSummary() string {
	if !r.Success {
		return fmt.Sprintf("Build failed: %v", r.Error)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Build successful!\n")
	fmt.Fprintf(&b, "Package: %s/%s\n", r.Plan.Recipe, r.Plan.Version)
	fmt.Fprintf(&b, "Package ID: %s\n", r.Plan.PackageID)
	fmt.Fprintf(&b, "Output: %s\n", r.Artifact.Path)
	fmt.Fprintf(&b, "Source: %v\n", r.SourceDuration)
	fmt.Fprintf(&b, "Build: %v\n", r.BuildDuration)
	fmt.Fprintf(&b, "Total: %v", r.TotalDuration)

	if r.Security != nil {
		fmt.Fprintf(&b, "\n\nChecksums: %s, %s", filepath.Base(r.Security.SHA256Path), filepath.Base(r.Security.SHA512Path))
		fmt.Fprintf(&b, "\nProvenance: %s (build %s)", filepath.Base(r.Security.ProvenancePath), r.Security.BuildID)
	}
	return b.String()
}

func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clean %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
