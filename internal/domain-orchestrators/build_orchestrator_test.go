package orchestrators

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ochairo/cauldron/internal/domain-adapters/gateways"
	"github.com/ochairo/cauldron/internal/domain/entities"
	"github.com/ochairo/cauldron/internal/domain/interfaces"
	"github.com/ochairo/cauldron/internal/domain/services"
	"github.com/ochairo/cauldron/internal/recipes"
	"github.com/ochairo/cauldron/internal/recipes/cunit"
)

// Mock implementations for testing
type mockRecipeRepository struct {
	sources *entities.RecipeSources
	err     error
}

func (m *mockRecipeRepository) GetSources(_ context.Context, _ string) (*entities.RecipeSources, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.sources, nil
}

func (m *mockRecipeRepository) ListRecipes(_ context.Context) ([]string, error) {
	return nil, errors.New("not implemented")
}

type mockRegistry struct {
	recipe interfaces.Recipe
}

func (m *mockRegistry) Get(name string) (interfaces.Recipe, error) {
	if m.recipe == nil {
		return nil, recipes.ErrRecipeNotFound
	}
	return m.recipe, nil
}

// recordingRecipe records the order its hooks are called in
type recordingRecipe struct {
	calls     []string
	sourceErr error
	buildErr  error
}

func (r *recordingRecipe) record(hook string) { r.calls = append(r.calls, hook) }

func (r *recordingRecipe) Metadata() entities.RecipeMetadata {
	return entities.RecipeMetadata{Name: "demo", License: "MIT"}
}

func (r *recordingRecipe) OptionSchema() []entities.OptionDef {
	return []entities.OptionDef{
		{Name: "shared", Values: entities.BoolValues, Default: entities.False},
		{Name: "fPIC", Values: entities.BoolValues, Default: entities.True},
	}
}

func (r *recordingRecipe) ConfigOptions(_ *interfaces.RecipeContext) { r.record("config_options") }

func (r *recordingRecipe) Configure(rc *interfaces.RecipeContext) {
	r.record("configure")
	if rc.Options.Bool("shared") {
		rc.Options.Remove("fPIC")
	}
}

func (r *recordingRecipe) Requirements(_ *interfaces.RecipeContext) []entities.Requirement {
	r.record("requirements")
	return nil
}

func (r *recordingRecipe) BuildRequirements(_ *interfaces.RecipeContext) []entities.Requirement {
	r.record("build_requirements")
	return []entities.Requirement{entities.MustRequirement("make/4.3")}
}

func (r *recordingRecipe) Source(_ context.Context, rc *interfaces.RecipeContext) error {
	r.record("source")
	if r.sourceErr != nil {
		return r.sourceErr
	}
	return os.WriteFile(filepath.Join(rc.Layout.SourceFolder, "main.c"), []byte("int main;"), 0600)
}

func (r *recordingRecipe) Build(_ context.Context, _ *interfaces.RecipeContext) error {
	r.record("build")
	return r.buildErr
}

func (r *recordingRecipe) Package(_ context.Context, rc *interfaces.RecipeContext) error {
	r.record("package")
	if err := os.MkdirAll(filepath.Join(rc.Layout.PackageFolder, "lib"), 0750); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(rc.Layout.PackageFolder, "lib", "libdemo.a"), []byte("ar"), 0600)
}

func (r *recordingRecipe) PackageInfo(_ *interfaces.RecipeContext, info *entities.CppInfo) {
	r.record("package_info")
	info.Libs = []string{"demo"}
}

type mockResolver struct{}

func (m *mockResolver) Resolve(sources *entities.RecipeSources, requested string) (string, error) {
	return gateways.NewVersionResolver().Resolve(sources, requested)
}

type mockManifestWriter struct {
	written *entities.PackageManifest
	err     error
}

func (m *mockManifestWriter) Write(packageDir string, manifest *entities.PackageManifest) (string, error) {
	m.written = manifest
	return filepath.Join(packageDir, "package-info.yml"), m.err
}

type mockCMakeGenerator struct{}

func (m *mockCMakeGenerator) Generate(packageDir string, manifest *entities.PackageManifest) ([]string, error) {
	return []string{filepath.Join(packageDir, "cmake", "Find"+manifest.Name+".cmake")}, nil
}

type mockPackager struct {
	calls int
	err   error
}

func (m *mockPackager) PackageArtifact(_ context.Context, name, version, packageID, _, outputDir string) (*entities.Artifact, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &entities.Artifact{
		Name:      name,
		Version:   version,
		PackageID: packageID,
		Path:      filepath.Join(outputDir, gateways.ArchiveName(name, version, packageID)),
		Type:      "archive",
	}, nil
}

type mockSecurity struct {
	build services.BuildInfo
}

func (m *mockSecurity) GenerateAllArtifacts(_ context.Context, tarballPath string, build services.BuildInfo) (*services.SecurityArtifacts, error) {
	m.build = build
	return &services.SecurityArtifacts{
		SHA256Path:     tarballPath + ".sha256",
		SHA512Path:     tarballPath + ".sha512",
		ProvenancePath: tarballPath + ".provenance.json",
		BuildID:        "build-1",
	}, nil
}

type nopTools struct{}

func (nopTools) Get(context.Context, entities.Source, string) error { return nil }

func (nopTools) Run(context.Context, string, string) error { return nil }

func (nopTools) Autotools(*interfaces.RecipeContext) interfaces.AutotoolsBuild { return nil }

func (nopTools) Copy(string, string, string) ([]string, error) { return nil, nil }

func (nopTools) Rename(string, string) error { return nil }

func (nopTools) Chmod(string, string, fs.FileMode) error { return nil }

func (nopTools) Rmdir(string) error { return nil }

func (nopTools) Unlink(string) error { return nil }

func demoSources() *entities.RecipeSources {
	return &entities.RecipeSources{
		Name: "demo",
		Sources: map[string]entities.Source{
			"1.0": {URL: "https://example.com/demo-1.0.tar.gz", SHA256: "aa"},
			"1.2": {URL: "https://example.com/demo-1.2.tar.gz", SHA256: "bb"},
		},
	}
}

func hostSettings() *entities.Settings {
	return &entities.Settings{
		OS:        "Linux",
		Arch:      "x86_64",
		BuildType: "Release",
		Compiler:  entities.CompilerSettings{Name: "gcc", Version: "11"},
	}
}

type fixture struct {
	recipe    *recordingRecipe
	manifests *mockManifestWriter
	packager  *mockPackager
	security  *mockSecurity
	orch      *BuildOrchestrator
	buildDir  string
}

func newFixture(t *testing.T, config BuildOrchestratorConfig) *fixture {
	t.Helper()
	f := &fixture{
		recipe:    &recordingRecipe{},
		manifests: &mockManifestWriter{},
		packager:  &mockPackager{},
		security:  &mockSecurity{},
		buildDir:  t.TempDir(),
	}
	config.BuildDir = f.buildDir
	config.HostSettings = hostSettings()
	f.orch = NewBuildOrchestrator(BuildOrchestratorDeps{
		Registry:  &mockRegistry{recipe: f.recipe},
		Repo:      &mockRecipeRepository{sources: demoSources()},
		Resolver:  &mockResolver{},
		Tools:     func(map[string]string) interfaces.Toolbox { return nopTools{} },
		Manifests: f.manifests,
		CMake:     &mockCMakeGenerator{},
		Packager:  f.packager,
		Security:  f.security,
	}, config, nil)
	return f
}

// Test successful build workflow
func TestBuildOrchestrator_BuildPackage_Success(t *testing.T) {
	f := newFixture(t, BuildOrchestratorConfig{OutputDir: "dist"})

	result, err := f.orch.BuildPackage(context.Background(), BuildRequest{Recipe: "demo"})
	if err != nil {
		t.Fatalf("Expected successful build, got error: %v", err)
	}
	if !result.Success {
		t.Error("Expected Success = true")
	}

	wantCalls := []string{
		"config_options", "configure", "requirements", "build_requirements",
		"source", "build", "package", "package_info",
	}
	if !reflect.DeepEqual(f.recipe.calls, wantCalls) {
		t.Errorf("hook order = %v, want %v", f.recipe.calls, wantCalls)
	}

	if result.Plan.Version != "1.2" {
		t.Errorf("Version = %s, want newest 1.2", result.Plan.Version)
	}
	if result.Artifact.Type != "archive" || !strings.HasSuffix(result.Artifact.Path, ".tar.gz") {
		t.Errorf("Artifact = %+v", result.Artifact)
	}
	if result.Security == nil || result.Security.BuildID != "build-1" {
		t.Errorf("Security = %+v", result.Security)
	}
	if f.security.build.Source.URL != "https://example.com/demo-1.2.tar.gz" {
		t.Errorf("provenance source = %+v", f.security.build.Source)
	}

	m := f.manifests.written
	if m == nil || m.License != "MIT" || m.PackageID != result.Plan.PackageID {
		t.Fatalf("manifest = %+v", m)
	}
	if !reflect.DeepEqual(m.CppInfo.Libs, []string{"demo"}) {
		t.Errorf("CppInfo.Libs = %v", m.CppInfo.Libs)
	}
	if len(m.BuildRequires) != 1 || m.BuildRequires[0].Name != "make" {
		t.Errorf("BuildRequires = %v", m.BuildRequires)
	}

	wantLayout := filepath.Join(f.buildDir, "demo", "1.2", result.Plan.PackageID)
	if result.Plan.Layout.PackageFolder != filepath.Join(wantLayout, "package") {
		t.Errorf("PackageFolder = %s", result.Plan.Layout.PackageFolder)
	}
	if _, err := os.Stat(filepath.Join(wantLayout, "package", "lib", "libdemo.a")); err != nil {
		t.Errorf("package folder not populated: %v", err)
	}

	if summary := result.GetBuildSummary(); !strings.Contains(summary, "demo/1.2") {
		t.Errorf("summary = %s", summary)
	}
}

func TestBuildOrchestrator_BuildPackage_SkipArchive(t *testing.T) {
	f := newFixture(t, BuildOrchestratorConfig{SkipArchive: true})

	result, err := f.orch.BuildPackage(context.Background(), BuildRequest{Recipe: "demo", Version: "1.0"})
	if err != nil {
		t.Fatalf("BuildPackage() error = %v", err)
	}
	if f.packager.calls != 0 {
		t.Error("packager should not run when archiving is skipped")
	}
	if result.Artifact.Type != "package" || result.Artifact.Path != result.Plan.Layout.PackageFolder {
		t.Errorf("Artifact = %+v", result.Artifact)
	}
	if result.Security != nil {
		t.Error("no security artifacts without an archive")
	}
}

func TestBuildOrchestrator_BuildPackage_CleansPreviousBuild(t *testing.T) {
	f := newFixture(t, BuildOrchestratorConfig{SkipArchive: true})
	plan, err := f.orch.Plan(context.Background(), BuildRequest{Recipe: "demo"})
	if err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(plan.Layout.PackageFolder, "doc", "stale.html")
	if err := os.MkdirAll(filepath.Dir(stale), 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(stale, nil, 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := f.orch.BuildPackage(context.Background(), BuildRequest{Recipe: "demo"}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale files from a previous build should be removed")
	}
}

// Test recipe not found error
func TestBuildOrchestrator_RecipeNotFound(t *testing.T) {
	orch := NewBuildOrchestrator(BuildOrchestratorDeps{
		Registry: &mockRegistry{},
	}, BuildOrchestratorConfig{}, nil)

	_, err := orch.BuildPackage(context.Background(), BuildRequest{Recipe: "nonexistent"})
	if !errors.Is(err, recipes.ErrRecipeNotFound) {
		t.Fatalf("Expected ErrRecipeNotFound, got %v", err)
	}
}

func TestBuildOrchestrator_SourcesNotFound(t *testing.T) {
	orch := NewBuildOrchestrator(BuildOrchestratorDeps{
		Registry: &mockRegistry{recipe: &recordingRecipe{}},
		Repo:     &mockRecipeRepository{err: os.ErrNotExist},
	}, BuildOrchestratorConfig{}, nil)

	_, err := orch.Plan(context.Background(), BuildRequest{Recipe: "demo"})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Expected wrapped ErrNotExist, got %v", err)
	}
}

func TestBuildOrchestrator_UnknownVersion(t *testing.T) {
	f := newFixture(t, BuildOrchestratorConfig{})

	_, err := f.orch.Plan(context.Background(), BuildRequest{Recipe: "demo", Version: "9.9"})
	if !errors.Is(err, gateways.ErrVersionNotFound) {
		t.Fatalf("Expected ErrVersionNotFound, got %v", err)
	}
}

func TestBuildOrchestrator_InvalidSettingsAndOptions(t *testing.T) {
	f := newFixture(t, BuildOrchestratorConfig{})
	ctx := context.Background()

	_, err := f.orch.Plan(ctx, BuildRequest{Recipe: "demo", Profile: &entities.Profile{
		Settings: map[string]string{"os": "Plan9"},
	}})
	if !errors.Is(err, entities.ErrInvalidSetting) {
		t.Errorf("Expected ErrInvalidSetting, got %v", err)
	}

	_, err = f.orch.Plan(ctx, BuildRequest{Recipe: "demo", Profile: &entities.Profile{
		Options: map[string]string{"shared": "maybe"},
	}})
	if !errors.Is(err, entities.ErrInvalidOptionValue) {
		t.Errorf("Expected ErrInvalidOptionValue, got %v", err)
	}

	_, err = f.orch.Plan(ctx, BuildRequest{Recipe: "demo", Profile: &entities.Profile{
		Options: map[string]string{"with_python": "True"},
	}})
	if !errors.Is(err, entities.ErrUnknownOption) {
		t.Errorf("Expected ErrUnknownOption, got %v", err)
	}
}

// Test build failure
func TestBuildOrchestrator_BuildFailure(t *testing.T) {
	f := newFixture(t, BuildOrchestratorConfig{})
	f.recipe.buildErr = errors.New("make: *** [all] Error 2")

	result, err := f.orch.BuildPackage(context.Background(), BuildRequest{Recipe: "demo"})
	if err == nil {
		t.Fatal("Expected error for build failure, got nil")
	}
	if !strings.Contains(err.Error(), "build failed") || !errors.Is(err, f.recipe.buildErr) {
		t.Errorf("error = %v", err)
	}
	if result.Success || result.Error == nil {
		t.Errorf("result = %+v", result)
	}
	if f.packager.calls != 0 {
		t.Error("packager must not run after a failed build")
	}
	if summary := result.GetBuildSummary(); !strings.HasPrefix(summary, "Build failed") {
		t.Errorf("summary = %s", summary)
	}
}

func TestBuildOrchestrator_SourceFailure(t *testing.T) {
	f := newFixture(t, BuildOrchestratorConfig{})
	f.recipe.sourceErr = errors.New("checksum mismatch")

	_, err := f.orch.BuildPackage(context.Background(), BuildRequest{Recipe: "demo"})
	if err == nil || !strings.Contains(err.Error(), "source failed") {
		t.Fatalf("error = %v", err)
	}
	for _, call := range f.recipe.calls {
		if call == "build" {
			t.Error("build must not run after a failed source step")
		}
	}
}

// Test packaging failure
func TestBuildOrchestrator_PackagingFailure(t *testing.T) {
	f := newFixture(t, BuildOrchestratorConfig{})
	f.packager.err = errors.New("disk full")

	_, err := f.orch.BuildPackage(context.Background(), BuildRequest{Recipe: "demo"})
	if err == nil || !strings.Contains(err.Error(), "packaging failed") {
		t.Fatalf("error = %v", err)
	}
}

func TestBuildOrchestrator_Plan_PackageIDIgnoresRemovedOptions(t *testing.T) {
	f := newFixture(t, BuildOrchestratorConfig{})
	ctx := context.Background()

	shared, err := f.orch.Plan(ctx, BuildRequest{Recipe: "demo", Profile: &entities.Profile{
		Options: map[string]string{"shared": "True", "fPIC": "False"},
	}})
	if err != nil {
		t.Fatal(err)
	}
	sharedFPIC, err := f.orch.Plan(ctx, BuildRequest{Recipe: "demo", Profile: &entities.Profile{
		Options: map[string]string{"shared": "True", "fPIC": "True"},
	}})
	if err != nil {
		t.Fatal(err)
	}
	static, err := f.orch.Plan(ctx, BuildRequest{Recipe: "demo"})
	if err != nil {
		t.Fatal(err)
	}

	if shared.PackageID != sharedFPIC.PackageID {
		t.Error("fPIC is removed for shared builds and must not change the package ID")
	}
	if shared.PackageID == static.PackageID {
		t.Error("shared and static builds must have different package IDs")
	}
	if _, ok := shared.Options["fPIC"]; ok {
		t.Error("removed option should not be in the plan")
	}
}

func TestBuildOrchestrator_Plan_CUnit(t *testing.T) {
	orch := NewBuildOrchestrator(BuildOrchestratorDeps{
		Registry: recipes.NewRegistry(),
		Repo: &mockRecipeRepository{sources: &entities.RecipeSources{
			Name:    cunit.Name,
			Sources: map[string]entities.Source{"2.1-3": {URL: "https://example.com/CUnit-2.1-3.tar.bz2", SHA256: "f5"}},
		}},
		Resolver: gateways.NewVersionResolver(),
	}, BuildOrchestratorConfig{HostSettings: &entities.Settings{
		OS:        "Windows",
		Arch:      "x86_64",
		BuildType: "Release",
		Compiler:  entities.CompilerSettings{Name: "msvc", Version: "193", Cppstd: "17"},
	}, BuildDir: t.TempDir()}, nil)

	plan, err := orch.Plan(context.Background(), BuildRequest{
		Recipe: cunit.Name,
		Profile: &entities.Profile{
			Settings: map[string]string{"build_type": "Debug"},
			Options:  map[string]string{"fPIC": "True", "with_curses": "ncurses"},
		},
	})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	if !reflect.DeepEqual(plan.IgnoredOptions, []string{"fPIC"}) {
		t.Errorf("IgnoredOptions = %v, want [fPIC]", plan.IgnoredOptions)
	}
	if _, ok := plan.Settings["compiler.cppstd"]; ok {
		t.Error("compiler.cppstd should be removed")
	}
	if len(plan.Requires) != 1 || plan.Requires[0].String() != "ncurses/6.2" {
		t.Errorf("Requires = %v", plan.Requires)
	}

	want := []string{
		"--datarootdir=" + filepath.ToSlash(filepath.Join(plan.Layout.PackageFolder, "bin", "share")),
		"--enable-debug",
		"--enable-automated",
		"--enable-basic",
		"--enable-console",
		"--enable-curses",
		"--disable-shared",
		"--enable-static",
	}
	if !reflect.DeepEqual(plan.ConfigureArgs, want) {
		t.Errorf("ConfigureArgs = %v, want %v", plan.ConfigureArgs, want)
	}
}
