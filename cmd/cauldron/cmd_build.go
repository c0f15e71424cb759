package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ochairo/cauldron/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/cauldron/internal/domain-orchestrators"
	"github.com/ochairo/cauldron/internal/domain/entities"
	"github.com/ochairo/cauldron/internal/domain/interfaces"
	"github.com/ochairo/cauldron/internal/domain/services"
	"github.com/ochairo/cauldron/internal/external-adapters/cmake"
	"github.com/ochairo/cauldron/internal/external-adapters/yaml"
	"github.com/ochairo/cauldron/internal/recipes"
)

// BuildFlags select the configuration of a build
type BuildFlags struct {
	Recipe   string            `arg:"" help:"Recipe name"`
	Version  string            `arg:"" optional:"" help:"Version or semver constraint (default: newest)"`
	Options  map[string]string `short:"o" name:"option" placeholder:"KEY=VALUE" help:"Option value, repeatable"`
	Settings map[string]string `short:"s" name:"setting" placeholder:"KEY=VALUE" help:"Setting value, repeatable"`
	Profile  string            `short:"p" help:"YAML profile with settings, options and env" env:"CAULDRON_PROFILE" type:"existingfile"`
}

// profile loads the profile file, if any, and overlays the command line values
func (f *BuildFlags) profile() (*entities.Profile, error) {
	profile := &entities.Profile{}
	if f.Profile != "" {
		loaded, err := yaml.NewProfileParser().ParseFile(f.Profile)
		if err != nil {
			return nil, err
		}
		profile = loaded
	}
	profile.Merge(&entities.Profile{Settings: f.Settings, Options: f.Options})
	return profile, nil
}

func (f *BuildFlags) request() (orchestrators.BuildRequest, error) {
	profile, err := f.profile()
	if err != nil {
		return orchestrators.BuildRequest{}, err
	}
	return orchestrators.BuildRequest{
		Recipe:  f.Recipe,
		Version: f.Version,
		Profile: profile,
	}, nil
}

// newOrchestrator wires the build orchestrator from the global flags
func newOrchestrator(cli *CLI, logger interfaces.Logger, jobs int, skipArchive bool) *orchestrators.BuildOrchestrator {
	host := gateways.DetectSettings()
	downloader := gateways.NewDownloader(gateways.NewSourceVerifier(nil), logger)
	executor := gateways.NewScriptExecutor(os.Stderr, logger)

	deps := orchestrators.BuildOrchestratorDeps{
		Registry: recipes.NewRegistry(),
		Repo:     yaml.NewRecipeRepository(cli.RecipesDir),
		Resolver: gateways.NewVersionResolver(),
		Tools: func(env map[string]string) interfaces.Toolbox {
			return gateways.NewToolbox(downloader, executor, host, env, logger).WithJobs(jobs)
		},
		Manifests: yaml.NewManifestWriter(),
		CMake:     cmake.NewGenerator(),
		Packager:  gateways.NewPackager(logger),
		Security:  services.NewSecurityArtifactsService(logger),
	}
	config := orchestrators.BuildOrchestratorConfig{
		HostSettings: host,
		BuildDir:     cli.BuildDir,
		OutputDir:    cli.OutputDir,
		SkipArchive:  skipArchive,
	}
	return orchestrators.NewBuildOrchestrator(deps, config, logger)
}

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	BuildFlags
	Jobs      int  `short:"j" help:"Parallel make jobs (default: number of CPUs)" env:"CAULDRON_JOBS"`
	NoArchive bool `name:"no-archive" help:"Stop after the package folder; skip the archive and security artifacts"`
}

func (b *BuildCmd) Run(g *Global, cli *CLI) error {
	req, err := b.request()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := newOrchestrator(cli, g.Logger, b.Jobs, b.NoArchive).BuildPackage(ctx, req)
	if err != nil {
		return fmt.Errorf("build %s: %w", b.Recipe, err)
	}

	fmt.Fprintln(g.Out, result.GetBuildSummary())
	if ignored := result.Plan.IgnoredOptions; len(ignored) > 0 {
		fmt.Fprintf(g.Out, "Ignored options: %v\n", ignored)
	}
	return nil
}
