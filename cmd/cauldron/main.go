// Package main provides the cauldron CLI for building C/C++ libraries from recipes.
package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/ochairo/cauldron/internal/domain/interfaces"
)

var version = "dev"

// Global is shared by every subcommand
type Global struct {
	Logger interfaces.Logger
	Out    io.Writer
}

// CLI definition & global flags
type CLI struct {
	Verbose    bool             `short:"v" help:"Enable verbose logging"`
	Version    kong.VersionFlag `name:"version" help:"Show version and exit"`
	RecipesDir string           `name:"recipes-dir" help:"Path to recipes directory" default:"recipes" env:"CAULDRON_RECIPES_DIR"`
	BuildDir   string           `name:"build-dir" help:"Directory holding source and package folders" default:"build" env:"CAULDRON_BUILD_DIR"`
	OutputDir  string           `name:"output-dir" help:"Output directory for archives and security artifacts" default:"dist" env:"CAULDRON_OUTPUT_DIR"`

	Build   BuildCmd   `cmd:"" help:"Build a package from a recipe"`
	Args    ArgsCmd    `cmd:"" help:"Print the configure arguments of a build without running it"`
	Inspect InspectCmd `cmd:"" help:"Show recipe metadata, options and versions"`
	List    ListCmd    `cmd:"" help:"List available recipes"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

func newParser(cli *CLI, options ...kong.Option) (*kong.Kong, error) {
	options = append([]kong.Option{
		kong.Name("cauldron"),
		kong.Description("Build C/C++ libraries from recipes"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	}, options...)
	return kong.New(cli, options...)
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	var cli CLI
	parser, err := newParser(&cli)
	if err != nil {
		panic(err)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	global := &Global{
		Logger: interfaces.NewSlogLogger(slog.Default()),
		Out:    os.Stdout,
	}
	ctx.FatalIfErrorf(ctx.Run(global, &cli))
}
