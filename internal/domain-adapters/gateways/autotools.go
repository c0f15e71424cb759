package gateways

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

// commandRunner is the part of ScriptExecutor autotools needs
type commandRunner interface {
	ExecuteCommand(ctx context.Context, config ExecuteCommandConfig) *ExecuteResult
}

var buildTypeFlags = map[string][]string{
	"Debug":          {"-g"},
	"Release":        {"-O3"},
	"RelWithDebInfo": {"-O2", "-g"},
	"MinSizeRel":     {"-Os"},
}

// Autotools is a configure/make build environment derived from settings and options
type Autotools struct {
	runner   commandRunner
	settings *entities.Settings
	options  *entities.Options
	build    *entities.Settings
	prefix   string
	env      map[string]string
	libs     []string
	jobs     int
}

// NewAutotools creates a build environment installing into prefix.
// build describes the machine running the build, env is the profile environment.
func NewAutotools(runner commandRunner, settings, build *entities.Settings, options *entities.Options, prefix string, env map[string]string) *Autotools {
	return &Autotools{
		runner:   runner,
		settings: settings,
		options:  options,
		build:    build,
		prefix:   prefix,
		env:      env,
		jobs:     runtime.NumCPU(),
	}
}

// SetLibs sets the libraries passed through LIBS
func (a *Autotools) SetLibs(libs []string) {
	a.libs = libs
}

// SetJobs sets the make parallelism
func (a *Autotools) SetJobs(jobs int) {
	if jobs > 0 {
		a.jobs = jobs
	}
}

// Vars returns the compiler environment for configure and make
func (a *Autotools) Vars() map[string]string {
	var cflags, cppflags, ldflags []string

	cflags = append(cflags, buildTypeFlags[a.settings.BuildType]...)
	if a.settings.BuildType != "" && a.settings.BuildType != "Debug" {
		cppflags = append(cppflags, "-DNDEBUG")
	}

	if arch := a.archFlag(); arch != "" {
		cflags = append(cflags, arch)
		ldflags = append(ldflags, arch)
	}
	if a.options != nil && a.options.Bool("fPIC") {
		cflags = append(cflags, "-fPIC")
	}

	libs := make([]string, 0, len(a.libs))
	for _, l := range a.libs {
		libs = append(libs, "-l"+l)
	}

	vars := map[string]string{
		"CFLAGS":   joinFlags(a.env["CFLAGS"], cflags),
		"CXXFLAGS": joinFlags(a.env["CXXFLAGS"], cflags),
		"CPPFLAGS": joinFlags(a.env["CPPFLAGS"], cppflags),
		"LDFLAGS":  joinFlags(a.env["LDFLAGS"], ldflags),
		"LIBS":     joinFlags(a.env["LIBS"], libs),
	}
	for k, v := range a.env {
		if _, ok := vars[k]; !ok {
			vars[k] = v
		}
	}
	return vars
}

// archFlag returns -m32/-m64 for x86 targets on gcc-like compilers
func (a *Autotools) archFlag() string {
	switch a.settings.Compiler.Name {
	case "gcc", "clang", "apple-clang":
	default:
		return ""
	}
	switch a.settings.Arch {
	case "x86":
		return "-m32"
	case "x86_64":
		return "-m64"
	}
	return ""
}

func joinFlags(user string, flags []string) string {
	all := make([]string, 0, len(flags)+1)
	if user = strings.TrimSpace(user); user != "" {
		all = append(all, user)
	}
	all = append(all, flags...)
	return strings.Join(all, " ")
}

// ConfigureArgs returns the full configure argument list: the install
// directories the recipe did not set, cross-build triplets, then args
func (a *Autotools) ConfigureArgs(args []string) []string {
	defaults := []string{
		"--prefix=" + filepath.ToSlash(a.prefix),
		"--bindir=${prefix}/bin",
		"--sbindir=${prefix}/bin",
		"--libexecdir=${prefix}/bin",
		"--libdir=${prefix}/lib",
		"--includedir=${prefix}/include",
		"--oldincludedir=${prefix}/include",
		"--datarootdir=${prefix}/share",
	}

	all := make([]string, 0, len(defaults)+len(args)+2)
	for _, d := range defaults {
		flag, _, _ := strings.Cut(d, "=")
		if !hasFlag(args, flag) {
			all = append(all, d)
		}
	}

	if a.isCross() {
		if build := GNUTriplet(a.build.OS, a.build.Arch); build != "" && !hasFlag(args, "--build") {
			all = append(all, "--build="+build)
		}
		if host := GNUTriplet(a.settings.OS, a.settings.Arch); host != "" && !hasFlag(args, "--host") {
			all = append(all, "--host="+host)
		}
	}

	return append(all, args...)
}

func (a *Autotools) isCross() bool {
	if a.build == nil {
		return false
	}
	return a.build.OS != a.settings.OS || a.build.Arch != a.settings.Arch
}

func hasFlag(args []string, flag string) bool {
	for _, arg := range args {
		if arg == flag || strings.HasPrefix(arg, flag+"=") {
			return true
		}
	}
	return false
}

// Configure runs dir/configure with the computed environment
func (a *Autotools) Configure(ctx context.Context, dir string, args []string) error {
	result := a.runner.ExecuteCommand(ctx, ExecuteCommandConfig{
		Name:        filepath.Join(dir, "configure"),
		Args:        a.ConfigureArgs(args),
		WorkingDir:  dir,
		Env:         a.Vars(),
		Description: "configure",
	})
	return result.Err("configure")
}

// Make runs make with the configured parallelism
func (a *Autotools) Make(ctx context.Context, dir string, targets ...string) error {
	args := append([]string{fmt.Sprintf("-j%d", a.jobs)}, targets...)
	what := "make"
	if len(targets) > 0 {
		what = "make " + strings.Join(targets, " ")
	}

	result := a.runner.ExecuteCommand(ctx, ExecuteCommandConfig{
		Name:        "make",
		Args:        args,
		WorkingDir:  dir,
		Env:         a.Vars(),
		Description: what,
	})
	return result.Err(what)
}

// Install runs make install
func (a *Autotools) Install(ctx context.Context, dir string) error {
	return a.Make(ctx, dir, "install")
}
