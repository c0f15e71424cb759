package gateways

import (
	"runtime"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

var goosToOS = map[string]string{
	"linux":   "Linux",
	"darwin":  "Macos",
	"windows": "Windows",
	"freebsd": "FreeBSD",
	"solaris": "SunOS",
	"android": "Android",
	"ios":     "iOS",
}

var goarchToArch = map[string]string{
	"amd64":   "x86_64",
	"386":     "x86",
	"arm64":   "armv8",
	"arm":     "armv7",
	"ppc64le": "ppc64le",
	"s390x":   "s390x",
}

var defaultCompiler = map[string]string{
	"Linux":   "gcc",
	"Macos":   "apple-clang",
	"Windows": "msvc",
	"FreeBSD": "clang",
}

// DetectSettings returns the settings of the machine cauldron runs on
func DetectSettings() *entities.Settings {
	return SettingsFor(runtime.GOOS, runtime.GOARCH)
}

// SettingsFor maps a GOOS/GOARCH pair to default build settings
func SettingsFor(goos, goarch string) *entities.Settings {
	os := goosToOS[goos]
	if os == "" {
		os = goos
	}
	arch := goarchToArch[goarch]
	if arch == "" {
		arch = goarch
	}
	compiler := defaultCompiler[os]
	if compiler == "" {
		compiler = "gcc"
	}

	return &entities.Settings{
		OS:        os,
		Arch:      arch,
		BuildType: "Release",
		Compiler:  entities.CompilerSettings{Name: compiler},
	}
}

var tripletArch = map[string]string{
	"x86":     "i686",
	"x86_64":  "x86_64",
	"armv7":   "arm",
	"armv7hf": "arm",
	"armv8":   "aarch64",
	"ppc64le": "powerpc64le",
	"s390x":   "s390x",
}

// GNUTriplet returns the GNU machine triplet for an os/arch pair, or ""
// when either is unknown
func GNUTriplet(os, arch string) string {
	machine, ok := tripletArch[arch]
	if !ok {
		return ""
	}

	var system string
	switch os {
	case "Linux":
		switch arch {
		case "armv7":
			system = "linux-gnueabi"
		case "armv7hf":
			system = "linux-gnueabihf"
		default:
			system = "linux-gnu"
		}
	case "Android":
		system = "linux-android"
		if arch == "armv7" || arch == "armv7hf" {
			system = "linux-androideabi"
		}
	case "Macos", "iOS":
		system = "apple-darwin"
	case "Windows":
		system = "w64-mingw32"
	case "FreeBSD":
		system = "unknown-freebsd"
	case "SunOS":
		system = "sun-solaris"
	default:
		return ""
	}
	return machine + "-" + system
}
