package entities

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidSetting is returned when a setting value is outside its allowed set
var ErrInvalidSetting = errors.New("invalid setting")

// Allowed setting values
var (
	ValidOS         = []string{"Linux", "Macos", "Windows", "FreeBSD", "SunOS", "Android", "iOS"}
	ValidArch       = []string{"x86", "x86_64", "armv7", "armv7hf", "armv8", "ppc64le", "s390x"}
	ValidBuildTypes = []string{"Debug", "Release", "RelWithDebInfo", "MinSizeRel"}
	ValidCompilers  = []string{"gcc", "clang", "apple-clang", "Visual Studio", "msvc"}
)

// CompilerSettings describes the compiler a package is built with
type CompilerSettings struct {
	Name    string
	Version string
	Libcxx  string
	Cppstd  string
}

// Settings are the host-provided build settings (os, arch, compiler, build type)
type Settings struct {
	OS        string
	Arch      string
	BuildType string
	Compiler  CompilerSettings

	removed map[string]bool
}

// Set assigns a setting by its dotted key (e.g. "compiler.version")
func (s *Settings) Set(key, value string) error {
	switch key {
	case "os":
		s.OS = value
	case "arch":
		s.Arch = value
	case "build_type":
		s.BuildType = value
	case "compiler":
		s.Compiler.Name = value
	case "compiler.version":
		s.Compiler.Version = value
	case "compiler.libcxx":
		s.Compiler.Libcxx = value
	case "compiler.cppstd":
		s.Compiler.Cppstd = value
	default:
		return fmt.Errorf("%w: unknown setting %q", ErrInvalidSetting, key)
	}
	if s.removed != nil {
		delete(s.removed, key)
	}
	return nil
}

// Remove deletes a setting so it no longer applies to the package
func (s *Settings) Remove(key string) {
	if s.removed == nil {
		s.removed = make(map[string]bool)
	}
	s.removed[key] = true
	switch key {
	case "compiler.libcxx":
		s.Compiler.Libcxx = ""
	case "compiler.cppstd":
		s.Compiler.Cppstd = ""
	case "compiler.version":
		s.Compiler.Version = ""
	}
}

// IsRemoved reports whether a recipe removed the given setting
func (s *Settings) IsRemoved(key string) bool {
	return s.removed[key]
}

// Values returns the non-empty, non-removed settings keyed by dotted name
func (s *Settings) Values() map[string]string {
	all := map[string]string{
		"os":               s.OS,
		"arch":             s.Arch,
		"build_type":       s.BuildType,
		"compiler":         s.Compiler.Name,
		"compiler.version": s.Compiler.Version,
		"compiler.libcxx":  s.Compiler.Libcxx,
		"compiler.cppstd":  s.Compiler.Cppstd,
	}
	values := make(map[string]string, len(all))
	for k, v := range all {
		if v == "" || s.removed[k] {
			continue
		}
		values[k] = v
	}
	return values
}

// Validate checks enum membership of the settings that have a fixed value set
func (s *Settings) Validate() error {
	checks := []struct {
		key     string
		value   string
		allowed []string
	}{
		{"os", s.OS, ValidOS},
		{"arch", s.Arch, ValidArch},
		{"build_type", s.BuildType, ValidBuildTypes},
		{"compiler", s.Compiler.Name, ValidCompilers},
	}

	for _, c := range checks {
		if c.value == "" || s.removed[c.key] {
			continue
		}
		if !slices.Contains(c.allowed, c.value) {
			return fmt.Errorf("%w: %s=%q (allowed: %s)", ErrInvalidSetting, c.key, c.value, strings.Join(c.allowed, ", "))
		}
	}
	return nil
}

// Clone returns a deep copy of the settings
func (s *Settings) Clone() *Settings {
	c := *s
	if s.removed != nil {
		c.removed = make(map[string]bool, len(s.removed))
		for k, v := range s.removed {
			c.removed[k] = v
		}
	}
	return &c
}
