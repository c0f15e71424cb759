package entities

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrUnknownOption is returned when an option is not part of the recipe schema
	ErrUnknownOption = errors.New("unknown option")

	// ErrInvalidOptionValue is returned when a value is not allowed for an option
	ErrInvalidOptionValue = errors.New("invalid option value")
)

// Boolean option values
const (
	True  = "True"
	False = "False"
)

// BoolValues is the value set of a boolean option
var BoolValues = []string{True, False}

// OptionDef declares a configurable build switch and its allowed values
type OptionDef struct {
	Name    string
	Values  []string
	Default string
}

// Options holds the option values of one build, validated against a schema
type Options struct {
	defs    []OptionDef
	values  map[string]string
	removed map[string]bool
}

// NewOptions creates options initialised with the schema defaults
func NewOptions(defs []OptionDef) (*Options, error) {
	o := &Options{
		defs:    defs,
		values:  make(map[string]string, len(defs)),
		removed: make(map[string]bool),
	}
	for _, def := range defs {
		if err := o.Set(def.Name, def.Default); err != nil {
			return nil, fmt.Errorf("bad default for option %s: %w", def.Name, err)
		}
	}
	return o, nil
}

// Set validates and assigns an option value
func (o *Options) Set(name, value string) error {
	def, ok := o.def(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOption, name)
	}

	normalized, ok := normalizeValue(def.Values, value)
	if !ok {
		return fmt.Errorf("%w: %s=%q (allowed: %s)", ErrInvalidOptionValue, name, value, strings.Join(def.Values, ", "))
	}
	o.values[name] = normalized
	return nil
}

// Remove deletes an option; it is no longer present for this build
func (o *Options) Remove(name string) {
	delete(o.values, name)
	o.removed[name] = true
}

// IsRemoved reports whether a hook removed the option
func (o *Options) IsRemoved(name string) bool {
	return o.removed[name]
}

// Has reports whether the option is present
func (o *Options) Has(name string) bool {
	_, ok := o.values[name]
	return ok
}

// Get returns the option value, or "" when the option is absent
func (o *Options) Get(name string) string {
	return o.values[name]
}

// Bool returns true when the option is present and not "False"
func (o *Options) Bool(name string) bool {
	v, ok := o.values[name]
	return ok && v != False
}

// Names returns the present options in schema order
func (o *Options) Names() []string {
	names := make([]string, 0, len(o.values))
	for _, def := range o.defs {
		if _, ok := o.values[def.Name]; ok {
			names = append(names, def.Name)
		}
	}
	return names
}

// Values returns a copy of the present option values
func (o *Options) Values() map[string]string {
	values := make(map[string]string, len(o.values))
	for k, v := range o.values {
		values[k] = v
	}
	return values
}

// Schema returns the option definitions these options were created from
func (o *Options) Schema() []OptionDef {
	return o.defs
}

func (o *Options) def(name string) (OptionDef, bool) {
	for _, def := range o.defs {
		if def.Name == name {
			return def, true
		}
	}
	return OptionDef{}, false
}

// normalizeValue matches value against the allowed set. Booleans compare
// case-insensitively so "true" and "True" are the same value.
func normalizeValue(allowed []string, value string) (string, bool) {
	if slices.Contains(allowed, value) {
		return value, true
	}
	for _, a := range allowed {
		if (a == True || a == False) && strings.EqualFold(a, value) {
			return a, true
		}
	}
	return "", false
}
