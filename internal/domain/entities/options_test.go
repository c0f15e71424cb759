package entities

import (
	"errors"
	"testing"
)

func testSchema() []OptionDef {
	return []OptionDef{
		{Name: "shared", Values: BoolValues, Default: False},
		{Name: "fPIC", Values: BoolValues, Default: True},
		{Name: "with_curses", Values: []string{False, "ncurses"}, Default: False},
	}
}

func TestNewOptions_Defaults(t *testing.T) {
	o, err := NewOptions(testSchema())
	if err != nil {
		t.Fatalf("NewOptions() error = %v", err)
	}

	if o.Bool("shared") {
		t.Error("shared should default to False")
	}
	if !o.Bool("fPIC") {
		t.Error("fPIC should default to True")
	}
	if got := o.Get("with_curses"); got != False {
		t.Errorf("with_curses = %q, want False", got)
	}
	names := o.Names()
	if len(names) != 3 || names[0] != "shared" || names[2] != "with_curses" {
		t.Errorf("Names() = %v, want schema order", names)
	}
}

func TestNewOptions_BadDefault(t *testing.T) {
	_, err := NewOptions([]OptionDef{{Name: "shared", Values: BoolValues, Default: "yes"}})
	if !errors.Is(err, ErrInvalidOptionValue) {
		t.Errorf("NewOptions() error = %v, want ErrInvalidOptionValue", err)
	}
}

func TestOptions_Set(t *testing.T) {
	tests := []struct {
		name    string
		option  string
		value   string
		want    string
		wantErr error
	}{
		{"exact bool", "shared", "True", "True", nil},
		{"lowercase bool", "shared", "true", "True", nil},
		{"enum value", "with_curses", "ncurses", "ncurses", nil},
		{"enum is case sensitive", "with_curses", "NCURSES", "", ErrInvalidOptionValue},
		{"bad bool", "fPIC", "maybe", "", ErrInvalidOptionValue},
		{"unknown option", "static", "True", "", ErrUnknownOption},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := NewOptions(testSchema())
			if err != nil {
				t.Fatal(err)
			}
			err = o.Set(tt.option, tt.value)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Set() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if got := o.Get(tt.option); got != tt.want {
				t.Errorf("Get() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOptions_Remove(t *testing.T) {
	o, err := NewOptions(testSchema())
	if err != nil {
		t.Fatal(err)
	}
	o.Remove("fPIC")

	if o.Has("fPIC") || o.Bool("fPIC") {
		t.Error("removed option should be absent")
	}
	if !o.IsRemoved("fPIC") {
		t.Error("IsRemoved(fPIC) = false")
	}
	if _, ok := o.Values()["fPIC"]; ok {
		t.Error("Values() should not contain removed options")
	}
	if len(o.Schema()) != 3 {
		t.Error("Schema() should keep removed options")
	}
}
