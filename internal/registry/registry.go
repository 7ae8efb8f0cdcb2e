// Package registry holds the closed whitelist of command names and their argument schemas.
// A Registry is built once at start and is read-only afterwards.
package registry

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed commands.yaml
var defaultCommands []byte

// Shape is the declared type of a command argument.
type Shape string

const (
	ShapeString     Shape = "string"
	ShapeInt        Shape = "int"
	ShapeNumber     Shape = "number"
	ShapeBool       Shape = "bool"
	ShapeStringList Shape = "string_list"
	ShapeObject     Shape = "object"
)

func (s Shape) valid() bool {
	switch s {
	case ShapeString, ShapeInt, ShapeNumber, ShapeBool, ShapeStringList, ShapeObject:
		return true
	}
	return false
}

// ArgSpec declares one argument. An empty Shape means string.
type ArgSpec struct {
	Name        string `yaml:"name" json:"name"`
	Shape       Shape  `yaml:"shape" json:"shape"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Entry is one allowed command.
type Entry struct {
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	Required    []ArgSpec `yaml:"required,omitempty" json:"required_args"`
	Optional    []ArgSpec `yaml:"optional,omitempty" json:"optional_args"`
}

// Arg returns the declared spec for name and whether it is required.
// ok is false when the argument is not declared.
func (e *Entry) Arg(name string) (spec ArgSpec, required bool, ok bool) {
	for _, a := range e.Required {
		if a.Name == name {
			return a, true, true
		}
	}
	for _, a := range e.Optional {
		if a.Name == name {
			return a, false, true
		}
	}
	return ArgSpec{}, false, false
}

type file struct {
	Commands []*Entry `yaml:"commands"`
}

// Registry is the set of allowed commands.
type Registry struct {
	entries []*Entry
	byName  map[string]*Entry
}

// Parse builds a registry from YAML.
func Parse(data []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse command registry: %w", err)
	}
	return New(f.Commands)
}

// New builds a registry from entries, rejecting duplicate or empty names, unknown shapes and
// arguments declared twice.
func New(entries []*Entry) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Entry, len(entries))}
	for _, e := range entries {
		if e == nil || e.Name == "" {
			return nil, fmt.Errorf("command registry: entry without a name")
		}
		if _, dup := r.byName[e.Name]; dup {
			return nil, fmt.Errorf("command registry: duplicate command %q", e.Name)
		}
		seen := make(map[string]bool)
		for _, group := range [][]ArgSpec{e.Required, e.Optional} {
			for i := range group {
				a := &group[i]
				if a.Name == "" {
					return nil, fmt.Errorf("command registry: %s has an argument without a name", e.Name)
				}
				if seen[a.Name] {
					return nil, fmt.Errorf("command registry: %s declares argument %q twice", e.Name, a.Name)
				}
				seen[a.Name] = true
				if a.Shape == "" {
					a.Shape = ShapeString
				}
				if !a.Shape.valid() {
					return nil, fmt.Errorf("command registry: %s.%s has unknown shape %q", e.Name, a.Name, a.Shape)
				}
			}
		}
		r.entries = append(r.entries, e)
		r.byName[e.Name] = e
	}
	return r, nil
}

// Load reads a registry file. An empty path yields the built-in registry.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read command registry: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in registry.
func Default() *Registry {
	r, err := Parse(defaultCommands)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the entry for name.
func (r *Registry) Lookup(name string) (*Entry, bool) {
	e, ok := r.byName[name]
	return e, ok
}

// Names returns the allowed command names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

// Entries returns the entries in declaration order.
func (r *Registry) Entries() []*Entry {
	return append([]*Entry(nil), r.entries...)
}

// Len returns the number of allowed commands.
func (r *Registry) Len() int {
	return len(r.entries)
}
