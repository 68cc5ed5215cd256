// Package def loads tick machine definitions from YAML.
//
// A definition names the states of a machine and binds their entry, exec,
// and exit behavior to handlers the host registers by name. Building a
// definition against a Registry yields the caller-owned state table the
// engine borrows, plus a name-to-index lookup so hosts can transition by
// state name instead of raw index.
package def

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ticksm/ticksm"
)

// Definition is the top-level YAML document.
type Definition struct {
	Name   string        `yaml:"name,omitempty"`
	Start  string        `yaml:"start,omitempty"` // defaults to the first state
	States []StateConfig `yaml:"states"`
}

// StateConfig binds one state's callbacks by registered handler name.
// Empty fields leave the corresponding callback unset.
type StateConfig struct {
	Name  string `yaml:"name"`
	Entry string `yaml:"entry,omitempty"`
	Exec  string `yaml:"exec,omitempty"`
	Exit  string `yaml:"exit,omitempty"`
}

// Registry maps handler names to callbacks.
type Registry map[string]ticksm.Callback

// Table is a built state table ready to hand to the engine.
type Table struct {
	States []ticksm.State
	Start  int

	index map[string]int
}

// Index returns the table index of the named state.
func (t *Table) Index(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Parse decodes a YAML definition.
func Parse(data []byte) (*Definition, error) {
	var d Definition
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse definition: %w", err)
	}
	return &d, nil
}

// Load reads and parses a definition file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load definition: %w", err)
	}
	return Parse(data)
}

// Validate checks the definition without resolving handlers: a non-empty
// state list, non-empty unique state names, and a known start state.
func (d *Definition) Validate() error {
	if len(d.States) == 0 {
		return errors.New("definition has no states")
	}
	seen := make(map[string]struct{}, len(d.States))
	for i, s := range d.States {
		if s.Name == "" {
			return fmt.Errorf("state %d has no name", i)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("duplicate state name %q", s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	if d.Start != "" {
		if _, ok := seen[d.Start]; !ok {
			return fmt.Errorf("unknown start state %q", d.Start)
		}
	}
	return nil
}

// Build resolves the definition against reg and returns the state table.
// Every handler named in the definition must be registered.
func (d *Definition) Build(reg Registry) (*Table, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	t := &Table{
		States: make([]ticksm.State, len(d.States)),
		index:  make(map[string]int, len(d.States)),
	}
	for i, s := range d.States {
		entry, err := resolve(reg, s.Name, "entry", s.Entry)
		if err != nil {
			return nil, err
		}
		exec, err := resolve(reg, s.Name, "exec", s.Exec)
		if err != nil {
			return nil, err
		}
		exit, err := resolve(reg, s.Name, "exit", s.Exit)
		if err != nil {
			return nil, err
		}
		t.States[i] = ticksm.State{OnEntry: entry, OnExec: exec, OnExit: exit}
		t.index[s.Name] = i
	}

	if d.Start != "" {
		t.Start = t.index[d.Start]
	}
	return t, nil
}

func resolve(reg Registry, state, slot, handler string) (ticksm.Callback, error) {
	if handler == "" {
		return nil, nil
	}
	cb, ok := reg[handler]
	if !ok || cb == nil {
		return nil, fmt.Errorf("state %q: %s handler %q is not registered", state, slot, handler)
	}
	return cb, nil
}
