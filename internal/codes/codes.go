// Package codes loads the table that maps numeric message codes to handler
// names. Codes change with every game patch, so they live in a data file rather
// than in the binary.
package codes

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/riftwatch/riftwatch/internal/protocol"
)

// DefaultFile is the code table file name inside the config directory.
const DefaultFile = "codes.yaml"

// Entry binds one (kind, code) pair to a handler name.
type Entry struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
	Code int    `yaml:"code"`
}

// Table is a parsed code table.
type Table struct {
	// CodeParameters maps a kind to the parameter key that carries the real code.
	CodeParameters map[string]int `yaml:"code_parameters,omitempty"`
	Handlers       []Entry        `yaml:"handlers"`
}

// Binding is a validated Entry.
type Binding struct {
	Name string
	Kind protocol.Kind
	Code int
}

// Default returns the built-in table. The codes are placeholders; real
// deployments replace them with the ones of the current game build.
func Default() *Table {
	return &Table{
		Handlers: []Entry{
			{Name: "entity_left", Kind: "event", Code: 1},
			{Name: "player_moved", Kind: "event", Code: 3},
			{Name: "mob_health", Kind: "event", Code: 6},
			{Name: "player_spotted", Kind: "event", Code: 52},
			{Name: "player_left", Kind: "event", Code: 53},
			{Name: "mob_spawned", Kind: "event", Code: 71},
			{Name: "dungeon_found", Kind: "event", Code: 110},
			{Name: "wisp_spotted", Kind: "event", Code: 119},
			{Name: "cluster_changed", Kind: "response", Code: 2},
		},
	}
}

// Parse decodes and validates a YAML code table.
func Parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse code table: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Load reads the code table at path. A missing file is created from Default.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read code table %s: %w", path, err)
		}
		log.Info().Str("path", path).Msg("code table not found, writing default")
		t := Default()
		if err := t.Save(path); err != nil {
			return nil, err
		}
		return t, nil
	}

	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Info().Str("path", path).Int("handlers", len(t.Handlers)).Msg("code table loaded")
	return t, nil
}

// Save writes the table as YAML.
func (t *Table) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create code table directory: %w", err)
	}
	data, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal code table: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write code table: %w", err)
	}
	return nil
}

// Validate rejects unknown kinds, out-of-range codes, empty names and
// duplicate (kind, code) pairs. All problems are reported together.
func (t *Table) Validate() error {
	var errs []error
	seen := make(map[Binding]string)

	for i, e := range t.Handlers {
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("handlers[%d]: missing name", i))
		}
		kind, err := protocol.ParseKind(e.Kind)
		if err != nil {
			errs = append(errs, fmt.Errorf("handlers[%d] %s: %w", i, e.Name, err))
			continue
		}
		if e.Code < 0 || e.Code > 0xFFFF {
			errs = append(errs, fmt.Errorf("handlers[%d] %s: code %d out of range", i, e.Name, e.Code))
			continue
		}
		key := Binding{Kind: kind, Code: e.Code}
		if prev, dup := seen[key]; dup {
			errs = append(errs, fmt.Errorf("handlers[%d] %s: %s %d already bound to %s", i, e.Name, kind, e.Code, prev))
			continue
		}
		seen[key] = e.Name
	}

	for kind, key := range t.CodeParameters {
		if _, err := protocol.ParseKind(kind); err != nil {
			errs = append(errs, fmt.Errorf("code_parameters: %w", err))
		}
		if key < 0 || key > 0xFF {
			errs = append(errs, fmt.Errorf("code_parameters[%s]: key %d is not a byte", kind, key))
		}
	}

	return errors.Join(errs...)
}

// Bindings returns the validated handler bindings in file order.
func (t *Table) Bindings() ([]Binding, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	out := make([]Binding, 0, len(t.Handlers))
	for _, e := range t.Handlers {
		kind, _ := protocol.ParseKind(e.Kind)
		out = append(out, Binding{Name: e.Name, Kind: kind, Code: e.Code})
	}
	return out, nil
}

// ParserOptions turns code_parameters into envelope parser options.
func (t *Table) ParserOptions() []protocol.ParserOption {
	var opts []protocol.ParserOption
	for kind, key := range t.CodeParameters {
		k, err := protocol.ParseKind(kind)
		if err != nil {
			continue
		}
		opts = append(opts, protocol.WithCodeParameter(k, byte(key)))
	}
	return opts
}
