package mode

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplates []byte

// Registry resolves a mode to its instruction template.
type Registry interface {
	Resolve(m Mode) (Template, error)
	List() []Template
}

// MemoryStore is an immutable Registry built from a template document.
type MemoryStore struct {
	items map[Mode]Template
}

type document struct {
	Templates []Template `yaml:"templates"`
}

// Default returns the registry compiled into the binary.
func Default() *MemoryStore {
	store, err := Parse(defaultTemplates)
	if err != nil {
		panic(fmt.Sprintf("embedded templates are invalid: %v", err))
	}
	return store
}

// LoadFile reads a replacement template document from disk.
func LoadFile(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates %s: %w", path, err)
	}
	store, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("templates %s: %w", path, err)
	}
	return store, nil
}

// Parse decodes a YAML template document. Every mode must be present once.
func Parse(data []byte) (*MemoryStore, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}

	items := make(map[Mode]Template, len(doc.Templates))
	for _, tpl := range doc.Templates {
		m, err := ParseMode(string(tpl.Mode))
		if err != nil {
			return nil, err
		}
		if _, dup := items[m]; dup {
			return nil, fmt.Errorf("duplicate template for mode %s", m)
		}
		tpl.Mode = m
		tpl.Instruction = strings.TrimSpace(tpl.Instruction)
		if tpl.Instruction == "" {
			return nil, fmt.Errorf("empty instruction for mode %s", m)
		}
		if tpl.Title == "" {
			tpl.Title = string(m)
		}
		items[m] = tpl
	}

	for _, m := range All() {
		if _, ok := items[m]; !ok {
			return nil, fmt.Errorf("missing template for mode %s", m)
		}
	}

	return &MemoryStore{items: items}, nil
}

// Resolve returns the template for m or ErrUnknownMode.
func (s *MemoryStore) Resolve(m Mode) (Template, error) {
	tpl, ok := s.items[m]
	if !ok {
		return Template{}, fmt.Errorf("%w: %q", ErrUnknownMode, string(m))
	}
	return tpl, nil
}

// List returns all templates in canonical mode order.
func (s *MemoryStore) List() []Template {
	out := make([]Template, 0, len(s.items))
	for _, m := range All() {
		out = append(out, s.items[m])
	}
	return out
}
