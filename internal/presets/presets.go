// Package presets loads named filter sets from a YAML file and keeps them
// current while the file changes on disk.
package presets

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/starford/timeshift/internal/apperr"
)

// Preset is a named set of property filters.
type Preset struct {
	Name        string            `yaml:"-" json:"name"`
	Description string            `yaml:"description" json:"description,omitempty"`
	Filters     map[string]string `yaml:"filters" json:"filters"`
}

type file struct {
	Presets map[string]Preset `yaml:"presets"`
}

// Store holds the current preset set. Safe for concurrent use.
type Store struct {
	path string

	mu      sync.RWMutex
	presets map[string]Preset
}

// NewStore returns an empty store bound to path. Call Load to read it.
func NewStore(path string) *Store {
	return &Store{path: path, presets: map[string]Preset{}}
}

// Path returns the file the store reads from.
func (s *Store) Path() string { return s.path }

// Load reads and parses the file. A missing file yields an empty set.
// On parse error the previous presets are kept.
func (s *Store) Load() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.replace(map[string]Preset{})
		return nil
	}
	if err != nil {
		return fmt.Errorf("presets: read %s: %w", s.path, err)
	}
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	s.replace(parsed)
	return nil
}

// Parse decodes a presets document.
func Parse(data []byte) (map[string]Preset, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("presets: parse: %w", err)
	}
	out := make(map[string]Preset, len(f.Presets))
	for name, p := range f.Presets {
		if name == "" {
			return nil, fmt.Errorf("presets: empty preset name")
		}
		p.Name = name
		if p.Filters == nil {
			p.Filters = map[string]string{}
		}
		out[name] = p
	}
	return out, nil
}

func (s *Store) replace(m map[string]Preset) {
	s.mu.Lock()
	s.presets = m
	s.mu.Unlock()
}

// Get returns the named preset or apperr.ErrUnknownPreset.
func (s *Store) Get(name string) (Preset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %s", apperr.ErrUnknownPreset, name)
	}
	return clone(p), nil
}

// List returns all presets sorted by name.
func (s *Store) List() []Preset {
	s.mu.RLock()
	out := make([]Preset, 0, len(s.presets))
	for _, p := range s.presets {
		out = append(out, clone(p))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func clone(p Preset) Preset {
	f := make(map[string]string, len(p.Filters))
	for k, v := range p.Filters {
		f[k] = v
	}
	p.Filters = f
	return p
}
