package ocr

import (
	"fmt"
	"os"
	"sort"

	_ "embed"

	"gopkg.in/yaml.v3"
)

//go:embed schemas.yaml
var defaultSchemas []byte

// Field describes one property the model must extract.
type Field struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
}

// Schema describes one screenshot extraction type.
type Schema struct {
	Description string  `yaml:"description"`
	Fields      []Field `yaml:"fields"`
}

// Registry holds the named extraction schemas.
type Registry struct {
	schemas map[string]Schema
}

type registryFile struct {
	Schemas map[string]Schema `yaml:"schemas"`
}

// NewDefaultRegistry loads the schemas embedded in the binary.
func NewDefaultRegistry() (*Registry, error) {
	return parseRegistry(defaultSchemas)
}

// LoadRegistry reads a schema registry from a YAML file, replacing the
// embedded defaults.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file %s: %w", path, err)
	}
	return parseRegistry(data)
}

func parseRegistry(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse schema registry: %w", err)
	}
	if len(file.Schemas) == 0 {
		return nil, fmt.Errorf("schema registry contains no schemas")
	}
	return &Registry{schemas: file.Schemas}, nil
}

// Get returns a schema by name.
func (r *Registry) Get(name string) (Schema, bool) {
	s, ok := r.schemas[name]
	return s, ok
}

// Names returns all registered schema names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
