package source

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/settingstree/internal/tree"
)

// DefaultsSection is the top-level key merged under every environment.
const DefaultsSection = "defaults"

// FileResolver reads YAML files made of a defaults section plus one section
// per environment.
type FileResolver struct {
	readFile func(name string) ([]byte, error)
}

// FileResolverOption configures a FileResolver.
type FileResolverOption func(*FileResolver)

// WithReadFile overrides how files are read, primarily for tests.
func WithReadFile(readFile func(name string) ([]byte, error)) FileResolverOption {
	return func(r *FileResolver) {
		r.readFile = readFile
	}
}

// NewFileResolver constructs a resolver reading from the local filesystem.
func NewFileResolver(opts ...FileResolverOption) *FileResolver {
	r := &FileResolver{readFile: os.ReadFile}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve merges the environment section of the file on top of its defaults
// section. Missing files are reported with the unwrapped filesystem error.
func (r *FileResolver) Resolve(d Descriptor, environment string) (map[string]any, error) {
	if d.Kind != KindFile {
		return nil, &UnsupportedSourceError{Kind: d.Kind}
	}

	data, err := r.readFile(d.Locator)
	if err != nil {
		if IsNotFound(err) {
			return nil, err
		}
		return nil, &SourceError{Locator: d.Locator, Err: err}
	}

	doc, err := parseDocument(data)
	if err != nil {
		return nil, &SourceError{Locator: d.Locator, Err: err}
	}

	defaults, err := section(doc, DefaultsSection)
	if err != nil {
		return nil, &SourceError{Locator: d.Locator, Err: err}
	}

	overlay := map[string]any{}
	if environment != "" {
		if overlay, err = section(doc, environment); err != nil {
			return nil, &SourceError{Locator: d.Locator, Err: err}
		}
	}

	return tree.DeepMerge(defaults, overlay), nil
}

func parseDocument(data []byte) (map[string]any, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if raw == nil {
		return map[string]any{}, nil
	}

	doc, ok := tree.FromAny(raw).Interface().(map[string]any)
	if !ok {
		return nil, errors.New("top level is not a mapping")
	}
	return doc, nil
}

func section(doc map[string]any, name string) (map[string]any, error) {
	raw, ok := doc[name]
	if !ok || raw == nil {
		return map[string]any{}, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("section %q is not a mapping", name)
	}
	return m, nil
}
