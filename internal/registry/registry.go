package registry

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/settingstree/internal/source"
	"github.com/eugenenazirov/settingstree/internal/tree"
)

type group struct {
	name    string
	sources []source.Descriptor
	data    tree.Value
	loaded  bool
}

// Registry keeps settings groups and the active environment. All methods are
// safe for concurrent use; a single lock serialises writers.
type Registry struct {
	mu          sync.RWMutex
	groups      map[string]*group
	order       []string
	environment string

	resolver source.Resolver
	logger   *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for registration and reload events.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithResolver overrides the source resolver (primarily for tests).
func WithResolver(resolver source.Resolver) Option {
	return func(r *Registry) {
		if resolver != nil {
			r.resolver = resolver
		}
	}
}

// WithEnvironment sets the initial active environment.
func WithEnvironment(env string) Option {
	return func(r *Registry) {
		r.environment = env
	}
}

// New constructs an empty registry reading file sources from disk.
func New(opts ...Option) *Registry {
	r := &Registry{
		groups:   make(map[string]*group),
		resolver: source.NewFileResolver(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NormalizeName returns the canonical form of a group name: surrounding
// whitespace trimmed and case folded.
func NormalizeName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

func canonicalName(name string) (string, error) {
	key := NormalizeName(name)
	if key == "" {
		return "", ErrInvalidGroupName
	}
	return key, nil
}

// RegisterFile registers a YAML file as a source of the named group.
func (r *Registry) RegisterFile(name, path string) (bool, error) {
	return r.RegisterSource(name, source.File(path))
}

// RegisterSource appends d to the sources of the named group, creating the
// group when needed, and reloads the group. Registering a source the group
// already has is a no-op reporting false. When the reload fails the source is
// dropped again and the error is returned as produced by the resolver; a group
// created by this call is kept.
func (r *Registry) RegisterSource(name string, d source.Descriptor) (bool, error) {
	key, err := canonicalName(name)
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[key]
	if !ok {
		g = &group{name: key}
		r.groups[key] = g
		r.order = append(r.order, key)
	}

	if slices.Contains(g.sources, d) {
		r.logger.Debug("settings source already registered",
			zap.String("group", key),
			zap.Stringer("source", d),
		)
		return false, nil
	}

	g.sources = append(g.sources, d)
	if err := r.reloadLocked(g); err != nil {
		g.sources = g.sources[:len(g.sources)-1]
		return false, err
	}

	r.logger.Info("settings source registered",
		zap.String("group", key),
		zap.Stringer("source", d),
		zap.Int("sources", len(g.sources)),
	)
	return true, nil
}

// ReloadGroup re-resolves and re-merges every source of the named group.
func (r *Registry) ReloadGroup(name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, err := r.lookupLocked(name)
	if err != nil {
		return false, err
	}
	if err := r.reloadLocked(g); err != nil {
		return false, err
	}
	return true, nil
}

// ReloadAll reloads every group in registration order and stops at the first
// failure; later groups are left as they were.
func (r *Registry) ReloadAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.reloadAllLocked()
}

// SetEnvironment changes the active environment and reloads every group. An
// empty env disables environment sections. The new environment is kept even
// when the reload fails.
func (r *Registry) SetEnvironment(env string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.environment
	r.environment = env
	r.logger.Info("settings environment changed",
		zap.String("environment", env),
		zap.String("previous", previous),
	)
	return r.reloadAllLocked()
}

// Environment returns the active environment, empty when none is set.
func (r *Registry) Environment() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.environment
}

// Reset forgets every group and clears the active environment.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.groups = make(map[string]*group)
	r.order = nil
	r.environment = ""
}

// Settings returns the merged settings of the named group. A group that was
// never loaded successfully yields an empty mapping.
func (r *Registry) Settings(name string) (tree.Value, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, err := r.lookupLocked(name)
	if err != nil {
		return tree.Value{}, err
	}
	return settingsOf(g), nil
}

// Lookup returns the value at a dotted path inside the named group. Unknown
// paths yield an Absent value, not an error.
func (r *Registry) Lookup(name, path string) (tree.Value, error) {
	settings, err := r.Settings(name)
	if err != nil {
		return tree.Value{}, err
	}
	return settings.Lookup(path), nil
}

// Groups returns the canonical group names in registration order.
func (r *Registry) Groups() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.order)
}

// Sources returns a copy of the sources of the named group in merge order.
func (r *Registry) Sources(name string) ([]source.Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, err := r.lookupLocked(name)
	if err != nil {
		return nil, err
	}
	return slices.Clone(g.sources), nil
}

// Dump writes every group as one YAML document keyed by group name, in
// registration order.
func (r *Registry) Dump(w io.Writer) error {
	r.mu.RLock()
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, name := range r.order {
		var value yaml.Node
		if err := value.Encode(settingsOf(r.groups[name])); err != nil {
			r.mu.RUnlock()
			return fmt.Errorf("encode group %q: %w", name, err)
		}
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name},
			&value,
		)
	}
	r.mu.RUnlock()

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("write settings dump: %w", err)
	}
	return enc.Close()
}

func (r *Registry) lookupLocked(name string) (*group, error) {
	g, ok := r.groups[NormalizeName(name)]
	if !ok {
		return nil, &UnknownGroupError{Name: name}
	}
	return g, nil
}

func (r *Registry) reloadAllLocked() error {
	for _, name := range r.order {
		if err := r.reloadLocked(r.groups[name]); err != nil {
			return err
		}
	}
	return nil
}

// reloadLocked replaces g.data only after every source resolved.
func (r *Registry) reloadLocked(g *group) error {
	merged := make(map[string]any)
	for _, d := range g.sources {
		data, err := r.resolver.Resolve(d, r.environment)
		if err != nil {
			r.logger.Warn("settings reload failed",
				zap.String("group", g.name),
				zap.Stringer("source", d),
				zap.String("environment", r.environment),
				zap.Error(err),
			)
			return err
		}
		merged = tree.DeepMerge(merged, data)
	}

	g.data = tree.FromMap(merged)
	g.loaded = true

	r.logger.Info("settings group reloaded",
		zap.String("group", g.name),
		zap.Int("sources", len(g.sources)),
		zap.String("environment", r.environment),
	)
	return nil
}

func settingsOf(g *group) tree.Value {
	if !g.loaded {
		return tree.EmptyMapping()
	}
	return g.data
}
