package codec

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/trainbin/pkg/errors"
	"github.com/ajitpratap0/trainbin/pkg/logger"
)

// Factory creates a codec instance from its configuration
type Factory func(cfg Config) (DataSetCodec, error)

// Registry manages codec registration and instantiation
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// Global registry instance
var globalRegistry = NewRegistry()

// NewRegistry creates a new, empty codec registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register registers a codec factory under name
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return errors.Newf(errors.ErrorTypeConfig, "codec %s already registered", name)
	}

	r.factories[name] = factory
	logger.Debug("codec registered", zap.String("codec", name))
	return nil
}

// Create creates a codec instance
func (r *Registry) Create(name string, cfg Config) (DataSetCodec, error) {
	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.Newf(errors.ErrorTypeConfig, "codec %s not found", name).
			WithDetail("available", r.List())
	}

	c, err := factory(cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create codec "+name)
	}
	return c, nil
}

// List returns the registered codec names in sorted order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register registers a codec factory in the global registry
func Register(name string, factory Factory) error {
	return globalRegistry.Register(name, factory)
}

// Create creates a codec from the global registry
func Create(name string, cfg Config) (DataSetCodec, error) {
	return globalRegistry.Create(name, cfg)
}

// List returns the codecs in the global registry
func List() []string {
	return globalRegistry.List()
}
