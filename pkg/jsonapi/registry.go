package jsonapi

import (
	"fmt"
	"log/slog"
	"sync"
)

// Factory builds the data manager for an object.
type Factory func(obj Object, sec Security) (DataManager, error)

// Registry selects a data manager by the technology of an object.
type Registry struct {
	mu        sync.RWMutex
	factories map[Technology]Factory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[Technology]Factory),
	}
}

// NewDefaultRegistry creates a registry with the four built-in data managers.
func NewDefaultRegistry(resolver FieldResolver, adapter FieldAdapter, logger *slog.Logger) *Registry {
	r := NewRegistry()

	r.Register(TechnologyCatalog, func(obj Object, sec Security) (DataManager, error) {
		src, ok := obj.(AttributeSource)
		if !ok {
			return nil, fmt.Errorf("%w: %T does not expose attributes", ErrNoDataManager, obj)
		}
		return NewCatalogDataManager(src, logger), nil
	})

	r.Register(TechnologyPortal, func(obj Object, sec Security) (DataManager, error) {
		portal, ok := obj.(ItemAssigner)
		if !ok {
			return nil, fmt.Errorf("%w: %T does not support item assignment", ErrNoDataManager, obj)
		}
		return NewPortalDataManager(portal, sec), nil
	})

	r.Register(TechnologyTyped, func(obj Object, sec Security) (DataManager, error) {
		return NewTypedDataManager(obj, resolver, adapter, sec), nil
	})

	r.Register(TechnologyStructured, func(obj Object, sec Security) (DataManager, error) {
		return NewStructuredDataManager(obj, resolver, adapter, sec), nil
	})

	return r
}

// Register installs the factory for a technology, replacing any previous one
func (r *Registry) Register(tech Technology, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[tech] = factory
}

// DataManager returns a data manager for obj bound to sec.
func (r *Registry) DataManager(obj Object, sec Security) (DataManager, error) {
	if obj == nil {
		return nil, fmt.Errorf("%w: nil object", ErrNoDataManager)
	}

	r.mu.RLock()
	factory, ok := r.factories[obj.Technology()]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: technology %q", ErrNoDataManager, obj.Technology())
	}
	return factory(obj, sec)
}
