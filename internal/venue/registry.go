package venue

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages the set of configured venue adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	configs  map[string]Config
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
		configs:  make(map[string]Config),
	}
}

// Add registers an adapter with its configuration.
func (r *Registry) Add(cfg Config, adapter Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.adapters[cfg.Name]; exists {
		return fmt.Errorf("venue %s already registered", cfg.Name)
	}

	r.adapters[cfg.Name] = adapter
	r.configs[cfg.Name] = cfg
	return nil
}

// Get returns the adapter for a venue.
func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, exists := r.adapters[name]
	if !exists {
		return nil, fmt.Errorf("venue %s not found", name)
	}
	return adapter, nil
}

// Config returns the configuration for a venue.
func (r *Registry) Config(name string) (Config, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, exists := r.configs[name]
	return cfg, exists
}

// Names returns all registered venue names in stable order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Remove deregisters a venue.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.adapters[name]; !exists {
		return fmt.Errorf("venue %s not found", name)
	}

	delete(r.adapters, name)
	delete(r.configs, name)
	return nil
}
