package strategy

import (
	"fmt"
	"sort"
)

// Factory builds a fresh strategy instance for one instrument. Workers never
// share instances, so a factory must not return the same value twice.
type Factory func(symbol string) (Strategy, error)

// Registry maps strategy names to factories. It is built at startup and
// handed to the orchestrator explicitly; there is no process-wide registry.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty strategy registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name. Registering the same name twice is an
// error so wiring mistakes surface at startup.
func (r *Registry) Register(name string, f Factory) error {
	if name == "" {
		return fmt.Errorf("strategy name must not be empty")
	}
	if f == nil {
		return fmt.Errorf("strategy %q: nil factory", name)
	}
	if _, dup := r.factories[name]; dup {
		return fmt.Errorf("strategy %q already registered", name)
	}
	r.factories[name] = f
	return nil
}

// Get returns the factory registered under name.
func (r *Registry) Get(name string) (Factory, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (available: %v)", name, r.Names())
	}
	return f, nil
}

// Names returns all registered strategy names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
