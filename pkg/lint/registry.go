package lint

import (
	"fmt"
	"sync"
)

// defaultRegistry is the process-wide registry used by the CLI.
var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Registry stores rules by name in insertion order. Rules are registered
// during startup; Freeze then turns every mutation into ErrRegistryFrozen
// so lint runs only ever read it.
type Registry struct {
	mu     sync.RWMutex
	rules  map[string]Rule
	order  []string
	frozen bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]Rule)}
}

// Register adds a rule, replacing any rule with the same name. A replaced
// rule keeps its original position.
func (r *Registry) Register(rule Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerLocked(rule)
}

func (r *Registry) registerLocked(rule Rule) error {
	if r.frozen {
		return fmt.Errorf("register %s: %w", rule.Name, ErrRegistryFrozen)
	}
	if _, ok := r.rules[rule.Name]; !ok {
		r.order = append(r.order, rule.Name)
	}
	r.rules[rule.Name] = rule
	return nil
}

// RegisterMany registers rules in order.
func (r *Registry) RegisterMany(rules ...Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rule := range rules {
		if err := r.registerLocked(rule); err != nil {
			return err
		}
	}
	return nil
}

// Get returns a rule by name.
func (r *Registry) Get(name string) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[name]
	return rule, ok
}

// GetAll returns all rules in insertion order.
func (r *Registry) GetAll() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rules := make([]Rule, 0, len(r.order))
	for _, name := range r.order {
		rules = append(rules, r.rules[name])
	}
	return rules
}

// GetNames returns all rule names in insertion order.
func (r *Registry) GetNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Has reports whether a rule is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rules[name]
	return ok
}

// Count returns the number of registered rules.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Unregister removes a rule and reports whether it was present.
func (r *Registry) Unregister(name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return false, fmt.Errorf("unregister %s: %w", name, ErrRegistryFrozen)
	}
	if _, ok := r.rules[name]; !ok {
		return false, nil
	}
	delete(r.rules, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// Clear removes all rules.
func (r *Registry) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return fmt.Errorf("clear: %w", ErrRegistryFrozen)
	}
	r.rules = make(map[string]Rule)
	r.order = nil
	return nil
}

// Freeze makes the registry read-only. It cannot be undone.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}
