package strategy

import (
	"sort"
	"sync"

	"github.com/rxtech-lab/argo-quant/pkg/errors"
)

// Factory constructs a fresh, uninitialized strategy instance. Each backtest
// gets its own instance so runs never share strategy state.
type Factory func() Strategy

// Registry maps strategy names to factories. It is an explicit dependency:
// callers construct one and hand it to whatever needs strategy lookup, there
// is no package-level instance.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a registry pre-populated with the builtin strategies.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register("sma_crossover", func() Strategy { return NewSMACrossoverStrategy() })
	r.Register("rsi_reversal", func() Strategy { return NewRSIReversalStrategy() })
	return r
}

// Register adds or replaces a strategy factory under the given name.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Create builds a new instance of the named strategy.
func (r *Registry) Create(name string) (Strategy, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Newf(errors.ErrCodeStrategyNotFound, "strategy %q is not registered", name)
	}
	return factory(), nil
}

// Names returns the registered strategy names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
