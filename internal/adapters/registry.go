package adapters

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory builds a fresh adapter instance. The trial runner calls the
// factory once per trial so no SDK handle is shared across trials.
type Factory func() (Adapter, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		"openai":    func() (Adapter, error) { return NewOpenAIAdapter(), nil },
		"anthropic": func() (Adapter, error) { return NewAnthropicAdapter(), nil },
	}
)

// Register adds or replaces a named adapter factory. Host code uses this to
// plug in custom providers beyond the builtins.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(name)] = factory
}

// New resolves an adapter by registered name and returns a fresh instance.
func New(name string) (Adapter, error) {
	registryMu.RLock()
	factory, ok := registry[strings.ToLower(name)]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown adapter %q; available adapters: %s (custom adapters register via adapters.Register)",
			name, strings.Join(Names(), ", "))
	}
	return factory()
}

// Names lists the registered adapter names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
