package llm

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ProviderFactory builds a provider from its own environment configuration.
type ProviderFactory func() (Provider, error)

var (
	registryMu sync.RWMutex
	providers  = make(map[string]ProviderFactory)
)

// RegisterProvider makes a provider available by name. Provider packages call
// it from init; registering a name twice panics.
func RegisterProvider(name string, factory ProviderFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if factory == nil {
		panic("llm: RegisterProvider factory is nil")
	}
	if _, dup := providers[name]; dup {
		panic("llm: RegisterProvider called twice for " + name)
	}
	providers[name] = factory
}

// Providers lists registered provider names, sorted.
func Providers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func NewProvider(name string) (Provider, error) {
	registryMu.RLock()
	factory, exists := providers[name]
	registryMu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("unsupported provider %q (registered: %s)", name, strings.Join(Providers(), ", "))
	}
	return factory()
}
