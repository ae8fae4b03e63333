package emit

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func() Emitter)
)

// Register adds an emitter constructor under its target name. Target
// packages register themselves from init; duplicate names panic because
// they are a programming error, not an input error.
func Register(name string, construct func() Emitter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("emit: target %q registered twice", name))
	}
	registry[name] = construct
}

// New constructs the emitter for a target name.
func New(name string) (Emitter, error) {
	registryMu.RLock()
	construct, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown target %q (known: %v)", name, Targets())
	}
	return construct(), nil
}

// Targets returns the registered target names, sorted.
func Targets() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
