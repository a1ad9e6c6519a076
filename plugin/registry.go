// Package plugin is the table of plugin names a site configuration may
// reference, mapped to factories for their configuration loaders.
//
// Packages register their loaders from init, the same way database/sql
// drivers do; importing the package is enough to make the name resolvable.
package plugin

import (
	"fmt"
	"sort"
	"sync"

	"github.com/minios-linux/i18ncompat/i18nconfig"
	"github.com/minios-linux/i18ncompat/plugincfg"
)

// Name is the plugin name of the current i18n plugin.
const Name = "i18n"

// ConfigLoader turns raw plugin options into a validated configuration.
// filePath is context for error messages and may be empty.
type ConfigLoader interface {
	LoadConfig(opts *plugincfg.Options, filePath string) (*i18nconfig.Config, error)
}

// Factory creates a ConfigLoader.
type Factory func() ConfigLoader

var (
	mu       sync.RWMutex
	registry = make(map[string]Factory)
)

func init() {
	Register(Name, func() ConfigLoader { return i18nconfig.Loader{} })
}

// Register makes a loader available under name.
// It panics if name is empty, f is nil or name is already registered.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if name == "" {
		panic("plugin: Register with empty name")
	}
	if f == nil {
		panic("plugin: Register factory is nil for " + name)
	}
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("plugin: Register called twice for %q", name))
	}
	registry[name] = f
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, bool) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// Names returns the registered names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// unregister removes name; tests only.
func unregister(name string) {
	mu.Lock()
	defer mu.Unlock()
	delete(registry, name)
}
