package dict

import (
	"fmt"
	"path/filepath"
	"sync"
)

var dictionaryFiles = map[string]string{
	"FIX.4.2": "FIX42.xml",
	"FIX.4.4": "FIX44.xml",
}

// Registry resolves dictionaries by BeginString and caches them, loading
// each version at most once even under concurrent first access.
type Registry struct {
	dir string

	mu    sync.Mutex
	cache map[string]*Dictionary
}

func NewRegistry(dir string) *Registry {
	return &Registry{
		dir:   dir,
		cache: make(map[string]*Dictionary),
	}
}

func (registry *Registry) Resolve(beginString string) (*Dictionary, error) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	if d, ok := registry.cache[beginString]; ok {
		return d, nil
	}

	filename, ok := dictionaryFiles[beginString]
	if !ok {
		return nil, fmt.Errorf("no dictionary found for BeginString %s", beginString)
	}

	d, err := Load(filepath.Join(registry.dir, filename))
	if err != nil {
		return nil, err
	}
	registry.cache[beginString] = d
	return d, nil
}
