package amount

import (
	"fmt"
	"sync"
)

// Registry emite y resuelve brands por nombre. Es el análogo local de una
// tabla de issuers: la persistencia serializa amounts por nombre de brand y
// necesita el registry para reatarlos a identidades vivas al restaurar.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Brand
}

// NewRegistry crea un registry vacío.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Brand)}
}

// NewBrand registra un brand nuevo. El nombre debe ser único en el registry.
func (r *Registry) NewBrand(name string, kind Kind) (*Brand, error) {
	if name == "" {
		return nil, fmt.Errorf("brand name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; ok {
		return nil, fmt.Errorf("brand %q already registered", name)
	}
	b := &Brand{name: name, kind: kind}
	r.byName[name] = b
	return b, nil
}

// Lookup resuelve un brand por nombre.
func (r *Registry) Lookup(name string) (*Brand, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byName[name]
	return b, ok
}

// Names retorna los nombres registrados (sin orden garantizado).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, n)
	}
	return out
}
