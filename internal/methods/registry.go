package methods

import (
	"sort"
	"sync"

	"rpcbatch/internal/batcher"
)

// Registry holds method descriptors by name
type Registry struct {
	methods map[string]*batcher.Method
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		methods: make(map[string]*batcher.Method),
	}
}

// NewDefaultRegistry creates a registry with the built-in formatters
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for name, formatter := range builtinFormatters {
		r.Register(&batcher.Method{Name: name, OutputFormatter: formatter})
	}
	return r
}

// Register adds or replaces a descriptor
func (r *Registry) Register(m *batcher.Method) {
	r.mu.Lock()
	r.methods[m.Name] = m
	r.mu.Unlock()
}

// SetFormatter replaces the formatter of a method, registering it if needed
func (r *Registry) SetFormatter(name string, formatter batcher.OutputFormatter) {
	r.Register(&batcher.Method{Name: name, OutputFormatter: formatter})
}

// Get returns the descriptor for name.
// Unknown methods get a descriptor without a formatter.
func (r *Registry) Get(name string) *batcher.Method {
	r.mu.RLock()
	m, ok := r.methods[name]
	r.mu.RUnlock()

	if !ok {
		return &batcher.Method{Name: name}
	}
	return m
}

// Names returns registered method names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
