package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/MrSnakeDoc/muster/internal/domain"
)

// ErrDuplicateService is returned when two descriptions share a name.
var ErrDuplicateService = errors.New("duplicate service name")

// Registry holds one runtime record per service description, keyed by name.
// Entries are written once and never removed; the records mutate in place.
type Registry struct {
	mu       sync.RWMutex
	services map[string]*domain.Service // name -> Service
	order    []*domain.Service          // insertion order
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		services: make(map[string]*domain.Service),
	}
}

// FromDescriptions registers every description in order. On the first
// invalid or duplicate description it fails and returns no registry at all.
func FromDescriptions(descs []domain.ServiceDescription) (*Registry, error) {
	r := New()
	for _, d := range descs {
		if _, err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register validates a description, then creates and stores its runtime record.
func (r *Registry) Register(desc domain.ServiceDescription) (*domain.Service, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[desc.Name]; exists {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateService, desc.Name)
	}

	svc := domain.NewService(desc)
	r.services[desc.Name] = svc
	r.order = append(r.order, svc)
	return svc, nil
}

// Get retrieves a service by name.
func (r *Registry) Get(name string) (*domain.Service, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	svc, ok := r.services[name]
	return svc, ok
}

// All returns every service in insertion order.
func (r *Registry) All() []*domain.Service {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Service, len(r.order))
	copy(out, r.order)
	return out
}

// Count returns the number of registered services.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}

// BindableNames returns the names of the services counted by the readiness gate.
func (r *Registry) BindableNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for _, svc := range r.order {
		if svc.Description.Bindable() {
			names = append(names, svc.Name())
		}
	}
	return names
}
