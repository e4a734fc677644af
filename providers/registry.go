package providers

import (
	"slices"

	svcerrors "github.com/paperledger/link-service/internal/errors"
)

// Registry maps provider kinds to their adapters.
type Registry struct {
	adapters map[Kind]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[Kind]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Kind()] = a
	}
	return r
}

func (r *Registry) Register(a Adapter) {
	r.adapters[a.Kind()] = a
}

// Get returns the adapter for kind or ErrNotFound.
func (r *Registry) Get(kind Kind) (Adapter, error) {
	a, ok := r.adapters[kind]
	if !ok {
		return nil, svcerrors.Wrapf(svcerrors.ErrNotFound, "no adapter registered for provider %q", kind)
	}
	return a, nil
}

// Kinds lists the registered provider kinds in stable order.
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.adapters))
	for k := range r.adapters {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}
