package carrier

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry manages registered carrier gateways.
type Registry struct {
	gateways map[string]Gateway
	mu       sync.RWMutex
}

// NewRegistry creates a new gateway registry.
func NewRegistry() *Registry {
	return &Registry{
		gateways: make(map[string]Gateway),
	}
}

// Register adds a gateway to the registry.
func (r *Registry) Register(g Gateway) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[g.Name()] = g
}

// Get returns a gateway by name.
func (r *Registry) Get(name string) (Gateway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if g, ok := r.gateways[name]; ok {
		return g, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrGatewayNotFound, name)
}

// Names returns the names of all registered gateways.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered gateways.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.gateways)
}

// TrackShipments fetches tracking for many waybills from one gateway in
// parallel. Individual failures don't fail the batch; they are returned
// alongside the successes so the dashboard can render both.
func (r *Registry) TrackShipments(ctx context.Context, name string, waybills []string) (map[string]*TrackResponse, []error) {
	g, err := r.Get(name)
	if err != nil {
		return nil, []error{err}
	}

	results := make(map[string]*TrackResponse, len(waybills))
	errs := make([]error, 0)
	mu := &sync.Mutex{}

	grp, ctx := errgroup.WithContext(ctx)

	for _, waybill := range waybills {
		grp.Go(func() error {
			resp, err := g.TrackShipment(ctx, waybill)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", waybill, err))
				return nil // don't fail the group, continue with other waybills
			}
			results[waybill] = resp
			return nil
		})
	}

	grp.Wait()
	return results, errs
}
