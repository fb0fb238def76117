package returns

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store for tests and mock mode.
type MemoryStore struct {
	mu       sync.RWMutex
	requests map[string]*Request
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests: make(map[string]*Request),
	}
}

// Create persists a new request.
func (s *MemoryStore) Create(ctx context.Context, r *Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := cloneRequest(r)
	s.requests[r.ID] = cp
	return nil
}

// Get returns the request with the given ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	return cloneRequest(r), nil
}

// List returns matching requests plus the total match count.
func (s *MemoryStore) List(ctx context.Context, f Filter) ([]*Request, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*Request
	for _, r := range s.requests {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.Type != "" && r.Type != f.Type {
			continue
		}
		if f.BrandID != "" && r.BrandID != f.BrandID {
			continue
		}
		if f.UserID != "" && r.UserID != f.UserID {
			continue
		}
		if f.OrderID != "" && r.OrderID != f.OrderID {
			continue
		}
		matched = append(matched, cloneRequest(r))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	count := len(matched)
	start := f.Offset
	if start > count {
		return nil, count, nil
	}
	end := count
	if f.Limit > 0 && start+f.Limit < end {
		end = start + f.Limit
	}
	return matched[start:end], count, nil
}

// TransitionStatus atomically moves the request between statuses.
func (s *MemoryStore) TransitionStatus(ctx context.Context, id string, from, to Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return ErrRequestNotFound
	}
	if r.Status != from {
		return ErrStatusConflict
	}
	r.Status = to
	return nil
}

// AttachShipment records the carrier waybill on an approved request.
func (s *MemoryStore) AttachShipment(ctx context.Context, id, waybill string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return ErrRequestNotFound
	}
	if r.Status != StatusApproved {
		return ErrStatusConflict
	}
	r.ShipmentID = waybill
	return nil
}

// ListUnfulfilled returns approved requests without a waybill.
func (s *MemoryStore) ListUnfulfilled(ctx context.Context) ([]*Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*Request
	for _, r := range s.requests {
		if r.Status == StatusApproved && r.ShipmentID == "" {
			result = append(result, cloneRequest(r))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func cloneRequest(r *Request) *Request {
	cp := *r
	cp.Images = append([]string(nil), r.Images...)
	return &cp
}

var _ Store = (*MemoryStore)(nil)
