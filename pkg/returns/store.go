package returns

import (
	"context"
)

// Store is the storage interface for return/replace requests.
//
// The status field is the single point of mutual exclusion: every status
// writer goes through TransitionStatus, a compare-and-set that only moves
// the request if it is still in the expected prior state. There is no
// blind status overwrite.
type Store interface {
	// Create persists a new request.
	Create(ctx context.Context, r *Request) error

	// Get returns the request with the given ID, or ErrRequestNotFound.
	Get(ctx context.Context, id string) (*Request, error)

	// List returns matching requests plus the total match count
	// (ignoring pagination).
	List(ctx context.Context, f Filter) ([]*Request, int, error)

	// TransitionStatus atomically moves the request from the expected
	// prior status to the new one. Returns ErrStatusConflict if the
	// request is no longer in the expected state, so that two concurrent
	// transitions resolve to exactly one winner.
	TransitionStatus(ctx context.Context, id string, from, to Status) error

	// AttachShipment records the carrier waybill on an approved request.
	AttachShipment(ctx context.Context, id, waybill string) error

	// ListUnfulfilled returns approved requests that still have no
	// waybill: the "business decision made, logistics not yet realized"
	// set the administrator retries from.
	ListUnfulfilled(ctx context.Context) ([]*Request, error)
}
