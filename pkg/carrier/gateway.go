// Package carrier provides an abstraction layer over third-party
// logistics providers.
package carrier

import (
	"context"
)

// Gateway defines the operations the fulfillment orchestrator and the
// dashboard surfaces require from a logistics provider. Implementations
// must apply a bounded timeout to every call.
type Gateway interface {
	// Name returns the provider identifier (e.g., "shiprocket").
	Name() string

	// CreateShipment books a forward or reverse shipment and returns its
	// waybill synchronously. The request's OrderRef is used as an
	// idempotency key: a retried create for the same reference must not
	// produce a second shipment.
	CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error)

	// CreateReturnShipment marks an existing forward shipment as
	// return-to-origin and returns the reverse waybill.
	CreateReturnShipment(ctx context.Context, originalWaybill, reason string) (*ShipmentResponse, error)

	// SchedulePickup books a pickup at the given location. Best-effort:
	// callers must not treat a pickup failure as a shipment failure.
	SchedulePickup(ctx context.Context, req *PickupRequest) (*PickupResponse, error)

	// TrackShipment returns the current status of a waybill.
	TrackShipment(ctx context.Context, waybill string) (*TrackResponse, error)

	// GetLabel retrieves the shipping label for a waybill.
	GetLabel(ctx context.Context, waybill string) (*LabelResponse, error)
}
