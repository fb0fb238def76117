package returns

import (
	"time"

	"github.com/knitkart/fulfillment/pkg/packing"
)

// RequestType is what the customer asked for.
type RequestType string

const (
	// TypeReturn sends the item back to the seller.
	TypeReturn RequestType = "return"
	// TypeReplace sends the customer a fresh unit of a chosen variant.
	TypeReplace RequestType = "replace"
)

// Status is the request lifecycle state. The only legal transitions are
// pending to approved and pending to rejected; both are terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Request is a persisted customer return-or-replace request. Once the
// status leaves pending the record is immutable, except for the waybill
// the orchestrator attaches after carrier fulfillment.
type Request struct {
	ID           string
	OrderID      string
	OrderItemID  string
	UserID       string
	BrandID      string
	Type         RequestType
	NewVariantID string // set only for replace requests
	Reason       string
	Comment      string
	Images       []string // uploaded-evidence URLs, opaque to this core
	Status       Status
	ShipmentID   string // carrier waybill, set by the orchestrator on fulfillment
	CreatedAt    time.Time
}

// Fulfilled reports whether the carrier leg has completed for an
// approved request.
func (r *Request) Fulfilled() bool {
	return r.Status == StatusApproved && r.ShipmentID != ""
}

// SubmitInput is the customer submission payload.
type SubmitInput struct {
	OrderID      string      `validate:"required"`
	OrderItemID  string      `validate:"required"`
	UserID       string      `validate:"required"`
	BrandID      string      `validate:"required"`
	Type         RequestType `validate:"required,oneof=return replace"`
	NewVariantID string      `validate:"required_if=Type replace,excluded_unless=Type replace"`
	Reason       string
	Comment      string
	Images       []string
}

// Filter narrows a request listing.
type Filter struct {
	Status  Status
	Type    RequestType
	BrandID string
	UserID  string
	OrderID string
	Limit   int
	Offset  int
}

// ItemInfo is what the orchestrator needs to know about the physical item
// being shipped: its product type for packaging resolution, its declared
// package size, and its weight.
type ItemInfo struct {
	ProductTypeID string
	Declared      *packing.Dimensions
	WeightKg      float64
	Description   string
}
