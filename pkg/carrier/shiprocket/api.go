package shiprocket

import (
	"context"
)

// APIClient defines the interface for Shiprocket API operations.
// This abstraction allows for mock implementations during testing
// and real implementations in production.
type APIClient interface {
	// CreateOrder books a shipment (forward or reverse) and assigns an AWB
	CreateOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error)

	// CreateReturnOrder marks an existing AWB as return-to-origin and
	// books the reverse leg
	CreateReturnOrder(ctx context.Context, req *ReturnOrderRequest) (*OrderResponse, error)

	// GeneratePickup schedules a courier pickup
	GeneratePickup(ctx context.Context, req *PickupRequest) (*PickupResponse, error)

	// TrackAWB retrieves tracking information for a waybill
	TrackAWB(ctx context.Context, awb string) (*TrackingResponse, error)

	// GenerateLabel retrieves the shipping label for a waybill
	GenerateLabel(ctx context.Context, awb string) (*LabelResponse, error)
}

// ============================================================================
// API Request/Response Types (match Shiprocket REST API structure)
// ============================================================================

// AddressPayload represents a pickup or delivery address.
type AddressPayload struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address"`
	Address2 string `json:"address_2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
	Country string `json:"country"`
}

// ParcelPayload represents the physical package of a shipment.
type ParcelPayload struct {
	Length       float64 `json:"length"`  // cm
	Breadth      float64 `json:"breadth"` // cm
	Height       float64 `json:"height"`  // cm
	Weight       float64 `json:"weight"`  // kg
	IsFragile    bool    `json:"is_fragile,omitempty"`
	SelfPackaged bool    `json:"self_packaged,omitempty"`
	Description  string  `json:"description,omitempty"`
}

// OrderRequest represents a shipment creation request.
// POST /orders/create/adhoc
type OrderRequest struct {
	OrderID       string         `json:"order_id"` // merchant reference, used for deduplication
	OrderDate     string         `json:"order_date"` // YYYY-MM-DD
	IsReturnOrder bool           `json:"is_return_order,omitempty"`
	PaymentMethod string         `json:"payment_method"` // "Prepaid" or "COD"
	CODAmount     float64        `json:"cod_amount,omitempty"`
	Pickup        AddressPayload `json:"pickup_address"`
	Delivery      AddressPayload `json:"delivery_address"`
	Parcel        ParcelPayload  `json:"parcel"`
}

// ReturnOrderRequest marks a forward shipment RTO.
// POST /orders/create/return
type ReturnOrderRequest struct {
	AWBCode string `json:"awb_code"`
	Reason  string `json:"reason,omitempty"`
}

// OrderResponse represents the synchronous booking result.
type OrderResponse struct {
	OrderID       string `json:"order_id"`
	ShipmentID    string `json:"shipment_id"`
	AWBCode       string `json:"awb_code"`
	CourierName   string `json:"courier_name,omitempty"`
	Status        string `json:"status"`
	LabelURL      string `json:"label_url,omitempty"`
	AlreadyExists bool   `json:"already_exists,omitempty"` // order_id matched a prior booking
}

// PickupRequest schedules a courier pickup.
// POST /courier/generate/pickup
type PickupRequest struct {
	ShipmentIDs          []string       `json:"shipment_id,omitempty"`
	PickupDate           string         `json:"pickup_date"` // YYYY-MM-DD
	ExpectedPackageCount int            `json:"expected_package_count"`
	Address              AddressPayload `json:"address"`
	PickupLocation       string         `json:"pickup_location,omitempty"` // registered location label
}

// PickupResponse acknowledges a pickup booking.
type PickupResponse struct {
	PickupStatus      int    `json:"pickup_status"` // 1 = scheduled
	PickupTokenNumber string `json:"pickup_token_number,omitempty"`
	Message           string `json:"message,omitempty"`
}

// TrackingResponse represents tracking information.
// GET /courier/track/awb/{awb}
type TrackingResponse struct {
	AWBCode        string          `json:"awb_code"`
	CurrentStatus  string          `json:"current_status"`
	TrackActivities []TrackActivity `json:"track_activities"`
}

// TrackActivity represents a single tracking scan.
type TrackActivity struct {
	Date     string `json:"date"` // RFC3339
	Activity string `json:"activity"`
	Location string `json:"location"`
	Status   string `json:"sr-status-label"`
}

// LabelResponse represents the label generation result.
// POST /courier/generate/label
type LabelResponse struct {
	LabelCreated int    `json:"label_created"` // 1 = created
	LabelURL     string `json:"label_url"`
}

// APIError represents an error from the Shiprocket API.
type APIError struct {
	StatusCode int                 `json:"status_code"`
	Message    string              `json:"message"`
	Errors     map[string][]string `json:"errors,omitempty"` // field-level errors
}

func (e *APIError) Error() string {
	return e.Message
}
