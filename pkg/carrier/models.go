package carrier

import (
	"time"
)

// ShipmentKind distinguishes the two reverse-logistics legs.
type ShipmentKind string

const (
	// KindForward is a regular outbound shipment, including the fresh
	// outbound leg of a replacement.
	KindForward ShipmentKind = "forward"
	// KindRTO is a return-to-origin shipment bringing an item back to
	// the seller.
	KindRTO ShipmentKind = "rto"
)

// PaymentMode is how the shipment is paid for.
type PaymentMode string

const (
	PaymentPrepaid PaymentMode = "prepaid"
	PaymentCOD     PaymentMode = "cod"
)

// ShipmentStatus is the normalized status of a shipment.
type ShipmentStatus string

const (
	StatusPending        ShipmentStatus = "pending"
	StatusConfirmed      ShipmentStatus = "confirmed"
	StatusPickedUp       ShipmentStatus = "picked_up"
	StatusInTransit      ShipmentStatus = "in_transit"
	StatusOutForDelivery ShipmentStatus = "out_for_delivery"
	StatusDelivered      ShipmentStatus = "delivered"
	StatusRTOInitiated   ShipmentStatus = "rto_initiated"
	StatusRTODelivered   ShipmentStatus = "rto_delivered"
	StatusCancelled      ShipmentStatus = "cancelled"
	StatusException      ShipmentStatus = "exception"
)

// Address is a pickup or delivery location with the contact details the
// carrier requires.
type Address struct {
	Name    string
	Phone   string
	Email   string
	Line1   string
	Line2   string
	City    string
	State   string
	Pincode string
	Country string // ISO 3166-1 alpha-2
}

// Package is the single physical parcel of a shipment.
type Package struct {
	Length       float64 // cm
	Width        float64 // cm
	Height       float64 // cm
	WeightKg     float64
	Fragile      bool
	SelfPackaged bool // item ships in its own packaging, no box of ours
	Description  string
}

// ShipmentRequest books one shipment leg.
type ShipmentRequest struct {
	Kind        ShipmentKind
	OrderRef    string // idempotency key, unique per request being fulfilled
	Consignee   Address
	Origin      Address
	Package     Package
	PaymentMode PaymentMode
	CODAmount   float64 // only meaningful for PaymentCOD
}

// ShipmentResponse is the synchronous booking result.
type ShipmentResponse struct {
	Waybill    string
	Kind       ShipmentKind
	Status     ShipmentStatus
	Carrier    string
	CourierID  string // carrier-internal shipment identifier, if distinct
	LabelURL   string
	BookedAt   time.Time
	Duplicated bool // the carrier recognized the OrderRef and returned the earlier booking
}

// PickupRequest schedules a pickup.
type PickupRequest struct {
	Location      Address
	Date          time.Time
	PackageCount  int
	LocationLabel string // carrier-registered pickup location name, if any
}

// PickupResponse acknowledges a pickup booking.
type PickupResponse struct {
	Confirmed bool
	PickupID  string
	Message   string
}

// TrackResponse is the read-only tracking view of a waybill.
type TrackResponse struct {
	Waybill string
	Status  ShipmentStatus
	Events  []TrackingEvent
}

// TrackingEvent is a single scan in a shipment's history.
type TrackingEvent struct {
	Timestamp   time.Time
	Description string
	Location    string
	Status      ShipmentStatus
}

// LabelResponse carries the label document for a waybill.
type LabelResponse struct {
	Waybill string
	URL     string
}
