// Package mock provides a mock carrier gateway for testing.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/knitkart/fulfillment/pkg/carrier"
)

// Client is a mock carrier gateway. It remembers bookings by OrderRef so
// a retried create returns the same waybill, like a real carrier with an
// idempotency key.
type Client struct {
	name string

	mu       sync.Mutex
	bookings map[string]*carrier.ShipmentResponse

	// FailCreates makes shipment creation fail with a retryable error,
	// simulating an unreachable carrier.
	FailCreates bool
	// FailPickups makes pickup scheduling fail.
	FailPickups bool
}

// New creates a new mock gateway.
func New(name string) *Client {
	return &Client{
		name:     name,
		bookings: make(map[string]*carrier.ShipmentResponse),
	}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return c.name
}

// CreateShipment books a mock shipment.
func (c *Client) CreateShipment(ctx context.Context, req *carrier.ShipmentRequest) (*carrier.ShipmentResponse, error) {
	if c.FailCreates {
		return nil, carrier.NewError(c.name, "CARRIER_UNAVAILABLE", "simulated outage").WithRetryable(true)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if prior, ok := c.bookings[req.OrderRef]; ok {
		dup := *prior
		dup.Duplicated = true
		return &dup, nil
	}

	resp := &carrier.ShipmentResponse{
		Waybill:  fmt.Sprintf("%s-awb-%d", c.name, time.Now().UnixNano()),
		Kind:     req.Kind,
		Status:   carrier.StatusConfirmed,
		Carrier:  c.name,
		LabelURL: fmt.Sprintf("https://labels.%s.mock/%s.pdf", c.name, req.OrderRef),
		BookedAt: time.Now().UTC(),
	}
	c.bookings[req.OrderRef] = resp
	return resp, nil
}

// CreateReturnShipment creates a mock reverse waybill.
func (c *Client) CreateReturnShipment(ctx context.Context, originalWaybill, reason string) (*carrier.ShipmentResponse, error) {
	if c.FailCreates {
		return nil, carrier.NewError(c.name, "CARRIER_UNAVAILABLE", "simulated outage").WithRetryable(true)
	}

	return &carrier.ShipmentResponse{
		Waybill:  fmt.Sprintf("%s-rto-%d", c.name, time.Now().UnixNano()),
		Kind:     carrier.KindRTO,
		Status:   carrier.StatusRTOInitiated,
		Carrier:  c.name,
		BookedAt: time.Now().UTC(),
	}, nil
}

// SchedulePickup books a mock pickup.
func (c *Client) SchedulePickup(ctx context.Context, req *carrier.PickupRequest) (*carrier.PickupResponse, error) {
	if c.FailPickups {
		return nil, carrier.NewError(c.name, "PICKUP_UNAVAILABLE", "no pickup slots").WithRetryable(true)
	}

	return &carrier.PickupResponse{
		Confirmed: true,
		PickupID:  fmt.Sprintf("PICKUP-%d", time.Now().UnixNano()%1000000),
		Message:   "pickup scheduled",
	}, nil
}

// TrackShipment returns mock tracking.
func (c *Client) TrackShipment(ctx context.Context, waybill string) (*carrier.TrackResponse, error) {
	now := time.Now()
	return &carrier.TrackResponse{
		Waybill: waybill,
		Status:  carrier.StatusInTransit,
		Events: []carrier.TrackingEvent{
			{
				Timestamp:   now.Add(-24 * time.Hour),
				Description: "Shipment picked up",
				Location:    "Mumbai",
				Status:      carrier.StatusPickedUp,
			},
			{
				Timestamp:   now.Add(-2 * time.Hour),
				Description: "In transit",
				Location:    "Bhiwandi Hub",
				Status:      carrier.StatusInTransit,
			},
		},
	}, nil
}

// GetLabel returns a mock label.
func (c *Client) GetLabel(ctx context.Context, waybill string) (*carrier.LabelResponse, error) {
	return &carrier.LabelResponse{
		Waybill: waybill,
		URL:     fmt.Sprintf("https://labels.%s.mock/%s.pdf", c.name, waybill),
	}, nil
}

var _ carrier.Gateway = (*Client)(nil)
