package shiprocket

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnCreateOrder       func(ctx context.Context, req *OrderRequest) (*OrderResponse, error)
	OnCreateReturnOrder func(ctx context.Context, req *ReturnOrderRequest) (*OrderResponse, error)
	OnGeneratePickup    func(ctx context.Context, req *PickupRequest) (*PickupResponse, error)
	OnTrackAWB          func(ctx context.Context, awb string) (*TrackingResponse, error)
	OnGenerateLabel     func(ctx context.Context, awb string) (*LabelResponse, error)

	// seen order refs, for idempotent create simulation
	orders map[string]*OrderResponse
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{
		orders: make(map[string]*OrderResponse),
	}
}

// CreateOrder books a mock shipment. Repeating an order_id returns the
// earlier booking with AlreadyExists set, mirroring the carrier's
// deduplication behavior.
func (m *MockAPIClient) CreateOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, &APIError{StatusCode: http.StatusServiceUnavailable, Message: "Simulated API error"}
	}

	if m.OnCreateOrder != nil {
		return m.OnCreateOrder(ctx, req)
	}

	if prior, ok := m.orders[req.OrderID]; ok {
		dup := *prior
		dup.AlreadyExists = true
		return &dup, nil
	}

	shipmentID := "sr-ship-" + uuid.New().String()[:8]
	awb := fmt.Sprintf("%d", 140000000000+time.Now().UnixNano()%900000000)

	resp := &OrderResponse{
		OrderID:     req.OrderID,
		ShipmentID:  shipmentID,
		AWBCode:     awb,
		CourierName: "Delhivery Surface",
		Status:      "NEW",
		LabelURL:    fmt.Sprintf("https://api.shiprocket.test/labels/%s.pdf", awb),
	}
	m.orders[req.OrderID] = resp
	return resp, nil
}

// CreateReturnOrder marks a mock shipment RTO.
func (m *MockAPIClient) CreateReturnOrder(ctx context.Context, req *ReturnOrderRequest) (*OrderResponse, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, &APIError{StatusCode: http.StatusServiceUnavailable, Message: "Simulated API error"}
	}

	if m.OnCreateReturnOrder != nil {
		return m.OnCreateReturnOrder(ctx, req)
	}

	awb := fmt.Sprintf("%d", 150000000000+time.Now().UnixNano()%900000000)
	return &OrderResponse{
		OrderID:    "rto-" + req.AWBCode,
		ShipmentID: "sr-ship-" + uuid.New().String()[:8],
		AWBCode:    awb,
		Status:     "RTO INITIATED",
	}, nil
}

// GeneratePickup schedules a mock pickup.
func (m *MockAPIClient) GeneratePickup(ctx context.Context, req *PickupRequest) (*PickupResponse, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, &APIError{StatusCode: http.StatusServiceUnavailable, Message: "Simulated API error"}
	}

	if m.OnGeneratePickup != nil {
		return m.OnGeneratePickup(ctx, req)
	}

	return &PickupResponse{
		PickupStatus:      1,
		PickupTokenNumber: fmt.Sprintf("PT-%d", time.Now().UnixNano()%1000000),
		Message:           "Pickup scheduled",
	}, nil
}

// TrackAWB retrieves mock tracking information.
func (m *MockAPIClient) TrackAWB(ctx context.Context, awb string) (*TrackingResponse, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, &APIError{StatusCode: http.StatusServiceUnavailable, Message: "Simulated API error"}
	}

	if m.OnTrackAWB != nil {
		return m.OnTrackAWB(ctx, awb)
	}

	now := time.Now()
	return &TrackingResponse{
		AWBCode:       awb,
		CurrentStatus: "In Transit",
		TrackActivities: []TrackActivity{
			{
				Date:     now.Add(-48 * time.Hour).Format(time.RFC3339),
				Activity: "Shipment picked up",
				Location: "Mumbai",
				Status:   "Picked Up",
			},
			{
				Date:     now.Add(-24 * time.Hour).Format(time.RFC3339),
				Activity: "In transit to destination",
				Location: "Bhiwandi Hub",
				Status:   "In Transit",
			},
		},
	}, nil
}

// GenerateLabel retrieves a mock shipping label.
func (m *MockAPIClient) GenerateLabel(ctx context.Context, awb string) (*LabelResponse, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, &APIError{StatusCode: http.StatusServiceUnavailable, Message: "Simulated API error"}
	}

	if m.OnGenerateLabel != nil {
		return m.OnGenerateLabel(ctx, awb)
	}

	return &LabelResponse{
		LabelCreated: 1,
		LabelURL:     fmt.Sprintf("https://api.shiprocket.test/labels/%s.pdf", awb),
	}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
