// Package shiprocket provides integration with the Shiprocket logistics API.
package shiprocket

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/knitkart/fulfillment/pkg/carrier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const carrierName = "shiprocket"

// Config holds Shiprocket configuration.
type Config struct {
	APIToken       string
	BaseURL        string
	PickupLocation string // registered pickup location label for seller-origin legs
	UseMock        bool   // when true, uses the mock API client
}

// Client is the Shiprocket carrier gateway.
// It implements the carrier.Gateway interface and delegates
// API calls to the underlying APIClient (mock or HTTP).
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new Shiprocket client.
// If cfg.UseMock is true, it uses a mock API client for testing.
// Otherwise, it uses the real HTTP API client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:  cfg.BaseURL,
			APIToken: cfg.APIToken,
			Timeout:  30 * time.Second,
		})
	}

	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// NewWithAPIClient creates a new Shiprocket client with a custom API client.
// This is useful for injecting mock clients in tests.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return carrierName
}

// CreateShipment books a shipment with Shiprocket. The request's OrderRef
// becomes the carrier-side order_id, so a retried create for the same
// reference returns the existing booking instead of a second shipment.
func (c *Client) CreateShipment(ctx context.Context, req *carrier.ShipmentRequest) (*carrier.ShipmentResponse, error) {
	c.logger.Info("Creating Shiprocket shipment",
		zap.String("order_ref", req.OrderRef),
		zap.String("kind", string(req.Kind)),
		zap.String("destination_pincode", req.Consignee.Pincode),
	)

	apiReq := &OrderRequest{
		OrderID:       req.OrderRef,
		OrderDate:     time.Now().Format("2006-01-02"),
		IsReturnOrder: req.Kind == carrier.KindRTO,
		PaymentMethod: paymentModeToAPI(req.PaymentMode),
		CODAmount:     req.CODAmount,
		Pickup:        addressToPayload(req.Origin),
		Delivery:      addressToPayload(req.Consignee),
		Parcel: ParcelPayload{
			Length:       req.Package.Length,
			Breadth:      req.Package.Width,
			Height:       req.Package.Height,
			Weight:       req.Package.WeightKg,
			IsFragile:    req.Package.Fragile,
			SelfPackaged: req.Package.SelfPackaged,
			Description:  req.Package.Description,
		},
	}

	apiResp, err := c.apiClient.CreateOrder(ctx, apiReq)
	if err != nil {
		c.logger.Error("Shiprocket API error", zap.Error(err))
		return nil, c.normalizeError("create_shipment", err)
	}

	return orderResponseToShipment(apiResp, req.Kind), nil
}

// CreateReturnShipment marks an existing AWB RTO with Shiprocket and
// returns the reverse waybill.
func (c *Client) CreateReturnShipment(ctx context.Context, originalWaybill, reason string) (*carrier.ShipmentResponse, error) {
	c.logger.Info("Creating Shiprocket return shipment",
		zap.String("original_waybill", originalWaybill),
	)

	apiResp, err := c.apiClient.CreateReturnOrder(ctx, &ReturnOrderRequest{
		AWBCode: originalWaybill,
		Reason:  reason,
	})
	if err != nil {
		c.logger.Error("Shiprocket API error", zap.Error(err))
		return nil, c.normalizeError("create_return_shipment", err)
	}

	return orderResponseToShipment(apiResp, carrier.KindRTO), nil
}

// SchedulePickup books a courier pickup with Shiprocket.
func (c *Client) SchedulePickup(ctx context.Context, req *carrier.PickupRequest) (*carrier.PickupResponse, error) {
	c.logger.Info("Scheduling Shiprocket pickup",
		zap.String("pincode", req.Location.Pincode),
		zap.Time("date", req.Date),
	)

	label := req.LocationLabel
	if label == "" {
		label = c.config.PickupLocation
	}

	apiResp, err := c.apiClient.GeneratePickup(ctx, &PickupRequest{
		PickupDate:           req.Date.Format("2006-01-02"),
		ExpectedPackageCount: req.PackageCount,
		Address:              addressToPayload(req.Location),
		PickupLocation:       label,
	})
	if err != nil {
		c.logger.Error("Shiprocket API error", zap.Error(err))
		return nil, c.normalizeError("schedule_pickup", err)
	}

	return &carrier.PickupResponse{
		Confirmed: apiResp.PickupStatus == 1,
		PickupID:  apiResp.PickupTokenNumber,
		Message:   apiResp.Message,
	}, nil
}

// TrackShipment retrieves tracking from Shiprocket.
func (c *Client) TrackShipment(ctx context.Context, waybill string) (*carrier.TrackResponse, error) {
	apiResp, err := c.apiClient.TrackAWB(ctx, waybill)
	if err != nil {
		return nil, c.normalizeError("track_shipment", err)
	}

	events := make([]carrier.TrackingEvent, len(apiResp.TrackActivities))
	for i, a := range apiResp.TrackActivities {
		ts, _ := time.Parse(time.RFC3339, a.Date)
		events[i] = carrier.TrackingEvent{
			Timestamp:   ts,
			Description: a.Activity,
			Location:    a.Location,
			Status:      mapStatus(a.Status),
		}
	}

	return &carrier.TrackResponse{
		Waybill: apiResp.AWBCode,
		Status:  mapStatus(apiResp.CurrentStatus),
		Events:  events,
	}, nil
}

// GetLabel retrieves the shipping label from Shiprocket.
func (c *Client) GetLabel(ctx context.Context, waybill string) (*carrier.LabelResponse, error) {
	apiResp, err := c.apiClient.GenerateLabel(ctx, waybill)
	if err != nil {
		return nil, c.normalizeError("get_label", err)
	}

	if apiResp.LabelCreated != 1 {
		return nil, carrier.NewError(carrierName, "LABEL_NOT_READY", "label not yet available")
	}

	return &carrier.LabelResponse{
		Waybill: waybill,
		URL:     apiResp.LabelURL,
	}, nil
}

// ============================================================================
// Error normalization
// ============================================================================

// normalizeError maps raw API and transport errors onto the carrier error
// taxonomy. Timeouts and 5xx are retryable; carrier validation rejections
// keep their message verbatim and are not.
func (c *Client) normalizeError(op string, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		code := "API_ERROR"
		retryable := apiErr.StatusCode >= 500
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			code = "AUTH_FAILED"
		case apiErr.StatusCode == http.StatusTooManyRequests:
			code = "RATE_LIMITED"
			retryable = true
		case apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
			code = "VALIDATION_REJECTED"
		case apiErr.StatusCode >= 500:
			code = "CARRIER_UNAVAILABLE"
		}
		return carrier.NewError(carrierName, code, verbatimMessage(apiErr)).
			WithStatusCode(apiErr.StatusCode).
			WithRetryable(retryable).
			WithCause(err)
	}

	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return carrier.NewError(carrierName, "TIMEOUT",
			op+" timed out, shipment state unknown").
			WithRetryable(true).
			WithCause(err)
	}

	return carrier.NewError(carrierName, "NETWORK_ERROR", op+" failed").
		WithRetryable(true).
		WithCause(err)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// verbatimMessage flattens field-level errors into the message the
// administrator sees.
func verbatimMessage(e *APIError) string {
	if len(e.Errors) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Errors))
	for field, msgs := range e.Errors {
		parts = append(parts, field+": "+strings.Join(msgs, "; "))
	}
	return e.Message + " (" + strings.Join(parts, ", ") + ")"
}

// ============================================================================
// Conversion helpers
// ============================================================================

func addressToPayload(a carrier.Address) AddressPayload {
	return AddressPayload{
		Name:     a.Name,
		Phone:    a.Phone,
		Email:    a.Email,
		Address:  a.Line1,
		Address2: a.Line2,
		City:     a.City,
		State:    a.State,
		Pincode:  a.Pincode,
		Country:  a.Country,
	}
}

func paymentModeToAPI(mode carrier.PaymentMode) string {
	if mode == carrier.PaymentCOD {
		return "COD"
	}
	return "Prepaid"
}

func orderResponseToShipment(resp *OrderResponse, kind carrier.ShipmentKind) *carrier.ShipmentResponse {
	return &carrier.ShipmentResponse{
		Waybill:    resp.AWBCode,
		Kind:       kind,
		Status:     mapStatus(resp.Status),
		Carrier:    carrierName,
		CourierID:  resp.ShipmentID,
		LabelURL:   resp.LabelURL,
		BookedAt:   time.Now().UTC(),
		Duplicated: resp.AlreadyExists,
	}
}

func mapStatus(status string) carrier.ShipmentStatus {
	switch strings.ToUpper(status) {
	case "NEW", "AWB ASSIGNED", "PENDING":
		return carrier.StatusPending
	case "CONFIRMED", "READY TO SHIP", "BOOKED":
		return carrier.StatusConfirmed
	case "PICKED UP", "SHIPPED":
		return carrier.StatusPickedUp
	case "IN TRANSIT":
		return carrier.StatusInTransit
	case "OUT FOR DELIVERY":
		return carrier.StatusOutForDelivery
	case "DELIVERED":
		return carrier.StatusDelivered
	case "RTO INITIATED", "RTO IN TRANSIT":
		return carrier.StatusRTOInitiated
	case "RTO DELIVERED":
		return carrier.StatusRTODelivered
	case "CANCELLED":
		return carrier.StatusCancelled
	case "LOST", "DAMAGED", "EXCEPTION":
		return carrier.StatusException
	default:
		return carrier.StatusPending
	}
}
