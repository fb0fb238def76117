package carrier

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// ResilientGateway wraps a Gateway with a circuit breaker and a single
// retry for transient failures. Validation rejections from the carrier
// pass through untouched and never trip the breaker; only timeouts, 5xx
// responses and outages count against it.
type ResilientGateway struct {
	next    Gateway
	breaker *gobreaker.CircuitBreaker
	logger  *otelzap.Logger
}

// WithResilience wraps a gateway. The breaker opens after five consecutive
// transient failures and probes again after thirty seconds.
func WithResilience(next Gateway, logger *otelzap.Logger) *ResilientGateway {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !IsRetryable(err)
		},
	})
	return &ResilientGateway{
		next:    next,
		breaker: breaker,
		logger:  logger,
	}
}

// Name returns the wrapped gateway's name.
func (g *ResilientGateway) Name() string {
	return g.next.Name()
}

// CreateShipment books a shipment, retrying once on transient failure.
// The underlying OrderRef idempotency key makes the retry safe.
func (g *ResilientGateway) CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	resp, err := execute(g, ctx, "create_shipment", func() (any, error) {
		return g.next.CreateShipment(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return resp.(*ShipmentResponse), nil
}

// CreateReturnShipment creates a reverse waybill, retrying once on
// transient failure.
func (g *ResilientGateway) CreateReturnShipment(ctx context.Context, originalWaybill, reason string) (*ShipmentResponse, error) {
	resp, err := execute(g, ctx, "create_return_shipment", func() (any, error) {
		return g.next.CreateReturnShipment(ctx, originalWaybill, reason)
	})
	if err != nil {
		return nil, err
	}
	return resp.(*ShipmentResponse), nil
}

// SchedulePickup books a pickup, retrying once on transient failure.
func (g *ResilientGateway) SchedulePickup(ctx context.Context, req *PickupRequest) (*PickupResponse, error) {
	resp, err := execute(g, ctx, "schedule_pickup", func() (any, error) {
		return g.next.SchedulePickup(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return resp.(*PickupResponse), nil
}

// TrackShipment is read-only and passes through the breaker without retry.
func (g *ResilientGateway) TrackShipment(ctx context.Context, waybill string) (*TrackResponse, error) {
	resp, err := g.executeOnce("track_shipment", func() (any, error) {
		return g.next.TrackShipment(ctx, waybill)
	})
	if err != nil {
		return nil, err
	}
	return resp.(*TrackResponse), nil
}

// GetLabel is read-only and passes through the breaker without retry.
func (g *ResilientGateway) GetLabel(ctx context.Context, waybill string) (*LabelResponse, error) {
	resp, err := g.executeOnce("get_label", func() (any, error) {
		return g.next.GetLabel(ctx, waybill)
	})
	if err != nil {
		return nil, err
	}
	return resp.(*LabelResponse), nil
}

// execute runs fn through the breaker with at most one extra attempt for
// transient errors.
func execute(g *ResilientGateway, ctx context.Context, op string, fn func() (any, error)) (any, error) {
	resp, err := g.executeOnce(op, fn)
	if err == nil || !IsRetryable(err) {
		return resp, err
	}
	if ctx.Err() != nil {
		return nil, err
	}
	g.logger.Warn("Transient carrier error, retrying once",
		zap.String("carrier", g.next.Name()),
		zap.String("operation", op),
		zap.Error(err),
	)
	return g.executeOnce(op, fn)
}

func (g *ResilientGateway) executeOnce(op string, fn func() (any, error)) (any, error) {
	resp, err := g.breaker.Execute(func() (interface{}, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, NewError(g.next.Name(), "CIRCUIT_OPEN",
			"carrier temporarily unavailable, circuit breaker open").
			WithRetryable(true).WithCause(err)
	}
	return resp, err
}

var _ Gateway = (*ResilientGateway)(nil)
