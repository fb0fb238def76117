package carrier_test

import (
	"context"
	"testing"

	"github.com/knitkart/fulfillment/pkg/carrier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// flakyGateway fails a configured number of times before succeeding, and
// counts every call it receives.
type flakyGateway struct {
	failures int
	err      *carrier.Error
	calls    int
}

func (g *flakyGateway) Name() string { return "flaky" }

func (g *flakyGateway) fail() error {
	g.calls++
	if g.failures > 0 {
		g.failures--
		return g.err
	}
	return nil
}

func (g *flakyGateway) CreateShipment(ctx context.Context, req *carrier.ShipmentRequest) (*carrier.ShipmentResponse, error) {
	if err := g.fail(); err != nil {
		return nil, err
	}
	return &carrier.ShipmentResponse{Waybill: "AWB-OK", Carrier: "flaky"}, nil
}

func (g *flakyGateway) CreateReturnShipment(ctx context.Context, originalWaybill, reason string) (*carrier.ShipmentResponse, error) {
	if err := g.fail(); err != nil {
		return nil, err
	}
	return &carrier.ShipmentResponse{Waybill: "AWB-RTO", Kind: carrier.KindRTO}, nil
}

func (g *flakyGateway) SchedulePickup(ctx context.Context, req *carrier.PickupRequest) (*carrier.PickupResponse, error) {
	if err := g.fail(); err != nil {
		return nil, err
	}
	return &carrier.PickupResponse{Confirmed: true}, nil
}

func (g *flakyGateway) TrackShipment(ctx context.Context, waybill string) (*carrier.TrackResponse, error) {
	if err := g.fail(); err != nil {
		return nil, err
	}
	return &carrier.TrackResponse{Waybill: waybill}, nil
}

func (g *flakyGateway) GetLabel(ctx context.Context, waybill string) (*carrier.LabelResponse, error) {
	if err := g.fail(); err != nil {
		return nil, err
	}
	return &carrier.LabelResponse{Waybill: waybill}, nil
}

func transientError() *carrier.Error {
	return carrier.NewError("flaky", "CARRIER_UNAVAILABLE", "503").WithRetryable(true)
}

func newResilient(g carrier.Gateway) *carrier.ResilientGateway {
	return carrier.WithResilience(g, otelzap.New(zap.NewNop()))
}

func TestResilientGateway_RetriesOnceOnTransientError(t *testing.T) {
	inner := &flakyGateway{failures: 1, err: transientError()}
	g := newResilient(inner)

	resp, err := g.CreateShipment(context.Background(), &carrier.ShipmentRequest{OrderRef: "req-1"})
	require.NoError(t, err)
	assert.Equal(t, "AWB-OK", resp.Waybill)
	assert.Equal(t, 2, inner.calls)
}

func TestResilientGateway_SingleRetryOnly(t *testing.T) {
	inner := &flakyGateway{failures: 3, err: transientError()}
	g := newResilient(inner)

	_, err := g.CreateShipment(context.Background(), &carrier.ShipmentRequest{OrderRef: "req-1"})
	require.Error(t, err)
	assert.True(t, carrier.IsRetryable(err))
	assert.Equal(t, 2, inner.calls)
}

func TestResilientGateway_NoRetryOnValidationRejection(t *testing.T) {
	inner := &flakyGateway{
		failures: 1,
		err:      carrier.NewError("flaky", "VALIDATION_REJECTED", "pincode not serviceable"),
	}
	g := newResilient(inner)

	_, err := g.CreateShipment(context.Background(), &carrier.ShipmentRequest{OrderRef: "req-1"})
	require.Error(t, err)
	assert.False(t, carrier.IsRetryable(err))
	assert.Equal(t, 1, inner.calls)
}

func TestResilientGateway_NoRetryWhenContextDone(t *testing.T) {
	inner := &flakyGateway{failures: 2, err: transientError()}
	g := newResilient(inner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.CreateShipment(ctx, &carrier.ShipmentRequest{OrderRef: "req-1"})
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestResilientGateway_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyGateway{failures: 100, err: transientError()}
	g := newResilient(inner)
	ctx := context.Background()

	// Each create is two attempts; three creates push past the threshold.
	for i := 0; i < 3; i++ {
		_, err := g.CreateShipment(ctx, &carrier.ShipmentRequest{OrderRef: "req-1"})
		require.Error(t, err)
	}
	callsBefore := inner.calls

	_, err := g.CreateShipment(ctx, &carrier.ShipmentRequest{OrderRef: "req-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, carrier.NewError("", "CIRCUIT_OPEN", ""))
	// The open breaker short-circuits; the inner gateway never sees the call.
	assert.Equal(t, callsBefore, inner.calls)
}

func TestResilientGateway_ValidationRejectionsDoNotTripBreaker(t *testing.T) {
	inner := &flakyGateway{
		failures: 100,
		err:      carrier.NewError("flaky", "VALIDATION_REJECTED", "bad address"),
	}
	g := newResilient(inner)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := g.CreateShipment(ctx, &carrier.ShipmentRequest{OrderRef: "req-1"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, carrier.NewError("", "CIRCUIT_OPEN", ""))
	}
	assert.Equal(t, 10, inner.calls)
}

func TestResilientGateway_ReadOnlyOpsDoNotRetry(t *testing.T) {
	inner := &flakyGateway{failures: 1, err: transientError()}
	g := newResilient(inner)

	_, err := g.TrackShipment(context.Background(), "AWB1")
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)

	inner.calls = 0
	inner.failures = 1
	_, err = g.GetLabel(context.Background(), "AWB1")
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}
