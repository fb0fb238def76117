package carrier_test

import (
	"context"
	"testing"

	"github.com/knitkart/fulfillment/pkg/carrier"
	"github.com/knitkart/fulfillment/pkg/carrier/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	registry := carrier.NewRegistry()
	registry.Register(mock.New("shiprocket"))
	registry.Register(mock.New("delhivery"))

	assert.Equal(t, 2, registry.Count())
	assert.ElementsMatch(t, []string{"shiprocket", "delhivery"}, registry.Names())

	g, err := registry.Get("shiprocket")
	require.NoError(t, err)
	assert.Equal(t, "shiprocket", g.Name())

	_, err = registry.Get("bluedart")
	assert.ErrorIs(t, err, carrier.ErrGatewayNotFound)
}

func TestRegistry_TrackShipments(t *testing.T) {
	registry := carrier.NewRegistry()
	registry.Register(mock.New("shiprocket"))

	waybills := []string{"AWB1", "AWB2", "AWB3"}
	results, errs := registry.TrackShipments(context.Background(), "shiprocket", waybills)

	assert.Empty(t, errs)
	require.Len(t, results, 3)
	for _, wb := range waybills {
		require.Contains(t, results, wb)
		assert.Equal(t, wb, results[wb].Waybill)
		assert.NotEmpty(t, results[wb].Events)
	}
}

func TestRegistry_TrackShipments_UnknownGateway(t *testing.T) {
	registry := carrier.NewRegistry()

	results, errs := registry.TrackShipments(context.Background(), "ghost", []string{"AWB1"})
	assert.Nil(t, results)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], carrier.ErrGatewayNotFound)
}
