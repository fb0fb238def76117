package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/knitkart/fulfillment/internal/server"
	"github.com/knitkart/fulfillment/pkg/carrier"
	"github.com/knitkart/fulfillment/pkg/carrier/mock"
	"github.com/knitkart/fulfillment/pkg/packing"
	"github.com/knitkart/fulfillment/pkg/returns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

type stubDirectory struct{}

func (stubDirectory) OrderItem(ctx context.Context, orderID, orderItemID string) (*returns.ItemInfo, error) {
	return &returns.ItemInfo{ProductTypeID: "mug", WeightKg: 0.4, Description: "Mug"}, nil
}

func (stubDirectory) Variant(ctx context.Context, variantID string) (*returns.ItemInfo, error) {
	return &returns.ItemInfo{ProductTypeID: "mug", WeightKg: 0.4, Description: "Mug"}, nil
}

func (stubDirectory) DeliveryAddress(ctx context.Context, orderID string) (*carrier.Address, error) {
	return &carrier.Address{Name: "Customer", City: "Bengaluru", Pincode: "560001", Country: "IN"}, nil
}

func (stubDirectory) SellerAddress(ctx context.Context, brandID string) (*carrier.Address, error) {
	return &carrier.Address{Name: "Seller", City: "Mumbai", Pincode: "400001", Country: "IN"}, nil
}

type testEnv struct {
	handler http.Handler
	gateway *mock.Client
	store   *returns.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := otelzap.New(zap.NewNop())
	catalog := packing.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, catalog.CreateTemplate(ctx, &packing.Template{
		ID: "tpl-default", BaseLength: 20, BaseWidth: 15, BaseHeight: 10, ExtraCm: 2, IsDefault: true,
	}))

	store := returns.NewMemoryStore()
	gateway := mock.New("mockcarrier")
	registry := carrier.NewRegistry()
	registry.Register(gateway)

	orch := returns.NewOrchestrator(store, packing.NewResolver(catalog), stubDirectory{}, gateway, nil, logger)

	srv := server.New(server.Config{Port: 0, CarrierName: "mockcarrier"}, catalog, orch, registry, logger)
	return &testEnv{handler: srv.Handler(), gateway: gateway, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestServer_Health(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestServer_TemplateCRUD(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/packaging/templates", map[string]any{
		"id": "tpl-1", "name": "Small", "base_length": 20, "base_width": 15, "base_height": 10, "extra_cm": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/packaging/templates/tpl-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "Small", got["name"])

	rec = env.do(t, http.MethodPut, "/api/packaging/templates/tpl-1", map[string]any{
		"name": "Small v2", "base_length": 22, "base_width": 15, "base_height": 10,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/packaging/templates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]map[string]any](t, rec)
	assert.Len(t, list, 2) // seeded default plus tpl-1

	rec = env.do(t, http.MethodDelete, "/api/packaging/templates/tpl-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/packaging/templates/tpl-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_CreateTemplate_Invalid(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/packaging/templates", map[string]any{
		"id": "tpl-neg", "base_length": -5,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Missing ID is fine: one is generated.
	rec = env.do(t, http.MethodPost, "/api/packaging/templates", map[string]any{
		"name": "auto id", "base_length": 10, "base_width": 10, "base_height": 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[map[string]any](t, rec)
	assert.NotEmpty(t, created["id"])
}

func TestServer_RuleLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/packaging/rules", map[string]any{
		"brand_id": "b1", "product_type_id": "mug", "template_id": "tpl-default", "is_fragile": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// A second rule for the same pair conflicts.
	rec = env.do(t, http.MethodPost, "/api/packaging/rules", map[string]any{
		"brand_id": "b1", "product_type_id": "mug",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// The referenced template cannot be deleted while the rule lives.
	rec = env.do(t, http.MethodDelete, "/api/packaging/templates/tpl-default", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/packaging/rules?brand_id=b1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rules := decodeBody[[]map[string]any](t, rec)
	assert.Len(t, rules, 1)

	rec = env.do(t, http.MethodDelete, "/api/packaging/rules/b1/mug", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestServer_Resolve(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/packaging/resolve?brand_id=b1&product_type_id=mug", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[map[string]any](t, rec)
	assert.Equal(t, 22.0, got["length"])
	assert.Equal(t, "tpl-default", got["template_id"])

	rec = env.do(t, http.MethodGet, "/api/packaging/resolve?product_type_id=mug", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/packaging/resolve?brand_id=b1&product_type_id=mug&length=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func submitBody() map[string]any {
	return map[string]any{
		"order_id":      "order-1",
		"order_item_id": "item-1",
		"user_id":       "user-1",
		"brand_id":      "b1",
		"type":          "return",
		"reason":        "damaged",
	}
}

func TestServer_RequestLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/requests", submitBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[map[string]any](t, rec)
	id := created["id"].(string)
	assert.Equal(t, "pending", created["status"])

	rec = env.do(t, http.MethodGet, "/api/requests/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/requests/"+id+"/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeBody[map[string]any](t, rec)
	assert.Equal(t, true, result["fulfilled"])
	assert.NotEmpty(t, result["waybill"])

	// Second approval conflicts.
	rec = env.do(t, http.MethodPost, "/api/requests/"+id+"/approve", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/requests?status=approved", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[map[string]any](t, rec)
	assert.Equal(t, 1.0, list["total"])
}

func TestServer_SubmitRequest_Validation(t *testing.T) {
	env := newTestEnv(t)

	body := submitBody()
	delete(body, "order_id")
	rec := env.do(t, http.MethodPost, "/api/requests", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/requests", "not an object")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_UnfulfilledAndRetry(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/requests", submitBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeBody[map[string]any](t, rec)["id"].(string)

	env.gateway.FailCreates = true
	rec = env.do(t, http.MethodPost, "/api/requests/"+id+"/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeBody[map[string]any](t, rec)
	assert.Equal(t, false, result["fulfilled"])
	assert.NotEmpty(t, result["fulfillment_error"])

	rec = env.do(t, http.MethodGet, "/api/requests/unfulfilled", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[map[string]any](t, rec)
	assert.Equal(t, 1.0, list["total"])

	env.gateway.FailCreates = false
	rec = env.do(t, http.MethodPost, "/api/requests/"+id+"/retry-fulfillment", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	result = decodeBody[map[string]any](t, rec)
	assert.Equal(t, true, result["fulfilled"])
}

func TestServer_RejectRequest(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/requests", submitBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeBody[map[string]any](t, rec)["id"].(string)

	rec = env.do(t, http.MethodPost, "/api/requests/"+id+"/reject", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "rejected", got["status"])

	rec = env.do(t, http.MethodPost, "/api/requests/"+id+"/approve", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/requests/no-such-id/reject", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_TrackAndLabel(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/shipments/AWB1/track", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	track := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "AWB1", track["Waybill"])

	rec = env.do(t, http.MethodGet, "/api/shipments/AWB1/label", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
