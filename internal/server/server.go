// Package server exposes the fulfillment core over a JSON HTTP API for
// the storefront's admin panel and app backend.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/knitkart/fulfillment/internal/telemetry"
	"github.com/knitkart/fulfillment/pkg/carrier"
	"github.com/knitkart/fulfillment/pkg/packing"
	"github.com/knitkart/fulfillment/pkg/returns"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Server is the HTTP server for the fulfillment service.
type Server struct {
	port         int
	packingStore packing.Store
	resolver     *packing.Resolver
	orchestrator *returns.Orchestrator
	registry     *carrier.Registry
	carrierName  string
	logger       *otelzap.Logger
	metrics      *telemetry.Metrics
}

// Config holds server configuration.
type Config struct {
	Port        int
	CarrierName string // gateway used for tracking and label lookups
}

// New creates a new server instance.
func New(cfg Config, packingStore packing.Store, orchestrator *returns.Orchestrator, registry *carrier.Registry, logger *otelzap.Logger) *Server {
	return &Server{
		port:         cfg.Port,
		packingStore: packingStore,
		resolver:     packing.NewResolver(packingStore),
		orchestrator: orchestrator,
		registry:     registry,
		carrierName:  cfg.CarrierName,
		logger:       logger,
		metrics:      telemetry.NewMetrics(),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Packaging catalog
	mux.HandleFunc("POST /api/packaging/templates", s.handleCreateTemplate)
	mux.HandleFunc("GET /api/packaging/templates", s.handleListTemplates)
	mux.HandleFunc("GET /api/packaging/templates/{id}", s.handleGetTemplate)
	mux.HandleFunc("PUT /api/packaging/templates/{id}", s.handleUpdateTemplate)
	mux.HandleFunc("DELETE /api/packaging/templates/{id}", s.handleDeleteTemplate)

	// Packaging rules
	mux.HandleFunc("POST /api/packaging/rules", s.handleCreateRule)
	mux.HandleFunc("GET /api/packaging/rules", s.handleListRules)
	mux.HandleFunc("PUT /api/packaging/rules/{brandID}/{productTypeID}", s.handleUpdateRule)
	mux.HandleFunc("DELETE /api/packaging/rules/{brandID}/{productTypeID}", s.handleDeleteRule)

	// Resolution
	mux.HandleFunc("GET /api/packaging/resolve", s.handleResolve)

	// Return/replace requests
	mux.HandleFunc("POST /api/requests", s.handleSubmitRequest)
	mux.HandleFunc("GET /api/requests", s.handleListRequests)
	mux.HandleFunc("GET /api/requests/unfulfilled", s.handleListUnfulfilled)
	mux.HandleFunc("GET /api/requests/{id}", s.handleGetRequest)
	mux.HandleFunc("POST /api/requests/{id}/approve", s.handleApproveRequest)
	mux.HandleFunc("POST /api/requests/{id}/reject", s.handleRejectRequest)
	mux.HandleFunc("POST /api/requests/{id}/retry-fulfillment", s.handleRetryFulfillment)

	// Shipments
	mux.HandleFunc("GET /api/shipments/{waybill}/track", s.handleTrackShipment)
	mux.HandleFunc("GET /api/shipments/{waybill}/label", s.handleGetLabel)

	return mux
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// ============================================================================
// Packaging templates
// ============================================================================

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var payload templatePayload
	if err := decodeJSON(r, &payload); err != nil {
		s.writeError(w, r, err)
		return
	}
	tmpl := payload.toModel()
	if tmpl.ID == "" {
		tmpl.ID = uuid.New().String()
	}
	if err := s.packingStore.CreateTemplate(r.Context(), tmpl); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, templateFromModel(tmpl))
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.packingStore.ListTemplates(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]*templatePayload, len(templates))
	for i, t := range templates {
		out[i] = templateFromModel(t)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := s.packingStore.GetTemplate(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, templateFromModel(tmpl))
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var payload templatePayload
	if err := decodeJSON(r, &payload); err != nil {
		s.writeError(w, r, err)
		return
	}
	tmpl := payload.toModel()
	tmpl.ID = r.PathValue("id")
	if err := s.packingStore.UpdateTemplate(r.Context(), tmpl); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, templateFromModel(tmpl))
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.packingStore.DeleteTemplate(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// Packaging rules
// ============================================================================

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var payload rulePayload
	if err := decodeJSON(r, &payload); err != nil {
		s.writeError(w, r, err)
		return
	}
	rule := payload.toModel()
	if rule.BrandID == "" || rule.ProductTypeID == "" {
		s.writeError(w, r, badRequest("brand_id and product_type_id are required"))
		return
	}
	if err := s.packingStore.CreateRule(r.Context(), rule); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, ruleFromModel(rule))
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.packingStore.ListRules(r.Context(), r.URL.Query().Get("brand_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]*rulePayload, len(rules))
	for i, rule := range rules {
		out[i] = ruleFromModel(rule)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	var payload rulePayload
	if err := decodeJSON(r, &payload); err != nil {
		s.writeError(w, r, err)
		return
	}
	rule := payload.toModel()
	rule.BrandID = r.PathValue("brandID")
	rule.ProductTypeID = r.PathValue("productTypeID")
	if err := s.packingStore.UpdateRule(r.Context(), rule); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ruleFromModel(rule))
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	err := s.packingStore.DeleteRule(r.Context(), r.PathValue("brandID"), r.PathValue("productTypeID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// Resolution
// ============================================================================

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	brandID := q.Get("brand_id")
	productTypeID := q.Get("product_type_id")
	if brandID == "" || productTypeID == "" {
		s.writeError(w, r, badRequest("brand_id and product_type_id are required"))
		return
	}

	declared, err := declaredFromQuery(q.Get("length"), q.Get("width"), q.Get("height"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resolution, err := s.resolver.Resolve(r.Context(), brandID, productTypeID, declared)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resolutionFromModel(resolution))
}

func declaredFromQuery(l, w, h string) (*packing.Dimensions, error) {
	if l == "" && w == "" && h == "" {
		return nil, nil
	}
	parse := func(s, name string) (float64, error) {
		if s == "" {
			return 0, nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 {
			return 0, badRequest("invalid " + name)
		}
		return v, nil
	}
	var d packing.Dimensions
	var err error
	if d.Length, err = parse(l, "length"); err != nil {
		return nil, err
	}
	if d.Width, err = parse(w, "width"); err != nil {
		return nil, err
	}
	if d.Height, err = parse(h, "height"); err != nil {
		return nil, err
	}
	return &d, nil
}

// ============================================================================
// Return/replace requests
// ============================================================================

func (s *Server) handleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var payload submitPayload
	if err := decodeJSON(r, &payload); err != nil {
		s.writeError(w, r, err)
		return
	}

	req, err := s.orchestrator.Submit(r.Context(), payload.toInput())
	s.metrics.RecordRequest("submit", statusLabel(err), time.Since(start).Seconds())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, requestFromModel(req))
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	filter := returns.Filter{
		Status:  returns.Status(q.Get("status")),
		Type:    returns.RequestType(q.Get("type")),
		BrandID: q.Get("brand_id"),
		UserID:  q.Get("user_id"),
		OrderID: q.Get("order_id"),
		Limit:   limit,
		Offset:  offset,
	}

	items, count, err := s.orchestrator.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]*requestPayload, len(items))
	for i, item := range items {
		out[i] = requestFromModel(item)
	}
	s.writeJSON(w, http.StatusOK, listEnvelope{Items: out, Total: count})
}

func (s *Server) handleListUnfulfilled(w http.ResponseWriter, r *http.Request) {
	items, err := s.orchestrator.ListUnfulfilled(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]*requestPayload, len(items))
	for i, item := range items {
		out[i] = requestFromModel(item)
	}
	s.writeJSON(w, http.StatusOK, listEnvelope{Items: out, Total: len(items)})
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := s.orchestrator.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, requestFromModel(req))
}

func (s *Server) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result, err := s.orchestrator.Approve(r.Context(), r.PathValue("id"))
	s.metrics.RecordRequest("approve", statusLabel(err), time.Since(start).Seconds())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.recordFulfillment(result)
	s.writeJSON(w, http.StatusOK, approveResultFromModel(result))
}

func (s *Server) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req, err := s.orchestrator.Reject(r.Context(), r.PathValue("id"))
	s.metrics.RecordRequest("reject", statusLabel(err), time.Since(start).Seconds())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, requestFromModel(req))
}

func (s *Server) handleRetryFulfillment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result, err := s.orchestrator.RetryFulfillment(r.Context(), r.PathValue("id"))
	s.metrics.RecordRequest("retry_fulfillment", statusLabel(err), time.Since(start).Seconds())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.recordFulfillment(result)
	s.writeJSON(w, http.StatusOK, approveResultFromModel(result))
}

func (s *Server) recordFulfillment(result *returns.ApproveResult) {
	kind := "rto"
	if result.Request.Type == returns.TypeReplace {
		kind = "forward"
	}
	if result.FulfillmentErr != nil {
		s.metrics.RecordShipment(kind, "failed")
		var cerr *carrier.Error
		if errors.As(result.FulfillmentErr, &cerr) {
			s.metrics.RecordError(cerr.Carrier, cerr.Code)
		}
		return
	}
	s.metrics.RecordShipment(kind, "created")
}

// ============================================================================
// Shipments
// ============================================================================

func (s *Server) handleTrackShipment(w http.ResponseWriter, r *http.Request) {
	gateway, err := s.registry.Get(s.carrierName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	track, err := gateway.TrackShipment(r.Context(), r.PathValue("waybill"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, track)
}

func (s *Server) handleGetLabel(w http.ResponseWriter, r *http.Request) {
	gateway, err := s.registry.Get(s.carrierName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	label, err := gateway.GetLabel(r.Context(), r.PathValue("waybill"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, label)
}

// ============================================================================
// Response plumbing
// ============================================================================

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classifyError(err)
	if status >= 500 {
		s.logger.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	s.writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: err.Error()}})
}

func classifyError(err error) (int, string) {
	var (
		validationErr *returns.ValidationError
		conflictErr   *returns.StateConflictError
		integrityErr  *packing.IntegrityError
		carrierErr    *carrier.Error
		requestErr    *requestError
	)
	switch {
	case errors.As(err, &requestErr):
		return requestErr.status, requestErr.code
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "validation_failed"
	case errors.As(err, &conflictErr):
		return http.StatusConflict, "state_conflict"
	case errors.Is(err, returns.ErrRequestNotFound),
		errors.Is(err, packing.ErrTemplateNotFound) && !errors.As(err, &integrityErr),
		errors.Is(err, packing.ErrRuleNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, packing.ErrDuplicateRule):
		return http.StatusConflict, "duplicate_rule"
	case errors.Is(err, packing.ErrTemplateInUse):
		return http.StatusConflict, "template_in_use"
	case errors.Is(err, packing.ErrInvalidDimensions):
		return http.StatusBadRequest, "invalid_dimensions"
	case errors.Is(err, packing.ErrNoDefaultTemplate):
		return http.StatusUnprocessableEntity, "no_default_template"
	case errors.As(err, &integrityErr):
		return http.StatusInternalServerError, "data_integrity"
	case errors.Is(err, carrier.ErrGatewayNotFound):
		return http.StatusNotFound, "gateway_not_found"
	case errors.As(err, &carrierErr):
		if carrierErr.Retryable {
			return http.StatusBadGateway, "carrier_unavailable"
		}
		return http.StatusUnprocessableEntity, "carrier_rejected"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// requestError is a malformed-request rejection raised before any domain
// logic runs.
type requestError struct {
	status  int
	code    string
	message string
}

func (e *requestError) Error() string { return e.message }

func badRequest(msg string) error {
	return &requestError{status: http.StatusBadRequest, code: "bad_request", message: msg}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &requestError{
			status:  http.StatusBadRequest,
			code:    "invalid_json",
			message: "invalid JSON: " + err.Error(),
		}
	}
	return nil
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
