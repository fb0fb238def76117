// Package returns drives the lifecycle of customer return-or-replace
// requests, from submission through approval and the carrier-side
// reverse-logistics shipment.
package returns

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/knitkart/fulfillment/pkg/carrier"
	"github.com/knitkart/fulfillment/pkg/packing"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// PackagingResolver answers the authoritative box question for one item.
type PackagingResolver interface {
	Resolve(ctx context.Context, brandID, productTypeID string, declared *packing.Dimensions) (*packing.Resolution, error)
}

// OrderDirectory exposes the order, variant and address data the
// orchestrator needs from the surrounding storefront. It is an external
// collaborator; this core never owns order records.
type OrderDirectory interface {
	// OrderItem describes the physical item of an order line.
	OrderItem(ctx context.Context, orderID, orderItemID string) (*ItemInfo, error)

	// Variant describes a product variant, used to pack a replacement.
	Variant(ctx context.Context, variantID string) (*ItemInfo, error)

	// DeliveryAddress is where the original order was delivered.
	DeliveryAddress(ctx context.Context, orderID string) (*carrier.Address, error)

	// SellerAddress is the brand's warehouse/seller address.
	SellerAddress(ctx context.Context, brandID string) (*carrier.Address, error)
}

// StockChecker reports whether a variant can still be shipped. Optional:
// when absent, replacement approvals skip the availability check.
type StockChecker interface {
	Available(ctx context.Context, variantID string) (bool, error)
}

// ApproveResult is the outcome of an approval or a fulfillment retry.
// FulfillmentErr being set means the approval itself is durable but the
// carrier leg did not complete; the request is queryable via
// ListUnfulfilled and retryable via RetryFulfillment.
type ApproveResult struct {
	Request         *Request
	Waybill         string
	PickupScheduled bool
	FulfillmentErr  error
}

// Orchestrator is the fulfillment state-machine driver. Each operation
// runs as a short-lived task; the only blocking point is the carrier call.
type Orchestrator struct {
	store     Store
	resolver  PackagingResolver
	directory OrderDirectory
	gateway   carrier.Gateway
	stock     StockChecker // may be nil
	validate  *validator.Validate
	logger    *otelzap.Logger

	// PickupLabel is the carrier-registered pickup location name used
	// when scheduling RTO pickups, if the account has one.
	PickupLabel string
}

// NewOrchestrator wires the orchestrator's collaborators. stock may be nil.
func NewOrchestrator(store Store, resolver PackagingResolver, directory OrderDirectory, gateway carrier.Gateway, stock StockChecker, logger *otelzap.Logger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		resolver:  resolver,
		directory: directory,
		gateway:   gateway,
		stock:     stock,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Submit validates and persists a new request with status pending.
// No carrier interaction happens at submission time.
func (o *Orchestrator) Submit(ctx context.Context, input SubmitInput) (*Request, error) {
	if err := o.validate.Struct(input); err != nil {
		return nil, asValidationError(err)
	}

	req := &Request{
		ID:           uuid.New().String(),
		OrderID:      input.OrderID,
		OrderItemID:  input.OrderItemID,
		UserID:       input.UserID,
		BrandID:      input.BrandID,
		Type:         input.Type,
		NewVariantID: input.NewVariantID,
		Reason:       input.Reason,
		Comment:      input.Comment,
		Images:       append([]string(nil), input.Images...),
		Status:       StatusPending,
		CreatedAt:    time.Now().UTC(),
	}

	if err := o.store.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("persisting request: %w", err)
	}

	o.logger.Info("Return/replace request submitted",
		zap.String("request_id", req.ID),
		zap.String("type", string(req.Type)),
		zap.String("order_id", req.OrderID),
	)
	return req, nil
}

// Reject transitions a pending request to rejected. Re-rejecting an
// already-rejected request is a no-op success; rejecting an approved
// request is a terminal-state violation.
func (o *Orchestrator) Reject(ctx context.Context, id string) (*Request, error) {
	req, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch req.Status {
	case StatusRejected:
		return req, nil
	case StatusApproved:
		return nil, &StateConflictError{RequestID: id, Current: req.Status, Attempted: "reject"}
	}

	if err := o.store.TransitionStatus(ctx, id, StatusPending, StatusRejected); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			// Lost a race; a concurrent rejection is still a no-op success.
			current, getErr := o.store.Get(ctx, id)
			if getErr != nil {
				return nil, getErr
			}
			if current.Status == StatusRejected {
				return current, nil
			}
			return nil, &StateConflictError{RequestID: id, Current: current.Status, Attempted: "reject"}
		}
		return nil, err
	}

	req.Status = StatusRejected
	o.logger.Info("Request rejected", zap.String("request_id", id))
	return req, nil
}

// Approve transitions a pending request to approved and then attempts
// carrier fulfillment. The status write is persisted before any carrier
// call: the administrator's decision must survive a carrier outage, and
// re-deriving "was this approved?" never depends on the carrier. The
// write is a compare-and-set, so concurrent approvals of the same request
// yield one success and one state-conflict, never two shipments.
func (o *Orchestrator) Approve(ctx context.Context, id string) (*ApproveResult, error) {
	req, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusPending {
		return nil, &StateConflictError{RequestID: id, Current: req.Status, Attempted: "approve"}
	}

	if req.Type == TypeReplace && o.stock != nil {
		available, err := o.stock.Available(ctx, req.NewVariantID)
		if err != nil {
			return nil, fmt.Errorf("checking replacement stock: %w", err)
		}
		if !available {
			return nil, &ValidationError{
				Field:   "NewVariantID",
				Message: "replacement variant " + req.NewVariantID + " is no longer available",
			}
		}
	}

	if err := o.store.TransitionStatus(ctx, id, StatusPending, StatusApproved); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			current, getErr := o.store.Get(ctx, id)
			if getErr != nil {
				return nil, getErr
			}
			return nil, &StateConflictError{RequestID: id, Current: current.Status, Attempted: "approve"}
		}
		return nil, err
	}
	req.Status = StatusApproved

	o.logger.Info("Request approved",
		zap.String("request_id", id),
		zap.String("type", string(req.Type)),
	)

	return o.fulfill(ctx, req), nil
}

// RetryFulfillment re-attempts the carrier leg of an approved request
// that has no waybill yet. Approval validation does not run again. A
// request that is already fulfilled returns a no-op success.
func (o *Orchestrator) RetryFulfillment(ctx context.Context, id string) (*ApproveResult, error) {
	req, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusApproved {
		return nil, &StateConflictError{RequestID: id, Current: req.Status, Attempted: "retry fulfillment for"}
	}
	if req.ShipmentID != "" {
		return &ApproveResult{Request: req, Waybill: req.ShipmentID}, nil
	}

	o.logger.Info("Retrying fulfillment", zap.String("request_id", id))
	return o.fulfill(ctx, req), nil
}

// ListUnfulfilled returns approved requests whose carrier leg has not
// completed.
func (o *Orchestrator) ListUnfulfilled(ctx context.Context) ([]*Request, error) {
	return o.store.ListUnfulfilled(ctx)
}

// List returns requests matching the filter plus the total count.
func (o *Orchestrator) List(ctx context.Context, f Filter) ([]*Request, int, error) {
	return o.store.List(ctx, f)
}

// Get returns a single request.
func (o *Orchestrator) Get(ctx context.Context, id string) (*Request, error) {
	return o.store.Get(ctx, id)
}

// fulfill runs the carrier leg for an approved request. Any failure is
// folded into the result as a FulfillmentError, never an automatic
// un-approval: the business decision stands, logistics catch up later.
func (o *Orchestrator) fulfill(ctx context.Context, req *Request) *ApproveResult {
	result := &ApproveResult{Request: req}

	shipReq, pickupAt, err := o.buildShipment(ctx, req)
	if err != nil {
		result.FulfillmentErr = err
		o.logger.Error("Fulfillment preparation failed",
			zap.String("request_id", req.ID),
			zap.Error(err),
		)
		return result
	}

	shipment, err := o.gateway.CreateShipment(ctx, shipReq)
	if err != nil {
		result.FulfillmentErr = &FulfillmentError{RequestID: req.ID, Stage: "create_shipment", Cause: err}
		o.logger.Error("Carrier shipment creation failed, request left approved and unfulfilled",
			zap.String("request_id", req.ID),
			zap.Error(err),
		)
		return result
	}

	if err := o.store.AttachShipment(ctx, req.ID, shipment.Waybill); err != nil {
		result.FulfillmentErr = &FulfillmentError{RequestID: req.ID, Stage: "attach_shipment", Cause: err}
		return result
	}
	req.ShipmentID = shipment.Waybill
	result.Waybill = shipment.Waybill

	o.logger.Info("Shipment created",
		zap.String("request_id", req.ID),
		zap.String("waybill", shipment.Waybill),
		zap.String("kind", string(shipReq.Kind)),
		zap.Bool("duplicated", shipment.Duplicated),
	)

	// Pickup is a separate failure domain: the shipment already exists,
	// so a pickup error is reported but never fails the approval.
	if pickupAt != nil {
		pickup, err := o.gateway.SchedulePickup(ctx, &carrier.PickupRequest{
			Location:      *pickupAt,
			Date:          time.Now().AddDate(0, 0, 1),
			PackageCount:  1,
			LocationLabel: o.PickupLabel,
		})
		if err != nil {
			o.logger.Warn("Pickup scheduling failed, shipment already created",
				zap.String("request_id", req.ID),
				zap.Error(err),
			)
		} else {
			result.PickupScheduled = pickup.Confirmed
		}
	}

	return result
}

// buildShipment assembles the carrier payload for one request. For a
// return the item travels from the customer's delivery address back to
// the seller; for a replacement the new variant travels from the seller
// to the customer, packed for the new variant's rule.
func (o *Orchestrator) buildShipment(ctx context.Context, req *Request) (*carrier.ShipmentRequest, *carrier.Address, error) {
	var (
		item *ItemInfo
		err  error
	)
	if req.Type == TypeReplace {
		item, err = o.directory.Variant(ctx, req.NewVariantID)
	} else {
		item, err = o.directory.OrderItem(ctx, req.OrderID, req.OrderItemID)
	}
	if err != nil {
		return nil, nil, &FulfillmentError{RequestID: req.ID, Stage: "load_item", Cause: err}
	}

	resolution, err := o.resolver.Resolve(ctx, req.BrandID, item.ProductTypeID, item.Declared)
	if err != nil {
		return nil, nil, &FulfillmentError{RequestID: req.ID, Stage: "resolve_packaging", Cause: err}
	}

	customerAddr, err := o.directory.DeliveryAddress(ctx, req.OrderID)
	if err != nil {
		return nil, nil, &FulfillmentError{RequestID: req.ID, Stage: "load_addresses", Cause: err}
	}
	sellerAddr, err := o.directory.SellerAddress(ctx, req.BrandID)
	if err != nil {
		return nil, nil, &FulfillmentError{RequestID: req.ID, Stage: "load_addresses", Cause: err}
	}

	pkg := carrier.Package{
		Length:       resolution.Dimensions.Length,
		Width:        resolution.Dimensions.Width,
		Height:       resolution.Dimensions.Height,
		WeightKg:     item.WeightKg,
		Fragile:      resolution.IsFragile,
		SelfPackaged: resolution.ShipsInOwnBox,
		Description:  item.Description,
	}

	shipReq := &carrier.ShipmentRequest{
		OrderRef:    req.ID, // idempotency key: one request, at most one shipment
		Package:     pkg,
		PaymentMode: carrier.PaymentPrepaid,
	}

	if req.Type == TypeReplace {
		shipReq.Kind = carrier.KindForward
		shipReq.Origin = *sellerAddr
		shipReq.Consignee = *customerAddr
		// Outbound legs ship from the registered seller location; no
		// ad-hoc pickup needed.
		return shipReq, nil, nil
	}

	shipReq.Kind = carrier.KindRTO
	shipReq.Origin = *customerAddr
	shipReq.Consignee = *sellerAddr
	return shipReq, customerAddr, nil
}

// asValidationError converts validator output into the local taxonomy.
func asValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		msg := "failed " + first.Tag() + " validation"
		switch first.Tag() {
		case "required", "required_if":
			msg = "is required"
		case "excluded_unless":
			msg = "must be absent for this request type"
		case "oneof":
			msg = "must be one of: " + first.Param()
		}
		return &ValidationError{Field: first.Field(), Message: msg}
	}
	return &ValidationError{Message: err.Error()}
}
