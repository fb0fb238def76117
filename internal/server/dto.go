package server

import (
	"time"

	"github.com/knitkart/fulfillment/pkg/packing"
	"github.com/knitkart/fulfillment/pkg/returns"
)

// Wire representations of the domain models. The JSON field names are the
// storefront's contract; the domain types stay free to evolve.

type templatePayload struct {
	ID         string    `json:"id"`
	Name       string    `json:"name,omitempty"`
	BaseLength float64   `json:"base_length"`
	BaseWidth  float64   `json:"base_width"`
	BaseHeight float64   `json:"base_height"`
	ExtraCm    float64   `json:"extra_cm"`
	IsDefault  bool      `json:"is_default"`
	CreatedAt  time.Time `json:"created_at,omitzero"`
	UpdatedAt  time.Time `json:"updated_at,omitzero"`
}

func (p *templatePayload) toModel() *packing.Template {
	return &packing.Template{
		ID:         p.ID,
		Name:       p.Name,
		BaseLength: p.BaseLength,
		BaseWidth:  p.BaseWidth,
		BaseHeight: p.BaseHeight,
		ExtraCm:    p.ExtraCm,
		IsDefault:  p.IsDefault,
	}
}

func templateFromModel(t *packing.Template) *templatePayload {
	return &templatePayload{
		ID:         t.ID,
		Name:       t.Name,
		BaseLength: t.BaseLength,
		BaseWidth:  t.BaseWidth,
		BaseHeight: t.BaseHeight,
		ExtraCm:    t.ExtraCm,
		IsDefault:  t.IsDefault,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

type rulePayload struct {
	BrandID       string    `json:"brand_id"`
	ProductTypeID string    `json:"product_type_id"`
	TemplateID    string    `json:"template_id,omitempty"`
	IsFragile     bool      `json:"is_fragile"`
	ShipsInOwnBox bool      `json:"ships_in_own_box"`
	CanOverride   bool      `json:"can_override"`
	CreatedAt     time.Time `json:"created_at,omitzero"`
	UpdatedAt     time.Time `json:"updated_at,omitzero"`
}

func (p *rulePayload) toModel() *packing.Rule {
	return &packing.Rule{
		BrandID:       p.BrandID,
		ProductTypeID: p.ProductTypeID,
		TemplateID:    p.TemplateID,
		IsFragile:     p.IsFragile,
		ShipsInOwnBox: p.ShipsInOwnBox,
		CanOverride:   p.CanOverride,
	}
}

func ruleFromModel(r *packing.Rule) *rulePayload {
	return &rulePayload{
		BrandID:       r.BrandID,
		ProductTypeID: r.ProductTypeID,
		TemplateID:    r.TemplateID,
		IsFragile:     r.IsFragile,
		ShipsInOwnBox: r.ShipsInOwnBox,
		CanOverride:   r.CanOverride,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type resolutionPayload struct {
	Length        float64  `json:"length"`
	Width         float64  `json:"width"`
	Height        float64  `json:"height"`
	IsFragile     bool     `json:"is_fragile"`
	ShipsInOwnBox bool     `json:"ships_in_own_box"`
	TemplateID    string   `json:"template_id,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}

func resolutionFromModel(r *packing.Resolution) *resolutionPayload {
	return &resolutionPayload{
		Length:        r.Dimensions.Length,
		Width:         r.Dimensions.Width,
		Height:        r.Dimensions.Height,
		IsFragile:     r.IsFragile,
		ShipsInOwnBox: r.ShipsInOwnBox,
		TemplateID:    r.TemplateID,
		Warnings:      r.Warnings,
	}
}

type submitPayload struct {
	OrderID      string   `json:"order_id"`
	OrderItemID  string   `json:"order_item_id"`
	UserID       string   `json:"user_id"`
	BrandID      string   `json:"brand_id"`
	Type         string   `json:"type"`
	NewVariantID string   `json:"new_variant_id,omitempty"`
	Reason       string   `json:"reason,omitempty"`
	Comment      string   `json:"comment,omitempty"`
	Images       []string `json:"images,omitempty"`
}

func (p *submitPayload) toInput() returns.SubmitInput {
	return returns.SubmitInput{
		OrderID:      p.OrderID,
		OrderItemID:  p.OrderItemID,
		UserID:       p.UserID,
		BrandID:      p.BrandID,
		Type:         returns.RequestType(p.Type),
		NewVariantID: p.NewVariantID,
		Reason:       p.Reason,
		Comment:      p.Comment,
		Images:       p.Images,
	}
}

type requestPayload struct {
	ID           string    `json:"id"`
	OrderID      string    `json:"order_id"`
	OrderItemID  string    `json:"order_item_id"`
	UserID       string    `json:"user_id"`
	BrandID      string    `json:"brand_id"`
	Type         string    `json:"type"`
	NewVariantID string    `json:"new_variant_id,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	Comment      string    `json:"comment,omitempty"`
	Images       []string  `json:"images,omitempty"`
	Status       string    `json:"status"`
	ShipmentID   string    `json:"shipment_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func requestFromModel(r *returns.Request) *requestPayload {
	return &requestPayload{
		ID:           r.ID,
		OrderID:      r.OrderID,
		OrderItemID:  r.OrderItemID,
		UserID:       r.UserID,
		BrandID:      r.BrandID,
		Type:         string(r.Type),
		NewVariantID: r.NewVariantID,
		Reason:       r.Reason,
		Comment:      r.Comment,
		Images:       r.Images,
		Status:       string(r.Status),
		ShipmentID:   r.ShipmentID,
		CreatedAt:    r.CreatedAt,
	}
}

type listEnvelope struct {
	Items []*requestPayload `json:"items"`
	Total int               `json:"total"`
}

type approveResultPayload struct {
	Request         *requestPayload `json:"request"`
	Waybill         string          `json:"waybill,omitempty"`
	PickupScheduled bool            `json:"pickup_scheduled"`
	Fulfilled       bool            `json:"fulfilled"`
	FulfillmentErr  string          `json:"fulfillment_error,omitempty"`
}

func approveResultFromModel(r *returns.ApproveResult) *approveResultPayload {
	out := &approveResultPayload{
		Request:         requestFromModel(r.Request),
		Waybill:         r.Waybill,
		PickupScheduled: r.PickupScheduled,
		Fulfilled:       r.FulfillmentErr == nil,
	}
	if r.FulfillmentErr != nil {
		out.FulfillmentErr = r.FulfillmentErr.Error()
	}
	return out
}
