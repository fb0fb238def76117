// Package packing resolves the physical shipping box for a brand and
// product type combination, honoring per-brand overrides and
// fragility/self-packaging flags.
package packing

import (
	"context"
	"errors"
	"fmt"
)

// Resolver computes authoritative shipping box dimensions. Resolution is a
// pure in-memory computation over store reads and never blocks on anything
// but the store itself.
type Resolver struct {
	store Store
}

// NewResolver creates a resolver backed by the given store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the box for (brandID, productTypeID). declared is the
// item's own declared package size, if known; it may be nil.
//
// Precedence, first match wins:
//  1. no rule for the pair: the system default template applies,
//     fragile=false, not self-packaged;
//  2. rule with ShipsInOwnBox (or a no-box template): the item's own
//     packaging is authoritative;
//  3. rule with a template: base dimensions plus cushioning per axis;
//  4. rule without a template: the declared size stands as-is.
//
// When the rule allows overrides, a declared size larger than the computed
// box wins per axis; an item is never silently truncated into a smaller
// box. When it does not, a supplied-but-ignored override is reported back
// as a warning rather than dropped.
func (r *Resolver) Resolve(ctx context.Context, brandID, productTypeID string, declared *Dimensions) (*Resolution, error) {
	rule, err := r.store.GetRule(ctx, brandID, productTypeID)
	if err != nil {
		if !errors.Is(err, ErrRuleNotFound) {
			return nil, fmt.Errorf("loading packing rule: %w", err)
		}
		return r.resolveDefault(ctx, declared)
	}

	if rule.ShipsInOwnBox {
		return ownBoxResolution(rule, declared), nil
	}

	res := &Resolution{
		IsFragile: rule.IsFragile,
	}

	if rule.TemplateID != "" {
		tmpl, err := r.store.GetTemplate(ctx, rule.TemplateID)
		if err != nil {
			if errors.Is(err, ErrTemplateNotFound) {
				return nil, &IntegrityError{
					BrandID:       brandID,
					ProductTypeID: productTypeID,
					TemplateID:    rule.TemplateID,
					Cause:         err,
				}
			}
			return nil, fmt.Errorf("loading packing template: %w", err)
		}
		// An all-zero template with no cushioning is the catalog's way of
		// saying "no physical box": same treatment as ShipsInOwnBox.
		if tmpl.IsNoBox() {
			return ownBoxResolution(rule, declared), nil
		}
		res.Dimensions = tmpl.Box()
		res.TemplateID = tmpl.ID
	} else if declared != nil {
		// No template assigned: the product's own declared package size
		// is the base, with no cushioning added.
		res.Dimensions = *declared
	}

	applyOverride(res, rule.CanOverride, declared)
	return res, nil
}

// resolveDefault handles the no-rule fallback: the smallest template marked
// as default, with no fragility and no self-packaging.
func (r *Resolver) resolveDefault(ctx context.Context, declared *Dimensions) (*Resolution, error) {
	tmpl, err := r.store.DefaultTemplate(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving default template: %w", err)
	}
	res := &Resolution{
		Dimensions: tmpl.Box(),
		TemplateID: tmpl.ID,
	}
	// Without a rule there is nothing granting override permission.
	applyOverride(res, false, declared)
	return res, nil
}

func ownBoxResolution(rule *Rule, declared *Dimensions) *Resolution {
	res := &Resolution{
		IsFragile:     rule.IsFragile,
		ShipsInOwnBox: true,
	}
	if declared != nil {
		res.Dimensions = *declared
	}
	return res
}

// applyOverride reconciles the computed box with a caller-supplied size.
func applyOverride(res *Resolution, canOverride bool, declared *Dimensions) {
	if declared == nil {
		return
	}
	larger := declared.Length > res.Dimensions.Length ||
		declared.Width > res.Dimensions.Width ||
		declared.Height > res.Dimensions.Height
	if !larger {
		return
	}
	if !canOverride {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"declared size %.1fx%.1fx%.1f exceeds the assigned box %.1fx%.1fx%.1f but overrides are not permitted",
			declared.Length, declared.Width, declared.Height,
			res.Dimensions.Length, res.Dimensions.Width, res.Dimensions.Height))
		return
	}
	res.Dimensions.Length = max(res.Dimensions.Length, declared.Length)
	res.Dimensions.Width = max(res.Dimensions.Width, declared.Width)
	res.Dimensions.Height = max(res.Dimensions.Height, declared.Height)
}
