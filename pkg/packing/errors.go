package packing

import (
	"errors"
)

// Sentinel errors for catalog and rule store operations.
var (
	// ErrTemplateNotFound indicates the template ID does not exist in the catalog.
	ErrTemplateNotFound = errors.New("packing template not found")

	// ErrTemplateInUse indicates the template is still referenced by a rule.
	ErrTemplateInUse = errors.New("packing template still referenced by a rule")

	// ErrRuleNotFound indicates no rule exists for the (brand, product type) pair.
	ErrRuleNotFound = errors.New("packing rule not found")

	// ErrDuplicateRule indicates a rule already exists for the (brand, product type) pair.
	ErrDuplicateRule = errors.New("packing rule already exists for brand and product type")

	// ErrInvalidDimensions indicates negative base dimensions or cushioning.
	ErrInvalidDimensions = errors.New("invalid template dimensions")

	// ErrNoDefaultTemplate indicates the catalog holds no default template to fall back to.
	ErrNoDefaultTemplate = errors.New("no default packing template configured")
)

// IntegrityError reports a broken reference between a rule and the catalog.
// It is a distinct, non-retryable error class: the caller must repair the
// catalog data, not retry the resolution.
type IntegrityError struct {
	BrandID       string
	ProductTypeID string
	TemplateID    string
	Cause         error
}

// Error implements the error interface.
func (e *IntegrityError) Error() string {
	return "packing rule (" + e.BrandID + ", " + e.ProductTypeID + ") references missing template " + e.TemplateID
}

// Unwrap returns the underlying cause.
func (e *IntegrityError) Unwrap() error {
	return e.Cause
}
