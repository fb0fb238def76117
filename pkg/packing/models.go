package packing

import (
	"time"
)

// Dimensions is an outer box size in centimetres.
type Dimensions struct {
	Length float64
	Width  float64
	Height float64
}

// IsZero reports whether all axes are zero.
func (d Dimensions) IsZero() bool {
	return d.Length == 0 && d.Width == 0 && d.Height == 0
}

// Template is a named base box size plus a cushioning margin.
// Base dimensions of all-zero with no margin mean "no physical box":
// the item ships in its own packaging.
type Template struct {
	ID         string
	Name       string // optional label, e.g. an HS-code-like tag
	BaseLength float64
	BaseWidth  float64
	BaseHeight float64
	ExtraCm    float64 // cushioning margin added to every axis
	IsDefault  bool    // candidate for the system-wide fallback
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate rejects degenerate templates at write time.
func (t *Template) Validate() error {
	if t.BaseLength < 0 || t.BaseWidth < 0 || t.BaseHeight < 0 {
		return ErrInvalidDimensions
	}
	if t.ExtraCm < 0 {
		return ErrInvalidDimensions
	}
	return nil
}

// IsNoBox reports whether the template carries no physical box at all.
func (t *Template) IsNoBox() bool {
	return t.BaseLength == 0 && t.BaseWidth == 0 && t.BaseHeight == 0 && t.ExtraCm == 0
}

// Box returns the final outer dimensions: base plus cushioning on every axis.
func (t *Template) Box() Dimensions {
	return Dimensions{
		Length: t.BaseLength + t.ExtraCm,
		Width:  t.BaseWidth + t.ExtraCm,
		Height: t.BaseHeight + t.ExtraCm,
	}
}

// Volume returns the base volume, used to pick the smallest default template.
func (t *Template) Volume() float64 {
	return t.BaseLength * t.BaseWidth * t.BaseHeight
}

// Rule is the per-brand, per-product-type packaging override.
// At most one rule exists per (BrandID, ProductTypeID) pair.
type Rule struct {
	BrandID       string
	ProductTypeID string
	TemplateID    string // empty means no template assigned: item's own declared size applies
	IsFragile     bool
	ShipsInOwnBox bool // skip box selection entirely, item is self-packaged
	CanOverride   bool // operator may substitute a larger box at dispatch time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Resolution is the authoritative packaging answer for one item.
type Resolution struct {
	Dimensions    Dimensions
	IsFragile     bool
	ShipsInOwnBox bool
	TemplateID    string // empty when no template contributed the box
	Warnings      []string
}
