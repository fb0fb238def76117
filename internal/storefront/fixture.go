package storefront

import (
	"context"

	"github.com/knitkart/fulfillment/pkg/carrier"
	"github.com/knitkart/fulfillment/pkg/packing"
	"github.com/knitkart/fulfillment/pkg/returns"
)

// FixtureDirectory serves canned item and address data for local runs
// without a storefront to talk to.
type FixtureDirectory struct{}

// NewFixtureDirectory creates a fixture-backed directory.
func NewFixtureDirectory() *FixtureDirectory {
	return &FixtureDirectory{}
}

// OrderItem returns a fixture item.
func (FixtureDirectory) OrderItem(ctx context.Context, orderID, orderItemID string) (*returns.ItemInfo, error) {
	return fixtureItem(), nil
}

// Variant returns a fixture variant.
func (FixtureDirectory) Variant(ctx context.Context, variantID string) (*returns.ItemInfo, error) {
	return fixtureItem(), nil
}

// DeliveryAddress returns a fixture customer address.
func (FixtureDirectory) DeliveryAddress(ctx context.Context, orderID string) (*carrier.Address, error) {
	return &carrier.Address{
		Name:    "Test Customer",
		Phone:   "9800000000",
		Line1:   "14 Lake View Rd",
		City:    "Bengaluru",
		State:   "Karnataka",
		Pincode: "560001",
		Country: "IN",
	}, nil
}

// SellerAddress returns a fixture warehouse address.
func (FixtureDirectory) SellerAddress(ctx context.Context, brandID string) (*carrier.Address, error) {
	return &carrier.Address{
		Name:    "Knitkart Warehouse",
		Phone:   "9811111111",
		Line1:   "Plot 7, MIDC Industrial Area",
		City:    "Mumbai",
		State:   "Maharashtra",
		Pincode: "400001",
		Country: "IN",
	}, nil
}

func fixtureItem() *returns.ItemInfo {
	return &returns.ItemInfo{
		ProductTypeID: "apparel",
		Declared:      &packing.Dimensions{Length: 30, Width: 25, Height: 5},
		WeightKg:      0.5,
		Description:   "Knitwear item",
	}
}

var _ returns.OrderDirectory = (*FixtureDirectory)(nil)
