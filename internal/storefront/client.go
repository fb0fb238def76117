// Package storefront talks to the storefront's internal API for the
// order, variant, address and stock data fulfillment needs. The
// storefront owns those records; this client only reads them.
package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/knitkart/fulfillment/pkg/carrier"
	"github.com/knitkart/fulfillment/pkg/packing"
	"github.com/knitkart/fulfillment/pkg/returns"
)

// Client implements returns.OrderDirectory and returns.StockChecker over
// the storefront's internal HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Config holds storefront client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// New creates a storefront client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type itemPayload struct {
	ProductTypeID string   `json:"product_type_id"`
	WeightKg      float64  `json:"weight_kg"`
	Description   string   `json:"description"`
	Length        *float64 `json:"length_cm"`
	Width         *float64 `json:"width_cm"`
	Height        *float64 `json:"height_cm"`
}

type addressPayload struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Line1   string `json:"address_line1"`
	Line2   string `json:"address_line2"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
	Country string `json:"country"`
}

type stockPayload struct {
	VariantID string `json:"variant_id"`
	Available bool   `json:"available"`
}

// OrderItem describes the physical item of an order line.
// GET /internal/orders/{orderID}/items/{itemID}
func (c *Client) OrderItem(ctx context.Context, orderID, orderItemID string) (*returns.ItemInfo, error) {
	path := fmt.Sprintf("/internal/orders/%s/items/%s",
		url.PathEscape(orderID), url.PathEscape(orderItemID))

	var payload itemPayload
	if err := c.getJSON(ctx, path, &payload); err != nil {
		return nil, fmt.Errorf("loading order item: %w", err)
	}
	return payload.toItemInfo(), nil
}

// Variant describes a product variant.
// GET /internal/variants/{variantID}
func (c *Client) Variant(ctx context.Context, variantID string) (*returns.ItemInfo, error) {
	var payload itemPayload
	if err := c.getJSON(ctx, "/internal/variants/"+url.PathEscape(variantID), &payload); err != nil {
		return nil, fmt.Errorf("loading variant: %w", err)
	}
	return payload.toItemInfo(), nil
}

// DeliveryAddress is where the original order was delivered.
// GET /internal/orders/{orderID}/delivery-address
func (c *Client) DeliveryAddress(ctx context.Context, orderID string) (*carrier.Address, error) {
	var payload addressPayload
	path := "/internal/orders/" + url.PathEscape(orderID) + "/delivery-address"
	if err := c.getJSON(ctx, path, &payload); err != nil {
		return nil, fmt.Errorf("loading delivery address: %w", err)
	}
	return payload.toAddress(), nil
}

// SellerAddress is the brand's warehouse address.
// GET /internal/brands/{brandID}/seller-address
func (c *Client) SellerAddress(ctx context.Context, brandID string) (*carrier.Address, error) {
	var payload addressPayload
	path := "/internal/brands/" + url.PathEscape(brandID) + "/seller-address"
	if err := c.getJSON(ctx, path, &payload); err != nil {
		return nil, fmt.Errorf("loading seller address: %w", err)
	}
	return payload.toAddress(), nil
}

// Available reports whether the variant has sellable stock.
// GET /internal/variants/{variantID}/stock
func (c *Client) Available(ctx context.Context, variantID string) (bool, error) {
	var payload stockPayload
	path := "/internal/variants/" + url.PathEscape(variantID) + "/stock"
	if err := c.getJSON(ctx, path, &payload); err != nil {
		return false, fmt.Errorf("checking variant stock: %w", err)
	}
	return payload.Available, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", "knitkart-fulfillment/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("storefront returned %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode storefront response: %w", err)
	}
	return nil
}

func (p *itemPayload) toItemInfo() *returns.ItemInfo {
	info := &returns.ItemInfo{
		ProductTypeID: p.ProductTypeID,
		WeightKg:      p.WeightKg,
		Description:   p.Description,
	}
	if p.Length != nil && p.Width != nil && p.Height != nil {
		info.Declared = &packing.Dimensions{
			Length: *p.Length,
			Width:  *p.Width,
			Height: *p.Height,
		}
	}
	return info
}

func (p *addressPayload) toAddress() *carrier.Address {
	return &carrier.Address{
		Name:    p.Name,
		Phone:   p.Phone,
		Email:   p.Email,
		Line1:   p.Line1,
		Line2:   p.Line2,
		City:    p.City,
		State:   p.State,
		Pincode: p.Pincode,
		Country: p.Country,
	}
}

var (
	_ returns.OrderDirectory = (*Client)(nil)
	_ returns.StockChecker   = (*Client)(nil)
)
