package shiprocket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPAPIClient is the production implementation of APIClient using HTTP.
type HTTPAPIClient struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL  string
	APIToken string
	Timeout  time.Duration
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPAPIClient{
		baseURL:  cfg.BaseURL,
		apiToken: cfg.APIToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateOrder books a shipment via the Shiprocket API.
// POST /orders/create/adhoc
func (c *HTTPAPIClient) CreateOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/orders/create/adhoc", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.parseError(resp)
	}

	var result OrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode order response: %w", err)
	}
	return &result, nil
}

// CreateReturnOrder marks a forward shipment RTO via the Shiprocket API.
// POST /orders/create/return
func (c *HTTPAPIClient) CreateReturnOrder(ctx context.Context, req *ReturnOrderRequest) (*OrderResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/orders/create/return", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.parseError(resp)
	}

	var result OrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode return order response: %w", err)
	}
	return &result, nil
}

// GeneratePickup schedules a pickup via the Shiprocket API.
// POST /courier/generate/pickup
func (c *HTTPAPIClient) GeneratePickup(ctx context.Context, req *PickupRequest) (*PickupResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/courier/generate/pickup", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result PickupResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode pickup response: %w", err)
	}
	return &result, nil
}

// TrackAWB retrieves tracking information from the Shiprocket API.
// GET /courier/track/awb/{awb}
func (c *HTTPAPIClient) TrackAWB(ctx context.Context, awb string) (*TrackingResponse, error) {
	path := fmt.Sprintf("/courier/track/awb/%s", awb)

	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result TrackingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode tracking response: %w", err)
	}
	result.AWBCode = awb
	return &result, nil
}

// GenerateLabel retrieves a shipping label from the Shiprocket API.
// POST /courier/generate/label
func (c *HTTPAPIClient) GenerateLabel(ctx context.Context, awb string) (*LabelResponse, error) {
	body := map[string][]string{"awb_code": {awb}}

	resp, err := c.doRequest(ctx, http.MethodPost, "/courier/generate/label", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result LabelResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode label response: %w", err)
	}
	return &result, nil
}

// doRequest performs an HTTP request with proper headers and authentication.
func (c *HTTPAPIClient) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("User-Agent", "knitkart-fulfillment/1.0")

	return c.httpClient.Do(req)
}

// parseError extracts error information from an HTTP response.
func (c *HTTPAPIClient) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		if apiErr.StatusCode == 0 {
			apiErr.StatusCode = resp.StatusCode
		}
		return &apiErr
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    string(body),
	}
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
