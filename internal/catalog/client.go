// Package catalog retrieves canonical product prices from the print
// fulfillment provider. The checkout path never trusts a client-supplied
// price; this is where the authoritative number comes from.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

var (
	// ErrProductNotFound is returned when the provider has no such product.
	ErrProductNotFound = errors.New("product not found in catalog")

	// ErrVariantNotFound is returned when the product exists but the
	// requested variant does not.
	ErrVariantNotFound = errors.New("variant not found in catalog")
)

// Client retrieves canonical variant prices.
type Client interface {
	VariantPrice(ctx context.Context, productID, variantID string) (float64, error)
}

// HTTPClient talks to a Printful-compatible catalog API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient creates a catalog client for the given base URL and API key.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// productResponse mirrors the provider's GET /products/{id} payload. Variant
// prices arrive as decimal strings.
type productResponse struct {
	Result struct {
		Variants []struct {
			ID    json.Number `json:"id"`
			Price string      `json:"price"`
		} `json:"variants"`
	} `json:"result"`
}

// VariantPrice fetches the product and returns the unit price of the
// requested variant.
func (c *HTTPClient) VariantPrice(ctx context.Context, productID, variantID string) (float64, error) {
	url := fmt.Sprintf("%s/products/%s", c.baseURL, productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("catalog request for product %s: %w", productID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return 0, ErrProductNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("catalog returned status %d for product %s", resp.StatusCode, productID)
	}

	var body productResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode catalog response for product %s: %w", productID, err)
	}

	for _, v := range body.Result.Variants {
		if v.ID.String() != variantID {
			continue
		}
		price, err := strconv.ParseFloat(v.Price, 64)
		if err != nil {
			return 0, fmt.Errorf("parse price %q for variant %s: %w", v.Price, variantID, err)
		}
		return price, nil
	}

	return 0, ErrVariantNotFound
}
