package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	apperrors "github.com/thuannguyen2034/food-market-sub000/pkg/errors"
)

// Lookup resolves the effective unit price for a product at checkout time.
// Implementations are read-only; a failed lookup aborts checkout before any
// stock is touched.
type Lookup interface {
	UnitPrice(ctx context.Context, productID string) (int64, error)
}

// HTTPGetter is the subset of the HTTP client used by the pricing lookup.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy it.
type HTTPGetter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// HTTPLookup resolves prices from the pricing service over HTTP.
type HTTPLookup struct {
	client  HTTPGetter
	baseURL string
}

// NewHTTPLookup creates a pricing lookup against the given base URL.
func NewHTTPLookup(client HTTPGetter, baseURL string) *HTTPLookup {
	return &HTTPLookup{client: client, baseURL: baseURL}
}

type priceResponse struct {
	Data struct {
		ProductID string `json:"product_id"`
		UnitPrice int64  `json:"unit_price"`
	} `json:"data"`
}

// UnitPrice fetches the effective price for a product in minor currency units.
func (l *HTTPLookup) UnitPrice(ctx context.Context, productID string) (int64, error) {
	url := fmt.Sprintf("%s/prices/%s", l.baseURL, productID)

	resp, err := l.client.Get(ctx, url)
	if err != nil {
		return 0, fmt.Errorf("fetch price for product %s: %w", productID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return 0, apperrors.NotFound("price for product", productID)
	default:
		return 0, fmt.Errorf("pricing service returned status %d for product %s", resp.StatusCode, productID)
	}

	var body priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode price response for product %s: %w", productID, err)
	}

	if body.Data.UnitPrice < 0 {
		return 0, fmt.Errorf("pricing service returned negative price %d for product %s", body.Data.UnitPrice, productID)
	}

	return body.Data.UnitPrice, nil
}
