package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Rate is a pair exchange rate quoted by the price aggregator. Converting an
// amount multiplies by numerator and divides by denominator.
type Rate struct {
	Numerator   int64     `json:"numerator"`
	Denominator int64     `json:"denominator"`
	QuotedAt    time.Time `json:"quoted_at"`
}

// RateFetcher obtains the current exchange rate for a pair route.
type RateFetcher interface {
	FetchRate(ctx context.Context, route string) (*Rate, error)
}

// Client fetches rates over HTTP from the price aggregator.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new aggregator client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchRate fetches the current rate for a pair route.
func (c *Client) FetchRate(ctx context.Context, route string) (*Rate, error) {
	url := fmt.Sprintf("%s/rates/%s", c.baseURL, route)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build rate request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rate for %s: %w", route, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("aggregator returned %d for route %s", resp.StatusCode, route)
	}

	var rate Rate
	if err := json.NewDecoder(resp.Body).Decode(&rate); err != nil {
		return nil, fmt.Errorf("decode rate for %s: %w", route, err)
	}
	return &rate, nil
}
