// Package trends fetches trending-now searches from the SerpApi search-trends API.
package trends

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/trendingnow/trends-ingestion-service/internal/config"
	"github.com/trendingnow/trends-ingestion-service/internal/models"
)

// Client queries the trends provider
type Client struct {
	config     config.TrendsConfig
	httpClient *http.Client
	backoff    func(attempt int) time.Duration
}

// NewClient creates a new trends provider client
func NewClient(cfg config.TrendsConfig) *Client {
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt+1) * time.Second
		},
	}
}

// Fetch returns the trending searches of the configured region and lookback
// window, retrying failed requests
func (c *Client) Fetch(ctx context.Context) ([]models.TrendingSearch, error) {
	var lastErr error

	for attempt := 0; attempt < c.config.RetryCount; attempt++ {
		searches, err := c.fetchOnce(ctx)
		if err == nil {
			return searches, nil
		}

		lastErr = err
		if attempt < c.config.RetryCount-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff(attempt)):
			}
		}
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", c.config.RetryCount, lastErr)
}

// fetchOnce performs a single fetch attempt
func (c *Client) fetchOnce(ctx context.Context) ([]models.TrendingSearch, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var result models.TrendingNowResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if result.Error != "" {
		return nil, fmt.Errorf("API returned error: %s", result.Error)
	}

	return result.TrendingSearches, nil
}

func (c *Client) requestURL() string {
	params := url.Values{}
	params.Set("engine", c.config.Engine)
	params.Set("geo", c.config.Geo)
	params.Set("hours", strconv.Itoa(c.config.Hours))
	params.Set("api_key", c.config.APIKey)

	return c.config.Endpoint + "?" + params.Encode()
}
