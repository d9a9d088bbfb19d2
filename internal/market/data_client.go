package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// DataClient fetches token metrics from an HTTP market-data API.
// Implements MetricsProvider and PriceProvider.
type DataClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewDataClient creates a client for the given API base URL
func NewDataClient(baseURL string, timeout time.Duration) *DataClient {
	return &DataClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// tokenMetricsResponse mirrors the API response shape
type tokenMetricsResponse struct {
	Mint               string  `json:"mint"`
	Symbol             string  `json:"symbol"`
	PriceSOL           float64 `json:"priceSol"`
	MarketCapSOL       float64 `json:"marketCapSol"`
	Volume24hSOL       float64 `json:"volume24hSol"`
	LiquiditySOL       float64 `json:"liquiditySol"`
	HolderCount        int     `json:"holderCount"`
	Top10HolderPercent float64 `json:"top10HolderPercent"`
	CreatedAtUnix      int64   `json:"createdAt"`
}

// FetchMetrics retrieves a full metrics snapshot for a token
func (dc *DataClient) FetchMetrics(ctx context.Context, mint string) (*MetricsSnapshot, error) {
	if err := ValidateMint(mint); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/tokens/%s", dc.baseURL, url.PathEscape(mint))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building metrics request: %w", err)
	}

	resp, err := dc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching metrics for %s: %w", mint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("token %s not found", mint)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metrics API returned status %d for %s", resp.StatusCode, mint)
	}

	var body tokenMetricsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding metrics for %s: %w", mint, err)
	}

	snap := &MetricsSnapshot{
		Mint:               body.Mint,
		Symbol:             body.Symbol,
		Price:              body.PriceSOL,
		MarketCapSOL:       body.MarketCapSOL,
		Volume24hSOL:       body.Volume24hSOL,
		LiquiditySOL:       body.LiquiditySOL,
		HolderCount:        body.HolderCount,
		Top10HolderPercent: body.Top10HolderPercent,
		FetchedAt:          time.Now(),
	}
	if body.CreatedAtUnix > 0 {
		snap.AgeMinutes = time.Since(time.Unix(body.CreatedAtUnix, 0)).Minutes()
	}
	return snap, nil
}

// CurrentPrice fetches just the current price for a token
func (dc *DataClient) CurrentPrice(ctx context.Context, mint string) (float64, error) {
	snap, err := dc.FetchMetrics(ctx, mint)
	if err != nil {
		return 0, err
	}
	if snap.Price <= 0 {
		return 0, fmt.Errorf("no price available for %s", mint)
	}
	return snap.Price, nil
}
