package safety

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPChecker fetches safety and bundle analysis from an HTTP token-analysis
// API. Implements Checker and BundleChecker.
type HTTPChecker struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPChecker creates a checker for the given API base URL
func NewHTTPChecker(baseURL string, timeout time.Duration) *HTTPChecker {
	return &HTTPChecker{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// safetyResponse mirrors the analysis API response shape
type safetyResponse struct {
	Mint          string   `json:"mint"`
	Score         float64  `json:"score"`
	BlockingFlags []string `json:"blockingFlags"`
}

type bundleResponse struct {
	Mint      string  `json:"mint"`
	RiskScore float64 `json:"riskScore"`
	RiskLevel string  `json:"riskLevel"`
}

// CheckSafety runs the token safety analysis
func (hc *HTTPChecker) CheckSafety(ctx context.Context, mint string) (*Result, error) {
	var body safetyResponse
	if err := hc.get(ctx, fmt.Sprintf("%s/tokens/%s/safety", hc.baseURL, url.PathEscape(mint)), mint, &body); err != nil {
		return nil, err
	}
	return &Result{
		Mint:          mint,
		Score:         body.Score,
		BlockingFlags: body.BlockingFlags,
		CheckedAt:     time.Now(),
	}, nil
}

// CheckBundleRisk runs bundle/insider risk analysis
func (hc *HTTPChecker) CheckBundleRisk(ctx context.Context, mint string) (*BundleResult, error) {
	var body bundleResponse
	if err := hc.get(ctx, fmt.Sprintf("%s/tokens/%s/bundle", hc.baseURL, url.PathEscape(mint)), mint, &body); err != nil {
		return nil, err
	}
	return &BundleResult{
		Mint:      mint,
		RiskScore: body.RiskScore,
		RiskLevel: body.RiskLevel,
		CheckedAt: time.Now(),
	}, nil
}

func (hc *HTTPChecker) get(ctx context.Context, endpoint, mint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building analysis request: %w", err)
	}

	resp, err := hc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetching analysis for %s: %w", mint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("no analysis for token %s", mint)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("analysis API returned status %d for %s", resp.StatusCode, mint)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding analysis for %s: %w", mint, err)
	}
	return nil
}
