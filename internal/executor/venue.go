package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"solana-sniper-bot/internal/logging"
	"solana-sniper-bot/internal/vault"
)

// VenueExecutor submits swaps to a trade-API venue over HTTP. The venue
// builds, signs-over and lands the transaction; the wallet key comes from
// the vault client at request time and is never stored on the executor.
type VenueExecutor struct {
	name       string
	baseURL    string
	wallet     *vault.Client
	httpClient *http.Client
	logger     *logging.Logger
}

// NewVenueExecutor creates an executor for one venue endpoint
func NewVenueExecutor(name, baseURL string, wallet *vault.Client, timeout time.Duration, logger *logging.Logger) *VenueExecutor {
	return &VenueExecutor{
		name:       name,
		baseURL:    baseURL,
		wallet:     wallet,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.WithComponent("venue-" + name),
	}
}

// Name identifies the venue
func (ve *VenueExecutor) Name() string {
	return ve.name
}

// tradeRequest is the venue's trade endpoint payload
type tradeRequest struct {
	Action     string  `json:"action"` // "buy" or "sell"
	Mint       string  `json:"mint"`
	Amount     float64 `json:"amount"`     // SOL for buys, percent for sells
	AmountUnit string  `json:"amountUnit"` // "sol" or "percent"
	PrivateKey string  `json:"privateKey"`
	Slippage   float64 `json:"slippage"`
}

// tradeResponse is the venue's trade endpoint result
type tradeResponse struct {
	Signature string  `json:"signature"`
	Price     float64 `json:"price"`
	Quantity  float64 `json:"quantity"`
	SolAmount float64 `json:"solAmount"`
	Error     string  `json:"error"`
}

// ExecuteBuy submits a buy for the given SOL amount
func (ve *VenueExecutor) ExecuteBuy(ctx context.Context, mint string, solAmount float64) (*Fill, error) {
	resp, err := ve.trade(ctx, tradeRequest{
		Action:     "buy",
		Mint:       mint,
		Amount:     solAmount,
		AmountUnit: "sol",
		Slippage:   10,
	})
	if err != nil {
		return nil, fmt.Errorf("buy on %s for %s: %w", ve.name, mint, err)
	}

	ve.logger.Info("Buy executed",
		"mint", mint, "sol", fmt.Sprintf("%.4f", solAmount), "signature", resp.Signature)

	return &Fill{
		Mint:       mint,
		Side:       "buy",
		Price:      resp.Price,
		Quantity:   resp.Quantity,
		SolAmount:  resp.SolAmount,
		Signature:  resp.Signature,
		Venue:      ve.name,
		ExecutedAt: time.Now(),
	}, nil
}

// ExecuteSell submits a sell for a percentage of the held quantity
func (ve *VenueExecutor) ExecuteSell(ctx context.Context, mint string, percent float64) (*Fill, error) {
	if percent <= 0 || percent > 100 {
		return nil, fmt.Errorf("sell on %s for %s: invalid percent %.1f", ve.name, mint, percent)
	}

	resp, err := ve.trade(ctx, tradeRequest{
		Action:     "sell",
		Mint:       mint,
		Amount:     percent,
		AmountUnit: "percent",
		Slippage:   10,
	})
	if err != nil {
		return nil, fmt.Errorf("sell on %s for %s: %w", ve.name, mint, err)
	}

	ve.logger.Info("Sell executed",
		"mint", mint, "percent", fmt.Sprintf("%.0f", percent), "signature", resp.Signature)

	return &Fill{
		Mint:       mint,
		Side:       "sell",
		Price:      resp.Price,
		Quantity:   resp.Quantity,
		SolAmount:  resp.SolAmount,
		Signature:  resp.Signature,
		Venue:      ve.name,
		ExecutedAt: time.Now(),
	}, nil
}

// trade signs the request with the vault wallet key and posts it
func (ve *VenueExecutor) trade(ctx context.Context, req tradeRequest) (*tradeResponse, error) {
	key, err := ve.wallet.GetWalletKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading wallet key: %w", err)
	}
	req.PrivateKey = key.PrivateKey

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling trade request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, ve.baseURL+"/trade", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building trade request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := ve.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("submitting trade: %w", err)
	}
	defer httpResp.Body.Close()

	var resp tradeResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decoding trade response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		if resp.Error != "" {
			return nil, fmt.Errorf("venue rejected trade: %s", resp.Error)
		}
		return nil, fmt.Errorf("venue returned status %d", httpResp.StatusCode)
	}
	if resp.Signature == "" {
		return nil, fmt.Errorf("venue returned no transaction signature")
	}
	return &resp, nil
}
