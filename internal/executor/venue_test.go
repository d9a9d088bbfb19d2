package executor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mr-tron/base58"

	"solana-sniper-bot/internal/logging"
	"solana-sniper-bot/internal/vault"
)

const venueTestMint = "So11111111111111111111111111111111111111112"

func testVenue(t *testing.T, handler http.HandlerFunc) (*VenueExecutor, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	pub := make([]byte, 32)
	priv := make([]byte, 64)
	for i := range priv {
		priv[i] = byte(i + 1)
	}
	copy(pub, priv[:32])

	wallet := vault.NewMockClient()
	if err := wallet.StoreWalletKey(context.Background(), vault.WalletKey{
		PublicKey:  base58.Encode(pub),
		PrivateKey: base58.Encode(priv),
	}); err != nil {
		t.Fatalf("storing test wallet key: %v", err)
	}

	logger := logging.New(&logging.Config{Level: "ERROR", Output: "stdout"})
	return NewVenueExecutor("test", server.URL, wallet, 5*time.Second, logger), server
}

func TestVenueExecuteBuy(t *testing.T) {
	var received tradeRequest
	ve, _ := testVenue(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/trade" {
			t.Errorf("path = %s, want /trade", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&received)
		json.NewEncoder(w).Encode(tradeResponse{
			Signature: "sig123",
			Price:     0.0002,
			Quantity:  5000,
			SolAmount: 1,
		})
	})

	fill, err := ve.ExecuteBuy(context.Background(), venueTestMint, 1)
	if err != nil {
		t.Fatalf("ExecuteBuy: %v", err)
	}

	if received.Action != "buy" || received.Mint != venueTestMint {
		t.Errorf("request = %+v", received)
	}
	if received.AmountUnit != "sol" || received.Amount != 1 {
		t.Errorf("buy amount = %v %s, want 1 sol", received.Amount, received.AmountUnit)
	}
	if received.PrivateKey == "" {
		t.Error("request carried no signing key")
	}

	if fill.Signature != "sig123" || fill.Venue != "test" || fill.Side != "buy" {
		t.Errorf("fill = %+v", fill)
	}
	if fill.Price != 0.0002 || fill.Quantity != 5000 {
		t.Errorf("fill price/quantity = %v/%v", fill.Price, fill.Quantity)
	}
}

func TestVenueExecuteSell(t *testing.T) {
	var received tradeRequest
	ve, _ := testVenue(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		json.NewEncoder(w).Encode(tradeResponse{Signature: "sig456", Price: 0.0003, SolAmount: 0.6})
	})

	fill, err := ve.ExecuteSell(context.Background(), venueTestMint, 50)
	if err != nil {
		t.Fatalf("ExecuteSell: %v", err)
	}
	if received.Action != "sell" || received.AmountUnit != "percent" || received.Amount != 50 {
		t.Errorf("request = %+v", received)
	}
	if fill.Side != "sell" || fill.Signature != "sig456" {
		t.Errorf("fill = %+v", fill)
	}
}

func TestVenueSellRejectsBadPercent(t *testing.T) {
	ve, _ := testVenue(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request reached the venue for an invalid percent")
	})

	for _, percent := range []float64{0, -5, 150} {
		if _, err := ve.ExecuteSell(context.Background(), venueTestMint, percent); err == nil {
			t.Errorf("percent %v accepted", percent)
		}
	}
}

func TestVenueErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "venue error message",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(tradeResponse{Error: "insufficient liquidity"})
			},
		},
		{
			name: "server error without body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{}`))
			},
		},
		{
			name: "missing signature",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(tradeResponse{Price: 0.0002})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ve, _ := testVenue(t, tt.handler)
			if _, err := ve.ExecuteBuy(context.Background(), venueTestMint, 1); err == nil {
				t.Error("expected error")
			}
		})
	}
}
