package market

import (
	"context"
	"fmt"
	"testing"
	"time"
)

const feedTestMint = "So11111111111111111111111111111111111111112"

func TestHandleMessageCreateEmitsCandidate(t *testing.T) {
	pf := NewPumpFeed("ws://unused", nil, time.Minute)

	pf.handleMessage([]byte(`{
		"txType": "create",
		"mint": "` + feedTestMint + `",
		"symbol": "TEST",
		"solAmount": 2,
		"marketCapSol": 30,
		"vSolInBondingCurve": 32,
		"vTokensInBondingCurve": 1000000000
	}`))

	select {
	case ev := <-pf.Candidates():
		if ev.Type != "create" || ev.Mint != feedTestMint || ev.Symbol != "TEST" {
			t.Errorf("unexpected candidate event: %+v", ev)
		}
		if ev.PriceSOL != 32.0/1000000000 {
			t.Errorf("PriceSOL = %v, want bonding curve price", ev.PriceSOL)
		}
	default:
		t.Fatal("create event did not reach the candidate channel")
	}
}

func TestHandleMessageTradeRecordsFlowPriceAndHandler(t *testing.T) {
	flow := NewFlowTracker(time.Minute)
	pf := NewPumpFeed("ws://unused", flow, time.Minute)

	var seen []TokenEvent
	pf.OnTrade(func(ev TokenEvent) { seen = append(seen, ev) })

	pf.handleMessage([]byte(`{
		"txType": "buy",
		"mint": "` + feedTestMint + `",
		"solAmount": 1.5,
		"vSolInBondingCurve": 40,
		"vTokensInBondingCurve": 800000000,
		"traderPublicKey": "TraderWallet"
	}`))

	if got := flow.RecentFlow(feedTestMint); got.BuyVolumeSOL != 1.5 {
		t.Errorf("BuyVolumeSOL = %v, want 1.5", got.BuyVolumeSOL)
	}

	price, err := pf.CurrentPrice(context.Background(), feedTestMint)
	if err != nil {
		t.Fatalf("CurrentPrice: %v", err)
	}
	if price != 40.0/800000000 {
		t.Errorf("price = %v, want bonding curve price", price)
	}

	if len(seen) != 1 {
		t.Fatalf("trade handler called %d times, want 1", len(seen))
	}
	if seen[0].Side != "buy" || seen[0].Trader != "TraderWallet" {
		t.Errorf("trade event = %+v", seen[0])
	}

	// No candidate for trades
	select {
	case ev := <-pf.Candidates():
		t.Errorf("unexpected candidate from a trade: %+v", ev)
	default:
	}
}

func TestHandleMessageIgnoresGarbage(t *testing.T) {
	pf := NewPumpFeed("ws://unused", nil, time.Minute)

	pf.handleMessage([]byte(`not json`))
	pf.handleMessage([]byte(`{"txType": "create"}`)) // missing mint

	select {
	case ev := <-pf.Candidates():
		t.Errorf("unexpected candidate: %+v", ev)
	default:
	}
}

func TestCurrentPriceStaleness(t *testing.T) {
	pf := NewPumpFeed("ws://unused", nil, 10*time.Millisecond)

	if _, err := pf.CurrentPrice(context.Background(), feedTestMint); err == nil {
		t.Error("expected error for unknown mint")
	}

	pf.mu.Lock()
	pf.lastPrices[feedTestMint] = pricePoint{price: 0.0002, at: time.Now().Add(-time.Second)}
	pf.mu.Unlock()

	if _, err := pf.CurrentPrice(context.Background(), feedTestMint); err == nil {
		t.Error("expected staleness error")
	}
}

func TestForgetClearsPriceAndFlow(t *testing.T) {
	flow := NewFlowTracker(time.Minute)
	pf := NewPumpFeed("ws://unused", flow, time.Minute)

	flow.Record(feedTestMint, "buy", 1)
	pf.mu.Lock()
	pf.lastPrices[feedTestMint] = pricePoint{price: 0.0002, at: time.Now()}
	pf.mu.Unlock()

	pf.Forget(feedTestMint)

	if _, err := pf.CurrentPrice(context.Background(), feedTestMint); err == nil {
		t.Error("price survived Forget")
	}
	if got := flow.RecentFlow(feedTestMint); got.Trades != 0 {
		t.Error("flow samples survived Forget")
	}
}

func TestLayeredPriceProviderFallsBack(t *testing.T) {
	feed := NewPumpFeed("ws://unused", nil, time.Minute)
	fallback := staticPrices{feedTestMint: 0.0005}
	layered := NewLayeredPriceProvider(feed, fallback)

	// Feed has nothing, fallback answers
	price, err := layered.CurrentPrice(context.Background(), feedTestMint)
	if err != nil {
		t.Fatalf("CurrentPrice: %v", err)
	}
	if price != 0.0005 {
		t.Errorf("price = %v, want fallback 0.0005", price)
	}

	// Fresh feed price wins over the fallback
	feed.mu.Lock()
	feed.lastPrices[feedTestMint] = pricePoint{price: 0.0002, at: time.Now()}
	feed.mu.Unlock()

	price, err = layered.CurrentPrice(context.Background(), feedTestMint)
	if err != nil {
		t.Fatalf("CurrentPrice: %v", err)
	}
	if price != 0.0002 {
		t.Errorf("price = %v, want feed 0.0002", price)
	}
}

type staticPrices map[string]float64

func (sp staticPrices) CurrentPrice(ctx context.Context, mint string) (float64, error) {
	if p, ok := sp[mint]; ok {
		return p, nil
	}
	return 0, fmt.Errorf("no price for %s", mint)
}
