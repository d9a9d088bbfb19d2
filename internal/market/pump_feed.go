package market

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// PumpFeed subscribes to a pump.fun-style websocket stream of token creation
// and trade events. It feeds newly created mints into a candidate channel,
// records trades into the flow tracker, and caches the last traded price per
// mint so position polls avoid an extra network round trip.
type PumpFeed struct {
	url     string
	flow    *FlowTracker
	maxStale time.Duration

	mu         sync.RWMutex
	conn       *websocket.Conn
	isRunning  bool
	reconnects int
	lastPrices map[string]pricePoint

	candidates chan TokenEvent
	onTrade    func(TokenEvent)
	wg         sync.WaitGroup
}

type pricePoint struct {
	price float64
	at    time.Time
}

// rawFeedMessage mirrors the wire format of the token stream
type rawFeedMessage struct {
	TxType                string  `json:"txType"` // "create", "buy", "sell"
	Mint                  string  `json:"mint"`
	Symbol                string  `json:"symbol"`
	SolAmount             float64 `json:"solAmount"`
	MarketCapSol          float64 `json:"marketCapSol"`
	VSolInBondingCurve    float64 `json:"vSolInBondingCurve"`
	VTokensInBondingCurve float64 `json:"vTokensInBondingCurve"`
	TraderPublicKey       string  `json:"traderPublicKey"`
}

// NewPumpFeed creates a feed client for the given websocket URL
func NewPumpFeed(url string, flow *FlowTracker, maxStale time.Duration) *PumpFeed {
	return &PumpFeed{
		url:        url,
		flow:       flow,
		maxStale:   maxStale,
		lastPrices: make(map[string]pricePoint),
		candidates: make(chan TokenEvent, 256),
	}
}

// Candidates returns the channel of newly created tokens
func (pf *PumpFeed) Candidates() <-chan TokenEvent {
	return pf.candidates
}

// OnTrade registers a handler for trade events. Must be called before Start.
// The handler runs on the read loop, so it must not block.
func (pf *PumpFeed) OnTrade(handler func(TokenEvent)) {
	pf.onTrade = handler
}

// Start connects and begins streaming. Reconnects automatically until Stop.
func (pf *PumpFeed) Start() {
	pf.mu.Lock()
	if pf.isRunning {
		pf.mu.Unlock()
		return
	}
	pf.isRunning = true
	pf.mu.Unlock()

	pf.wg.Add(1)
	go pf.connect()
}

// Stop closes the connection and waits for the read loop to exit
func (pf *PumpFeed) Stop() {
	pf.mu.Lock()
	if !pf.isRunning {
		pf.mu.Unlock()
		return
	}
	pf.isRunning = false
	if pf.conn != nil {
		pf.conn.Close()
	}
	pf.mu.Unlock()

	pf.wg.Wait()
}

// connect dials the stream and reconnects on failure
func (pf *PumpFeed) connect() {
	defer pf.wg.Done()

	for {
		pf.mu.RLock()
		if !pf.isRunning {
			pf.mu.RUnlock()
			return
		}
		pf.mu.RUnlock()

		log.Printf("[PUMP-FEED] Connecting to %s...", pf.url)

		conn, _, err := websocket.DefaultDialer.Dial(pf.url, nil)
		if err != nil {
			log.Printf("[PUMP-FEED] Connection failed: %v, retrying in 5s", err)
			pf.mu.Lock()
			pf.reconnects++
			pf.mu.Unlock()
			time.Sleep(5 * time.Second)
			continue
		}

		pf.mu.Lock()
		pf.conn = conn
		pf.mu.Unlock()

		if err := pf.subscribe(conn); err != nil {
			log.Printf("[PUMP-FEED] Subscribe failed: %v", err)
			conn.Close()
			time.Sleep(3 * time.Second)
			continue
		}

		log.Printf("[PUMP-FEED] Connected and subscribed")
		pf.readLoop(conn)

		pf.mu.RLock()
		running := pf.isRunning
		pf.mu.RUnlock()
		if !running {
			return
		}

		log.Printf("[PUMP-FEED] Connection lost, reconnecting in 3s")
		time.Sleep(3 * time.Second)
	}
}

// subscribe requests new-token and trade events
func (pf *PumpFeed) subscribe(conn *websocket.Conn) error {
	msgs := []map[string]interface{}{
		{"method": "subscribeNewToken"},
		{"method": "subscribeTokenTrade"},
	}
	for _, m := range msgs {
		if err := conn.WriteJSON(m); err != nil {
			return fmt.Errorf("writing subscription: %w", err)
		}
	}
	return nil
}

// readLoop reads messages until the connection drops
func (pf *PumpFeed) readLoop(conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[PUMP-FEED] Connection closed normally")
			} else {
				log.Printf("[PUMP-FEED] Read error: %v", err)
			}
			return
		}
		pf.handleMessage(message)
	}
}

// handleMessage routes one stream message
func (pf *PumpFeed) handleMessage(message []byte) {
	var raw rawFeedMessage
	if err := json.Unmarshal(message, &raw); err != nil {
		log.Printf("[PUMP-FEED] Failed to parse message: %v", err)
		return
	}
	if raw.Mint == "" {
		return
	}

	price := bondingCurvePrice(raw.VSolInBondingCurve, raw.VTokensInBondingCurve)

	switch raw.TxType {
	case "create":
		event := TokenEvent{
			Type:         "create",
			Mint:         raw.Mint,
			Symbol:       raw.Symbol,
			SolAmount:    raw.SolAmount,
			PriceSOL:     price,
			MarketCapSOL: raw.MarketCapSol,
			Trader:       raw.TraderPublicKey,
			Timestamp:    time.Now(),
		}
		select {
		case pf.candidates <- event:
		default:
			log.Printf("[PUMP-FEED] Candidate channel full, dropping %s", raw.Mint)
		}

	case "buy", "sell":
		if pf.flow != nil {
			pf.flow.Record(raw.Mint, raw.TxType, raw.SolAmount)
		}
		if price > 0 {
			pf.mu.Lock()
			pf.lastPrices[raw.Mint] = pricePoint{price: price, at: time.Now()}
			pf.mu.Unlock()
		}
		if pf.onTrade != nil {
			pf.onTrade(TokenEvent{
				Type:         "trade",
				Mint:         raw.Mint,
				Symbol:       raw.Symbol,
				Side:         raw.TxType,
				SolAmount:    raw.SolAmount,
				PriceSOL:     price,
				MarketCapSOL: raw.MarketCapSol,
				Trader:       raw.TraderPublicKey,
				Timestamp:    time.Now(),
			})
		}
	}
}

// bondingCurvePrice derives the spot price from bonding curve reserves
func bondingCurvePrice(vSol, vTokens float64) float64 {
	if vTokens <= 0 {
		return 0
	}
	return vSol / vTokens
}

// CurrentPrice returns the last traded price if it is fresh enough.
// Implements PriceProvider.
func (pf *PumpFeed) CurrentPrice(ctx context.Context, mint string) (float64, error) {
	pf.mu.RLock()
	point, ok := pf.lastPrices[mint]
	pf.mu.RUnlock()

	if !ok {
		return 0, fmt.Errorf("no observed price for %s", mint)
	}
	if time.Since(point.at) > pf.maxStale {
		return 0, fmt.Errorf("price for %s is stale (%.0fs old)", mint, time.Since(point.at).Seconds())
	}
	return point.price, nil
}

// Forget drops cached price state for a token
func (pf *PumpFeed) Forget(mint string) {
	pf.mu.Lock()
	delete(pf.lastPrices, mint)
	pf.mu.Unlock()
	if pf.flow != nil {
		pf.flow.Forget(mint)
	}
}

// Reconnects returns the reconnect counter, for the status API
func (pf *PumpFeed) Reconnects() int {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	return pf.reconnects
}
