package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"solana-sniper-bot/internal/positions"
	"solana-sniper-bot/internal/router"
	"solana-sniper-bot/internal/thresholds"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	TypeSignal          NotificationType = "SIGNAL"
	TypePositionOpened  NotificationType = "POSITION_OPENED"
	TypePositionExit    NotificationType = "POSITION_EXIT"
	TypeBreakerTripped  NotificationType = "BREAKER_TRIPPED"
	TypeBreakerReset    NotificationType = "BREAKER_RESET"
	TypeThresholdChange NotificationType = "THRESHOLD_CHANGE"
	TypeSystem          NotificationType = "SYSTEM"
)

// Notification represents a notification message
type Notification struct {
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
}

// Notifier is the interface all notification channels implement
type Notifier interface {
	Send(notification *Notification) error
	Name() string
	IsEnabled() bool
}

// Manager manages multiple notification channels
type Manager struct {
	notifiers []Notifier
	mu        sync.RWMutex
	enabled   bool
}

// NewManager creates a new notification manager
func NewManager(enabled bool) *Manager {
	return &Manager{
		notifiers: make([]Notifier, 0),
		enabled:   enabled,
	}
}

// AddNotifier adds a notification channel
func (m *Manager) AddNotifier(n Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifiers = append(m.notifiers, n)
	log.Printf("[NOTIFICATION] Added notifier: %s", n.Name())
}

// Send sends a notification to all enabled channels. Delivery failures are
// logged and never propagate into the trading path.
func (m *Manager) Send(notification *Notification) {
	if !m.enabled {
		return
	}
	if notification.Timestamp.IsZero() {
		notification.Timestamp = time.Now()
	}

	m.mu.RLock()
	notifiers := make([]Notifier, len(m.notifiers))
	copy(notifiers, m.notifiers)
	m.mu.RUnlock()

	for _, n := range notifiers {
		if !n.IsEnabled() {
			continue
		}
		go func(n Notifier) {
			if err := n.Send(notification); err != nil {
				log.Printf("[NOTIFICATION] %s delivery failed: %v", n.Name(), err)
			}
		}(n)
	}
}

// SendSignal notifies about an accepted entry signal
func (m *Manager) SendSignal(s *router.Signal) {
	msg := fmt.Sprintf(
		"Track: %s\nTier: %s\nEntry: %.9f - %.9f SOL\nStop: %.1f%%\nSize: %.2f%% of capital",
		s.Track, s.Tier, s.EntryPriceLow, s.EntryPriceHigh, s.StopLossPercent, s.PositionSizePercent,
	)
	if s.Score != nil {
		msg += fmt.Sprintf("\nScore: %.1f (%s)", s.Score.Total, s.Score.Recommendation)
	}
	m.Send(&Notification{
		Type:    TypeSignal,
		Title:   fmt.Sprintf("🎯 Signal: %s (%s)", s.Symbol, shortMint(s.Mint)),
		Message: msg,
	})
}

// SendPositionOpened notifies about a filled entry
func (m *Manager) SendPositionOpened(p *positions.Position) {
	m.Send(&Notification{
		Type:  TypePositionOpened,
		Title: fmt.Sprintf("🟢 Opened: %s (%s)", p.Symbol, shortMint(p.Mint)),
		Message: fmt.Sprintf(
			"Entry: %.9f SOL\nSize: %.4f SOL\nStop: %.1f%%\nTP1: %.9f | TP2: %.9f",
			p.EntryPrice, p.EntrySOLAmount, p.StopLossPercent,
			p.TakeProfit1.Price, p.TakeProfit2.Price,
		),
	})
}

// SendPositionExit notifies about an exit fill, partial or full
func (m *Manager) SendPositionExit(p *positions.Position, reason string, sellPercent float64) {
	emoji := "🔴"
	if p.PnlPercent() > 0 {
		emoji = "💰"
	}
	scope := "Full exit"
	if sellPercent < 100 {
		scope = fmt.Sprintf("Partial exit (%.0f%%)", sellPercent)
	}
	m.Send(&Notification{
		Type:  TypePositionExit,
		Title: fmt.Sprintf("%s %s: %s (%s)", emoji, reason, p.Symbol, shortMint(p.Mint)),
		Message: fmt.Sprintf(
			"%s\nPnL: %.1f%%\nRealized: %.4f SOL\nPeak: %.1f%%",
			scope, p.PnlPercent(), p.RealizedPnlSOL(), p.PeakPnlPercent(),
		),
	})
}

// SendBreakerTripped notifies that the circuit breaker halted entries
func (m *Manager) SendBreakerTripped(reason string) {
	m.Send(&Notification{
		Type:    TypeBreakerTripped,
		Title:   "⛔ Circuit breaker tripped",
		Message: reason,
	})
}

// SendBreakerReset notifies that entries resumed
func (m *Manager) SendBreakerReset() {
	m.Send(&Notification{
		Type:    TypeBreakerReset,
		Title:   "✅ Circuit breaker reset",
		Message: "Entries resumed",
	})
}

// SendThresholdChange notifies about an optimizer adjustment
func (m *Manager) SendThresholdChange(c thresholds.Change) {
	m.Send(&Notification{
		Type:    TypeThresholdChange,
		Title:   "🔧 Threshold adjusted",
		Message: fmt.Sprintf("%s: %.2f → %.2f\n%s", c.Factor, c.OldValue, c.NewValue, c.Reason),
	})
}

// SendSystem sends a free-form system notification
func (m *Manager) SendSystem(title, message string) {
	m.Send(&Notification{Type: TypeSystem, Title: title, Message: message})
}

func shortMint(mint string) string {
	if len(mint) <= 8 {
		return mint
	}
	return mint[:4] + ".." + mint[len(mint)-4:]
}

// PositionNotifier adapts the manager to the position lifecycle callbacks
type PositionNotifier struct {
	manager *Manager
}

// NewPositionNotifier wraps the manager for use by the position manager
func NewPositionNotifier(m *Manager) *PositionNotifier {
	return &PositionNotifier{manager: m}
}

func (n *PositionNotifier) PositionOpened(p *positions.Position) {
	n.manager.SendPositionOpened(p)
}

func (n *PositionNotifier) PositionExited(p *positions.Position, reason string, sellPercent float64) {
	n.manager.SendPositionExit(p, reason, sellPercent)
}

// ============================================================================
// TELEGRAM
// ============================================================================

// TelegramNotifier sends notifications via Telegram bot
type TelegramNotifier struct {
	botToken string
	chatID   string
	enabled  bool
	client   *http.Client
}

// NewTelegramNotifier creates a new Telegram notifier
func NewTelegramNotifier(botToken, chatID string, enabled bool) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		enabled:  enabled && botToken != "" && chatID != "",
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramNotifier) Name() string { return "Telegram" }

func (t *TelegramNotifier) IsEnabled() bool { return t.enabled }

// Send sends a notification via Telegram
func (t *TelegramNotifier) Send(notification *Notification) error {
	text := fmt.Sprintf("*%s*\n\n%s", notification.Title, notification.Message)

	payload := map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling telegram payload: %w", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	resp, err := t.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	return nil
}

// ============================================================================
// DISCORD
// ============================================================================

// DiscordNotifier sends notifications via Discord webhook
type DiscordNotifier struct {
	webhookURL string
	enabled    bool
	client     *http.Client
}

// NewDiscordNotifier creates a new Discord notifier
func NewDiscordNotifier(webhookURL string, enabled bool) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: webhookURL,
		enabled:    enabled && webhookURL != "",
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DiscordNotifier) Name() string { return "Discord" }

func (d *DiscordNotifier) IsEnabled() bool { return d.enabled }

// Send sends a notification via Discord webhook
func (d *DiscordNotifier) Send(notification *Notification) error {
	embed := map[string]interface{}{
		"title":       notification.Title,
		"description": notification.Message,
		"color":       colorFor(notification.Type),
		"timestamp":   notification.Timestamp.Format(time.RFC3339),
	}
	payload := map[string]interface{}{
		"embeds": []interface{}{embed},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling discord payload: %w", err)
	}

	resp, err := d.client.Post(d.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sending discord message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("discord webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func colorFor(t NotificationType) int {
	switch t {
	case TypeSignal:
		return 0x3498db // blue
	case TypePositionOpened:
		return 0x2ecc71 // green
	case TypePositionExit:
		return 0xf1c40f // yellow
	case TypeBreakerTripped:
		return 0xe74c3c // red
	case TypeBreakerReset:
		return 0x2ecc71
	default:
		return 0x95a5a6 // gray
	}
}
