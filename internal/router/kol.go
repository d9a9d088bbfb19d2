package router

import (
	"sync"
	"time"
)

// KOLTier ranks a tracked wallet's reputation
type KOLTier string

const (
	KOLTierS KOLTier = "S"
	KOLTierA KOLTier = "A"
	KOLTierB KOLTier = "B"
	KOLTierC KOLTier = "C"
)

// trusted reports whether endorsements from this tier count as validation
func (t KOLTier) trusted() bool {
	return t == KOLTierS || t == KOLTierA
}

// endorsement is one observed buy from a tracked wallet
type endorsement struct {
	wallet string
	tier   KOLTier
	at     time.Time
}

// KOLRegistry tracks known reputable wallets and records their buys so the
// router can use a trusted endorsement as the validation path for young
// tokens. Endorsements expire after the validity window.
type KOLRegistry struct {
	mu           sync.RWMutex
	wallets      map[string]KOLTier
	endorsements map[string][]endorsement
	validity     time.Duration
	now          func() time.Time
}

// NewKOLRegistry creates a registry with the given endorsement validity window
func NewKOLRegistry(validity time.Duration) *KOLRegistry {
	return &KOLRegistry{
		wallets:      make(map[string]KOLTier),
		endorsements: make(map[string][]endorsement),
		validity:     validity,
		now:          time.Now,
	}
}

// AddWallet registers or updates a tracked wallet's tier
func (kr *KOLRegistry) AddWallet(wallet string, tier KOLTier) {
	kr.mu.Lock()
	defer kr.mu.Unlock()
	kr.wallets[wallet] = tier
}

// WalletTier returns the tier for a wallet, if tracked
func (kr *KOLRegistry) WalletTier(wallet string) (KOLTier, bool) {
	kr.mu.RLock()
	defer kr.mu.RUnlock()
	tier, ok := kr.wallets[wallet]
	return tier, ok
}

// RecordBuy records a buy by the given wallet on the given mint. Buys from
// untracked wallets are ignored.
func (kr *KOLRegistry) RecordBuy(mint, wallet string) {
	kr.mu.Lock()
	defer kr.mu.Unlock()

	tier, ok := kr.wallets[wallet]
	if !ok {
		return
	}
	kr.endorsements[mint] = append(kr.endorsements[mint], endorsement{
		wallet: wallet,
		tier:   tier,
		at:     kr.now(),
	})
}

// HasTrustedEndorsement reports whether a tier S or A wallet bought this mint
// within the validity window
func (kr *KOLRegistry) HasTrustedEndorsement(mint string) bool {
	kr.mu.RLock()
	defer kr.mu.RUnlock()

	cutoff := kr.now().Add(-kr.validity)
	for _, e := range kr.endorsements[mint] {
		if e.tier.trusted() && e.at.After(cutoff) {
			return true
		}
	}
	return false
}

// Forget drops endorsement state for a mint
func (kr *KOLRegistry) Forget(mint string) {
	kr.mu.Lock()
	defer kr.mu.Unlock()
	delete(kr.endorsements, mint)
}
