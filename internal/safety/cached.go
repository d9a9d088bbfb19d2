package safety

import (
	"context"
	"time"

	"solana-sniper-bot/internal/cache"
)

// CachedChecker wraps a Checker and a BundleChecker with TTL caches so the
// scan loop doesn't re-run expensive analysis for a token it just saw. The
// caches are advisory: a miss always falls through to the live check, and a
// failed check is never cached.
type CachedChecker struct {
	checker Checker
	bundle  BundleChecker

	safetyCache *cache.Cache[string, *Result]
	bundleCache *cache.Cache[string, *BundleResult]
}

// NewCachedChecker wraps the given checkers with the given TTL
func NewCachedChecker(checker Checker, bundle BundleChecker, ttl time.Duration) *CachedChecker {
	return &CachedChecker{
		checker:     checker,
		bundle:      bundle,
		safetyCache: cache.New[string, *Result](ttl),
		bundleCache: cache.New[string, *BundleResult](ttl),
	}
}

// CheckSafety returns a cached result when fresh, otherwise runs the live check
func (cc *CachedChecker) CheckSafety(ctx context.Context, mint string) (*Result, error) {
	if result, ok := cc.safetyCache.Get(mint); ok {
		return result, nil
	}

	result, err := cc.checker.CheckSafety(ctx, mint)
	if err != nil {
		return nil, err
	}
	cc.safetyCache.Set(mint, result)
	return result, nil
}

// CheckBundleRisk returns a cached result when fresh, otherwise runs the live check
func (cc *CachedChecker) CheckBundleRisk(ctx context.Context, mint string) (*BundleResult, error) {
	if result, ok := cc.bundleCache.Get(mint); ok {
		return result, nil
	}

	result, err := cc.bundle.CheckBundleRisk(ctx, mint)
	if err != nil {
		return nil, err
	}
	cc.bundleCache.Set(mint, result)
	return result, nil
}

// Invalidate drops cached results for a token
func (cc *CachedChecker) Invalidate(mint string) {
	cc.safetyCache.Delete(mint)
	cc.bundleCache.Delete(mint)
}
