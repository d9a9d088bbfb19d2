package market

import "context"

// LayeredPriceProvider tries the streaming price cache first and falls back
// to the HTTP data API when the cached price is missing or stale.
type LayeredPriceProvider struct {
	primary  PriceProvider
	fallback PriceProvider
}

// NewLayeredPriceProvider layers the feed cache over the HTTP client
func NewLayeredPriceProvider(primary, fallback PriceProvider) *LayeredPriceProvider {
	return &LayeredPriceProvider{primary: primary, fallback: fallback}
}

func (lp *LayeredPriceProvider) CurrentPrice(ctx context.Context, mint string) (float64, error) {
	price, err := lp.primary.CurrentPrice(ctx, mint)
	if err == nil {
		return price, nil
	}
	return lp.fallback.CurrentPrice(ctx, mint)
}
