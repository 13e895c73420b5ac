package oracle

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"recurring-billing-engine/internal/core/ports"
)

// Oracle implements ports.PriceOracle on top of a RateFetcher. Conversion is
// widened through big.Int, so a large reference amount cannot silently wrap.
type Oracle struct {
	fetcher RateFetcher
	clock   ports.Clock
}

// NewOracle creates a new price oracle.
func NewOracle(fetcher RateFetcher, clock ports.Clock) *Oracle {
	return &Oracle{fetcher: fetcher, clock: clock}
}

// Quote converts a reference-currency amount into the payment currency.
// A rate older than the staleness window is rejected rather than applied.
func (o *Oracle) Quote(ctx context.Context, route string, referenceAmount int64, window time.Duration) (int64, error) {
	rate, err := o.fetcher.FetchRate(ctx, route)
	if err != nil {
		return 0, err
	}
	if rate.Numerator <= 0 || rate.Denominator <= 0 {
		return 0, fmt.Errorf("invalid rate %d/%d for route %s", rate.Numerator, rate.Denominator, route)
	}
	if age := o.clock.Now().Sub(rate.QuotedAt); age > window {
		return 0, fmt.Errorf("quote for route %s is stale: %s old, window %s", route, age, window)
	}

	converted := new(big.Int).Mul(big.NewInt(referenceAmount), big.NewInt(rate.Numerator))
	converted.Quo(converted, big.NewInt(rate.Denominator))
	if !converted.IsInt64() {
		return 0, fmt.Errorf("converted amount for route %s overflows", route)
	}
	return converted.Int64(), nil
}
