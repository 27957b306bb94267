package domain

import "context"

// MarketFetcher looks markets up on the exchange. Implemented by the Gamma
// REST client; faked in tests.
type MarketFetcher interface {
	// GetMarketBySlug returns the market with the given slug, or a
	// ErrNotFound-wrapped error.
	GetMarketBySlug(ctx context.Context, slug string) (Market, error)

	// GetMarketByCondition returns the market with the given condition id,
	// including resolution state once the market has closed.
	GetMarketByCondition(ctx context.Context, conditionID string) (Market, error)
}

// QuoteFetcher reads top-of-book quotes from the exchange.
type QuoteFetcher interface {
	GetTopOfBook(ctx context.Context, tokenID string) (TokenPrice, error)
}

// OrderPlacer submits limit orders to the exchange and returns the exchange
// order id. Idempotency is not assumed.
type OrderPlacer interface {
	PlaceLimitOrder(ctx context.Context, req LimitOrderRequest) (string, error)
}
