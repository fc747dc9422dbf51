// Package subscription implements the WebSocket subscription manager:
// provider failover with health scoring, account/logs subscriptions over a
// bespoke JSON-RPC websocket client, and pool-creation-keyword detection on
// log notifications.
package subscription

// Provider is one candidate RPC endpoint, ranked by priority and tracked by
// success/failure health.
type Provider struct {
	Name      string
	WSURL     string
	Priority  uint8 // lower is higher priority
	RateLimit uint32
}

// DefaultProviders is a small, fixed fallback list ordered by priority, used
// when the caller's configured URL doesn't already cover every fallback.
func DefaultProviders() []Provider {
	return []Provider{
		{Name: "Helius", WSURL: "wss://api.helius.xyz", Priority: 1, RateLimit: 1000},
		{Name: "QuickNode", WSURL: "wss://api.quicknode.com/ws", Priority: 2, RateLimit: 500},
		{Name: "Chainstack", WSURL: "wss://api.chainstack.com/ws", Priority: 3, RateLimit: 500},
		{Name: "Solana Mainnet", WSURL: "wss://api.mainnet-beta.solana.com", Priority: 4, RateLimit: 100},
	}
}

// HealthScore computes a 0-100 provider ranking from success/failure counts:
// with no history it falls back to a priority-only score; otherwise it
// blends success rate (60%), priority (20%), and rate limit headroom (20%).
func (p Provider) HealthScore(successCount, failureCount uint32) float64 {
	total := successCount + failureCount
	if total == 0 {
		return 100.0 - float64(p.Priority)*10.0
	}

	successRate := float64(successCount) / float64(total)
	priorityFactor := 1.0 - float64(p.Priority)*0.1
	rateLimitFactor := float64(p.RateLimit) / 1000.0
	if rateLimitFactor > 1.0 {
		rateLimitFactor = 1.0
	}

	score := successRate*60.0 + priorityFactor*20.0 + rateLimitFactor*20.0
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

type providerHealth struct {
	success uint32
	failure uint32
}
