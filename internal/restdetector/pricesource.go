// Package restdetector implements the companion out-of-band REST price
// source detector: it polls a handful of DEX price APIs over plain HTTP,
// independent of the on-chain subscription/graph path, and emits cross-DEX
// spread opportunities through the same oplog sink. Per-source lookups are
// rate limited via golang.org/x/time/rate.
package restdetector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// TokenConfig names one token to watch, by symbol and mint address.
type TokenConfig struct {
	Symbol  string `json:"symbol"`
	Address string `json:"address"`
}

// PriceSource is the unified interface every DEX price API adapter
// implements.
type PriceSource interface {
	Name() string
	GetPrice(ctx context.Context, tokenAddress string) (price float64, ok bool, err error)
}

// rateLimitedSource wraps a PriceSource with a token-bucket limiter so a
// burst of token lookups can't hammer a DEX API past its rate limit.
type rateLimitedSource struct {
	inner   PriceSource
	limiter *rate.Limiter
}

// NewRateLimited wraps src with a limiter allowing ratePerSecond requests
// per second, burst capped at the same value.
func NewRateLimited(src PriceSource, ratePerSecond float64) PriceSource {
	burst := int(ratePerSecond)
	if burst < 1 {
		burst = 1
	}
	return &rateLimitedSource{inner: src, limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

func (r *rateLimitedSource) Name() string { return r.inner.Name() }

func (r *rateLimitedSource) GetPrice(ctx context.Context, tokenAddress string) (float64, bool, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return 0, false, fmt.Errorf("restdetector: rate limit wait for %s: %w", r.inner.Name(), err)
	}
	return r.inner.GetPrice(ctx, tokenAddress)
}

// jupiterSource queries Jupiter's v4 aggregator price API.
type jupiterSource struct {
	client  *http.Client
	baseURL string
}

// NewJupiter builds the Jupiter price source with a 5-second client timeout.
func NewJupiter() PriceSource {
	return &jupiterSource{
		client:  &http.Client{Timeout: 5 * time.Second},
		baseURL: "https://price.jup.ag/v4/price?ids=",
	}
}

func (j *jupiterSource) Name() string { return "Jupiter" }

func (j *jupiterSource) GetPrice(ctx context.Context, tokenAddress string) (float64, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.baseURL+tokenAddress, nil)
	if err != nil {
		return 0, false, fmt.Errorf("restdetector: jupiter: build request: %w", err)
	}
	resp, err := j.client.Do(req)
	if err != nil {
		return 0, false, nil // network failure: treat as "no price", not a hard error
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, false, nil
	}

	var body struct {
		Data map[string]struct {
			Price float64 `json:"price"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, false, nil
	}
	for _, v := range body.Data {
		if v.Price > 0 {
			return v.Price, true, nil
		}
	}
	return 0, false, nil
}

// dexScreenerSource queries the DexScreener token-pairs API.
type dexScreenerSource struct {
	client  *http.Client
	baseURL string
}

func NewDexScreener() PriceSource {
	return &dexScreenerSource{
		client:  &http.Client{Timeout: 5 * time.Second},
		baseURL: "https://api.dexscreener.com/latest/dex/tokens/",
	}
}

func (d *dexScreenerSource) Name() string { return "DexScreener" }

func (d *dexScreenerSource) GetPrice(ctx context.Context, tokenAddress string) (float64, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+tokenAddress, nil)
	if err != nil {
		return 0, false, fmt.Errorf("restdetector: dexscreener: build request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return 0, false, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, false, nil
	}

	var body struct {
		Pairs []struct {
			PriceUSD string `json:"priceUsd"`
		} `json:"pairs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, false, nil
	}
	if len(body.Pairs) == 0 {
		return 0, false, nil
	}
	var price float64
	if _, err := fmt.Sscanf(body.Pairs[0].PriceUSD, "%f", &price); err != nil || price <= 0 {
		return 0, false, nil
	}
	return price, true, nil
}
