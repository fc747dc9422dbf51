package restdetector

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/rawblock/arb-engine/pkg/models"
)

// LoadTokens reads the token watch-list from a JSON file.
func LoadTokens(path string) ([]TokenConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("restdetector: read tokens config %s: %w", path, err)
	}
	var tokens []TokenConfig
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("restdetector: parse tokens config %s: %w", path, err)
	}
	return tokens, nil
}

// Detector scans the latest per-DEX prices for each configured token and
// emits a RestOpportunity wherever the max/min spread across sources meets
// threshold.
type Detector struct {
	threshold float64
}

func NewDetector(threshold float64) *Detector {
	return &Detector{threshold: threshold}
}

// dexPrice pairs a source name with its quoted price for one token.
type dexPrice struct {
	dex   string
	price float64
}

// DetectOpportunities compares prices across sources for every token that
// has at least 2 quotes, returning opportunities sorted by spread
// descending.
func (d *Detector) DetectOpportunities(tokens []TokenConfig, prices map[string][]dexPrice) []models.RestOpportunity {
	var out []models.RestOpportunity

	for _, token := range tokens {
		quotes := prices[token.Symbol]
		if len(quotes) < 2 {
			continue
		}

		maxQ, minQ := quotes[0], quotes[0]
		for _, q := range quotes[1:] {
			if q.price > maxQ.price {
				maxQ = q
			}
			if q.price < minQ.price {
				minQ = q
			}
		}
		if minQ.price <= 0 {
			continue
		}

		spread := (maxQ.price - minQ.price) / minQ.price
		if spread < d.threshold {
			continue
		}

		out = append(out, models.RestOpportunity{
			TokenSymbol:     token.Symbol,
			MaxPrice:        maxQ.price,
			MaxDex:          maxQ.dex,
			MinPrice:        minQ.price,
			MinDex:          minQ.dex,
			SpreadPercent:   spread * 100,
			PriceDifference: maxQ.price - minQ.price,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].SpreadPercent > out[j].SpreadPercent })
	return out
}

// Poller polls every configured source for every configured token once per
// cycle, feeding the latest quotes into a Detector and emitting the result.
type Poller struct {
	sources  []PriceSource
	tokens   []TokenConfig
	detector *Detector
}

func NewPoller(sources []PriceSource, tokens []TokenConfig, detector *Detector) *Poller {
	return &Poller{sources: sources, tokens: tokens, detector: detector}
}

// PollOnce fetches one price per (source, token) pair and returns whatever
// opportunities the resulting snapshot contains. A source/token lookup that
// errors or returns no price is simply omitted from that token's quote set:
// this detector is best-effort, a down DEX API degrades coverage rather
// than aborting the cycle.
func (p *Poller) PollOnce(ctx context.Context) []models.RestOpportunity {
	prices := make(map[string][]dexPrice, len(p.tokens))

	for _, token := range p.tokens {
		for _, src := range p.sources {
			price, ok, err := src.GetPrice(ctx, token.Address)
			if err != nil {
				log.Printf("[RestDetector] %s: %s: %v", src.Name(), token.Symbol, err)
				continue
			}
			if !ok {
				continue
			}
			prices[token.Symbol] = append(prices[token.Symbol], dexPrice{dex: src.Name(), price: price})
		}
	}

	return p.detector.DetectOpportunities(p.tokens, prices)
}

// Run polls every cycleDelay until ctx is canceled, invoking onOpportunity
// for each opportunity found in a cycle.
func (p *Poller) Run(ctx context.Context, cycleDelay time.Duration, onOpportunity func(models.RestOpportunity)) {
	ticker := time.NewTicker(cycleDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, opp := range p.PollOnce(ctx) {
				onOpportunity(opp)
			}
		}
	}
}
