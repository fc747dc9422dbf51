package restdetector

import (
	"context"
	"testing"
)

func TestDetectOpportunitiesRequiresAtLeastTwoQuotes(t *testing.T) {
	d := NewDetector(0.001)
	tokens := []TokenConfig{{Symbol: "SOL", Address: "sol-addr"}}
	prices := map[string][]dexPrice{
		"SOL": {{dex: "Jupiter", price: 100}},
	}
	opps := d.DetectOpportunities(tokens, prices)
	if len(opps) != 0 {
		t.Errorf("expected no opportunities with a single quote, got %d", len(opps))
	}
}

func TestDetectOpportunitiesFindsSpreadAboveThreshold(t *testing.T) {
	d := NewDetector(0.001) // 0.1%
	tokens := []TokenConfig{{Symbol: "SOL", Address: "sol-addr"}}
	prices := map[string][]dexPrice{
		"SOL": {
			{dex: "Jupiter", price: 100.0},
			{dex: "DexScreener", price: 100.5},
		},
	}
	opps := d.DetectOpportunities(tokens, prices)
	if len(opps) != 1 {
		t.Fatalf("expected 1 opportunity, got %d", len(opps))
	}
	o := opps[0]
	if o.MaxDex != "DexScreener" || o.MinDex != "Jupiter" {
		t.Errorf("expected max=DexScreener min=Jupiter, got max=%s min=%s", o.MaxDex, o.MinDex)
	}
	if o.SpreadPercent <= 0 {
		t.Errorf("expected a positive spread percent, got %f", o.SpreadPercent)
	}
}

func TestDetectOpportunitiesRejectsBelowThreshold(t *testing.T) {
	d := NewDetector(0.05) // 5%
	tokens := []TokenConfig{{Symbol: "SOL", Address: "sol-addr"}}
	prices := map[string][]dexPrice{
		"SOL": {
			{dex: "Jupiter", price: 100.0},
			{dex: "DexScreener", price: 100.1},
		},
	}
	opps := d.DetectOpportunities(tokens, prices)
	if len(opps) != 0 {
		t.Errorf("expected no opportunity below threshold, got %d", len(opps))
	}
}

func TestDetectOpportunitiesSortedBySpreadDescending(t *testing.T) {
	d := NewDetector(0.0)
	tokens := []TokenConfig{{Symbol: "A"}, {Symbol: "B"}}
	prices := map[string][]dexPrice{
		"A": {{dex: "x", price: 100}, {dex: "y", price: 101}},   // ~1%
		"B": {{dex: "x", price: 100}, {dex: "y", price: 110}},   // ~10%
	}
	opps := d.DetectOpportunities(tokens, prices)
	if len(opps) != 2 {
		t.Fatalf("expected 2 opportunities, got %d", len(opps))
	}
	if opps[0].TokenSymbol != "B" {
		t.Errorf("expected the larger spread (token B) first, got %s", opps[0].TokenSymbol)
	}
}

type fakeSource struct {
	name  string
	price float64
	ok    bool
}

func (f fakeSource) Name() string { return f.name }
func (f fakeSource) GetPrice(ctx context.Context, tokenAddress string) (float64, bool, error) {
	return f.price, f.ok, nil
}

func TestPollOnceSkipsSourcesWithNoPrice(t *testing.T) {
	sources := []PriceSource{
		fakeSource{name: "Jupiter", price: 100, ok: true},
		fakeSource{name: "DexScreener", price: 0, ok: false},
		fakeSource{name: "Birdeye", price: 102, ok: true},
	}
	tokens := []TokenConfig{{Symbol: "SOL", Address: "sol-addr"}}
	p := NewPoller(sources, tokens, NewDetector(0.001))

	opps := p.PollOnce(context.Background())
	if len(opps) != 1 {
		t.Fatalf("expected 1 opportunity from the 2 reporting sources, got %d", len(opps))
	}
	if opps[0].MaxDex != "Birdeye" || opps[0].MinDex != "Jupiter" {
		t.Errorf("expected max=Birdeye min=Jupiter, got max=%s min=%s", opps[0].MaxDex, opps[0].MinDex)
	}
}
