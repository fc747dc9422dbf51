// Package arbitrage implements the bounded-depth DFS search: from each
// configured starting mint, walk the graph up to 3 hops, applying layered
// price-impact, slippage, and minimum-profitable-spread filters, and emit
// deduplicated cycle candidates.
package arbitrage

import (
	"log"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/rawblock/arb-engine/internal/graph"
	"github.com/rawblock/arb-engine/internal/pool"
	"github.com/rawblock/arb-engine/pkg/models"
)

// Gas model constants.
const (
	baseTransactionFeeLamports = 5_000
	computeUnitPriceMicroLamps = 1_000
	computeUnitsPerSwap        = 200_000
	jitoTipLamports            = 10_000_000
	minProfitableSpreadBP      = 30 // absolute floor, 0.3%, basis points
)

// Pool-size thresholds and per-class filters.
const (
	smallPoolThreshold = 10_000_000 // reserve_in scaled units
	midPoolThreshold   = 100_000_000

	smallPriceImpactLimitPct = 3.0
	midPriceImpactLimitPct   = 2.0
	largePriceImpactLimitPct = 1.0

	smallSlippageToleranceBP = 30
	midSlippageToleranceBP   = 40
	largeSlippageToleranceBP = 50

	smallMinSpreadBP = 20
	midMinSpreadBP   = 25
	largeMinSpreadBP = 30
)

const maxPathLen = 4 // 3 hops

// Config controls a search run.
type Config struct {
	UseJito bool // whether a Jito tip is included in the gas-cost model
}

// Searcher runs the bounded-depth DFS. sentArbs is the per-process dedup
// set, keyed on the concatenation of vertex indices and pool names — it is
// mutated only by the single search goroutine, so it needs no lock.
type Searcher struct {
	g        *graph.Graph
	cfg      Config
	sentArbs map[string]bool
}

func NewSearcher(g *graph.Graph, cfg Config) *Searcher {
	return &Searcher{g: g, cfg: cfg, sentArbs: make(map[string]bool)}
}

// edgeResult is what one pool edge quotes to, used to carry the class
// derived from its reserves through to the close-evaluation step.
type edgeResult struct {
	newBalance uint128.Uint128
	class      poolClass
}

// Search walks from startIdx with reference amount a0, returning the
// opportunities discovered this pass.
func (s *Searcher) Search(startIdx models.MintIndex, a0 uint128.Uint128) []models.CycleCandidate {
	var out []models.CycleCandidate
	s.walk(startIdx, a0, a0, []models.MintIndex{startIdx}, nil, &out)
	return out
}

func (s *Searcher) walk(startIdx models.MintIndex, a0, currBalance uint128.Uint128, path []models.MintIndex, poolPath []pool.Pool, out *[]models.CycleCandidate) {
	if len(path) == maxPathLen {
		return
	}
	srcIdx := path[len(path)-1]
	srcMint := s.g.Mint(srcIdx)

	for _, dstIdx := range s.g.Neighbors(srcIdx) {
		if containsMint(path, dstIdx) && dstIdx != startIdx {
			continue
		}
		dstMint := s.g.Mint(dstIdx)

		for _, p := range s.g.Quotes(srcIdx, dstIdx) {
			res, ok := s.tryEdge(p, currBalance, srcMint, dstMint)
			if !ok || res.newBalance.IsZero() {
				continue
			}

			newPath := append(append([]models.MintIndex(nil), path...), dstIdx)
			newPoolPath := append(append([]pool.Pool(nil), poolPath...), p)

			if dstIdx == startIdx {
				if cand, ok := s.evaluateClose(a0, res.newBalance, newPath, newPoolPath, res.class); ok {
					*out = append(*out, cand)
				}
				continue
			}

			s.walk(startIdx, a0, res.newBalance, newPath, newPoolPath, out)
		}
	}
}

// tryEdge applies the per-pool-class price-impact ceiling and requests a
// quote, containing any panic from the quote kernel so one malformed pool
// can't take down the whole search pass.
func (s *Searcher) tryEdge(p pool.Pool, currBalance uint128.Uint128, in, out solana.PublicKey) (result edgeResult, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Arbitrage] pool %s panicked during quote, skipping edge: %v", p.Name(), r)
			result, ok = edgeResult{}, false
		}
	}()

	if !p.CanTrade(in, out) {
		return edgeResult{}, false
	}

	class := poolClassLarge
	if rin, _, haveReserves := p.Reserves(in, out); haveReserves {
		class = classifyByReserve(rin)
		limit := priceImpactLimitFor(class)
		if priceImpactPct(currBalance, rin) > limit {
			return edgeResult{}, false
		}
	}

	quote, quoteOK := p.Quote(currBalance, in, out)
	if !quoteOK {
		log.Printf("[Arbitrage] pool %s: quote kernel failed to converge, skipping edge", p.Name())
		return edgeResult{}, false
	}
	return edgeResult{newBalance: quote, class: class}, true
}

func (s *Searcher) evaluateClose(a0, newBalance uint128.Uint128, path []models.MintIndex, poolPath []pool.Pool, class poolClass) (models.CycleCandidate, bool) {
	if newBalance.Cmp(a0) <= 0 {
		return models.CycleCandidate{}, false
	}

	optimistic := spreadFraction(a0, newBalance)
	if optimistic > 0.10 {
		log.Printf("[Arbitrage] skipping suspiciously high spread %.4f%% (likely stale data)", optimistic*100)
		return models.CycleCandidate{}, false
	}

	numSwaps := len(path) - 1
	minSpread := minProfitableSpread(a0, numSwaps, s.cfg.UseJito)
	if optimistic < minSpread {
		return models.CycleCandidate{}, false
	}

	tolerance := slippageToleranceBPFor(class)
	minOutput, ok := applySlippage(newBalance, tolerance)
	if !ok || minOutput.Cmp(a0) <= 0 {
		return models.CycleCandidate{}, false
	}

	realistic := spreadFraction(a0, minOutput)
	classFloor := minSpreadBPFor(class) / 10_000.0
	if realistic < maxFloat(minSpread, classFloor) {
		return models.CycleCandidate{}, false
	}

	names := make([]string, len(poolPath))
	addrs := make([]solana.PublicKey, len(poolPath))
	for i, p := range poolPath {
		names[i] = p.Name()
		addrs[i] = p.PoolAddress()
	}
	cand := models.CycleCandidate{
		Path:       path,
		PoolPath:   names,
		PoolAddrs:  addrs,
		StartAmt:   a0,
		EndAmt:     newBalance,
		MinOutput:  minOutput,
		Optimistic: optimistic,
		Realistic:  realistic,
	}
	key := cand.DedupKey()
	if s.sentArbs[key] {
		return models.CycleCandidate{}, false
	}
	s.sentArbs[key] = true
	return cand, true
}

func containsMint(path []models.MintIndex, idx models.MintIndex) bool {
	for _, p := range path {
		if p == idx {
			return true
		}
	}
	return false
}

type poolClass int

const (
	poolClassLarge poolClass = iota
	poolClassSmall
	poolClassMid
)

func classifyByReserve(reserveIn uint128.Uint128) poolClass {
	if reserveIn.IsZero() {
		return poolClassLarge // unknown reserves: conservative default
	}
	if reserveIn.Cmp(uint128.From64(smallPoolThreshold)) < 0 {
		return poolClassSmall
	}
	if reserveIn.Cmp(uint128.From64(midPoolThreshold)) < 0 {
		return poolClassMid
	}
	return poolClassLarge
}

func priceImpactLimitFor(c poolClass) float64 {
	switch c {
	case poolClassSmall:
		return smallPriceImpactLimitPct
	case poolClassMid:
		return midPriceImpactLimitPct
	default:
		return largePriceImpactLimitPct
	}
}

func slippageToleranceBPFor(c poolClass) uint64 {
	switch c {
	case poolClassSmall:
		return smallSlippageToleranceBP
	case poolClassMid:
		return midSlippageToleranceBP
	default:
		return largeSlippageToleranceBP
	}
}

func minSpreadBPFor(c poolClass) float64 {
	switch c {
	case poolClassSmall:
		return smallMinSpreadBP
	case poolClassMid:
		return midMinSpreadBP
	default:
		return largeMinSpreadBP
	}
}

// priceImpactPct returns (amountIn / reserveIn) * 100.
func priceImpactPct(amountIn, reserveIn uint128.Uint128) float64 {
	if reserveIn.IsZero() {
		return 0
	}
	ratio := new(big.Float).Quo(new(big.Float).SetInt(amountIn.Big()), new(big.Float).SetInt(reserveIn.Big()))
	pct, _ := ratio.Float64()
	return pct * 100
}

// spreadFraction returns (after-a0)/a0 as a fraction (0.01 = 1%).
func spreadFraction(a0, after uint128.Uint128) float64 {
	if a0.IsZero() {
		return 0
	}
	diff := new(big.Int).Sub(after.Big(), a0.Big())
	ratio := new(big.Float).Quo(new(big.Float).SetInt(diff), new(big.Float).SetInt(a0.Big()))
	f, _ := ratio.Float64()
	return f
}

func applySlippage(amount uint128.Uint128, toleranceBP uint64) (uint128.Uint128, bool) {
	product := new(big.Int).Mul(amount.Big(), big.NewInt(int64(10_000-toleranceBP)))
	result := new(big.Int).Div(product, big.NewInt(10_000))
	return uint128.FromBig(result)
}

// minProfitableSpread expresses the gas cost of the transaction as a
// fraction of the reference trade amount, floored at the absolute minimum
// (0.3%).
func minProfitableSpread(a0 uint128.Uint128, numSwaps int, useJito bool) float64 {
	gas := gasCostLamports(numSwaps, useJito)
	absoluteFloor := minProfitableSpreadBP / 10_000.0
	if a0.IsZero() {
		return absoluteFloor
	}
	numerator := new(big.Int).Mul(big.NewInt(int64(gas)), big.NewInt(10_000))
	bp := new(big.Int).Div(numerator, a0.Big())
	bpFloat, _ := new(big.Float).SetInt(bp).Float64()
	return maxFloat(bpFloat/10_000.0, absoluteFloor)
}

func gasCostLamports(numSwaps int, useJito bool) uint64 {
	computeCost := uint64(numSwaps) * computeUnitsPerSwap * computeUnitPriceMicroLamps / 1_000_000
	total := uint64(baseTransactionFeeLamports) + computeCost
	if useJito {
		total += jitoTipLamports
	}
	return total
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
