package pool

import (
	"log"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// OrderBookPool is the Serum-style venue: reserves are absent, so price-
// impact filtering is disabled for this edge, and Quote scales the input by
// a single bestPrice rate. This engine does not implement order-book
// matching — the variant exists so the pool abstraction and graph treat a
// Serum-backed edge uniformly with AMM edges. Nothing sets bestPrice, so it
// stays zero: CanTrade reports false and Quote returns zero for every
// order-book pool.
type OrderBookPool struct {
	name        string
	mints       [2]solana.PublicKey
	poolAddress solana.PublicKey
	marketID    solana.PublicKey
	swapProgram solana.PublicKey

	// bestPrice, when set, is the last known best bid/ask used to quote a
	// trade-size-independent estimate. Zero means "no market data yet".
	bestPrice float64
}

func NewOrderBookPool(name string, mintA, mintB, poolAddress, marketID, swapProgram solana.PublicKey) *OrderBookPool {
	return &OrderBookPool{
		name:        name,
		mints:       sortMints(mintA, mintB),
		poolAddress: poolAddress,
		marketID:    marketID,
		swapProgram: swapProgram,
	}
}

func (p *OrderBookPool) Name() string                      { return p.name }
func (p *OrderBookPool) Mints() [2]solana.PublicKey         { return p.mints }
func (p *OrderBookPool) PoolAddress() solana.PublicKey      { return p.poolAddress }
func (p *OrderBookPool) UpdateAccounts() []solana.PublicKey { return []solana.PublicKey{p.marketID} }

// SetUpdateAccounts is a no-op beyond validating the snapshot shape: the
// market account payload is not decoded and bestPrice is left unchanged.
func (p *OrderBookPool) SetUpdateAccounts(snapshot [][]byte) {
	if len(snapshot) != 1 {
		log.Printf("[Pool:%s] set_update_accounts: expected 1 account, got %d", p.name, len(snapshot))
	}
}

func (p *OrderBookPool) CanTrade(in, out solana.PublicKey) bool {
	matches := (in == p.mints[0] && out == p.mints[1]) || (in == p.mints[1] && out == p.mints[0])
	return matches && p.bestPrice > 0
}

// Reserves always reports ok=false: an order-book venue has no pooled
// reserve to report.
func (p *OrderBookPool) Reserves(in, out solana.PublicKey) (uint128.Uint128, uint128.Uint128, bool) {
	return uint128.Zero, uint128.Zero, false
}

func (p *OrderBookPool) Quote(amountIn uint128.Uint128, in, out solana.PublicKey) (uint128.Uint128, bool) {
	if !p.CanTrade(in, out) {
		return uint128.Zero, true
	}
	price := p.bestPrice
	if in == p.mints[1] {
		price = 1 / price
	}
	// amountIn scaled by price, floored; no curve math, just the externally
	// observed top-of-book rate.
	scaled := amountIn.Big()
	num := scaled.Int64()
	out64 := int64(float64(num) * price)
	if out64 <= 0 {
		return uint128.Zero, true
	}
	return uint128.From64(uint64(out64)), true
}

func (p *OrderBookPool) SwapInstruction(owner, in, out solana.PublicKey) ([]solana.Instruction, error) {
	if !p.CanTrade(in, out) {
		return nil, errUnsupportedMints
	}
	userSrc, err := deriveATA(owner, in)
	if err != nil {
		return nil, err
	}
	userDst, err := deriveATA(owner, out)
	if err != nil {
		return nil, err
	}
	return []solana.Instruction{
		newSwapInstruction(p.swapProgram, p.marketID, p.marketID, owner, userSrc, userDst),
	}, nil
}
