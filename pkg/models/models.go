// Package models holds the data shapes shared across the arbitrage engine:
// mints, pools, cycle candidates and the two opportunity record shapes (the
// on-chain cyclic-trade result and the companion REST detector's spread
// result).
package models

import (
	"strconv"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// MintIndex is the dense integer vertex id assigned to a mint at load time.
type MintIndex int

// DexVariant tags which AMM curve (and descriptor shape) a pool implements.
// Orca and Aldrin both quote as constant-product; Saber and Mercurial both
// quote as stable-swap.
type DexVariant string

const (
	DexOrca      DexVariant = "orca"
	DexAldrin    DexVariant = "aldrin"
	DexSaber     DexVariant = "saber"
	DexMercurial DexVariant = "mercurial"
	DexSerum     DexVariant = "serum"
)

// FeeFraction is a numerator/denominator pair, matching the on-chain fee
// encoding used by SPL token-swap style programs. A zero denominator means
// "no fee". Only the trade fee is read from the pool descriptor and applied
// in quotes; owner fees are not modeled.
type FeeFraction struct {
	Numerator   uint64
	Denominator uint64
}

// TokenAccount is the bit-exact decode of a 165-byte SPL token account.
// Only the fields the quote kernels and registry need are kept.
type TokenAccount struct {
	Mint    solana.PublicKey
	Owner   solana.PublicKey
	Amount  uint64
	IsValid bool
}

// CycleCandidate is an ordered sequence of mint vertices [s, ..., s] with the
// aligned pool path used to realize each hop.
type CycleCandidate struct {
	Path       []MintIndex
	PoolPath   []string // pool names, aligned with hops (len(Path)-1)
	PoolAddrs  []solana.PublicKey
	StartAmt   uint128.Uint128
	EndAmt     uint128.Uint128
	MinOutput  uint128.Uint128
	Optimistic float64 // spread before slippage, fraction (0.01 = 1%)
	Realistic  float64 // spread after slippage tolerance
}

// DedupKey is the concatenation of path indices and pool names used to
// suppress re-emission of the same cycle within one process lifetime.
func (c CycleCandidate) DedupKey() string {
	key := make([]byte, 0, 64)
	for _, idx := range c.Path {
		key = append(key, []byte(strconv.Itoa(int(idx)))...)
	}
	for _, name := range c.PoolPath {
		key = append(key, []byte(name)...)
	}
	return string(key)
}

// OnChainOpportunity is the opportunity record emitted by the graph search
// for a profitable on-chain cycle.
type OnChainOpportunity struct {
	Timestamp          string   `json:"timestamp"`
	Kind               string   `json:"kind"` // "onchain_cycle"
	StartMint          string   `json:"startMint"`
	PathMints          []string `json:"pathMints"`
	PathPools          []string `json:"pathPools"`
	StartAmount        string   `json:"startAmount"`
	EndAmount           string   `json:"endAmount"`
	SpreadOptimistic    float64  `json:"spreadOptimisticPct"`
	SpreadRealistic     float64  `json:"spreadRealisticPct"`
	MinOutput           string   `json:"minOutput"`
	DryRun              bool     `json:"dryRun"`
	TxSignature         string   `json:"txSignature,omitempty"`
}

// RestOpportunity is the cross-DEX spread record emitted by the companion
// out-of-band REST price-source detector.
type RestOpportunity struct {
	Timestamp      string  `json:"timestamp"`
	TokenSymbol    string  `json:"token_symbol"`
	MaxPrice       float64 `json:"max_price"`
	MaxDex         string  `json:"max_dex"`
	MinPrice       float64 `json:"min_price"`
	MinDex         string  `json:"min_dex"`
	SpreadPercent  float64 `json:"spread_percent"`
	PriceDifference float64 `json:"price_difference"`
}
