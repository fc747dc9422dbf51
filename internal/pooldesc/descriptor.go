// Package pooldesc implements the pool descriptor loader: reads one
// JSON directory per DEX variant and produces typed pool.Pool instances,
// one directory per DEX variant dispatching to the matching pool.Pool
// constructor.
package pooldesc

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/gagliardetto/solana-go"

	"github.com/rawblock/arb-engine/internal/pool"
	"github.com/rawblock/arb-engine/pkg/models"
)

// DefaultMaxPoolsPerDex is the fallback cap used when `--max-pools-per-dex`
// is unset or non-positive.
const DefaultMaxPoolsPerDex = 40

// rawDescriptor is the on-disk shape shared by every DEX variant. Curve-
// specific fields (Amp, MarketID) are simply absent for variants that don't
// use them.
type rawDescriptor struct {
	PoolAddress  string   `json:"pool_address"`
	Authority    string   `json:"authority"`
	SwapProgram  string   `json:"swap_program"`
	Mints        []string `json:"mints"`
	ReserveAccts []string `json:"reserve_accounts"`
	TradeFeeNum  uint64   `json:"trade_fee_numerator"`
	TradeFeeDen  uint64   `json:"trade_fee_denominator"`
	Amp          uint64   `json:"amplification_coefficient,omitempty"`
	MarketID     string   `json:"market_id,omitempty"`
}

// Whitelist maps DEX variant name to the set of pool addresses to keep.
// When present for a variant, only listed addresses are instantiated for
// that variant; all others are skipped.
type Whitelist map[string][]string

// LoadWhitelist reads an optional whitelist JSON file of the shape
// {"dex_name": ["address", ...]}, as named by `--pool-whitelist`.
func LoadWhitelist(path string) (Whitelist, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pooldesc: read whitelist: %w", err)
	}
	var wl Whitelist
	if err := json.Unmarshal(data, &wl); err != nil {
		return nil, fmt.Errorf("pooldesc: parse whitelist: %w", err)
	}
	return wl, nil
}

// LoadDir parses every *.json file in dir as a rawDescriptor for the given
// DEX variant, applying the whitelist (if set for this variant) or the
// maxPools cap (in file-enumeration order) otherwise. Pools whose mint set
// is not exactly two elements are skipped with a warning.
func LoadDir(dir string, variant models.DexVariant, wl Whitelist, maxPools int) ([]pool.Pool, error) {
	if maxPools <= 0 {
		maxPools = DefaultMaxPoolsPerDex
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("pooldesc: read dir %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	allow := map[string]bool(nil)
	if wl != nil {
		if addrs, ok := wl[string(variant)]; ok {
			allow = make(map[string]bool, len(addrs))
			for _, a := range addrs {
				allow[a] = true
			}
		}
	}

	var pools []pool.Pool
	for _, name := range names {
		if allow == nil && len(pools) >= maxPools {
			break
		}
		full := filepath.Join(dir, name)
		data, err := os.ReadFile(full)
		if err != nil {
			log.Printf("[PoolDescriptor] %s: read failed: %v", full, err)
			continue
		}
		var raw rawDescriptor
		if err := json.Unmarshal(data, &raw); err != nil {
			log.Printf("[PoolDescriptor] %s: malformed JSON: %v", full, err)
			continue
		}
		if len(raw.Mints) != 2 {
			log.Printf("[PoolDescriptor] %s: expected exactly 2 mints, got %d", full, len(raw.Mints))
			continue
		}
		if allow != nil && !allow[raw.PoolAddress] {
			continue
		}

		p, err := build(name, variant, raw)
		if err != nil {
			log.Printf("[PoolDescriptor] %s: %v", full, err)
			continue
		}
		pools = append(pools, p)
	}
	return pools, nil
}

func build(name string, variant models.DexVariant, raw rawDescriptor) (pool.Pool, error) {
	mintA, err := solana.PublicKeyFromBase58(raw.Mints[0])
	if err != nil {
		return nil, fmt.Errorf("mint 0: %w", err)
	}
	mintB, err := solana.PublicKeyFromBase58(raw.Mints[1])
	if err != nil {
		return nil, fmt.Errorf("mint 1: %w", err)
	}
	if len(raw.ReserveAccts) != 2 {
		return nil, fmt.Errorf("expected exactly 2 reserve accounts, got %d", len(raw.ReserveAccts))
	}
	reserveA, err := solana.PublicKeyFromBase58(raw.ReserveAccts[0])
	if err != nil {
		return nil, fmt.Errorf("reserve account 0: %w", err)
	}
	reserveB, err := solana.PublicKeyFromBase58(raw.ReserveAccts[1])
	if err != nil {
		return nil, fmt.Errorf("reserve account 1: %w", err)
	}
	poolAddress, err := solana.PublicKeyFromBase58(raw.PoolAddress)
	if err != nil {
		return nil, fmt.Errorf("pool_address: %w", err)
	}
	authority, err := solana.PublicKeyFromBase58(raw.Authority)
	if err != nil {
		return nil, fmt.Errorf("authority: %w", err)
	}
	swapProgram, err := solana.PublicKeyFromBase58(raw.SwapProgram)
	if err != nil {
		return nil, fmt.Errorf("swap_program: %w", err)
	}
	fee := models.FeeFraction{Numerator: raw.TradeFeeNum, Denominator: raw.TradeFeeDen}

	switch variant {
	case models.DexSaber, models.DexMercurial:
		return pool.NewStablePool(name, mintA, mintB, reserveA, reserveB, poolAddress, authority, swapProgram, fee, raw.Amp), nil
	case models.DexSerum:
		marketID, err := solana.PublicKeyFromBase58(raw.MarketID)
		if err != nil {
			return nil, fmt.Errorf("market_id: %w", err)
		}
		return pool.NewOrderBookPool(name, mintA, mintB, poolAddress, marketID, swapProgram), nil
	case models.DexOrca, models.DexAldrin:
		fallthrough
	default:
		return pool.NewCPMMPool(name, mintA, mintB, reserveA, reserveB, poolAddress, authority, swapProgram, fee), nil
	}
}
