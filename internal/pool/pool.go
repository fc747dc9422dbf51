// Package pool implements the pool abstraction: a small capability
// interface that every DEX variant satisfies, plus the three concrete
// variants (constant-product, stable-swap, order-book).
package pool

import (
	"fmt"
	"log"
	"sync"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/rawblock/arb-engine/internal/accountcodec"
)

// Pool is the capability set every DEX variant must implement.
// Implementations are safe for concurrent use: each holds its own mutex
// guarding its reserve state.
type Pool interface {
	Name() string
	Mints() [2]solana.PublicKey
	PoolAddress() solana.PublicKey
	UpdateAccounts() []solana.PublicKey
	SetUpdateAccounts(snapshot [][]byte)
	CanTrade(in, out solana.PublicKey) bool
	Reserves(in, out solana.PublicKey) (rin, rout uint128.Uint128, ok bool)
	Quote(amountIn uint128.Uint128, in, out solana.PublicKey) (uint128.Uint128, bool)
	SwapInstruction(owner, in, out solana.PublicKey) ([]solana.Instruction, error)
}

// reserveSet holds the two reserve amounts keyed by mint, guarded by mu.
// Shared by CPMMPool and StablePool since both have exactly the two
// reserve-account shape.
type reserveSet struct {
	mu       sync.Mutex
	mints    [2]solana.PublicKey
	reserves map[solana.PublicKey]uint128.Uint128
}

func newReserveSet(mints [2]solana.PublicKey) reserveSet {
	return reserveSet{mints: mints, reserves: make(map[solana.PublicKey]uint128.Uint128, 2)}
}

func (r *reserveSet) updateAccounts() []solana.PublicKey {
	return []solana.PublicKey{r.mints[0], r.mints[1]}
}

// setFromSnapshot decodes a two-element token-account snapshot and updates
// the reserve map. A snapshot of the wrong length, or containing a corrupt
// element, is rejected wholesale with a warning and leaves prior reserves
// untouched.
func (r *reserveSet) setFromSnapshot(name string, snapshot [][]byte) {
	if len(snapshot) != 2 {
		log.Printf("[Pool:%s] set_update_accounts: expected 2 accounts, got %d", name, len(snapshot))
		return
	}
	acc0 := accountcodec.DecodeTokenAccount(snapshot[0])
	acc1 := accountcodec.DecodeTokenAccount(snapshot[1])
	if !acc0.IsValid {
		log.Printf("[Pool:%s] set_update_accounts: account 0 failed to decode", name)
		return
	}
	if !acc1.IsValid {
		log.Printf("[Pool:%s] set_update_accounts: account 1 failed to decode", name)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.reserves[r.mints[0]] = uint128.From64(acc0.Amount)
	r.reserves[r.mints[1]] = uint128.From64(acc1.Amount)
}

func (r *reserveSet) get(in, out solana.PublicKey) (uint128.Uint128, uint128.Uint128, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rin, ok1 := r.reserves[in]
	rout, ok2 := r.reserves[out]
	if !ok1 || !ok2 {
		return uint128.Zero, uint128.Zero, false
	}
	return rin, rout, true
}

func (r *reserveSet) canTrade(in, out solana.PublicKey) bool {
	if (in != r.mints[0] || out != r.mints[1]) && (in != r.mints[1] || out != r.mints[0]) {
		return false
	}
	rin, rout, ok := r.get(in, out)
	if !ok {
		return false
	}
	return !rin.IsZero() && !rout.IsZero()
}

// sortMints returns m0<m1 in canonical byte-lexical order.
func sortMints(a, b solana.PublicKey) [2]solana.PublicKey {
	if bytesLess(a[:], b[:]) {
		return [2]solana.PublicKey{a, b}
	}
	return [2]solana.PublicKey{b, a}
}

func bytesLess(a, b []byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

var errUnsupportedMints = fmt.Errorf("pool: mint pair not served by this pool")

// deriveATA resolves the owner's associated token account for mint, the
// source/destination accounts every swap_instruction binds against.
func deriveATA(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	return addr, err
}
