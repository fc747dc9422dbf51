package pool

import (
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/rawblock/arb-engine/internal/amm"
	"github.com/rawblock/arb-engine/pkg/models"
)

// StablePool is the Saber/Mercurial-style stable-swap variant: two reserve
// accounts plus an amplification coefficient.
type StablePool struct {
	reserveSet

	name        string
	poolAddress solana.PublicKey
	authority   solana.PublicKey
	swapProgram solana.PublicKey
	tradeFee    models.FeeFraction
	amp         uint64

	ReserveAccounts [2]solana.PublicKey
}

// NewStablePool constructs a stable-swap pool with mints canonically sorted.
func NewStablePool(name string, mintA, mintB solana.PublicKey, reserveAcctA, reserveAcctB solana.PublicKey, poolAddress, authority, swapProgram solana.PublicKey, tradeFee models.FeeFraction, amp uint64) *StablePool {
	mints := sortMints(mintA, mintB)
	reserveAccts := [2]solana.PublicKey{reserveAcctA, reserveAcctB}
	if mints[0] != mintA {
		reserveAccts = [2]solana.PublicKey{reserveAcctB, reserveAcctA}
	}
	return &StablePool{
		reserveSet:      newReserveSet(mints),
		name:            name,
		poolAddress:     poolAddress,
		authority:       authority,
		swapProgram:     swapProgram,
		tradeFee:        tradeFee,
		amp:             amp,
		ReserveAccounts: reserveAccts,
	}
}

func (p *StablePool) Name() string                          { return p.name }
func (p *StablePool) Mints() [2]solana.PublicKey             { return p.mints }
func (p *StablePool) PoolAddress() solana.PublicKey          { return p.poolAddress }
func (p *StablePool) UpdateAccounts() []solana.PublicKey     { return p.ReserveAccounts[:] }
func (p *StablePool) SetUpdateAccounts(snapshot [][]byte)    { p.setFromSnapshot(p.name, snapshot) }
func (p *StablePool) CanTrade(in, out solana.PublicKey) bool { return p.canTrade(in, out) }

func (p *StablePool) Reserves(in, out solana.PublicKey) (uint128.Uint128, uint128.Uint128, bool) {
	return p.get(in, out)
}

func (p *StablePool) Quote(amountIn uint128.Uint128, in, out solana.PublicKey) (uint128.Uint128, bool) {
	rin, rout, ok := p.get(in, out)
	if !ok {
		return uint128.Zero, true
	}
	out128, ok := amm.StableSwapQuote(rin, rout, amountIn, p.amp, p.tradeFee.Numerator, p.tradeFee.Denominator)
	if !ok {
		return uint128.Zero, false
	}
	return out128, true
}

func (p *StablePool) SwapInstruction(owner, in, out solana.PublicKey) ([]solana.Instruction, error) {
	if !p.canTrade(in, out) {
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
		newSwapInstruction(p.swapProgram, p.poolAddress, p.authority, owner, userSrc, userDst),
	}, nil
}
