package pool

import (
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/rawblock/arb-engine/internal/amm"
	"github.com/rawblock/arb-engine/pkg/models"
)

// CPMMPool is the Orca/Aldrin-style constant-product variant.
type CPMMPool struct {
	reserveSet

	name        string
	poolAddress solana.PublicKey
	authority   solana.PublicKey
	swapProgram solana.PublicKey
	tradeFee    models.FeeFraction

	// ReserveAccounts holds the vault token-account addresses that back
	// each mint's reserve, in the same order as mints.
	ReserveAccounts [2]solana.PublicKey
}

// NewCPMMPool constructs a CPMM pool with mints canonically sorted.
func NewCPMMPool(name string, mintA, mintB solana.PublicKey, reserveAcctA, reserveAcctB solana.PublicKey, poolAddress, authority, swapProgram solana.PublicKey, tradeFee models.FeeFraction) *CPMMPool {
	mints := sortMints(mintA, mintB)
	reserveAccts := [2]solana.PublicKey{reserveAcctA, reserveAcctB}
	if mints[0] != mintA {
		reserveAccts = [2]solana.PublicKey{reserveAcctB, reserveAcctA}
	}
	return &CPMMPool{
		reserveSet:      newReserveSet(mints),
		name:            name,
		poolAddress:     poolAddress,
		authority:       authority,
		swapProgram:     swapProgram,
		tradeFee:        tradeFee,
		ReserveAccounts: reserveAccts,
	}
}

func (p *CPMMPool) Name() string                       { return p.name }
func (p *CPMMPool) Mints() [2]solana.PublicKey          { return p.mints }
func (p *CPMMPool) PoolAddress() solana.PublicKey       { return p.poolAddress }
func (p *CPMMPool) UpdateAccounts() []solana.PublicKey  { return p.ReserveAccounts[:] }
func (p *CPMMPool) SetUpdateAccounts(snapshot [][]byte) { p.setFromSnapshot(p.name, snapshot) }
func (p *CPMMPool) CanTrade(in, out solana.PublicKey) bool { return p.canTrade(in, out) }

func (p *CPMMPool) Reserves(in, out solana.PublicKey) (uint128.Uint128, uint128.Uint128, bool) {
	return p.get(in, out)
}

func (p *CPMMPool) Quote(amountIn uint128.Uint128, in, out solana.PublicKey) (uint128.Uint128, bool) {
	rin, rout, ok := p.get(in, out)
	if !ok {
		return uint128.Zero, true
	}
	out128, ok := amm.CPMMQuote(rin, rout, amountIn, p.tradeFee.Numerator, p.tradeFee.Denominator)
	if !ok {
		return uint128.Zero, false
	}
	return out128, true
}

func (p *CPMMPool) SwapInstruction(owner, in, out solana.PublicKey) ([]solana.Instruction, error) {
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
