// Package amm implements the constant-product and stable-swap quote kernels.
// Both kernels are panic-free by construction: degenerate or
// non-convergent inputs return ok=false rather than unwinding, so a caller in
// the arbitrage search can treat a kernel failure as "skip this edge".
//
// Intermediate products are computed with math/big rather than relying on
// uint128's own overflow behavior (which differs across wrap/panic variants),
// so overflow is always detected explicitly and reported as ok=false instead
// of wrapping silently or panicking. Public inputs and outputs stay in
// uint128.Uint128, matching the 128-bit reserve/amount types used throughout
// the pool and registry layers.
package amm

import (
	"math/big"

	"lukechampine.com/uint128"
)

var maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// CPMMQuote computes the constant-product (x*y=k) output amount for a swap
// of `amountIn` against reserves (reserveIn, reserveOut), net of a
// numerator/denominator trade fee.
//
//	out = reserveOut - ceil(reserveIn*reserveOut / (reserveIn + amountIn*(1-fee)))
//
// Returns (0, true) for degenerate inputs (any zero reserve, zero amount).
// Returns (0, false) only on unrepresentable overflow.
func CPMMQuote(reserveIn, reserveOut, amountIn uint128.Uint128, feeNum, feeDenom uint64) (uint128.Uint128, bool) {
	if reserveIn.IsZero() || reserveOut.IsZero() || amountIn.IsZero() {
		return uint128.Zero, true
	}
	if feeDenom == 0 {
		feeDenom = 1
		feeNum = 0
	}
	if feeNum >= feeDenom {
		// A 100%+ fee degenerates to zero output, not an error.
		return uint128.Zero, true
	}

	rIn := reserveIn.Big()
	rOut := reserveOut.Big()
	aIn := amountIn.Big()

	// amountIn * (1 - fee), floor division.
	afterFeeNum := new(big.Int).Mul(aIn, big.NewInt(int64(feeDenom-feeNum)))
	amountInAfterFee := new(big.Int).Div(afterFeeNum, big.NewInt(int64(feeDenom)))
	if amountInAfterFee.Sign() == 0 {
		return uint128.Zero, true
	}

	k := new(big.Int).Mul(rIn, rOut)
	newReserveIn := new(big.Int).Add(rIn, amountInAfterFee)

	// Ceil-divide so the invariant never decreases from rounding: the pool
	// always retains at least as much value as x*y=k requires.
	newReserveOut, rem := new(big.Int).QuoRem(k, newReserveIn, new(big.Int))
	if rem.Sign() != 0 {
		newReserveOut.Add(newReserveOut, big.NewInt(1))
	}

	if newReserveOut.Cmp(rOut) >= 0 {
		// Rounding pushed the post-trade reserve at or above the pre-trade
		// reserve: no output is owed (can happen for dust amounts).
		return uint128.Zero, true
	}

	out := new(big.Int).Sub(rOut, newReserveOut)
	return bigToUint128(out)
}

// ApplySlippage returns amount*(1 - num/denom), the minimum-acceptable-output
// calculation used both by the on-chain commit check and by the search's
// realistic-spread pass.
func ApplySlippage(amount uint128.Uint128, num, denom uint64) (uint128.Uint128, bool) {
	if denom == 0 {
		return amount, true
	}
	if num >= denom {
		return uint128.Zero, true
	}
	product := new(big.Int).Mul(amount.Big(), big.NewInt(int64(denom-num)))
	result := new(big.Int).Div(product, big.NewInt(int64(denom)))
	return bigToUint128(result)
}

// bigToUint128 converts a non-negative big.Int back into a uint128.Uint128,
// reporting ok=false if the value doesn't fit in 128 bits.
func bigToUint128(v *big.Int) (uint128.Uint128, bool) {
	if v.Sign() < 0 || v.Cmp(maxUint128) > 0 {
		return uint128.Zero, false
	}
	u, ok := uint128.FromBig(v)
	if !ok {
		return uint128.Zero, false
	}
	return u, true
}
