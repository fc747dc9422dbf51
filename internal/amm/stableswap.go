package amm

import (
	"math/big"

	"lukechampine.com/uint128"
)

// StableSwapQuote computes the output amount for a two-token Curve-style
// stable-swap pool (Saber/Mercurial), given reserves (reserveIn, reserveOut),
// the amplification coefficient amp, and a trade fee expressed as
// feeNum/feeDenom.
//
// The invariant solved is the n=2 case of
//
//	Ann*S + D = Ann*D + D^(n+1) / (n^n * prod(x_i))
//
// found via Newton-Raphson for D (given the current reserves) and then again
// for the new balance of the output token (given the post-trade input
// reserve), following the standard Curve StableSwap iteration. All work is
// done in math/big to avoid intermediate overflow in the D^3 term; the
// public type at the kernel boundary stays uint128.Uint128.
//
// Returns ok=false if either Newton-Raphson loop fails to converge within
// the iteration bound — the caller treats that edge as unquotable for this
// tick, exactly like a CPMM overflow.
func StableSwapQuote(reserveIn, reserveOut, amountIn uint128.Uint128, amp uint64, feeNum, feeDenom uint64) (uint128.Uint128, bool) {
	if reserveIn.IsZero() || reserveOut.IsZero() || amountIn.IsZero() || amp == 0 {
		return uint128.Zero, true
	}
	if feeDenom == 0 {
		feeDenom = 1
		feeNum = 0
	}
	if feeNum >= feeDenom {
		return uint128.Zero, true
	}

	x := reserveIn.Big()
	y := reserveOut.Big()
	dx := amountIn.Big()

	ann := new(big.Int).Mul(big.NewInt(int64(amp)), big.NewInt(4)) // Ann = A * n^n, n=2

	d, ok := stableD(ann, x, y)
	if !ok {
		return uint128.Zero, false
	}

	newX := new(big.Int).Add(x, dx)
	newY, ok := stableY(ann, newX, d)
	if !ok {
		return uint128.Zero, false
	}

	// dy before fee = y - newY, floored at zero (a non-decreasing solve means
	// no output is owed).
	if newY.Cmp(y) >= 0 {
		return uint128.Zero, true
	}
	dy := new(big.Int).Sub(y, newY)

	feeAmt := new(big.Int).Mul(dy, big.NewInt(int64(feeNum)))
	feeAmt.Div(feeAmt, big.NewInt(int64(feeDenom)))
	dy.Sub(dy, feeAmt)
	if dy.Sign() <= 0 {
		return uint128.Zero, true
	}

	return bigToUint128(dy)
}

// stableD solves for the invariant D given two reserves, via Newton-Raphson.
// n=2 throughout.
func stableD(ann, x0, x1 *big.Int) (*big.Int, bool) {
	s := new(big.Int).Add(x0, x1)
	if s.Sign() == 0 {
		return big.NewInt(0), true
	}
	d := new(big.Int).Set(s)
	four := big.NewInt(4)

	for i := 0; i < 255; i++ {
		// dP = d^3 / (4 * x0 * x1)
		dP := new(big.Int).Mul(d, d)
		dP.Mul(dP, d)
		denom := new(big.Int).Mul(x0, x1)
		denom.Mul(denom, four)
		if denom.Sign() == 0 {
			return nil, false
		}
		dP.Div(dP, denom)

		prevD := new(big.Int).Set(d)

		// d = (ann*s + 2*dP) * d / ((ann-1)*d + 3*dP)
		num := new(big.Int).Mul(ann, s)
		num.Add(num, new(big.Int).Mul(big.NewInt(2), dP))
		num.Mul(num, d)

		den := new(big.Int).Sub(ann, big.NewInt(1))
		den.Mul(den, d)
		den.Add(den, new(big.Int).Mul(big.NewInt(3), dP))
		if den.Sign() == 0 {
			return nil, false
		}
		d.Div(num, den)

		diff := new(big.Int).Sub(d, prevD)
		diff.Abs(diff)
		if diff.Cmp(big.NewInt(1)) <= 0 {
			return d, true
		}
	}
	return nil, false
}

// stableY solves for the new balance of the output reserve given the new
// balance of the input reserve and the invariant d, via Newton-Raphson.
func stableY(ann, newX, d *big.Int) (*big.Int, bool) {
	if newX.Sign() == 0 || ann.Sign() == 0 {
		return nil, false
	}

	// c = d^3 / (4 * newX * ann)   [n=2: only one "other" reserve, newX]
	c := new(big.Int).Mul(d, d)
	c.Mul(c, d)
	denom := new(big.Int).Mul(newX, big.NewInt(4))
	denom.Mul(denom, ann)
	if denom.Sign() == 0 {
		return nil, false
	}
	c.Div(c, denom)

	// b = newX + d/ann
	b := new(big.Int).Div(d, ann)
	b.Add(b, newX)

	y := new(big.Int).Set(d)
	two := big.NewInt(2)

	for i := 0; i < 255; i++ {
		prevY := new(big.Int).Set(y)

		// y = (y^2 + c) / (2*y + b - d)
		num := new(big.Int).Mul(y, y)
		num.Add(num, c)

		den := new(big.Int).Mul(two, y)
		den.Add(den, b)
		den.Sub(den, d)
		if den.Sign() <= 0 {
			return nil, false
		}
		y.Div(num, den)

		diff := new(big.Int).Sub(y, prevY)
		diff.Abs(diff)
		if diff.Cmp(big.NewInt(1)) <= 0 {
			return y, true
		}
	}
	return nil, false
}
