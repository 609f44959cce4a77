package clmm

import (
	"errors"
	"math/big"
)

// Rounding selects the direction amount math rounds in. Deposits round up
// (the pool may not be shorted), withdrawals round down.
type Rounding int

const (
	RoundDown Rounding = iota
	RoundUp
)

var zero = new(big.Int)

// LiquidityFromAmounts derives the liquidity constant for a position over
// [sqrtLower, sqrtUpper] funded with the given raw token amounts. Whichever
// side is the binding constraint at the current price bounds the result.
func LiquidityFromAmounts(sqrtCurrent, sqrtLower, sqrtUpper, baseAmount, quoteAmount *big.Int) *big.Int {
	if sqrtLower.Cmp(sqrtUpper) > 0 {
		sqrtLower, sqrtUpper = sqrtUpper, sqrtLower
	}

	switch {
	case sqrtCurrent.Cmp(sqrtLower) <= 0:
		// Entirely above the current price: base only.
		return liquidityFromBase(baseAmount, sqrtLower, sqrtUpper)
	case sqrtCurrent.Cmp(sqrtUpper) >= 0:
		// Entirely below the current price: quote only.
		return liquidityFromQuote(quoteAmount, sqrtLower, sqrtUpper)
	default:
		lb := liquidityFromBase(baseAmount, sqrtCurrent, sqrtUpper)
		lq := liquidityFromQuote(quoteAmount, sqrtLower, sqrtCurrent)
		if lb.Cmp(lq) < 0 {
			return lb
		}
		return lq
	}
}

// liquidityFromBase solves amount = L * 2^64 * (sU - sL) / (sL * sU) for L.
func liquidityFromBase(amount, sqrtLower, sqrtUpper *big.Int) *big.Int {
	delta := new(big.Int).Sub(sqrtUpper, sqrtLower)
	if amount.Sign() == 0 || delta.Sign() == 0 {
		return new(big.Int)
	}
	num := new(big.Int).Mul(amount, sqrtLower)
	num.Mul(num, sqrtUpper)
	denom := new(big.Int).Lsh(delta, 64)
	return num.Div(num, denom)
}

// liquidityFromQuote solves amount = L * (sU - sL) / 2^64 for L.
func liquidityFromQuote(amount, sqrtLower, sqrtUpper *big.Int) *big.Int {
	delta := new(big.Int).Sub(sqrtUpper, sqrtLower)
	if amount.Sign() == 0 || delta.Sign() == 0 {
		return new(big.Int)
	}
	num := new(big.Int).Lsh(amount, 64)
	return num.Div(num, delta)
}

// BaseAmountDelta is the base token amount a liquidity delta moves across
// [sqrtLower, sqrtUpper].
func BaseAmountDelta(liquidity, sqrtLower, sqrtUpper *big.Int, rounding Rounding) *big.Int {
	delta := new(big.Int).Sub(sqrtUpper, sqrtLower)
	num := new(big.Int).Mul(liquidity, delta)
	num.Lsh(num, 64)
	denom := new(big.Int).Mul(sqrtLower, sqrtUpper)
	return divRound(num, denom, rounding)
}

// QuoteAmountDelta is the quote token amount a liquidity delta moves across
// [sqrtLower, sqrtUpper].
func QuoteAmountDelta(liquidity, sqrtLower, sqrtUpper *big.Int, rounding Rounding) *big.Int {
	delta := new(big.Int).Sub(sqrtUpper, sqrtLower)
	num := new(big.Int).Mul(liquidity, delta)
	return divRound(num, Q64, rounding)
}

// NextSqrtPriceFromQuoteInput is the constant-liquidity price after
// injecting quote tokens: sqrt' = sqrt + amount * 2^64 / L, rounded down.
func NextSqrtPriceFromQuoteInput(sqrtPrice, liquidity, amountIn *big.Int) (*big.Int, error) {
	if liquidity.Sign() <= 0 {
		return nil, errors.New("liquidity must be greater than 0")
	}
	quotient := new(big.Int).Lsh(amountIn, 64)
	quotient.Div(quotient, liquidity)
	return quotient.Add(quotient, sqrtPrice), nil
}

func divRound(num, denom *big.Int, rounding Rounding) *big.Int {
	if denom.Sign() == 0 {
		return new(big.Int)
	}
	q, r := new(big.Int).DivMod(num, denom, new(big.Int))
	if rounding == RoundUp && r.Cmp(zero) > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}
