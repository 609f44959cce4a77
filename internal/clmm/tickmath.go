package clmm

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// tickBase is the price ratio between two adjacent ticks.
const tickBase = 1.0001

// PriceToTick converts a human price (quote per whole base token) to the
// nearest initializable tick: the largest multiple of tickSpacing whose
// price does not exceed the requested price.
func PriceToTick(price decimal.Decimal, tickSpacing int32, baseDecimals, quoteDecimals uint8) (int32, error) {
	if tickSpacing <= 0 || !price.IsPositive() {
		return 0, ErrOutOfRange
	}

	raw := rawPrice(price, baseDecimals, quoteDecimals)
	f, _ := raw.Float64()
	if f <= 0 || math.IsInf(f, 0) {
		return 0, ErrOutOfRange
	}

	tick := int32(math.Floor(math.Log(f) / math.Log(tickBase)))
	tick = floorToSpacing(tick, tickSpacing)

	// Float log can land one spacing too high right at a tick boundary;
	// verify against the exact fixed-point price.
	for {
		sqrtX64, err := TickToSqrtPriceX64(tick)
		if err != nil {
			return 0, err
		}
		if !SqrtPriceX64ToPrice(sqrtX64, baseDecimals, quoteDecimals).GreaterThan(price) {
			break
		}
		tick -= tickSpacing
	}

	if tick < MinTick || tick > MaxTick {
		return 0, ErrOutOfRange
	}
	return tick, nil
}

// TickToSqrtPriceX64 returns sqrt(1.0001^tick) in Q64.64 fixed point.
func TickToSqrtPriceX64(tick int32) (*big.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return nil, ErrOutOfRange
	}

	// 1.0001^(tick/2) * 2^64 computed over 256-bit floats, which keeps the
	// round trip within one unit in the last place across the full range.
	pow := powFloat(big.NewFloat(tickBase).SetPrec(fpPrec), tick)
	pow.Sqrt(pow)
	pow.Mul(pow, new(big.Float).SetPrec(fpPrec).SetInt(Q64))

	out, _ := pow.Int(nil)
	return out, nil
}

// SqrtPriceX64ToPrice converts a Q64.64 sqrt price back to a human price,
// undoing the decimal scaling between the two mints.
func SqrtPriceX64ToPrice(sqrtPriceX64 *big.Int, baseDecimals, quoteDecimals uint8) decimal.Decimal {
	num := new(big.Int).Mul(sqrtPriceX64, sqrtPriceX64)
	raw := decimal.NewFromBigInt(num, 0).DivRound(decimal.NewFromBigInt(Q128, 0), priceScale)
	return raw.Shift(int32(baseDecimals) - int32(quoteDecimals))
}

const (
	fpPrec     = 256
	priceScale = 40
)

// rawPrice rescales a human price to raw token units.
func rawPrice(price decimal.Decimal, baseDecimals, quoteDecimals uint8) decimal.Decimal {
	return price.Shift(int32(quoteDecimals) - int32(baseDecimals))
}

func floorToSpacing(tick, spacing int32) int32 {
	q := tick / spacing
	if tick%spacing != 0 && tick < 0 {
		q--
	}
	return q * spacing
}

// powFloat raises base to an integer power by repeated squaring. Negative
// exponents go through the reciprocal.
func powFloat(base *big.Float, exp int32) *big.Float {
	result := big.NewFloat(1).SetPrec(fpPrec)
	if exp == 0 {
		return result
	}

	n := exp
	if n < 0 {
		n = -n
	}
	acc := new(big.Float).SetPrec(fpPrec).Set(base)
	for n > 0 {
		if n&1 == 1 {
			result.Mul(result, acc)
		}
		acc.Mul(acc, acc)
		n >>= 1
	}

	if exp < 0 {
		result.Quo(big.NewFloat(1).SetPrec(fpPrec), result)
	}
	return result
}
