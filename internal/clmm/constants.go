package clmm

import (
	"errors"
	"math/big"
)

// Tick range supported by the pool program.
const (
	MinTick int32 = -443636
	MaxTick int32 = 443636
)

// Q64.64 sqrt-price limits matching the tick range above.
var (
	MinSqrtPriceX64 = big.NewInt(4295048016)
	MaxSqrtPriceX64 = mustBigInt("79226673521066979257578248091")

	// Q64 = 2^64, the fixed-point scale used for sqrt prices.
	Q64  = new(big.Int).Lsh(big.NewInt(1), 64)
	Q128 = new(big.Int).Lsh(big.NewInt(1), 128)
)

// ErrOutOfRange is returned for ticks or prices outside the representable
// range of the pool program.
var ErrOutOfRange = errors.New("tick out of range")

func mustBigInt(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("invalid big int constant: " + s)
	}
	return v
}
