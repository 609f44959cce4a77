package clmm

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickToSqrtPriceX64_KnownPoints(t *testing.T) {
	// Tick 0 is exactly price 1.0, so sqrt price is exactly 2^64.
	s, err := TickToSqrtPriceX64(0)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Cmp(Q64))

	// Range limits must be representable.
	_, err = TickToSqrtPriceX64(MinTick)
	require.NoError(t, err)
	_, err = TickToSqrtPriceX64(MaxTick)
	require.NoError(t, err)

	_, err = TickToSqrtPriceX64(MaxTick + 1)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = TickToSqrtPriceX64(MinTick - 1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestPriceToTick_RoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		price    string
		spacing  int32
		baseDec  uint8
		quoteDec uint8
	}{
		{"launch start price", "0.00000005", 120, 6, 9},
		{"launch end price", "0.2", 120, 6, 9},
		{"above one", "12.5", 60, 9, 9},
		{"equal decimals", "0.00042", 10, 6, 6},
		{"stable pair", "1.0002", 1, 6, 6},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			price := decimal.RequireFromString(tc.price)

			tick, err := PriceToTick(price, tc.spacing, tc.baseDec, tc.quoteDec)
			require.NoError(t, err)
			assert.Zero(t, tick%tc.spacing, "tick must align to spacing")

			sqrtX64, err := TickToSqrtPriceX64(tick)
			require.NoError(t, err)
			got := SqrtPriceX64ToPrice(sqrtX64, tc.baseDec, tc.quoteDec)

			// Snapped price is at most the requested price and within one
			// spacing step below it.
			assert.True(t, got.LessThanOrEqual(price),
				"snapped price %s above requested %s", got, price)

			next, err := TickToSqrtPriceX64(tick + tc.spacing)
			require.NoError(t, err)
			nextPrice := SqrtPriceX64ToPrice(next, tc.baseDec, tc.quoteDec)
			assert.True(t, nextPrice.GreaterThan(price),
				"next tick price %s should exceed requested %s", nextPrice, price)

			t.Logf("price=%s tick=%d snapped=%s", price, tick, got)
		})
	}
}

func TestPriceToTick_Monotonic(t *testing.T) {
	prev := int32(MinTick)
	for _, p := range []string{"0.00000001", "0.0000001", "0.001", "0.5", "1", "3", "1000"} {
		tick, err := PriceToTick(decimal.RequireFromString(p), 60, 6, 9)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, tick, prev, "ticks must not decrease with price")
		prev = tick
	}
}

func TestPriceToTick_Invalid(t *testing.T) {
	_, err := PriceToTick(decimal.Zero, 60, 6, 9)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = PriceToTick(decimal.NewFromInt(-1), 60, 6, 9)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = PriceToTick(decimal.NewFromInt(1), 0, 6, 9)
	assert.ErrorIs(t, err, ErrOutOfRange)

	// Far beyond the representable range.
	_, err = PriceToTick(decimal.RequireFromString("1e60"), 60, 6, 9)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestSqrtPriceRoundTrip_OneULP(t *testing.T) {
	for _, tick := range []int32{-221760, -443520, -120, 0, 120, 64080, 443520} {
		s, err := TickToSqrtPriceX64(tick)
		require.NoError(t, err)

		price := SqrtPriceX64ToPrice(s, 6, 9)
		back, err := PriceToTick(price, 1, 6, 9)
		require.NoError(t, err)
		assert.InDelta(t, tick, back, 1, "tick %d did not survive the round trip", tick)
	}
}
