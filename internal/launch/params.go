package launch

import (
	"errors"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/solaunch/launch-bot/internal/clmm"
)

var (
	// ErrInvalidRange is returned when the configured trading range is
	// empty or inverted.
	ErrInvalidRange = errors.New("end price must be greater than start price")
	// ErrZeroSupply is returned when the market has no base supply to seed.
	ErrZeroSupply = errors.New("base supply is zero")
	// ErrContributionTooLarge is returned when the launch-time quote
	// contribution would push the price past the top of the range.
	ErrContributionTooLarge = errors.New("quote contribution exceeds the configured range")
	// ErrContributionTooSmall is returned when the contribution moves the
	// price by less than one tick spacing. Snapping back to the range
	// floor would deposit quote capital the position cannot hold there.
	ErrContributionTooSmall = errors.New("quote contribution below one tick spacing of price impact")
)

// MarketConfig describes the desired trading range for a newly minted token
// against a quote asset. Values are fixed before derivation and never
// mutated afterwards.
type MarketConfig struct {
	QuoteMint     solana.PublicKey
	QuoteDecimals uint8
	BaseDecimals  uint8
	BaseSupply    uint64 // raw units
	TickSpacing   int32
	StartPrice    decimal.Decimal
	EndPrice      decimal.Decimal
}

// LaunchParameters is the immutable output of parameter derivation. It is
// owned by the deployment attempt that computed it and only ever consumed.
type LaunchParameters struct {
	PoolInitPrice       decimal.Decimal
	BaseMax             *big.Int
	QuoteMax            *big.Int
	Liquidity           *big.Int
	InitialTick         int32
	MinTick             int32
	MaxTick             int32
	InitialSqrtPriceX64 *big.Int
	BaseMint            solana.PublicKey
	QuoteMint           solana.PublicKey
	QuoteDecimals       uint8
}

// DeriveLaunchParameters computes the pool seeding parameters for a market.
// Pure and deterministic: no I/O, same inputs always produce the same
// output. A nil or zero quoteContribution takes the direct path; a positive
// one follows the two-pass price-impact adjustment.
func DeriveLaunchParameters(market MarketConfig, baseMint solana.PublicKey, quoteContribution *big.Int) (*LaunchParameters, error) {
	if market.BaseSupply == 0 {
		return nil, ErrZeroSupply
	}
	if !market.EndPrice.GreaterThan(market.StartPrice) {
		return nil, ErrInvalidRange
	}

	minTick, err := clmm.PriceToTick(market.StartPrice, market.TickSpacing, market.BaseDecimals, market.QuoteDecimals)
	if err != nil {
		return nil, err
	}
	maxTick, err := clmm.PriceToTick(market.EndPrice, market.TickSpacing, market.BaseDecimals, market.QuoteDecimals)
	if err != nil {
		return nil, err
	}
	if maxTick <= minTick {
		// Both prices snapped onto the same tick.
		return nil, ErrInvalidRange
	}

	sqrtMin, err := clmm.TickToSqrtPriceX64(minTick)
	if err != nil {
		return nil, err
	}
	sqrtMax, err := clmm.TickToSqrtPriceX64(maxTick)
	if err != nil {
		return nil, err
	}

	supply := new(big.Int).SetUint64(market.BaseSupply)

	params := &LaunchParameters{
		MinTick:       minTick,
		MaxTick:       maxTick,
		BaseMint:      baseMint,
		QuoteMint:     market.QuoteMint,
		QuoteDecimals: market.QuoteDecimals,
	}

	if quoteContribution == nil || quoteContribution.Sign() == 0 {
		// As-minted: the full supply rests at the bottom of the range.
		params.InitialTick = minTick
		params.InitialSqrtPriceX64 = sqrtMin
		params.BaseMax = supply
		params.QuoteMax = new(big.Int)
		params.Liquidity = clmm.LiquidityFromAmounts(sqrtMin, sqrtMin, sqrtMax, supply, new(big.Int))
		params.PoolInitPrice = clmm.SqrtPriceX64ToPrice(sqrtMin, market.BaseDecimals, market.QuoteDecimals)
		return params, nil
	}

	return adjustForContribution(params, market, supply, sqrtMin, sqrtMax, quoteContribution)
}

// adjustForContribution reruns the derivation accounting for quote capital
// injected at launch. The injection moves the effective starting price up
// the curve, so the deposited amounts must be recomputed against the price
// the pool will actually open at, not the nominal one.
func adjustForContribution(params *LaunchParameters, market MarketConfig, supply, sqrtMin, sqrtMax, contribution *big.Int) (*LaunchParameters, error) {
	unadjusted := clmm.LiquidityFromAmounts(sqrtMin, sqrtMin, sqrtMax, supply, new(big.Int))

	shifted, err := clmm.NextSqrtPriceFromQuoteInput(sqrtMin, unadjusted, contribution)
	if err != nil {
		return nil, err
	}
	if shifted.Cmp(sqrtMax) >= 0 {
		return nil, ErrContributionTooLarge
	}

	shiftedPrice := clmm.SqrtPriceX64ToPrice(shifted, market.BaseDecimals, market.QuoteDecimals)
	adjTick, err := clmm.PriceToTick(shiftedPrice, market.TickSpacing, market.BaseDecimals, market.QuoteDecimals)
	if err != nil {
		return nil, err
	}
	if adjTick <= params.MinTick {
		return nil, ErrContributionTooSmall
	}
	sqrtAdj, err := clmm.TickToSqrtPriceX64(adjTick)
	if err != nil {
		return nil, err
	}

	// Base tokens the contribution buys out of the curve between the
	// nominal start price and the snapped open price.
	consumed := clmm.BaseAmountDelta(unadjusted, sqrtMin, sqrtAdj, clmm.RoundUp)
	adjustedBase := new(big.Int).Sub(supply, consumed)
	if adjustedBase.Sign() <= 0 {
		return nil, ErrContributionTooLarge
	}

	params.InitialTick = adjTick
	params.InitialSqrtPriceX64 = sqrtAdj
	params.BaseMax = adjustedBase
	params.QuoteMax = new(big.Int).Set(contribution)
	params.Liquidity = clmm.LiquidityFromAmounts(sqrtAdj, sqrtMin, sqrtMax, adjustedBase, contribution)
	params.PoolInitPrice = clmm.SqrtPriceX64ToPrice(sqrtAdj, market.BaseDecimals, market.QuoteDecimals)
	return params, nil
}
