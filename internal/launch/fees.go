package launch

import (
	"errors"

	"github.com/gagliardetto/solana-go"
)

var (
	// ErrFeeSplitMismatch is returned when the burn and distribute shares
	// do not add up to the configured transfer fee.
	ErrFeeSplitMismatch = errors.New("distribute and burn bps must sum to the transfer fee bps")
	// ErrFeeDisabledNonZero is returned when fee fields are set while the
	// tax is disabled.
	ErrFeeDisabledNonZero = errors.New("fee fields must be zero when the transfer tax is disabled")
)

// TokenFeeParams configures the transfer tax attached to the launched mint
// and how collected fees are split between burning and reward distribution.
type TokenFeeParams struct {
	TaxEnabled           bool
	NonNativeReward      bool // rewards paid in a token other than the quote asset
	TransferFeeBps       uint16
	DistributeFeeBps     uint16
	BurnFeeBps           uint16
	RewardMint           solana.PublicKey
	DistributionInterval uint32 // seconds
}

// Validate enforces the fee split invariant before any instruction is built.
func (p TokenFeeParams) Validate() error {
	if !p.TaxEnabled {
		if p.TransferFeeBps != 0 || p.DistributeFeeBps != 0 || p.BurnFeeBps != 0 || p.DistributionInterval != 0 {
			return ErrFeeDisabledNonZero
		}
		return nil
	}
	if p.DistributeFeeBps+p.BurnFeeBps != p.TransferFeeBps {
		return ErrFeeSplitMismatch
	}
	if p.NonNativeReward && p.RewardMint.IsZero() {
		return errors.New("non-native reward requires a reward mint")
	}
	return nil
}
