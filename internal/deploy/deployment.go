// Package deploy drives the end-to-end launch workflow: metadata upload,
// address reservation, instruction assembly, signing, bundle submission,
// confirmation, backend registration and the optional initial buy. The
// machine advances only on completed steps and halts on the first
// unrecoverable error, reporting which step failed; it never attempts to
// roll back, because steps from address reservation onwards leave
// irreversible state on chain.
package deploy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/solaunch/launch-bot/internal/chain"
	"github.com/solaunch/launch-bot/internal/launch"
	"github.com/solaunch/launch-bot/internal/metadata"
	"github.com/solaunch/launch-bot/internal/registry"
)

// ErrDeploymentInFlight is returned when a deployment is started while
// another one is still running. The pipeline is single-flight per session.
var ErrDeploymentInFlight = errors.New("a deployment is already in flight")

const mintGrindAttempts = 50000

// Uploader is the metadata hosting capability.
type Uploader interface {
	Upload(ctx context.Context, image []byte, imageName string, meta metadata.TokenMetadata) (string, error)
}

// Registry is the backend index. Failures are logged, never fatal.
type Registry interface {
	RegisterToken(ctx context.Context, record registry.TokenRecord) error
	RegisterPool(ctx context.Context, record registry.PoolRecord) error
}

// Relay submits and confirms atomic bundles.
type Relay interface {
	SubmitBundle(ctx context.Context, txs []*solana.Transaction) (string, error)
	AwaitConfirmation(ctx context.Context, bundleID string) error
}

// ChainClient is the read-only chain state the pipeline needs before
// assembly.
type ChainClient interface {
	GetLatestBlockhash(ctx context.Context) (chain.Blockhash, error)
	GetMinimumBalanceForRentExemption(ctx context.Context, space uint64) (uint64, error)
	ResolveTokenProgram(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, error)
}

// Wallet is the external signing capability. The machine never sees key
// material.
type Wallet interface {
	Address() solana.PublicKey
	SignAllTransactions(txs []*solana.Transaction) error
}

// Buyer executes the post-launch initial buy through the swap aggregator.
type Buyer interface {
	Buy(ctx context.Context, mint solana.PublicKey, lamports uint64) error
}

// Request is everything a launch needs from the caller.
type Request struct {
	Market    launch.MarketConfig
	Fees      launch.TokenFeeParams
	Metadata  metadata.TokenMetadata
	Image     []byte
	ImageName string

	QuoteContribution  *big.Int
	AmmConfigIndex     uint16
	TipLamports        uint64
	TipAccount         solana.PublicKey
	InitialBuyLamports uint64
}

// Result reports the addresses a successful deployment produced. The
// InitialBuyErr and RegistrationErr fields carry non-fatal failures.
type Result struct {
	BaseMint        solana.PublicKey
	Pool            solana.PublicKey
	PositionNFTMint solana.PublicKey
	BundleID        string
	MetadataURI     string
	Params          *launch.LaunchParameters

	RegistrationErr error
	InitialBuyErr   error
}

// Deployment owns one launch workflow at a time and its status log.
type Deployment struct {
	uploader  Uploader
	registry  Registry
	relay     Relay
	chain     ChainClient
	wallet    Wallet
	buyer     Buyer
	assembler *launch.Assembler
	logger    *zap.Logger

	status   StatusLog
	inFlight atomic.Bool
}

func New(uploader Uploader, reg Registry, relay Relay, chainClient ChainClient, w Wallet, buyer Buyer, logger *zap.Logger) *Deployment {
	return &Deployment{
		uploader:  uploader,
		registry:  reg,
		relay:     relay,
		chain:     chainClient,
		wallet:    w,
		buyer:     buyer,
		assembler: launch.NewAssembler(logger),
		logger:    logger.Named("deploy"),
	}
}

// Status returns a snapshot of the step log for observation.
func (d *Deployment) Status() []StatusEntry {
	return d.status.Entries()
}

// Run executes the workflow to completion or first unrecoverable error.
func (d *Deployment) Run(ctx context.Context, req Request) (*Result, error) {
	if !d.inFlight.CompareAndSwap(false, true) {
		return nil, ErrDeploymentInFlight
	}
	defer d.inFlight.Store(false)

	if err := req.Fees.Validate(); err != nil {
		return nil, err
	}

	result := &Result{}

	// MetadataUpload: no on-chain effect yet, freely retryable inside the
	// uploader.
	uri, err := runStep(d, StepMetadataUpload, func() (string, error) {
		return d.uploader.Upload(ctx, req.Image, req.ImageName, req.Metadata)
	})
	if err != nil {
		return nil, err
	}
	result.MetadataURI = uri

	// AddressReservation: generated keys plus the chain state every
	// transaction shares. From here on, failures leave partial effects
	// worth inspecting, so every error names its step.
	reservation, err := runStep(d, StepAddressReservation, func() (*reservedAddresses, error) {
		return d.reserveAddresses(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	result.BaseMint = reservation.baseMint.PublicKey()
	result.PositionNFTMint = reservation.positionNFT.PublicKey()

	txs, err := runStep(d, StepInstructionAssembly, func() (*launch.LaunchTransactions, error) {
		params, derr := launch.DeriveLaunchParameters(req.Market, reservation.baseMint.PublicKey(), req.QuoteContribution)
		if derr != nil {
			return nil, derr
		}
		result.Params = params
		return d.assembler.Assemble(launch.AssembleInput{
			Market:               req.Market,
			Params:               params,
			Fees:                 req.Fees,
			Metadata:             launch.TokenMetadataArgs{Name: req.Metadata.Name, Symbol: req.Metadata.Symbol, URI: uri},
			Creator:              d.wallet.Address(),
			PositionNFTMint:      reservation.positionNFT.PublicKey(),
			QuoteTokenProgram:    reservation.quoteTokenProgram,
			RewardTokenProgram:   reservation.rewardTokenProgram,
			Blockhash:            reservation.blockhash.Hash,
			LastValidBlockHeight: reservation.blockhash.LastValidBlockHeight,
			MintRentLamports:     reservation.mintRent,
			AmmConfigIndex:       req.AmmConfigIndex,
			TipLamports:          req.TipLamports,
			TipAccount:           req.TipAccount,
		})
	})
	if err != nil {
		return nil, err
	}
	result.Pool = launch.DerivePoolAddress(
		launch.DeriveAmmConfigAddress(req.AmmConfigIndex),
		result.BaseMint, req.Market.QuoteMint)

	// Signing order is fixed: generated keys first, then the user wallet
	// over the whole ordered batch. Reordering breaks signature validity.
	_, err = runStep(d, StepSigning, func() (struct{}, error) {
		return struct{}{}, d.signAll(txs, reservation)
	})
	if err != nil {
		return nil, err
	}

	bundleID, err := runStep(d, StepBundleSubmission, func() (string, error) {
		return d.relay.SubmitBundle(ctx, txs.Ordered())
	})
	if err != nil {
		return nil, err
	}
	result.BundleID = bundleID

	_, err = runStep(d, StepBundleConfirmation, func() (struct{}, error) {
		return struct{}{}, d.relay.AwaitConfirmation(ctx, bundleID)
	})
	if err != nil {
		return nil, err
	}

	// BackendRegistration: convenience index only; the chain already
	// holds the authoritative state.
	d.status.append(StepBackendRegistration, StatusPending, "")
	if d.registry == nil {
		d.status.append(StepBackendRegistration, StatusCompleted, "skipped")
	} else if regErr := d.register(ctx, req, result, uri); regErr != nil {
		result.RegistrationErr = regErr
		d.status.append(StepBackendRegistration, StatusError, regErr.Error())
		d.logger.Warn("backend registration failed, continuing", zap.Error(regErr))
	} else {
		d.status.append(StepBackendRegistration, StatusCompleted, "")
	}

	// InitialBuy: reported, never unwinds the deployment.
	d.status.append(StepInitialBuy, StatusPending, "")
	if d.buyer == nil || req.InitialBuyLamports == 0 {
		d.status.append(StepInitialBuy, StatusCompleted, "skipped")
	} else if buyErr := d.buyer.Buy(ctx, result.BaseMint, req.InitialBuyLamports); buyErr != nil {
		result.InitialBuyErr = buyErr
		d.status.append(StepInitialBuy, StatusError, buyErr.Error())
		d.logger.Warn("initial buy failed after successful deployment", zap.Error(buyErr))
	} else {
		d.status.append(StepInitialBuy, StatusCompleted, "")
	}

	d.logger.Info("deployment completed",
		zap.String("base_mint", result.BaseMint.String()),
		zap.String("pool", result.Pool.String()),
		zap.String("bundle_id", bundleID))
	return result, nil
}

// runStep records the pending/terminal transitions around one step and
// wraps failures with the step name.
func runStep[T any](d *Deployment, step Step, fn func() (T, error)) (T, error) {
	d.status.append(step, StatusPending, "")
	out, err := fn()
	if err != nil {
		d.status.append(step, StatusError, err.Error())
		var zero T
		return zero, &StepError{Step: step, Err: err}
	}
	d.status.append(step, StatusCompleted, "")
	return out, nil
}

type reservedAddresses struct {
	baseMint           solana.PrivateKey
	positionNFT        solana.PrivateKey
	quoteTokenProgram  solana.PublicKey
	rewardTokenProgram solana.PublicKey
	blockhash          chain.Blockhash
	mintRent           uint64
}

// reserveAddresses grinds a mint key that satisfies the pool program's
// byte-ordering requirement and captures the chain state shared by the
// whole bundle.
func (d *Deployment) reserveAddresses(ctx context.Context, req Request) (*reservedAddresses, error) {
	baseMint, err := grindMintKey(req.Market.QuoteMint)
	if err != nil {
		return nil, err
	}

	quoteProgram, err := d.chain.ResolveTokenProgram(ctx, req.Market.QuoteMint)
	if err != nil {
		return nil, err
	}

	var rewardProgram solana.PublicKey
	if req.Fees.NonNativeReward {
		rewardProgram, err = d.chain.ResolveTokenProgram(ctx, req.Fees.RewardMint)
		if err != nil {
			return nil, err
		}
	}

	mintRent, err := d.chain.GetMinimumBalanceForRentExemption(ctx, launch.MintAccountSpace)
	if err != nil {
		return nil, err
	}

	// Captured last, immediately before signing, to maximize bundle
	// validity.
	blockhash, err := d.chain.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	return &reservedAddresses{
		baseMint:           baseMint,
		positionNFT:        solana.NewWallet().PrivateKey,
		quoteTokenProgram:  quoteProgram,
		rewardTokenProgram: rewardProgram,
		blockhash:          blockhash,
		mintRent:           mintRent,
	}, nil
}

func (d *Deployment) signAll(txs *launch.LaunchTransactions, reservation *reservedAddresses) error {
	if err := partialSign(txs.Mint, reservation.baseMint); err != nil {
		return fmt.Errorf("mint key signature: %w", err)
	}
	if err := partialSign(txs.Deposit, reservation.positionNFT); err != nil {
		return fmt.Errorf("position NFT key signature: %w", err)
	}
	if err := d.wallet.SignAllTransactions(txs.Ordered()); err != nil {
		return fmt.Errorf("wallet signatures: %w", err)
	}
	return nil
}

func partialSign(tx *solana.Transaction, key solana.PrivateKey) error {
	pub := key.PublicKey()
	_, err := tx.PartialSign(func(k solana.PublicKey) *solana.PrivateKey {
		if k.Equals(pub) {
			return &key
		}
		return nil
	})
	return err
}

// grindMintKey generates keypairs until one sorts byte-wise before the
// quote mint, which the pool program requires of the mint pair.
func grindMintKey(quoteMint solana.PublicKey) (solana.PrivateKey, error) {
	for i := 0; i < mintGrindAttempts; i++ {
		candidate := solana.NewWallet().PrivateKey
		if bytes.Compare(candidate.PublicKey().Bytes(), quoteMint.Bytes()) < 0 {
			return candidate, nil
		}
	}
	return nil, fmt.Errorf("could not grind a mint key ordered before %s", quoteMint)
}

func (d *Deployment) register(ctx context.Context, req Request, result *Result, uri string) error {
	rewardMint := ""
	if req.Fees.NonNativeReward {
		rewardMint = req.Fees.RewardMint.String()
	}
	if err := d.registry.RegisterToken(ctx, registry.TokenRecord{
		Mint:                 result.BaseMint.String(),
		Name:                 req.Metadata.Name,
		Symbol:               req.Metadata.Symbol,
		URI:                  uri,
		Creator:              d.wallet.Address().String(),
		TransferFeeBps:       req.Fees.TransferFeeBps,
		DistributeFeeBps:     req.Fees.DistributeFeeBps,
		BurnFeeBps:           req.Fees.BurnFeeBps,
		RewardMint:           rewardMint,
		DistributionInterval: req.Fees.DistributionInterval,
	}); err != nil {
		return err
	}
	return d.registry.RegisterPool(ctx, registry.PoolRecord{
		Pool:      result.Pool.String(),
		BaseMint:  result.BaseMint.String(),
		QuoteMint: req.Market.QuoteMint.String(),
		Liquidity: result.Params.Liquidity.String(),
		InitPrice: result.Params.PoolInitPrice.String(),
		MinTick:   result.Params.MinTick,
		MaxTick:   result.Params.MaxTick,
	})
}
