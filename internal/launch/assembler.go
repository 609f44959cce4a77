package launch

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"go.uber.org/zap"
)

var (
	// ErrInvalidMintOrdering is returned when the base mint does not sort
	// byte-wise before the quote mint. The pool program derives addresses
	// from the sorted pair, so this is a hard precondition of assembly.
	ErrInvalidMintOrdering = errors.New("base mint must sort before quote mint")
	// ErrTokenProgramMismatch is returned when a mint is owned by neither
	// of the two accepted token programs.
	ErrTokenProgramMismatch = errors.New("mint is not owned by an accepted token program")
)

// TokenMetadataArgs is the on-chain metadata written for the launched mint.
type TokenMetadataArgs struct {
	Name   string
	Symbol string
	URI    string
}

// AssembleInput carries everything assembly needs. All chain state (rent,
// blockhash, resolved token programs) is fetched by the caller beforehand;
// assembly itself performs no I/O.
type AssembleInput struct {
	Market   MarketConfig
	Params   *LaunchParameters
	Fees     TokenFeeParams
	Metadata TokenMetadataArgs

	Creator         solana.PublicKey
	PositionNFTMint solana.PublicKey

	QuoteTokenProgram  solana.PublicKey
	RewardTokenProgram solana.PublicKey

	Blockhash            solana.Hash
	LastValidBlockHeight uint64

	MintRentLamports uint64
	AmmConfigIndex   uint16
	OpenTime         uint64

	TipLamports uint64
	TipAccount  solana.PublicKey
}

// LaunchTransactions is the ordered set of unsigned transactions making up
// one launch bundle. The five roles are named so callers cannot reorder
// them by accident; Ordered is the only way to get the submission sequence.
type LaunchTransactions struct {
	Mint    *solana.Transaction
	Pool    *solana.Transaction
	Deposit *solana.Transaction
	Lock    *solana.Transaction
	Tip     *solana.Transaction

	LastValidBlockHeight uint64
}

// Ordered returns the transactions in the only valid execution order: each
// one depends on state the previous one creates.
func (lt *LaunchTransactions) Ordered() []*solana.Transaction {
	return []*solana.Transaction{lt.Mint, lt.Pool, lt.Deposit, lt.Lock, lt.Tip}
}

// Assembler builds the dependent instruction set for a launch. Pure
// construction: it does not sign and does not submit.
type Assembler struct {
	logger *zap.Logger
}

func NewAssembler(logger *zap.Logger) *Assembler {
	return &Assembler{logger: logger.Named("assembler")}
}

// Assemble derives every address deterministically from the input keys and
// produces the five-transaction launch set sharing one blockhash.
func (a *Assembler) Assemble(in AssembleInput) (*LaunchTransactions, error) {
	p := in.Params

	if bytes.Compare(p.BaseMint.Bytes(), p.QuoteMint.Bytes()) >= 0 {
		return nil, ErrInvalidMintOrdering
	}
	if err := in.Fees.Validate(); err != nil {
		return nil, err
	}
	if !acceptedTokenProgram(in.QuoteTokenProgram) {
		return nil, fmt.Errorf("quote mint %s: %w", p.QuoteMint, ErrTokenProgramMismatch)
	}
	if in.Fees.NonNativeReward && !acceptedTokenProgram(in.RewardTokenProgram) {
		return nil, fmt.Errorf("reward mint %s: %w", in.Fees.RewardMint, ErrTokenProgramMismatch)
	}

	ammConfig := DeriveAmmConfigAddress(in.AmmConfigIndex)
	pool := DerivePoolAddress(ammConfig, p.BaseMint, p.QuoteMint)
	baseVault := DerivePoolVaultAddress(pool, p.BaseMint)
	quoteVault := DerivePoolVaultAddress(pool, p.QuoteMint)

	creatorBaseATA, _, _ := solana.FindAssociatedTokenAddress(in.Creator, p.BaseMint)
	creatorQuoteATA, _, _ := solana.FindAssociatedTokenAddress(in.Creator, p.QuoteMint)

	mintTx, err := a.buildMintTransaction(in, creatorBaseATA)
	if err != nil {
		return nil, fmt.Errorf("mint transaction: %w", err)
	}

	createPoolIx, err := buildCreatePoolInstruction(
		in.Creator, ammConfig, pool,
		p.BaseMint, p.QuoteMint, baseVault, quoteVault,
		solana.Token2022ProgramID, in.QuoteTokenProgram,
		p.InitialSqrtPriceX64, in.OpenTime,
	)
	if err != nil {
		return nil, fmt.Errorf("create pool instruction: %w", err)
	}
	poolTx, err := a.newTransaction(in, createPoolIx)
	if err != nil {
		return nil, fmt.Errorf("pool transaction: %w", err)
	}

	depositTx, err := a.buildDepositTransaction(in, pool, baseVault, quoteVault, creatorBaseATA, creatorQuoteATA)
	if err != nil {
		return nil, fmt.Errorf("deposit transaction: %w", err)
	}

	lockTx, err := a.newTransaction(in, buildLockPositionInstruction(in.Creator, in.PositionNFTMint))
	if err != nil {
		return nil, fmt.Errorf("lock transaction: %w", err)
	}

	tipAccount := in.TipAccount
	if tipAccount.IsZero() {
		tipAccount = DefaultTipAccount
	}
	tipTx, err := a.newTransaction(in,
		system.NewTransferInstruction(in.TipLamports, in.Creator, tipAccount).Build())
	if err != nil {
		return nil, fmt.Errorf("tip transaction: %w", err)
	}

	a.logger.Debug("launch bundle assembled",
		zap.String("pool", pool.String()),
		zap.String("base_mint", p.BaseMint.String()),
		zap.Int32("initial_tick", p.InitialTick),
		zap.String("liquidity", p.Liquidity.String()))

	return &LaunchTransactions{
		Mint:                 mintTx,
		Pool:                 poolTx,
		Deposit:              depositTx,
		Lock:                 lockTx,
		Tip:                  tipTx,
		LastValidBlockHeight: in.LastValidBlockHeight,
	}, nil
}

// buildMintTransaction creates the token-2022 mint with the transfer-fee
// extension, writes metadata and mints the full supply to the creator.
func (a *Assembler) buildMintTransaction(in AssembleInput, creatorBaseATA solana.PublicKey) (*solana.Transaction, error) {
	p := in.Params

	ixs := []solana.Instruction{
		system.NewCreateAccountInstruction(
			in.MintRentLamports,
			MintAccountSpace,
			solana.Token2022ProgramID,
			in.Creator,
			p.BaseMint,
		).Build(),
	}

	if in.Fees.TaxEnabled {
		// Uncapped in practice: the per-transfer ceiling is the supply.
		ixs = append(ixs, buildInitializeTransferFeeConfigInstruction(
			p.BaseMint, in.Creator, in.Fees.TransferFeeBps, in.Market.BaseSupply))
	}

	ixs = append(ixs,
		buildInitializeMint2Instruction(p.BaseMint, in.Creator, in.Market.BaseDecimals, solana.Token2022ProgramID),
		buildCreateMetadataInstruction(p.BaseMint, in.Creator, in.Creator,
			in.Metadata.Name, in.Metadata.Symbol, in.Metadata.URI),
		buildCreateATAIdempotentInstruction(in.Creator, in.Creator, p.BaseMint, solana.Token2022ProgramID),
		buildMintToInstruction(p.BaseMint, creatorBaseATA, in.Creator, in.Market.BaseSupply, solana.Token2022ProgramID),
	)

	return a.newTransaction(in, ixs...)
}

// buildDepositTransaction wraps the quote contribution, opens the locked
// range position and unwraps any native leftover.
func (a *Assembler) buildDepositTransaction(in AssembleInput, pool, baseVault, quoteVault, creatorBaseATA, creatorQuoteATA solana.PublicKey) (*solana.Transaction, error) {
	p := in.Params

	var ixs []solana.Instruction

	wrapping := p.QuoteMint.Equals(solana.SolMint)
	if wrapping {
		ixs = append(ixs,
			buildCreateATAIdempotentInstruction(in.Creator, in.Creator, p.QuoteMint, solana.TokenProgramID),
		)
		if p.QuoteMax.Sign() > 0 {
			ixs = append(ixs,
				system.NewTransferInstruction(p.QuoteMax.Uint64(), in.Creator, creatorQuoteATA).Build(),
				buildSyncNativeInstruction(creatorQuoteATA),
			)
		}
	}

	openIx, err := buildOpenPositionInstruction(
		in.Creator, in.PositionNFTMint, pool,
		p.BaseMint, p.QuoteMint, baseVault, quoteVault,
		creatorBaseATA, creatorQuoteATA,
		p.MinTick, p.MaxTick, in.Market.TickSpacing,
		p.Liquidity,
		p.BaseMax.Uint64(), p.QuoteMax.Uint64(),
	)
	if err != nil {
		return nil, err
	}
	ixs = append(ixs, openIx)

	if wrapping {
		ixs = append(ixs, buildCloseAccountInstruction(creatorQuoteATA, in.Creator, in.Creator, solana.TokenProgramID))
	}

	return a.newTransaction(in, ixs...)
}

// newTransaction stamps the shared bundle blockhash; no transaction in the
// set may fetch its own.
func (a *Assembler) newTransaction(in AssembleInput, ixs ...solana.Instruction) (*solana.Transaction, error) {
	return solana.NewTransaction(ixs, in.Blockhash, solana.TransactionPayer(in.Creator))
}

func acceptedTokenProgram(program solana.PublicKey) bool {
	return program.Equals(solana.TokenProgramID) || program.Equals(solana.Token2022ProgramID)
}
