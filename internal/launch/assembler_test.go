package launch

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testAssembleInput(t *testing.T) AssembleInput {
	t.Helper()

	market := testMarket()
	params, err := DeriveLaunchParameters(market, testBaseMint(), nil)
	require.NoError(t, err)

	return AssembleInput{
		Market: market,
		Params: params,
		Fees: TokenFeeParams{
			TaxEnabled:           true,
			TransferFeeBps:       400,
			DistributeFeeBps:     250,
			BurnFeeBps:           150,
			DistributionInterval: 900,
		},
		Metadata:             TokenMetadataArgs{Name: "Example", Symbol: "EXA", URI: "https://arweave.net/abc"},
		Creator:              solana.NewWallet().PublicKey(),
		PositionNFTMint:      solana.NewWallet().PublicKey(),
		QuoteTokenProgram:    solana.TokenProgramID,
		Blockhash:            solana.Hash{1, 2, 3},
		LastValidBlockHeight: 4242,
		MintRentLamports:     2_000_000,
		TipLamports:          1_000_000,
	}
}

func TestAssemble_FiveOrderedTransactions(t *testing.T) {
	a := NewAssembler(zap.NewNop())

	txs, err := a.Assemble(testAssembleInput(t))
	require.NoError(t, err)

	ordered := txs.Ordered()
	require.Len(t, ordered, 5)
	assert.Same(t, txs.Mint, ordered[0])
	assert.Same(t, txs.Pool, ordered[1])
	assert.Same(t, txs.Deposit, ordered[2])
	assert.Same(t, txs.Lock, ordered[3])
	assert.Same(t, txs.Tip, ordered[4])
	assert.Equal(t, uint64(4242), txs.LastValidBlockHeight)

	// Every transaction in the bundle shares the one captured blockhash.
	for i, tx := range ordered {
		require.NotNil(t, tx, "transaction %d missing", i)
		assert.Equal(t, solana.Hash{1, 2, 3}, tx.Message.RecentBlockhash, "transaction %d blockhash", i)
	}
}

func TestAssemble_InvalidMintOrdering(t *testing.T) {
	a := NewAssembler(zap.NewNop())

	in := testAssembleInput(t)
	// Swap the pair: the base mint now sorts after the quote mint.
	in.Params.BaseMint, in.Params.QuoteMint = in.Params.QuoteMint, in.Params.BaseMint

	txs, err := a.Assemble(in)
	assert.ErrorIs(t, err, ErrInvalidMintOrdering)
	assert.Nil(t, txs, "no transactions may be produced on a failed precondition")
}

func TestAssemble_TokenProgramMismatch(t *testing.T) {
	a := NewAssembler(zap.NewNop())

	in := testAssembleInput(t)
	in.QuoteTokenProgram = solana.SystemProgramID

	_, err := a.Assemble(in)
	assert.ErrorIs(t, err, ErrTokenProgramMismatch)

	in = testAssembleInput(t)
	in.Fees.NonNativeReward = true
	in.Fees.RewardMint = solana.NewWallet().PublicKey()
	in.RewardTokenProgram = solana.SystemProgramID

	_, err = a.Assemble(in)
	assert.ErrorIs(t, err, ErrTokenProgramMismatch)
}

func TestAssemble_FeeValidationBlocksAssembly(t *testing.T) {
	a := NewAssembler(zap.NewNop())

	in := testAssembleInput(t)
	in.Fees.BurnFeeBps = 999

	_, err := a.Assemble(in)
	assert.ErrorIs(t, err, ErrFeeSplitMismatch)
}

func TestDeriveAddresses_Deterministic(t *testing.T) {
	ammConfig := DeriveAmmConfigAddress(0)
	base := testBaseMint()
	quote := solana.SolMint

	pool1 := DerivePoolAddress(ammConfig, base, quote)
	pool2 := DerivePoolAddress(ammConfig, base, quote)
	assert.Equal(t, pool1, pool2, "pool derivation must be reproducible")

	vaultBase := DerivePoolVaultAddress(pool1, base)
	vaultQuote := DerivePoolVaultAddress(pool1, quote)
	assert.NotEqual(t, vaultBase, vaultQuote)
	assert.False(t, DeriveObservationAddress(pool1).IsZero())
	assert.False(t, DeriveLockAuthority().IsZero())
}

func TestTickArrayStartIndex(t *testing.T) {
	cases := []struct {
		tick, spacing, want int32
	}{
		{0, 120, 0},
		{7201, 120, 7200},
		{-1, 120, -7200},
		{-7200, 120, -7200},
		{-7201, 120, -14400},
		{119, 1, 60},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TickArrayStartIndex(tc.tick, tc.spacing), "tick=%d spacing=%d", tc.tick, tc.spacing)
	}
}
