package token

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func u8(v uint8) *uint8 { return &v }

func TestMerge_PrecedenceIsFixed(t *testing.T) {
	mint := solana.NewWallet().PublicKey()

	// Fallback listed first must still lose to registry and chain.
	meta := Merge(mint,
		Partial{Source: SourceFallback, Name: "Fallback Coin", Symbol: "FBK", Decimals: u8(2)},
		Partial{Source: SourceRegistry, Name: "Registry Coin", Symbol: "RGC"},
		Partial{Source: SourceChain, Decimals: u8(6)},
	)

	assert.Equal(t, "Registry Coin", meta.Name)
	assert.Equal(t, SourceRegistry, meta.NameSource)
	assert.Equal(t, uint8(6), meta.Decimals)
	assert.Equal(t, SourceChain, meta.DecimalsSource)
}

func TestMerge_LowerSourceFillsGaps(t *testing.T) {
	mint := solana.NewWallet().PublicKey()

	meta := Merge(mint,
		Partial{Source: SourceChain, Decimals: u8(9)},
		Partial{Source: SourceFallback, Name: "Wrapped SOL", Symbol: "wSOL", URI: "https://example/wsol.json"},
	)

	assert.Equal(t, uint8(9), meta.Decimals)
	assert.Equal(t, SourceChain, meta.DecimalsSource)
	assert.Equal(t, "Wrapped SOL", meta.Name)
	assert.Equal(t, SourceFallback, meta.NameSource)
	assert.Equal(t, SourceFallback, meta.URISource)
}

func TestMerge_UntouchedFieldsHaveNoSource(t *testing.T) {
	meta := Merge(solana.NewWallet().PublicKey(),
		Partial{Source: SourceChain, Decimals: u8(0)})

	assert.Equal(t, SourceChain, meta.DecimalsSource, "explicit zero decimals still counts as supplied")
	assert.Empty(t, meta.NameSource)
	assert.Empty(t, meta.Symbol)
}

type stubChain struct {
	decimals uint8
	err      error
	calls    int
}

func (s *stubChain) GetMintDecimals(context.Context, solana.PublicKey) (uint8, error) {
	s.calls++
	return s.decimals, s.err
}

type stubRegistry struct {
	partial Partial
	err     error
}

func (s *stubRegistry) Lookup(context.Context, solana.PublicKey) (Partial, error) {
	return s.partial, s.err
}

func TestResolver_DegradesWhenSourcesFail(t *testing.T) {
	chain := &stubChain{err: errors.New("rpc down")}
	reg := &stubRegistry{err: errors.New("backend down")}
	r := NewResolver(chain, reg, zap.NewNop())

	meta, err := r.Resolve(context.Background(), solana.NewWallet().PublicKey(),
		Partial{Symbol: "FBK"})
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, meta.SymbolSource)
}

func TestResolver_ErrorsWhenNothingAnswers(t *testing.T) {
	chain := &stubChain{err: errors.New("rpc down")}
	reg := &stubRegistry{err: errors.New("backend down")}
	r := NewResolver(chain, reg, zap.NewNop())

	_, err := r.Resolve(context.Background(), solana.NewWallet().PublicKey(), Partial{})
	assert.Error(t, err)
}

func TestResolver_CachesWithinTTL(t *testing.T) {
	chain := &stubChain{decimals: 6}
	reg := &stubRegistry{partial: Partial{Name: "Cached", Symbol: "CCH"}}
	r := NewResolver(chain, reg, zap.NewNop())
	mint := solana.NewWallet().PublicKey()

	first, err := r.Resolve(context.Background(), mint, Partial{})
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), mint, Partial{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, chain.calls, "second resolve must hit the cache")
}
