// Package token resolves display metadata for a mint from several sources
// of differing authority. On-chain account data wins over the backend
// registry, which wins over caller-supplied fallbacks; every resolved
// value carries the tag of the source it came from so downstream display
// code never has to guess.
package token

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Source identifies where a metadata value was obtained.
type Source string

const (
	SourceChain    Source = "chain"
	SourceRegistry Source = "registry"
	SourceFallback Source = "fallback"
)

// precedence orders sources from most to least authoritative.
var precedence = map[Source]int{
	SourceChain:    0,
	SourceRegistry: 1,
	SourceFallback: 2,
}

// Partial is one source's (possibly incomplete) view of a mint.
type Partial struct {
	Source   Source
	Name     string
	Symbol   string
	URI      string
	Decimals *uint8
}

// ResolvedMetadata is the merged view. Each field records which source
// supplied it; zero-valued fields were supplied by no source.
type ResolvedMetadata struct {
	Mint     solana.PublicKey
	Name     string
	Symbol   string
	URI      string
	Decimals uint8

	NameSource     Source
	SymbolSource   Source
	URISource      Source
	DecimalsSource Source
	ResolvedAt     time.Time
}

// Merge combines partial views into one ResolvedMetadata. Precedence is
// fixed (chain > registry > fallback) regardless of argument order; a
// lower-precedence source only fills fields the higher ones left empty.
func Merge(mint solana.PublicKey, partials ...Partial) ResolvedMetadata {
	ordered := make([]Partial, 0, len(partials))
	ordered = append(ordered, partials...)
	// Insertion sort keeps equal-precedence sources in argument order.
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && precedence[ordered[j].Source] < precedence[ordered[j-1].Source]; j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}

	out := ResolvedMetadata{Mint: mint, ResolvedAt: time.Now().UTC()}
	for _, p := range ordered {
		if out.NameSource == "" && p.Name != "" {
			out.Name = p.Name
			out.NameSource = p.Source
		}
		if out.SymbolSource == "" && p.Symbol != "" {
			out.Symbol = p.Symbol
			out.SymbolSource = p.Source
		}
		if out.URISource == "" && p.URI != "" {
			out.URI = p.URI
			out.URISource = p.Source
		}
		if out.DecimalsSource == "" && p.Decimals != nil {
			out.Decimals = *p.Decimals
			out.DecimalsSource = p.Source
		}
	}
	return out
}

// ChainReader reads raw mint account data.
type ChainReader interface {
	GetMintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error)
}

// RegistryReader looks up a mint in the backend index.
type RegistryReader interface {
	Lookup(ctx context.Context, mint solana.PublicKey) (Partial, error)
}

const cacheTTL = 5 * time.Minute

// Resolver merges chain and registry views with a short-lived cache.
// Source failures degrade the result instead of failing it; resolution
// only errors when no source produced anything.
type Resolver struct {
	chain    ChainReader
	registry RegistryReader
	logger   *zap.Logger
	cache    sync.Map
}

func NewResolver(chain ChainReader, registry RegistryReader, logger *zap.Logger) *Resolver {
	return &Resolver{
		chain:    chain,
		registry: registry,
		logger:   logger.Named("token"),
	}
}

// Resolve returns merged metadata for a mint. fallback may be the zero
// Partial; its Source tag is forced to SourceFallback.
func (r *Resolver) Resolve(ctx context.Context, mint solana.PublicKey, fallback Partial) (ResolvedMetadata, error) {
	key := mint.String()
	if value, ok := r.cache.Load(key); ok {
		meta := value.(ResolvedMetadata)
		if time.Since(meta.ResolvedAt) < cacheTTL {
			return meta, nil
		}
		r.cache.Delete(key)
	}

	partials := make([]Partial, 0, 3)

	if decimals, err := r.chain.GetMintDecimals(ctx, mint); err != nil {
		r.logger.Debug("mint account read failed",
			zap.String("mint", key), zap.Error(err))
	} else {
		d := decimals
		partials = append(partials, Partial{Source: SourceChain, Decimals: &d})
	}

	if r.registry != nil {
		if p, err := r.registry.Lookup(ctx, mint); err != nil {
			r.logger.Debug("registry lookup failed",
				zap.String("mint", key), zap.Error(err))
		} else {
			p.Source = SourceRegistry
			partials = append(partials, p)
		}
	}

	fallback.Source = SourceFallback
	partials = append(partials, fallback)

	meta := Merge(mint, partials...)
	if meta.SymbolSource == "" && meta.DecimalsSource == "" {
		return ResolvedMetadata{}, fmt.Errorf("no metadata source answered for %s", key)
	}

	r.cache.Store(key, meta)
	return meta, nil
}
