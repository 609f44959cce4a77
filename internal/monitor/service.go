// Package monitor keeps a periodically refreshed snapshot of wallet
// balances. It reads chain state only; it never touches deployment state,
// so a stuck RPC node can stall balance display but not a launch.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// ChainReader is the read-only chain surface the monitor polls.
type ChainReader interface {
	GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error)
	GetTokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
}

// Snapshot is one consistent view of the watched balances. Token balances
// are keyed by the token account address.
type Snapshot struct {
	Lamports  uint64
	Tokens    map[solana.PublicKey]uint64
	UpdatedAt time.Time
}

// Service polls balances on a fixed interval. Watched accounts can be
// added while the loop runs; the next tick picks them up.
type Service struct {
	chain    ChainReader
	owner    solana.PublicKey
	interval time.Duration
	logger   *zap.Logger

	mu       sync.RWMutex
	watched  []solana.PublicKey
	snapshot Snapshot
}

func New(chain ChainReader, owner solana.PublicKey, interval time.Duration, logger *zap.Logger) *Service {
	if interval <= 0 {
		interval = time.Second
	}
	return &Service{
		chain:    chain,
		owner:    owner,
		interval: interval,
		logger:   logger.Named("monitor"),
	}
}

// Watch adds a token account to the polling set. Duplicates are ignored.
func (s *Service) Watch(account solana.PublicKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.watched {
		if existing.Equals(account) {
			return
		}
	}
	s.watched = append(s.watched, account)
}

// Snapshot returns the latest refreshed view. The map is copied so
// callers can hold it across refreshes.
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.snapshot
	out.Tokens = make(map[solana.PublicKey]uint64, len(s.snapshot.Tokens))
	for k, v := range s.snapshot.Tokens {
		out.Tokens[k] = v
	}
	return out
}

// Run refreshes until the context is cancelled. It always returns
// ctx.Err(); refresh failures are logged and retried on the next tick.
func (s *Service) Run(ctx context.Context) error {
	s.refresh(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *Service) refresh(ctx context.Context) {
	lamports, err := s.chain.GetBalance(ctx, s.owner)
	if err != nil {
		s.logger.Warn("balance refresh failed", zap.Error(err))
		return
	}

	s.mu.RLock()
	accounts := make([]solana.PublicKey, len(s.watched))
	copy(accounts, s.watched)
	s.mu.RUnlock()

	tokens := make(map[solana.PublicKey]uint64, len(accounts))
	for _, account := range accounts {
		amount, err := s.chain.GetTokenBalance(ctx, account)
		if err != nil {
			s.logger.Warn("token balance refresh failed",
				zap.String("account", account.String()), zap.Error(err))
			continue
		}
		tokens[account] = amount
	}

	s.mu.Lock()
	s.snapshot = Snapshot{
		Lamports:  lamports,
		Tokens:    tokens,
		UpdatedAt: time.Now().UTC(),
	}
	s.mu.Unlock()
}
