// Package chain wraps the Solana RPC surface the pipeline needs behind an
// explicitly constructed client handle. No package-level singletons: every
// caller receives the handle it should use, and tests substitute a fake.
package chain

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

const (
	maxRetries = 3

	// nodeCooldown is how long a failed node sits out before it is
	// offered traffic again. One transient 429 must not retire a node
	// for the life of the process.
	nodeCooldown = 30 * time.Second
)

// Blockhash is a recent blockhash together with the last block height the
// relay will accept it at.
type Blockhash struct {
	Hash                 solana.Hash
	LastValidBlockHeight uint64
}

type rpcNode struct {
	client *rpc.Client
	url    string

	mu       sync.RWMutex
	active   bool
	failedAt time.Time
}

// usable reports whether the node may take traffic, reactivating it once
// its cooldown has elapsed.
func (n *rpcNode) usable() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.active {
		return true
	}
	if time.Since(n.failedAt) >= nodeCooldown {
		n.active = true
		return true
	}
	return false
}

func (n *rpcNode) markFailed() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.active = false
	n.failedAt = time.Now()
}

func (n *rpcNode) reactivate() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.active = true
}

// Client fans RPC calls out over one or more nodes, round-robin, flagging
// nodes that fail and retrying on the next one.
type Client struct {
	nodes  []*rpcNode
	logger *zap.Logger

	mu        sync.Mutex
	currIndex int
}

func NewClient(rpcURLs []string, logger *zap.Logger) (*Client, error) {
	if len(rpcURLs) == 0 {
		return nil, errors.New("empty RPC URL list")
	}

	var nodes []*rpcNode
	for _, raw := range rpcURLs {
		if _, err := url.Parse(raw); err != nil {
			logger.Warn("invalid RPC URL", zap.String("url", raw), zap.Error(err))
			continue
		}
		nodes = append(nodes, &rpcNode{client: rpc.New(raw), url: raw, active: true})
	}
	if len(nodes) == 0 {
		return nil, errors.New("no valid RPC URLs provided")
	}

	return &Client{nodes: nodes, logger: logger.Named("chain")}, nil
}

func (c *Client) nextNode() *rpcNode {
	c.mu.Lock()
	defer c.mu.Unlock()

	for range c.nodes {
		c.currIndex = (c.currIndex + 1) % len(c.nodes)
		if c.nodes[c.currIndex].usable() {
			return c.nodes[c.currIndex]
		}
	}

	// Every node is inside its cooldown. Reactivate the whole pool and
	// hand out the next in order: a stale failure flag must never leave
	// the pool unable to serve at all.
	c.logger.Debug("all RPC nodes flagged, reactivating pool")
	for _, node := range c.nodes {
		node.reactivate()
	}
	c.currIndex = (c.currIndex + 1) % len(c.nodes)
	return c.nodes[c.currIndex]
}

func (c *Client) withNode(fn func(node *rpcNode) error) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		node := c.nextNode()
		start := time.Now()
		if err := fn(node); err != nil {
			lastErr = err
			node.markFailed()
			c.logger.Debug("RPC call failed, rotating node",
				zap.String("url", node.url),
				zap.Duration("latency", time.Since(start)),
				zap.Error(err))
			continue
		}
		return nil
	}
	return fmt.Errorf("rpc failed after %d attempts: %w", maxRetries, lastErr)
}

// GetLatestBlockhash returns the blockhash stamped into every transaction
// of a bundle, captured once immediately before signing.
func (c *Client) GetLatestBlockhash(ctx context.Context) (Blockhash, error) {
	var out Blockhash
	err := c.withNode(func(node *rpcNode) error {
		result, err := node.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
		if err != nil {
			return err
		}
		out = Blockhash{
			Hash:                 result.Value.Blockhash,
			LastValidBlockHeight: result.Value.LastValidBlockHeight,
		}
		return nil
	})
	return out, err
}

func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	var out *rpc.GetAccountInfoResult
	err := c.withNode(func(node *rpcNode) error {
		result, err := node.client.GetAccountInfoWithOpts(ctx, pubkey, &rpc.GetAccountInfoOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: rpc.CommitmentConfirmed,
		})
		if err != nil {
			return err
		}
		out = result
		return nil
	})
	return out, err
}

func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	var out uint64
	err := c.withNode(func(node *rpcNode) error {
		result, err := node.client.GetBalance(ctx, pubkey, rpc.CommitmentConfirmed)
		if err != nil {
			return err
		}
		out = result.Value
		return nil
	})
	return out, err
}

func (c *Client) GetMinimumBalanceForRentExemption(ctx context.Context, space uint64) (uint64, error) {
	var out uint64
	err := c.withNode(func(node *rpcNode) error {
		lamports, err := node.client.GetMinimumBalanceForRentExemption(ctx, space, rpc.CommitmentFinalized)
		if err != nil {
			return err
		}
		out = lamports
		return nil
	})
	return out, err
}

// ResolveTokenProgram returns the program owning a mint account. The
// assembler only accepts the two token programs; anything else is surfaced
// to it for rejection.
func (c *Client) ResolveTokenProgram(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, error) {
	info, err := c.GetAccountInfo(ctx, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("resolve token program for %s: %w", mint, err)
	}
	if info == nil || info.Value == nil {
		return solana.PublicKey{}, fmt.Errorf("mint account %s not found", mint)
	}
	return info.Value.Owner, nil
}

// GetMintDecimals reads the decimals byte straight out of the mint
// account. The field sits at the same offset for both token programs.
func (c *Client) GetMintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	info, err := c.GetAccountInfo(ctx, mint)
	if err != nil {
		return 0, err
	}
	if info == nil || info.Value == nil {
		return 0, fmt.Errorf("mint account %s not found", mint)
	}
	data := info.Value.Data.GetBinary()
	if len(data) < 45 {
		return 0, fmt.Errorf("mint account %s data too short: %d bytes", mint, len(data))
	}
	return data[44], nil
}

// GetTokenBalance reads the raw balance of an SPL token account, decoding
// the account data directly.
func (c *Client) GetTokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	info, err := c.GetAccountInfo(ctx, account)
	if err != nil {
		return 0, err
	}
	if info == nil || info.Value == nil {
		return 0, nil
	}

	data := info.Value.Data.GetBinary()
	var tokenAccount struct {
		Mint   solana.PublicKey
		Owner  solana.PublicKey
		Amount uint64
	}
	if err := bin.NewBinDecoder(data).Decode(&tokenAccount); err != nil {
		return 0, fmt.Errorf("decode token account %s: %w", account, err)
	}
	return tokenAccount.Amount, nil
}
