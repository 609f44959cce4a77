// Package relay submits signed transaction bundles to a block-engine relay
// and waits for them to land. A bundle is atomic: either every transaction
// executes in order or none do, so submission is never retried.
package relay

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// ErrBundleTimeout is returned when the confirmation budget elapses. It is
// distinct from submission failure: the bundle may still land after the
// client stops waiting, so callers must report it as unconfirmed, not
// failed.
var ErrBundleTimeout = errors.New("bundle unconfirmed within the wait budget")

// Options bound how long the submitter waits for a bundle to confirm.
type Options struct {
	PollInterval time.Duration
	MaxWait      time.Duration
}

func DefaultOptions() Options {
	return Options{
		PollInterval: 2 * time.Second,
		MaxWait:      120 * time.Second,
	}
}

// Client talks JSON-RPC to the relay. The HTTP transport is injected so
// tests can substitute a fake.
type Client struct {
	url    string
	http   *http.Client
	opts   Options
	logger *zap.Logger
}

func NewClient(url string, httpClient *http.Client, opts Options, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultOptions().PollInterval
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = DefaultOptions().MaxWait
	}
	return &Client{
		url:    url,
		http:   httpClient,
		opts:   opts,
		logger: logger.Named("relay"),
	}
}

// SubmitBundle serializes the signed transactions, base64-encodes them and
// submits them as one atomic bundle. Returns the relay-assigned bundle id.
func (c *Client) SubmitBundle(ctx context.Context, txs []*solana.Transaction) (string, error) {
	if len(txs) == 0 {
		return "", errors.New("empty bundle")
	}

	encoded := make([]string, len(txs))
	for i, tx := range txs {
		raw, err := tx.MarshalBinary()
		if err != nil {
			return "", fmt.Errorf("serialize transaction %d: %w", i, err)
		}
		encoded[i] = base64.StdEncoding.EncodeToString(raw)
	}

	body, err := c.call(ctx, "sendBundle", []interface{}{
		encoded,
		map[string]string{"encoding": "base64"},
	})
	if err != nil {
		return "", fmt.Errorf("send bundle: %w", err)
	}

	bundleID := gjson.GetBytes(body, "result").String()
	if bundleID == "" {
		return "", fmt.Errorf("relay returned no bundle id: %s", body)
	}

	c.logger.Info("bundle submitted",
		zap.String("bundle_id", bundleID),
		zap.Int("transactions", len(txs)))
	return bundleID, nil
}

// AwaitConfirmation polls the relay until the bundle confirms or the wait
// budget elapses. The budget is a hard deadline. Transient status-query
// failures are tolerated inside the budget; only time ends the wait.
func (c *Client) AwaitConfirmation(ctx context.Context, bundleID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.MaxWait)
	defer cancel()

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				c.logger.Warn("bundle confirmation window elapsed", zap.String("bundle_id", bundleID))
				return ErrBundleTimeout
			}
			return ctx.Err()
		case <-ticker.C:
			status, err := c.bundleStatus(ctx, bundleID)
			if err != nil {
				// Read-only poll: transient failures just wait for the
				// next tick.
				c.logger.Debug("bundle status query failed", zap.String("bundle_id", bundleID), zap.Error(err))
				continue
			}
			if status == "confirmed" || status == "finalized" {
				c.logger.Info("bundle confirmed",
					zap.String("bundle_id", bundleID),
					zap.String("status", status))
				return nil
			}
		}
	}
}

func (c *Client) bundleStatus(ctx context.Context, bundleID string) (string, error) {
	body, err := c.call(ctx, "getBundleStatuses", []interface{}{[]string{bundleID}})
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(body, "result.value.0.confirmation_status").String(), nil
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

func (c *Client) call(ctx context.Context, method string, params []interface{}) ([]byte, error) {
	payload, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("relay returned %d: %s", resp.StatusCode, body)
	}
	if rpcErr := gjson.GetBytes(body, "error.message"); rpcErr.Exists() {
		return nil, fmt.Errorf("relay error: %s", rpcErr.String())
	}
	return body, nil
}
