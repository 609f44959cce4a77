// Package registry records launched tokens and pools with the backend
// index. The chain is the source of truth; registration failure is logged
// by callers and never fails a deployment.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrNotFound is returned when the backend has no record for a mint.
var ErrNotFound = errors.New("registry: record not found")

// TokenRecord is the payload for POST /tokens.
type TokenRecord struct {
	Mint                 string `json:"mint"`
	Name                 string `json:"name"`
	Symbol               string `json:"symbol"`
	URI                  string `json:"uri"`
	Creator              string `json:"creator"`
	TransferFeeBps       uint16 `json:"transferFeeBps"`
	DistributeFeeBps     uint16 `json:"distributeFeeBps"`
	BurnFeeBps           uint16 `json:"burnFeeBps"`
	RewardMint           string `json:"rewardMint,omitempty"`
	DistributionInterval uint32 `json:"distributionInterval,omitempty"`
}

// PoolRecord is the payload for POST /pools.
type PoolRecord struct {
	Pool      string `json:"pool"`
	BaseMint  string `json:"baseMint"`
	QuoteMint string `json:"quoteMint"`
	Liquidity string `json:"liquidity"`
	InitPrice string `json:"initPrice"`
	MinTick   int32  `json:"minTick"`
	MaxTick   int32  `json:"maxTick"`
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: baseURL, http: httpClient, logger: logger.Named("registry")}
}

func (c *Client) RegisterToken(ctx context.Context, record TokenRecord) error {
	return c.post(ctx, "/tokens", record)
}

func (c *Client) RegisterPool(ctx context.Context, record PoolRecord) error {
	return c.post(ctx, "/pools", record)
}

// GetToken looks up a previously registered token. A 404 is reported as
// ErrNotFound so callers can fall through to other metadata sources.
func (c *Client) GetToken(ctx context.Context, mint string) (*TokenRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tokens/"+mint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry token lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("registry token lookup returned %d", resp.StatusCode)
	}

	var record TokenRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("decode token record: %w", err)
	}
	return &record, nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("registry %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("registry %s returned %d", path, resp.StatusCode)
	}

	c.logger.Debug("registry record stored", zap.String("path", path))
	return nil
}
