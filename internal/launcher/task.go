package launcher

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/solaunch/launch-bot/internal/deploy"
	"github.com/solaunch/launch-bot/internal/launch"
	"github.com/solaunch/launch-bot/internal/metadata"
)

// Task is one launch described in a task file. Prices are strings so the
// file round-trips exactly; they are parsed into decimals on conversion.
type Task struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	ImagePath   string `json:"image_path"`
	Website     string `json:"website,omitempty"`
	Twitter     string `json:"twitter,omitempty"`
	Telegram    string `json:"telegram,omitempty"`

	QuoteMint     string `json:"quote_mint"`
	QuoteDecimals uint8  `json:"quote_decimals"`
	BaseDecimals  uint8  `json:"base_decimals"`
	BaseSupply    uint64 `json:"base_supply"`
	TickSpacing   int32  `json:"tick_spacing"`
	StartPrice    string `json:"start_price"`
	EndPrice      string `json:"end_price"`

	TaxEnabled           bool   `json:"tax_enabled"`
	NonNativeReward      bool   `json:"non_native_reward"`
	TransferFeeBps       uint16 `json:"transfer_fee_bps"`
	DistributeFeeBps     uint16 `json:"distribute_fee_bps"`
	BurnFeeBps           uint16 `json:"burn_fee_bps"`
	RewardMint           string `json:"reward_mint,omitempty"`
	DistributionInterval uint32 `json:"distribution_interval,omitempty"`

	QuoteContribution  uint64 `json:"quote_contribution_lamports"`
	AmmConfigIndex     uint16 `json:"amm_config_index"`
	TipLamports        uint64 `json:"tip_lamports"`
	InitialBuyLamports uint64 `json:"initial_buy_lamports"`
}

// LoadTask reads and parses one task file.
func LoadTask(path string) (*Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("parse task file: %w", err)
	}
	return &task, nil
}

// ToRequest converts the task into a deployment request, loading the
// token image from disk. Paths are resolved relative to the task file's
// directory.
func (t *Task) ToRequest(taskDir string) (deploy.Request, error) {
	var req deploy.Request

	quoteMint, err := solana.PublicKeyFromBase58(t.QuoteMint)
	if err != nil {
		return req, fmt.Errorf("invalid quote_mint: %w", err)
	}

	startPrice, err := decimal.NewFromString(t.StartPrice)
	if err != nil {
		return req, fmt.Errorf("invalid start_price: %w", err)
	}
	endPrice, err := decimal.NewFromString(t.EndPrice)
	if err != nil {
		return req, fmt.Errorf("invalid end_price: %w", err)
	}

	fees := launch.TokenFeeParams{
		TaxEnabled:           t.TaxEnabled,
		NonNativeReward:      t.NonNativeReward,
		TransferFeeBps:       t.TransferFeeBps,
		DistributeFeeBps:     t.DistributeFeeBps,
		BurnFeeBps:           t.BurnFeeBps,
		DistributionInterval: t.DistributionInterval,
	}
	if t.RewardMint != "" {
		fees.RewardMint, err = solana.PublicKeyFromBase58(t.RewardMint)
		if err != nil {
			return req, fmt.Errorf("invalid reward_mint: %w", err)
		}
	}
	if err := fees.Validate(); err != nil {
		return req, err
	}

	var image []byte
	imageName := ""
	if t.ImagePath != "" {
		imagePath := t.ImagePath
		if !filepath.IsAbs(imagePath) {
			imagePath = filepath.Join(taskDir, imagePath)
		}
		image, err = os.ReadFile(imagePath)
		if err != nil {
			return req, fmt.Errorf("read token image: %w", err)
		}
		imageName = filepath.Base(imagePath)
	}

	var contribution *big.Int
	if t.QuoteContribution > 0 {
		contribution = new(big.Int).SetUint64(t.QuoteContribution)
	}

	return deploy.Request{
		Market: launch.MarketConfig{
			QuoteMint:     quoteMint,
			QuoteDecimals: t.QuoteDecimals,
			BaseDecimals:  t.BaseDecimals,
			BaseSupply:    t.BaseSupply,
			TickSpacing:   t.TickSpacing,
			StartPrice:    startPrice,
			EndPrice:      endPrice,
		},
		Fees: fees,
		Metadata: metadata.TokenMetadata{
			Name:        t.Name,
			Symbol:      t.Symbol,
			Description: t.Description,
			Website:     t.Website,
			Twitter:     t.Twitter,
			Telegram:    t.Telegram,
		},
		Image:              image,
		ImageName:          imageName,
		QuoteContribution:  contribution,
		AmmConfigIndex:     t.AmmConfigIndex,
		TipLamports:        t.TipLamports,
		InitialBuyLamports: t.InitialBuyLamports,
	}, nil
}
