package launcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solaunch/launch-bot/internal/launch"
)

func writeTask(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "launch.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validTask = `{
	"name": "Example Token",
	"symbol": "EXA",
	"image_path": "logo.png",
	"quote_mint": "So11111111111111111111111111111111111111112",
	"quote_decimals": 9,
	"base_decimals": 6,
	"base_supply": 1000000000000000,
	"tick_spacing": 120,
	"start_price": "0.00000005",
	"end_price": "0.2",
	"tax_enabled": true,
	"transfer_fee_bps": 300,
	"distribute_fee_bps": 200,
	"burn_fee_bps": 100,
	"distribution_interval": 600,
	"quote_contribution_lamports": 5000000000,
	"tip_lamports": 1000000
}`

func TestLoadTaskAndConvert(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logo.png"), []byte{0x89, 0x50, 0x4e, 0x47}, 0o644))
	path := writeTask(t, dir, validTask)

	task, err := LoadTask(path)
	require.NoError(t, err)
	assert.Equal(t, "EXA", task.Symbol)

	req, err := task.ToRequest(dir)
	require.NoError(t, err)

	assert.Equal(t, "So11111111111111111111111111111111111111112", req.Market.QuoteMint.String())
	assert.Equal(t, "0.00000005", req.Market.StartPrice.String())
	assert.Equal(t, int32(120), req.Market.TickSpacing)
	assert.Equal(t, uint16(300), req.Fees.TransferFeeBps)
	require.NotNil(t, req.QuoteContribution)
	assert.Equal(t, uint64(5_000_000_000), req.QuoteContribution.Uint64())
	assert.Equal(t, []byte{0x89, 0x50, 0x4e, 0x47}, req.Image)
	assert.Equal(t, "logo.png", req.ImageName)
}

func TestToRequest_ZeroContributionStaysNil(t *testing.T) {
	dir := t.TempDir()
	task, err := LoadTask(writeTask(t, dir, `{
		"name": "N", "symbol": "S",
		"quote_mint": "So11111111111111111111111111111111111111112",
		"base_supply": 1, "tick_spacing": 1,
		"start_price": "0.1", "end_price": "0.2"
	}`))
	require.NoError(t, err)

	req, err := task.ToRequest(dir)
	require.NoError(t, err)
	assert.Nil(t, req.QuoteContribution)
	assert.Empty(t, req.Image)
}

func TestToRequest_InvalidFeeSplit(t *testing.T) {
	dir := t.TempDir()
	task, err := LoadTask(writeTask(t, dir, `{
		"name": "N", "symbol": "S",
		"quote_mint": "So11111111111111111111111111111111111111112",
		"base_supply": 1, "tick_spacing": 1,
		"start_price": "0.1", "end_price": "0.2",
		"tax_enabled": true,
		"transfer_fee_bps": 300,
		"distribute_fee_bps": 100,
		"burn_fee_bps": 100
	}`))
	require.NoError(t, err)

	_, err = task.ToRequest(dir)
	assert.ErrorIs(t, err, launch.ErrFeeSplitMismatch)
}

func TestToRequest_BadQuoteMint(t *testing.T) {
	dir := t.TempDir()
	task, err := LoadTask(writeTask(t, dir, `{
		"name": "N", "symbol": "S",
		"quote_mint": "not-a-key",
		"base_supply": 1, "tick_spacing": 1,
		"start_price": "0.1", "end_price": "0.2"
	}`))
	require.NoError(t, err)

	_, err = task.ToRequest(dir)
	assert.ErrorContains(t, err, "quote_mint")
}

func TestLoadTask_MissingFile(t *testing.T) {
	_, err := LoadTask(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
