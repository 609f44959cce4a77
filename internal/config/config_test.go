package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validConfig = `{
	"rpc_list": ["https://api.mainnet-beta.solana.com"],
	"relay_url": "https://relay.example.com/api/v1",
	"backend_url": "https://backend.example.com",
	"upload_url": "https://upload.example.com",
	"wallet_key": "4fake-base58-key"
}`

func TestLoadConfig_DefaultsApplied(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, DefaultMaxWait, cfg.MaxWait)
	assert.Equal(t, DefaultMonitorDelay, cfg.MonitorDelay)
	assert.Equal(t, DefaultLogFile, cfg.LogFile)
}

func TestLoadConfig_MissingRelayURL(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `{
		"rpc_list": ["https://api.mainnet-beta.solana.com"],
		"wallet_key": "4fake-base58-key"
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay_url")
}

func TestLoadConfig_EmptyRPCList(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `{
		"rpc_list": [],
		"relay_url": "https://relay.example.com",
		"wallet_key": "4fake-base58-key"
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rpc_list")
}

func TestLoadConfig_RejectsNonHTTPRPC(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `{
		"rpc_list": ["ftp://nodes.example.com"],
		"relay_url": "https://relay.example.com",
		"wallet_key": "4fake-base58-key"
	}`))
	assert.Error(t, err)
}

func TestLoadConfig_MaxWaitMustCoverOnePoll(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `{
		"rpc_list": ["https://api.mainnet-beta.solana.com"],
		"relay_url": "https://relay.example.com",
		"wallet_key": "4fake-base58-key",
		"poll_interval": 2000,
		"max_wait": 500
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_wait")
}

func TestLoadConfig_EnvOverridesRPCList(t *testing.T) {
	t.Setenv("LAUNCH_BOT_RPC_LIST", "https://a.example.com, https://b.example.com")

	cfg, err := LoadConfig(writeConfig(t, validConfig))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.RPCList)
}

func TestLoadConfig_EnvOverridesWalletKey(t *testing.T) {
	t.Setenv("LAUNCH_BOT_WALLET_KEY", "env-key")

	cfg, err := LoadConfig(writeConfig(t, validConfig))
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.WalletKey)
}
