// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

type Config struct {
	RPCList      []string `mapstructure:"rpc_list"`
	WebSocketURL string   `mapstructure:"websocket_url"`
	RelayURL     string   `mapstructure:"relay_url"`
	BackendURL   string   `mapstructure:"backend_url"`
	UploadURL    string   `mapstructure:"upload_url"`
	WalletKey    string   `mapstructure:"wallet_key"`
	MonitorDelay int      `mapstructure:"monitor_delay"`
	PollInterval int      `mapstructure:"poll_interval"`
	MaxWait      int      `mapstructure:"max_wait"`
	Retries      int      `mapstructure:"retries"`
	DebugLogging bool     `mapstructure:"debug_logging"`
	LogFile      string   `mapstructure:"log_file"`
}

const (
	DefaultMonitorDelay = 1000
	DefaultPollInterval = 2000
	DefaultMaxWait      = 120000
	DefaultRetries      = 3
	DefaultLogFile      = "launcher.log"
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"monitor_delay": DefaultMonitorDelay,
		"poll_interval": DefaultPollInterval,
		"max_wait":      DefaultMaxWait,
		"retries":       DefaultRetries,
		"log_file":      DefaultLogFile,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return errors.New("invalid RPC URL protocol")
		}
	}
	if cfg.WebSocketURL != "" {
		if err := validateURLWithCache(cfg.WebSocketURL, "ws"); err != nil {
			return errors.New("invalid WebSocket URL protocol")
		}
	}
	if cfg.RelayURL == "" {
		return errors.New("missing relay_url in configuration")
	}
	if err := validateURLWithCache(cfg.RelayURL, "http"); err != nil {
		return errors.New("invalid relay URL protocol")
	}
	if cfg.BackendURL != "" {
		if err := validateURLWithCache(cfg.BackendURL, "http"); err != nil {
			return errors.New("invalid backend URL protocol")
		}
	}
	if cfg.UploadURL != "" {
		if err := validateURLWithCache(cfg.UploadURL, "http"); err != nil {
			return errors.New("invalid upload URL protocol")
		}
	}
	if cfg.WalletKey == "" {
		return errors.New("missing wallet_key in configuration")
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.MonitorDelay <= 0 {
		return errors.New("invalid monitor_delay")
	}
	if cfg.PollInterval <= 0 {
		return errors.New("invalid poll_interval")
	}
	if cfg.MaxWait < cfg.PollInterval {
		return errors.New("max_wait must cover at least one poll_interval")
	}
	if cfg.Retries < 0 {
		return errors.New("invalid retries count")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("LAUNCH_BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envWalletKey := v.GetString("WALLET_KEY")
	if envWalletKey != "" {
		cfg.WalletKey = envWalletKey
	}

	envRPCList := v.GetString("RPC_LIST")
	if envRPCList != "" {
		rpcs := strings.Split(envRPCList, ",")
		var cleanRPCs []string
		for _, rpc := range rpcs {
			clean := strings.TrimSpace(rpc)
			if clean != "" {
				cleanRPCs = append(cleanRPCs, clean)
			}
		}
		if len(cleanRPCs) > 0 {
			cfg.RPCList = cleanRPCs
		}
	}
	return nil
}
