package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"yeetbank/pkg/logger"
)

const (
	defaultBaseURL             = "http://localhost:8000/api"
	defaultTimeout             = 15 * time.Second
	defaultMaxBodySize         = 8 * 1024 * 1024 // 8 MiB, photos included
	defaultMessagePollInterval = time.Second
	defaultTypingPollInterval  = time.Second
	defaultTypingIdle          = 2 * time.Second
	defaultDashboardRefresh    = 30 * time.Second
	defaultRedirectDelay       = 2500 * time.Millisecond
	defaultServerPort          = 8000
	defaultRateRPS             = 5
	defaultRateBurst           = 10
	defaultServerReadTimeout   = 10 * time.Second
	defaultServerWriteTimeout  = 10 * time.Second
)

var (
	defaultExternalFee = decimal.RequireFromString("1.00")
	defaultWireFee     = decimal.RequireFromString("15.00")
)

// DefaultConfigPath is ~/.config/yeetbank/config.yaml, falling back to the
// working directory when the home directory cannot be resolved.
func DefaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "yeetbank", "config.yaml")
	}
	return "config.yaml"
}

// DefaultStateDir is where the client keeps its pebble store.
func DefaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "yeetbank", "state")
	}
	return ".yeetbank"
}

// Addr returns the demo server address as host:port.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	port := c.Server.Port
	if port == 0 {
		port = defaultServerPort
	}
	return fmt.Sprintf("%s:%d", addr, port)
}

// LoadConfigFile reads and parses a config file.
func LoadConfigFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Load builds the effective configuration: file, then YEETBANK_* env
// overrides, then defaults. A missing file is only an error when the path was
// given explicitly.
func Load(path string, explicit bool) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	cfg, err := LoadConfigFile(path)
	switch {
	case err == nil:
		logger.Debug("config_loaded", "path", path)
	case os.IsNotExist(err) && !explicit:
		cfg = &Config{}
	case os.IsNotExist(err):
		return nil, fmt.Errorf("config file not found: %s", path)
	default:
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills every zero value with its default.
func ApplyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.API.BaseURL) == "" {
		cfg.API.BaseURL = defaultBaseURL
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	if cfg.API.Timeout <= 0 {
		cfg.API.Timeout = Duration(defaultTimeout)
	}
	if cfg.API.MaxBodySize <= 0 {
		cfg.API.MaxBodySize = SizeBytes(defaultMaxBodySize)
	}
	if cfg.State.Dir == "" {
		cfg.State.Dir = DefaultStateDir()
	}
	if cfg.Chat.MessagePollInterval <= 0 {
		cfg.Chat.MessagePollInterval = Duration(defaultMessagePollInterval)
	}
	if cfg.Chat.TypingPollInterval <= 0 {
		cfg.Chat.TypingPollInterval = Duration(defaultTypingPollInterval)
	}
	if cfg.Chat.TypingIdle <= 0 {
		cfg.Chat.TypingIdle = Duration(defaultTypingIdle)
	}
	if cfg.Dashboard.RefreshInterval <= 0 {
		cfg.Dashboard.RefreshInterval = Duration(defaultDashboardRefresh)
	}
	if cfg.Transfer.RedirectDelay <= 0 {
		cfg.Transfer.RedirectDelay = Duration(defaultRedirectDelay)
	}
	if !cfg.Transfer.ExternalFee.IsSet() {
		cfg.Transfer.ExternalFee = NewMoney(defaultExternalFee)
	}
	if !cfg.Transfer.WireFee.IsSet() {
		cfg.Transfer.WireFee = NewMoney(defaultWireFee)
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultServerPort
	}
	if cfg.Server.RateLimit.RPS <= 0 {
		cfg.Server.RateLimit.RPS = defaultRateRPS
	}
	if cfg.Server.RateLimit.Burst <= 0 {
		cfg.Server.RateLimit.Burst = defaultRateBurst
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = Duration(defaultServerReadTimeout)
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = Duration(defaultServerWriteTimeout)
	}
}

// Default returns a fully defaulted config, as if no file or env were present.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ValidateConfig fails fast on values the client cannot work with.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if !strings.HasPrefix(cfg.API.BaseURL, "http://") && !strings.HasPrefix(cfg.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must be an http(s) URL: %q", cfg.API.BaseURL)
	}
	if cfg.Transfer.ExternalFee.IsNegative() {
		return fmt.Errorf("transfer.external_fee must not be negative")
	}
	if cfg.Transfer.WireFee.IsNegative() {
		return fmt.Errorf("transfer.wire_fee must not be negative")
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", cfg.Server.Port)
	}
	return nil
}
