package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ApplyEnv overlays YEETBANK_* environment variables onto cfg. Unset
// variables leave the file value untouched.
func ApplyEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(os.Getenv("YEETBANK_" + name)); v != "" {
			*dst = v
		}
	}
	dur := func(name string, dst *Duration) error {
		v := strings.TrimSpace(os.Getenv("YEETBANK_" + name))
		if v == "" {
			return nil
		}
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("YEETBANK_%s: %w", name, err)
		}
		*dst = d
		return nil
	}
	money := func(name string, dst *Money) error {
		v := strings.TrimSpace(os.Getenv("YEETBANK_" + name))
		if v == "" {
			return nil
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("YEETBANK_%s: %w", name, err)
		}
		*dst = NewMoney(d)
		return nil
	}

	str("API_BASE_URL", &cfg.API.BaseURL)
	str("STATE_DIR", &cfg.State.Dir)
	str("LOG_LEVEL", &cfg.Logging.Level)
	str("METRICS_ADDR", &cfg.Metrics.Addr)
	str("SERVER_ADDRESS", &cfg.Server.Address)
	str("DEMO_ACCOUNTS_FILE", &cfg.Demo.AccountsFile)

	if v := strings.TrimSpace(os.Getenv("YEETBANK_API_MAX_BODY_SIZE")); v != "" {
		s, err := parseSize(v)
		if err != nil {
			return fmt.Errorf("YEETBANK_API_MAX_BODY_SIZE: %w", err)
		}
		cfg.API.MaxBodySize = s
	}
	if v := strings.TrimSpace(os.Getenv("YEETBANK_SERVER_PORT")); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("YEETBANK_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = p
	}
	if v := strings.TrimSpace(os.Getenv("YEETBANK_RATE_RPS")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("YEETBANK_RATE_RPS: %w", err)
		}
		cfg.Server.RateLimit.RPS = f
	}
	if v := strings.TrimSpace(os.Getenv("YEETBANK_RATE_BURST")); v != "" {
		b, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("YEETBANK_RATE_BURST: %w", err)
		}
		cfg.Server.RateLimit.Burst = b
	}

	durations := []struct {
		name string
		dst  *Duration
	}{
		{"API_TIMEOUT", &cfg.API.Timeout},
		{"CHAT_MESSAGE_POLL_INTERVAL", &cfg.Chat.MessagePollInterval},
		{"CHAT_TYPING_POLL_INTERVAL", &cfg.Chat.TypingPollInterval},
		{"CHAT_TYPING_IDLE", &cfg.Chat.TypingIdle},
		{"DASHBOARD_REFRESH_INTERVAL", &cfg.Dashboard.RefreshInterval},
		{"TRANSFER_REDIRECT_DELAY", &cfg.Transfer.RedirectDelay},
	}
	for _, d := range durations {
		if err := dur(d.name, d.dst); err != nil {
			return err
		}
	}
	if err := money("TRANSFER_EXTERNAL_FEE", &cfg.Transfer.ExternalFee); err != nil {
		return err
	}
	return money("TRANSFER_WIRE_FEE", &cfg.Transfer.WireFee)
}
