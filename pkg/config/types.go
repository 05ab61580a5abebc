package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct. The client sections (api, state,
// chat, dashboard, transfer) drive the yeetbank CLI; server and demo drive
// the bundled demo backend.
type Config struct {
	API       APIConfig       `yaml:"api"`
	State     StateConfig     `yaml:"state"`
	Chat      ChatConfig      `yaml:"chat"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Transfer  TransferConfig  `yaml:"transfer"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Server    ServerConfig    `yaml:"server"`
	Demo      DemoConfig      `yaml:"demo"`
}

// APIConfig configures the backend transport.
type APIConfig struct {
	BaseURL     string    `yaml:"base_url"`
	Timeout     Duration  `yaml:"timeout"`
	MaxBodySize SizeBytes `yaml:"max_body_size"`
}

// StateConfig locates the durable client key/value store.
type StateConfig struct {
	Dir string `yaml:"dir"`
}

type ChatConfig struct {
	MessagePollInterval Duration `yaml:"message_poll_interval"`
	TypingPollInterval  Duration `yaml:"typing_poll_interval"`
	TypingIdle          Duration `yaml:"typing_idle"`
}

type DashboardConfig struct {
	RefreshInterval Duration `yaml:"refresh_interval"`
}

// TransferConfig holds the fee schedule and the post-success redirect delay.
type TransferConfig struct {
	RedirectDelay Duration `yaml:"redirect_delay"`
	ExternalFee   Money    `yaml:"external_fee"`
	WireFee       Money    `yaml:"wire_fee"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// MetricsConfig enables a prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// ServerConfig holds demo backend listener settings.
type ServerConfig struct {
	Address   string `yaml:"address"`
	Port      int    `yaml:"port"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
}

// DemoConfig points at an optional seed file replacing the built-in accounts.
type DemoConfig struct {
	AccountsFile string `yaml:"accounts_file"`
}

// SizeBytes represents a number of bytes, unmarshaled from human-friendly strings like "4MB" or plain integers.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*s = 0
		return nil
	}
	v, err := parseSize(node.Value)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func parseSize(raw string) (SizeBytes, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return SizeBytes(i), nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		return SizeBytes(v), nil
	}
	return 0, fmt.Errorf("invalid size value: %q", raw)
}

func (s SizeBytes) Int64() int64 { return int64(s) }

func (s SizeBytes) String() string { return humanize.IBytes(uint64(s)) }

// Duration is a wrapper around time.Duration that supports YAML parsing from strings like "100ms" or plain numbers (interpreted as seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	v, err := parseDuration(node.Value)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func parseDuration(raw string) (Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		return Duration(td), nil
	}
	// allow numeric seconds
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return Duration(time.Duration(f * float64(time.Second))), nil
	}
	return 0, fmt.Errorf("invalid duration value: %q", raw)
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

// Money is a currency amount parsed exactly from YAML ("1.00", 15).
type Money struct {
	decimal.Decimal
	set bool
}

func (m *Money) UnmarshalYAML(node *yaml.Node) error {
	if node == nil || strings.TrimSpace(node.Value) == "" {
		*m = Money{}
		return nil
	}
	v, err := decimal.NewFromString(strings.TrimSpace(node.Value))
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", node.Value, err)
	}
	*m = Money{Decimal: v, set: true}
	return nil
}

// NewMoney wraps an explicit amount.
func NewMoney(d decimal.Decimal) Money { return Money{Decimal: d, set: true} }

// IsSet reports whether the amount was configured at all; a configured zero fee is valid.
func (m Money) IsSet() bool { return m.set }
