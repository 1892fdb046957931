package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"dutchman/internal/domain"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds every setting of a Dutchman run.
// LoadConfig reads it from YAML and then applies environment overrides.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Auction struct {
		StartPrice       decimal.Decimal `yaml:"start_price"`
		MinPrice         decimal.Decimal `yaml:"min_price"`
		PriceDecrement   decimal.Decimal `yaml:"price_decrement"`
		TickIntervalMS   int             `yaml:"tick_interval_ms"`
		FundingGoal      decimal.Decimal `yaml:"funding_goal"`
		TotalTokenSupply int64           `yaml:"total_token_supply"`
	} `yaml:"auction"`

	Participants []domain.Participant `yaml:"participants"`

	// Bidders are simulated participants used by `dutchman run`.
	Bidders []BidderConfig `yaml:"bidders"`

	Server struct {
		ListenAddr     string   `yaml:"listen_addr"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	Journal struct {
		Enabled bool   `yaml:"enabled"`
		DSN     string `yaml:"dsn"`
	} `yaml:"journal"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// BidderConfig describes one simulated bidder.
type BidderConfig struct {
	Participant string          `yaml:"participant"`
	Strategy    string          `yaml:"strategy"` // "threshold" or "scheduled"
	Tokens      int64           `yaml:"tokens"`
	MaxPrice    decimal.Decimal `yaml:"max_price"`
	AtTick      int             `yaml:"at_tick"`
}

// LoadConfig reads and validates the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML bytes, applies environment overrides and validates.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := overrideWithEnv(&cfg); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// AuctionConfig converts the auction section into the engine configuration.
func (c *Config) AuctionConfig() domain.AuctionConfig {
	participants := make([]domain.Participant, len(c.Participants))
	copy(participants, c.Participants)

	return domain.AuctionConfig{
		StartPrice:       c.Auction.StartPrice,
		MinPrice:         c.Auction.MinPrice,
		PriceDecrement:   c.Auction.PriceDecrement,
		TickInterval:     time.Duration(c.Auction.TickIntervalMS) * time.Millisecond,
		FundingGoal:      c.Auction.FundingGoal,
		TotalTokenSupply: c.Auction.TotalTokenSupply,
		Participants:     participants,
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if err := c.AuctionConfig().Validate(); err != nil {
		return err
	}

	known := make(map[string]bool, len(c.Participants))
	for _, p := range c.Participants {
		known[p.ID] = true
	}
	for i, b := range c.Bidders {
		field := fmt.Sprintf("bidders[%d]", i)
		if !known[b.Participant] {
			return &domain.ConfigError{Field: field, Err: fmt.Errorf("unknown participant %q", b.Participant)}
		}
		if b.Tokens <= 0 {
			return &domain.ConfigError{Field: field, Err: fmt.Errorf("tokens must be positive, got %d", b.Tokens)}
		}
		switch b.Strategy {
		case "threshold":
			if !b.MaxPrice.IsPositive() {
				return &domain.ConfigError{Field: field, Err: fmt.Errorf("threshold bidder needs a positive max_price")}
			}
		case "scheduled":
			if b.AtTick < 0 {
				return &domain.ConfigError{Field: field, Err: fmt.Errorf("at_tick must be non-negative")}
			}
		default:
			return &domain.ConfigError{Field: field, Err: fmt.Errorf("unknown strategy %q", b.Strategy)}
		}
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return &domain.ConfigError{Field: "logging.level", Err: fmt.Errorf("unknown level %q", c.Logging.Level)}
	}

	if c.Journal.Enabled && c.Journal.DSN == "" {
		return &domain.ConfigError{Field: "journal.dsn", Err: fmt.Errorf("required when journal is enabled")}
	}

	return nil
}

// overrideWithEnv replaces settings with environment variables when present.
func overrideWithEnv(cfg *Config) error {
	if level := os.Getenv("DUTCHMAN_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if addr := os.Getenv("DUTCHMAN_LISTEN_ADDR"); addr != "" {
		cfg.Server.ListenAddr = addr
	}
	if dsn := os.Getenv("DUTCHMAN_JOURNAL_DSN"); dsn != "" {
		cfg.Journal.DSN = dsn
	}
	if ms := os.Getenv("DUTCHMAN_TICK_INTERVAL_MS"); ms != "" {
		v, err := strconv.Atoi(ms)
		if err != nil {
			return &domain.ConfigError{Field: "DUTCHMAN_TICK_INTERVAL_MS", Err: err}
		}
		cfg.Auction.TickIntervalMS = v
	}
	return nil
}
