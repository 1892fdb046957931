package app

import (
	"fmt"
	"log/slog"

	"dutchman/internal/clock"
	"dutchman/internal/engine"
	"dutchman/internal/infra"
	"dutchman/internal/infra/storage"
	"dutchman/internal/service"
	"dutchman/internal/strategy"
)

// DefaultConfigPath is used when no --config flag is given.
const DefaultConfigPath = "configs/config.yaml"

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Journal *storage.Journal
	Metrics *infra.Metrics
	Service *service.AuctionService

	clock clock.Clock
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{clock: clock.Real()}
}

// WithClock replaces the wall clock used by the auction.
func (b *Bootstrap) WithClock(c clock.Clock) *Bootstrap {
	b.clock = c
	return b
}

// Initialize loads the config at path and wires every component.
// withBidders attaches the simulated bidders declared in the config.
func (b *Bootstrap) Initialize(path string, withBidders bool) error {
	cfg, err := infra.LoadConfig(path)
	if err != nil {
		return err
	}
	return b.InitializeWith(cfg, withBidders)
}

// InitializeWith wires every component from an already loaded config.
func (b *Bootstrap) InitializeWith(cfg *infra.Config, withBidders bool) error {
	b.Config = cfg

	// 1. Setup Logger
	slog.SetDefault(infra.NewLogger(cfg))
	slog.Info("Bootstrapping Dutchman", slog.String("version", cfg.App.Version))

	// 2. Initialize Journal
	if cfg.Journal.Enabled {
		journal, err := storage.OpenJournal(cfg.Journal.DSN)
		if err != nil {
			return err
		}
		b.Journal = journal
		slog.Info("Journal initialized", slog.String("dsn", cfg.Journal.DSN))
	}

	// 3. Build the auction
	auction, err := engine.New(cfg.AuctionConfig(), engine.WithClock(b.clock))
	if err != nil {
		b.Close()
		return fmt.Errorf("failed to create auction: %w", err)
	}

	b.Metrics = &infra.Metrics{}
	opts := []service.Option{service.WithMetrics(b.Metrics)}
	if b.Journal != nil {
		opts = append(opts, service.WithJournal(b.Journal))
	}
	if withBidders {
		bidders, err := strategy.FromConfigs(cfg.Bidders)
		if err != nil {
			b.Close()
			return err
		}
		opts = append(opts, service.WithBidders(bidders...))
		slog.Info("Simulated bidders ready", slog.Int("count", len(bidders)))
	}

	b.Service = service.NewAuctionService(auction, opts...)
	slog.Info("Auction ready", slog.String("run_id", b.Service.RunID()))
	return nil
}

// Close releases the journal.
func (b *Bootstrap) Close() {
	if b.Journal == nil {
		return
	}
	if err := b.Journal.Close(); err != nil {
		slog.Warn("Failed to close journal", slog.Any("error", err))
	}
	b.Journal = nil
}
